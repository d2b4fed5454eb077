package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/histread/internal/dialogue"
	"github.com/abhisek/histread/internal/mastery"
	"github.com/abhisek/histread/internal/session"
	"github.com/abhisek/histread/internal/store"
)

const retryMessage = "The tutor is unavailable right now. Please try again."

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// Reply carries a generated reply that could not be saved.
	Reply string `json:"reply,omitempty"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "invalid_request"})
}

// fail maps engine errors to responses. Internal details are logged, not
// returned.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		notFound    *session.NotFoundError
		consistency *session.ConsistencyError
		commit      *session.CommitError
		generation  *dialogue.GenerationError
		judgment    *mastery.JudgmentError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorBody{Error: notFound.Error(), Code: "not_found"})
	case errors.Is(err, session.ErrEmptyUtterance):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "empty_utterance"})
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, errorBody{Error: "session is busy, retry shortly", Code: "busy"})
	case errors.Is(err, store.ErrConflict):
		// Another turn committed first. A generated reply is still
		// returned so the caller can show it.
		body := errorBody{Error: "session changed during this turn, reply not saved", Code: "conflict"}
		if errors.As(err, &commit) {
			s.log.Warn("commit conflict", zap.String("session_id", commit.SessionID), zap.Error(err))
			body.Reply = commit.Output
		}
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &generation), errors.As(err, &judgment):
		s.log.Warn("collaborator failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: retryMessage, Code: "try_again"})
	case errors.As(err, &commit):
		s.log.Error("commit failed", zap.String("session_id", commit.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "reply could not be saved", Code: "commit_failed", Reply: commit.Output})
	case errors.As(err, &consistency):
		s.log.Error("inconsistent session", zap.String("session_id", consistency.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "session is in an inconsistent state", Code: "inconsistent"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorBody{Error: retryMessage, Code: "timeout"})
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
	}
}

func notFoundAssignment(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &session.NotFoundError{Kind: "assignment", ID: id}
	}
	return err
}

var (
	defaultAssignmentID = uuid.NewString
	newAssignmentID     = defaultAssignmentID
)
