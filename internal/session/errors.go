package session

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when another turn for the same session is in
	// flight and the engine is configured not to wait.
	ErrBusy = errors.New("session is busy with another request")

	// ErrEmptyUtterance is returned for blank student input.
	ErrEmptyUtterance = errors.New("utterance is empty")
)

// ConsistencyError reports session indices that contradict the
// assignment. It is fatal for the session.
type ConsistencyError struct {
	SessionID string
	Reason    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("session %s is inconsistent: %s", e.SessionID, e.Reason)
}

// NotFoundError reports an unknown session or assignment.
type NotFoundError struct {
	Kind string // "session" or "assignment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// CommitError reports a turn whose output was generated but could not be
// persisted. Output carries the generated reply.
type CommitError struct {
	SessionID string
	Output    string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit turn for session %s: %v", e.SessionID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
