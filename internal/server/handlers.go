package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/session"
)

type beginRequest struct {
	AssignmentID string `json:"assignmentId" binding:"required,max=128"`
}

type utteranceRequest struct {
	Text string `json:"text" binding:"required,max=8000"`
}

func (s *Server) beginSession(c *gin.Context) {
	var req beginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.engine.Begin(c.Request.Context(), req.AssignmentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) submitUtterance(c *gin.Context) {
	var req utteranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.engine.Submit(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) requestAdvance(c *gin.Context) {
	res, err := s.engine.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) inspectSession(c *gin.Context) {
	audit, err := s.engine.Inspect(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuditView(audit))
}

func (s *Server) listAssignments(c *gin.Context) {
	list, err := s.catalog.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]assignmentSummary, len(list))
	for i, a := range list {
		out[i] = summarize(a)
	}
	c.JSON(http.StatusOK, gin.H{"assignments": out})
}

func (s *Server) getAssignment(c *gin.Context) {
	a, err := s.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, notFoundAssignment(err, c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) createAssignment(c *gin.Context) {
	var a assignment.Assignment
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, err)
		return
	}
	if a.ID == "" {
		a.ID = newAssignmentID()
	}
	if err := a.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.catalog.Save(c.Request.Context(), &a); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, summarize(&a))
}

type assignmentSummary struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Topic       string                 `json:"topic"`
	Proficiency assignment.Proficiency `json:"proficiency"`
	Sources     int                    `json:"totalSources"`
	Skills      []string               `json:"skills"`
}

func summarize(a *assignment.Assignment) assignmentSummary {
	return assignmentSummary{
		ID:          a.ID,
		Title:       a.DisplayTitle(),
		Topic:       a.Topic,
		Proficiency: a.Proficiency,
		Sources:     len(a.Sources),
		Skills:      a.Skills,
	}
}

type auditView struct {
	Session    stateView   `json:"session"`
	Transcript []entryView `json:"transcript"`
}

type stateView struct {
	ID             string           `json:"id"`
	AssignmentID   string           `json:"assignmentId"`
	Phase          session.Phase    `json:"phase"`
	SourceIndex    int              `json:"sourceIndex"`
	SkillIndex     int              `json:"skillIndex"`
	QuestionsAsked int              `json:"questionsAsked"`
	Evidence       session.Evidence `json:"evidence"`
	StartedAt      string           `json:"startedAt"`
	EndedAt        *string          `json:"endedAt,omitempty"`
	Version        int64            `json:"version"`
	TotalSources   int              `json:"totalSources"`
	Skills         []string         `json:"skills"`
}

type entryView struct {
	Seq          int           `json:"seq"`
	Phase        session.Phase `json:"phase"`
	SourceIndex  int           `json:"sourceIndex"`
	SkillIndex   int           `json:"skillIndex"`
	StudentInput *string       `json:"studentInput"`
	SystemOutput string        `json:"systemOutput"`
	CreatedAt    string        `json:"createdAt"`
}

func newAuditView(a *session.Audit) auditView {
	st := a.State
	v := auditView{
		Session: stateView{
			ID:             st.ID,
			AssignmentID:   st.AssignmentID,
			Phase:          st.Phase,
			SourceIndex:    st.SourceIndex,
			SkillIndex:     st.SkillIndex,
			QuestionsAsked: st.QuestionsAsked,
			Evidence:       st.Evidence,
			StartedAt:      st.StartedAt.UTC().Format(time.RFC3339),
			Version:        st.Version,
			TotalSources:   len(a.Assignment.Sources),
			Skills:         a.Assignment.Skills,
		},
		Transcript: make([]entryView, len(a.Entries)),
	}
	if st.EndedAt != nil {
		ended := st.EndedAt.UTC().Format(time.RFC3339)
		v.Session.EndedAt = &ended
	}
	for i, e := range a.Entries {
		v.Transcript[i] = entryView{
			Seq:          e.Seq,
			Phase:        e.Phase,
			SourceIndex:  e.SourceIndex,
			SkillIndex:   e.SkillIndex,
			StudentInput: e.StudentInput,
			SystemOutput: e.SystemOutput,
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return v
}
