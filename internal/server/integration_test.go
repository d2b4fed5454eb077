package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/dialogue"
	"github.com/abhisek/histread/internal/llm"
	"github.com/abhisek/histread/internal/mastery"
	"github.com/abhisek/histread/internal/metrics"
	"github.com/abhisek/histread/internal/reference"
	"github.com/abhisek/histread/internal/session"
	"github.com/abhisek/histread/internal/store"
)

const hiddenRationale = "student never named the author"

// wired builds the server over the real store, engine, composer and judge
// with one scripted provider behind both collaborators.
func wired(t *testing.T, replies ...llm.MockResponse) (http.Handler, *llm.MockProvider, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider(replies...)
	m := metrics.New(nil)
	provider := m.Instrument(llm.WithLogging(mock, "mock", st.Events(), nil))

	catalog := assignment.NewCatalog(st.Assignments())
	dcfg := dialogue.DefaultConfig()
	engine, err := session.NewEngine(session.Deps{
		Assignments: catalog,
		Sessions:    session.NewStoreRepository(st.Sessions()),
		Composer:    dialogue.NewComposer(reference.NewLibrary("", nil), dcfg),
		Generator:   dialogue.NewGenerator(provider, dcfg),
		Gate:        mastery.NewGate(mastery.NewLLMJudge(provider, mastery.DefaultJudgeConfig()), nil),
		Observer:    m,
	}, session.DefaultConfig())
	require.NoError(t, err)

	h := New(Options{Engine: engine, Catalog: catalog, Metrics: m.Handler()}).Handler()
	return h, mock, st
}

func verdict(mastered bool, reasoning string) llm.MockResponse {
	body := `{"is_mastered":false,"reasoning":"` + reasoning + `"}`
	if mastered {
		body = `{"is_mastered":true,"reasoning":"` + reasoning + `"}`
	}
	return llm.TextResponse(body)
}

func TestEndToEnd(t *testing.T) {
	h, mock, st := wired(t,
		llm.TextResponse("Welcome! What do you know about 1765?"),
		llm.TextResponse("Let's look at our first source."),
		llm.TextResponse("Good start. Who wrote this?"),
		verdict(false, hiddenRationale),
		llm.TextResponse("Before we move on, look at who signed it."),
		llm.TextResponse("Yes, the Congress. Why does that matter?"),
		verdict(true, "named the author and purpose"),
	)

	w := do(t, h, http.MethodPost, "/v1/assignments", assignment.Assignment{
		ID:              "stamp-act",
		Topic:           "The Stamp Act",
		GuidingQuestion: "Why did colonists resist?",
		Proficiency:     assignment.Beginner,
		Skills:          []string{"Sourcing"},
		Sources:         []assignment.Source{{Title: "Resolutions", Author: "Stamp Act Congress", Text: "No taxation without consent."}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/v1/sessions", beginRequest{AssignmentID: "stamp-act"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	begin := decode[session.BeginResult](t, w)
	assert.Equal(t, "Welcome! What do you know about 1765?", begin.WelcomeMessage)
	base := "/v1/sessions/" + begin.SessionID

	w = do(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adv := decode[session.AdvanceResult](t, w)
	assert.False(t, adv.Blocked)
	assert.Equal(t, "Sourcing", adv.CurrentSkill)

	w = do(t, h, http.MethodPost, base+"/utterances", utteranceRequest{Text: "It is about taxes."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decode[session.SubmitResult](t, w)
	assert.Equal(t, 1, sub.QuestionsAsked)

	w = do(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adv = decode[session.AdvanceResult](t, w)
	assert.True(t, adv.Blocked)
	assert.NotContains(t, adv.Reply, hiddenRationale)

	// The blocked reply is generated without the judge's rationale.
	blockedReq := mock.Calls[4]
	assert.NotContains(t, blockedReq.System, hiddenRationale)
	for _, msg := range blockedReq.Messages {
		assert.NotContains(t, msg.Content, hiddenRationale)
	}

	w = do(t, h, http.MethodPost, base+"/utterances", utteranceRequest{Text: "The Stamp Act Congress wrote it."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adv = decode[session.AdvanceResult](t, w)
	assert.True(t, adv.Complete)
	assert.Equal(t, session.DefaultCompletionMessage, adv.Reply)
	assert.Equal(t, 7, mock.CallCount(), "completion must not generate")

	w = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	audit := decode[auditView](t, w)
	assert.Equal(t, session.PhaseComplete, audit.Session.Phase)
	assert.NotNil(t, audit.Session.EndedAt)
	require.Len(t, audit.Transcript, 6)
	assert.Nil(t, audit.Transcript[0].StudentInput)
	assert.Nil(t, audit.Transcript[1].StudentInput)
	require.NotNil(t, audit.Transcript[3].StudentInput)
	assert.Equal(t, session.AdvanceMarker, *audit.Transcript[3].StudentInput)
	assert.Equal(t, session.PhaseComplete, audit.Transcript[5].Phase)

	judged, err := st.Events().List(context.Background(), store.LLMEventQuery{Purpose: llm.PurposeJudge})
	require.NoError(t, err)
	assert.Len(t, judged, 2)
	dialogued, err := st.Events().List(context.Background(), store.LLMEventQuery{SessionID: begin.SessionID, Purpose: llm.PurposeDialogue})
	require.NoError(t, err)
	assert.Len(t, dialogued, 5)

	w = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `histread_session_turns_total{op="advance",outcome="complete"} 1`), w.Body.String())
}

func TestEndToEnd_GenerationFailureCommitsNothing(t *testing.T) {
	h, _, _ := wired(t,
		llm.TextResponse("Welcome!"),
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("upstream down")}},
	)

	w := do(t, h, http.MethodPost, "/v1/assignments", assignment.Assignment{
		ID: "a1", Topic: "Reconstruction", GuidingQuestion: "What changed?", Proficiency: assignment.Advanced,
		Skills: []string{"Comprehension"}, Sources: []assignment.Source{{Title: "Amendment", Text: "Neither slavery..."}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/v1/sessions", beginRequest{AssignmentID: "a1"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[session.BeginResult](t, w).SessionID

	w = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/utterances", utteranceRequest{Text: "It ended slavery."})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
	assert.Equal(t, "try_again", decode[errorBody](t, w).Code)

	w = do(t, h, http.MethodGet, "/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	audit := decode[auditView](t, w)
	assert.Len(t, audit.Transcript, 1)
	assert.Equal(t, int64(1), audit.Session.Version)
}
