package session

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/llm"
	"github.com/abhisek/histread/internal/mastery"
	"github.com/abhisek/histread/internal/store"
)

// memRepository is an in-memory Repository with the same version rule
// as the SQLite store.
type memRepository struct {
	mu        sync.Mutex
	states    map[string]State
	entries   map[string][]Entry
	commitErr error
	commits   int
}

func newMemRepository() *memRepository {
	return &memRepository{states: map[string]State{}, entries: map[string][]Entry{}}
}

func (r *memRepository) Create(_ context.Context, st State, first Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[st.ID]; ok {
		return fmt.Errorf("session %s exists", st.ID)
	}
	r.states[st.ID] = st.Clone()
	first.Seq = 1
	r.entries[st.ID] = []Entry{first}
	return nil
}

func (r *memRepository) Load(_ context.Context, id string) (State, []Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[id]
	if !ok {
		return State{}, nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return st.Clone(), slices.Clone(r.entries[id]), nil
}

func (r *memRepository) Commit(_ context.Context, next State, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	cur, ok := r.states[next.ID]
	if !ok {
		return store.ErrNotFound
	}
	if next.Version != cur.Version+1 {
		return fmt.Errorf("version %d after %d: %w", next.Version, cur.Version, store.ErrConflict)
	}
	r.states[next.ID] = next.Clone()
	entry.Seq = len(r.entries[next.ID]) + 1
	r.entries[next.ID] = append(r.entries[next.ID], entry)
	r.commits++
	return nil
}

// put overwrites a session, for tests that start mid-way.
func (r *memRepository) put(st State, entries ...Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[st.ID] = st.Clone()
	r.entries[st.ID] = entries
}

func (r *memRepository) state(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[id].Clone()
}

func (r *memRepository) transcript(id string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries[id])
}

type assignmentMap map[string]*assignment.Assignment

func (m assignmentMap) Get(_ context.Context, id string) (*assignment.Assignment, error) {
	a, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

type composeCall struct {
	State State
	Mode  TurnMode
}

type recordingComposer struct {
	mu    sync.Mutex
	calls []composeCall
	err   error
}

func (c *recordingComposer) Compose(_ *assignment.Assignment, st State, mode TurnMode) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, composeCall{State: st.Clone(), Mode: mode})
	if c.err != nil {
		return "", c.err
	}
	return "instructions for " + mode.String(), nil
}

func (c *recordingComposer) modes() []TurnMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TurnMode, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.Mode
	}
	return out
}

type generateCall struct {
	History      []llm.Message
	Instructions string
	SessionID    string
}

// scriptedGenerator replies from a queue, falling back to a question.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	calls   []generateCall
	err     error
}

func (g *scriptedGenerator) Generate(ctx context.Context, history iter.Seq[llm.Message], instructions string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generateCall{
		History:      slices.Collect(history),
		Instructions: instructions,
		SessionID:    llm.SessionIDFrom(ctx),
	})
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) > 0 {
		r := g.replies[0]
		g.replies = g.replies[1:]
		return r, nil
	}
	return "What does the author claim?", nil
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *scriptedGenerator) last() generateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

// thresholdGate masters a skill-attempt once it has n utterances.
type thresholdGate struct {
	mu    sync.Mutex
	n     int
	calls []mastery.Input
	err   error
}

func (g *thresholdGate) Evaluate(_ context.Context, in mastery.Input) (mastery.Verdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, in)
	if g.err != nil {
		return mastery.Verdict{}, g.err
	}
	return mastery.Verdict{Mastered: len(in.Evidence) >= g.n, Reasoning: "internal rationale"}, nil
}

type recordedTurn struct {
	Op, Outcome string
}

type turnRecorder struct {
	mu    sync.Mutex
	turns []recordedTurn
}

func (r *turnRecorder) ObserveTurn(op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, recordedTurn{op, outcome})
}

func testAssignment(id string, sources int, skills ...string) *assignment.Assignment {
	a := &assignment.Assignment{
		ID:              id,
		Title:           "Colonial Taxation",
		Topic:           "The Stamp Act",
		GuidingQuestion: "Why did colonists resist the Stamp Act?",
		Proficiency:     assignment.Beginner,
		Skills:          skills,
	}
	for i := range sources {
		a.Sources = append(a.Sources, assignment.Source{
			Title: fmt.Sprintf("Source %d", i+1),
			Text:  fmt.Sprintf("Text of source %d.", i+1),
		})
	}
	return a
}

type harness struct {
	engine   *Engine
	repo     *memRepository
	composer *recordingComposer
	gen      *scriptedGenerator
	gate     *thresholdGate
	observer *turnRecorder
}

func newHarness(t testing.TB, a *assignment.Assignment, cfg Config) *harness {
	t.Helper()
	h := &harness{
		repo:     newMemRepository(),
		composer: &recordingComposer{},
		gen:      &scriptedGenerator{},
		gate:     &thresholdGate{n: 3},
		observer: &turnRecorder{},
	}
	ids := 0
	e, err := NewEngine(Deps{
		Assignments: assignmentMap{a.ID: a},
		Sessions:    h.repo,
		Composer:    h.composer,
		Generator:   h.gen,
		Gate:        h.gate,
		Observer:    h.observer,
		Now:         func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			ids++
			return fmt.Sprintf("sess-%d", ids)
		},
	}, cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.engine = e
	return h
}
