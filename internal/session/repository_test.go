package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/histread/internal/store"
)

func openRepository(t *testing.T) (*StoreRepository, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	err = s.Assignments().Save(context.Background(), store.AssignmentRecord{
		ID:        "a1",
		Title:     "Colonial Taxation",
		Payload:   []byte(`{}`),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Save assignment: %v", err)
	}
	return NewStoreRepository(s.Sessions()), s
}

func TestStoreRepositoryRoundTrip(t *testing.T) {
	repo, _ := openRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	st := NewState("s1", "a1", now)
	if err := repo.Create(ctx, st, Entry{Phase: PhaseIntro, SystemOutput: "Welcome.", CreatedAt: now}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next := st.Clone()
	next.Phase = PhaseSourceLoop
	next.Evidence.Append(SkillKey{0, 0}, "taxes rose")
	next.QuestionsAsked = 1
	next.Version = 2
	answer := "taxes rose"
	entry := Entry{Phase: PhaseSourceLoop, StudentInput: &answer, SystemOutput: "Why?", CreatedAt: now.Add(time.Minute)}
	if err := repo.Commit(ctx, next, entry); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, entries, err := repo.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Phase != PhaseSourceLoop || got.Version != 2 || got.QuestionsAsked != 1 {
		t.Errorf("state = %+v", got)
	}
	if ev := got.Evidence.For(SkillKey{0, 0}); len(ev) != 1 || ev[0] != "taxes rose" {
		t.Errorf("evidence = %q", ev)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].IsTransition() || entries[0].Seq != 1 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Input() != "taxes rose" || entries[1].Seq != 2 {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestStoreRepositoryStaleCommit(t *testing.T) {
	repo, _ := openRepository(t)
	ctx := context.Background()
	st := NewState("s1", "a1", time.Now().UTC())
	if err := repo.Create(ctx, st, Entry{Phase: PhaseIntro, SystemOutput: "Welcome."}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := st.Clone()
	stale.Version = 5
	if err := repo.Commit(ctx, stale, Entry{Phase: PhaseIntro, SystemOutput: "late"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Commit err = %v, want ErrConflict", err)
	}
	_, entries, err := repo.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d after rejected commit, want 1", len(entries))
	}
}

func TestStoreRepositoryCorruptEvidence(t *testing.T) {
	repo, s := openRepository(t)
	ctx := context.Background()
	st := NewState("s1", "a1", time.Now().UTC())
	if err := repo.Create(ctx, st, Entry{Phase: PhaseIntro, SystemOutput: "Welcome."}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, `UPDATE sessions SET evidence = ? WHERE id = ?`, []byte(`{"zero":["x"]}`), "s1"); err != nil {
		t.Fatalf("corrupt evidence: %v", err)
	}

	_, _, err := repo.Load(ctx, "s1")
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Errorf("Load err = %v, want ConsistencyError", err)
	}
}

func TestStoreRepositoryNotFound(t *testing.T) {
	repo, _ := openRepository(t)
	if _, _, err := repo.Load(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load err = %v, want ErrNotFound", err)
	}
}

// The engine runs end to end over SQLite.
func TestEngineOverStore(t *testing.T) {
	repo, _ := openRepository(t)
	a := testAssignment("a1", 1, "Comprehension")
	gen := &scriptedGenerator{}
	e, err := NewEngine(Deps{
		Assignments: assignmentMap{"a1": a},
		Sessions:    repo,
		Composer:    &recordingComposer{},
		Generator:   gen,
		Gate:        &thresholdGate{n: 1},
	}, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	ctx := context.Background()
	b, err := e.Begin(ctx, "a1")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := e.Advance(ctx, b.SessionID); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := e.Submit(ctx, b.SessionID, "taxes rose"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res, err := e.Advance(ctx, b.SessionID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !res.Complete {
		t.Fatalf("advance = %+v, want complete", res)
	}

	audit, err := e.Inspect(ctx, b.SessionID)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if audit.State.Phase != PhaseComplete || audit.State.EndedAt == nil || len(audit.Entries) != 4 {
		t.Errorf("audit state = %+v, entries = %d", audit.State, len(audit.Entries))
	}
}
