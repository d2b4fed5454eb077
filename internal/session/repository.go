package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/histread/internal/store"
)

// Repository persists session state and transcripts. Implementations
// must write a commit's state and entry atomically.
type Repository interface {
	// Create stores a new session and its first transcript entry.
	Create(ctx context.Context, st State, first Entry) error

	// Load returns the current state and the transcript in creation
	// order. Unknown IDs yield an error wrapping store.ErrNotFound.
	Load(ctx context.Context, id string) (State, []Entry, error)

	// Commit stores next (whose Version is one past the stored version)
	// together with entry, or nothing at all.
	Commit(ctx context.Context, next State, entry Entry) error
}

// StoreRepository is the SQLite-backed Repository.
type StoreRepository struct {
	repo *store.SessionRepo
}

// NewStoreRepository adapts a store.SessionRepo.
func NewStoreRepository(repo *store.SessionRepo) *StoreRepository {
	return &StoreRepository{repo: repo}
}

func (r *StoreRepository) Create(ctx context.Context, st State, first Entry) error {
	rec, err := encodeState(st)
	if err != nil {
		return err
	}
	return r.repo.Create(ctx, rec, encodeEntry(first))
}

func (r *StoreRepository) Load(ctx context.Context, id string) (State, []Entry, error) {
	rec, err := r.repo.Get(ctx, id)
	if err != nil {
		return State{}, nil, fmt.Errorf("session %s: %w", id, err)
	}
	st, err := decodeState(rec)
	if err != nil {
		return State{}, nil, &ConsistencyError{SessionID: id, Reason: err.Error()}
	}

	recs, err := r.repo.Transcript(ctx, id)
	if err != nil {
		return State{}, nil, err
	}
	entries := make([]Entry, 0, len(recs))
	for _, tr := range recs {
		e, err := decodeEntry(tr)
		if err != nil {
			return State{}, nil, &ConsistencyError{SessionID: id, Reason: err.Error()}
		}
		entries = append(entries, e)
	}
	return st, entries, nil
}

func (r *StoreRepository) Commit(ctx context.Context, next State, entry Entry) error {
	rec, err := encodeState(next)
	if err != nil {
		return err
	}
	return r.repo.Commit(ctx, rec, encodeEntry(entry))
}

func encodeState(st State) (store.SessionRecord, error) {
	ev := st.Evidence
	if ev == nil {
		ev = Evidence{}
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("encode evidence: %w", err)
	}
	return store.SessionRecord{
		ID:             st.ID,
		AssignmentID:   st.AssignmentID,
		Phase:          string(st.Phase),
		SourceIndex:    st.SourceIndex,
		SkillIndex:     st.SkillIndex,
		QuestionsAsked: st.QuestionsAsked,
		Evidence:       data,
		Version:        st.Version,
		StartedAt:      st.StartedAt,
		EndedAt:        st.EndedAt,
	}, nil
}

func decodeState(rec *store.SessionRecord) (State, error) {
	phase, err := ParsePhase(rec.Phase)
	if err != nil {
		return State{}, err
	}
	ev := Evidence{}
	if len(rec.Evidence) > 0 {
		if err := json.Unmarshal(rec.Evidence, &ev); err != nil {
			return State{}, fmt.Errorf("decode evidence: %w", err)
		}
	}
	return State{
		ID:             rec.ID,
		AssignmentID:   rec.AssignmentID,
		Phase:          phase,
		SourceIndex:    rec.SourceIndex,
		SkillIndex:     rec.SkillIndex,
		Evidence:       ev,
		QuestionsAsked: rec.QuestionsAsked,
		StartedAt:      rec.StartedAt,
		EndedAt:        rec.EndedAt,
		Version:        rec.Version,
	}, nil
}

func encodeEntry(e Entry) store.TranscriptRecord {
	return store.TranscriptRecord{
		Seq:          e.Seq,
		Phase:        string(e.Phase),
		SourceIndex:  e.SourceIndex,
		SkillIndex:   e.SkillIndex,
		StudentInput: e.StudentInput,
		SystemOutput: e.SystemOutput,
		CreatedAt:    e.CreatedAt,
	}
}

func decodeEntry(tr store.TranscriptRecord) (Entry, error) {
	phase, err := ParsePhase(tr.Phase)
	if err != nil {
		return Entry{}, fmt.Errorf("transcript entry %d: %w", tr.Seq, err)
	}
	return Entry{
		Seq:          tr.Seq,
		Phase:        phase,
		SourceIndex:  tr.SourceIndex,
		SkillIndex:   tr.SkillIndex,
		StudentInput: tr.StudentInput,
		SystemOutput: tr.SystemOutput,
		CreatedAt:    tr.CreatedAt,
	}, nil
}
