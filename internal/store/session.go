package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// SessionRecord is the persisted progression state of one reading session.
// Evidence is the encoded evidence log.
type SessionRecord struct {
	ID             string
	AssignmentID   string
	Phase          string
	SourceIndex    int
	SkillIndex     int
	QuestionsAsked int
	Evidence       []byte
	Version        int64
	StartedAt      time.Time
	EndedAt        *time.Time
}

// TranscriptRecord is one persisted turn. A nil StudentInput marks a
// system-initiated turn.
type TranscriptRecord struct {
	SessionID    string
	Seq          int
	Phase        string
	SourceIndex  int
	SkillIndex   int
	StudentInput *string
	SystemOutput string
	CreatedAt    time.Time
}

var sessionColumns = []string{
	"id", "assignment_id", "phase", "source_index", "skill_index",
	"questions_asked", "evidence", "version", "started_at", "ended_at",
}

var transcriptColumns = []string{
	"session_id", "seq", "phase", "source_index", "skill_index",
	"student_input", "system_output", "created_at",
}

// SessionRepo persists sessions and their transcripts.
type SessionRepo struct {
	db *sql.DB
}

// Create inserts a new session together with its first transcript entry.
func (r *SessionRepo) Create(ctx context.Context, rec SessionRecord, first TranscriptRecord) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		query, args := sqlite().Insert(SessionsTable.Name).
			Columns(sessionColumns...).
			Values(rec.ID, rec.AssignmentID, rec.Phase, rec.SourceIndex, rec.SkillIndex,
				rec.QuestionsAsked, rec.Evidence, rec.Version, rec.StartedAt, nullTime(rec.EndedAt)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert session %s: %w", rec.ID, err)
		}
		first.SessionID = rec.ID
		return appendEntry(ctx, tx, first)
	})
}

// Get returns the session with the given ID or ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	b := sqlite()
	query, args := b.Select(sessionColumns...).
		From(b.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rec, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

// List returns sessions for an assignment, newest first. An empty
// assignmentID lists every session.
func (r *SessionRepo) List(ctx context.Context, assignmentID string) ([]SessionRecord, error) {
	b := sqlite()
	sel := b.Select(sessionColumns...).
		From(b.Table(SessionsTable.Name)).
		OrderBy(entsql.Desc("started_at"))
	if assignmentID != "" {
		sel.Where(entsql.EQ("assignment_id", assignmentID))
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Commit stores the next state of a session and the transcript entry
// produced by the same turn in one transaction. rec.Version must be
// exactly one ahead of the stored version or ErrConflict is returned and
// nothing is written.
func (r *SessionRepo) Commit(ctx context.Context, rec SessionRecord, entry TranscriptRecord) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		query, args := sqlite().Update(SessionsTable.Name).
			Set("phase", rec.Phase).
			Set("source_index", rec.SourceIndex).
			Set("skill_index", rec.SkillIndex).
			Set("questions_asked", rec.QuestionsAsked).
			Set("evidence", rec.Evidence).
			Set("version", rec.Version).
			Set("ended_at", nullTime(rec.EndedAt)).
			Where(entsql.And(
				entsql.EQ("id", rec.ID),
				entsql.EQ("version", rec.Version-1),
			)).
			Query()

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update session %s: %w", rec.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update session %s: %w", rec.ID, err)
		}
		if n == 0 {
			if _, err := r.getTx(ctx, tx, rec.ID); errors.Is(err, ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("commit session %s at version %d: %w", rec.ID, rec.Version, ErrConflict)
		}

		entry.SessionID = rec.ID
		return appendEntry(ctx, tx, entry)
	})
}

// Transcript returns every entry of a session in creation order.
func (r *SessionRepo) Transcript(ctx context.Context, sessionID string) ([]TranscriptRecord, error) {
	b := sqlite()
	query, args := b.Select(transcriptColumns...).
		From(b.Table(TranscriptEntriesTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("seq").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []TranscriptRecord
	for rows.Next() {
		var (
			e     TranscriptRecord
			input sql.NullString
		)
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Phase, &e.SourceIndex, &e.SkillIndex,
			&input, &e.SystemOutput, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		if input.Valid {
			s := input.String
			e.StudentInput = &s
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SessionRepo) getTx(ctx context.Context, tx *sql.Tx, id string) (*SessionRecord, error) {
	b := sqlite()
	query, args := b.Select(sessionColumns...).
		From(b.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()
	rec, err := scanSession(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *SessionRepo) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// appendEntry inserts entry at the next sequence position of its session.
func appendEntry(ctx context.Context, tx *sql.Tx, entry TranscriptRecord) error {
	b := sqlite()
	query, args := b.Select("COALESCE(MAX(seq), 0)").
		From(b.Table(TranscriptEntriesTable.Name)).
		Where(entsql.EQ("session_id", entry.SessionID)).
		Query()
	var last int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return fmt.Errorf("next transcript seq: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var input any
	if entry.StudentInput != nil {
		input = *entry.StudentInput
	}

	query, args = sqlite().Insert(TranscriptEntriesTable.Name).
		Columns(transcriptColumns...).
		Values(entry.SessionID, last+1, entry.Phase, entry.SourceIndex, entry.SkillIndex,
			input, entry.SystemOutput, entry.CreatedAt).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append transcript entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var (
		rec   SessionRecord
		ended sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.AssignmentID, &rec.Phase, &rec.SourceIndex, &rec.SkillIndex,
		&rec.QuestionsAsked, &rec.Evidence, &rec.Version, &rec.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		rec.EndedAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
