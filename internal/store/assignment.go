package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// AssignmentRecord is a stored assignment. Payload holds the assignment
// body as encoded by the assignment package.
type AssignmentRecord struct {
	ID        string
	Title     string
	Payload   []byte
	CreatedAt time.Time
}

// AssignmentRepo reads and writes assignment records.
type AssignmentRepo struct {
	db *sql.DB
}

// Save inserts the record, replacing any record with the same ID.
func (r *AssignmentRepo) Save(ctx context.Context, rec AssignmentRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query, args := sqlite().Insert(AssignmentsTable.Name).
		Columns("id", "title", "payload", "created_at").
		Values(rec.ID, rec.Title, rec.Payload, rec.CreatedAt).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save assignment %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the assignment with the given ID or ErrNotFound.
func (r *AssignmentRepo) Get(ctx context.Context, id string) (*AssignmentRecord, error) {
	b := sqlite()
	query, args := b.Select("id", "title", "payload", "created_at").
		From(b.Table(AssignmentsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var rec AssignmentRecord
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.Title, &rec.Payload, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return &rec, nil
}

// List returns every assignment ordered by creation time.
func (r *AssignmentRepo) List(ctx context.Context) ([]AssignmentRecord, error) {
	b := sqlite()
	query, args := b.Select("id", "title", "payload", "created_at").
		From(b.Table(AssignmentsTable.Name)).
		OrderBy("created_at", "id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []AssignmentRecord
	for rows.Next() {
		var rec AssignmentRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
