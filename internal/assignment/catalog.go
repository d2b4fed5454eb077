package assignment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/histread/internal/store"
)

// Catalog stores assignments in the database.
type Catalog struct {
	repo *store.AssignmentRepo
}

// NewCatalog creates a Catalog over repo.
func NewCatalog(repo *store.AssignmentRepo) *Catalog {
	return &Catalog{repo: repo}
}

// Save validates and stores a.
func (c *Catalog) Save(ctx context.Context, a *Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assignment: %w", err)
	}
	return c.repo.Save(ctx, store.AssignmentRecord{
		ID:      a.ID,
		Title:   a.DisplayTitle(),
		Payload: payload,
	})
}

// Get loads an assignment. A missing ID yields an error wrapping
// store.ErrNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*Assignment, error) {
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("assignment %s: %w", id, err)
	}
	return decodeRecord(rec)
}

// List returns every stored assignment.
func (c *Catalog) List(ctx context.Context) ([]*Assignment, error) {
	recs, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Assignment, 0, len(recs))
	for i := range recs {
		a, err := decodeRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeRecord(rec *store.AssignmentRecord) (*Assignment, error) {
	var a Assignment
	if err := json.Unmarshal(rec.Payload, &a); err != nil {
		return nil, fmt.Errorf("decode assignment %s: %w", rec.ID, err)
	}
	a.ID = rec.ID
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("assignment %s: %w", rec.ID, err)
	}
	return &a, nil
}
