package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// LLMEventQuery filters LLM request events.
type LLMEventQuery struct {
	SessionID string // empty matches every session
	Purpose   string // empty matches every purpose
	Limit     int    // max results (0 = unlimited)
}

var llmEventColumns = []string{
	"id", "timestamp", "session_id", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

// EventRepo records LLM collaborator calls.
type EventRepo struct {
	db *sql.DB
}

// AppendLLMRequest records an LLM API call event.
func (r *EventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := sqlite().Insert(LlmRequestEventsTable.Name).
		Columns(llmEventColumns[1:]...).
		Values(time.Now().UTC(), data.SessionID, data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// List returns matching events, newest first.
func (r *EventRepo) List(ctx context.Context, q LLMEventQuery) ([]LLMRequestEvent, error) {
	b := sqlite()
	sel := b.Select(llmEventColumns...).
		From(b.Table(LlmRequestEventsTable.Name)).
		OrderBy(entsql.Desc("id"))

	var preds []*entsql.Predicate
	if q.SessionID != "" {
		preds = append(preds, entsql.EQ("session_id", q.SessionID))
	}
	if q.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", q.Purpose))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		ev, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

// Get returns a single event by ID or ErrNotFound.
func (r *EventRepo) Get(ctx context.Context, id int) (*LLMRequestEvent, error) {
	b := sqlite()
	query, args := b.Select(llmEventColumns...).
		From(b.Table(LlmRequestEventsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	ev, err := scanLLMEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event %d: %w", id, err)
	}
	return ev, nil
}

func scanLLMEvent(row rowScanner) (*LLMRequestEvent, error) {
	var ev LLMRequestEvent
	err := row.Scan(&ev.ID, &ev.Timestamp, &ev.SessionID, &ev.Provider, &ev.Model, &ev.Purpose,
		&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.Success,
		&ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
