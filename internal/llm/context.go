package llm

import "context"

type contextKey string

const (
	purposeKey   contextKey = "llm_purpose"
	sessionIDKey contextKey = "llm_session_id"
)

// Purpose labels recorded with every request event.
const (
	PurposeDialogue = "dialogue"
	PurposeJudge    = "mastery-judge"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithSessionID tags the context with the reading session a request
// belongs to.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFrom returns the session tag, or "" when absent.
func SessionIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}
