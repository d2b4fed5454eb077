package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for LLM interaction. The dialogue
// generator and the mastery judge both talk to a model through it.
type Provider interface {
	// Generate sends a prompt to the LLM. When req.Schema is set the
	// provider uses its native structured output mechanism and the
	// response Content is validated JSON. Otherwise Content is the raw
	// reply text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System carries the composed context: rules, sources, session
	// state and any wrap-up or guidance blocks.
	System string

	// Messages is the replayed conversation window followed by the
	// current student input, oldest first.
	Messages []Message

	// Schema is the JSON Schema the response must conform to. Nil for
	// free-text tutor replies.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message is a single conversational turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (schema name for OpenAI, cache key for
	// validation). Kebab-case, e.g. "mastery-judgment".
	Name string

	// Description is sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Text returns the reply as a plain string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// conversationCue opens conversations for providers that require the
// first message to come from the user.
const conversationCue = "Begin."

// userFirst returns msgs unchanged when they start with a user turn and
// otherwise prepends conversationCue.
func userFirst(msgs []Message) []Message {
	if len(msgs) > 0 && msgs[0].Role == RoleUser {
		return msgs
	}
	return append([]Message{{Role: RoleUser, Content: conversationCue}}, msgs...)
}
