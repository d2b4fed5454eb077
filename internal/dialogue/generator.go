package dialogue

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"

	"github.com/abhisek/histread/internal/llm"
)

// GenerationError reports a failed tutor reply. Nothing was produced, so
// the turn can simply be retried.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generate tutor reply: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

var errEmptyReply = errors.New("model returned an empty reply")

// Generator produces tutor replies with an llm.Provider.
type Generator struct {
	provider llm.Provider
	cfg      Config
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, cfg: cfg}
}

// Generate implements session.Generator.
func (g *Generator) Generate(ctx context.Context, history iter.Seq[llm.Message], instructions string) (string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeDialogue)

	req := llm.Request{
		System:      instructions,
		Messages:    slices.Collect(history),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", &GenerationError{Err: errEmptyReply}
	}
	return reply, nil
}
