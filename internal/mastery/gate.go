// Package mastery decides whether a student has demonstrated the current
// skill of a session, which is the only condition for advancing.
package mastery

import (
	"context"

	"go.uber.org/zap"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/llm"
)

// Input describes one skill-attempt under evaluation.
type Input struct {
	Skill       string
	Proficiency assignment.Proficiency

	// Evidence holds the student's utterances during the skill-attempt.
	Evidence []string

	// Excerpt is the recent exchange, so the judge can check the student
	// answered what was asked. Empty when there is none.
	Excerpt string
}

// Verdict is the outcome of an evaluation. Reasoning is internal and must
// not be shown to the student.
type Verdict struct {
	Mastered  bool   `json:"is_mastered"`
	Reasoning string `json:"reasoning"`
}

// Judge rules on non-empty evidence.
type Judge interface {
	Judge(ctx context.Context, in Input) (Verdict, error)
}

// noEvidenceReasoning explains the short-circuit verdict.
const noEvidenceReasoning = "No evidence yet - student hasn't engaged with the skill."

// Gate evaluates skill-attempts. A skill-attempt with no utterances is
// never mastered and never reaches the judge.
type Gate struct {
	judge  Judge
	logger *zap.Logger
}

// NewGate creates a Gate over judge.
func NewGate(judge Judge, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{judge: judge, logger: logger}
}

// Evaluate returns the mastery verdict for in.
func (g *Gate) Evaluate(ctx context.Context, in Input) (Verdict, error) {
	if len(in.Evidence) == 0 {
		return Verdict{Mastered: false, Reasoning: noEvidenceReasoning}, nil
	}

	v, err := g.judge.Judge(ctx, in)
	if err != nil {
		return Verdict{}, err
	}
	g.logger.Debug("mastery verdict",
		zap.String("session_id", llm.SessionIDFrom(ctx)),
		zap.String("skill", in.Skill),
		zap.Int("evidence", len(in.Evidence)),
		zap.Bool("mastered", v.Mastered),
		zap.String("reasoning", v.Reasoning))
	return v, nil
}
