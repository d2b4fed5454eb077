package mastery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/llm"
)

// JudgeConfig holds configuration for the LLM judge.
type JudgeConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultJudgeConfig returns sensible defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		MaxTokens:   256,
		Temperature: 0,
	}
}

// JudgmentError reports a failed or unparseable mastery judgment.
type JudgmentError struct {
	Skill string
	Err   error
}

func (e *JudgmentError) Error() string {
	return fmt.Sprintf("mastery judgment for %q failed: %v", e.Skill, e.Err)
}

func (e *JudgmentError) Unwrap() error { return e.Err }

// LLMJudge asks a language model for a structured verdict.
type LLMJudge struct {
	provider llm.Provider
	cfg      JudgeConfig
}

// NewLLMJudge creates an LLM-backed Judge.
func NewLLMJudge(provider llm.Provider, cfg JudgeConfig) *LLMJudge {
	return &LLMJudge{provider: provider, cfg: cfg}
}

// Judge implements Judge.
func (j *LLMJudge) Judge(ctx context.Context, in Input) (Verdict, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeJudge)

	prompt, err := buildJudgePrompt(in)
	if err != nil {
		return Verdict{}, &JudgmentError{Skill: in.Skill, Err: fmt.Errorf("build judge prompt: %w", err)}
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:      judgeSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      VerdictSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return Verdict{}, &JudgmentError{Skill: in.Skill, Err: err}
	}

	if err := llm.ValidateJSON(VerdictSchema, resp.Content); err != nil {
		return Verdict{}, &JudgmentError{Skill: in.Skill, Err: err}
	}
	var v Verdict
	if err := json.Unmarshal(resp.Content, &v); err != nil {
		return Verdict{}, &JudgmentError{Skill: in.Skill, Err: fmt.Errorf("parse verdict: %w", err)}
	}
	return v, nil
}

// VerdictSchema defines the JSON shape of a mastery verdict.
var VerdictSchema = &llm.Schema{
	Name:        "mastery-verdict",
	Description: "Whether the student demonstrated the skill, with a brief rationale",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_mastered": map[string]any{
				"type":        "boolean",
				"description": "True when the responses satisfy the criteria for the student's level",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief explanation of what the student did well or what is missing",
			},
		},
		"required":             []any{"is_mastered", "reasoning"},
		"additionalProperties": false,
	},
}

const judgeSystemPrompt = `You are evaluating whether a secondary school student has demonstrated a historical thinking skill while reading a primary source. Respond only with the requested JSON.`

// criteria describes mastery per proficiency level.
var criteria = map[assignment.Proficiency]string{
	assignment.Beginner: `For BEGINNERS, mastery means:
- About 2-3 responses that show basic understanding
- Student addresses the skill at a basic level (doesn't need to be sophisticated)
- Shows genuine engagement with the source (even if answers are simple)
- Quality bar should be LOW - we want to encourage progress, not perfection`,
	assignment.Intermediate: `For INTERMEDIATE students, mastery means:
- 3-4 substantive responses showing solid understanding
- Student clearly addresses the target skill with some depth
- Shows direct engagement with specific details in the source`,
	assignment.Advanced: `For ADVANCED students, mastery means:
- 4-5 sophisticated responses showing deep understanding
- Student demonstrates nuanced grasp of the skill
- Makes connections and shows critical thinking`,
}

// Criteria returns the mastery criteria for a proficiency level. Unknown
// levels get the advanced criteria.
func Criteria(p assignment.Proficiency) string {
	if c, ok := criteria[p]; ok {
		return c
	}
	return criteria[assignment.Advanced]
}

var judgeTemplate = template.Must(template.New("judge").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Skill: {{.Skill}}
Student proficiency level: {{.Proficiency}}

{{.Criteria}}

Student responses during this skill:
{{range $i, $e := .Evidence}}Response {{inc $i}}: {{$e}}
{{end}}{{if .Excerpt}}
Recent conversation (shows what questions were asked):
{{.Excerpt}}
{{end}}
IMPORTANT:
- Look at the conversation context to see if the student actually ANSWERED the questions asked
- Evaluate based on what the '{{.Skill}}' skill requires
- Don't just count responses - evaluate if they engaged meaningfully with the skill
- Be generous with beginners - if they're trying and showing basic understanding, let them advance`))

func buildJudgePrompt(in Input) (string, error) {
	var buf bytes.Buffer
	err := judgeTemplate.Execute(&buf, struct {
		Input
		Criteria string
	}{in, Criteria(in.Proficiency)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
