// Package dialogue builds the tutor's instructions for each turn and
// turns them into a reply through a language model.
package dialogue

import (
	"fmt"
	"strings"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/reference"
	"github.com/abhisek/histread/internal/session"
)

const rule = "============================================================"

// Composer assembles instruction bundles from the fixed rules, the
// reference materials and a description of the session state. It holds
// no per-session data.
type Composer struct {
	refs reference.Loader
	cfg  Config
}

// NewComposer creates a Composer reading references from refs.
func NewComposer(refs reference.Loader, cfg Config) *Composer {
	if refs == nil {
		refs = reference.Static{}
	}
	return &Composer{refs: refs, cfg: cfg}
}

// Compose implements session.Composer. An index outside the assignment
// yields a *session.ConsistencyError.
func (c *Composer) Compose(a *assignment.Assignment, st session.State, mode session.TurnMode) (string, error) {
	if err := st.Check(a); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(tutorRules)

	if mode != session.ModeWelcome {
		c.writeReferences(&b, a, st)
	}

	fmt.Fprintf(&b, "\n\n%s\nCURRENT SESSION STATE\n%s\n", rule, rule)
	writeState(&b, a, st, mode, c.cfg.WrapUpThreshold)

	return b.String(), nil
}

func (c *Composer) writeReferences(b *strings.Builder, a *assignment.Assignment, st session.State) {
	skills := c.refs.Load(reference.Skills)
	var background string
	if c.includeContext(a, st) {
		background = c.refs.Load(reference.HistoricalContext)
	}
	if skills == "" && background == "" {
		return
	}

	fmt.Fprintf(b, "\n\n===== REFERENCE MATERIAL =====\n%s\n", referenceUsage)
	if skills != "" {
		fmt.Fprintf(b, "\n%s\nHISTORICAL THINKING SKILLS REFERENCE\n%s\n%s\n", rule, rule, skills)
	}
	if background != "" {
		fmt.Fprintf(b, "\n%s\nHISTORICAL CONTEXT REFERENCE\n%s\n%s\n", rule, rule, background)
	}
}

func (c *Composer) includeContext(a *assignment.Assignment, st session.State) bool {
	if c.cfg.ContextPolicy != ContextForSkill {
		return true
	}
	if st.Phase != session.PhaseSourceLoop {
		return false
	}
	skill, _ := a.SkillAt(st.SkillIndex)
	return NeedsContext(skill)
}

// NeedsContext reports whether a skill deals with context or sourcing.
func NeedsContext(skill string) bool {
	s := strings.ToLower(skill)
	return strings.Contains(s, "context") || strings.Contains(s, "sourcing")
}

func writeState(b *strings.Builder, a *assignment.Assignment, st session.State, mode session.TurnMode, wrapUp int) {
	fmt.Fprintf(b, "Topic: %s\n", a.Topic)
	fmt.Fprintf(b, "Guiding Question: %s\n", a.GuidingQuestion)
	fmt.Fprintf(b, "Student Proficiency: %s\n", a.Proficiency)
	fmt.Fprintf(b, "Current Phase: %s\n", st.Phase)

	switch st.Phase {
	case session.PhaseIntro:
		b.WriteString("\n[INTRO PHASE GUIDANCE]\n")
		if mode == session.ModeWelcome {
			b.WriteString("Welcome the student warmly and introduce yourself as their reading guide.\n")
			b.WriteString("Mention the guiding question they will explore.\n")
		} else {
			b.WriteString("Answer the student briefly and keep the guiding question in view.\n")
		}
		b.WriteString("Keep it short and friendly. The student will say when they are ready to begin.\n")

	case session.PhaseSourceLoop:
		writeTask(b, a, st, mode, wrapUp)

	case session.PhaseComplete:
		b.WriteString("\n[ALL SOURCES COMPLETE]\n")
		b.WriteString("The student has completed all sources. Congratulate them.\n")
	}
}

func writeTask(b *strings.Builder, a *assignment.Assignment, st session.State, mode session.TurnMode, wrapUp int) {
	src := a.Sources[st.SourceIndex]
	skill := a.Skills[st.SkillIndex]

	b.WriteString("\n[CURRENT TASK]\n")
	fmt.Fprintf(b, "Source: %d of %d\n", st.SourceIndex+1, len(a.Sources))
	fmt.Fprintf(b, "Skill: %s (skill %d of %d)\n", skill, st.SkillIndex+1, len(a.Skills))
	b.WriteString("\nSource Information:\n")
	fmt.Fprintf(b, "  Title: %s\n", src.Title)
	fmt.Fprintf(b, "  Author: %s\n", src.AuthorOrUnknown())
	fmt.Fprintf(b, "  Year: %s\n", src.YearOrUndated())
	fmt.Fprintf(b, "\nSource Text:\n  \"%s\"\n", src.Text)

	b.WriteString("\n[YOUR TASK]\n")
	switch mode {
	case session.ModeTransition:
		if st.SkillIndex == 0 {
			fmt.Fprintf(b, "You are introducing a NEW source: Source %d.\n", st.SourceIndex+1)
			b.WriteString("Present the source metadata (title, author, year) and ask the student to read the source.\n")
		} else {
			fmt.Fprintf(b, "You are introducing a new skill '%s' for source %d.\n", skill, st.SourceIndex+1)
		}

	case session.ModeBlocked:
		b.WriteString("[ADVANCE NOT YET EARNED]\n")
		fmt.Fprintf(b, "The student asked to move on but has not yet fully shown '%s'.\n", skill)
		b.WriteString("Acknowledge their effort in a few words, then ask ONE focused question that helps them go deeper on this skill.\n")
		b.WriteString("Do not mention that their progress was checked.\n")

	default:
		fmt.Fprintf(b, "Continue guiding through '%s'.\n", skill)
		fmt.Fprintf(b, "Questions asked so far for this skill: %d\n", st.QuestionsAsked)
		if st.QuestionsAsked >= wrapUp {
			b.WriteString("IMPORTANT: The student has likely shown this skill.\n")
			b.WriteString("Acknowledge their effort briefly.\n")
			b.WriteString("If needed, ask AT MOST ONE final, narrow question that can be answered in one sentence.\n")
			b.WriteString("Otherwise, tell them they may continue.\n")
		}
	}
	b.WriteString("The student will ask to continue when ready for the next skill.\n")
}
