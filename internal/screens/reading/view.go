package reading

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/histread/internal/session"
	"github.com/abhisek/histread/internal/ui/components"
	"github.com/abhisek/histread/internal/ui/layout"
	"github.com/abhisek/histread/internal/ui/theme"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// quoteLines caps the source excerpt so the conversation stays visible.
const quoteLines = 8

func progressLabel(source, sources, skill, skills int) string {
	return fmt.Sprintf("Source %d/%d  Skill %d/%d", source+1, sources, skill+1, skills)
}

func (s *ReadingScreen) View(width, height int) string {
	if s.errMsg != "" {
		return renderError(width, s.errMsg)
	}
	if s.confirmQuit {
		return renderQuitConfirm(width)
	}

	top := s.renderTask(width)
	if layout.ShowsDetail(height) || s.phase != session.PhaseSourceLoop {
		if q := s.renderSource(width); q != "" {
			top += "\n" + q
		}
	}
	bottom := s.renderPrompt(width)

	room := height - lipgloss.Height(top) - lipgloss.Height(bottom) - 2
	return top + "\n" + s.renderTranscript(width, room) + "\n" + bottom
}

// renderTask is the line naming the current source and skill.
func (s *ReadingScreen) renderTask(width int) string {
	a := s.assignment
	var left string
	switch s.phase {
	case session.PhaseIntro:
		left = "  " + a.Topic
	case session.PhaseComplete:
		left = "  All sources complete"
	default:
		skill, _ := a.SkillAt(s.skillIndex)
		left = fmt.Sprintf("  Skill: %s", skill)
	}
	infoLeft := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(left)

	done := s.sourceIndex*len(a.Skills) + s.skillIndex
	if s.phase == session.PhaseComplete {
		done = len(a.Sources) * len(a.Skills)
	}
	bar := components.NewProgressBar("", components.Fraction(done, len(a.Sources)*len(a.Skills)), true, 24).View()
	if s.phase == session.PhaseSourceLoop && s.questions > 0 {
		bar = theme.Hint.Render(fmt.Sprintf("Q %d  ", s.questions)) + bar
	}

	info := infoLeft
	if pad := width - lipgloss.Width(infoLeft) - lipgloss.Width(bar) - 4; pad > 0 {
		info += strings.Repeat(" ", pad) + bar
	}

	rule := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0)))
	return info + "\n" + rule
}

// renderSource shows the guiding question during the introduction and
// the current document while reading.
func (s *ReadingScreen) renderSource(width int) string {
	a := s.assignment
	inner := max(width-8, 20)
	switch s.phase {
	case session.PhaseIntro:
		return lipgloss.NewStyle().Width(inner).PaddingLeft(2).Render(
			theme.Hint.Render("Guiding question: ") + theme.Body.Render(a.GuidingQuestion))
	case session.PhaseSourceLoop:
		src, ok := a.SourceAt(s.sourceIndex)
		if !ok {
			return ""
		}
		heading := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
			Render(fmt.Sprintf("  %s", src.Title)) +
			theme.Hint.Render(fmt.Sprintf("  %s, %s", src.AuthorOrUnknown(), src.YearOrUndated()))
		quote := theme.Quote.Width(inner).MarginLeft(2).Render(src.Text)
		return heading + "\n" + clipLines(quote, quoteLines)
	}
	return ""
}

// renderTranscript shows as many of the latest lines as fit.
func (s *ReadingScreen) renderTranscript(width, room int) string {
	if room <= 0 {
		return ""
	}
	wrap := lipgloss.NewStyle().Width(max(width-6, 20)).PaddingLeft(2)

	var rendered []string
	for _, l := range s.transcript {
		var text string
		switch l.who {
		case speakerTutor:
			text = theme.Tutor.Render("Tutor: ") + theme.Body.Render(l.text)
		case speakerStudent:
			text = theme.Student.Render("You: ") + theme.Body.Render(l.text)
		default:
			text = theme.Hint.Render("· " + l.text)
		}
		rendered = append(rendered, strings.Split(wrap.Render(text), "\n")...)
		rendered = append(rendered, "")
	}
	if len(rendered) > room {
		rendered = rendered[len(rendered)-room:]
	}
	return strings.Join(rendered, "\n")
}

// renderPrompt is the notice area and the input line.
func (s *ReadingScreen) renderPrompt(width int) string {
	var b strings.Builder
	if s.notice != "" {
		b.WriteString("  " + theme.Notice.Render(s.notice) + "\n")
	}
	switch {
	case s.busy:
		b.WriteString("  " + lipgloss.NewStyle().Foreground(theme.Secondary).
			Render(spinnerFrames[s.spin%len(spinnerFrames)]+" The tutor is thinking..."))
	case s.phase == session.PhaseComplete:
		b.WriteString("  " + theme.Notice.Render("You have finished every source. Well done."))
	default:
		b.WriteString("  " + s.input.View())
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n" + theme.Hint.Render("    ...")
}

func renderQuitConfirm(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Render("\n\n\n  Leave this reading?\n\n  Your progress so far is saved.\n\n  Y to leave, N to stay")
}

func renderError(width int, errMsg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\n  Error: %s\n\n  Press any key to go back.", errMsg))
}
