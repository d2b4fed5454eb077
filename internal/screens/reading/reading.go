// Package reading is the terminal screen for one guided reading session.
package reading

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/dialogue"
	"github.com/abhisek/histread/internal/mastery"
	"github.com/abhisek/histread/internal/router"
	"github.com/abhisek/histread/internal/screen"
	"github.com/abhisek/histread/internal/session"
	"github.com/abhisek/histread/internal/store"
	"github.com/abhisek/histread/internal/ui/components"
	"github.com/abhisek/histread/internal/ui/layout"
)

const (
	retryMessage = "The tutor is unavailable right now. Please try again."
	inputLimit   = 8000
	spinnerEvery = 100 * time.Millisecond
)

// Engine is the part of session.Engine the screen drives.
type Engine interface {
	Begin(ctx context.Context, assignmentID string) (*session.BeginResult, error)
	Submit(ctx context.Context, sessionID, text string) (*session.SubmitResult, error)
	Advance(ctx context.Context, sessionID string) (*session.AdvanceResult, error)
}

type speaker int

const (
	speakerTutor speaker = iota
	speakerStudent
	speakerNote
)

type line struct {
	who  speaker
	text string
}

// ReadingScreen implements screen.Screen for an active reading session.
type ReadingScreen struct {
	engine     Engine
	assignment *assignment.Assignment
	timeout    time.Duration

	sessionID   string
	phase       session.Phase
	sourceIndex int
	skillIndex  int
	questions   int

	transcript []line
	input      components.TextInput
	busy       bool
	spin       int

	notice      string
	errMsg      string
	confirmQuit bool
}

var (
	_ screen.Screen          = (*ReadingScreen)(nil)
	_ screen.KeyHintProvider = (*ReadingScreen)(nil)
	_ screen.StatusProvider  = (*ReadingScreen)(nil)
	_ screen.InputCapturer   = (*ReadingScreen)(nil)
)

// New creates a screen that begins a fresh session for a when pushed. A
// positive timeout bounds each turn.
func New(engine Engine, a *assignment.Assignment, timeout time.Duration) *ReadingScreen {
	s := &ReadingScreen{
		engine:     engine,
		assignment: a,
		timeout:    timeout,
		phase:      session.PhaseIntro,
		input:      components.NewTextInput("Share what you notice...", inputLimit),
	}
	s.input.Blur()
	return s
}

func (s *ReadingScreen) Init() tea.Cmd {
	s.busy = true
	return tea.Batch(s.begin(), s.tick())
}

func (s *ReadingScreen) Title() string {
	return s.assignment.DisplayTitle()
}

// Status reports progress through the assignment.
func (s *ReadingScreen) Status() string {
	switch s.phase {
	case session.PhaseIntro:
		return "Introduction"
	case session.PhaseComplete:
		return "Complete"
	}
	return progressLabel(s.sourceIndex, len(s.assignment.Sources), s.skillIndex, len(s.assignment.Skills))
}

// CapturesEsc keeps Esc for the leave confirmation while a session runs.
func (s *ReadingScreen) CapturesEsc() bool {
	return s.errMsg == "" && s.phase != session.PhaseComplete
}

func (s *ReadingScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	case s.confirmQuit:
		return []layout.KeyHint{
			{Key: "Y", Description: "Leave"},
			{Key: "N", Description: "Stay"},
		}
	case s.phase == session.PhaseComplete:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Assignments"},
			{Key: "R", Description: "Read again"},
		}
	case s.phase == session.PhaseIntro:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Send"},
			{Key: "Ctrl+N", Description: "Begin reading"},
			{Key: "Esc", Description: "Leave"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Ctrl+N", Description: "Next skill"},
		{Key: "Esc", Description: "Leave"},
	}
}

func (s *ReadingScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case begunMsg:
		return s.handleBegun(msg)
	case repliedMsg:
		return s.handleReplied(msg)
	case advancedMsg:
		return s.handleAdvanced(msg)
	case spinnerTickMsg:
		if !s.busy {
			return s, nil
		}
		s.spin++
		return s, s.tick()
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ReadingScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		return s, router.Pop()
	}

	if s.confirmQuit {
		switch key {
		case "y", "Y":
			s.confirmQuit = false
			return s, router.Pop()
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}

	if s.phase == session.PhaseComplete {
		switch key {
		case "enter", "esc":
			return s, router.Pop()
		case "r", "R":
			again := New(s.engine, s.assignment, s.timeout)
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: again} }
		}
		return s, nil
	}

	if key == "esc" {
		s.confirmQuit = true
		return s, nil
	}
	if s.busy {
		return s, nil
	}

	switch key {
	case "enter":
		return s.send()
	case "ctrl+n":
		return s.advance()
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ReadingScreen) send() (screen.Screen, tea.Cmd) {
	text, ok := s.input.Take()
	if !ok {
		return s, nil
	}
	s.transcript = append(s.transcript, line{who: speakerStudent, text: text})
	s.startTurn()
	id := s.sessionID
	return s, tea.Batch(func() tea.Msg {
		ctx, cancel := s.context()
		defer cancel()
		res, err := s.engine.Submit(ctx, id, text)
		return repliedMsg{Text: text, Result: res, Err: err}
	}, s.tick())
}

func (s *ReadingScreen) advance() (screen.Screen, tea.Cmd) {
	note := "You asked to move on."
	if s.phase == session.PhaseIntro {
		note = "You are ready to begin."
	}
	s.transcript = append(s.transcript, line{who: speakerNote, text: note})
	s.startTurn()
	id := s.sessionID
	return s, tea.Batch(func() tea.Msg {
		ctx, cancel := s.context()
		defer cancel()
		res, err := s.engine.Advance(ctx, id)
		return advancedMsg{Result: res, Err: err}
	}, s.tick())
}

func (s *ReadingScreen) begin() tea.Cmd {
	id := s.assignment.ID
	return func() tea.Msg {
		ctx, cancel := s.context()
		defer cancel()
		res, err := s.engine.Begin(ctx, id)
		return begunMsg{Result: res, Err: err}
	}
}

func (s *ReadingScreen) handleBegun(msg begunMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		s.fail(msg.Err, true)
		return s, nil
	}
	s.sessionID = msg.Result.SessionID
	s.transcript = append(s.transcript, line{who: speakerTutor, text: msg.Result.WelcomeMessage})
	return s, s.input.Focus()
}

func (s *ReadingScreen) handleReplied(msg repliedMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		if !s.fail(msg.Err, false) {
			// Nothing was recorded, so give the words back.
			s.transcript = s.transcript[:len(s.transcript)-1]
			s.input.Model.SetValue(msg.Text)
		}
		return s, s.input.Focus()
	}
	res := msg.Result
	s.transcript = append(s.transcript, line{who: speakerTutor, text: res.Reply})
	s.phase = res.Phase
	s.sourceIndex = res.SourceIndex
	s.skillIndex = res.SkillIndex
	s.questions = res.QuestionsAsked
	return s, s.input.Focus()
}

func (s *ReadingScreen) handleAdvanced(msg advancedMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		if !s.fail(msg.Err, false) {
			s.transcript = s.transcript[:len(s.transcript)-1]
		}
		return s, s.input.Focus()
	}
	res := msg.Result
	if res.Blocked {
		s.notice = "Not yet. Keep working on this skill with your tutor."
		s.transcript = append(s.transcript, line{who: speakerTutor, text: res.Reply})
		return s, s.input.Focus()
	}

	s.phase = res.NextPhase
	if res.SourceIndex != nil {
		s.sourceIndex = *res.SourceIndex
	}
	if res.SkillIndex != nil {
		s.skillIndex = *res.SkillIndex
	}
	s.questions = 0
	if res.Complete {
		s.transcript = append(s.transcript, line{who: speakerTutor, text: res.Reply})
		s.input.Blur()
		return s, nil
	}
	if res.CurrentSkill != "" {
		s.transcript = append(s.transcript, line{who: speakerNote, text: "Now: " + res.CurrentSkill})
	}
	s.transcript = append(s.transcript, line{who: speakerTutor, text: res.Reply})
	return s, s.input.Focus()
}

func (s *ReadingScreen) startTurn() {
	s.busy = true
	s.notice = ""
	s.input.Blur()
}

// fail records err for display. It reports whether the turn was still
// recorded in some form, which is only true for a reply that was
// generated but could not be saved.
func (s *ReadingScreen) fail(err error, fatal bool) bool {
	var (
		commit      *session.CommitError
		notFound    *session.NotFoundError
		consistency *session.ConsistencyError
		generation  *dialogue.GenerationError
		judgment    *mastery.JudgmentError
	)
	switch {
	case errors.As(err, &commit) && fatal:
		s.errMsg = "The session could not be saved."
	case errors.As(err, &commit):
		s.transcript = append(s.transcript, line{who: speakerTutor, text: commit.Output})
		s.notice = "That reply could not be saved. Please send your next message again."
		return true
	case errors.As(err, &notFound), errors.As(err, &consistency):
		s.errMsg = err.Error()
	case errors.Is(err, session.ErrBusy), errors.Is(err, store.ErrConflict):
		s.notice = "Another turn is still in progress. Try again in a moment."
	case errors.As(err, &generation), errors.As(err, &judgment), errors.Is(err, context.DeadlineExceeded):
		s.notice = retryMessage
	default:
		s.errMsg = err.Error()
	}
	if fatal && s.errMsg == "" {
		s.errMsg = s.notice
	}
	return false
}

func (s *ReadingScreen) context() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(context.Background(), s.timeout)
	}
	return context.WithCancel(context.Background())
}

func (s *ReadingScreen) tick() tea.Cmd {
	return tea.Tick(spinnerEvery, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}
