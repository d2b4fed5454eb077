package reading

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/dialogue"
	"github.com/abhisek/histread/internal/router"
	"github.com/abhisek/histread/internal/screen"
	"github.com/abhisek/histread/internal/session"
)

type fakeEngine struct {
	beginErr  error
	submit    []*session.SubmitResult
	submitErr error
	advance   []*session.AdvanceResult
	advErr    error
	texts     []string
}

func (f *fakeEngine) Begin(_ context.Context, id string) (*session.BeginResult, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &session.BeginResult{
		SessionID:      "sess-1",
		WelcomeMessage: "Welcome! What do you already know about the Stamp Act?",
		TotalSources:   2,
		TotalSkills:    2,
	}, nil
}

func (f *fakeEngine) Submit(_ context.Context, sessionID, text string) (*session.SubmitResult, error) {
	f.texts = append(f.texts, text)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	res := f.submit[0]
	f.submit = f.submit[1:]
	return res, nil
}

func (f *fakeEngine) Advance(_ context.Context, sessionID string) (*session.AdvanceResult, error) {
	if f.advErr != nil {
		return nil, f.advErr
	}
	res := f.advance[0]
	f.advance = f.advance[1:]
	return res, nil
}

func testAssignment() *assignment.Assignment {
	return &assignment.Assignment{
		ID:              "stamp-act",
		Title:           "Colonial Protest",
		Topic:           "The Stamp Act",
		GuidingQuestion: "Why did colonists resist the Stamp Act?",
		Proficiency:     assignment.Beginner,
		Skills:          []string{"Sourcing", "Close reading"},
		Sources: []assignment.Source{
			{Title: "Resolutions of the Stamp Act Congress", Year: "1765", Text: "That his Majesty's subjects in these colonies..."},
			{Title: "Letter from a Farmer", Author: "John Dickinson", Text: "My dear countrymen..."},
		},
	}
}

func intp(i int) *int { return &i }

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func ctrlN() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: 'n', Mod: tea.ModCtrl}
}

// run executes cmd and any batched commands, dropping spinner ticks.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if _, ok := msg.(spinnerTickMsg); ok {
		return nil
	}
	return []tea.Msg{msg}
}

// deliver feeds every message produced by cmd back into s.
func deliver(t *testing.T, s *ReadingScreen, cmd tea.Cmd) *ReadingScreen {
	t.Helper()
	var scr screen.Screen = s
	for _, msg := range run(cmd) {
		switch msg.(type) {
		case begunMsg, repliedMsg, advancedMsg:
			scr, _ = scr.Update(msg)
		}
	}
	return scr.(*ReadingScreen)
}

func started(t *testing.T, eng *fakeEngine) *ReadingScreen {
	t.Helper()
	s := New(eng, testAssignment(), 0)
	s = deliver(t, s, s.Init())
	if s.sessionID != "sess-1" {
		t.Fatalf("sessionID = %q, want sess-1", s.sessionID)
	}
	return s
}

func typeText(s *ReadingScreen, text string) {
	s.input.Model.SetValue(text)
}

func press(t *testing.T, s *ReadingScreen, msg tea.KeyPressMsg) (*ReadingScreen, tea.Cmd) {
	t.Helper()
	scr, cmd := s.Update(msg)
	return scr.(*ReadingScreen), cmd
}

func TestReadingScreen_Begin(t *testing.T) {
	s := started(t, &fakeEngine{})

	if s.busy {
		t.Error("expected not busy after begin")
	}
	if len(s.transcript) != 1 || s.transcript[0].who != speakerTutor {
		t.Fatalf("transcript = %+v, want one tutor line", s.transcript)
	}
	if s.Status() != "Introduction" {
		t.Errorf("Status = %q, want Introduction", s.Status())
	}
	if s.Title() != "Colonial Protest" {
		t.Errorf("Title = %q", s.Title())
	}
	if !strings.Contains(s.View(100, 30), "Guiding question") {
		t.Error("intro view should show the guiding question")
	}
}

func TestReadingScreen_SendAndReply(t *testing.T) {
	eng := &fakeEngine{submit: []*session.SubmitResult{
		{Reply: "Who wrote it?", Phase: session.PhaseSourceLoop, QuestionsAsked: 3},
	}}
	s := started(t, eng)

	typeText(s, "  colonists were angry  ")
	s, cmd := press(t, s, specialKey(tea.KeyEnter))
	if !s.busy {
		t.Error("expected busy while the turn is in flight")
	}
	if s.input.Value() != "" {
		t.Errorf("input = %q, want cleared", s.input.Value())
	}

	s = deliver(t, s, cmd)
	if len(eng.texts) != 1 || eng.texts[0] != "colonists were angry" {
		t.Errorf("submitted %v", eng.texts)
	}
	if n := len(s.transcript); n != 3 || s.transcript[1].who != speakerStudent || s.transcript[2].text != "Who wrote it?" {
		t.Errorf("transcript = %+v", s.transcript)
	}
	if s.questions != 3 {
		t.Errorf("questions = %d, want 3", s.questions)
	}
}

func TestReadingScreen_EmptyEnterIgnored(t *testing.T) {
	eng := &fakeEngine{}
	s := started(t, eng)

	s, cmd := press(t, s, specialKey(tea.KeyEnter))
	if cmd != nil || s.busy {
		t.Error("blank input should not start a turn")
	}
}

func TestReadingScreen_FailedReplyRestoresInput(t *testing.T) {
	eng := &fakeEngine{submitErr: &dialogue.GenerationError{Err: errors.New("boom")}}
	s := started(t, eng)

	typeText(s, "the king")
	s, cmd := press(t, s, specialKey(tea.KeyEnter))
	s = deliver(t, s, cmd)

	if s.input.Value() != "the king" {
		t.Errorf("input = %q, want restored text", s.input.Value())
	}
	if len(s.transcript) != 1 {
		t.Errorf("transcript has %d lines, want only the welcome", len(s.transcript))
	}
	if s.notice != retryMessage {
		t.Errorf("notice = %q", s.notice)
	}
	if s.errMsg != "" {
		t.Errorf("generation failure should not be fatal: %q", s.errMsg)
	}
}

func TestReadingScreen_CommitFailureKeepsReply(t *testing.T) {
	eng := &fakeEngine{submitErr: &session.CommitError{SessionID: "sess-1", Output: "Look at the date.", Err: errors.New("disk full")}}
	s := started(t, eng)

	typeText(s, "1765")
	s, cmd := press(t, s, specialKey(tea.KeyEnter))
	s = deliver(t, s, cmd)

	last := s.transcript[len(s.transcript)-1]
	if last.text != "Look at the date." {
		t.Errorf("last line = %q, want the unsaved reply", last.text)
	}
	if !strings.Contains(s.notice, "could not be saved") {
		t.Errorf("notice = %q", s.notice)
	}
}

func TestReadingScreen_AdvanceFlow(t *testing.T) {
	eng := &fakeEngine{advance: []*session.AdvanceResult{
		{Reply: "Let's read the first source.", NextPhase: session.PhaseSourceLoop, CurrentSkill: "Sourcing", SourceIndex: intp(0), SkillIndex: intp(0)},
		{Blocked: true, Reply: "Before moving on, who wrote this?", NextPhase: session.PhaseSourceLoop},
		{Reply: "Now read closely.", NextPhase: session.PhaseSourceLoop, CurrentSkill: "Close reading", PreviousSkill: "Sourcing", SkillIndex: intp(1)},
	}}
	s := started(t, eng)

	s, cmd := press(t, s, ctrlN())
	s = deliver(t, s, cmd)
	if s.phase != session.PhaseSourceLoop {
		t.Fatalf("phase = %q, want source_loop", s.phase)
	}
	if got := s.Status(); got != "Source 1/2  Skill 1/2" {
		t.Errorf("Status = %q", got)
	}
	if !strings.Contains(s.View(100, 40), "Resolutions of the Stamp Act Congress") {
		t.Error("reading view should show the current source")
	}

	s, cmd = press(t, s, ctrlN())
	s = deliver(t, s, cmd)
	if s.notice == "" {
		t.Error("expected a notice when advance is blocked")
	}
	if s.skillIndex != 0 {
		t.Errorf("skillIndex = %d, want 0 after block", s.skillIndex)
	}

	s, cmd = press(t, s, ctrlN())
	s = deliver(t, s, cmd)
	if s.skillIndex != 1 || s.notice != "" {
		t.Errorf("skillIndex = %d notice = %q", s.skillIndex, s.notice)
	}
	if got := s.Status(); got != "Source 1/2  Skill 2/2" {
		t.Errorf("Status = %q", got)
	}
}

func TestReadingScreen_Complete(t *testing.T) {
	eng := &fakeEngine{advance: []*session.AdvanceResult{
		{Reply: "You finished every source.", NextPhase: session.PhaseComplete, Complete: true},
	}}
	s := started(t, eng)
	s.phase = session.PhaseSourceLoop

	s, cmd := press(t, s, ctrlN())
	s = deliver(t, s, cmd)
	if s.phase != session.PhaseComplete || s.Status() != "Complete" {
		t.Fatalf("phase = %q status = %q", s.phase, s.Status())
	}
	if s.CapturesEsc() {
		t.Error("a finished session should let Esc go back")
	}

	_, cmd = press(t, s, keyPress('r'))
	if cmd == nil {
		t.Fatal("expected a command for read again")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("cmd() = %T, want ReplaceScreenMsg", cmd())
	}
	if again := msg.Screen.(*ReadingScreen); again.sessionID != "" {
		t.Error("read again should start a new session")
	}

	_, cmd = press(t, s, specialKey(tea.KeyEnter))
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("enter on a finished session should go back")
	}
}

func TestReadingScreen_BeginFailureIsFatal(t *testing.T) {
	eng := &fakeEngine{beginErr: &session.NotFoundError{Kind: "assignment", ID: "stamp-act"}}
	s := New(eng, testAssignment(), 0)
	s = deliver(t, s, s.Init())

	if s.errMsg == "" {
		t.Fatal("expected an error message")
	}
	if !strings.Contains(s.View(80, 24), "not found") {
		t.Error("error view should explain the failure")
	}
	_, cmd := press(t, s, keyPress('x'))
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("any key should go back from an error")
	}
}

func TestReadingScreen_BusyRetryable(t *testing.T) {
	eng := &fakeEngine{advErr: session.ErrBusy}
	s := started(t, eng)

	s, cmd := press(t, s, ctrlN())
	s = deliver(t, s, cmd)
	if s.errMsg != "" || !strings.Contains(s.notice, "in progress") {
		t.Errorf("errMsg = %q notice = %q", s.errMsg, s.notice)
	}
	if len(s.transcript) != 1 {
		t.Errorf("transcript has %d lines, want the advance note removed", len(s.transcript))
	}
}

func TestReadingScreen_LeaveConfirm(t *testing.T) {
	s := started(t, &fakeEngine{})

	s, _ = press(t, s, specialKey(tea.KeyEscape))
	if !s.confirmQuit {
		t.Fatal("expected leave confirmation")
	}
	if !strings.Contains(s.View(80, 24), "Leave this reading?") {
		t.Error("confirmation view missing")
	}

	s, _ = press(t, s, keyPress('n'))
	if s.confirmQuit {
		t.Error("expected confirmation to be dismissed")
	}

	s, _ = press(t, s, specialKey(tea.KeyEscape))
	_, cmd := press(t, s, keyPress('y'))
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("confirming should leave the screen")
	}
}

func TestReadingScreen_KeysIgnoredWhileBusy(t *testing.T) {
	eng := &fakeEngine{}
	s := New(eng, testAssignment(), 0)
	s.Init()

	s, cmd := press(t, s, ctrlN())
	if cmd != nil {
		t.Error("advance should be ignored while beginning")
	}
	if !strings.Contains(s.View(80, 24), "thinking") {
		t.Error("busy view should show the waiting indicator")
	}
}
