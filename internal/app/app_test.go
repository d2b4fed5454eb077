package app

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/histread/internal/router"
	"github.com/abhisek/histread/internal/screen"
	"github.com/abhisek/histread/internal/ui/layout"
)

type stubScreen struct {
	title    string
	status   string
	captures bool
	keys     []string
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		s.keys = append(s.keys, k.String())
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string { return "body of " + s.title }
func (s *stubScreen) Title() string        { return s.title }
func (s *stubScreen) Status() string       { return s.status }
func (s *stubScreen) CapturesEsc() bool    { return s.captures }
func (s *stubScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Ctrl+N", Description: "Next skill"}}
}

func sized(m AppModel) AppModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(AppModel)
}

func TestView_HeaderAndFooter(t *testing.T) {
	m := sized(New(&stubScreen{title: "Assignments", status: "2 available"}))
	m.router.Push(&stubScreen{title: "Colonial Protest", status: "Source 1/2  Skill 1/2"})

	content := m.frame()
	for _, want := range []string{"histread", "Assignments › Colonial Protest", "Source 1/2", "Next skill", "body of Colonial Protest"} {
		if !strings.Contains(content, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_TooSmall(t *testing.T) {
	m := New(&stubScreen{title: "Assignments"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if !strings.Contains(next.(AppModel).frame(), "Terminal too small") {
		t.Error("expected the minimum size message")
	}
}

func TestEsc_PopsUnlessCaptured(t *testing.T) {
	m := sized(New(&stubScreen{title: "Assignments"}))
	reading := &stubScreen{title: "Reading", captures: true}
	m.router.Push(reading)

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd != nil {
		t.Error("captured Esc should not pop")
	}
	if len(reading.keys) != 1 || reading.keys[0] != "esc" {
		t.Errorf("screen keys = %v, want [esc]", reading.keys)
	}

	reading.captures = false
	_, cmd = m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected a pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Errorf("cmd() = %T, want PopScreenMsg", cmd())
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := sized(New(&stubScreen{title: "Assignments"}))
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
	}
}
