// Package assignments is the picker shown when the reading client starts.
package assignments

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/router"
	"github.com/abhisek/histread/internal/screen"
	"github.com/abhisek/histread/internal/ui/components"
	"github.com/abhisek/histread/internal/ui/layout"
	"github.com/abhisek/histread/internal/ui/theme"
)

// Lister returns the assignments available to read.
type Lister interface {
	List(ctx context.Context) ([]*assignment.Assignment, error)
}

// Opener builds the screen for reading one assignment.
type Opener func(a *assignment.Assignment) screen.Screen

type loadedMsg struct {
	Items []*assignment.Assignment
	Err   error
}

// AssignmentsScreen lists assignments and opens the chosen one.
type AssignmentsScreen struct {
	catalog Lister
	open    Opener
	items   []*assignment.Assignment
	menu    components.Menu
	loaded  bool
	errMsg  string
}

var (
	_ screen.Screen          = (*AssignmentsScreen)(nil)
	_ screen.KeyHintProvider = (*AssignmentsScreen)(nil)
	_ screen.StatusProvider  = (*AssignmentsScreen)(nil)
)

// New creates the picker.
func New(catalog Lister, open Opener) *AssignmentsScreen {
	return &AssignmentsScreen{catalog: catalog, open: open}
}

func (s *AssignmentsScreen) Init() tea.Cmd {
	return s.load()
}

func (s *AssignmentsScreen) Title() string {
	return "Assignments"
}

func (s *AssignmentsScreen) Status() string {
	if !s.loaded {
		return ""
	}
	return fmt.Sprintf("%d available", len(s.items))
}

func (s *AssignmentsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Read"},
		{Key: "R", Description: "Reload"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *AssignmentsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.items = msg.Items
		s.menu = components.NewMenu(s.menuItems())
		return s, nil
	case tea.KeyMsg:
		if k := msg.String(); k == "r" || k == "R" {
			return s, s.load()
		}
	}

	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *AssignmentsScreen) load() tea.Cmd {
	return func() tea.Msg {
		items, err := s.catalog.List(context.Background())
		return loadedMsg{Items: items, Err: err}
	}
}

func (s *AssignmentsScreen) menuItems() []components.MenuItem {
	items := make([]components.MenuItem, 0, len(s.items))
	for _, a := range s.items {
		items = append(items, components.MenuItem{
			Label:  a.DisplayTitle(),
			Detail: fmt.Sprintf("%s · %s · %s", plural(len(a.Sources), "source"), plural(len(a.Skills), "skill"), a.Proficiency),
			Action: func() tea.Cmd {
				return router.Push(s.open(a))
			},
		})
	}
	return items
}

func (s *AssignmentsScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render("Choose a reading"))
	b.WriteString("\n\n")

	switch {
	case s.errMsg != "":
		b.WriteString(lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("Could not load assignments: " + s.errMsg))
		return b.String()
	case !s.loaded:
		b.WriteString(theme.Subtitle.Width(width).Render("Loading..."))
		return b.String()
	case len(s.items) == 0:
		b.WriteString(theme.Subtitle.Width(width).Render(
			"No assignments yet.\n\nImport one with: histread assignment import <file.yaml>"))
		return b.String()
	}

	b.WriteString(s.menu.View())

	if item, ok := s.menu.Current(); ok && layout.ShowsDetail(height) {
		a := s.items[s.menu.Selected]
		card := theme.Card.Width(min(width-4, 96)).Render(
			theme.Selected.Render(item.Label) + "\n\n" +
				theme.Hint.Render("Topic: ") + theme.Body.Render(a.Topic) + "\n" +
				theme.Hint.Render("Guiding question: ") + theme.Body.Render(a.GuidingQuestion) + "\n" +
				theme.Hint.Render("Skills: ") + theme.Body.Render(strings.Join(a.Skills, ", ")))
		b.WriteString("\n" + lipgloss.NewStyle().PaddingLeft(2).Render(card))
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
