package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/histread/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with histread styling. It holds a
// single student utterance until it is taken.
type TextInput struct {
	Model textinput.Model
	Limit int
}

// NewTextInput creates a new focused text input. A positive limit caps
// the number of characters accepted.
func NewTextInput(placeholder string, limit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.Focus()

	if limit > 0 {
		ti.CharLimit = limit
	}

	return TextInput{
		Model: ti,
		Limit: limit,
	}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. Input is ignored while blurred.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if !t.Model.Focused() {
		return t, nil
	}
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the text input.
func (t TextInput) View() string {
	view := t.Model.View()
	if !t.Model.Focused() {
		view = lipgloss.NewStyle().Foreground(theme.TextDim).Render(view)
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// Take returns the trimmed value and clears the input. The second
// result is false when there is nothing to send.
func (t *TextInput) Take() (string, bool) {
	v := strings.TrimSpace(t.Model.Value())
	if v == "" {
		return "", false
	}
	t.Model.Reset()
	return v, true
}

// Focus enables input.
func (t *TextInput) Focus() tea.Cmd {
	return t.Model.Focus()
}

// Blur disables input, e.g. while a turn is in flight.
func (t *TextInput) Blur() {
	t.Model.Blur()
}
