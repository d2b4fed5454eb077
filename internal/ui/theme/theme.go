package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette, archival tones with enough contrast for long reading.
var (
	Primary   = lipgloss.Color("#B45309") // Amber ink
	Secondary = lipgloss.Color("#0E7490") // Archive teal
	Accent    = lipgloss.Color("#CA8A04") // Gilt
	Error     = lipgloss.Color("#DC2626") // Red
	Text      = lipgloss.Color("#F5F0E6") // Parchment
	TextDim   = lipgloss.Color("#A8A29E") // Stone
	BgCard    = lipgloss.Color("#292524") // Warm slate
	Border    = lipgloss.Color("#44403C") // Stone border
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	// Quote renders primary source text.
	Quote = lipgloss.NewStyle().
		Foreground(Text).
		Italic(true).
		BorderLeft(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Accent).
		PaddingLeft(1)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// Transcript speakers
var (
	Tutor = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	Student = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Notice = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)
