// Package layout draws the frame around every screen: a header with the
// breadcrumb trail and status, the screen body, and a footer of key hints.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/histread/internal/ui/theme"
)

const (
	MinWidth  = 80
	MinHeight = 24

	HeaderHeight = 3
	FooterHeight = 3

	// DetailHeight is the body height below which screens drop their
	// secondary panels (source text, assignment card).
	DetailHeight = 24

	crumbSep = " › "
	hintSep  = "   "
)

// KeyHint is one key binding shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// IsTooSmall reports whether the terminal is below the minimum size.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// ShowsDetail reports whether a body of the given height has room for
// secondary panels.
func ShowsDetail(bodyHeight int) bool {
	return bodyHeight >= DetailHeight
}

// RenderMinSizeMessage asks the reader to enlarge the terminal.
func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.Text).
		Width(width).
		Height(height).
		Render(fmt.Sprintf("The reading room needs at least %d x %d.\n\nThis terminal is %d x %d.",
			MinWidth, MinHeight, width, height))
}

// RenderHeader draws the app name, the breadcrumb trail and a status
// line. When the trail does not fit, the oldest crumbs are replaced by
// an ellipsis so the current screen stays visible.
func RenderHeader(crumbs []string, status string, width int) string {
	name := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  histread")
	right := lipgloss.NewStyle().Foreground(theme.Accent).Render(status)

	inner := max(width-4, 0)
	room := inner - lipgloss.Width(name) - lipgloss.Width(right) - 4
	trail := lipgloss.NewStyle().Foreground(theme.Text).Render(fitTrail(crumbs, room))

	gap := max(inner-lipgloss.Width(name)-lipgloss.Width(trail)-lipgloss.Width(right)-2, 1)
	content := name + "  " + trail + strings.Repeat(" ", gap) + right

	return bar(width).Render(content)
}

func fitTrail(crumbs []string, room int) string {
	trail := strings.Join(crumbs, crumbSep)
	for len(crumbs) > 1 && lipgloss.Width(trail) > room {
		crumbs = crumbs[1:]
		trail = "…" + crumbSep + strings.Join(crumbs, crumbSep)
	}
	return trail
}

// RenderFooter draws as many key hints as fit in width, in order.
func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	room := max(width-6, 0)
	var b strings.Builder
	b.WriteString("  ")
	used := 0
	for i, h := range hints {
		part := key.Render(h.Key) + " " + desc.Render(h.Description)
		w := lipgloss.Width(part)
		if i > 0 {
			w += len(hintSep)
		}
		if used+w > room {
			break
		}
		if i > 0 {
			b.WriteString(hintSep)
		}
		b.WriteString(part)
		used += w
	}
	return bar(width).Render(b.String())
}

// BodyHeight is the height left for a screen between header and footer.
func BodyHeight(height int) int {
	return max(height-HeaderHeight-FooterHeight, 0)
}

// RenderFrame stacks header, body and footer, padding the body to fill
// the terminal.
func RenderFrame(header, body, footer string, width, height int) string {
	bodyHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body = lipgloss.NewStyle().Width(width).Height(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func bar(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)
}
