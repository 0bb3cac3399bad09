package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAdded    = lipgloss.Color("#2CD7C7")
	colorRemoved  = lipgloss.Color("#E74C3C")
	colorModified = lipgloss.Color("#F4D03F")
	colorMuted    = lipgloss.Color("#5C7A84")
	colorTitle    = lipgloss.Color("#20B9B4")
)

// Styles are the lipgloss styles used by human reports.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Added    lipgloss.Style
	Removed  lipgloss.Style
	Modified lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// NewStyles returns colored styles, or unstyled ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Title: plain, Label: plain, Muted: plain,
			Added: plain, Removed: plain, Modified: plain,
			Warning: plain, Error: plain,
		}
	}
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(colorTitle),
		Label:    lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
		Added:    lipgloss.NewStyle().Foreground(colorAdded),
		Removed:  lipgloss.NewStyle().Foreground(colorRemoved),
		Modified: lipgloss.NewStyle().Foreground(colorModified),
		Warning:  lipgloss.NewStyle().Foreground(colorModified).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(colorRemoved).Bold(true),
	}
}

// Rule is a horizontal separator of width characters.
func (s Styles) Rule(width int) string {
	return s.Muted.Render(strings.Repeat("=", width))
}

// Truncate returns at most max items and the number left out. max <= 0 keeps everything.
func Truncate(items []string, max int) ([]string, int) {
	if max <= 0 || len(items) <= max {
		return items, 0
	}
	return items[:max], len(items) - max
}

// More formats the "... and N more" trailer, or "" when nothing was cut.
func More(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("... and %d more", n)
}
