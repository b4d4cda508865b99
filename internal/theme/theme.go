package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/eminus-watch/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// OKStyle and FailStyle mark delivery outcomes.
var (
	OKStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	FailStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	WarnStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorYellow)
)

// CategoryStyle returns a color-coded style for a notification category.
func CategoryStyle(category model.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch category {
	case model.CategoryNewItem:
		return base.Foreground(ColorBlue)
	case model.CategoryReminder:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// OutcomeLabel renders a delivered/failed marker.
func OutcomeLabel(delivered bool) string {
	if delivered {
		return OKStyle.Render("sent")
	}
	return FailStyle.Render("failed")
}
