package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/difficulty"
)

// Palette borrowed from road signage.
var (
	Primary   = lipgloss.Color("#F59E0B") // Warning amber
	Secondary = lipgloss.Color("#0EA5E9") // Information blue
	Accent    = lipgloss.Color("#DC2626") // Regulatory red
	Success   = lipgloss.Color("#16A34A") // Guide green
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

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

	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
)

// TierColor maps a difficulty tier to a display color.
func TierColor(t difficulty.Tier) color.Color {
	switch t {
	case difficulty.TierHigh:
		return Accent
	case difficulty.TierMedium:
		return Primary
	default:
		return Success
	}
}
