package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/signcoach/internal/ui/layout"
)

// Screen is one page of the dashboard.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	// View renders the content area, excluding header and footer.
	View(width, height int) string
	Title() string
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}
