package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/ui/theme"
)

// FilterInput is a one-line filter box. It only takes keys while focused.
type FilterInput struct {
	Model textinput.Model
}

// NewFilterInput creates an unfocused filter box.
func NewFilterInput(placeholder string, maxLen int) FilterInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	if maxLen > 0 {
		ti.CharLimit = maxLen
	}
	return FilterInput{Model: ti}
}

// Focus starts taking keys.
func (f *FilterInput) Focus() tea.Cmd {
	return f.Model.Focus()
}

// Blur stops taking keys and keeps the value.
func (f *FilterInput) Blur() {
	f.Model.Blur()
}

func (f FilterInput) Focused() bool {
	return f.Model.Focused()
}

func (f FilterInput) Update(msg tea.Msg) (FilterInput, tea.Cmd) {
	var cmd tea.Cmd
	f.Model, cmd = f.Model.Update(msg)
	return f, cmd
}

func (f FilterInput) View() string {
	style := lipgloss.NewStyle().Foreground(theme.TextDim)
	if f.Focused() {
		style = style.Foreground(theme.Text)
	}
	return style.Render(f.Model.View())
}

// Value is the trimmed, lowercased filter text.
func (f FilterInput) Value() string {
	return strings.ToLower(strings.TrimSpace(f.Model.Value()))
}

// Reset clears the filter.
func (f *FilterInput) Reset() {
	f.Model.SetValue("")
}

// Matches reports whether any field contains the filter text. An empty
// filter matches everything.
func (f FilterInput) Matches(fields ...string) bool {
	q := f.Value()
	if q == "" {
		return true
	}
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
