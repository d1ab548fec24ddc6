package learners

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/router"
	"github.com/abhisek/signcoach/internal/screen"
	"github.com/abhisek/signcoach/internal/screens/sessions"
	"github.com/abhisek/signcoach/internal/store"
	"github.com/abhisek/signcoach/internal/ui/components"
	"github.com/abhisek/signcoach/internal/ui/layout"
	"github.com/abhisek/signcoach/internal/ui/theme"
)

type loadedMsg struct {
	Learners []store.Learner
	Err      error
}

// Screen lists learners; Enter opens that learner's sessions.
type Screen struct {
	src      sessions.Source
	all      []store.Learner
	visible  []store.Learner
	selected int
	filter   components.FilterInput
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(src sessions.Source) *Screen {
	return &Screen{
		src:    src,
		filter: components.NewFilterInput("filter by name or identifier", 64),
	}
}

func (s *Screen) Init() tea.Cmd {
	src := s.src
	return func() tea.Msg {
		ls, err := src.ListLearners(context.Background())
		return loadedMsg{Learners: ls, Err: err}
	}
}

func (s *Screen) Title() string { return "Learners" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Sessions"},
		{Key: "/", Description: "Filter"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.all = msg.Learners
		s.refresh()

	case tea.KeyMsg:
		if s.filter.Focused() {
			switch msg.String() {
			case "esc":
				s.filter.Reset()
				s.filter.Blur()
			case "enter":
				s.filter.Blur()
			default:
				var cmd tea.Cmd
				s.filter, cmd = s.filter.Update(msg)
				s.refresh()
				return s, cmd
			}
			s.refresh()
			return s, nil
		}
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "/":
			return s, s.filter.Focus()
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.visible)-1 {
				s.selected++
			}
		case "enter":
			if len(s.visible) == 0 {
				return s, nil
			}
			l := s.visible[s.selected]
			return s, func() tea.Msg {
				return router.PushScreenMsg{Screen: sessions.ForLearner(s.src, l)}
			}
		}
	}
	return s, nil
}

func (s *Screen) refresh() {
	s.visible = s.visible[:0]
	for _, l := range s.all {
		if s.filter.Matches(l.Name, l.Identifier) {
			s.visible = append(s.visible, l)
		}
	}
	s.selected = min(s.selected, max(len(s.visible)-1, 0))
}

func (s *Screen) View(width, height int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	if s.errMsg != "" {
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error), "\n\nError: "+s.errMsg)
	}
	if !s.loaded {
		return layout.Centered(width, dim, "\n\nLoading learners...")
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.filter.View()))
	b.WriteString("\n\n")
	if len(s.visible) == 0 {
		b.WriteString(layout.Centered(width, dim.Italic(true), "No learners yet. Add one with `signcoach learner add`."))
		return b.String()
	}
	for i, l := range s.visible {
		if i >= max(height-4, 1) {
			break
		}
		prefix, style := "  ", theme.Body
		if i == s.selected {
			prefix, style = "> ", theme.Selected
		}
		line := fmt.Sprintf("%s%-24s %-16s %3d sessions", prefix, l.Name, l.Identifier, l.Sessions)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}
