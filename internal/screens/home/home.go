package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/router"
	"github.com/abhisek/signcoach/internal/screen"
	"github.com/abhisek/signcoach/internal/screens/learners"
	"github.com/abhisek/signcoach/internal/screens/sessions"
	"github.com/abhisek/signcoach/internal/screens/stats"
	"github.com/abhisek/signcoach/internal/store"
	"github.com/abhisek/signcoach/internal/ui/components"
	"github.com/abhisek/signcoach/internal/ui/theme"
)

// Source is everything the dashboard reads.
type Source interface {
	sessions.Source
	stats.Source
}

type countsMsg struct {
	stats *store.GlobalStats
}

// Screen is the dashboard landing menu.
type Screen struct {
	menu   components.Menu
	counts *store.GlobalStats
	src    Source
}

var _ screen.Screen = (*Screen)(nil)

func New(src Source, config func() difficulty.Configuration) *Screen {
	push := func(mk func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: mk()} }
		}
	}
	items := []components.MenuItem{
		{Label: "SESSIONS", Action: push(func() screen.Screen { return sessions.New(src) })},
		{Label: "LEARNERS", Action: push(func() screen.Screen { return learners.New(src) })},
		{Label: "STATISTICS", Action: push(func() screen.Screen { return stats.New(src, config) })},
		{Label: "QUIT", Action: func() tea.Cmd { return tea.Quit }},
	}
	return &Screen{menu: components.NewMenu(items), src: src}
}

func (h *Screen) Init() tea.Cmd {
	src := h.src
	return func() tea.Msg {
		st, err := src.GlobalStats(context.Background())
		if err != nil {
			return countsMsg{}
		}
		return countsMsg{stats: st}
	}
}

func (h *Screen) Title() string { return "Home" }

func (h *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if m, ok := msg.(countsMsg); ok {
		h.counts = m.stats
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *Screen) View(width, height int) string {
	var sections []string
	sections = append(sections, theme.Title.Width(width).Render("Road sign training"))

	if h.counts != nil {
		sections = append(sections, theme.Subtitle.Width(width).Render(fmt.Sprintf(
			"%d learners · %d sessions · %.0f%% completed",
			h.counts.Learners, h.counts.Sessions, h.counts.CompletionRate*100)))
	}

	menu := theme.Card.Render(strings.TrimRight(h.menu.View(), "\n"))
	sections = append(sections, lipgloss.PlaceHorizontal(width, lipgloss.Center, menu))

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
