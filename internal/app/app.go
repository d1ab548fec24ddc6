// Package app hosts the terminal dashboard.
package app

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/router"
	"github.com/abhisek/signcoach/internal/screen"
	"github.com/abhisek/signcoach/internal/screens/home"
	"github.com/abhisek/signcoach/internal/ui/layout"
)

// Options wires the dashboard.
type Options struct {
	Store  home.Source
	Config *difficulty.Active
	// ModelAvailable is shown in the header.
	ModelAvailable bool
}

// Model is the root Bubble Tea model.
type Model struct {
	router *router.Router
	opts   Options
	width  int
	height int
}

func newModel(opts Options) Model {
	return Model{
		router: router.New(home.New(opts.Store, opts.Config.Current)),
		opts:   opts,
	}
}

func (m Model) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, m.router.Update(msg)
}

func (m Model) status() string {
	model := "rule-based"
	if m.opts.ModelAvailable {
		model = "model"
	}
	return m.opts.Config.Current().Name + " · " + model
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	header := layout.RenderHeader(active.Title(), m.status(), m.width)

	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if p, ok := active.(screen.KeyHintProvider); ok {
		hints = p.KeyHints()
	}
	footer := layout.RenderFooter(hints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the dashboard and blocks until it exits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newModel(opts), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
