package sessions

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/report"
	"github.com/abhisek/signcoach/internal/router"
	"github.com/abhisek/signcoach/internal/screen"
	"github.com/abhisek/signcoach/internal/screens/sessionreport"
	"github.com/abhisek/signcoach/internal/store"
	"github.com/abhisek/signcoach/internal/ui/components"
	"github.com/abhisek/signcoach/internal/ui/layout"
	"github.com/abhisek/signcoach/internal/ui/theme"
)

const listLimit = 200

// Source is what the session list reads.
type Source interface {
	report.Source
	ListSessions(ctx context.Context, f store.SessionFilter) ([]store.Session, error)
	ListLearners(ctx context.Context) ([]store.Learner, error)
}

type loadedMsg struct {
	Sessions []store.Session
	Names    map[int64]string
	Err      error
}

// Screen lists sessions newest first with a text filter over session id,
// learner name and status.
type Screen struct {
	src       Source
	learnerID *int64
	title     string

	all           []store.Session
	names         map[int64]string
	visible       []store.Session
	selected      int
	completedOnly bool
	filter        components.FilterInput
	loaded        bool
	errMsg        string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(src Source) *Screen {
	return &Screen{
		src:    src,
		title:  "Sessions",
		filter: components.NewFilterInput("filter by id, learner or status", 64),
	}
}

// ForLearner lists only one learner's sessions.
func ForLearner(src Source, learner store.Learner) *Screen {
	s := New(src)
	id := learner.ID
	s.learnerID = &id
	s.title = "Sessions · " + learner.Name
	return s
}

func (s *Screen) Init() tea.Cmd {
	src, learnerID := s.src, s.learnerID
	return func() tea.Msg {
		ctx := context.Background()
		list, err := src.ListSessions(ctx, store.SessionFilter{LearnerID: learnerID, Limit: listLimit})
		if err != nil {
			return loadedMsg{Err: err}
		}
		names := make(map[int64]string)
		if learners, err := src.ListLearners(ctx); err == nil {
			for _, l := range learners {
				names[l.ID] = l.Name
			}
		}
		return loadedMsg{Sessions: list, Names: names}
	}
}

func (s *Screen) Title() string { return s.title }

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.filter.Focused() {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
			{Key: "Esc", Description: "Clear"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Report"},
		{Key: "/", Description: "Filter"},
		{Key: "c", Description: "Completed only"},
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
		s.all, s.names = msg.Sessions, msg.Names
		s.refresh()
		return s, nil

	case tea.KeyMsg:
		if s.filter.Focused() {
			return s, s.updateFilter(msg)
		}
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "/":
			return s, s.filter.Focus()
		case "c":
			s.completedOnly = !s.completedOnly
			s.refresh()
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
			id := s.visible[s.selected].ID
			return s, func() tea.Msg {
				return router.PushScreenMsg{Screen: sessionreport.New(s.src, id)}
			}
		}
	}
	return s, nil
}

func (s *Screen) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		s.filter.Reset()
		s.filter.Blur()
		s.refresh()
		return nil
	case "enter":
		s.filter.Blur()
		return nil
	}
	var cmd tea.Cmd
	s.filter, cmd = s.filter.Update(msg)
	s.refresh()
	return cmd
}

func (s *Screen) refresh() {
	s.visible = s.visible[:0]
	for _, sess := range s.all {
		if s.completedOnly && !sess.Completed {
			continue
		}
		if s.filter.Matches(sess.ID, s.learnerName(sess), sess.Status) {
			s.visible = append(s.visible, sess)
		}
	}
	s.selected = min(s.selected, max(len(s.visible)-1, 0))
}

func (s *Screen) learnerName(sess store.Session) string {
	if sess.LearnerID == nil {
		return report.UnknownLearner
	}
	if name, ok := s.names[*sess.LearnerID]; ok {
		return name
	}
	return report.UnknownLearner
}

// Visible returns the sessions passing the current filters.
func (s *Screen) Visible() []store.Session {
	return s.visible
}

func (s *Screen) View(width, height int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	if s.errMsg != "" {
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error), "\n\nError: "+s.errMsg)
	}
	if !s.loaded {
		return layout.Centered(width, dim, "\n\nLoading sessions...")
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.filter.View()))
	b.WriteString("\n\n")

	if len(s.visible) == 0 {
		b.WriteString(layout.Centered(width, dim.Italic(true), "No sessions match."))
		return b.String()
	}

	// Keep the selection on screen.
	rows := max(height-4, 1)
	start := 0
	if s.selected >= rows {
		start = s.selected - rows + 1
	}
	end := min(start+rows, len(s.visible))

	for i := start; i < end; i++ {
		sess := s.visible[i]
		prefix := "  "
		style := theme.Body
		if i == s.selected {
			prefix = "> "
			style = theme.Selected
		}
		line := fmt.Sprintf("%s%s  %-16s  %s  %3d/%-3d  %-6s  %s",
			prefix,
			sess.StartedAt.Local().Format("Jan 02 15:04"),
			truncate(s.learnerName(sess), 16),
			sess.ID[:min(8, len(sess.ID))],
			sess.Hits, sess.Hits+sess.Misses,
			sess.FinalTier.DisplayName(),
			sess.Status)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
