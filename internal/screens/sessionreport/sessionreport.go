package sessionreport

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/report"
	"github.com/abhisek/signcoach/internal/router"
	"github.com/abhisek/signcoach/internal/screen"
	"github.com/abhisek/signcoach/internal/ui/components"
	"github.com/abhisek/signcoach/internal/ui/layout"
	"github.com/abhisek/signcoach/internal/ui/theme"
)

type loadedMsg struct {
	Report *report.Report
	Err    error
}

type section int

const (
	sectionSignals section = iota
	sectionErrors
	sectionAdjustments
	sectionCount
)

var sectionNames = [...]string{"Signals", "Errors by category", "Difficulty adjustments"}

// Screen shows one session's reconciled report.
type Screen struct {
	src       report.Source
	sessionID string
	report    *report.Report
	section   section
	errMsg    string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(src report.Source, sessionID string) *Screen {
	return &Screen{src: src, sessionID: sessionID}
}

func (s *Screen) Init() tea.Cmd {
	src, id := s.src, s.sessionID
	return func() tea.Msg {
		r, err := report.Build(context.Background(), src, id)
		return loadedMsg{Report: r, Err: err}
	}
}

func (s *Screen) Title() string { return "Session Report" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next section"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		}
		s.report = msg.Report
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "enter":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "tab":
			s.section = (s.section + 1) % sectionCount
		case "shift+tab":
			s.section = (s.section + sectionCount - 1) % sectionCount
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	if s.errMsg != "" {
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error), "\n\nError: "+s.errMsg)
	}
	r := s.report
	if r == nil {
		return layout.Centered(width, dim, "\n\nLoading report...")
	}
	sess := r.Session

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, theme.Title, r.LearnerName))
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, dim, fmt.Sprintf("%s · %s · %.0fs",
		sess.ID, sess.StartedAt.Local().Format("Jan 02, 2006 15:04"), sess.DurationSecs)))
	b.WriteString("\n\n")

	tiers := lipgloss.NewStyle().Foreground(theme.TierColor(sess.InitialTier)).Render(sess.InitialTier.DisplayName()) +
		dim.Render(" → ") +
		lipgloss.NewStyle().Foreground(theme.TierColor(sess.FinalTier)).Bold(true).Render(sess.FinalTier.DisplayName())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, fmt.Sprintf("%s    %s    %s",
		theme.Body.Render(fmt.Sprintf("Hits %d  Misses %d", sess.Hits, sess.Misses)),
		theme.Body.Render(fmt.Sprintf("Avg latency %.2fs", sess.AvgLatency)),
		tiers)))
	b.WriteString("\n\n")

	bar := components.NewProgressBar("Hit rate", r.HitRate, true, min(width-8, 60))
	bar.Fill = theme.Success
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	b.WriteString("\n")
	if !sess.MetricsVerified {
		b.WriteString(layout.Centered(width, dim.Italic(true), "client-reported totals, no event log"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(layout.Divider(width, sectionNames[s.section]))
	b.WriteString("\n\n")
	for _, line := range s.sectionLines() {
		b.WriteString(layout.Centered(width, theme.Body, line))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Screen) sectionLines() []string {
	r := s.report
	var lines []string
	switch s.section {
	case sectionSignals:
		for _, sig := range r.Signals {
			lines = append(lines, fmt.Sprintf("%-24s %3d attempts  %3d hits  %3d misses  %6.2fs",
				sig.Signal, sig.Attempts, sig.Hits, sig.Misses, sig.MeanLatency))
		}
	case sectionErrors:
		for _, c := range r.Categories {
			lines = append(lines, fmt.Sprintf("%-12s %3d  %s", c.Category, c.Count, strings.Join(c.Signals, ", ")))
		}
	case sectionAdjustments:
		for _, a := range r.Adjustments {
			lines = append(lines, fmt.Sprintf("zone %d round %d  %s → %s  %s",
				a.Zone, a.Round, a.PreviousTier.DisplayName(), a.NewTier.DisplayName(), a.Justification))
		}
	}
	if len(lines) == 0 {
		lines = []string{"Nothing recorded."}
	}
	return lines
}
