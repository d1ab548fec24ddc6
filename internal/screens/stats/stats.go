package stats

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/router"
	"github.com/abhisek/signcoach/internal/screen"
	"github.com/abhisek/signcoach/internal/store"
	"github.com/abhisek/signcoach/internal/ui/components"
	"github.com/abhisek/signcoach/internal/ui/layout"
	"github.com/abhisek/signcoach/internal/ui/theme"
)

// Source is what the statistics screen reads.
type Source interface {
	GlobalStats(ctx context.Context) (*store.GlobalStats, error)
	LLMUsageByPurpose(ctx context.Context) ([]store.LLMUsageStats, error)
}

type loadedMsg struct {
	Stats *store.GlobalStats
	Usage []store.LLMUsageStats
	Err   error
}

// Screen shows program-wide aggregates and the active configuration.
type Screen struct {
	src    Source
	config func() difficulty.Configuration
	stats  *store.GlobalStats
	usage  []store.LLMUsageStats
	errMsg string
}

var _ screen.Screen = (*Screen)(nil)

// New creates the screen. config yields the active configuration.
func New(src Source, config func() difficulty.Configuration) *Screen {
	return &Screen{src: src, config: config}
}

func (s *Screen) Init() tea.Cmd {
	src := s.src
	return func() tea.Msg {
		ctx := context.Background()
		st, err := src.GlobalStats(ctx)
		if err != nil {
			return loadedMsg{Err: err}
		}
		usage, _ := src.LLMUsageByPurpose(ctx)
		return loadedMsg{Stats: st, Usage: usage}
	}
}

func (s *Screen) Title() string { return "Statistics" }

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.stats, s.usage = msg.Stats, msg.Usage
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "enter":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "r":
			return s, s.Init()
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	if s.errMsg != "" {
		return layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Error), "\n\nError: "+s.errMsg)
	}
	st := s.stats
	if st == nil {
		return layout.Centered(width, dim, "\n\nLoading statistics...")
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, theme.Body, fmt.Sprintf(
		"Learners %d    Sessions %d    Completed %d", st.Learners, st.Sessions, st.CompletedSessions)))
	b.WriteString("\n\n")
	bar := components.NewProgressBar("Completion", st.CompletionRate, true, min(width-8, 60))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(width, theme.Body, fmt.Sprintf(
		"Avg hits %.1f    Avg misses %.1f    Avg latency %.2fs", st.AvgHits, st.AvgMisses, st.AvgLatency)))
	b.WriteString("\n\n")

	b.WriteString(layout.Divider(width, "Most missed signals"))
	b.WriteString("\n")
	if len(st.TopErrorSignals) == 0 {
		b.WriteString(layout.Centered(width, dim.Italic(true), "No errors recorded."))
		b.WriteString("\n")
	}
	for _, sc := range st.TopErrorSignals {
		b.WriteString(layout.Centered(width, theme.Body, fmt.Sprintf("%-24s %4d", sc.Signal, sc.Errors)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if s.config != nil {
		cfg := s.config()
		b.WriteString(layout.Divider(width, "Difficulty · "+cfg.Name))
		b.WriteString("\n")
		for _, t := range []difficulty.Tier{difficulty.TierLow, difficulty.TierMedium, difficulty.TierHigh} {
			style := lipgloss.NewStyle().Foreground(theme.TierColor(t))
			b.WriteString(layout.Centered(width, style, fmt.Sprintf("%-6s %2d signals  %4.1fs",
				t.DisplayName(), cfg.SignalCount(t), cfg.TimeLimit(t))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(s.usage) > 0 {
		b.WriteString(layout.Divider(width, "Feedback model usage"))
		b.WriteString("\n")
		for _, u := range s.usage {
			b.WriteString(layout.Centered(width, theme.Body, fmt.Sprintf("%-12s %4d calls  %6d in  %6d out  %5dms",
				u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)))
			b.WriteString("\n")
		}
	}
	return b.String()
}
