package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect feedback model requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model requests",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		opts, err := llmQueryOpts(cmd)
		if err != nil {
			return err
		}
		events, err := rt.store.QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No model requests recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				truncate(e.Model, 28),
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok)
		}
		return nil
	}),
}

func addLLMListFlags(c *cobra.Command) {
	f := c.Flags()
	f.IntP("limit", "n", 20, "Number of requests to show")
	f.StringP("purpose", "p", "", "Filter by purpose (e.g. feedback)")
	f.Int64("after", 0, "Only requests with sequence greater than this")
	f.Int64("before", 0, "Only requests with sequence less than this")
	f.Duration("since", 0, "Only requests newer than this (e.g. 24h)")
	f.String("from", "", "Only requests at or after this RFC 3339 time")
	f.String("to", "", "Only requests at or before this RFC 3339 time")
}

// llmQueryOpts maps the list flags onto a store query. --since is relative
// to now; --from and --to take RFC 3339 timestamps.
func llmQueryOpts(cmd *cobra.Command) (store.QueryOpts, error) {
	f := cmd.Flags()
	opts := store.QueryOpts{}
	opts.Limit, _ = f.GetInt("limit")
	opts.Purpose, _ = f.GetString("purpose")
	opts.After, _ = f.GetInt64("after")
	opts.Before, _ = f.GetInt64("before")

	since, _ := f.GetDuration("since")
	from, _ := f.GetString("from")
	if since > 0 && from != "" {
		return opts, fmt.Errorf("--since and --from are mutually exclusive")
	}
	if since > 0 {
		opts.From = time.Now().Add(-since)
	}
	for _, b := range []struct {
		flag string
		dst  *time.Time
	}{{"from", &opts.From}, {"to", &opts.To}} {
		v, _ := f.GetString(b.flag)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("invalid --%s %q: want RFC 3339, e.g. 2026-03-01T10:00:00Z", b.flag, v)
		}
		*b.dst = t
	}
	return opts, nil
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full prompt and response of a request",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		e, err := rt.store.GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(out, "ID:        %d\n", e.ID)
		fmt.Fprintf(out, "Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Provider:  %s\n", e.Provider)
		fmt.Fprintf(out, "Model:     %s\n", e.Model)
		fmt.Fprintf(out, "Purpose:   %s\n", e.Purpose)
		fmt.Fprintf(out, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Fprintf(out, "Latency:   %dms\n", e.LatencyMs)
		fmt.Fprintf(out, "Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:     %s\n", e.ErrorMessage)
		}

		for _, part := range []struct{ title, body string }{
			{"REQUEST", e.RequestBody},
			{"RESPONSE", e.ResponseBody},
		} {
			fmt.Fprintln(out)
			fmt.Fprintln(out, sep)
			fmt.Fprintln(out, part.title)
			fmt.Fprintln(out, sep)
			if part.body == "" {
				fmt.Fprintln(out, "(not captured)")
			} else {
				fmt.Fprintln(out, part.body)
			}
		}
		return nil
	}),
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated token usage",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		stats, err := rt.store.LLMUsageByPurpose(cmd.Context())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(stats) == 0 {
			fmt.Fprintln(out, "No model usage recorded yet.")
			return nil
		}

		rule := strings.Repeat("─", 72)
		fmt.Fprintln(out, "Usage by Purpose")
		fmt.Fprintln(out, rule)
		fmt.Fprintf(out, "%-16s  %6s  %10s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
		fmt.Fprintln(out, rule)

		var calls, in, outTokens int
		for _, st := range stats {
			fmt.Fprintf(out, "%-16s  %6d  %10d  %10d  %10d  %8d\n",
				st.Purpose, st.Calls, st.InputTokens, st.OutputTokens, st.InputTokens+st.OutputTokens, st.AvgLatencyMs)
			calls += st.Calls
			in += st.InputTokens
			outTokens += st.OutputTokens
		}
		fmt.Fprintln(out, rule)
		fmt.Fprintf(out, "%-16s  %6d  %10d  %10d  %10d\n", "TOTAL", calls, in, outTokens, in+outTokens)
		return nil
	}),
}

func init() {
	addLLMListFlags(llmListCmd)

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
