package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/metrics"
	"github.com/abhisek/signcoach/internal/session"
	"github.com/abhisek/signcoach/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Drive and inspect training sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open a new session",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		var req session.StartRequest
		if ident, _ := cmd.Flags().GetString("learner"); ident != "" {
			l, err := rt.store.LearnerByIdentifier(cmd.Context(), ident)
			if err != nil {
				return fmt.Errorf("learner %q: %w", ident, err)
			}
			req.LearnerID = &l.ID
		}
		if cmd.Flags().Changed("tier") {
			t, err := tierFlag(cmd, "tier")
			if err != nil {
				return err
			}
			req.InitialTier = &t
		}
		sess, err := rt.controller.Start(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sess)
	}),
}

var sessionAttemptCmd = &cobra.Command{
	Use:   "attempt <session-id>",
	Short: "Record a sign recognition attempt",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		f := cmd.Flags()
		in := session.AttemptInput{}
		in.SignalName, _ = f.GetString("signal")
		in.Answer = optionalString(cmd, "answer")
		in.Correct, _ = f.GetBool("correct")
		in.Latency, _ = f.GetFloat64("latency")
		in.Zone, _ = f.GetInt("zone")
		in.Round, _ = f.GetInt("round")
		a, err := rt.controller.AppendAttempt(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), a)
	}),
}

var sessionErrorCmd = &cobra.Command{
	Use:   "error <session-id>",
	Short: "Record an error with its diagnosis",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		f := cmd.Flags()
		in := session.ErrorInput{}
		in.SignalName, _ = f.GetString("signal")
		in.Answer = optionalString(cmd, "answer")
		in.Category, _ = f.GetString("category")
		in.Latency, _ = f.GetFloat64("latency")
		in.Zone, _ = f.GetInt("zone")
		e, err := rt.controller.AppendError(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), e)
	}),
}

var sessionEvaluateCmd = &cobra.Command{
	Use:   "evaluate <session-id>",
	Short: "Run a difficulty decision point",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		f := cmd.Flags()
		in := session.EvaluateInput{}
		in.Zone, _ = f.GetInt("zone")
		in.Round, _ = f.GetInt("round")
		in.SignalsShown, _ = f.GetInt("shown")
		in.Hits, _ = f.GetInt("hits")
		in.Misses, _ = f.GetInt("misses")
		in.AvgLatency, _ = f.GetFloat64("latency")
		in.ZoneCompleted, _ = f.GetBool("zone-completed")
		ev, err := rt.controller.Evaluate(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ev)
	}),
}

var sessionFinalizeCmd = &cobra.Command{
	Use:   "finalize <session-id>",
	Short: "Close a session and reconcile its metrics",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		f := cmd.Flags()
		in := session.FinalizeInput{}
		in.Client = metrics.ClientReport{}
		in.Client.Hits, _ = f.GetInt("hits")
		in.Client.Misses, _ = f.GetInt("misses")
		in.Client.AvgLatency, _ = f.GetFloat64("latency")
		in.FinalTier = optionalInt(cmd, "final-tier")
		in.ZonesCompleted = optionalInt(cmd, "zones-completed")
		in.MaxZone = optionalInt(cmd, "max-zone")
		res, err := rt.controller.Finalize(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}),
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		ctx := cmd.Context()
		filter := store.SessionFilter{}
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		if ident, _ := cmd.Flags().GetString("learner"); ident != "" {
			l, err := rt.store.LearnerByIdentifier(ctx, ident)
			if err != nil {
				return fmt.Errorf("learner %q: %w", ident, err)
			}
			filter.LearnerID = &l.ID
		}
		if cmd.Flags().Changed("completed") {
			completed, _ := cmd.Flags().GetBool("completed")
			filter.Completed = &completed
		}

		sessions, err := rt.store.ListSessions(ctx, filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintf(out, "%-36s  %-16s  %-5s  %-6s  %-8s  %-6s  %s\n",
			"ID", "Started", "Hits", "Misses", "Latency", "Tier", "Status")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, s := range sessions {
			fmt.Fprintf(out, "%-36s  %-16s  %-5d  %-6d  %-8.2f  %-6s  %s\n",
				s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"),
				s.Hits, s.Misses, s.AvgLatency, s.FinalTier.DisplayName(), s.Status)
		}
		return nil
	}),
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session record",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		sess, err := rt.controller.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sess)
	}),
}

func tierFlag(cmd *cobra.Command, name string) (difficulty.Tier, error) {
	v, _ := cmd.Flags().GetString(name)
	return difficulty.ParseTier(v)
}

// optionalString distinguishes an unset flag (nil) from an empty value.
func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func optionalInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func init() {
	sessionStartCmd.Flags().String("learner", "", "Learner identifier")
	sessionStartCmd.Flags().String("tier", "", "Initial tier: low, medium, high or 0-2")

	for _, c := range []*cobra.Command{sessionAttemptCmd, sessionErrorCmd} {
		c.Flags().StringP("signal", "s", "", "Sign shown")
		c.Flags().StringP("answer", "a", "", "Learner's answer; omit for a timeout")
		c.Flags().Float64P("latency", "t", 0, "Response time in seconds")
		c.Flags().IntP("zone", "z", 1, "Zone number")
		c.MarkFlagRequired("signal")
	}
	sessionAttemptCmd.Flags().Bool("correct", false, "Whether the answer was correct")
	sessionAttemptCmd.Flags().IntP("round", "r", 1, "Round within the zone")
	sessionErrorCmd.Flags().StringP("category", "c", "", "Error category; inferred when empty")

	ef := sessionEvaluateCmd.Flags()
	ef.IntP("zone", "z", 1, "Zone number")
	ef.IntP("round", "r", 1, "Round within the zone")
	ef.Int("shown", 0, "Signals shown so far")
	ef.Int("hits", 0, "Hits so far")
	ef.Int("misses", 0, "Misses so far")
	ef.Float64("latency", 0, "Average latency so far")
	ef.Bool("zone-completed", false, "Count this decision point as completing the zone")

	ff := sessionFinalizeCmd.Flags()
	ff.Int("hits", 0, "Client-reported hits")
	ff.Int("misses", 0, "Client-reported misses")
	ff.Float64("latency", 0, "Client-reported average latency")
	ff.Int("final-tier", 0, "Client-reported final tier")
	ff.Int("zones-completed", 0, "Client-reported zones completed")
	ff.Int("max-zone", 0, "Client-reported furthest zone")

	sessionListCmd.Flags().String("learner", "", "Only this learner's sessions")
	sessionListCmd.Flags().Bool("completed", false, "Only completed (or, with =false, open) sessions")
	sessionListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")

	sessionCmd.AddCommand(sessionStartCmd, sessionAttemptCmd, sessionErrorCmd,
		sessionEvaluateCmd, sessionFinalizeCmd, sessionListCmd, sessionShowCmd)
}
