package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Show a session's reconciled report",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		r, err := report.Build(cmd.Context(), rt.store, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		s := r.Session
		sep := strings.Repeat("─", 60)

		fmt.Fprintf(out, "Session:   %s\n", s.ID)
		fmt.Fprintf(out, "Learner:   %s\n", r.LearnerName)
		fmt.Fprintf(out, "Started:   %s\n", s.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Duration:  %.0fs\n", s.DurationSecs)
		fmt.Fprintf(out, "Status:    %s\n", s.Status)
		fmt.Fprintf(out, "Result:    %d hits / %d misses (%.1f%%), avg %.2fs\n",
			s.Hits, s.Misses, r.HitRate*100, s.AvgLatency)
		fmt.Fprintf(out, "Tier:      %s → %s\n", s.InitialTier.DisplayName(), s.FinalTier.DisplayName())
		if !s.MetricsVerified {
			fmt.Fprintln(out, "Note:      totals are client-reported; no attempts were logged")
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "PERFORMANCE BY SIGNAL")
		fmt.Fprintln(out, sep)
		for _, sig := range r.Signals {
			fmt.Fprintf(out, "%-24s  %4d attempts  %4d hits  %4d misses  %6.2fs\n",
				truncate(sig.Signal, 24), sig.Attempts, sig.Hits, sig.Misses, sig.MeanLatency)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "ERRORS BY CATEGORY")
		fmt.Fprintln(out, sep)
		for _, c := range r.Categories {
			fmt.Fprintf(out, "%-12s  %4d  %s\n", c.Category, c.Count, strings.Join(c.Signals, ", "))
		}

		if len(r.Adjustments) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "DIFFICULTY ADJUSTMENTS")
			fmt.Fprintln(out, sep)
			for _, a := range r.Adjustments {
				fmt.Fprintf(out, "zone %d round %d  %s → %s  %s\n",
					a.Zone, a.Round, a.PreviousTier.DisplayName(), a.NewTier.DisplayName(), a.Justification)
			}
		}
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session report as JSON or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		formatName, _ := cmd.Flags().GetString("format")
		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}
		r, err := report.Build(cmd.Context(), rt.store, args[0])
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			return report.Export(cmd.OutOrStdout(), r, format)
		}
		if path == "." {
			path = format.Filename(args[0])
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := report.Export(f, r, format); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
		return nil
	}),
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "Export format: json or csv")
	exportCmd.Flags().StringP("output", "o", "", "Output file; \".\" picks the default name, empty writes to stdout")
}
