package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show program-wide training statistics",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		st, err := rt.store.GlobalStats(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), st)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Learners:           %d\n", st.Learners)
		fmt.Fprintf(out, "Sessions:           %d\n", st.Sessions)
		fmt.Fprintf(out, "Completed:          %d (%.1f%%)\n", st.CompletedSessions, st.CompletionRate*100)
		fmt.Fprintf(out, "Avg hits/misses:    %.1f / %.1f\n", st.AvgHits, st.AvgMisses)
		fmt.Fprintf(out, "Avg latency:        %.2fs\n", st.AvgLatency)

		if len(st.TopErrorSignals) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Most missed signals")
			fmt.Fprintln(out, strings.Repeat("─", 40))
			for _, s := range st.TopErrorSignals {
				fmt.Fprintf(out, "%-30s  %6d\n", truncate(s.Signal, 30), s.Errors)
			}
		}
		return nil
	}),
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print as JSON")
}
