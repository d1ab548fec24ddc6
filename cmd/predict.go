package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/decision"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Ask the decision engine for a tier without recording anything",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		f := cmd.Flags()
		var fv decision.FeatureVector
		fv.Zone, _ = f.GetInt("zone")
		fv.SignalsShown, _ = f.GetInt("shown")
		fv.Hits, _ = f.GetInt("hits")
		fv.Misses, _ = f.GetInt("misses")
		fv.AvgLatency, _ = f.GetFloat64("latency")

		cfg := rt.active.Current()
		d := rt.engine.Decide(fv, cfg.UseModel)
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"tier":         d.Tier,
			"tier_name":    d.Tier.DisplayName(),
			"rationale":    d.Rationale,
			"hit_rate":     d.HitRate,
			"signal_count": cfg.SignalCount(d.Tier),
			"time_limit":   cfg.TimeLimit(d.Tier),
		})
	}),
}

func init() {
	f := predictCmd.Flags()
	f.IntP("zone", "z", 1, "Zone number")
	f.Int("shown", 0, "Signals shown")
	f.Int("hits", 0, "Hits")
	f.Int("misses", 0, "Misses")
	f.Float64("latency", 0, "Average latency in seconds")
}
