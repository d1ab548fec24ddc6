package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/feedback"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Generate coaching feedback for a single mistake",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		f := cmd.Flags()
		var req feedback.Request
		req.SignalName, _ = f.GetString("signal")
		req.Answer, _ = f.GetString("answer")
		req.Latency, _ = f.GetFloat64("latency")
		req.Zone, _ = f.GetInt("zone")
		req.PriorAttempts, _ = f.GetInt("prior-attempts")
		tier, err := tierFlag(cmd, "tier")
		if err != nil {
			return err
		}
		req.Tier = tier
		return printJSON(cmd.OutOrStdout(), rt.feedback.Generate(cmd.Context(), req))
	}),
}

func init() {
	f := feedbackCmd.Flags()
	f.StringP("signal", "s", "", "Correct sign")
	f.StringP("answer", "a", "", "Learner's answer; empty means the time ran out")
	f.Float64P("latency", "t", 0, "Response time in seconds")
	f.String("tier", "low", "Difficulty tier")
	f.IntP("zone", "z", 1, "Zone number")
	f.Int("prior-attempts", 0, "Earlier attempts at this sign")
	feedbackCmd.MarkFlagRequired("signal")
}
