package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/difficulty"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or replace the difficulty configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		printConfig(cmd, rt.active.Current())
		return nil
	}),
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change fields of the active configuration",
	Long:  "Unset flags keep their current values. The whole result is validated before it becomes active.",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		candidate := rt.active.Current()
		if err := applyConfigFlags(cmd, &candidate); err != nil {
			return err
		}
		return replaceConfig(cmd, rt, candidate)
	}),
}

var configImportCmd = &cobra.Command{
	Use:   "import <profile.yaml|profile.toml>",
	Short: "Replace the active configuration from a profile file",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		candidate, err := difficulty.LoadProfile(args[0])
		if err != nil {
			return err
		}
		return replaceConfig(cmd, rt, candidate)
	}),
}

var configHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved configurations, newest first",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		limit, _ := cmd.Flags().GetInt("limit")
		recs, err := rt.store.ConfigurationHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-5s  %-20s  %-10s  %-14s  %-6s  %s\n", "ID", "Saved", "Signals", "Times", "Active", "Name")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, r := range recs {
			active := ""
			if r.Active {
				active = "✓"
			}
			fmt.Fprintf(out, "%-5d  %-20s  %-10s  %-14s  %-6s  %s\n",
				r.ID, r.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%d/%d/%d", r.SignalsLow, r.SignalsMedium, r.SignalsHigh),
				fmt.Sprintf("%g/%g/%g", r.TimeLow, r.TimeMedium, r.TimeHigh),
				active, r.Name)
		}
		return nil
	}),
}

func replaceConfig(cmd *cobra.Command, rt *runtime, candidate difficulty.Configuration) error {
	saved, err := rt.active.Replace(cmd.Context(), candidate)
	var verr *difficulty.ValidationError
	if errors.As(err, &verr) {
		out := cmd.ErrOrStderr()
		fmt.Fprintln(out, "Configuration rejected; the active configuration is unchanged:")
		for _, v := range verr.Violations {
			fmt.Fprintf(out, "  - [%s] %s\n", v.Rule, v.Message)
		}
		return fmt.Errorf("%d rule(s) violated", len(verr.Violations))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration applied.")
	printConfig(cmd, saved)
	return nil
}

func printConfig(cmd *cobra.Command, c difficulty.Configuration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:            %s\n", c.Name)
	fmt.Fprintf(out, "Updated:         %s\n", c.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Initial tier:    %s\n", c.InitialTier.DisplayName())
	fmt.Fprintf(out, "Rounds per zone: %d (complete after %d at %.0f%% hits)\n",
		c.RoundsPerZone, c.MinRoundsToComplete, c.MinHitRate*100)
	fmt.Fprintf(out, "Use model:       %v\n", c.UseModel)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%-8s  %-8s  %s\n", "Tier", "Signals", "Time limit")
	for _, t := range []difficulty.Tier{difficulty.TierLow, difficulty.TierMedium, difficulty.TierHigh} {
		fmt.Fprintf(out, "%-8s  %-8d  %gs\n", t.DisplayName(), c.SignalCount(t), c.TimeLimit(t))
	}
}

func applyConfigFlags(cmd *cobra.Command, c *difficulty.Configuration) error {
	f := cmd.Flags()
	ints := map[string]*int{
		"signals-low":     &c.SignalsLow,
		"signals-medium":  &c.SignalsMedium,
		"signals-high":    &c.SignalsHigh,
		"rounds-per-zone": &c.RoundsPerZone,
		"min-rounds":      &c.MinRoundsToComplete,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	floats := map[string]*float64{
		"time-low":     &c.TimeLow,
		"time-medium":  &c.TimeMedium,
		"time-high":    &c.TimeHigh,
		"min-hit-rate": &c.MinHitRate,
	}
	for name, dst := range floats {
		if f.Changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}
	if f.Changed("name") {
		c.Name, _ = f.GetString("name")
	}
	if f.Changed("use-model") {
		c.UseModel, _ = f.GetBool("use-model")
	}
	if f.Changed("initial-tier") {
		t, err := tierFlag(cmd, "initial-tier")
		if err != nil {
			return err
		}
		c.InitialTier = t
	}
	return nil
}

func init() {
	f := configSetCmd.Flags()
	f.String("name", "", "Configuration name")
	f.Int("signals-low", 0, "Signals per round at low difficulty")
	f.Int("signals-medium", 0, "Signals per round at medium difficulty")
	f.Int("signals-high", 0, "Signals per round at high difficulty")
	f.Float64("time-low", 0, "Seconds per signal at low difficulty")
	f.Float64("time-medium", 0, "Seconds per signal at medium difficulty")
	f.Float64("time-high", 0, "Seconds per signal at high difficulty")
	f.String("initial-tier", "", "Initial tier for new sessions")
	f.Int("rounds-per-zone", 0, "Rounds in each zone")
	f.Int("min-rounds", 0, "Rounds needed to complete a zone")
	f.Float64("min-hit-rate", 0, "Hit rate needed to complete a zone")
	f.Bool("use-model", true, "Use the trained model when available")

	configHistoryCmd.Flags().IntP("limit", "n", 20, "Number of configurations to show")

	configCmd.AddCommand(configShowCmd, configSetCmd, configImportCmd, configHistoryCmd)
}
