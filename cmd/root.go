package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/config"
	"github.com/abhisek/signcoach/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "signcoach",
	Short: "Road sign training backend",
	Long: "SignCoach stores VR road-sign training sessions, adapts their difficulty " +
		"and reports on learner performance.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}

// Execute runs the root command. Cancelling ctx stops long-running
// subcommands.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides SIGNCOACH_DB)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides SIGNCOACH_LOG_LEVEL)")
	pf.String("log-format", "", "Log format: text or json (overrides SIGNCOACH_LOG_FORMAT)")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(learnerCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db (highest priority),
// then SIGNCOACH_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
