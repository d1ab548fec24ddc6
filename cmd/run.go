package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/app"
	"github.com/abhisek/signcoach/internal/config"
	"github.com/abhisek/signcoach/internal/decision"
	"github.com/abhisek/signcoach/internal/diagnosis"
	"github.com/abhisek/signcoach/internal/difficulty"
	"github.com/abhisek/signcoach/internal/feedback"
	"github.com/abhisek/signcoach/internal/llm"
	"github.com/abhisek/signcoach/internal/logging"
	"github.com/abhisek/signcoach/internal/session"
	"github.com/abhisek/signcoach/internal/store"
)

// runtime is the wired dependency graph shared by every subcommand.
type runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *store.Store
	active     *difficulty.Active
	engine     *decision.Engine
	controller *session.Controller
	feedback   *feedback.Service
}

// openRuntime loads configuration, opens the store and builds the services.
// Callers must Close it.
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store opened", "path", dbPath)

	ctx := cmd.Context()
	seed := difficulty.DefaultConfiguration()
	if cfg.Profile != "" {
		if seed, err = difficulty.LoadProfile(cfg.Profile); err == nil {
			err = difficulty.Validate(seed)
		}
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("profile %s: %w", cfg.Profile, err)
		}
	}
	current, err := st.EnsureActive(ctx, seed)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load difficulty configuration: %w", err)
	}
	active := difficulty.NewActive(current, st)

	engine := decision.NewEngine(decision.Load(cfg.ModelPath, logger), logger)
	controller := session.NewController(session.Deps{
		Store:       st,
		Engine:      engine,
		Config:      active,
		Classifiers: diagnosis.DefaultClassifiers(cfg.Distractors),
		Logger:      logger,
	})

	var provider llm.Provider
	llmCfg, err := llm.ConfigFromEnv()
	if err == nil {
		provider, err = llm.NewProvider(ctx, llmCfg, st, logger)
	}
	if err != nil {
		logger.Warn("feedback model not configured, using built-in feedback", "error", err)
		provider = nil
	}
	fbCfg := feedback.DefaultConfig()
	fbCfg.Timeout = cfg.FeedbackTimeout

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		active:     active,
		engine:     engine,
		controller: controller,
		feedback:   feedback.NewService(provider, fbCfg, logger),
	}, nil
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// withRuntime adapts a runtime-consuming function into a cobra RunE.
func withRuntime(fn func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(cmd, args, rt)
	}
}

// runDashboard launches the terminal dashboard.
func runDashboard(cmd *cobra.Command) error {
	return withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
		return app.Run(cmd.Context(), app.Options{
			Store:          rt.store,
			Config:         rt.active,
			ModelAvailable: rt.engine.ModelAvailable(),
		})
	})(cmd, nil)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the terminal dashboard (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd)
	},
}
