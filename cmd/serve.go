package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/signcoach/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		addr := rt.cfg.Listen
		if v, _ := cmd.Flags().GetString("listen"); v != "" {
			addr = v
		}
		router := api.NewRouter(api.Deps{
			Store:      rt.store,
			Controller: rt.controller,
			Engine:     rt.engine,
			Config:     rt.active,
			Feedback:   rt.feedback,
			Logger:     rt.logger,
		})
		rt.logger.Info("starting api",
			"model_available", rt.engine.ModelAvailable(),
			"feedback_available", rt.feedback.Available(),
			"config", rt.active.Current().Name)
		return api.Serve(cmd.Context(), addr, router, rt.cfg.ShutdownTimeout, rt.logger)
	}),
}

func init() {
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides SIGNCOACH_LISTEN)")
}
