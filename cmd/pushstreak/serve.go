package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the push ingress, progress API and scheduled notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, cleanup, err := BuildApp(runCtx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			app.Logger.Info("starting pushstreak server",
				"environment", cfg.Environment,
				"profile", cfg.Profile,
				"address", cfg.Server.Address,
				"storage_adapter", cfg.Storage.Adapter,
				"webhook_configured", app.Dispatcher != nil,
				"schedule_enabled", app.Scheduler != nil)

			return app.Run(runCtx)
		},
	}
}
