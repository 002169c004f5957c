package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/container"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Starts the web frontend, the JSON API and, unless monitoring.ops_port
is 0, the ops server with health checks and Prometheus metrics.
Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		app := fx.New(
			container.New(cfg, container.Module),
			fx.StopTimeout(cfg.Server.ShutdownTimeout),
		)
		if err := app.Err(); err != nil {
			return err
		}

		app.Run()
		return nil
	},
}
