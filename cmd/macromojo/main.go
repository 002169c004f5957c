// Command macromojo runs the MacroMojo nutrition journal and its
// maintenance tasks
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "macromojo",
	Short: "MacroMojo - track what you eat against your macro targets",
	Long: `MacroMojo is a nutrition journal with a built-in assistant.

Configuration is read from config.yaml (., ./config or /etc/macromojo)
or the file given with --config. Environment variables prefixed with
MACROMOJO_ override it, for example MACROMOJO_SERVER_PORT=9000.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the configuration and a logger for one-shot commands
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.App.Debug,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
