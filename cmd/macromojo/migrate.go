package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/macromojo/macromojo/internal/infrastructure/container"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long: `Applies or rolls back the embedded schema migrations.

SQLite databases are created on startup and need no migrations.`,
}

func migrateRun(fn func(cmd *cobra.Command, m *migrations.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		return container.WithMigrator(context.Background(), cfg.Database, log, func(m *migrations.Migrator) error {
			return fn(cmd, m)
		})
	}
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: migrateRun(func(_ *cobra.Command, m *migrations.Migrator) error {
		return m.Up()
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	Args:  cobra.NoArgs,
	RunE: migrateRun(func(_ *cobra.Command, m *migrations.Migrator) error {
		return m.Down()
	}),
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Roll back every migration, dropping all journal data",
	Args:  cobra.NoArgs,
	RunE: migrateRun(func(_ *cobra.Command, m *migrations.Migrator) error {
		return m.Reset()
	}),
}

var migrateForceCmd = &cobra.Command{
	Use:   "force [version]",
	Short: "Mark a version as applied without running it, clearing a dirty state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return migrateRun(func(_ *cobra.Command, m *migrations.Migrator) error {
			return m.Force(version)
		})(cmd, args)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: migrateRun(func(cmd *cobra.Command, m *migrations.Migrator) error {
		status, err := m.Status()
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), status)
		return nil
	}),
}

func printStatus(out io.Writer, status *migrations.MigrationStatus) {
	fmt.Fprintf(out, "version: %d", status.Version)
	if status.Dirty {
		fmt.Fprint(out, " (dirty)")
	}
	fmt.Fprintln(out)
	for _, mig := range status.Applied {
		fmt.Fprintf(out, "  [x] %03d %s\n", mig.Version, mig.Name)
	}
	for _, mig := range status.Pending {
		fmt.Fprintf(out, "  [ ] %03d %s\n", mig.Version, mig.Name)
	}
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateResetCmd, migrateForceCmd, migrateStatusCmd)
}
