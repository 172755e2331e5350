package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/persistence"
)

var steps int

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runMigration(func(mg *persistence.Migrator, _ *zap.Logger) error { return mg.Down(steps) }),
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE:  runMigration(func(mg *persistence.Migrator, _ *zap.Logger) error { return mg.Up() }),
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			RunE: runMigration(func(mg *persistence.Migrator, logger *zap.Logger) error {
				version, dirty, err := mg.Version()
				if err != nil {
					return err
				}
				logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
				fmt.Printf("version=%d dirty=%t\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func runMigration(fn func(*persistence.Migrator, *zap.Logger) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		mg, err := persistence.NewMigrator(cfg.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer mg.Close() //nolint:errcheck

		if err := fn(mg, logger); err != nil {
			logger.Error("migration failed", zap.Error(err))
			return err
		}
		return nil
	}
}
