package cmd

import (
	"fmt"

	"github.com/aussiebroadwan/taskd/internal/taskd/app"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(cmd)
			logger := app.NewLogger(cfg)

			db, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.ApplyMigrations(cmd.Context()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("database migrations applied", "driver", cfg.DatabaseDriver)
			return nil
		},
	}
}
