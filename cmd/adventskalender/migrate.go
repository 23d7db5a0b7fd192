package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/adventskalender/internal/config"
	"github.com/dukerupert/adventskalender/internal/database"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			db, err := database.OpenWithoutMigrations(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			version, err := database.Version(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s at version %d\n", cfg.Database.Path, version)
			return nil
		},
	}
}
