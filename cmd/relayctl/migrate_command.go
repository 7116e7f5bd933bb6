package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voicecare-backend/internal/shared/storage/db"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			sqlDB, err := db.Connect(cmd.Context(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := db.RunMigrations(cmd.Context(), sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
