package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"voicecare-backend/internal/shared/config"
	"voicecare-backend/internal/shared/storage/db"
	"voicecare-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()
	defer telemetry.Sync()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", nil)
}
