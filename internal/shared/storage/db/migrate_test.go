package db

import (
	"context"
	"io/fs"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"voicecare-backend/internal/shared/telemetry"
)

func TestRunMigrationsNilDatabase(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 migrations, got %v", files)
	}
}

func TestGooseLoggerWritesTelemetry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	gooseLogger{}.Printf("OK   %s (%s)\n", "00002_calls.sql", "3ms")

	entries := logs.FilterMessage("db.migrate").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["detail"]; got != "OK   00002_calls.sql (3ms)" {
		t.Fatalf("unexpected detail %q", got)
	}
}
