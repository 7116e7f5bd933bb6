package bootstrap

import (
	"context"
	"strings"
	"testing"
	"time"

	"voicecare-backend/internal/calls"
	"voicecare-backend/internal/events"
	"voicecare-backend/internal/relay"
	"voicecare-backend/internal/shared/config"
	"voicecare-backend/internal/storagepath"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:              "dev",
		RecordStore:      "memory",
		ObjectStoreType:  "local",
		LocalStoreDir:    t.TempDir(),
		PushProvider:     "none",
		PublicSummaryTTL: time.Hour,
	}
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.Router == nil || app.Relay == nil || app.Runner == nil {
		t.Fatalf("expected router and relay to be built")
	}
	if app.Analyzer != nil || app.Relay.Analyzer != nil {
		t.Fatalf("expected no analyzer without a service URL")
	}
	if len(app.Sources) != 0 {
		t.Fatalf("expected no event sources, got %d", len(app.Sources))
	}

	rec, err := app.CallsService.Upload(context.Background(), calls.UploadInput{
		UserID:   "u1",
		SeniorID: "s1",
		FileName: "morning.wav",
	}, strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	out, err := app.Relay.HandleFinalize(context.Background(), events.Finalize{
		Provider: events.ProviderLocal,
		Key:      storagepath.Build("u1", "s1", rec.CallID, "morning.wav"),
	})
	if err != nil {
		t.Fatalf("HandleFinalize: %v", err)
	}
	if out != relay.OutcomePendingConfig {
		t.Fatalf("expected pending_config, got %s", out)
	}
}

func TestBuildLocalWatchAddsSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.LocalWatch = true
	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	if len(app.Sources) != 1 {
		t.Fatalf("expected local watcher source, got %d", len(app.Sources))
	}
}

func TestBuildRejectsMemoryInProduction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.JWTSecret = "s3cret"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error for in-memory records in production")
	}
}
