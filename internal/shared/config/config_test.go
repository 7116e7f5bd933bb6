package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "9090"
record_store: firestore
object_store: minio
analysis_service_url: "http://file-analysis:8000/"
analysis_timeout_seconds: 60
local_watch: true
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "7070")
	t.Setenv("ANALYSIS_SERVICE_URL", "")
	t.Setenv("RECORD_STORE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOCAL_WATCH", "")
	t.Setenv("ANALYSIS_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.Port != "7070" {
		t.Fatalf("expected env port 7070, got %s", cfg.Port)
	}
	if cfg.RecordStore != "firestore" {
		t.Fatalf("expected record store from file, got %s", cfg.RecordStore)
	}
	if cfg.ObjectStoreType != "minio" {
		t.Fatalf("expected minio object store, got %s", cfg.ObjectStoreType)
	}
	if cfg.AnalysisServiceURL != "http://file-analysis:8000" {
		t.Fatalf("expected trimmed analysis url, got %q", cfg.AnalysisServiceURL)
	}
	if cfg.AnalysisTimeout != time.Minute {
		t.Fatalf("expected 1m timeout, got %s", cfg.AnalysisTimeout)
	}
	if !cfg.LocalWatch {
		t.Fatalf("expected local watch from file")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ANALYSIS_SERVICE_URL", "")
	t.Setenv("RECORD_STORE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PUBLIC_SUMMARY_TTL_HOURS", "")
	t.Setenv("ANALYSIS_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.RecordStore != "memory" {
		t.Fatalf("expected memory record store, got %s", cfg.RecordStore)
	}
	if cfg.AnalysisServiceURL != "" {
		t.Fatalf("expected empty analysis url, got %q", cfg.AnalysisServiceURL)
	}
	if cfg.PublicSummaryTTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day ttl, got %s", cfg.PublicSummaryTTL)
	}
	if cfg.AnalysisTimeout != MaxAnalysisTimeout {
		t.Fatalf("expected default timeout %s, got %s", MaxAnalysisTimeout, cfg.AnalysisTimeout)
	}
}

func TestRecordStoreFallsBackToPostgresWithDatabaseURL(t *testing.T) {
	if got := normalizeRecordStore("", "postgres://localhost/db"); got != "postgres" {
		t.Fatalf("expected postgres, got %s", got)
	}
	if got := normalizeRecordStore("firestore", "postgres://localhost/db"); got != "firestore" {
		t.Fatalf("expected explicit firestore to win, got %s", got)
	}
}

func TestClampAnalysisTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{name: "zero", in: 0, want: MaxAnalysisTimeout},
		{name: "negative", in: -time.Second, want: MaxAnalysisTimeout},
		{name: "above cap", in: 20 * time.Minute, want: MaxAnalysisTimeout},
		{name: "within", in: 90 * time.Second, want: 90 * time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampAnalysisTimeout(tt.in); got != tt.want {
				t.Fatalf("ClampAnalysisTimeout(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
