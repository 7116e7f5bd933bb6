package events

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicecare-backend/internal/shared/storage/object/local"
)

func TestLocalWatcherEmitsForNewFiles(t *testing.T) {
	root := t.TempDir()
	store := local.New(root)
	w := &LocalWatcher{Root: root, Resolver: store}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Finalize, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context, ev Finalize) {
			got <- ev
		})
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)

	if _, _, err := store.Put(context.Background(), "calls/u1/s1/c1/rec.wav", "audio/wav", strings.NewReader("RIFF")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-got:
			if ev.Key != "calls/u1/s1/c1/rec.wav" {
				continue
			}
			if ev.Provider != ProviderLocal || ev.StorageURI() == "" {
				t.Fatalf("unexpected event %+v", ev)
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for finalize event")
		}
	}
}

func TestHidden(t *testing.T) {
	if !hidden(filepath.Join("a", ".upload-123")) {
		t.Fatalf("expected dotfile to be hidden")
	}
	if hidden(filepath.Join("a", "rec.wav")) {
		t.Fatalf("expected regular file to be visible")
	}
}
