package events

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"voicecare-backend/internal/shared/telemetry"
)

// KeyResolver maps filesystem paths to storage keys and references.
type KeyResolver interface {
	Key(path string) (string, error)
	URI(key string) string
}

// LocalWatcher raises finalize events for files created under Root, which
// stands in for bucket notifications during local development.
type LocalWatcher struct {
	Root     string
	Resolver KeyResolver
}

// Run watches Root recursively until ctx is done.
func (w *LocalWatcher) Run(ctx context.Context, handle Handler) error {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.Root); err != nil {
		return err
	}
	telemetry.Info("events.local_watching", map[string]any{"root": w.Root})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Op&fsnotify.Create == 0 || hidden(evt.Name) {
				continue
			}
			info, err := os.Stat(evt.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				// Files can land in a new directory before the watch is
				// registered, so sweep it once.
				if err := w.addTree(watcher, evt.Name); err != nil {
					telemetry.Error("events.local_watch_failed", map[string]any{"path": evt.Name, "error": err})
				}
				w.sweep(ctx, evt.Name, handle)
				continue
			}
			w.emit(ctx, evt.Name, handle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			telemetry.Error("events.local_watch_error", map[string]any{"error": err})
		}
	}
}

func (w *LocalWatcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (w *LocalWatcher) sweep(ctx context.Context, dir string, handle Handler) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || hidden(path) {
			return nil
		}
		w.emit(ctx, path, handle)
		return nil
	})
}

func (w *LocalWatcher) emit(ctx context.Context, path string, handle Handler) {
	key, err := w.Resolver.Key(path)
	if err != nil {
		telemetry.Warn("events.local_key_failed", map[string]any{"path": path, "error": err})
		return
	}
	handle(ctx, Finalize{
		Provider: ProviderLocal,
		Key:      key,
		URI:      w.Resolver.URI(key),
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
