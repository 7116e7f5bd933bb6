package local

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	size, ct, err := store.Put(ctx, "calls/u1/s1/c1/rec.wav", "audio/wav", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if size != int64(len("audio-bytes")) || ct != "audio/wav" {
		t.Fatalf("unexpected size=%d ct=%s", size, ct)
	}

	rc, err := store.Open(ctx, "calls/u1/s1/c1/rec.wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "audio-bytes" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, _, err := store.Put(context.Background(), "../escape.wav", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestKeyAndURI(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	key, err := store.Key(filepath.Join(dir, "calls", "u1", "s1", "c1", "rec.wav"))
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if key != "calls/u1/s1/c1/rec.wav" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := store.Key(filepath.Join(filepath.Dir(dir), "elsewhere.wav")); err == nil {
		t.Fatalf("expected path outside store to be rejected")
	}

	uri := store.URI(key)
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "/calls/u1/s1/c1/rec.wav") {
		t.Fatalf("unexpected uri %q", uri)
	}
}
