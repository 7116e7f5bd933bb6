package health

import (
	"context"
	"errors"
	"testing"
)

func TestReady(t *testing.T) {
	svc := NewService()
	ready, results := svc.Ready(context.Background())
	if !ready || len(results) != 0 {
		t.Fatalf("expected ready with no checks, got %v %v", ready, results)
	}

	svc.Add("database", func(context.Context) error { return nil })
	svc.Add("object_store", func(context.Context) error { return errors.New("bucket missing") })

	ready, results = svc.Ready(context.Background())
	if ready {
		t.Fatalf("expected not ready")
	}
	if results["database"] != "ok" {
		t.Fatalf("unexpected database result %q", results["database"])
	}
	if results["object_store"] != "bucket missing" {
		t.Fatalf("unexpected object_store result %q", results["object_store"])
	}
}
