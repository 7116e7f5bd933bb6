package calls

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func seedRecord(t *testing.T, repo *MemoryRepo, status AnalysisStatus) CallRecord {
	t.Helper()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := CallRecord{
		CallID:         "c1",
		UserID:         "u1",
		SeniorID:       "s1",
		Status:         StatusPending,
		AnalysisStatus: status,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rec
}

func strPtr(s string) *string { return &s }

func TestMemoryRepoCreateDuplicate(t *testing.T) {
	repo := NewMemoryRepo()
	rec := seedRecord(t, repo, AnalysisPending)
	if err := repo.Create(context.Background(), rec); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryRepoTransitionAppliesFields(t *testing.T) {
	repo := NewMemoryRepo()
	seed := seedRecord(t, repo, AnalysisPending)
	ctx := context.Background()
	at := seed.CreatedAt.Add(time.Minute)

	rec, err := repo.Transition(ctx, "u1", "c1", Transition{
		To:           AnalysisProcessing,
		At:           at,
		FilePath:     strPtr("calls/u1/s1/c1/rec.wav"),
		MarkUploaded: true,
	})
	if err != nil {
		t.Fatalf("Transition processing: %v", err)
	}
	if rec.Status != StatusUploaded || rec.UploadedAt == nil || !rec.UploadedAt.Equal(at) {
		t.Fatalf("expected uploaded at %s, got %+v", at, rec)
	}
	if rec.FilePath != "calls/u1/s1/c1/rec.wav" {
		t.Fatalf("unexpected file path %q", rec.FilePath)
	}

	rec, err = repo.Transition(ctx, "u1", "c1", Transition{
		To:           AnalysisFailed,
		At:           at,
		ErrorMessage: strPtr("analysis service returned 500"),
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if !rec.UpdatedAt.After(at) {
		t.Fatalf("expected updatedAt to advance past %s, got %s", at, rec.UpdatedAt)
	}

	if _, err := repo.Transition(ctx, "u1", "c1", Transition{To: AnalysisProcessing, At: at.Add(time.Minute)}); err != nil {
		t.Fatalf("retry to processing: %v", err)
	}
	rec, err = repo.Transition(ctx, "u1", "c1", Transition{
		To:     AnalysisCompleted,
		At:     at.Add(2 * time.Minute),
		Result: json.RawMessage(`{"summary":"ok"}`),
	})
	if err != nil {
		t.Fatalf("Transition completed: %v", err)
	}
	if rec.ErrorMessage != "" {
		t.Fatalf("expected error message cleared on completion, got %q", rec.ErrorMessage)
	}
	if string(rec.AnalysisResult) != `{"summary":"ok"}` {
		t.Fatalf("unexpected result %s", rec.AnalysisResult)
	}
	if rec.Status != StatusUploaded {
		t.Fatalf("upload status must survive later transitions, got %s", rec.Status)
	}
}

func TestMemoryRepoTransitionConflictAndMissing(t *testing.T) {
	repo := NewMemoryRepo()
	seedRecord(t, repo, AnalysisCompleted)
	ctx := context.Background()

	if _, err := repo.Transition(ctx, "u1", "c1", Transition{To: AnalysisProcessing}); !errors.Is(err, ErrTransitionConflict) {
		t.Fatalf("expected ErrTransitionConflict, got %v", err)
	}
	if _, err := repo.Transition(ctx, "u1", "missing", Transition{To: AnalysisProcessing}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoTransitionSingleWinner(t *testing.T) {
	repo := NewMemoryRepo()
	seedRecord(t, repo, AnalysisPending)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Transition(context.Background(), "u1", "c1", Transition{To: AnalysisProcessing}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestMemoryRepoListByUser(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := CallRecord{CallID: id, UserID: "u1", SeniorID: "s1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Create(ctx, CallRecord{CallID: "x", UserID: "u2"}); err != nil {
		t.Fatalf("Create other user: %v", err)
	}

	got, err := repo.ListByUser(ctx, "u1", 2, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 || got[0].CallID != "c" || got[1].CallID != "b" {
		t.Fatalf("unexpected page %+v", got)
	}
	got, _ = repo.ListByUser(ctx, "u1", 2, 5)
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %d", len(got))
	}
}

func TestMemoryRepoSummaryExpiry(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.PutSummary(ctx, PublicSummary{CallID: "c1", IsPublic: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}
	if _, err := repo.GetSummary(ctx, "c1", now.Add(30*time.Minute)); err != nil {
		t.Fatalf("GetSummary before expiry: %v", err)
	}
	if _, err := repo.GetSummary(ctx, "c1", now.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}
