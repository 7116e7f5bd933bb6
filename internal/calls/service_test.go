package calls

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type recordingStore struct {
	repo        *MemoryRepo
	puts        map[string]string
	seenPending bool
	err         error
}

func (s *recordingStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, string, error) {
	if s.err != nil {
		return 0, "", s.err
	}
	parts := strings.Split(key, "/")
	rec, err := s.repo.Get(ctx, parts[1], parts[3])
	s.seenPending = err == nil && rec.AnalysisStatus == AnalysisPending
	body, _ := io.ReadAll(r)
	if s.puts == nil {
		s.puts = map[string]string{}
	}
	s.puts[key] = string(body)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return int64(len(body)), contentType, nil
}

func (s *recordingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.puts[key])), nil
}

func (s *recordingStore) URI(key string) string { return "mem://" + key }

func newTestService() (*Service, *recordingStore) {
	repo := NewMemoryRepo()
	store := &recordingStore{repo: repo}
	fixed := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	return &Service{
		Repo:      repo,
		Summaries: repo,
		Store:     store,
		Now:       func() time.Time { return fixed },
		NewID:     func() string { return "call-1" },
	}, store
}

func TestUploadCreatesRecordBeforeWritingObject(t *testing.T) {
	svc, store := newTestService()

	rec, err := svc.Upload(context.Background(), UploadInput{
		UserID:      "u1",
		SeniorID:    "s1",
		FileName:    "morning call.wav",
		ContentType: "audio/wav",
	}, strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !store.seenPending {
		t.Fatalf("expected a pending record to exist when the object was written")
	}
	if _, ok := store.puts["calls/u1/s1/call-1/morning call.wav"]; !ok {
		t.Fatalf("expected object at canonical key, got %v", store.puts)
	}
	if rec.SizeBytes != 8 || rec.AnalysisStatus != AnalysisPending || rec.Status != StatusPending {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name string
		in   UploadInput
	}{
		{name: "missing senior", in: UploadInput{UserID: "u1", FileName: "a.wav"}},
		{name: "slash in senior", in: UploadInput{UserID: "u1", SeniorID: "s/1", FileName: "a.wav"}},
		{name: "traversal", in: UploadInput{UserID: "u1", SeniorID: "s1", FileName: "../a.wav"}},
		{name: "derived marker", in: UploadInput{UserID: "u1", SeniorID: "s1", FileName: "a_processed.wav"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.in, strings.NewReader("x"))
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestUploadStoreFailureLeavesPendingRecord(t *testing.T) {
	svc, store := newTestService()
	store.err = errors.New("disk full")

	if _, err := svc.Upload(context.Background(), UploadInput{UserID: "u1", SeniorID: "s1", FileName: "a.wav"}, strings.NewReader("x")); err == nil {
		t.Fatalf("expected store error")
	}
	rec, err := svc.Get(context.Background(), "u1", "call-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.AnalysisStatus != AnalysisPending {
		t.Fatalf("expected pending record, got %s", rec.AnalysisStatus)
	}
}

func TestPublicSummaryHidesPrivate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := svc.Now()
	if err := svc.Summaries.PutSummary(ctx, PublicSummary{CallID: "c1", IsPublic: false, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}
	if _, err := svc.PublicSummary(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for private summary, got %v", err)
	}
}
