package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores call records and public summaries in memory and is safe
// for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	records   map[string]CallRecord
	summaries map[string]PublicSummary
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		records:   make(map[string]CallRecord),
		summaries: make(map[string]PublicSummary),
	}
}

func recordKey(userID, callID string) string {
	return userID + "/" + callID
}

// Create stores a new record.
func (r *MemoryRepo) Create(ctx context.Context, record CallRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(record.UserID, record.CallID)
	if _, ok := r.records[key]; ok {
		return ErrAlreadyExists
	}
	r.records[key] = cloneRecord(record)
	return nil
}

// Get returns a record by owner and call ID.
func (r *MemoryRepo) Get(ctx context.Context, userID, callID string) (CallRecord, error) {
	if err := ctx.Err(); err != nil {
		return CallRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[recordKey(userID, callID)]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// ListByUser returns a user's records, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []CallRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, cloneRecord(rec))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []CallRecord{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Transition applies t under the write lock, which makes the status check
// and the write a single step.
func (r *MemoryRepo) Transition(ctx context.Context, userID, callID string, t Transition) (CallRecord, error) {
	if err := ctx.Err(); err != nil {
		return CallRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(userID, callID)
	rec, ok := r.records[key]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	next, err := applyTransition(rec, t)
	if err != nil {
		return CallRecord{}, err
	}
	r.records[key] = next
	return cloneRecord(next), nil
}

// PutSummary upserts a public summary.
func (r *MemoryRepo) PutSummary(ctx context.Context, summary PublicSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	summary.AnalysisResult = append([]byte(nil), summary.AnalysisResult...)
	r.summaries[summary.CallID] = summary
	return nil
}

// GetSummary returns an unexpired public summary.
func (r *MemoryRepo) GetSummary(ctx context.Context, callID string, now time.Time) (PublicSummary, error) {
	if err := ctx.Err(); err != nil {
		return PublicSummary{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary, ok := r.summaries[callID]
	if !ok || summary.Expired(now) {
		return PublicSummary{}, ErrNotFound
	}
	return summary, nil
}

func cloneRecord(rec CallRecord) CallRecord {
	if rec.AnalysisResult != nil {
		rec.AnalysisResult = append([]byte(nil), rec.AnalysisResult...)
	}
	if rec.UploadedAt != nil {
		at := *rec.UploadedAt
		rec.UploadedAt = &at
	}
	return rec
}

var (
	_ Repo        = (*MemoryRepo)(nil)
	_ SummaryRepo = (*MemoryRepo)(nil)
)
