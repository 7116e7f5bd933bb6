package calls

import (
	"context"
	"fmt"
	"time"
)

// Repo persists call records.
type Repo interface {
	Create(ctx context.Context, record CallRecord) error
	Get(ctx context.Context, userID, callID string) (CallRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error)
	// Transition atomically moves the record to t.To when the table allows it
	// from the stored status. It returns ErrTransitionConflict otherwise.
	Transition(ctx context.Context, userID, callID string, t Transition) (CallRecord, error)
}

// SummaryRepo persists public analysis summaries keyed by call ID.
type SummaryRepo interface {
	PutSummary(ctx context.Context, summary PublicSummary) error
	// GetSummary returns ErrNotFound for missing and expired summaries.
	GetSummary(ctx context.Context, callID string, now time.Time) (PublicSummary, error)
}

// applyTransition is the store-independent write rule shared by the memory
// and Firestore repos.
func applyTransition(rec CallRecord, t Transition) (CallRecord, error) {
	from := rec.AnalysisStatus.normalize()
	if !from.CanTransitionTo(t.To) {
		return rec, fmt.Errorf("%w: %s -> %s", ErrTransitionConflict, from, t.To)
	}
	rec.AnalysisStatus = t.To
	rec.UpdatedAt = nextUpdatedAt(rec.UpdatedAt, t.At)
	if t.FilePath != nil {
		rec.FilePath = *t.FilePath
	}
	if t.MarkUploaded {
		rec.Status = StatusUploaded
		at := t.At
		rec.UploadedAt = &at
	}
	if t.Result != nil {
		rec.AnalysisResult = append([]byte(nil), t.Result...)
	}
	if t.To == AnalysisCompleted {
		rec.ErrorMessage = ""
	} else if t.ErrorMessage != nil {
		rec.ErrorMessage = *t.ErrorMessage
	}
	if t.AIRequestID != nil {
		rec.AIRequestID = *t.AIRequestID
	}
	return rec, nil
}

// nextUpdatedAt keeps updatedAt strictly increasing across writes.
func nextUpdatedAt(prev, at time.Time) time.Time {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if !at.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return at
}
