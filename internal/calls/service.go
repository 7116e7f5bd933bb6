package calls

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"voicecare-backend/internal/shared/storage/object"
	"voicecare-backend/internal/shared/telemetry"
	"voicecare-backend/internal/shared/util"
	"voicecare-backend/internal/storagepath"
)

// Service accepts recordings and serves call records to their owners.
type Service struct {
	Repo      Repo
	Summaries SummaryRepo
	Store     object.ObjectStore
	Now       func() time.Time
	NewID     func() string
}

// UploadInput describes a recording submitted by a client.
type UploadInput struct {
	UserID      string
	SeniorID    string
	FileName    string
	ContentType string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Upload creates the pending record and then writes the recording to its
// canonical key. The finalize event raised by the write starts the analysis,
// so the record must exist first.
func (s *Service) Upload(ctx context.Context, in UploadInput, r io.Reader) (CallRecord, error) {
	userID := strings.TrimSpace(in.UserID)
	seniorID := strings.TrimSpace(in.SeniorID)
	if userID == "" || seniorID == "" {
		return CallRecord{}, fmt.Errorf("%w: userId and seniorId are required", ErrInvalidInput)
	}
	if strings.Contains(seniorID, "/") || strings.Contains(userID, "/") {
		return CallRecord{}, fmt.Errorf("%w: ids must not contain '/'", ErrInvalidInput)
	}
	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return CallRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.Contains(fileName, storagepath.DerivedMarker) {
		return CallRecord{}, fmt.Errorf("%w: file name is reserved", ErrInvalidInput)
	}

	now := s.now()
	record := CallRecord{
		CallID:         s.newID(),
		UserID:         userID,
		SeniorID:       seniorID,
		FileName:       fileName,
		ContentType:    in.ContentType,
		Status:         StatusPending,
		AnalysisStatus: AnalysisPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, record); err != nil {
		return CallRecord{}, fmt.Errorf("create call: %w", err)
	}

	key := storagepath.Build(userID, seniorID, record.CallID, fileName)
	size, contentType, err := s.Store.Put(ctx, key, in.ContentType, r)
	if err != nil {
		telemetry.Error("calls.upload_failed", map[string]any{
			"call_id": record.CallID,
			"key":     key,
			"error":   err,
		})
		return CallRecord{}, fmt.Errorf("store recording: %w", err)
	}
	record.SizeBytes = size
	record.ContentType = contentType

	telemetry.Info("calls.uploaded", map[string]any{
		"call_id":    record.CallID,
		"senior_id":  seniorID,
		"key":        key,
		"size_bytes": size,
	})
	return record, nil
}

// Get returns one of the user's call records.
func (s *Service) Get(ctx context.Context, userID, callID string) (CallRecord, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(callID) == "" {
		return CallRecord{}, ErrInvalidInput
	}
	return s.Repo.Get(ctx, userID, callID)
}

// List returns the user's call records, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// PublicSummary returns an unexpired, shareable summary.
func (s *Service) PublicSummary(ctx context.Context, callID string) (PublicSummary, error) {
	if strings.TrimSpace(callID) == "" {
		return PublicSummary{}, ErrInvalidInput
	}
	summary, err := s.Summaries.GetSummary(ctx, callID, s.now())
	if err != nil {
		return PublicSummary{}, err
	}
	if !summary.IsPublic {
		return PublicSummary{}, ErrNotFound
	}
	return summary, nil
}
