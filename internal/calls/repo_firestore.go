package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection          = "users"
	callsCollection          = "calls"
	publicAnalysesCollection = "publicAnalyses"
)

// FirestoreRepo implements Repo and SummaryRepo on Cloud Firestore, keeping
// records at users/{userId}/calls/{callId}.
type FirestoreRepo struct {
	Client *firestore.Client
}

type callDoc struct {
	CallID         string         `firestore:"callId"`
	UserID         string         `firestore:"userId"`
	SeniorID       string         `firestore:"seniorId"`
	FileName       string         `firestore:"fileName,omitempty"`
	FilePath       string         `firestore:"filePath,omitempty"`
	ContentType    string         `firestore:"contentType,omitempty"`
	SizeBytes      int64          `firestore:"sizeBytes,omitempty"`
	Status         string         `firestore:"status"`
	AnalysisStatus string         `firestore:"analysisStatus"`
	AnalysisResult map[string]any `firestore:"analysisResult,omitempty"`
	ErrorMessage   string         `firestore:"errorMessage,omitempty"`
	AIRequestID    string         `firestore:"aiRequestId,omitempty"`
	UploadedAt     *time.Time     `firestore:"uploadedAt,omitempty"`
	CreatedAt      time.Time      `firestore:"createdAt"`
	UpdatedAt      time.Time      `firestore:"updatedAt"`
}

type summaryDoc struct {
	CallID         string         `firestore:"callId"`
	UserID         string         `firestore:"userId"`
	SeniorID       string         `firestore:"seniorId"`
	Headline       string         `firestore:"headline"`
	EmotionalState string         `firestore:"emotionalState,omitempty"`
	Confidence     *float64       `firestore:"confidence,omitempty"`
	IsPublic       bool           `firestore:"isPublic"`
	AnalysisResult map[string]any `firestore:"analysisResult,omitempty"`
	CreatedAt      time.Time      `firestore:"createdAt"`
	ExpiresAt      time.Time      `firestore:"expiresAt"`
}

func (r *FirestoreRepo) callRef(userID, callID string) *firestore.DocumentRef {
	return r.Client.Collection(usersCollection).Doc(userID).Collection(callsCollection).Doc(callID)
}

// Create writes a new record document.
func (r *FirestoreRepo) Create(ctx context.Context, record CallRecord) error {
	doc, err := toCallDoc(record)
	if err != nil {
		return err
	}
	if _, err := r.callRef(record.UserID, record.CallID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Get reads a record document.
func (r *FirestoreRepo) Get(ctx context.Context, userID, callID string) (CallRecord, error) {
	snap, err := r.callRef(userID, callID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	var doc callDoc
	if err := snap.DataTo(&doc); err != nil {
		return CallRecord{}, fmt.Errorf("decode call %s: %w", callID, err)
	}
	return doc.toRecord(), nil
}

// ListByUser returns a user's records, newest first.
func (r *FirestoreRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.Client.Collection(usersCollection).Doc(userID).Collection(callsCollection).
		OrderBy("createdAt", firestore.Desc).
		Offset(offset).
		Limit(limit)
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]CallRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc callDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode call %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toRecord())
	}
	return out, nil
}

// Transition reads and conditionally updates the record inside a Firestore
// transaction, so concurrent invocations cannot both claim it.
func (r *FirestoreRepo) Transition(ctx context.Context, userID, callID string, t Transition) (CallRecord, error) {
	ref := r.callRef(userID, callID)
	var out CallRecord
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var doc callDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode call %s: %w", callID, err)
		}
		next, err := applyTransition(doc.toRecord(), t)
		if err != nil {
			return err
		}
		updates, err := transitionUpdates(next, t)
		if err != nil {
			return err
		}
		out = next
		return tx.Update(ref, updates)
	})
	if err != nil {
		return CallRecord{}, err
	}
	return out, nil
}

// transitionUpdates lists only the fields a transition touches, leaving
// fields written by other clients intact.
func transitionUpdates(next CallRecord, t Transition) ([]firestore.Update, error) {
	updates := []firestore.Update{
		{Path: "analysisStatus", Value: string(next.AnalysisStatus)},
		{Path: "updatedAt", Value: next.UpdatedAt},
	}
	if t.FilePath != nil {
		updates = append(updates, firestore.Update{Path: "filePath", Value: next.FilePath})
	}
	if t.MarkUploaded {
		updates = append(updates,
			firestore.Update{Path: "status", Value: string(next.Status)},
			firestore.Update{Path: "uploadedAt", Value: *next.UploadedAt},
		)
	}
	if t.Result != nil {
		result, err := resultMap(t.Result)
		if err != nil {
			return nil, err
		}
		updates = append(updates, firestore.Update{Path: "analysisResult", Value: result})
	}
	if t.To == AnalysisCompleted {
		updates = append(updates, firestore.Update{Path: "errorMessage", Value: firestore.Delete})
	} else if t.ErrorMessage != nil {
		updates = append(updates, firestore.Update{Path: "errorMessage", Value: next.ErrorMessage})
	}
	if t.AIRequestID != nil {
		updates = append(updates, firestore.Update{Path: "aiRequestId", Value: next.AIRequestID})
	}
	return updates, nil
}

// PutSummary overwrites publicAnalyses/{callId}.
func (r *FirestoreRepo) PutSummary(ctx context.Context, summary PublicSummary) error {
	result, err := resultMap(summary.AnalysisResult)
	if err != nil {
		return err
	}
	doc := summaryDoc{
		CallID:         summary.CallID,
		UserID:         summary.UserID,
		SeniorID:       summary.SeniorID,
		Headline:       summary.Headline,
		EmotionalState: summary.EmotionalState,
		Confidence:     summary.Confidence,
		IsPublic:       summary.IsPublic,
		AnalysisResult: result,
		CreatedAt:      summary.CreatedAt,
		ExpiresAt:      summary.ExpiresAt,
	}
	_, err = r.Client.Collection(publicAnalysesCollection).Doc(summary.CallID).Set(ctx, doc)
	return err
}

// GetSummary reads publicAnalyses/{callId}, treating expired documents as missing.
func (r *FirestoreRepo) GetSummary(ctx context.Context, callID string, now time.Time) (PublicSummary, error) {
	snap, err := r.Client.Collection(publicAnalysesCollection).Doc(callID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return PublicSummary{}, ErrNotFound
		}
		return PublicSummary{}, err
	}
	var doc summaryDoc
	if err := snap.DataTo(&doc); err != nil {
		return PublicSummary{}, fmt.Errorf("decode summary %s: %w", callID, err)
	}
	summary := PublicSummary{
		CallID:         doc.CallID,
		UserID:         doc.UserID,
		SeniorID:       doc.SeniorID,
		Headline:       doc.Headline,
		EmotionalState: doc.EmotionalState,
		Confidence:     doc.Confidence,
		IsPublic:       doc.IsPublic,
		CreatedAt:      doc.CreatedAt,
		ExpiresAt:      doc.ExpiresAt,
	}
	if doc.AnalysisResult != nil {
		if raw, err := json.Marshal(doc.AnalysisResult); err == nil {
			summary.AnalysisResult = raw
		}
	}
	if summary.Expired(now) {
		return PublicSummary{}, ErrNotFound
	}
	return summary, nil
}

func toCallDoc(rec CallRecord) (callDoc, error) {
	result, err := resultMap(rec.AnalysisResult)
	if err != nil {
		return callDoc{}, err
	}
	return callDoc{
		CallID:         rec.CallID,
		UserID:         rec.UserID,
		SeniorID:       rec.SeniorID,
		FileName:       rec.FileName,
		FilePath:       rec.FilePath,
		ContentType:    rec.ContentType,
		SizeBytes:      rec.SizeBytes,
		Status:         string(rec.Status),
		AnalysisStatus: string(rec.AnalysisStatus.normalize()),
		AnalysisResult: result,
		ErrorMessage:   rec.ErrorMessage,
		AIRequestID:    rec.AIRequestID,
		UploadedAt:     rec.UploadedAt,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}

func (d callDoc) toRecord() CallRecord {
	rec := CallRecord{
		CallID:         d.CallID,
		UserID:         d.UserID,
		SeniorID:       d.SeniorID,
		FileName:       d.FileName,
		FilePath:       d.FilePath,
		ContentType:    d.ContentType,
		SizeBytes:      d.SizeBytes,
		Status:         Status(d.Status),
		AnalysisStatus: AnalysisStatus(d.AnalysisStatus),
		ErrorMessage:   d.ErrorMessage,
		AIRequestID:    d.AIRequestID,
		UploadedAt:     d.UploadedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.AnalysisResult != nil {
		if raw, err := json.Marshal(d.AnalysisResult); err == nil {
			rec.AnalysisResult = raw
		}
	}
	return rec
}

// resultMap stores analysis payloads as native maps so they stay queryable.
func resultMap(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.New("analysis result is not a JSON object")
	}
	return out, nil
}

var (
	_ Repo        = (*FirestoreRepo)(nil)
	_ SummaryRepo = (*FirestoreRepo)(nil)
)
