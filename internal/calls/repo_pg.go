package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo and SummaryRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const callColumns = `call_id, user_id, senior_id, file_name, file_path, content_type, size_bytes,
       status, analysis_status, analysis_result, error_message, ai_request_id,
       uploaded_at, created_at, updated_at`

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, record CallRecord) error {
	const query = `
INSERT INTO calls (
	call_id, user_id, senior_id, file_name, file_path, content_type, size_bytes,
	status, analysis_status, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id, call_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query,
		record.CallID,
		record.UserID,
		record.SeniorID,
		record.FileName,
		record.FilePath,
		record.ContentType,
		record.SizeBytes,
		string(record.Status),
		string(record.AnalysisStatus.normalize()),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get returns a record by owner and call ID.
func (r *PGRepo) Get(ctx context.Context, userID, callID string) (CallRecord, error) {
	query := `SELECT ` + callColumns + `
FROM calls
WHERE user_id = $1 AND call_id = $2
LIMIT 1`
	rec, err := scanCall(r.DB.QueryRowContext(ctx, query, userID, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return rec, nil
}

// ListByUser returns a user's records, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + callColumns + `
FROM calls
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CallRecord{}
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transition performs a conditional UPDATE guarded by the set of statuses
// allowed to reach t.To. No matching row means either a missing record or a
// lost race, which a follow-up read tells apart.
func (r *PGRepo) Transition(ctx context.Context, userID, callID string, t Transition) (CallRecord, error) {
	from := AllowedFrom(t.To)
	if len(from) == 0 {
		return CallRecord{}, fmt.Errorf("%w: nothing transitions to %s", ErrTransitionConflict, t.To)
	}
	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	args := []any{
		userID,
		callID,
		string(t.To),
		at,
		nullableString(t.FilePath),
		t.MarkUploaded,
		nullableJSON(t.Result),
		t.To == AnalysisCompleted,
		nullableString(t.ErrorMessage),
		nullableString(t.AIRequestID),
	}
	placeholders := make([]string, 0, len(from))
	for _, status := range from {
		args = append(args, string(status))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := `
UPDATE calls SET
	analysis_status = $3,
	updated_at = GREATEST($4::timestamptz, updated_at + interval '1 microsecond'),
	file_path = COALESCE($5::text, file_path),
	status = CASE WHEN $6::boolean THEN 'uploaded' ELSE status END,
	uploaded_at = CASE WHEN $6::boolean THEN $4::timestamptz ELSE uploaded_at END,
	analysis_result = COALESCE($7::jsonb, analysis_result),
	error_message = CASE WHEN $8::boolean THEN NULL ELSE COALESCE($9::text, error_message) END,
	ai_request_id = COALESCE($10::text, ai_request_id)
WHERE user_id = $1 AND call_id = $2 AND analysis_status IN (` + strings.Join(placeholders, ", ") + `)
RETURNING ` + callColumns

	rec, err := scanCall(r.DB.QueryRowContext(ctx, query, args...))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, err
	}
	current, getErr := r.Get(ctx, userID, callID)
	if getErr != nil {
		return CallRecord{}, getErr
	}
	return CallRecord{}, fmt.Errorf("%w: %s -> %s", ErrTransitionConflict, current.AnalysisStatus, t.To)
}

// PutSummary upserts a public summary.
func (r *PGRepo) PutSummary(ctx context.Context, summary PublicSummary) error {
	const query = `
INSERT INTO public_analyses (
	call_id, user_id, senior_id, headline, emotional_state, confidence,
	is_public, analysis_result, created_at, expires_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (call_id) DO UPDATE SET
	headline = EXCLUDED.headline,
	emotional_state = EXCLUDED.emotional_state,
	confidence = EXCLUDED.confidence,
	is_public = EXCLUDED.is_public,
	analysis_result = EXCLUDED.analysis_result,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at`
	var confidence any
	if summary.Confidence != nil {
		confidence = *summary.Confidence
	}
	_, err := r.DB.ExecContext(ctx, query,
		summary.CallID,
		summary.UserID,
		summary.SeniorID,
		summary.Headline,
		summary.EmotionalState,
		confidence,
		summary.IsPublic,
		nullableJSON(summary.AnalysisResult),
		summary.CreatedAt,
		summary.ExpiresAt,
	)
	return err
}

// GetSummary returns an unexpired public summary.
func (r *PGRepo) GetSummary(ctx context.Context, callID string, now time.Time) (PublicSummary, error) {
	const query = `
SELECT call_id, user_id, senior_id, headline, emotional_state, confidence,
       is_public, analysis_result, created_at, expires_at
FROM public_analyses
WHERE call_id = $1 AND expires_at > $2
LIMIT 1`
	var s PublicSummary
	var emotional sql.NullString
	var confidence sql.NullFloat64
	var result sql.NullString
	err := r.DB.QueryRowContext(ctx, query, callID, now).Scan(
		&s.CallID,
		&s.UserID,
		&s.SeniorID,
		&s.Headline,
		&emotional,
		&confidence,
		&s.IsPublic,
		&result,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PublicSummary{}, ErrNotFound
		}
		return PublicSummary{}, err
	}
	s.EmotionalState = emotional.String
	if confidence.Valid {
		v := confidence.Float64
		s.Confidence = &v
	}
	if result.Valid {
		s.AnalysisResult = []byte(result.String)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (CallRecord, error) {
	var rec CallRecord
	var status, analysisStatus string
	var result sql.NullString
	var errorMessage sql.NullString
	var aiRequestID sql.NullString
	var uploadedAt sql.NullTime
	err := row.Scan(
		&rec.CallID,
		&rec.UserID,
		&rec.SeniorID,
		&rec.FileName,
		&rec.FilePath,
		&rec.ContentType,
		&rec.SizeBytes,
		&status,
		&analysisStatus,
		&result,
		&errorMessage,
		&aiRequestID,
		&uploadedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return CallRecord{}, err
	}
	rec.Status = Status(status)
	rec.AnalysisStatus = AnalysisStatus(analysisStatus)
	if result.Valid {
		rec.AnalysisResult = []byte(result.String)
	}
	rec.ErrorMessage = errorMessage.String
	rec.AIRequestID = aiRequestID.String
	if uploadedAt.Valid {
		at := uploadedAt.Time
		rec.UploadedAt = &at
	}
	return rec, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var (
	_ Repo        = (*PGRepo)(nil)
	_ SummaryRepo = (*PGRepo)(nil)
)
