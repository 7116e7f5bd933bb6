package calls

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var pgCallColumns = []string{
	"call_id", "user_id", "senior_id", "file_name", "file_path", "content_type", "size_bytes",
	"status", "analysis_status", "analysis_result", "error_message", "ai_request_id",
	"uploaded_at", "created_at", "updated_at",
}

func TestPGRepoCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO calls").
		WithArgs("c1", "u1", "s1", "rec.wav", "", "", int64(0), "pending", "pending", now, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Create(context.Background(), CallRecord{
		CallID:    "c1",
		UserID:    "u1",
		SeniorID:  "s1",
		FileName:  "rec.wav",
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoTransitionGuardsOnAllowedStatuses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	key := "calls/u1/s1/c1/rec.wav"

	rows := sqlmock.NewRows(pgCallColumns).AddRow(
		"c1", "u1", "s1", "rec.wav", key, "audio/wav", int64(10),
		"uploaded", "processing", nil, nil, nil,
		at, at, at,
	)
	mock.ExpectQuery(`UPDATE calls SET .* analysis_status IN \(\$11, \$12, \$13, \$14, \$15\)`).
		WithArgs(
			"u1", "c1", "processing", at,
			key,   // file_path
			true,  // mark uploaded
			nil,   // result
			false, // clear error
			nil,   // error message
			nil,   // ai request id
			"pending", "ai_processing", "failed", "pending_config", "function_failed",
		).
		WillReturnRows(rows)

	rec, err := repo.Transition(context.Background(), "u1", "c1", Transition{
		To:           AnalysisProcessing,
		At:           at,
		FilePath:     &key,
		MarkUploaded: true,
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if rec.AnalysisStatus != AnalysisProcessing || rec.Status != StatusUploaded || rec.UploadedAt == nil {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoTransitionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE calls SET").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM calls").
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows(pgCallColumns).AddRow(
			"c1", "u1", "s1", "rec.wav", "", "", int64(0),
			"uploaded", "completed", `{"summary":"done"}`, nil, nil,
			at, at, at,
		))

	_, err = repo.Transition(context.Background(), "u1", "c1", Transition{To: AnalysisProcessing, At: at})
	if !errors.Is(err, ErrTransitionConflict) {
		t.Fatalf("expected ErrTransitionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoTransitionMissingRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("UPDATE calls SET").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM calls").WithArgs("u1", "gone").WillReturnError(sql.ErrNoRows)

	_, err = repo.Transition(context.Background(), "u1", "gone", Transition{To: AnalysisProcessing, At: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetSummaryExpiredIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	mock.ExpectQuery("FROM public_analyses").WithArgs("c1", now).WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetSummary(context.Background(), "c1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
