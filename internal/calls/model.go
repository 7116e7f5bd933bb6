package calls

import (
	"encoding/json"
	"time"
)

// Status tracks whether the recording has landed in storage.
type Status string

const (
	StatusPending  Status = "pending"
	StatusUploaded Status = "uploaded"
)

// CallRecord is the per-recording document driven by the analysis relay.
type CallRecord struct {
	CallID         string          `json:"callId"`
	UserID         string          `json:"userId"`
	SeniorID       string          `json:"seniorId"`
	FileName       string          `json:"fileName,omitempty"`
	FilePath       string          `json:"filePath,omitempty"`
	ContentType    string          `json:"contentType,omitempty"`
	SizeBytes      int64           `json:"sizeBytes,omitempty"`
	Status         Status          `json:"status"`
	AnalysisStatus AnalysisStatus  `json:"analysisStatus"`
	AnalysisResult json.RawMessage `json:"analysisResult,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	AIRequestID    string          `json:"aiRequestId,omitempty"`
	UploadedAt     *time.Time      `json:"uploadedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Transition describes a conditional status write. Only To and At are
// required; nil fields leave the stored value untouched.
type Transition struct {
	To           AnalysisStatus
	At           time.Time
	FilePath     *string
	MarkUploaded bool
	Result       json.RawMessage
	ErrorMessage *string
	AIRequestID  *string
}

// PublicSummary is the denormalized, expiring copy of a completed analysis
// that can be shared without authentication.
type PublicSummary struct {
	CallID         string          `json:"callId"`
	UserID         string          `json:"userId"`
	SeniorID       string          `json:"seniorId"`
	Headline       string          `json:"headline"`
	EmotionalState string          `json:"emotionalState,omitempty"`
	Confidence     *float64        `json:"confidence,omitempty"`
	IsPublic       bool            `json:"isPublic"`
	AnalysisResult json.RawMessage `json:"analysisResult,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

// Expired reports whether the summary is past its watermark at now.
func (p PublicSummary) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}
