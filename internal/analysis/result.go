package analysis

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// SchemaVersion is the result schema this relay understands. Results without
// a version are read as this one.
const SchemaVersion = "1"

// DefaultHeadline is used when a result carries no descriptive text.
const DefaultHeadline = "Your analysis is ready."

// ErrInvalidResult is returned for payloads that are not a JSON object.
var ErrInvalidResult = errors.New("analysis result is not a JSON object")

// Result is the typed view of an analysis payload. The payload itself is
// stored verbatim; Result only drives notifications and public summaries.
type Result struct {
	SchemaVersion            string   `json:"schema_version,omitempty"`
	AnalysisID               string   `json:"analysis_id,omitempty"`
	EmotionalState           string   `json:"emotional_state,omitempty"`
	Summary                  string   `json:"summary,omitempty"`
	HealthSummary            string   `json:"health_summary,omitempty"`
	Confidence               *float64 `json:"confidence,omitempty"`
	DepressionScore          *float64 `json:"depression_score,omitempty"`
	AnxietyScore             *float64 `json:"anxiety_score,omitempty"`
	CognitiveScore           *float64 `json:"cognitive_score,omitempty"`
	KeyConcerns              []string `json:"key_concerns,omitempty"`
	Recommendations          []string `json:"recommendations,omitempty"`
	SpeakerSeparationApplied bool     `json:"speaker_separation_applied,omitempty"`
	AnalyzedTextType         string   `json:"analyzed_text_type,omitempty"`
	Timestamp                string   `json:"timestamp,omitempty"`
}

// Decode reads the typed view out of a raw payload. Unknown fields are
// ignored and fields of an unexpected type are treated as absent.
func Decode(raw []byte) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Result{}, ErrInvalidResult
	}
	var r Result
	r.SchemaVersion = stringField(fields, "schema_version")
	if r.SchemaVersion == "" {
		r.SchemaVersion = SchemaVersion
	}
	r.AnalysisID = stringField(fields, "analysis_id")
	r.EmotionalState = stringField(fields, "emotional_state")
	r.Summary = stringField(fields, "summary")
	r.HealthSummary = stringField(fields, "health_summary")
	r.Confidence = floatField(fields, "confidence")
	r.DepressionScore = floatField(fields, "depression_score")
	r.AnxietyScore = floatField(fields, "anxiety_score")
	r.CognitiveScore = floatField(fields, "cognitive_score")
	r.KeyConcerns = stringsField(fields, "key_concerns")
	r.Recommendations = stringsField(fields, "recommendations")
	r.AnalyzedTextType = stringField(fields, "analyzed_text_type")
	r.Timestamp = stringField(fields, "timestamp")
	if v, ok := fields["speaker_separation_applied"]; ok {
		_ = json.Unmarshal(v, &r.SpeakerSeparationApplied)
	}
	return r, nil
}

// Headline picks the human-readable line shown to caregivers: the emotional
// state, then the summary, then the health summary, then DefaultHeadline.
func (r Result) Headline() string {
	for _, candidate := range []string{r.EmotionalState, r.Summary, r.HealthSummary} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return DefaultHeadline
}

// ConfidenceString renders confidence for string-only payloads, or "" when absent.
func (r Result) ConfidenceString() string {
	if r.Confidence == nil {
		return ""
	}
	return strconv.FormatFloat(*r.Confidence, 'f', -1, 64)
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func floatField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

func stringsField(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
