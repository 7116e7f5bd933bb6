package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicecare-backend/internal/analysis"
	"voicecare-backend/internal/calls"
	"voicecare-backend/internal/events"
	"voicecare-backend/internal/shared/metrics"
	"voicecare-backend/internal/shared/telemetry"
	"voicecare-backend/internal/storagepath"
)

const (
	msgNotConfigured  = "analysis service URL not configured"
	finalWriteTimeout = 10 * time.Second
	defaultSummaryTTL = 30 * 24 * time.Hour
	triggerFinalize   = "finalize"
	triggerReplay     = "replay"
	triggerCallback   = "callback"
)

var (
	// ErrNothingToReplay is returned for records that never received a file.
	ErrNothingToReplay = errors.New("call has no stored recording")
	// ErrCallbackMismatch is returned when a callback names another analysis.
	ErrCallbackMismatch = errors.New("callback analysis id does not match")
)

// CallStore is the subset of the record store the relay drives.
type CallStore interface {
	Get(ctx context.Context, userID, callID string) (calls.CallRecord, error)
	Transition(ctx context.Context, userID, callID string, t calls.Transition) (calls.CallRecord, error)
}

// SummaryStore receives public summaries of completed analyses.
type SummaryStore interface {
	PutSummary(ctx context.Context, summary calls.PublicSummary) error
}

// Notifier is told about completed analyses.
type Notifier interface {
	AnalysisCompleted(ctx context.Context, rec calls.CallRecord, result analysis.Result) error
}

// Service relays finalized recordings to the analysis service and records
// the outcome on the call record.
type Service struct {
	Calls     CallStore
	Summaries SummaryStore
	// Analyzer is nil when no analysis service is configured.
	Analyzer analysis.Analyzer
	Notifier Notifier
	// URIFor resolves stored file paths for replays.
	URIFor     func(key string) string
	Now        func() time.Time
	SummaryTTL time.Duration
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleFinalize processes one storage finalize event. Routing no-ops and
// missing records return a nil error; failures past that point are recorded
// on the call record. Nothing is retried.
func (s *Service) HandleFinalize(ctx context.Context, ev events.Finalize) (Outcome, error) {
	metrics.IncEventsReceived()
	ref, err := storagepath.Parse(ev.Key)
	if err != nil {
		switch {
		case errors.Is(err, storagepath.ErrNotApplicable), errors.Is(err, storagepath.ErrDerivedArtifact):
			metrics.IncOutcome(string(OutcomeIgnored))
			return OutcomeIgnored, nil
		default:
			telemetry.Warn("relay.malformed_key", map[string]any{
				"key":    ev.Key,
				"bucket": ev.Bucket,
				"error":  err,
			})
			metrics.IncOutcome(string(OutcomeMalformed))
			return OutcomeMalformed, nil
		}
	}
	return s.process(ctx, ref, ev.StorageURI(), triggerFinalize)
}

// Replay re-drives a stored recording, e.g. after a failure or once the
// analysis service is configured. In-flight and completed records are left alone.
func (s *Service) Replay(ctx context.Context, userID, callID string) (Outcome, error) {
	rec, err := s.Calls.Get(ctx, userID, callID)
	if err != nil {
		return OutcomeError, err
	}
	if rec.FilePath == "" {
		return OutcomeError, ErrNothingToReplay
	}
	ref, err := storagepath.Parse(rec.FilePath)
	if err != nil {
		return OutcomeError, fmt.Errorf("stored file path: %w", err)
	}
	uri := "file://" + rec.FilePath
	if s.URIFor != nil {
		uri = s.URIFor(rec.FilePath)
	}
	return s.process(ctx, ref, uri, triggerReplay)
}

func (s *Service) process(ctx context.Context, ref storagepath.Ref, uri, trigger string) (out Outcome, err error) {
	var resolved bool
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("relay panic: %v", r)
			telemetry.Error("relay.panic", map[string]any{
				"call_id": ref.CallID,
				"trigger": trigger,
				"error":   err,
			})
			out = OutcomeError
			if resolved {
				out = s.functionFailed(ctx, ref, err)
			}
		}
		metrics.IncOutcome(string(out))
	}()

	fields := map[string]any{
		"call_id":   ref.CallID,
		"senior_id": ref.SeniorID,
		"key":       ref.Key,
		"trigger":   trigger,
	}

	rec, err := s.Calls.Get(ctx, ref.UserID, ref.CallID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			telemetry.Warn("relay.record_missing", fields)
			return OutcomeRecordMissing, nil
		}
		fields["error"] = err
		telemetry.Error("relay.record_lookup_failed", fields)
		return OutcomeError, err
	}
	resolved = true

	if rec.AnalysisStatus.Busy() {
		fields["analysis_status"] = string(rec.AnalysisStatus)
		telemetry.Info("relay.duplicate", fields)
		return OutcomeDuplicate, nil
	}

	from := rec.AnalysisStatus
	key := ref.Key
	rec, err = s.Calls.Transition(ctx, ref.UserID, ref.CallID, calls.Transition{
		To:           calls.AnalysisProcessing,
		At:           s.now(),
		FilePath:     &key,
		MarkUploaded: true,
	})
	switch {
	case errors.Is(err, calls.ErrTransitionConflict):
		telemetry.Info("relay.duplicate", fields)
		return OutcomeDuplicate, nil
	case errors.Is(err, calls.ErrNotFound):
		telemetry.Warn("relay.record_missing", fields)
		return OutcomeRecordMissing, nil
	case err != nil:
		return s.functionFailed(ctx, ref, err), err
	}
	logTransition(rec, from, nil)

	if s.Analyzer == nil {
		s.finish(ctx, rec, calls.Transition{To: calls.AnalysisPendingConfig, ErrorMessage: strPtr(msgNotConfigured)})
		return OutcomePendingConfig, nil
	}

	metrics.IncAnalysisStarted()
	started := time.Now()
	resp, err := s.Analyzer.Analyze(ctx, analysis.Request{
		StorageURI: uri,
		FileName:   ref.FileName,
		UserID:     ref.UserID,
		SeniorID:   ref.SeniorID,
		CallID:     ref.CallID,
	})
	metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
	if err != nil {
		metrics.IncAnalysisFailed()
		s.finish(ctx, rec, calls.Transition{To: calls.AnalysisFailed, ErrorMessage: strPtr(err.Error())})
		return OutcomeFailed, nil
	}

	if resp.Accepted {
		id := resp.AnalysisID
		s.finish(ctx, rec, calls.Transition{To: calls.AnalysisAIProcessing, AIRequestID: &id})
		return OutcomeAccepted, nil
	}
	return s.complete(ctx, rec, resp.Body, resp.Result)
}

// CallbackInput is an asynchronous result posted by the analysis service.
type CallbackInput struct {
	UserID     string
	CallID     string
	AnalysisID string
	Result     json.RawMessage
	Error      string
}

// CompleteAsync finishes a record left in ai_processing by an accepted request.
func (s *Service) CompleteAsync(ctx context.Context, in CallbackInput) (out Outcome, err error) {
	var resolved bool
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("relay panic: %v", r)
			telemetry.Error("relay.panic", map[string]any{"call_id": in.CallID, "trigger": triggerCallback, "error": err})
			out = OutcomeError
			if resolved {
				out = s.functionFailed(ctx, storagepath.Ref{UserID: in.UserID, CallID: in.CallID}, err)
			}
		}
		metrics.IncOutcome(string(out))
	}()

	rec, err := s.Calls.Get(ctx, in.UserID, in.CallID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			telemetry.Warn("relay.record_missing", map[string]any{"call_id": in.CallID, "trigger": triggerCallback})
			return OutcomeRecordMissing, nil
		}
		return OutcomeError, err
	}
	resolved = true
	if rec.AnalysisStatus != calls.AnalysisAIProcessing {
		telemetry.Info("relay.duplicate", map[string]any{
			"call_id":         in.CallID,
			"trigger":         triggerCallback,
			"analysis_status": string(rec.AnalysisStatus),
		})
		return OutcomeDuplicate, nil
	}
	if in.AnalysisID != "" && rec.AIRequestID != "" && in.AnalysisID != rec.AIRequestID {
		return OutcomeError, ErrCallbackMismatch
	}

	if in.Error != "" {
		metrics.IncAnalysisFailed()
		s.finish(ctx, rec, calls.Transition{To: calls.AnalysisFailed, ErrorMessage: strPtr(in.Error)})
		return OutcomeFailed, nil
	}
	result, err := analysis.Decode(in.Result)
	if err != nil {
		metrics.IncAnalysisFailed()
		s.finish(ctx, rec, calls.Transition{To: calls.AnalysisFailed, ErrorMessage: strPtr(err.Error())})
		return OutcomeFailed, nil
	}
	return s.complete(ctx, rec, in.Result, result)
}

func (s *Service) complete(ctx context.Context, rec calls.CallRecord, body json.RawMessage, result analysis.Result) (Outcome, error) {
	done, err := s.finish(ctx, rec, calls.Transition{To: calls.AnalysisCompleted, Result: body})
	if err != nil {
		return OutcomeCompleted, err
	}
	metrics.IncAnalysisCompleted()
	s.publishSummary(ctx, done, body, result)
	if s.Notifier != nil {
		if err := s.Notifier.AnalysisCompleted(ctx, done, result); err != nil {
			telemetry.Warn("relay.notify_failed", map[string]any{
				"call_id": done.CallID,
				"error":   err,
			})
		}
	}
	return OutcomeCompleted, nil
}

func (s *Service) publishSummary(ctx context.Context, rec calls.CallRecord, body json.RawMessage, result analysis.Result) {
	if s.Summaries == nil {
		return
	}
	ttl := s.SummaryTTL
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	now := s.now()
	err := s.Summaries.PutSummary(ctx, calls.PublicSummary{
		CallID:         rec.CallID,
		UserID:         rec.UserID,
		SeniorID:       rec.SeniorID,
		Headline:       result.Headline(),
		EmotionalState: result.EmotionalState,
		Confidence:     result.Confidence,
		IsPublic:       true,
		AnalysisResult: body,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	})
	if err != nil {
		telemetry.Warn("relay.summary_write_failed", map[string]any{
			"call_id": rec.CallID,
			"error":   err,
		})
	}
}

// finish performs a terminal (or hand-off) write. It outlives ctx so a
// cancelled invocation still records where it stopped; a failed write is
// logged as a discrepancy and not retried.
func (s *Service) finish(ctx context.Context, rec calls.CallRecord, t calls.Transition) (calls.CallRecord, error) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	if t.At.IsZero() {
		t.At = s.now()
	}
	next, err := s.Calls.Transition(writeCtx, rec.UserID, rec.CallID, t)
	if err != nil {
		telemetry.Error("relay.final_write_failed", map[string]any{
			"call_id":           rec.CallID,
			"status_transition": string(rec.AnalysisStatus) + "->" + string(t.To),
			"error":             err,
		})
		return rec, err
	}
	logTransition(next, rec.AnalysisStatus, t.ErrorMessage)
	return next, nil
}

func (s *Service) functionFailed(ctx context.Context, ref storagepath.Ref, cause error) Outcome {
	rec, err := s.Calls.Get(context.WithoutCancel(ctx), ref.UserID, ref.CallID)
	if err != nil {
		telemetry.Error("relay.final_write_failed", map[string]any{
			"call_id": ref.CallID,
			"error":   err,
		})
		return OutcomeFunctionFailed
	}
	s.finish(ctx, rec, calls.Transition{To: calls.AnalysisFunctionFailed, ErrorMessage: strPtr(cause.Error())})
	return OutcomeFunctionFailed
}

func logTransition(rec calls.CallRecord, from calls.AnalysisStatus, errMsg *string) {
	fields := map[string]any{
		"call_id":           rec.CallID,
		"senior_id":         rec.SeniorID,
		"status_transition": string(from) + "->" + string(rec.AnalysisStatus),
	}
	if errMsg != nil {
		fields["error_message"] = *errMsg
	}
	if rec.AnalysisStatus == calls.AnalysisFailed || rec.AnalysisStatus == calls.AnalysisFunctionFailed {
		telemetry.Error("relay.status", fields)
		return
	}
	telemetry.Info("relay.status", fields)
}

func strPtr(s string) *string { return &s }
