package notify

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"voicecare-backend/internal/analysis"
	"voicecare-backend/internal/calls"
	"voicecare-backend/internal/shared/metrics"
	"voicecare-backend/internal/shared/telemetry"
	"voicecare-backend/internal/shared/util"
)

const (
	// Title is the notification title for completed analyses.
	Title = "Voice analysis complete"
	// TypeAnalysisComplete is the data["type"] value clients route on.
	TypeAnalysisComplete = "analysis_complete"

	maxBodyRunes = 100
)

// ErrInvalidToken means the device token is no longer deliverable and should
// be removed.
var ErrInvalidToken = errors.New("push token is invalid or unregistered")

// Message is a single-device push.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a push message and returns the provider message ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// TokenStore resolves and invalidates device tokens.
type TokenStore interface {
	PushToken(ctx context.Context, userID string) (string, error)
	ClearPushToken(ctx context.Context, userID, token string) (bool, error)
}

// Dispatcher turns completed analyses into push notifications.
type Dispatcher struct {
	Tokens    TokenStore
	Sender    Sender
	WebAppURL string
	Now       func() time.Time
}

// AnalysisCompleted notifies the record's owner. A user without a token is a
// no-op. An invalid token is cleared. The returned error is informational;
// callers log it and move on.
func (d *Dispatcher) AnalysisCompleted(ctx context.Context, rec calls.CallRecord, result analysis.Result) error {
	if d == nil || d.Sender == nil || d.Tokens == nil {
		return nil
	}
	token, err := d.Tokens.PushToken(ctx, rec.UserID)
	if err != nil {
		metrics.IncNotificationFailed()
		return err
	}
	if token == "" {
		telemetry.Info("notify.skipped", map[string]any{
			"call_id": rec.CallID,
			"reason":  "no_token",
		})
		return nil
	}

	msg := d.buildMessage(token, rec, result)
	id, err := d.Sender.Send(ctx, msg)
	if err != nil {
		metrics.IncNotificationFailed()
		if errors.Is(err, ErrInvalidToken) {
			cleared, clearErr := d.Tokens.ClearPushToken(ctx, rec.UserID, token)
			if clearErr != nil {
				telemetry.Error("notify.token_clear_failed", map[string]any{
					"call_id":  rec.CallID,
					"user_key": userKey(rec.UserID),
					"error":    clearErr,
				})
			} else if cleared {
				metrics.IncPushTokenCleared()
				telemetry.Info("notify.token_cleared", map[string]any{
					"call_id":  rec.CallID,
					"user_key": userKey(rec.UserID),
				})
			}
		}
		return err
	}

	metrics.IncNotificationSent()
	telemetry.Info("notify.sent", map[string]any{
		"call_id":    rec.CallID,
		"message_id": id,
	})
	return nil
}

func (d *Dispatcher) buildMessage(token string, rec calls.CallRecord, result analysis.Result) Message {
	now := time.Now().UTC()
	if d.Now != nil {
		now = d.Now().UTC()
	}
	body := Truncate(result.Headline(), maxBodyRunes)
	analysisID := firstNonEmpty(result.AnalysisID, rec.AIRequestID, rec.CallID)
	return Message{
		Token: token,
		Title: Title,
		Body:  body,
		Data: map[string]string{
			"type":       TypeAnalysisComplete,
			"callId":     rec.CallID,
			"seniorId":   rec.SeniorID,
			"analysisId": analysisID,
			"summary":    body,
			"confidence": result.ConfidenceString(),
			"timestamp":  now.Format(time.RFC3339),
			"webUrl":     d.webURL(rec.CallID),
		},
	}
}

func (d *Dispatcher) webURL(callID string) string {
	base := strings.TrimRight(d.WebAppURL, "/")
	if base == "" {
		return ""
	}
	return base + "/calls/" + callID
}

// Truncate shortens s to at most max runes without splitting a character.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func userKey(userID string) string {
	return util.Fingerprint(userID, 12)
}
