package notify

import (
	"context"

	"voicecare-backend/internal/shared/telemetry"
)

// NoopSender logs pushes instead of delivering them.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) (string, error) {
	telemetry.Info("notify.noop", map[string]any{
		"call_id": msg.Data["callId"],
		"body":    msg.Body,
	})
	return "noop", ctx.Err()
}
