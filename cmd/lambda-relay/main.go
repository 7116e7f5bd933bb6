package main

// Invoked directly by S3 object-created notifications.
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-relay

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"golang.org/x/sync/errgroup"

	"voicecare-backend/internal/bootstrap"
	relayevents "voicecare-backend/internal/events"
	"voicecare-backend/internal/relay"
	"voicecare-backend/internal/shared/config"
	"voicecare-backend/internal/shared/telemetry"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

type finalizeHandler interface {
	HandleFinalize(ctx context.Context, ev relayevents.Finalize) (relay.Outcome, error)
}

func handler(ctx context.Context, event events.S3Event) error {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_relay.bootstrap_failed", map[string]any{"error": initErr})
		return initErr
	}
	return handleEvent(ctx, app.Relay, app.KeyPrefix, app.Config.WorkerConcurrency, event)
}

// handleEvent relays every object-created record. It returns nil even when a
// relay fails so that S3 does not retry the invocation.
func handleEvent(ctx context.Context, h finalizeHandler, keyPrefix string, concurrency int, event events.S3Event) error {
	finals := relayevents.FromS3Event(event, keyPrefix)
	if concurrency <= 0 {
		concurrency = 1
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, ev := range finals {
		g.Go(func() error {
			outcome, err := h.HandleFinalize(ctx, ev)
			fields := map[string]any{"key": ev.Key, "outcome": string(outcome)}
			if err != nil {
				fields["error"] = err
				telemetry.Error("lambda_relay.relay_failed", fields)
				return nil
			}
			telemetry.Info("lambda_relay.relayed", fields)
			return nil
		})
	}
	return g.Wait()
}

func main() {
	lambda.Start(handler)
}
