package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"voicecare-backend/internal/bootstrap"
	"voicecare-backend/internal/shared/config"
	"voicecare-backend/internal/shared/telemetry"
	"voicecare-backend/internal/workerproc"
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

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleBatch(ctx, app.Relay, app.KeyPrefix, event), nil
}

// handleBatch never reports item failures: relay failures are recorded on the
// call records and a redelivery would start the analysis again.
func handleBatch(ctx context.Context, proc workerproc.Processor, keyPrefix string, event events.SQSEvent) events.SQSEventResponse {
	for _, record := range event.Records {
		outcomes, err := workerproc.HandleMessage(ctx, proc, keyPrefix, record.Body)
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"outcomes":       len(outcomes),
		}
		if err != nil {
			fields["error"] = err
			telemetry.Error("lambda_worker.message_failed", fields)
			continue
		}
		telemetry.Info("lambda_worker.message_handled", fields)
	}
	return events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}
}

func main() {
	lambda.Start(handler)
}
