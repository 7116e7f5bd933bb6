package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"voicecare-backend/internal/events"
	"voicecare-backend/internal/queue"
	"voicecare-backend/internal/relay"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err      error
	finalize []events.Finalize
	replays  int
}

func (f *fakeProcessor) HandleFinalize(ctx context.Context, ev events.Finalize) (relay.Outcome, error) {
	f.finalize = append(f.finalize, ev)
	return relay.OutcomeCompleted, f.err
}

func (f *fakeProcessor) Replay(ctx context.Context, userID, callID string) (relay.Outcome, error) {
	f.replays++
	return relay.OutcomeCompleted, f.err
}

func message(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerHandlesS3NotificationAndDeletes(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}
	body := `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"voice"},"object":{"key":"calls/u1/s1/c1/a.wav"}}}]}`

	handleMessage(context.Background(), client, "queue", proc, "", message("m1", body))

	if len(proc.finalize) != 1 || proc.finalize[0].Key != "calls/u1/s1/c1/a.wav" {
		t.Fatalf("unexpected finalize events %+v", proc.finalize)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r-m1" {
		t.Fatalf("expected delete, got %v", client.deleted)
	}
}

func TestWorkerDeletesOnRelayFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: errors.New("boom")}
	body, _ := queue.EncodeMessage(queue.Message{UserID: "u1", CallID: "c1", RequestID: "req-2"})

	handleMessage(context.Background(), client, "queue", proc, "", message("m2", string(body)))

	if proc.replays != 1 {
		t.Fatalf("expected replay, got %d", proc.replays)
	}
	if len(client.deleted) != 1 {
		t.Fatalf("expected delete without retry, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}

	handleMessage(context.Background(), client, "queue", proc, "", message("m3", "{bad-json"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
	if len(proc.finalize) != 0 || proc.replays != 0 {
		t.Fatalf("expected no relay calls")
	}
}

func TestOutcomesString(t *testing.T) {
	got := outcomesString([]relay.Outcome{relay.OutcomeCompleted, relay.OutcomeDuplicate})
	if got != "completed,duplicate" {
		t.Fatalf("unexpected %q", got)
	}
}
