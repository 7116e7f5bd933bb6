package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"voicecare-backend/internal/events"
	"voicecare-backend/internal/queue"
	"voicecare-backend/internal/relay"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnknownMessage indicates JSON that is neither an S3 notification nor a
// replay request.
type ErrUnknownMessage struct {
	Meta MessageMeta
}

func (e ErrUnknownMessage) Error() string { return "unrecognized message" }

// ErrProcess indicates the relay failed after successful parsing.
type ErrProcess struct {
	CallID    string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process message"
	}
	return "process message: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Job is a decoded queue message: either storage finalize events or a
// replay request.
type Job struct {
	Finalize []events.Finalize
	Replay   *queue.Message
}

// Processor is the relay surface the worker drives.
type Processor interface {
	HandleFinalize(ctx context.Context, ev events.Finalize) (relay.Outcome, error)
	Replay(ctx context.Context, userID, callID string) (relay.Outcome, error)
}

// ParseMessage validates and decodes the queue payload. keyPrefix is the
// deployment key prefix stripped from S3 keys.
func ParseMessage(body, keyPrefix string) (Job, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return Job{}, meta, ErrEmptyBody{Meta: meta}
	}

	var probe struct {
		Records json.RawMessage `json:"Records"`
		Event   string          `json:"Event"`
		CallID  string          `json:"callId"`
	}
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		return Job{}, meta, ErrDecode{Meta: meta, Err: err}
	}

	switch {
	case len(probe.Records) > 0 || probe.Event != "":
		evs, err := events.DecodeS3Notification([]byte(body), keyPrefix)
		if err != nil {
			return Job{}, meta, ErrDecode{Meta: meta, Err: err}
		}
		return Job{Finalize: evs}, meta, nil
	case probe.CallID != "":
		msg, err := queue.DecodeMessage([]byte(body))
		if err != nil {
			return Job{}, meta, ErrDecode{Meta: meta, Err: err}
		}
		if strings.TrimSpace(msg.UserID) == "" {
			return Job{}, meta, ErrUnknownMessage{Meta: meta}
		}
		return Job{Replay: &msg}, meta, nil
	default:
		return Job{}, meta, ErrUnknownMessage{Meta: meta}
	}
}

// HandleJob runs a decoded job through the relay. Every event is attempted;
// the first relay error is returned. Outcomes are recorded on the call
// records, so callers acknowledge the message either way.
func HandleJob(ctx context.Context, proc Processor, job Job) ([]relay.Outcome, error) {
	if proc == nil {
		return nil, errors.New("relay not configured")
	}
	if job.Replay != nil {
		out, err := proc.Replay(ctx, job.Replay.UserID, job.Replay.CallID)
		if err != nil {
			return []relay.Outcome{out}, ErrProcess{CallID: job.Replay.CallID, RequestID: job.Replay.RequestID, Err: err}
		}
		return []relay.Outcome{out}, nil
	}

	outcomes := make([]relay.Outcome, 0, len(job.Finalize))
	var firstErr error
	for _, ev := range job.Finalize {
		out, err := proc.HandleFinalize(ctx, ev)
		outcomes = append(outcomes, out)
		if err != nil && firstErr == nil {
			firstErr = ErrProcess{Err: err}
		}
	}
	return outcomes, firstErr
}

// HandleMessage parses and processes a message payload.
func HandleMessage(ctx context.Context, proc Processor, keyPrefix, body string) ([]relay.Outcome, error) {
	job, _, err := ParseMessage(body, keyPrefix)
	if err != nil {
		return nil, err
	}
	return HandleJob(ctx, proc, job)
}
