package events

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const gcsFinalizeEventType = "OBJECT_FINALIZE"

// ErrNotFinalize marks notifications for other object lifecycle events.
var ErrNotFinalize = errors.New("not an object finalize event")

// PushEnvelope is the body Pub/Sub push subscriptions POST.
type PushEnvelope struct {
	Message struct {
		Attributes map[string]string `json:"attributes"`
		Data       string            `json:"data"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type gcsObject struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// DecodePubSubPush parses a Cloud Storage notification delivered through a
// Pub/Sub push subscription.
func DecodePubSubPush(body []byte) (Finalize, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Finalize{}, fmt.Errorf("decode pubsub envelope: %w", err)
	}
	attrs := env.Message.Attributes
	if attrs == nil {
		return Finalize{}, errors.New("pubsub message has no attributes")
	}
	if eventType := attrs["eventType"]; eventType != "" && eventType != gcsFinalizeEventType {
		return Finalize{}, fmt.Errorf("%w: %s", ErrNotFinalize, eventType)
	}

	ev := Finalize{
		Provider: ProviderGCS,
		Bucket:   attrs["bucketId"],
		Key:      attrs["objectId"],
	}
	if env.Message.Data != "" {
		if raw, err := base64.StdEncoding.DecodeString(env.Message.Data); err == nil {
			var obj gcsObject
			if json.Unmarshal(raw, &obj) == nil {
				if ev.Bucket == "" {
					ev.Bucket = obj.Bucket
				}
				if ev.Key == "" {
					ev.Key = obj.Name
				}
				ev.Metadata = obj.Metadata
			}
		}
	}
	if ev.Key == "" {
		return Finalize{}, errors.New("pubsub message has no object name")
	}
	return ev, nil
}
