package events

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeS3NotificationFiltersAndDecodesKeys(t *testing.T) {
	body := []byte(`{"Records":[
		{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"voice"},"object":{"key":"env/calls/u1/s1/c1/my+call.wav","size":10}}},
		{"eventName":"ObjectRemoved:Delete","s3":{"bucket":{"name":"voice"},"object":{"key":"env/calls/u1/s1/c2/x.wav"}}}
	]}`)
	got, err := DecodeS3Notification(body, "env")
	if err != nil {
		t.Fatalf("DecodeS3Notification: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 finalize event, got %d", len(got))
	}
	if got[0].Key != "calls/u1/s1/c1/my call.wav" {
		t.Fatalf("unexpected key %q", got[0].Key)
	}
	if got[0].StorageURI() != "s3://voice/env/calls/u1/s1/c1/my call.wav" {
		t.Fatalf("unexpected uri %q", got[0].StorageURI())
	}
}

func TestDecodeS3NotificationTestEvent(t *testing.T) {
	got, err := DecodeS3Notification([]byte(`{"Service":"Amazon S3","Event":"s3:TestEvent"}`), "")
	if err != nil {
		t.Fatalf("DecodeS3Notification: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %d", len(got))
	}
	if _, err := DecodeS3Notification([]byte(`{`), ""); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDecodePubSubPush(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"b","name":"calls/u1/s1/c1/rec.wav","metadata":{"source":"app"}}`))
	body := []byte(`{"message":{"attributes":{"bucketId":"b","objectId":"calls/u1/s1/c1/rec.wav","eventType":"OBJECT_FINALIZE"},"data":"` + data + `","messageId":"1"},"subscription":"s"}`)

	ev, err := DecodePubSubPush(body)
	if err != nil {
		t.Fatalf("DecodePubSubPush: %v", err)
	}
	if ev.Key != "calls/u1/s1/c1/rec.wav" || ev.Bucket != "b" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["source"] != "app" {
		t.Fatalf("expected metadata from payload, got %v", ev.Metadata)
	}
	if ev.StorageURI() != "gs://b/calls/u1/s1/c1/rec.wav" {
		t.Fatalf("unexpected uri %q", ev.StorageURI())
	}
}

func TestDecodePubSubPushIgnoresOtherEvents(t *testing.T) {
	body := []byte(`{"message":{"attributes":{"bucketId":"b","objectId":"calls/u1/s1/c1/rec.wav","eventType":"OBJECT_DELETE"}}}`)
	if _, err := DecodePubSubPush(body); !errors.Is(err, ErrNotFinalize) {
		t.Fatalf("expected ErrNotFinalize, got %v", err)
	}
	if _, err := DecodePubSubPush([]byte(`{"message":{}}`)); err == nil {
		t.Fatalf("expected error for missing attributes")
	}
}

func TestTrimKeyPrefix(t *testing.T) {
	tests := []struct {
		key, prefix, want string
	}{
		{"calls/a", "", "calls/a"},
		{"env/calls/a", "env", "calls/a"},
		{"env/calls/a", "/env/", "calls/a"},
		{"other/calls/a", "env", "other/calls/a"},
	}
	for _, tt := range tests {
		if got := TrimKeyPrefix(tt.key, tt.prefix); got != tt.want {
			t.Fatalf("TrimKeyPrefix(%q, %q) = %q, want %q", tt.key, tt.prefix, got, tt.want)
		}
	}
}
