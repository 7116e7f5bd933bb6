package minio

import "testing"

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected missing endpoint error")
	}
}

func TestNewClientAndURI(t *testing.T) {
	client, err := NewClient(Options{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store := &Store{client: client, bucket: "voice-calls"}
	if got := store.URI("/calls/u1/s1/c1/rec.wav"); got != "s3://voice-calls/calls/u1/s1/c1/rec.wav" {
		t.Fatalf("unexpected uri %q", got)
	}
}
