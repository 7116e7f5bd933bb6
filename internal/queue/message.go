package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current replay message schema.
const MessageVersion = 1

// Message asks a relay worker to re-drive one call's stored recording.
type Message struct {
	UserID     string `json:"userId"`
	CallID     string `json:"callId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewReplayMessage builds a message stamped with now.
func NewReplayMessage(userID, callID, requestID string, now time.Time) Message {
	return Message{
		UserID:     userID,
		CallID:     callID,
		RequestID:  requestID,
		EnqueuedAt: now.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
