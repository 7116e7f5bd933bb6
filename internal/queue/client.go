package queue

import "context"

// Client sends replay messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
