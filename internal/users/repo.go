package users

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Repo stores push tokens per user.
type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	SetPushToken(ctx context.Context, userID, token string, at time.Time) error
	// ClearPushToken removes the token only if it still equals token, so a
	// registration that raced a failed delivery survives.
	ClearPushToken(ctx context.Context, userID, token string, at time.Time) (bool, error)
}
