package users

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores users in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) SetPushToken(ctx context.Context, userID, token string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		user = User{ID: userID, CreatedAt: at}
	}
	user.FCMToken = token
	user.FCMTokenUpdatedAt = &at
	user.UpdatedAt = at
	r.users[userID] = user
	return nil
}

func (r *MemoryRepo) ClearPushToken(ctx context.Context, userID, token string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok || user.FCMToken == "" || user.FCMToken != token {
		return false, nil
	}
	user.FCMToken = ""
	user.FCMTokenUpdatedAt = &at
	user.UpdatedAt = at
	r.users[userID] = user
	return true, nil
}
