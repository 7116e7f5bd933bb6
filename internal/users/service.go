package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

const maxTokenLength = 4096

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}

// PushToken returns the user's registered token, or "" when none is stored.
func (s *Service) PushToken(ctx context.Context, userID string) (string, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return user.FCMToken, nil
}

// RegisterPushToken stores token for userID, replacing any previous one.
func (s *Service) RegisterPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if strings.TrimSpace(userID) == "" || token == "" || len(token) > maxTokenLength {
		return ErrInvalidInput
	}
	return s.Repo.SetPushToken(ctx, userID, token, s.now())
}

// ClearPushToken removes token if it is still the registered one.
func (s *Service) ClearPushToken(ctx context.Context, userID, token string) (bool, error) {
	if strings.TrimSpace(userID) == "" || token == "" {
		return false, ErrInvalidInput
	}
	return s.Repo.ClearPushToken(ctx, userID, token, s.now())
}

// UnregisterPushToken removes whatever token is registered for userID.
func (s *Service) UnregisterPushToken(ctx context.Context, userID string) error {
	token, err := s.PushToken(ctx, userID)
	if err != nil || token == "" {
		return err
	}
	_, err = s.Repo.ClearPushToken(ctx, userID, token, s.now())
	return err
}
