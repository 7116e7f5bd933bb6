package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	devSecret  = "dev-secret"
	defaultTTL = 24 * time.Hour
)

var (
	errMissingSecret = errors.New("jwt secret not configured")
	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Verifier resolves bearer tokens to identities.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims is the payload of tokens issued by HMACVerifier.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// HMACVerifier signs and verifies HS256 tokens. It backs local and
// self-hosted deployments that do not use Firebase Authentication.
type HMACVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewHMACVerifier builds a verifier. An empty secret is rejected in
// production and replaced by a fixed development secret elsewhere.
func NewHMACVerifier(secret, env string) (*HMACVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = devSecret
	}
	return &HMACVerifier{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for id valid for ttl (24h when ttl is zero).
func (v *HMACVerifier) Sign(id Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := v.now().UTC()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify checks the signature and expiry of token.
func (v *HMACVerifier) Verify(_ context.Context, token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
