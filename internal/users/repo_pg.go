package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, fcm_token, fcm_token_updated_at, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1`
	var user User
	var token sql.NullString
	var tokenUpdatedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&token,
		&tokenUpdatedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.FCMToken = token.String
	if tokenUpdatedAt.Valid {
		at := tokenUpdatedAt.Time
		user.FCMTokenUpdatedAt = &at
	}
	return user, nil
}

func (r *PGRepo) SetPushToken(ctx context.Context, userID, token string, at time.Time) error {
	const query = `
INSERT INTO users (id, fcm_token, fcm_token_updated_at, created_at, updated_at)
VALUES ($1, $2, $3, $3, $3)
ON CONFLICT (id) DO UPDATE SET
  fcm_token = EXCLUDED.fcm_token,
  fcm_token_updated_at = EXCLUDED.fcm_token_updated_at,
  updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query, userID, token, at)
	return err
}

func (r *PGRepo) ClearPushToken(ctx context.Context, userID, token string, at time.Time) (bool, error) {
	const query = `
UPDATE users
SET fcm_token = NULL, fcm_token_updated_at = $3, updated_at = $3
WHERE id = $1 AND fcm_token = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, token, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
