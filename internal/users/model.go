package users

import "time"

// User holds the per-account push registration.
type User struct {
	ID                string     `json:"id"`
	FCMToken          string     `json:"fcmToken,omitempty"`
	FCMTokenUpdatedAt *time.Time `json:"fcmTokenUpdatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
