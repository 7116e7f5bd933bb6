package users

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreRepo keeps push tokens on users/{userId} documents.
type FirestoreRepo struct {
	Client *firestore.Client
}

type userDoc struct {
	FCMToken          string     `firestore:"fcmToken,omitempty"`
	FCMTokenUpdatedAt *time.Time `firestore:"fcmTokenUpdatedAt,omitempty"`
	CreatedAt         time.Time  `firestore:"createdAt,omitempty"`
	UpdatedAt         time.Time  `firestore:"updatedAt,omitempty"`
}

func (r *FirestoreRepo) ref(userID string) *firestore.DocumentRef {
	return r.Client.Collection("users").Doc(userID)
}

func (r *FirestoreRepo) GetByID(ctx context.Context, userID string) (User, error) {
	snap, err := r.ref(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return User{}, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return User{
		ID:                userID,
		FCMToken:          doc.FCMToken,
		FCMTokenUpdatedAt: doc.FCMTokenUpdatedAt,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}, nil
}

func (r *FirestoreRepo) SetPushToken(ctx context.Context, userID, token string, at time.Time) error {
	_, err := r.ref(userID).Set(ctx, map[string]any{
		"fcmToken":          token,
		"fcmTokenUpdatedAt": at,
		"updatedAt":         at,
	}, firestore.MergeAll)
	return err
}

func (r *FirestoreRepo) ClearPushToken(ctx context.Context, userID, token string, at time.Time) (bool, error) {
	ref := r.ref(userID)
	cleared := false
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		cleared = false
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode user %s: %w", userID, err)
		}
		if doc.FCMToken == "" || doc.FCMToken != token {
			return nil
		}
		cleared = true
		return tx.Update(ref, []firestore.Update{
			{Path: "fcmToken", Value: firestore.Delete},
			{Path: "fcmTokenUpdatedAt", Value: at},
			{Path: "updatedAt", Value: at},
		})
	})
	return cleared, err
}
