// Package repository stores each user's claimed cards.
package repository

import (
	"context"
	"errors"

	"cardami/internal/models"
)

// ClaimStore is the per-user claim document store.
//
// AppendClaim is an atomic add keyed by card id: a second claim for the same
// card returns models.ErrAlreadyClaimed and writes nothing. A missing user
// document is created by AppendClaim. GetUserDocument returns
// models.ErrNotFound for users that have no document yet.
type ClaimStore interface {
	GetUserDocument(ctx context.Context, userID string) (*models.UserDocument, error)
	CreateUserDocument(ctx context.Context, userID string) error
	AppendClaim(ctx context.Context, userID string, record models.ClaimRecord) error
}

// GetOrCreate loads the user's document, creating an empty one when it does
// not exist yet.
func GetOrCreate(ctx context.Context, store ClaimStore, userID string) (*models.UserDocument, error) {
	doc, err := store.GetUserDocument(ctx, userID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err := store.CreateUserDocument(ctx, userID); err != nil {
		return nil, err
	}
	return &models.UserDocument{UserID: userID, Cards: []models.ClaimRecord{}}, nil
}
