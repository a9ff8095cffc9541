// Package identity signs users in and verifies their session tokens.
package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"cardami/internal/models"
)

// SignedIn is the result of a successful sign-in: a session token to store
// in the session cookie and the identity it belongs to.
type SignedIn struct {
	Token     string
	ExpiresIn time.Duration
	Identity  models.Identity
	Created   bool // a new account was created
}

// Provider is an identity provider. All sign-in failures are *models.AuthError.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*SignedIn, error)
	SignUpWithPassword(ctx context.Context, email, password string) (*SignedIn, error)
	// SignInWithPopupProvider exchanges the ID token a popup flow produced in
	// the browser for a session.
	SignInWithPopupProvider(ctx context.Context, idToken string) (*SignedIn, error)
	SignOut(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// MinPasswordLength matches the hosted provider's weak-password rule.
const MinPasswordLength = 6

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return models.NewAuthError("invalid email address", nil)
	}
	if len(password) < MinPasswordLength {
		return models.NewAuthError("password must be at least 6 characters", nil)
	}
	return nil
}
