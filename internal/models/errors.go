package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Store errors
	ErrNotFound       = errors.New("resource not found") // user document missing, recovered by auto-create
	ErrAlreadyClaimed = errors.New("card already claimed")
	ErrPersistence    = errors.New("claim store unavailable")

	// Identity errors
	ErrAuth         = errors.New("authentication failed") // bad credentials, cancelled popup, invalid token
	ErrUnauthorized = errors.New("unauthorized")

	// Draw errors
	ErrInvalidPosition   = errors.New("card position out of range")
	ErrCardHidden        = errors.New("card has not been dealt yet")
	ErrCardNotFlipped    = errors.New("card is not flipped")
	ErrShuffleNotAllowed = errors.New("shuffle requires every drawn card to be flipped")
	ErrStaleView         = errors.New("view was replaced before the result arrived")

	// Claim flow errors
	ErrClaimNotOpen = errors.New("no claim is open")

	// Gallery errors
	ErrCardLocked  = errors.New("card is not claimed")
	ErrUnknownCard = errors.New("unknown card")

	ErrBadRequest = errors.New("bad request")
)

// ValidationError reports user input that was rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// AuthError carries the provider's reason so it can be shown inline.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrAuth.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrAuth.Error(), e.Reason)
}

func (e *AuthError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAuth, e.Err}
	}
	return []error{ErrAuth}
}

// NewAuthError wraps an identity provider failure.
func NewAuthError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// PersistenceError wraps a claim store read/write failure.
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
