// Package viewstate keeps per-user page state between requests.
package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for a key that was never written or expired.
var ErrNotFound = errors.New("view state not found")

// ErrConflict is returned when Update lost too many optimistic retries.
var ErrConflict = errors.New("view state changed concurrently")

// UpdateFunc maps the current value (nil when absent) to the new one.
// Returning nil deletes the key. Returning an error aborts the update.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a keyed byte store with atomic read-modify-write.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
}

// Key builds the storage key for a user's view.
func Key(view, userID string) string {
	return fmt.Sprintf("cardami:view:%s:%s", view, userID)
}

// GetJSON decodes the value at key into v.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode view state %s: %w", key, err)
	}
	return v, nil
}

// UpdateJSON runs fn on the decoded value at key and stores the result.
// exists is false when the key was absent and v is the zero value.
// fn may run more than once.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v T, exists bool) (T, error)) (T, error) {
	var out T
	err := s.Update(ctx, key, func(current []byte) ([]byte, error) {
		var v T
		exists := current != nil
		if exists {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("decode view state %s: %w", key, err)
			}
		}
		next, err := fn(v, exists)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode view state %s: %w", key, err)
		}
		out = next
		return raw, nil
	})
	return out, err
}
