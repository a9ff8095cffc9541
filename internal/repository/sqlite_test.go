package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cardami/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteClaimStore {
	t.Helper()
	store, err := NewSQLiteClaimStore(filepath.Join(t.TempDir(), "nested", "claims.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteClaimStore(t *testing.T) {
	runClaimStoreContract(t, newSQLiteStore(t), userSeq("sqlite"))
}

func TestSQLiteUniqueViolationByCode(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.AppendClaim(ctx, "u1", models.ClaimRecord{CardID: "A", Description: "first"}))

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO claims (user_id, card_id, description, created_at) VALUES (?, ?, ?, ?)`,
		"u1", "A", "again", 1)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	assert.True(t, isUniqueViolation(fmt.Errorf("append claim: %w", err)))

	_, err = store.db.ExecContext(ctx,
		`INSERT INTO claims (user_id, card_id, description, created_at) VALUES (?, ?, ?, ?)`,
		"u1", "B", nil, 1)
	require.Error(t, err, "a missing description violates NOT NULL, not the unique key")
	assert.False(t, isUniqueViolation(err))

	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: claims.user_id, claims.card_id")))
	assert.False(t, isUniqueViolation(nil))
}
