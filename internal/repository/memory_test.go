package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardami/internal/models"
)

func TestMemoryStore(t *testing.T) {
	runClaimStoreContract(t, NewMemoryStore(), userSeq("mem"))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.AppendClaim(ctx, "u1", models.ClaimRecord{CardID: "Kindkey_1", Description: "x"}))

	doc, err := store.GetUserDocument(ctx, "u1")
	require.NoError(t, err)
	doc.Cards[0].Description = "changed"

	again, err := store.GetUserDocument(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "x", again.Cards[0].Description)
}
