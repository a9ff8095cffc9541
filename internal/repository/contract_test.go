package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardami/internal/models"
)

// runClaimStoreContract checks the behaviour every ClaimStore must share.
// newUser returns a user id unused by previous calls.
func runClaimStoreContract(t *testing.T, store ClaimStore, newUser func() string) {
	ctx := context.Background()

	t.Run("missing document", func(t *testing.T) {
		_, err := store.GetUserDocument(ctx, newUser())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("create is idempotent", func(t *testing.T) {
		uid := newUser()
		require.NoError(t, store.CreateUserDocument(ctx, uid))
		require.NoError(t, store.AppendClaim(ctx, uid, models.ClaimRecord{CardID: "Kindkey_1", Description: "kept"}))
		require.NoError(t, store.CreateUserDocument(ctx, uid))

		doc, err := store.GetUserDocument(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []models.ClaimRecord{{CardID: "Kindkey_1", Description: "kept"}}, doc.Cards)
	})

	t.Run("get or create", func(t *testing.T) {
		uid := newUser()
		doc, err := GetOrCreate(ctx, store, uid)
		require.NoError(t, err)
		assert.Empty(t, doc.Cards)

		doc, err = store.GetUserDocument(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, doc.Cards)
	})

	t.Run("append keeps order and rejects duplicates", func(t *testing.T) {
		uid := newUser()
		first := models.ClaimRecord{CardID: "Glass_Roar_1", Description: "first pick"}
		second := models.ClaimRecord{CardID: "Dewbloom_1", Description: "morning walk"}

		require.NoError(t, store.AppendClaim(ctx, uid, first))
		require.NoError(t, store.AppendClaim(ctx, uid, second))
		err := store.AppendClaim(ctx, uid, models.ClaimRecord{CardID: "Glass_Roar_1", Description: "again"})
		assert.ErrorIs(t, err, models.ErrAlreadyClaimed)

		doc, err := store.GetUserDocument(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []models.ClaimRecord{first, second}, doc.Cards)
		assert.Equal(t, uid, doc.UserID)
	})

	t.Run("concurrent duplicate claims store one record", func(t *testing.T) {
		uid := newUser()
		require.NoError(t, store.CreateUserDocument(ctx, uid))

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.AppendClaim(ctx, uid, models.ClaimRecord{CardID: "Echo_Drum_1", Description: fmt.Sprintf("try %d", i)})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			}
		}
		assert.Equal(t, 1, ok)

		doc, err := store.GetUserDocument(ctx, uid)
		require.NoError(t, err)
		assert.Len(t, doc.Cards, 1)
	})

	t.Run("users are isolated", func(t *testing.T) {
		a, b := newUser(), newUser()
		require.NoError(t, store.AppendClaim(ctx, a, models.ClaimRecord{CardID: "Torch_Pin_1", Description: "a"}))
		require.NoError(t, store.AppendClaim(ctx, b, models.ClaimRecord{CardID: "Torch_Pin_1", Description: "b"}))

		doc, err := store.GetUserDocument(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, "b", doc.Cards[0].Description)
	})
}

func userSeq(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
