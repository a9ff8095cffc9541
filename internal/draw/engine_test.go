package draw

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardami/internal/catalog"
	"cardami/internal/models"
)

func letters(t *testing.T, ids ...string) *catalog.Catalog {
	t.Helper()
	defs := make([]models.CardDefinition, len(ids))
	for i, id := range ids {
		defs[i] = models.CardDefinition{ID: id, ImageRef: "/" + id + ".png", DisplayOrder: i + 1}
	}
	c, err := catalog.New(defs)
	require.NoError(t, err)
	return c
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func ids(s Session) []string {
	out := make([]string, len(s.Cards))
	for i, c := range s.Cards {
		out[i] = c.ID
	}
	return out
}

func TestDrawReturnsDistinctUnclaimed(t *testing.T) {
	cat := letters(t, "A", "B", "C", "D", "E", "F", "G")
	for seed := uint64(0); seed < 200; seed++ {
		e := NewEngine(cat, DefaultOptions(), seeded(seed))
		claimed := set("A", "C")
		s := e.Draw(Begin("e"), claimed)

		require.Len(t, s.Cards, 3)
		seen := map[string]bool{}
		for _, c := range s.Cards {
			assert.NotContains(t, claimed, c.ID)
			assert.False(t, seen[c.ID], "duplicate %s", c.ID)
			seen[c.ID] = true
			assert.Equal(t, PhaseHidden, c.Phase)
		}
	}
}

func TestDrawDegenerate(t *testing.T) {
	cat := letters(t, "A", "B", "C", "D")
	e := NewEngine(cat, DefaultOptions(), seeded(1))

	tests := []struct {
		claimed map[string]struct{}
		want    int
	}{
		{set("A", "B"), 2},
		{set("A", "B", "C"), 1},
		{set("A", "B", "C", "D"), 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d left", tt.want), func(t *testing.T) {
			s := e.Draw(Begin("e"), tt.claimed)
			assert.Len(t, s.Cards, tt.want)
			assert.True(t, s.AllFlipped() == (tt.want == 0))
		})
	}

	empty, err := catalog.New(nil)
	require.NoError(t, err)
	s := NewEngine(empty, DefaultOptions(), nil).Draw(Begin("e"), nil)
	assert.Empty(t, s.Cards)
}

func TestSampleIsRoughlyUniform(t *testing.T) {
	pool := letters(t, "A", "B", "C", "D").Cards()
	rng := seeded(42)
	counts := map[string]int{}
	const rounds = 8000
	for i := 0; i < rounds; i++ {
		counts[Sample(pool, 1, rng)[0].ID]++
	}
	for _, id := range []string{"A", "B", "C", "D"} {
		assert.InDelta(t, rounds/4, counts[id], rounds/20, "card %s", id)
	}
	assert.Len(t, pool, 4)
	assert.Equal(t, "A", pool[0].ID, "pool must not be reordered")
}

func TestFlip(t *testing.T) {
	e := NewEngine(letters(t, "A", "B", "C", "D"), DefaultOptions(), seeded(3))
	s, err := e.Load(Begin("e1"), "e1", nil)
	require.NoError(t, err)

	_, err = Flip(s, 0)
	assert.ErrorIs(t, err, models.ErrCardHidden)

	s = Deal(s)
	for _, c := range s.Cards {
		assert.Equal(t, PhaseVisible, c.Phase)
	}

	_, err = Flip(s, 3)
	assert.ErrorIs(t, err, models.ErrInvalidPosition)
	_, err = Flip(s, -1)
	assert.ErrorIs(t, err, models.ErrInvalidPosition)

	once, err := Flip(s, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, once.Flipped)
	assert.Equal(t, []int{1}, once.Selected)
	assert.Empty(t, s.Flipped, "receiver must not change")

	twice, err := Flip(once, 1)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.False(t, twice.AllFlipped())

	all := twice
	for _, p := range []int{2, 0} {
		all, err = Flip(all, p)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1, 2}, all.Flipped)
	assert.True(t, all.AllFlipped())
	assert.True(t, all.CanShuffle())
}

func TestShuffleScenario(t *testing.T) {
	e := NewEngine(letters(t, "A", "B", "C", "D", "E"), DefaultOptions(), seeded(7))
	s, err := e.Load(Begin("e1"), "e1", []string{"A"})
	require.NoError(t, err)
	s = Deal(s)
	require.Len(t, s.Cards, 3)
	assert.NotContains(t, ids(s), "A")

	_, _, err = BeginShuffle(s)
	assert.ErrorIs(t, err, models.ErrShuffleNotAllowed)

	for p := range s.Cards {
		s, err = Flip(s, p)
		require.NoError(t, err)
	}
	require.True(t, s.AllFlipped())

	pending, started, err := BeginShuffle(s)
	require.NoError(t, err)
	require.True(t, started)
	assert.True(t, pending.ShufflePending)
	assert.Empty(t, pending.Flipped)
	assert.Empty(t, pending.Selected)

	again, started, err := BeginShuffle(pending)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, pending, again)

	done := e.CompleteShuffle(pending)
	assert.False(t, done.ShufflePending)
	require.Len(t, done.Cards, 3)
	assert.NotContains(t, ids(done), "A")
	assert.Empty(t, done.Flipped)

	assert.Equal(t, done, e.CompleteShuffle(done))
}

func TestShuffleUsesCurrentClaims(t *testing.T) {
	e := NewEngine(letters(t, "A", "B", "C", "D", "E"), DefaultOptions(), seeded(9))
	s, err := e.Load(Begin("e1"), "e1", []string{"A"})
	require.NoError(t, err)
	s = Deal(s)
	for p := range s.Cards {
		s, _ = Flip(s, p)
	}
	claimedNow := s.Cards[0].ID
	s = MarkClaimed(s, claimedNow)
	assert.Equal(t, s, MarkClaimed(s, claimedNow))

	s, _, err = BeginShuffle(s)
	require.NoError(t, err)
	s = e.CompleteShuffle(s)
	assert.Len(t, s.Cards, 3)
	assert.NotContains(t, ids(s), "A")
	assert.NotContains(t, ids(s), claimedNow)
}

func TestLoadRejectsStaleEpoch(t *testing.T) {
	e := NewEngine(letters(t, "A", "B", "C"), DefaultOptions(), seeded(1))
	s := Begin("new")
	_, err := e.Load(s, "old", nil)
	assert.ErrorIs(t, err, models.ErrStaleView)

	loaded, err := e.Load(s, "new", nil)
	require.NoError(t, err)
	_, err = e.Load(loaded, "new", nil)
	assert.ErrorIs(t, err, models.ErrStaleView, "second result for the same visit is ignored")
}

func TestLoadingSessionCannotShuffle(t *testing.T) {
	s := Begin("e")
	assert.False(t, s.CanShuffle())
	_, _, err := BeginShuffle(s)
	assert.ErrorIs(t, err, models.ErrShuffleNotAllowed)
	assert.False(t, s.Empty())
}

func TestProfiles(t *testing.T) {
	p, err := Profile("standard")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, p.DealDelay(0))
	assert.Equal(t, 440*time.Millisecond, p.DealDelay(2))

	instant, err := Profile("instant")
	require.NoError(t, err)
	assert.Zero(t, instant.DealDelay(5))

	_, err = Profile("wild")
	assert.Error(t, err)
}

func TestCountOption(t *testing.T) {
	e := NewEngine(letters(t, "A", "B", "C", "D", "E"), Options{Count: 5}, seeded(1))
	s := e.Draw(Begin("e"), nil)
	assert.Len(t, s.Cards, 5)
	assert.Equal(t, 3, NewEngine(letters(t, "A"), Options{}, nil).Options().Count)
}
