// Package draw deals random subsets of unclaimed cards and tracks their
// flip state through a page visit.
package draw

import (
	"fmt"
	"math/rand/v2"
	"time"

	"cardami/internal/catalog"
	"cardami/internal/models"
)

// DefaultCount is the number of cards dealt per draw.
const DefaultCount = 3

// Rand is the randomness the engine needs. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// AnimationProfile describes the timings the client uses to animate a draw.
type AnimationProfile struct {
	Name           string        `json:"name"`
	Stagger        time.Duration `json:"stagger"`
	BaseDelay      time.Duration `json:"baseDelay"`
	ShuffleRestack time.Duration `json:"shuffleRestack"`
}

// DealDelay is when the card at position starts its entrance.
func (p AnimationProfile) DealDelay(position int) time.Duration {
	return p.BaseDelay + time.Duration(position)*p.Stagger
}

var profiles = map[string]AnimationProfile{
	"standard": {Name: "standard", Stagger: 120 * time.Millisecond, BaseDelay: 200 * time.Millisecond, ShuffleRestack: 1200 * time.Millisecond},
	"calm":     {Name: "calm", Stagger: 240 * time.Millisecond, BaseDelay: 400 * time.Millisecond, ShuffleRestack: 2000 * time.Millisecond},
	"instant":  {Name: "instant"},
}

// Profile looks up an animation profile by name.
func Profile(name string) (AnimationProfile, error) {
	p, ok := profiles[name]
	if !ok {
		return AnimationProfile{}, fmt.Errorf("unknown animation profile %q", name)
	}
	return p, nil
}

// Options configure an Engine.
type Options struct {
	Count     int
	Animation AnimationProfile
}

// DefaultOptions deals three cards with the standard profile.
func DefaultOptions() Options {
	return Options{Count: DefaultCount, Animation: profiles["standard"]}
}

// Engine draws from a catalog. It is safe for concurrent use as long as its
// Rand is.
type Engine struct {
	catalog *catalog.Catalog
	opts    Options
	rng     Rand
}

// NewEngine creates an engine. A nil rng uses the global math/rand/v2 source.
func NewEngine(cat *catalog.Catalog, opts Options, rng Rand) *Engine {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{catalog: cat, opts: opts, rng: rng}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Catalog returns the catalog the engine draws from.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Sample returns min(count, len(pool)) distinct entries of pool in uniformly
// random order. pool is not modified.
func Sample(pool []models.CardDefinition, count int, rng Rand) []models.CardDefinition {
	work := make([]models.CardDefinition, len(pool))
	copy(work, pool)
	if count > len(work) {
		count = len(work)
	}
	// partial Fisher-Yates: the first count slots end up uniformly sampled
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:count]
}

// Draw deals a fresh set of unclaimed cards into s. Flip and selection state
// are reset and every card starts hidden. Never fails; a fully claimed
// catalog yields an empty draw.
func (e *Engine) Draw(s Session, claimed map[string]struct{}) Session {
	picked := Sample(e.catalog.Unclaimed(claimed), e.opts.Count, e.rng)
	out := s.clone()
	out.Cards = make([]DrawnCard, len(picked))
	for i, def := range picked {
		out.Cards[i] = DrawnCard{CardDefinition: def, Phase: PhaseHidden}
	}
	out.Flipped = nil
	out.Selected = nil
	return out
}

// Load applies the claim fetch for epoch and deals the first draw. A result
// for another epoch is rejected with models.ErrStaleView.
func (e *Engine) Load(s Session, epoch string, claimed []string) (Session, error) {
	if s.Epoch != epoch || !s.Loading {
		return s, models.ErrStaleView
	}
	out := s.clone()
	out.Loading = false
	out.Claimed = append([]string(nil), claimed...)
	return e.Draw(out, out.ClaimedSet()), nil
}

// CompleteShuffle deals the replacement draw for a pending shuffle using the
// current claimed cache. Without a pending shuffle s is returned unchanged.
func (e *Engine) CompleteShuffle(s Session) Session {
	if !s.ShufflePending {
		return s
	}
	out := e.Draw(s, s.ClaimedSet())
	out.ShufflePending = false
	return out
}
