package draw

import (
	"slices"

	"cardami/internal/models"
)

// Phase is the visual state of one drawn position.
type Phase string

const (
	PhaseHidden  Phase = "hidden"
	PhaseVisible Phase = "visible"
	PhaseFlipped Phase = "flipped"
)

// DrawnCard is a card dealt into a position of the current draw.
type DrawnCard struct {
	models.CardDefinition
	Phase Phase `json:"phase"`
}

// Session is the per-visit state of the draw page. It is a plain value:
// every transition returns a new Session and never mutates its receiver.
type Session struct {
	Epoch          string      `json:"epoch"`
	Loading        bool        `json:"loading"`
	Cards          []DrawnCard `json:"cards"`
	Flipped        []int       `json:"flipped"`
	Selected       []int       `json:"selected"`
	ShufflePending bool        `json:"shufflePending"`
	// Claimed is the local cache of claimed card ids. Claims made during the
	// visit are added here so the next shuffle excludes them without a refetch.
	Claimed []string `json:"claimed"`
}

// Begin starts a new page visit. Nothing is drawn until Load.
func Begin(epoch string) Session {
	return Session{Epoch: epoch, Loading: true}
}

func (s Session) clone() Session {
	out := s
	out.Cards = slices.Clone(s.Cards)
	out.Flipped = slices.Clone(s.Flipped)
	out.Selected = slices.Clone(s.Selected)
	out.Claimed = slices.Clone(s.Claimed)
	return out
}

// AllFlipped reports whether every drawn card has been flipped.
func (s Session) AllFlipped() bool {
	return len(s.Flipped) == len(s.Cards)
}

// CanShuffle reports whether the shuffle control should be offered.
func (s Session) CanShuffle() bool {
	return !s.Loading && !s.ShufflePending && s.AllFlipped()
}

// Empty reports a loaded session with no cards left to draw.
func (s Session) Empty() bool {
	return !s.Loading && !s.ShufflePending && len(s.Cards) == 0
}

// IsFlipped reports whether position has been flipped.
func (s Session) IsFlipped(position int) bool {
	_, ok := slices.BinarySearch(s.Flipped, position)
	return ok
}

// Card returns the card at position.
func (s Session) Card(position int) (DrawnCard, error) {
	if position < 0 || position >= len(s.Cards) {
		return DrawnCard{}, models.ErrInvalidPosition
	}
	return s.Cards[position], nil
}

// ClaimedSet returns the claimed cache as a set.
func (s Session) ClaimedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Claimed))
	for _, id := range s.Claimed {
		set[id] = struct{}{}
	}
	return set
}

// Deal reveals every hidden card. Called once the entrance animation ends.
func Deal(s Session) Session {
	out := s.clone()
	for i := range out.Cards {
		if out.Cards[i].Phase == PhaseHidden {
			out.Cards[i].Phase = PhaseVisible
		}
	}
	return out
}

// Flip turns the card at position face up and selects it. Flipping an
// already flipped card returns the session unchanged.
func Flip(s Session, position int) (Session, error) {
	c, err := s.Card(position)
	if err != nil {
		return s, err
	}
	switch c.Phase {
	case PhaseHidden:
		return s, models.ErrCardHidden
	case PhaseFlipped:
		return s, nil
	}
	out := s.clone()
	out.Cards[position].Phase = PhaseFlipped
	out.Flipped = addPosition(out.Flipped, position)
	out.Selected = addPosition(out.Selected, position)
	return out, nil
}

// BeginShuffle retires the current draw. started is false when a shuffle is
// already in flight, in which case s is returned untouched.
func BeginShuffle(s Session) (next Session, started bool, err error) {
	if s.ShufflePending {
		return s, false, nil
	}
	if s.Loading || !s.AllFlipped() {
		return s, false, models.ErrShuffleNotAllowed
	}
	out := s.clone()
	out.ShufflePending = true
	out.Flipped = nil
	out.Selected = nil
	for i := range out.Cards {
		out.Cards[i].Phase = PhaseHidden
	}
	return out, true, nil
}

// MarkClaimed records id in the local claimed cache. The card stays in the
// current draw until the next shuffle.
func MarkClaimed(s Session, id string) Session {
	if slices.Contains(s.Claimed, id) {
		return s
	}
	out := s.clone()
	out.Claimed = append(out.Claimed, id)
	return out
}

func addPosition(set []int, p int) []int {
	i, ok := slices.BinarySearch(set, p)
	if ok {
		return set
	}
	return slices.Insert(set, i, p)
}
