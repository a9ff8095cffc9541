// Package gallery lays out the full catalog with the user's claims.
package gallery

import (
	"slices"

	"cardami/internal/catalog"
	"cardami/internal/models"
)

// Entry is one catalog card as shown in the gallery. Description is only
// filled for a claimed card that is flipped.
type Entry struct {
	Card        models.CardDefinition `json:"card"`
	Claimed     bool                  `json:"claimed"`
	Flipped     bool                  `json:"flipped"`
	Description string                `json:"description,omitempty"`
}

// State is the gallery's display state for one visit. Nothing here is
// persisted to the claim store.
type State struct {
	Epoch   string               `json:"epoch"`
	Records []models.ClaimRecord `json:"records"`
	Flipped []string             `json:"flipped"`
}

// NewState starts a visit with every card face down.
func NewState(epoch string, records []models.ClaimRecord) State {
	return State{Epoch: epoch, Records: slices.Clone(records)}
}

func (s State) record(cardID string) (models.ClaimRecord, bool) {
	for _, r := range s.Records {
		if r.CardID == cardID {
			return r, true
		}
	}
	return models.ClaimRecord{}, false
}

// IsFlipped reports whether cardID is face up.
func (s State) IsFlipped(cardID string) bool {
	return slices.Contains(s.Flipped, cardID)
}

// Render returns every catalog card in display order.
func Render(cat *catalog.Catalog, s State) []Entry {
	cards := cat.Cards()
	out := make([]Entry, len(cards))
	for i, c := range cards {
		e := Entry{Card: c}
		if rec, ok := s.record(c.ID); ok {
			e.Claimed = true
			e.Flipped = s.IsFlipped(c.ID)
			if e.Flipped {
				e.Description = rec.Description
			}
		}
		out[i] = e
	}
	return out
}

// ToggleFlip turns a claimed card over. Unclaimed cards are locked.
func ToggleFlip(cat *catalog.Catalog, s State, cardID string) (State, error) {
	if !cat.Has(cardID) {
		return s, models.ErrUnknownCard
	}
	if _, ok := s.record(cardID); !ok {
		return s, models.ErrCardLocked
	}
	out := s
	out.Records = slices.Clone(s.Records)
	if i := slices.Index(s.Flipped, cardID); i >= 0 {
		out.Flipped = slices.Delete(slices.Clone(s.Flipped), i, i+1)
	} else {
		out.Flipped = append(slices.Clone(s.Flipped), cardID)
	}
	return out, nil
}

// ClaimedCount is the number of catalog cards the user has claimed.
func ClaimedCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Claimed {
			n++
		}
	}
	return n
}
