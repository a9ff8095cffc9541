package models

import "time"

// CardDefinition is one entry of the static catalog.
type CardDefinition struct {
	ID           string `json:"id" toml:"id"`
	ImageRef     string `json:"imageRef" toml:"image"`
	DisplayOrder int    `json:"displayOrder" toml:"order"`
}

// ClaimRecord attaches a written memory to a card. Created once per card per user.
type ClaimRecord struct {
	CardID      string `json:"cardId" firestore:"cardId"`
	Description string `json:"description" firestore:"description"`
}

// UserDocument is the per-user document kept in the claim store.
type UserDocument struct {
	UserID    string        `json:"userId" firestore:"-"`
	Cards     []ClaimRecord `json:"cards" firestore:"cards"`
	UpdatedAt time.Time     `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// ClaimedIDs returns the set of claimed card ids.
func (d *UserDocument) ClaimedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Cards))
	for _, c := range d.Cards {
		ids[c.CardID] = struct{}{}
	}
	return ids
}

// CardIDs returns claimed card ids in claim order.
func (d *UserDocument) CardIDs() []string {
	ids := make([]string, len(d.Cards))
	for i, c := range d.Cards {
		ids[i] = c.CardID
	}
	return ids
}

// HasClaim reports whether cardID is already claimed in the document.
func (d *UserDocument) HasClaim(cardID string) bool {
	for _, c := range d.Cards {
		if c.CardID == cardID {
			return true
		}
	}
	return false
}
