// Package claim turns a flipped card into a persisted claim record.
package claim

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"cardami/internal/draw"
	"cardami/internal/models"
)

// View is the claim-detail form bound to one drawn card.
type View struct {
	Position int                   `json:"position"`
	Card     models.CardDefinition `json:"card"`
	Draft    string                `json:"draft"`
	Error    string                `json:"error,omitempty"`
}

// Open binds a view to the flipped card at position. The draw session is
// only read.
func Open(s draw.Session, position int) (View, error) {
	c, err := s.Card(position)
	if err != nil {
		return View{}, err
	}
	if !s.IsFlipped(position) {
		return View{}, models.ErrCardNotFlipped
	}
	if _, claimed := s.ClaimedSet()[c.ID]; claimed {
		return View{}, models.ErrAlreadyClaimed
	}
	return View{Position: position, Card: c.CardDefinition}, nil
}

// Edit replaces the draft text. A previous error stays until the next submit.
func Edit(v View, text string) View {
	v.Draft = text
	return v
}

// Fail keeps the draft and records err for display.
func Fail(v View, err error) View {
	v.Error = Message(err)
	return v
}

// Validate trims description and rejects it when nothing is left.
func Validate(description string) (string, error) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return "", models.NewValidationError("description", "must not be empty")
	}
	return trimmed, nil
}

// Message is the inline text shown for a failed submit.
func Message(err error) string {
	switch {
	case models.IsValidationError(err):
		return "Please write a memory before claiming this card."
	case errors.Is(err, models.ErrAlreadyClaimed):
		return "This card is already in your collection."
	case errors.Is(err, models.ErrAuth), errors.Is(err, models.ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	default:
		return "We couldn't save your memory. Please try again."
	}
}

// Appender is the part of the claim store the flow writes to.
type Appender interface {
	AppendClaim(ctx context.Context, userID string, record models.ClaimRecord) error
}

// Submitter validates and persists claims.
type Submitter struct {
	store  Appender
	logger *zap.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(store Appender, logger *zap.Logger) *Submitter {
	return &Submitter{store: store, logger: logger.Named("ClaimSubmitter")}
}

// Submit appends {cardID, description} for userID. Blank descriptions fail
// with a ValidationError before the store is touched. A duplicate card
// yields models.ErrAlreadyClaimed; any other store failure is a
// persistence error.
func (s *Submitter) Submit(ctx context.Context, userID, cardID, description string) (models.ClaimRecord, error) {
	desc, err := Validate(description)
	if err != nil {
		return models.ClaimRecord{}, err
	}
	record := models.ClaimRecord{CardID: cardID, Description: desc}
	log := s.logger.With(zap.String("uid", userID), zap.String("cardId", cardID))

	if err := s.store.AppendClaim(ctx, userID, record); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyClaimed):
			log.Info("Card already claimed")
			return record, err
		case errors.Is(err, models.ErrPersistence):
			log.Error("Failed to store claim", zap.Error(err))
			return record, err
		default:
			log.Error("Failed to store claim", zap.Error(err))
			return record, models.PersistenceError("append claim", err)
		}
	}
	log.Info("Card claimed")
	return record, nil
}
