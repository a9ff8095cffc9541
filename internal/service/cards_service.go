// Package service orchestrates the draw page and gallery across the claim
// store, the view-state store and the pure draw/claim/gallery reducers.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cardami/internal/claim"
	"cardami/internal/draw"
	"cardami/internal/messaging"
	"cardami/internal/models"
	"cardami/internal/repository"
	"cardami/internal/viewstate"
)

const drawView = "draw"

// DrawPage is everything the draw page shows for one visit.
type DrawPage struct {
	Session draw.Session `json:"session"`
	Claim   *claim.View  `json:"claim,omitempty"`
}

// CardsService drives the draw page.
type CardsService interface {
	EnterDrawPage(ctx context.Context, userID string) (DrawPage, error)
	LeaveDrawPage(ctx context.Context, userID string) error
	Flip(ctx context.Context, userID string, position int) (DrawPage, error)
	Shuffle(ctx context.Context, userID string) (DrawPage, error)
	OpenClaim(ctx context.Context, userID string, position int) (DrawPage, error)
	EditClaim(ctx context.Context, userID, draft string) (DrawPage, error)
	CloseClaim(ctx context.Context, userID string) (DrawPage, error)
	SubmitClaim(ctx context.Context, userID, description string) (DrawPage, error)
	EnsureUserDocument(ctx context.Context, userID string) error
	Animation() draw.AnimationProfile
}

type cardsServiceImpl struct {
	engine    *draw.Engine
	store     repository.ClaimStore
	views     viewstate.Store
	submitter *claim.Submitter
	publisher messaging.ClaimPublisher
	newEpoch  func() string
	logger    *zap.Logger
}

// NewCardsService wires the draw page. A nil publisher drops claim events.
func NewCardsService(
	engine *draw.Engine,
	store repository.ClaimStore,
	views viewstate.Store,
	publisher messaging.ClaimPublisher,
	logger *zap.Logger,
) CardsService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &cardsServiceImpl{
		engine:    engine,
		store:     store,
		views:     views,
		submitter: claim.NewSubmitter(store, logger),
		publisher: publisher,
		newEpoch:  uuid.NewString,
		logger:    logger.Named("CardsService"),
	}
}

func (s *cardsServiceImpl) Animation() draw.AnimationProfile {
	return s.engine.Options().Animation
}

// update applies fn to the stored page of the current visit. A missing page
// (left or expired) is reported as models.ErrStaleView.
func (s *cardsServiceImpl) update(ctx context.Context, userID string, fn func(DrawPage) (DrawPage, error)) (DrawPage, error) {
	return viewstate.UpdateJSON(ctx, s.views, viewstate.Key(drawView, userID), func(p DrawPage, exists bool) (DrawPage, error) {
		if !exists {
			return p, models.ErrStaleView
		}
		return fn(p)
	})
}

func (s *cardsServiceImpl) EnterDrawPage(ctx context.Context, userID string) (DrawPage, error) {
	log := s.logger.With(zap.String("uid", userID))
	epoch := s.newEpoch()

	// a new visit replaces the old one; fetches still running for it go stale
	_, err := viewstate.UpdateJSON(ctx, s.views, viewstate.Key(drawView, userID), func(DrawPage, bool) (DrawPage, error) {
		return DrawPage{Session: draw.Begin(epoch)}, nil
	})
	if err != nil {
		log.Error("Failed to start draw page visit", zap.Error(err))
		return DrawPage{}, err
	}

	doc, err := repository.GetOrCreate(ctx, s.store, userID)
	if err != nil {
		log.Error("Failed to load claims", zap.Error(err))
		return DrawPage{}, err
	}

	page, err := s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		loaded, err := s.engine.Load(p.Session, epoch, doc.CardIDs())
		if err != nil {
			return p, err
		}
		p.Session = draw.Deal(loaded)
		return p, nil
	})
	if err != nil {
		if errors.Is(err, models.ErrStaleView) {
			staleResultsTotal.Inc()
			log.Debug("Discarding claims fetched for a replaced visit", zap.String("epoch", epoch))
		}
		return DrawPage{}, err
	}

	drawsTotal.Inc()
	if page.Session.Empty() {
		emptyDrawsTotal.Inc()
	}
	log.Debug("Draw page entered", zap.String("epoch", epoch), zap.Int("cards", len(page.Session.Cards)))
	return page, nil
}

func (s *cardsServiceImpl) LeaveDrawPage(ctx context.Context, userID string) error {
	return s.views.Delete(ctx, viewstate.Key(drawView, userID))
}

func (s *cardsServiceImpl) Flip(ctx context.Context, userID string, position int) (DrawPage, error) {
	return s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		next, err := draw.Flip(p.Session, position)
		if err != nil {
			return p, err
		}
		p.Session = next
		return p, nil
	})
}

// Shuffle runs the two shuffle phases as separate writes so a second
// request arriving in between sees the pending shuffle and does not start
// another one. A shuffle left pending by a failed completing write is
// finished by the next request.
func (s *cardsServiceImpl) Shuffle(ctx context.Context, userID string) (DrawPage, error) {
	var started bool
	var epoch string
	page, err := s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		next, ok, err := draw.BeginShuffle(p.Session)
		if err != nil {
			return p, err
		}
		started, epoch = ok, p.Session.Epoch
		if ok {
			p.Claim = nil
		}
		p.Session = next
		return p, nil
	})
	if err != nil {
		return page, err
	}
	if started {
		shufflesTotal.WithLabelValues("started").Inc()
	} else {
		shufflesTotal.WithLabelValues("ignored").Inc()
	}

	// the cards are already hidden; a client disconnect must not strand them
	var completed bool
	page, err = s.update(context.WithoutCancel(ctx), userID, func(p DrawPage) (DrawPage, error) {
		if p.Session.Epoch != epoch {
			return p, models.ErrStaleView
		}
		if !p.Session.ShufflePending {
			return p, nil
		}
		p.Session = draw.Deal(s.engine.CompleteShuffle(p.Session))
		completed = true
		return p, nil
	})
	if err != nil {
		if errors.Is(err, models.ErrStaleView) {
			shufflesTotal.WithLabelValues("stale").Inc()
		} else {
			s.logger.Error("Failed to complete shuffle, the next shuffle request finishes it",
				zap.String("uid", userID), zap.Error(err))
		}
		return page, err
	}
	if completed {
		shufflesTotal.WithLabelValues("completed").Inc()
	}
	return page, nil
}

func (s *cardsServiceImpl) OpenClaim(ctx context.Context, userID string, position int) (DrawPage, error) {
	return s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		v, err := claim.Open(p.Session, position)
		if err != nil {
			return p, err
		}
		p.Claim = &v
		return p, nil
	})
}

func (s *cardsServiceImpl) EditClaim(ctx context.Context, userID, draft string) (DrawPage, error) {
	return s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		if p.Claim == nil {
			return p, models.ErrClaimNotOpen
		}
		v := claim.Edit(*p.Claim, draft)
		p.Claim = &v
		return p, nil
	})
}

func (s *cardsServiceImpl) CloseClaim(ctx context.Context, userID string) (DrawPage, error) {
	return s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		p.Claim = nil
		return p, nil
	})
}

func (s *cardsServiceImpl) SubmitClaim(ctx context.Context, userID, description string) (DrawPage, error) {
	page, err := viewstate.GetJSON[DrawPage](ctx, s.views, viewstate.Key(drawView, userID))
	if err != nil {
		if errors.Is(err, viewstate.ErrNotFound) {
			return DrawPage{}, models.ErrStaleView
		}
		return DrawPage{}, err
	}
	if page.Claim == nil {
		return page, models.ErrClaimNotOpen
	}
	epoch, cardID := page.Session.Epoch, page.Claim.Card.ID

	record, submitErr := s.submitter.Submit(ctx, userID, cardID, description)

	// the result only applies to the visit and card it was made for
	page, err = s.update(ctx, userID, func(p DrawPage) (DrawPage, error) {
		if p.Session.Epoch != epoch {
			return p, models.ErrStaleView
		}
		bound := p.Claim != nil && p.Claim.Card.ID == cardID
		switch {
		case submitErr == nil, errors.Is(submitErr, models.ErrAlreadyClaimed):
			p.Session = draw.MarkClaimed(p.Session, cardID)
			if bound {
				p.Claim = nil
			}
		case bound:
			v := claim.Fail(claim.Edit(*p.Claim, description), submitErr)
			p.Claim = &v
		}
		return p, nil
	})
	if err != nil && errors.Is(err, models.ErrStaleView) {
		staleResultsTotal.Inc()
	}

	switch {
	case submitErr == nil:
		claimsTotal.WithLabelValues("success").Inc()
		event := messaging.NewClaimCreatedEvent(userID, record.CardID, record.Description)
		if pubErr := s.publisher.PublishClaimCreated(ctx, event); pubErr != nil {
			s.logger.Warn("Failed to publish claim event", zap.String("uid", userID), zap.String("cardId", cardID), zap.Error(pubErr))
		}
	case models.IsValidationError(submitErr):
		claimsTotal.WithLabelValues("invalid").Inc()
	case errors.Is(submitErr, models.ErrAlreadyClaimed):
		claimsTotal.WithLabelValues("duplicate").Inc()
	default:
		claimsTotal.WithLabelValues("error").Inc()
	}

	if submitErr != nil {
		return page, submitErr
	}
	return page, err
}

func (s *cardsServiceImpl) EnsureUserDocument(ctx context.Context, userID string) error {
	if err := s.store.CreateUserDocument(ctx, userID); err != nil {
		s.logger.Error("Failed to ensure user document", zap.String("uid", userID), zap.Error(err))
		return err
	}
	return nil
}
