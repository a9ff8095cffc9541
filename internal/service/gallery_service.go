package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cardami/internal/catalog"
	"cardami/internal/gallery"
	"cardami/internal/models"
	"cardami/internal/repository"
	"cardami/internal/viewstate"
)

const galleryView = "gallery"

// GalleryPage is the rendered gallery.
type GalleryPage struct {
	Entries []gallery.Entry `json:"entries"`
	Claimed int             `json:"claimed"`
	Total   int             `json:"total"`
}

// GalleryService drives the memories page.
type GalleryService interface {
	EnterGallery(ctx context.Context, userID string) (GalleryPage, error)
	ToggleGalleryFlip(ctx context.Context, userID, cardID string) (GalleryPage, error)
}

type galleryServiceImpl struct {
	catalog *catalog.Catalog
	store   repository.ClaimStore
	views   viewstate.Store
	logger  *zap.Logger
}

// NewGalleryService creates a GalleryService.
func NewGalleryService(cat *catalog.Catalog, store repository.ClaimStore, views viewstate.Store, logger *zap.Logger) GalleryService {
	return &galleryServiceImpl{catalog: cat, store: store, views: views, logger: logger.Named("GalleryService")}
}

func (s *galleryServiceImpl) render(st gallery.State) GalleryPage {
	entries := gallery.Render(s.catalog, st)
	return GalleryPage{Entries: entries, Claimed: gallery.ClaimedCount(entries), Total: len(entries)}
}

// EnterGallery fetches the user's claims and starts a visit with every card
// face down.
func (s *galleryServiceImpl) EnterGallery(ctx context.Context, userID string) (GalleryPage, error) {
	doc, err := repository.GetOrCreate(ctx, s.store, userID)
	if err != nil {
		s.logger.Error("Failed to load claims", zap.String("uid", userID), zap.Error(err))
		return GalleryPage{}, err
	}
	st, err := viewstate.UpdateJSON(ctx, s.views, viewstate.Key(galleryView, userID), func(gallery.State, bool) (gallery.State, error) {
		return gallery.NewState(uuid.NewString(), doc.Cards), nil
	})
	if err != nil {
		return GalleryPage{}, err
	}
	return s.render(st), nil
}

func (s *galleryServiceImpl) ToggleGalleryFlip(ctx context.Context, userID, cardID string) (GalleryPage, error) {
	st, err := viewstate.UpdateJSON(ctx, s.views, viewstate.Key(galleryView, userID), func(st gallery.State, exists bool) (gallery.State, error) {
		if !exists {
			return st, models.ErrStaleView
		}
		return gallery.ToggleFlip(s.catalog, st, cardID)
	})
	if err != nil {
		return GalleryPage{}, err
	}
	galleryFlipsTotal.Inc()
	return s.render(st), nil
}
