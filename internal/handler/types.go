package handler

import (
	"cardami/internal/claim"
	"cardami/internal/draw"
	"cardami/internal/models"
	"cardami/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type popupRequest struct {
	IDToken string `json:"idToken"`
}

type draftRequest struct {
	Draft string `json:"draft"`
}

type submitRequest struct {
	Description string `json:"description"`
}

type authResponse struct {
	Identity models.Identity `json:"identity"`
	Redirect string          `json:"redirect"`
	Created  bool            `json:"created,omitempty"`
}

type pageResponse struct {
	Page          string           `json:"page"`
	Authenticated bool             `json:"authenticated"`
	Identity      *models.Identity `json:"identity,omitempty"`
	Links         []string         `json:"links,omitempty"`
}

type animationView struct {
	Name             string `json:"name"`
	StaggerMs        int64  `json:"staggerMs"`
	BaseDelayMs      int64  `json:"baseDelayMs"`
	ShuffleRestackMs int64  `json:"shuffleRestackMs"`
}

type cardView struct {
	Position    int        `json:"position"`
	ID          string     `json:"id"`
	ImageRef    string     `json:"imageRef"`
	Phase       draw.Phase `json:"phase"`
	Selected    bool       `json:"selected"`
	Claimed     bool       `json:"claimed"`
	DealDelayMs int64      `json:"dealDelayMs"`
}

type drawPageResponse struct {
	Epoch          string        `json:"epoch"`
	Loading        bool          `json:"loading"`
	Cards          []cardView    `json:"cards"`
	AllFlipped     bool          `json:"allFlipped"`
	CanShuffle     bool          `json:"canShuffle"`
	ShufflePending bool          `json:"shufflePending"`
	NoCardsRemain  bool          `json:"noCardsRemain"`
	Claim          *claim.View   `json:"claim,omitempty"`
	Animation      animationView `json:"animation"`
}

type errorWithPage struct {
	models.ErrorResponse
	Page *drawPageResponse `json:"page,omitempty"`
}

func newDrawPageResponse(p service.DrawPage, anim draw.AnimationProfile) drawPageResponse {
	s := p.Session
	claimed := s.ClaimedSet()
	selected := make(map[int]bool, len(s.Selected))
	for _, pos := range s.Selected {
		selected[pos] = true
	}
	cards := make([]cardView, len(s.Cards))
	for i, c := range s.Cards {
		_, isClaimed := claimed[c.ID]
		cards[i] = cardView{
			Position:    i,
			ID:          c.ID,
			ImageRef:    c.ImageRef,
			Phase:       c.Phase,
			Selected:    selected[i],
			Claimed:     isClaimed,
			DealDelayMs: anim.DealDelay(i).Milliseconds(),
		}
	}
	return drawPageResponse{
		Epoch:          s.Epoch,
		Loading:        s.Loading,
		Cards:          cards,
		AllFlipped:     s.AllFlipped(),
		CanShuffle:     s.CanShuffle(),
		ShufflePending: s.ShufflePending,
		NoCardsRemain:  s.Empty(),
		Claim:          p.Claim,
		Animation: animationView{
			Name:             anim.Name,
			StaggerMs:        anim.Stagger.Milliseconds(),
			BaseDelayMs:      anim.BaseDelay.Milliseconds(),
			ShuffleRestackMs: anim.ShuffleRestack.Milliseconds(),
		},
	}
}
