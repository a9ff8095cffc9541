package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardami/internal/guard"
	"cardami/internal/identity"
	"cardami/internal/session"
)

// login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}
	signed, err := h.provider.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		signInsTotal.WithLabelValues("password", "failure").Inc()
		handleServiceError(c, err)
		return
	}
	signInsTotal.WithLabelValues("password", "success").Inc()
	h.completeSignIn(c, signed, http.StatusOK)
}

// signup godoc
// @Summary Create an account and sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Credentials"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}
	signed, err := h.provider.SignUpWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	signUpsTotal.Inc()
	h.completeSignIn(c, signed, http.StatusCreated)
}

// popup godoc
// @Summary Exchange a popup provider ID token for a session
// @Tags auth
// @Accept json
// @Produce json
// @Param token body popupRequest true "ID token"
// @Success 200 {object} authResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/popup [post]
func (h *Handler) popup(c *gin.Context) {
	var req popupRequest
	// an empty body is a cancelled popup; the provider reports it
	_ = c.ShouldBindJSON(&req)
	signed, err := h.provider.SignInWithPopupProvider(c.Request.Context(), req.IDToken)
	if err != nil {
		signInsTotal.WithLabelValues("popup", "failure").Inc()
		handleServiceError(c, err)
		return
	}
	signInsTotal.WithLabelValues("popup", "success").Inc()
	h.completeSignIn(c, signed, http.StatusOK)
}

func (h *Handler) completeSignIn(c *gin.Context, signed *identity.SignedIn, status int) {
	if err := h.cards.EnsureUserDocument(c.Request.Context(), signed.Identity.UID); err != nil {
		// the draw page creates it on first visit
		h.logger.Warn("Failed to ensure user document after sign-in",
			zap.String("uid", signed.Identity.UID), zap.Error(err))
	}
	h.setSessionCookie(c, signed.Token, signed.ExpiresIn)
	id := signed.Identity
	session.WithState(c, session.State{Identity: &id, Resolved: true})
	c.JSON(status, authResponse{Identity: id, Redirect: guard.RouteHome, Created: signed.Created})
}

// logout godoc
// @Summary Sign out and revoke the session
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	token := session.TokenFromRequest(c.Request)
	if token != "" {
		if err := h.provider.SignOut(c.Request.Context(), token); err != nil {
			h.logger.Warn("Sign-out failed, clearing cookie anyway", zap.Error(err))
		}
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}
