// Package handler exposes the pages and the JSON API over gin.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardami/internal/guard"
	"cardami/internal/identity"
	"cardami/internal/middleware"
	"cardami/internal/models"
	"cardami/internal/service"
	"cardami/internal/session"
)

// Options tune the HTTP surface.
type Options struct {
	// ResolveTimeout bounds how long a request waits for the identity
	// provider before the session is served as unresolved.
	ResolveTimeout time.Duration
	CookieSecure   bool
}

type Handler struct {
	provider identity.Provider
	cards    service.CardsService
	gallery  service.GalleryService
	opts     Options
	logger   *zap.Logger
}

func NewHandler(
	provider identity.Provider,
	cards service.CardsService,
	gallery service.GalleryService,
	opts Options,
	logger *zap.Logger,
) *Handler {
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 2 * time.Second
	}
	return &Handler{
		provider: provider,
		cards:    cards,
		gallery:  gallery,
		opts:     opts,
		logger:   logger.Named("Handler"),
	}
}

// RegisterRoutes mounts every route on router. authLimiter is applied to the
// sign-in endpoints; nil disables rate limiting.
func (h *Handler) RegisterRoutes(router gin.IRouter, authLimiter gin.HandlerFunc) {
	withSession := router.Group("", session.Middleware(h.provider, h.opts.ResolveTimeout, h.logger))

	withSession.GET(guard.RouteLanding, h.landing)

	public := withSession.Group("", guard.Middleware(guard.KindPublicOnly))
	{
		public.GET(guard.RouteLogin, h.loginPage)
		public.GET(guard.RouteSignup, h.signupPage)
	}

	private := withSession.Group("", guard.Middleware(guard.KindAuthRequired))
	{
		private.GET(guard.RouteHome, h.enterDrawPage)
		private.GET(guard.RouteMemories, h.enterGallery)
	}

	drawAPI := withSession.Group(guard.RouteHome, requireIdentity())
	{
		drawAPI.POST("/flip/:position", h.flip)
		drawAPI.POST("/shuffle", h.shuffle)
		drawAPI.POST("/claim/:position", h.openClaim)
		drawAPI.PUT("/claim/draft", h.editClaim)
		drawAPI.POST("/claim/submit", h.submitClaim)
		drawAPI.DELETE("/claim", h.closeClaim)
		drawAPI.POST("/leave", h.leaveDrawPage)
	}

	galleryAPI := withSession.Group(guard.RouteMemories, requireIdentity())
	{
		galleryAPI.POST("/:cardId/flip", h.toggleGalleryFlip)
	}

	authGroup := withSession.Group("/auth")
	if authLimiter != nil {
		authGroup.Use(authLimiter)
	}
	{
		authGroup.POST("/login", h.login)
		authGroup.POST("/signup", h.signup)
		authGroup.POST("/popup", h.popup)
		authGroup.POST("/logout", h.logout)
	}
}

// requireIdentity guards API routes: unlike page routes they never redirect.
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := session.FromContext(c)
		if !st.Authenticated() {
			handleServiceError(c, models.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, int(ttl.Seconds()), "/", "", h.opts.CookieSecure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, "", -1, "/", "", h.opts.CookieSecure, true)
}
