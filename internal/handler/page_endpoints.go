package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cardami/internal/guard"
	"cardami/internal/session"
)

func pageFor(c *gin.Context, name string, links ...string) pageResponse {
	st := session.FromContext(c)
	return pageResponse{
		Page:          name,
		Authenticated: st.Authenticated(),
		Identity:      st.Identity,
		Links:         links,
	}
}

// landing godoc
// @Summary Landing page
// @Tags pages
// @Produce json
// @Success 200 {object} pageResponse
// @Router / [get]
func (h *Handler) landing(c *gin.Context) {
	if session.FromContext(c).Authenticated() {
		c.JSON(http.StatusOK, pageFor(c, "landing", guard.RouteHome, guard.RouteMemories))
		return
	}
	c.JSON(http.StatusOK, pageFor(c, "landing", guard.RouteLogin, guard.RouteSignup))
}

func (h *Handler) loginPage(c *gin.Context) {
	c.JSON(http.StatusOK, pageFor(c, "login", guard.RouteSignup))
}

func (h *Handler) signupPage(c *gin.Context) {
	c.JSON(http.StatusOK, pageFor(c, "signup", guard.RouteLogin))
}
