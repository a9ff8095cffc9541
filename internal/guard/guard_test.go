package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"cardami/internal/models"
	"cardami/internal/session"
)

type page struct{ name string }

var (
	unresolved = session.State{}
	signedOut  = session.State{Resolved: true}
	signedIn   = session.State{Resolved: true, Identity: &models.Identity{UID: "u1"}}
)

func TestPublicOnly(t *testing.T) {
	login := page{"login"}

	d := PublicOnly(signedOut, login)
	assert.Equal(t, Render, d.Outcome)
	assert.Equal(t, login, d.Content)

	d = PublicOnly(signedIn, login)
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, RouteHome, d.Location)
	assert.Zero(t, d.Content)

	d = PublicOnly(unresolved, login)
	assert.Equal(t, Pending, d.Outcome)
	assert.Zero(t, d.Content)
	assert.Empty(t, d.Location)
}

func TestAuthRequired(t *testing.T) {
	home := page{"home"}

	assert.Equal(t, Decision[page]{Outcome: Render, Content: home}, AuthRequired(signedIn, home))
	assert.Equal(t, Decision[page]{Outcome: Redirect, Location: RouteLogin}, AuthRequired(signedOut, home))
	assert.Equal(t, Decision[page]{Outcome: Pending}, AuthRequired(unresolved, home))

	// an identity reported before resolution is still pending
	early := session.State{Identity: &models.Identity{UID: "u1"}}
	assert.Equal(t, Pending, AuthRequired(early, home).Outcome)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "redirect", Redirect.String())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		kind         Kind
		state        session.State
		wantStatus   int
		wantLocation string
	}{
		{"login signed out", KindPublicOnly, signedOut, http.StatusOK, ""},
		{"login signed in", KindPublicOnly, signedIn, http.StatusSeeOther, RouteHome},
		{"login unresolved", KindPublicOnly, unresolved, http.StatusNoContent, ""},
		{"home signed in", KindAuthRequired, signedIn, http.StatusOK, ""},
		{"home signed out", KindAuthRequired, signedOut, http.StatusSeeOther, RouteLogin},
		{"home unresolved", KindAuthRequired, unresolved, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) { session.WithState(c, tt.state) })
			router.GET("/page", Middleware(tt.kind), func(c *gin.Context) {
				c.String(http.StatusOK, "content")
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			if tt.wantStatus != http.StatusOK {
				assert.NotContains(t, w.Body.String(), "content")
			}
		})
	}
}
