package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardami/internal/middleware"
	"cardami/internal/models"
)

// CookieName is the session cookie set on sign-in.
const CookieName = "cardami_session"

const contextKey = "session_state"

// Resolver verifies a session token and returns its identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// TokenFromRequest reads the session cookie, falling back to a Bearer header.
func TokenFromRequest(r *http.Request) string {
	if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requestSource resolves one token in the background and reports the result
// once.
type requestSource struct {
	ctx      context.Context
	token    string
	resolver Resolver
	logger   *zap.Logger
	done     chan struct{}
}

func newRequestSource(ctx context.Context, token string, resolver Resolver, logger *zap.Logger) *requestSource {
	return &requestSource{ctx: ctx, token: token, resolver: resolver, logger: logger, done: make(chan struct{})}
}

func (s *requestSource) Subscribe(onChange func(*models.Identity)) func() {
	ctx, cancel := context.WithCancel(s.ctx)
	var once sync.Once
	notify := func(id *models.Identity) {
		once.Do(func() {
			if ctx.Err() == nil {
				onChange(id)
			}
			close(s.done)
		})
	}

	if s.token == "" {
		notify(nil)
		return cancel
	}
	go func() {
		id, err := s.resolver.Resolve(ctx, s.token)
		if err != nil {
			s.logger.Debug("Session token rejected", zap.Error(err))
			id = nil
		}
		notify(id)
	}()
	return cancel
}

// wait blocks until the first notification, timeout, or request cancellation.
func (s *requestSource) wait(timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.logger.Warn("Identity resolution timed out", zap.Duration("timeout", timeout))
	case <-s.ctx.Done():
	}
}

// Middleware attaches a bound Store to every request. When the resolver does
// not answer within timeout the state stays unresolved.
func Middleware(resolver Resolver, timeout time.Duration, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("Session")
	return func(c *gin.Context) {
		store := NewStore()
		src := newRequestSource(c.Request.Context(), TokenFromRequest(c.Request), resolver, log)
		store.Bind(src)
		defer store.Close()
		src.wait(timeout)

		c.Set(contextKey, store)
		if uid := store.State().UserID(); uid != "" {
			c.Set(middleware.UserIDKey, uid)
		}
		c.Next()
	}
}

// FromContext returns the request's session state. Requests that did not go
// through Middleware are unresolved.
func FromContext(c *gin.Context) State {
	v, ok := c.Get(contextKey)
	if !ok {
		return State{}
	}
	store, ok := v.(*Store)
	if !ok {
		return State{}
	}
	return store.State()
}

// WithState attaches a fixed state to c. Used where the state is already
// known, such as right after sign-in and in tests.
func WithState(c *gin.Context, st State) {
	store := NewStore()
	store.state = st
	c.Set(contextKey, store)
	if uid := st.UserID(); uid != "" && st.Resolved {
		c.Set(middleware.UserIDKey, uid)
	}
}
