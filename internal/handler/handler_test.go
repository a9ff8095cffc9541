package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"cardami/internal/catalog"
	"cardami/internal/draw"
	"cardami/internal/handler"
	"cardami/internal/identity"
	"cardami/internal/models"
	"cardami/internal/repository"
	"cardami/internal/service"
	"cardami/internal/session"
	"cardami/internal/viewstate"
)

// fakeProvider accepts "<email>/secret" style credentials and issues
// "token-<uid>" tokens.
type fakeProvider struct {
	users    map[string]models.Identity // by token
	slow     string                     // token that never resolves
	signOuts []string
}

var _ identity.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: map[string]models.Identity{
		"token-u1": {UID: "u1", Email: "ada@example.com"},
	}}
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*identity.SignedIn, error) {
	for tok, id := range p.users {
		if id.Email == email && password == "secret" {
			return &identity.SignedIn{Token: tok, ExpiresIn: time.Hour, Identity: id}, nil
		}
	}
	return nil, models.NewAuthError("invalid email or password", nil)
}

func (p *fakeProvider) SignUpWithPassword(_ context.Context, email, _ string) (*identity.SignedIn, error) {
	id := models.Identity{UID: "new-" + email, Email: email}
	tok := "token-" + id.UID
	p.users[tok] = id
	return &identity.SignedIn{Token: tok, ExpiresIn: time.Hour, Identity: id, Created: true}, nil
}

func (p *fakeProvider) SignInWithPopupProvider(_ context.Context, idToken string) (*identity.SignedIn, error) {
	if idToken == "" {
		return nil, models.NewAuthError("sign-in popup was closed", nil)
	}
	id := p.users["token-u1"]
	return &identity.SignedIn{Token: "token-u1", ExpiresIn: time.Hour, Identity: id}, nil
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.signOuts = append(p.signOuts, token)
	return nil
}

func (p *fakeProvider) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == p.slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	id, ok := p.users[token]
	if !ok {
		return nil, models.NewAuthError("invalid session", nil)
	}
	return &id, nil
}

type HandlerSuite struct {
	suite.Suite
	provider *fakeProvider
	store    *repository.MemoryStore
	router   *gin.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	cat, err := catalog.Default()
	s.Require().NoError(err)

	s.provider = newFakeProvider()
	s.provider.slow = "token-slow"
	s.store = repository.NewMemoryStore()
	views := viewstate.NewMemoryStore(time.Hour)
	engine := draw.NewEngine(cat, draw.DefaultOptions(), rand.New(rand.NewPCG(7, 11)))

	cards := service.NewCardsService(engine, s.store, views, nil, zap.NewNop())
	gallery := service.NewGalleryService(cat, s.store, views, zap.NewNop())
	h := handler.NewHandler(s.provider, cards, gallery, handler.Options{ResolveTimeout: 50 * time.Millisecond}, zap.NewNop())

	s.router = gin.New()
	h.RegisterRoutes(s.router, nil)
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type page struct {
	Epoch string `json:"epoch"`
	Cards []struct {
		Position    int    `json:"position"`
		ID          string `json:"id"`
		ImageRef    string `json:"imageRef"`
		Phase       string `json:"phase"`
		Selected    bool   `json:"selected"`
		Claimed     bool   `json:"claimed"`
		DealDelayMs int64  `json:"dealDelayMs"`
	} `json:"cards"`
	AllFlipped    bool `json:"allFlipped"`
	CanShuffle    bool `json:"canShuffle"`
	NoCardsRemain bool `json:"noCardsRemain"`
	Claim         *struct {
		Position int    `json:"position"`
		Draft    string `json:"draft"`
		Error    string `json:"error"`
	} `json:"claim"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Page    *page  `json:"page"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *HandlerSuite) TestLandingIsPublic() {
	w := s.do(http.MethodGet, "/", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"authenticated":false`)

	w = s.do(http.MethodGet, "/", "token-u1", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"authenticated":true`)
}

func (s *HandlerSuite) TestGuards() {
	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{"home anonymous", "/home", "", http.StatusSeeOther, "/login"},
		{"memories anonymous", "/memories", "", http.StatusSeeOther, "/login"},
		{"home bad token", "/home", "garbage", http.StatusSeeOther, "/login"},
		{"login signed in", "/login", "token-u1", http.StatusSeeOther, "/home"},
		{"signup signed in", "/signup", "token-u1", http.StatusSeeOther, "/home"},
		{"login anonymous", "/login", "", http.StatusOK, ""},
		{"home unresolved", "/home", "token-slow", http.StatusNoContent, ""},
		{"login unresolved", "/login", "token-slow", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodGet, tt.path, tt.token, nil)
			s.Equal(tt.status, w.Code)
			s.Equal(tt.location, w.Header().Get("Location"))
		})
	}
}

func (s *HandlerSuite) TestAPIRequiresIdentity() {
	w := s.do(http.MethodPost, "/home/shuffle", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(models.ErrCodeUnauthorized, decode[errorBody](s.T(), w).Code)
}

func (s *HandlerSuite) TestLogin() {
	w := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Set-Cookie"), session.CookieName+"=token-u1")
	s.Contains(w.Body.String(), `"redirect":"/home"`)

	doc, err := s.store.GetUserDocument(context.Background(), "u1")
	s.Require().NoError(err)
	s.Empty(doc.Cards)

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(models.ErrCodeAuthFailed, decode[errorBody](s.T(), w).Code)

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestSignupAndPopup() {
	w := s.do(http.MethodPost, "/auth/signup", "", map[string]string{"email": "bo@example.com", "password": "secret"})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Contains(w.Body.String(), `"created":true`)

	w = s.do(http.MethodPost, "/auth/popup", "", map[string]string{})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/auth/popup", "", map[string]string{"idToken": "id-token"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestLogoutClearsCookie() {
	w := s.do(http.MethodPost, "/auth/logout", "token-u1", nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal([]string{"token-u1"}, s.provider.signOuts)
	s.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func (s *HandlerSuite) TestDrawClaimAndGallery() {
	w := s.do(http.MethodGet, "/home", "token-u1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	p := decode[page](s.T(), w)
	s.Require().Len(p.Cards, 3)
	for i, c := range p.Cards {
		s.Equal("visible", c.Phase)
		s.Equal(int64(200+120*i), c.DealDelayMs)
	}
	s.False(p.CanShuffle)

	w = s.do(http.MethodPost, "/home/shuffle", "token-u1", nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(models.ErrCodeShuffleDenied, decode[errorBody](s.T(), w).Code)

	w = s.do(http.MethodPost, "/home/claim/0", "token-u1", nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(models.ErrCodeCardNotFlipped, decode[errorBody](s.T(), w).Code)

	for _, pos := range []string{"0", "1", "2"} {
		w = s.do(http.MethodPost, "/home/flip/"+pos, "token-u1", nil)
		s.Require().Equal(http.StatusOK, w.Code)
	}
	p = decode[page](s.T(), w)
	s.True(p.AllFlipped)
	s.True(p.CanShuffle)

	w = s.do(http.MethodPost, "/home/claim/0", "token-u1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NotNil(decode[page](s.T(), w).Claim)
	claimedID := p.Cards[0].ID

	w = s.do(http.MethodPut, "/home/claim/draft", "token-u1", map[string]string{"draft": "the lake"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("the lake", decode[page](s.T(), w).Claim.Draft)

	w = s.do(http.MethodPost, "/home/claim/submit", "token-u1", map[string]string{"description": "   "})
	s.Require().Equal(http.StatusBadRequest, w.Code)
	eb := decode[errorBody](s.T(), w)
	s.Equal(models.ErrCodeValidation, eb.Code)
	s.Require().NotNil(eb.Page)
	s.Require().NotNil(eb.Page.Claim)
	s.NotEmpty(eb.Page.Claim.Error)

	w = s.do(http.MethodPost, "/home/claim/submit", "token-u1", map[string]string{"description": " Summer at the lake "})
	s.Require().Equal(http.StatusOK, w.Code)
	p = decode[page](s.T(), w)
	s.Nil(p.Claim)
	s.True(p.Cards[0].Claimed)

	w = s.do(http.MethodPost, "/home/shuffle", "token-u1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	p = decode[page](s.T(), w)
	for _, c := range p.Cards {
		s.NotEqual(claimedID, c.ID)
	}

	w = s.do(http.MethodGet, "/memories", "token-u1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	gp := decode[service.GalleryPage](s.T(), w)
	s.Equal(1, gp.Claimed)
	s.Equal(18, gp.Total)

	w = s.do(http.MethodPost, "/memories/"+claimedID+"/flip", "token-u1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"description":"Summer at the lake"`)

	var locked string
	for _, e := range gp.Entries {
		if !e.Claimed {
			locked = e.Card.ID
			break
		}
	}
	w = s.do(http.MethodPost, "/memories/"+locked+"/flip", "token-u1", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/memories/No_Such_Card/flip", "token-u1", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestBadPositionAndLeave() {
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/home", "token-u1", nil).Code)

	w := s.do(http.MethodPost, "/home/flip/abc", "token-u1", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(models.ErrCodeInvalidPosition, decode[errorBody](s.T(), w).Code)

	w = s.do(http.MethodPost, "/home/flip/9", "token-u1", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/home/leave", "token-u1", nil).Code)

	w = s.do(http.MethodPost, "/home/flip/0", "token-u1", nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(models.ErrCodeStaleView, decode[errorBody](s.T(), w).Code)
}

func TestBearerTokenIsAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cat, err := catalog.Default()
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	views := viewstate.NewMemoryStore(time.Hour)
	cards := service.NewCardsService(draw.NewEngine(cat, draw.DefaultOptions(), nil), store, views, nil, zap.NewNop())
	h := handler.NewHandler(newFakeProvider(), cards, service.NewGalleryService(cat, store, views, zap.NewNop()), handler.Options{}, zap.NewNop())
	router := gin.New()
	h.RegisterRoutes(router, nil)

	req := httptest.NewRequest(http.MethodGet, "/home", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer token-u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
