package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cardami/internal/models"
)

const localIssuer = "cardami-local"

// Revocations remembers signed-out session ids until they would have expired.
type Revocations interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevocations is an in-process Revocations.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocations creates an empty revocation list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, until := range m.revoked {
		if now.After(until) {
			delete(m.revoked, id)
		}
	}
	m.revoked[sessionID] = now.Add(ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[sessionID]
	return ok && time.Now().Before(until), nil
}

// RedisRevocations keeps the revocation list in Redis so every instance
// sees a sign-out.
type RedisRevocations struct {
	client *redis.Client
}

// NewRedisRevocations creates a Redis-backed revocation list.
func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func revokedKey(sessionID string) string {
	return fmt.Sprintf("cardami:revoked_session:%s", sessionID)
}

func (r *RedisRevocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKey(sessionID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked session in redis: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked session in redis: %w", err)
	}
	return n > 0, nil
}

type localUser struct {
	uid          string
	email        string
	passwordHash []byte
}

type localClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var _ Provider = (*LocalProvider)(nil)

// LocalProvider is a self-contained provider for development and tests:
// accounts live in memory, sessions are HS256 JWTs.
type LocalProvider struct {
	mu      sync.RWMutex
	users   map[string]*localUser // by email
	secret  []byte
	ttl     time.Duration
	revoked Revocations
	cost    int
	now     func() time.Time
	logger  *zap.Logger
}

// NewLocalProvider creates a LocalProvider. A nil revocations list keeps
// sign-outs in memory.
func NewLocalProvider(secret string, ttl time.Duration, revoked Revocations, logger *zap.Logger) *LocalProvider {
	if revoked == nil {
		revoked = NewMemoryRevocations()
	}
	return &LocalProvider{
		users:   make(map[string]*localUser),
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		logger:  logger.Named("LocalProvider"),
	}
}

func (p *LocalProvider) SignUpWithPassword(_ context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, models.NewAuthError("could not create account", err)
	}

	p.mu.Lock()
	if _, exists := p.users[email]; exists {
		p.mu.Unlock()
		return nil, models.NewAuthError("email already in use", nil)
	}
	u := &localUser{uid: uuid.NewString(), email: email, passwordHash: hash}
	p.users[email] = u
	p.mu.Unlock()

	p.logger.Info("Local user created", zap.String("uid", u.uid))
	signed, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	signed.Created = true
	return signed, nil
}

func (p *LocalProvider) SignInWithPassword(_ context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	p.mu.RLock()
	u, ok := p.users[email]
	p.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, models.NewAuthError("invalid email or password", nil)
	}
	return p.issue(u)
}

func (p *LocalProvider) SignInWithPopupProvider(_ context.Context, _ string) (*SignedIn, error) {
	return nil, models.NewAuthError("popup sign-in is not available", nil)
}

func (p *LocalProvider) issue(u *localUser) (*SignedIn, error) {
	now := p.now()
	claims := localClaims{
		Email: u.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.uid,
			ID:        uuid.NewString(),
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, models.NewAuthError("could not start session", err)
	}
	return &SignedIn{Token: token, ExpiresIn: p.ttl, Identity: models.Identity{UID: u.uid, Email: u.email}}, nil
}

func (p *LocalProvider) parse(token string, opts ...jwt.ParserOption) (*localClaims, error) {
	opts = append(opts, jwt.WithIssuer(localIssuer), jwt.WithTimeFunc(p.now))
	parsed, err := jwt.ParseWithClaims(token, &localClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.NewAuthError("session expired", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.NewAuthError("malformed session", err)
		default:
			return nil, models.NewAuthError("invalid session", err)
		}
	}
	claims, ok := parsed.Claims.(*localClaims)
	if !ok || !parsed.Valid {
		return nil, models.NewAuthError("invalid session", nil)
	}
	return claims, nil
}

func (p *LocalProvider) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := p.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := p.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		p.logger.Error("Revocation check failed", zap.Error(err))
		return nil, models.NewAuthError("session check failed", err)
	}
	if revoked {
		return nil, models.NewAuthError("session revoked", nil)
	}
	return &models.Identity{UID: claims.Subject, Email: claims.Email}, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := p.parse(token)
	if err != nil {
		// expired or forged tokens are already unusable
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(p.now())
	if err := p.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		p.logger.Error("Failed to revoke session", zap.String("uid", claims.Subject), zap.Error(err))
		return models.NewAuthError("sign out failed", err)
	}
	p.logger.Info("User signed out", zap.String("uid", claims.Subject))
	return nil
}
