package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"cardami/internal/models"
)

// NewFirebaseApp initialises the Firebase Admin SDK. An empty credentials
// path falls back to application default credentials.
func NewFirebaseApp(ctx context.Context, projectID, credentialsPath string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	return app, nil
}

// AuthClient is the part of *auth.Client the provider uses.
type AuthClient interface {
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookieAndCheckRevoked(ctx context.Context, sessionCookie string) (*auth.Token, error)
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

var _ AuthClient = (*auth.Client)(nil)

// PasswordVerifier exchanges email and password for a Firebase ID token.
// The Admin SDK cannot do this, so it goes through the Identity Toolkit API.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (idToken string, err error)
}

type toolkitVerifier struct {
	svc *identitytoolkit.Service
}

// NewToolkitVerifier creates a PasswordVerifier that calls Identity Toolkit
// with the project's web API key.
func NewToolkitVerifier(ctx context.Context, apiKey string) (PasswordVerifier, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &toolkitVerifier{svc: svc}, nil
}

func (v *toolkitVerifier) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	resp, err := v.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == 400 {
			return "", models.NewAuthError("invalid email or password", nil)
		}
		return "", models.NewAuthError("identity provider unavailable", err)
	}
	return resp.IdToken, nil
}

var _ Provider = (*FirebaseProvider)(nil)

// FirebaseProvider issues Firebase session cookies.
type FirebaseProvider struct {
	auth     AuthClient
	password PasswordVerifier
	ttl      time.Duration
	logger   *zap.Logger
}

// NewFirebaseProvider creates the hosted identity provider. ttl must be
// between 5 minutes and 14 days.
func NewFirebaseProvider(client AuthClient, password PasswordVerifier, ttl time.Duration, logger *zap.Logger) *FirebaseProvider {
	return &FirebaseProvider{auth: client, password: password, ttl: ttl, logger: logger.Named("FirebaseProvider")}
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewAuthError("email and password are required", nil)
	}
	idToken, err := p.password.VerifyPassword(ctx, email, password)
	if err != nil {
		p.logger.Info("Password sign-in rejected", zap.String("email", email), zap.Error(err))
		return nil, asAuthError("invalid email or password", err)
	}
	return p.exchange(ctx, idToken, false)
}

func (p *FirebaseProvider) SignUpWithPassword(ctx context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return nil, err
	}
	user, err := p.auth.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, models.NewAuthError("email already in use", err)
		}
		p.logger.Error("Failed to create firebase user", zap.String("email", email), zap.Error(err))
		return nil, models.NewAuthError("could not create account", err)
	}
	p.logger.Info("Firebase user created", zap.String("uid", user.UID))

	idToken, err := p.password.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, asAuthError("account created but sign-in failed", err)
	}
	return p.exchange(ctx, idToken, true)
}

func (p *FirebaseProvider) SignInWithPopupProvider(ctx context.Context, idToken string) (*SignedIn, error) {
	if idToken == "" {
		return nil, models.NewAuthError("popup sign-in was cancelled", nil)
	}
	return p.exchange(ctx, idToken, false)
}

func (p *FirebaseProvider) exchange(ctx context.Context, idToken string, created bool) (*SignedIn, error) {
	tok, err := p.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, models.NewAuthError("invalid id token", err)
	}
	cookie, err := p.auth.SessionCookie(ctx, idToken, p.ttl)
	if err != nil {
		p.logger.Error("Failed to create session cookie", zap.String("uid", tok.UID), zap.Error(err))
		return nil, models.NewAuthError("could not start session", err)
	}
	return &SignedIn{Token: cookie, ExpiresIn: p.ttl, Identity: identityFromToken(tok), Created: created}, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	tok, err := p.auth.VerifySessionCookie(ctx, token)
	if err != nil {
		// already unusable
		return nil
	}
	if err := p.auth.RevokeRefreshTokens(ctx, tok.UID); err != nil {
		p.logger.Error("Failed to revoke refresh tokens", zap.String("uid", tok.UID), zap.Error(err))
		return models.NewAuthError("sign out failed", err)
	}
	p.logger.Info("User signed out", zap.String("uid", tok.UID))
	return nil
}

func (p *FirebaseProvider) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	tok, err := p.auth.VerifySessionCookieAndCheckRevoked(ctx, token)
	if err != nil {
		switch {
		case auth.IsSessionCookieRevoked(err):
			return nil, models.NewAuthError("session revoked", err)
		case auth.IsSessionCookieInvalid(err):
			return nil, models.NewAuthError("invalid session", err)
		default:
			return nil, models.NewAuthError("session check failed", err)
		}
	}
	id := identityFromToken(tok)
	return &id, nil
}

func identityFromToken(tok *auth.Token) models.Identity {
	id := models.Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	return id
}

func asAuthError(reason string, err error) error {
	var aErr *models.AuthError
	if errors.As(err, &aErr) {
		return aErr
	}
	return models.NewAuthError(reason, err)
}
