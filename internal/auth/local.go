package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the hosted provider's default policy.
const MinPasswordLength = 6

// UserStore persists accounts and refresh tokens for LocalProvider.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, string, error)
	UserByID(ctx context.Context, id string) (User, error)
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// ConsumeRefreshToken revokes a live token and returns its owner.
	ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error)
	RevokeRefreshTokens(ctx context.Context, userID string) error
}

// LocalProvider is a self-hosted identity provider: bcrypt password hashes and
// HS256 token pairs with rotating refresh tokens.
type LocalProvider struct {
	users      UserStore
	issuer     string
	key        string
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	now        func() time.Time
}

// NewLocalProvider creates a provider over a user store.
func NewLocalProvider(users UserStore, issuer, key string, accessTTL, refreshTTL time.Duration) *LocalProvider {
	return &LocalProvider{
		users:      users,
		issuer:     issuer,
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// SignUp creates an account and signs it in; there is no email confirmation step.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := p.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}
	return p.issue(ctx, u)
}

// SignInWithPassword checks the password against the stored hash.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	u, hash, err := p.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return p.issue(ctx, u)
}

// SignOut revokes every refresh token of the token's owner.
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.parse(accessToken, tokenAccess)
	if err != nil {
		return err
	}
	return p.users.RevokeRefreshTokens(ctx, claims.Subject)
}

// GetUser resolves the owner of a valid access token.
func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := p.parse(accessToken, tokenAccess)
	if err != nil {
		return nil, err
	}
	u, err := p.users.UserByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RefreshSession exchanges a refresh token for a new pair; the old token is spent.
func (p *LocalProvider) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if _, err := p.parse(refreshToken, tokenRefresh); err != nil {
		return nil, err
	}
	userID, err := p.users.ConsumeRefreshToken(ctx, refreshToken, p.now())
	if err != nil {
		return nil, err
	}
	u, err := p.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.issue(ctx, u)
}

func (p *LocalProvider) parse(token, typ string) (Claims, error) {
	claims, err := Parse(token, p.key, p.issuer)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != typ {
		return Claims{}, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	return claims, nil
}

func (p *LocalProvider) issue(ctx context.Context, u User) (*Session, error) {
	pair, err := Issue(u, p.issuer, p.key, p.now(), p.accessTTL, p.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := p.users.SaveRefreshToken(ctx, u.ID, pair.RefreshToken, pair.RefreshExp); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExp,
		User:         u,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
