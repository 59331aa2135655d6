package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"studentattendance/internal/auth"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

func (t tokenResponse) session(now time.Time) *auth.Session {
	s := &auth.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         auth.User{ID: t.User.ID, Email: t.User.Email},
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		if exp, err := auth.ExpiryOf(t.AccessToken); err == nil {
			s.ExpiresAt = exp
		}
	}
	return s
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, mapAuthError(err, auth.ErrInvalidCredentials)
	}
	return out.session(time.Now()), nil
}

// signUpResponse is a session when the project auto-confirms and a bare user otherwise.
type signUpResponse struct {
	tokenResponse
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp registers an account. The session is nil until the email is confirmed.
func (c *Client) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	var out signUpResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentials{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, mapAuthError(err, nil)
	}
	if out.AccessToken == "" {
		return nil, nil
	}
	return out.tokenResponse.session(time.Now()), nil
}

// SignOut revokes the session's refresh tokens at the provider.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout", bearer: accessToken}, nil)
	return mapAuthError(err, auth.ErrInvalidToken)
}

// GetUser resolves the owner of an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*auth.User, error) {
	if accessToken == "" {
		return nil, auth.ErrNoSession
	}
	var out userResponse
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", bearer: accessToken}, &out)
	if err != nil {
		return nil, mapAuthError(err, auth.ErrInvalidToken)
	}
	return &auth.User{ID: out.ID, Email: out.Email}, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error) {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &out)
	if err != nil {
		return nil, mapAuthError(err, auth.ErrInvalidToken)
	}
	return out.session(time.Now()), nil
}

// mapAuthError tags 4xx client errors with a domain error; 5xx stay untyped.
func mapAuthError(err, onClientError error) error {
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Status == http.StatusUnprocessableEntity && apiErr.Code == "weak_password":
		apiErr.Err = auth.ErrWeakPassword
	case apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists":
		apiErr.Err = auth.ErrEmailTaken
	case apiErr.Status >= 400 && apiErr.Status < 500 && onClientError != nil:
		apiErr.Err = onClientError
	}
	return apiErr
}
