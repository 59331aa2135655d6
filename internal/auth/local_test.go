package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestProvider() (*LocalProvider, *MemoryUserStore) {
	users := NewMemoryUserStore()
	p := NewLocalProvider(users, "attendance-test", "test-signing-key-0123456789", 15*time.Minute, 24*time.Hour)
	p.cost = bcrypt.MinCost
	return p, users
}

func TestSignUpAndSignIn(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()

	s, err := p.SignUp(ctx, "  Prof@School.edu ", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if s.User.Email != "prof@school.edu" || s.User.ID == "" {
		t.Fatalf("unexpected user %+v", s.User)
	}
	if s.AccessToken == "" || s.RefreshToken == "" || s.ExpiresAt.IsZero() {
		t.Fatal("SignUp must return a full session")
	}

	s2, err := p.SignInWithPassword(ctx, "prof@school.edu", "secret1")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if s2.User.ID != s.User.ID {
		t.Fatalf("user id changed: %s vs %s", s2.User.ID, s.User.ID)
	}

	u, err := p.GetUser(ctx, s2.AccessToken)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Email != "prof@school.edu" {
		t.Errorf("Email = %q", u.Email)
	}
}

func TestSignUpRejections(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()

	if _, err := p.SignUp(ctx, "not-an-email", "secret1"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("invalid email error = %v", err)
	}
	if _, err := p.SignUp(ctx, "a@b.c", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password error = %v", err)
	}
	if _, err := p.SignUp(ctx, "a@b.c", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SignUp(ctx, "A@B.C", "secret1"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate error = %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "a@b.c", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SignInWithPassword(ctx, "a@b.c", "wrong!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := p.SignInWithPassword(ctx, "nobody@b.c", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()
	s, err := p.SignUp(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	next, err := p.RefreshSession(ctx, s.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if next.RefreshToken == s.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, err := p.RefreshSession(ctx, s.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reusing a spent refresh token: %v", err)
	}
	if _, err := p.RefreshSession(ctx, next.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestSignOutRevokesRefreshTokens(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()
	s, err := p.SignUp(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SignOut(ctx, s.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := p.RefreshSession(ctx, s.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh after sign-out: %v", err)
	}
	if err := p.SignOut(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("sign-out with garbage token: %v", err)
	}
}

func TestGetUserRejectsRefreshToken(t *testing.T) {
	p, _ := newTestProvider()
	s, err := p.SignUp(context.Background(), "a@b.c", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.GetUser(context.Background(), s.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		s    *Session
		want bool
	}{
		{"nil", nil, false},
		{"no expiry", &Session{}, false},
		{"fresh", &Session{ExpiresAt: now.Add(time.Hour)}, false},
		{"within leeway", &Session{ExpiresAt: now.Add(10 * time.Second)}, true},
		{"past", &Session{ExpiresAt: now.Add(-time.Minute)}, true},
	}
	for _, tc := range cases {
		if got := tc.s.Expired(now); got != tc.want {
			t.Errorf("%s: Expired = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := SessionFromContext(ctx); ok {
		t.Fatal("empty context has a session")
	}
	if WithSession(ctx, nil) != ctx {
		t.Fatal("nil session must not wrap the context")
	}
	s := &Session{AccessToken: "tok"}
	got, ok := SessionFromContext(WithSession(ctx, s))
	if !ok || got.AccessToken != "tok" {
		t.Fatalf("got %+v, %v", got, ok)
	}
}
