package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryAccount struct {
	user User
	hash string
}

type memoryToken struct {
	userID  string
	expires time.Time
	revoked bool
}

// MemoryUserStore is an in-process UserStore for the memory backend and tests.
type MemoryUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*memoryAccount
	byID    map[string]*memoryAccount
	tokens  map[string]*memoryToken
}

// NewMemoryUserStore returns an empty in-process user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byEmail: make(map[string]*memoryAccount),
		byID:    make(map[string]*memoryAccount),
		tokens:  make(map[string]*memoryToken),
	}
}

// CreateUser adds an account, failing with ErrEmailTaken on duplicates.
func (s *MemoryUserStore) CreateUser(_ context.Context, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return User{}, ErrEmailTaken
	}
	acc := &memoryAccount{user: User{ID: uuid.NewString(), Email: email}, hash: passwordHash}
	s.byEmail[email] = acc
	s.byID[acc.user.ID] = acc
	return acc.user, nil
}

// UserByEmail returns the account and its password hash.
func (s *MemoryUserStore) UserByEmail(_ context.Context, email string) (User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byEmail[email]
	if !ok {
		return User{}, "", ErrUserNotFound
	}
	return acc.user, acc.hash, nil
}

// UserByID returns the account with the given id.
func (s *MemoryUserStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return acc.user, nil
}

// SaveRefreshToken records a live refresh token for userID.
func (s *MemoryUserStore) SaveRefreshToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &memoryToken{userID: userID, expires: expiresAt}
	return nil
}

// ConsumeRefreshToken revokes a live token and returns its owner.
func (s *MemoryUserStore) ConsumeRefreshToken(_ context.Context, token string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.revoked || !now.Before(t.expires) {
		return "", ErrInvalidToken
	}
	t.revoked = true
	return t.userID, nil
}

// RevokeRefreshTokens revokes every token of userID.
func (s *MemoryUserStore) RevokeRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}
