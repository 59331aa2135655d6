package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"studentattendance/internal/auth"
)

// ErrNotFound is returned for unknown or expired session records.
var ErrNotFound = errors.New("session not found")

// Record is the server-side half of a browser session.
type Record struct {
	ID        string       `json:"id"`
	Session   auth.Session `json:"session"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store keeps session records keyed by id.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec *Record, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryItem struct {
	rec     Record
	expires time.Time
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

// Get returns a copy of a live record.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(it.expires) {
		delete(s.items, id)
		return nil, ErrNotFound
	}
	rec := it.rec
	return &rec, nil
}

// Put stores rec until ttl elapses.
func (s *MemoryStore) Put(_ context.Context, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.ID] = memoryItem{rec: *rec, expires: s.now().Add(ttl)}
	return nil
}

// Delete removes a record; unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// RedisStore keeps records as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore keeps records under prefix+id keys.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "attendance:sess:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get decodes the record stored under id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

// Put stores rec as JSON with a ttl.
func (s *RedisStore) Put(ctx context.Context, rec *Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+rec.ID, raw, ttl).Err()
}

// Delete removes the record key.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}
