package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps rows in process memory. Used by the memory backend.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows []Entry
	now  func() time.Time
}

// NewMemoryRepository returns an empty in-process repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

// Insert stores a copy of e with a fresh id and creation time.
func (m *MemoryRepository) Insert(_ context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = m.now().UTC()
	m.rows = append(m.rows, e)
	return e, nil
}

// ListByDivision walks rows backwards so equal timestamps keep newest-first order.
func (m *MemoryRepository) ListByDivision(_ context.Context, division Division) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Entry
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Division == division {
			res = append(res, m.rows[i])
		}
	}
	return res, nil
}
