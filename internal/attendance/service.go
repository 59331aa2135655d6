package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format stored in Entry.Date.
const DateLayout = "2006-01-02"

// Service validates form input before it reaches the repository.
type Service struct {
	repo      Repository
	divisions Divisions
	now       func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, divisions Divisions) *Service {
	return &Service{repo: repo, divisions: divisions, now: time.Now}
}

// Divisions returns the allowed divisions.
func (s *Service) Divisions() Divisions { return s.divisions }

// Mark records one attendance entry for today. Nothing is sent to the repository
// unless the enrollment is non-empty and a user is present.
func (s *Service) Mark(ctx context.Context, userID, enrollment string, division Division, status Status) (Entry, error) {
	enrollment = strings.TrimSpace(enrollment)
	if enrollment == "" {
		return Entry{}, ErrEnrollmentRequired
	}
	if userID == "" {
		return Entry{}, ErrUserRequired
	}
	if !s.divisions.Contains(division) {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidDivision, division)
	}
	if status != StatusPresent && status != StatusAbsent {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return s.repo.Insert(ctx, Entry{
		Enrollment: enrollment,
		Division:   division,
		Status:     status,
		Date:       s.now().UTC().Format(DateLayout),
		UserID:     userID,
	})
}

// List returns every entry of a division, newest first.
func (s *Service) List(ctx context.Context, division Division) ([]Entry, error) {
	if !s.divisions.Contains(division) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDivision, division)
	}
	return s.repo.ListByDivision(ctx, division)
}
