package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the attendance mark recorded for an enrollment.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ParseStatus accepts the two statuses case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present":
		return StatusPresent, nil
	case "absent":
		return StatusAbsent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Division groups entries; the allowed set is fixed at startup.
type Division string

// Divisions is the ordered set of divisions operators can choose from.
type Divisions []Division

// ParseDivisions builds a set from names, dropping blanks and duplicates.
func ParseDivisions(names []string) Divisions {
	seen := make(map[Division]bool, len(names))
	var out Divisions
	for _, n := range names {
		d := Division(strings.TrimSpace(n))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Default is the division selected before the operator picks one.
func (ds Divisions) Default() Division {
	if len(ds) == 0 {
		return ""
	}
	return ds[0]
}

// Contains reports whether d is an allowed division.
func (ds Divisions) Contains(d Division) bool {
	for _, v := range ds {
		if v == d {
			return true
		}
	}
	return false
}

// Entry is one row of the attendance table.
type Entry struct {
	ID         string    `json:"id"`
	Enrollment string    `json:"enrollment"`
	Division   Division  `json:"division"`
	Status     Status    `json:"status"`
	Date       string    `json:"date"`
	UserID     string    `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrEnrollmentRequired = errors.New("enrollment number required")
	ErrUserRequired       = errors.New("user not logged in")
	ErrInvalidDivision    = errors.New("invalid division")
	ErrInvalidStatus      = errors.New("invalid status")
)

// Repository is the remote attendance table.
type Repository interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	ListByDivision(ctx context.Context, division Division) ([]Entry, error)
}
