package attendance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PGRepository persists attendance rows in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Insert writes a single row and returns it with the server-assigned creation time.
func (r *PGRepository) Insert(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, enrollment, division, status, date, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.Enrollment, string(e.Division), string(e.Status), e.Date, e.UserID)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return Entry{}, fmt.Errorf("insert attendance: %w", err)
	}
	return e, nil
}

// ListByDivision returns all rows of a division ordered by creation time, newest first.
func (r *PGRepository) ListByDivision(ctx context.Context, division Division) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, enrollment, division, status, date::text, COALESCE(user_id::text, ''), created_at
		FROM attendance
		WHERE division = $1
		ORDER BY created_at DESC
	`, string(division))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Enrollment, &e.Division, &e.Status, &e.Date, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
