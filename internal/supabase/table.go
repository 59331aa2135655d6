package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
)

const attendanceTable = "/rest/v1/attendance"

type insertRow struct {
	Enrollment string              `json:"enrollment"`
	Division   attendance.Division `json:"division"`
	Status     attendance.Status   `json:"status"`
	Date       string              `json:"date"`
	UserID     string              `json:"user_id"`
}

// rowID accepts uuid primary keys as well as the default int8 identity column.
type rowID string

func (id *rowID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = rowID(n.String())
	return nil
}

// tableRow is an attendance row as PostgREST returns it.
type tableRow struct {
	ID         rowID               `json:"id"`
	Enrollment string              `json:"enrollment"`
	Division   attendance.Division `json:"division"`
	Status     attendance.Status   `json:"status"`
	Date       string              `json:"date"`
	UserID     string              `json:"user_id"`
	CreatedAt  time.Time           `json:"created_at"`
}

func (r tableRow) entry() attendance.Entry {
	return attendance.Entry{
		ID:         string(r.ID),
		Enrollment: r.Enrollment,
		Division:   r.Division,
		Status:     r.Status,
		Date:       r.Date,
		UserID:     r.UserID,
		CreatedAt:  r.CreatedAt,
	}
}

// Insert writes one row as the user attached to ctx, so row level security applies.
func (c *Client) Insert(ctx context.Context, e attendance.Entry) (attendance.Entry, error) {
	var out []tableRow
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    attendanceTable,
		bearer:  bearerFrom(ctx),
		headers: map[string]string{"Prefer": "return=representation"},
		body: []insertRow{{
			Enrollment: e.Enrollment,
			Division:   e.Division,
			Status:     e.Status,
			Date:       e.Date,
			UserID:     e.UserID,
		}},
	}, &out)
	if err != nil {
		return attendance.Entry{}, err
	}
	if len(out) == 0 {
		return attendance.Entry{}, errors.New("supabase: insert returned no row")
	}
	return out[0].entry(), nil
}

// ListByDivision selects a division's rows, newest first.
func (c *Client) ListByDivision(ctx context.Context, division attendance.Division) ([]attendance.Entry, error) {
	var out []tableRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   attendanceTable,
		bearer: bearerFrom(ctx),
		query: url.Values{
			"select":   {"*"},
			"division": {"eq." + string(division)},
			"order":    {"created_at.desc"},
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	entries := make([]attendance.Entry, 0, len(out))
	for _, r := range out {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func bearerFrom(ctx context.Context) string {
	if s, ok := auth.SessionFromContext(ctx); ok {
		return s.AccessToken
	}
	return ""
}
