package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingRepo struct {
	inserted []Entry
	listed   []Division
	err      error
}

func (r *recordingRepo) Insert(_ context.Context, e Entry) (Entry, error) {
	r.inserted = append(r.inserted, e)
	if r.err != nil {
		return Entry{}, r.err
	}
	e.ID = "row-1"
	return e, nil
}

func (r *recordingRepo) ListByDivision(_ context.Context, d Division) ([]Entry, error) {
	r.listed = append(r.listed, d)
	return nil, r.err
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, ParseDivisions([]string{"A", "F"}))
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)) }
	return svc
}

func TestMarkRejectsEmptyEnrollmentWithoutRemoteCall(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(repo)

	for _, enrollment := range []string{"", "   "} {
		_, err := svc.Mark(context.Background(), "user-1", enrollment, "A", StatusPresent)
		if !errors.Is(err, ErrEnrollmentRequired) {
			t.Fatalf("Mark(%q) error = %v, want ErrEnrollmentRequired", enrollment, err)
		}
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("expected no insert, got %d", len(repo.inserted))
	}
}

func TestMarkRequiresUser(t *testing.T) {
	repo := &recordingRepo{}
	_, err := newTestService(repo).Mark(context.Background(), "", "E1", "A", StatusAbsent)
	if !errors.Is(err, ErrUserRequired) {
		t.Fatalf("error = %v, want ErrUserRequired", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("insert issued without a user")
	}
}

func TestMarkValidatesDivisionAndStatus(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(repo)

	if _, err := svc.Mark(context.Background(), "u", "E1", "Z", StatusPresent); !errors.Is(err, ErrInvalidDivision) {
		t.Errorf("division error = %v", err)
	}
	if _, err := svc.Mark(context.Background(), "u", "E1", "A", Status("Late")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("status error = %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatal("invalid input reached the repository")
	}
}

func TestMarkTagsDateAndUser(t *testing.T) {
	repo := &recordingRepo{}
	e, err := newTestService(repo).Mark(context.Background(), "user-9", "  0801CS211  ", "F", StatusAbsent)
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserts = %d, want 1", len(repo.inserted))
	}
	got := repo.inserted[0]
	if got.Enrollment != "0801CS211" {
		t.Errorf("Enrollment = %q", got.Enrollment)
	}
	// 23:30 at +05:30 is 18:00 UTC on the same day.
	if got.Date != "2026-03-09" {
		t.Errorf("Date = %q", got.Date)
	}
	if got.UserID != "user-9" || got.Division != "F" || got.Status != StatusAbsent {
		t.Errorf("unexpected entry %+v", got)
	}
	if e.ID != "row-1" {
		t.Errorf("returned entry ID = %q", e.ID)
	}
}

func TestMarkPropagatesRepositoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := newTestService(&recordingRepo{err: boom}).Mark(context.Background(), "u", "E1", "A", StatusPresent)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
}

func TestListValidatesDivision(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(repo)
	if _, err := svc.List(context.Background(), "Q"); !errors.Is(err, ErrInvalidDivision) {
		t.Fatalf("error = %v", err)
	}
	if _, err := svc.List(context.Background(), "F"); err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(repo.listed) != 1 || repo.listed[0] != "F" {
		t.Fatalf("listed = %v", repo.listed)
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{"Present": StatusPresent, "absent": StatusAbsent, " PRESENT ": StatusPresent} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("late"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseStatus(late) error = %v", err)
	}
}

func TestParseDivisions(t *testing.T) {
	ds := ParseDivisions([]string{"A", " ", "F", "A"})
	if len(ds) != 2 || ds.Default() != "A" {
		t.Fatalf("divisions = %v", ds)
	}
	if !ds.Contains("F") || ds.Contains("B") {
		t.Fatal("Contains mismatch")
	}
	if Divisions(nil).Default() != "" {
		t.Fatal("empty set must have no default")
	}
}

func TestMemoryRepositoryOrdersNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	ctx := context.Background()
	for _, e := range []Entry{
		{Enrollment: "1", Division: "A"},
		{Enrollment: "2", Division: "F"},
		{Enrollment: "3", Division: "A"},
	} {
		if _, err := repo.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListByDivision(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Enrollment != "3" || got[1].Enrollment != "1" {
		t.Fatalf("entries = %+v", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatal("insert must assign id and created_at")
	}
}
