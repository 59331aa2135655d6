package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepositoryInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance").
		WithArgs("id-1", "E42", "A", "Present", "2026-02-01", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	repo := NewPGRepository(db)
	e, err := repo.Insert(context.Background(), Entry{
		ID: "id-1", Enrollment: "E42", Division: "A", Status: StatusPresent, Date: "2026-02-01", UserID: "user-1",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !e.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v", e.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRepositoryInsertAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "E1", "F", "Absent", "2026-02-01", "u").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	e, err := NewPGRepository(db).Insert(context.Background(), Entry{
		Enrollment: "E1", Division: "F", Status: StatusAbsent, Date: "2026-02-01", UserID: "u",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestPGRepositoryInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	boom := errors.New("connection reset")
	mock.ExpectQuery("INSERT INTO attendance").WillReturnError(boom)

	if _, err := NewPGRepository(db).Insert(context.Background(), Entry{ID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
}

func TestPGRepositoryListByDivision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = db.Close() }()

	t2 := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	t1 := t2.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "enrollment", "division", "status", "date", "user_id", "created_at"}).
		AddRow("b", "E2", "A", "Absent", "2026-02-01", "u", t2).
		AddRow("a", "E1", "A", "Present", "2026-02-01", "u", t1)
	mock.ExpectQuery(`SELECT (.+) FROM attendance\s+WHERE division = \$1\s+ORDER BY created_at DESC`).
		WithArgs("A").
		WillReturnRows(rows)

	got, err := NewPGRepository(db).ListByDivision(context.Background(), "A")
	if err != nil {
		t.Fatalf("ListByDivision: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != "b" || got[0].Status != StatusAbsent || got[1].Enrollment != "E1" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
