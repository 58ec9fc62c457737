package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionRow mirrors the sessions table so cascade deletion is observable
// without importing the session package.
type sessionRow struct {
	ID        uint `gorm:"primaryKey"`
	PatientID uint `gorm:"index;not null"`
	Date      time.Time
}

func (sessionRow) TableName() string { return "sessions" }

func newTestRepo(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if err := gdb.AutoMigrate(&Patient{}, &sessionRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(gdb), gdb
}

func mustCreate(t *testing.T, repo Repository, p *Patient) *Patient {
	t.Helper()
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create %s: %v", p.CIN, err)
	}
	return p
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRepo_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p := mustCreate(t, repo, &Patient{
		CIN: "AB1234", FirstName: "Sara", LastName: "Ahmed",
		BirthDate: date(1990, time.May, 17),
	})
	if p.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CIN != "AB1234" || got.BirthDateString() != "1990-05-17" {
		t.Errorf("unexpected record: %+v", got)
	}

	if _, err := repo.GetByCIN(ctx, "ab1234"); err != nil {
		t.Errorf("expected case-insensitive CIN lookup, got %v", err)
	}
}

func TestRepo_ConflictLeavesStoreUnchanged(t *testing.T) {
	repo, gdb := newTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, &Patient{CIN: "ab100", FirstName: "A", LastName: "B"})

	err := repo.Create(ctx, &Patient{CIN: "AB100", FirstName: "C", LastName: "D"})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	var count int64
	gdb.Model(&Patient{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 row after failed create, got %d", count)
	}
}

func TestRepo_UpdateConflictAndSelf(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a := mustCreate(t, repo, &Patient{CIN: "AB1", FirstName: "A", LastName: "B"})
	b := mustCreate(t, repo, &Patient{CIN: "CD2", FirstName: "C", LastName: "D"})

	// Own CIN stays legal on update.
	a.FirstName = "Anna"
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b.CIN = "ab1"
	if err := repo.Update(ctx, b); !IsConflict(err) {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestRepo_UpdateAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.Update(context.Background(), &Patient{ID: 999, CIN: "ZZ9", FirstName: "X", LastName: "Y"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_UpdateClearsOptionalFields(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	phone := "0600000000"
	p := mustCreate(t, repo, &Patient{CIN: "AB1", FirstName: "A", LastName: "B", Phone: &phone})

	p.Phone = nil
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Phone != nil {
		t.Errorf("expected phone cleared to NULL, got %q", *got.Phone)
	}
}

func TestRepo_DeleteCascadesSessions(t *testing.T) {
	repo, gdb := newTestRepo(t)
	ctx := context.Background()

	p := mustCreate(t, repo, &Patient{CIN: "AB1", FirstName: "A", LastName: "B"})
	keep := mustCreate(t, repo, &Patient{CIN: "CD2", FirstName: "C", LastName: "D"})

	gdb.Create(&sessionRow{PatientID: p.ID, Date: time.Now()})
	gdb.Create(&sessionRow{PatientID: p.ID, Date: time.Now()})
	gdb.Create(&sessionRow{PatientID: keep.ID, Date: time.Now()})

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sessions int64
	gdb.Model(&sessionRow{}).Count(&sessions)
	if sessions != 1 {
		t.Errorf("expected only the other patient's session to remain, got %d", sessions)
	}

	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected patient gone, got %v", err)
	}

	// Deleting again is a no-op.
	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestRepo_SearchOrderingAndFields(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	email := "omar@example.com"
	mustCreate(t, repo, &Patient{CIN: "C1", FirstName: "Omar", LastName: "Martin", Email: &email})
	mustCreate(t, repo, &Patient{CIN: "C2", FirstName: "Sara", LastName: "Ahmed"})
	mustCreate(t, repo, &Patient{CIN: "C3", FirstName: "Nadia", LastName: "Ziad",
		BirthDate: date(1985, time.December, 3)})

	rows, err := repo.Search(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Ahmed", "Martin", "Ziad"}
	for i, ln := range want {
		if rows[i].LastName != ln {
			t.Fatalf("expected order %v, got row %d = %s", want, i, rows[i].LastName)
		}
	}

	// Substring across email, case-insensitive.
	rows, err = repo.Search(ctx, "OMAR@")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].LastName != "Martin" {
		t.Errorf("expected email match for Martin, got %v", rows)
	}

	// Substring across birth date text form.
	rows, err = repo.Search(ctx, "1985-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].LastName != "Ziad" {
		t.Errorf("expected birth date match for Ziad, got %v", rows)
	}
}

func TestRepo_List(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, ln := range []string{"Martin", "Ahmed", "Ziad"} {
		mustCreate(t, repo, &Patient{CIN: "C" + ln, FirstName: "X", LastName: ln})
	}

	rows, total, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("expected total 3 with 2 rows, got total %d with %d rows", total, len(rows))
	}
	if rows[0].LastName != "Ahmed" || rows[1].LastName != "Martin" {
		t.Errorf("unexpected page order: %s, %s", rows[0].LastName, rows[1].LastName)
	}
}
