package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
	"github.com/Richmiz/Coinlytics/internal/timewindow"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(user string, kind core.TransactionKind, cents int64) core.TransactionRecord {
	return core.TransactionRecord{
		UserID:   user,
		Kind:     kind,
		Title:    "test entry",
		Amount:   core.Money{Cents: cents},
		Category: core.CategoryFood,
	}
}

func TestSQLiteRepository_CreateAssignsIdentity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, record("user-a", core.Income, 1000))
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.ID == "" {
		t.Error("ID not assigned by store")
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned by store")
	}

	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.UserID != "user-a" || got.Amount.Cents != 1000 || got.Kind != core.Income {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestSQLiteRepository_CreateRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bad := record("user-a", core.Income, 1000)
	bad.Category = "travel"
	if _, err := repo.CreateTransaction(ctx, bad); err == nil {
		t.Error("CreateTransaction should reject an unknown category")
	}
}

func TestSQLiteRepository_ListRecentOrderAndLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := base
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for i := 0; i < 5; i++ {
		if _, err := repo.CreateTransaction(ctx, record("user-a", core.Expense, int64(100+i))); err != nil {
			t.Fatalf("CreateTransaction %d: %v", i, err)
		}
	}
	// A different user's record must never appear in user-a's results.
	if _, err := repo.CreateTransaction(ctx, record("user-b", core.Income, 9999)); err != nil {
		t.Fatalf("CreateTransaction user-b: %v", err)
	}

	got, err := repo.ListTransactions(ctx, stream.Filter{UserID: "user-a", Limit: 3})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Error("records not ordered createdAt descending")
		}
	}
	for _, rec := range got {
		if rec.UserID != "user-a" {
			t.Errorf("record for %s leaked into user-a query", rec.UserID)
		}
	}
}

func TestSQLiteRepository_ListWithinDayWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	day1 := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	repo.now = func() time.Time { return day1 }
	inWindow, _ := repo.CreateTransaction(ctx, record("user-a", core.Income, 500))

	repo.now = func() time.Time { return day2 }
	if _, err := repo.CreateTransaction(ctx, record("user-a", core.Expense, 200)); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	w := timewindow.Day(day1)
	got, err := repo.ListTransactions(ctx, stream.Filter{UserID: "user-a", Window: &w})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 1 || got[0].ID != inWindow.ID {
		t.Fatalf("window query returned %v, want only %s", got, inWindow.ID)
	}
}

func TestSQLiteRepository_ExportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, _ := repo.CreateTransaction(ctx, record("user-a", core.Income, 100))
	second, _ := repo.CreateTransaction(ctx, record("user-a", core.Expense, 50))

	pending, err := repo.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExport: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := repo.MarkExported(ctx, first.ID); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	if err := repo.MarkExportError(ctx, second.ID); err != nil {
		t.Fatalf("MarkExportError: %v", err)
	}

	pending, err = repo.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExport: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d after marking, want 0", len(pending))
	}
}

func TestSQLiteRepository_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()

	// Reopening must not re-run or fail migrations.
	repo, err = NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	repo.Close()
}
