package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
)

// SQLiteRepository is the system of record for transactions. Pull
// queries and live-query snapshots are all served from here; AMQP only
// signals that a fresh snapshot should be taken.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction persists a new record, assigning its ID and
// CreatedAt. The store clock, not the caller's, decides ordering.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.now()
	if err := rec.Validate(); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("validate transaction: %w", err)
	}

	err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Kind:        string(rec.Kind),
		Title:       rec.Title,
		AmountCents: rec.Amount.Cents,
		Category:    string(rec.Category),
		CreatedAtMs: rec.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", rec.ID,
		"user_id", rec.UserID,
		"kind", string(rec.Kind),
		"amount_cents", rec.Amount.Cents)

	return rec, nil
}

// ListTransactions serves one full-batch snapshot for a filter:
// createdAt descending, bounded by the filter's window and limit.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f stream.Filter) ([]core.TransactionRecord, error) {
	var (
		rows []Transaction
		err  error
	)

	if f.Window != nil {
		rows, err = r.queries.ListTransactionsInRange(ctx, ListTransactionsInRangeParams{
			UserID:  f.UserID,
			StartMs: f.Window.Start.UnixMilli(),
			EndMs:   f.Window.End.UnixMilli(),
		})
	} else {
		limit := int64(f.Limit)
		if limit <= 0 {
			limit = -1 // SQLite: no limit
		}
		rows, err = r.queries.ListRecentTransactions(ctx, ListRecentTransactionsParams{
			UserID: f.UserID,
			Limit:  limit,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	records := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		rec := toRecord(row)
		if err := rec.Validate(); err != nil {
			// One corrupt row must not blank the whole batch.
			slog.WarnContext(ctx, "Dropping malformed transaction row", "id", row.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetTransaction fetches a single record by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.TransactionRecord, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("get transaction: %w", err)
	}
	return toRecord(row), nil
}

// PendingExport lists records not yet exported to the spreadsheet,
// oldest first. Records that previously failed to export are skipped
// until retried explicitly.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.TransactionRecord, error) {
	rows, err := r.queries.ListPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	records := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

// MarkExported flags a record as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if err := r.queries.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// MarkExportError flags a record as having failed export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if err := r.queries.MarkExportError(ctx, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

func toRecord(row Transaction) core.TransactionRecord {
	return core.TransactionRecord{
		ID:        row.ID,
		UserID:    row.UserID,
		Kind:      core.TransactionKind(row.Kind),
		Title:     row.Title,
		Amount:    core.Money{Cents: row.AmountCents},
		Category:  core.Category(row.Category),
		CreatedAt: time.UnixMilli(row.CreatedAtMs).UTC(),
	}
}
