package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries is the raw query layer over the transactions table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Transaction is the database row shape for a ledger entry.
type Transaction struct {
	ID          string
	UserID      string
	Kind        string
	Title       string
	AmountCents int64
	Category    string
	CreatedAtMs int64
	Exported    bool
	ExportError bool
}

const createTransaction = `
INSERT INTO transactions (id, user_id, kind, title, amount_cents, category, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	ID          string
	UserID      string
	Kind        string
	Title       string
	AmountCents int64
	Category    string
	CreatedAtMs int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.UserID, arg.Kind, arg.Title, arg.AmountCents, arg.Category, arg.CreatedAtMs)
	return err
}

const getTransaction = `
SELECT id, user_id, kind, title, amount_cents, category, created_at_ms, exported, export_error
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Title, &t.AmountCents, &t.Category,
		&t.CreatedAtMs, &t.Exported, &t.ExportError)
	return t, err
}

const listRecentTransactions = `
SELECT id, user_id, kind, title, amount_cents, category, created_at_ms, exported, export_error
FROM transactions
WHERE user_id = ?
ORDER BY created_at_ms DESC
LIMIT ?
`

type ListRecentTransactionsParams struct {
	UserID string
	Limit  int64 // -1 means unlimited
}

func (q *Queries) ListRecentTransactions(ctx context.Context, arg ListRecentTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecentTransactions, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const listTransactionsInRange = `
SELECT id, user_id, kind, title, amount_cents, category, created_at_ms, exported, export_error
FROM transactions
WHERE user_id = ? AND created_at_ms BETWEEN ? AND ?
ORDER BY created_at_ms DESC
`

type ListTransactionsInRangeParams struct {
	UserID  string
	StartMs int64
	EndMs   int64
}

func (q *Queries) ListTransactionsInRange(ctx context.Context, arg ListTransactionsInRangeParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInRange, arg.UserID, arg.StartMs, arg.EndMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const listPendingExport = `
SELECT id, user_id, kind, title, amount_cents, category, created_at_ms, exported, export_error
FROM transactions
WHERE exported = 0 AND export_error = 0
ORDER BY created_at_ms ASC
LIMIT ?
`

func (q *Queries) ListPendingExport(ctx context.Context, limit int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listPendingExport, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

const markExported = `
UPDATE transactions SET exported = 1, export_error = 0 WHERE id = ?
`

func (q *Queries) MarkExported(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExported, id)
	return err
}

const markExportError = `
UPDATE transactions SET export_error = 1 WHERE id = ?
`

func (q *Queries) MarkExportError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExportError, id)
	return err
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Title, &t.AmountCents, &t.Category,
			&t.CreatedAtMs, &t.Exported, &t.ExportError); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
