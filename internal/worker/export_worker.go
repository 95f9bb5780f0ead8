// Package worker exports transactions from the SQLite store to a
// spreadsheet. Change messages drive exports in near real time; a
// periodic sweep over pending rows covers messages lost in transit.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Richmiz/Coinlytics/internal/amqp"
	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/sheets"
)

// ExportStore is the slice of the storage layer the worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, id string) (core.TransactionRecord, error)
	PendingExport(ctx context.Context, limit int) ([]core.TransactionRecord, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

// ExportWorker copies transactions to the spreadsheet and tracks export
// state per row.
type ExportWorker struct {
	store     ExportStore
	writer    sheets.TransactionWriter
	batchSize int
}

func NewExportWorker(store ExportStore, writer sheets.TransactionWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleChangeMessage processes a single ledger change message.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID)

	rec, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.export(ctx, rec); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}

	return nil
}

// ProcessPending exports transactions that are still unexported. This
// is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, rec := range pending {
		if err := w.export(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", rec.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck exports any backlog accumulated while the worker was
// down. Uses a larger batch than the periodic sweep.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, rec := range pending {
		if err := w.export(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"transaction_id", rec.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) export(ctx context.Context, rec core.TransactionRecord) error {
	ref, err := w.writer.Append(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"transaction_id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, rec.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"transaction_id", rec.ID, "error", err)
		// Don't return error here, the export actually worked.
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		"transaction_id", rec.ID,
		"sheet_ref", ref,
		"amount_cents", rec.Amount.Cents)

	return nil
}
