// Package services orchestrates writes across the local store and the
// change fanout.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Richmiz/Coinlytics/internal/core"
)

// TransactionCreator is the write surface of a ledger backend. Both the
// SQLite repository and the in-memory feed satisfy it.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error)
}

// ChangePublisher announces ledger changes to interested consumers.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, transactionID, userID string) error
}

// TransactionService persists transactions locally first, then
// announces the change. A failed announcement never fails the write;
// the record is durable and the export worker's periodic sweep will
// still find it.
type TransactionService struct {
	store     TransactionCreator
	publisher ChangePublisher
}

func NewTransactionService(store TransactionCreator, publisher ChangePublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// Create validates and saves a transaction, then publishes a change
// announcement.
func (s *TransactionService) Create(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error) {
	created, err := s.store.CreateTransaction(ctx, rec)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishChange(ctx, created); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"transaction_id", created.ID, "error", err)
		// Don't fail the request, the transaction is saved locally.
	}

	return created, nil
}

func (s *TransactionService) publishChange(ctx context.Context, rec core.TransactionRecord) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Change publisher not available, skipping announcement")
		return nil
	}

	return s.publisher.PublishLedgerChange(ctx, rec.ID, rec.UserID)
}
