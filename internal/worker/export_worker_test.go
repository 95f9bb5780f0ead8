package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Richmiz/Coinlytics/internal/amqp"
	"github.com/Richmiz/Coinlytics/internal/core"
	sheetsmem "github.com/Richmiz/Coinlytics/internal/sheets/memory"
)

type fakeStore struct {
	records     map[string]core.TransactionRecord
	pending     []core.TransactionRecord
	pendingErr  error
	exported    []string
	exportError []string
}

func (s *fakeStore) GetTransaction(ctx context.Context, id string) (core.TransactionRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return core.TransactionRecord{}, errors.New("transaction not found")
	}
	return rec, nil
}

func (s *fakeStore) PendingExport(ctx context.Context, limit int) ([]core.TransactionRecord, error) {
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) MarkExported(ctx context.Context, id string) error {
	s.exported = append(s.exported, id)
	return nil
}

func (s *fakeStore) MarkExportError(ctx context.Context, id string) error {
	s.exportError = append(s.exportError, id)
	return nil
}

func record(id string) core.TransactionRecord {
	return core.TransactionRecord{
		ID:        id,
		UserID:    "user-a",
		Kind:      core.Expense,
		Title:     "lunch",
		Amount:    core.Money{Cents: 1150},
		Category:  core.CategoryFood,
		CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestExportWorker_HandleChangeMessage(t *testing.T) {
	store := &fakeStore{records: map[string]core.TransactionRecord{"txn-1": record("txn-1")}}
	writer := sheetsmem.New()
	w := NewExportWorker(store, writer, 10)

	msg := amqp.NewLedgerChangeMessage("txn-1", "user-a")
	if err := w.HandleChangeMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleChangeMessage: %v", err)
	}

	if items := writer.Items(); len(items) != 1 || items[0].ID != "txn-1" {
		t.Errorf("writer items = %v, want [txn-1]", items)
	}
	if len(store.exported) != 1 || store.exported[0] != "txn-1" {
		t.Errorf("exported = %v, want [txn-1]", store.exported)
	}
}

func TestExportWorker_HandleChangeMessageUnknownID(t *testing.T) {
	store := &fakeStore{records: map[string]core.TransactionRecord{}}
	w := NewExportWorker(store, sheetsmem.New(), 10)

	msg := amqp.NewLedgerChangeMessage("missing", "user-a")
	if err := w.HandleChangeMessage(context.Background(), msg); err == nil {
		t.Fatal("HandleChangeMessage should fail for an unknown transaction")
	}
}

func TestExportWorker_AppendFailureMarksError(t *testing.T) {
	store := &fakeStore{records: map[string]core.TransactionRecord{"txn-1": record("txn-1")}}
	writer := sheetsmem.New()
	writer.SetError(errors.New("quota exceeded"))
	w := NewExportWorker(store, writer, 10)

	msg := amqp.NewLedgerChangeMessage("txn-1", "user-a")
	if err := w.HandleChangeMessage(context.Background(), msg); err == nil {
		t.Fatal("HandleChangeMessage should surface the append failure")
	}
	if len(store.exportError) != 1 || store.exportError[0] != "txn-1" {
		t.Errorf("exportError = %v, want [txn-1]", store.exportError)
	}
	if len(store.exported) != 0 {
		t.Error("failed export must not be marked exported")
	}
}

func TestExportWorker_ProcessPending(t *testing.T) {
	store := &fakeStore{
		pending: []core.TransactionRecord{record("txn-1"), record("txn-2")},
	}
	writer := sheetsmem.New()
	w := NewExportWorker(store, writer, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(writer.Items()) != 2 {
		t.Errorf("exported %d items, want 2", len(writer.Items()))
	}
	if len(store.exported) != 2 {
		t.Errorf("marked %d exported, want 2", len(store.exported))
	}
}

func TestExportWorker_ProcessPendingEmpty(t *testing.T) {
	store := &fakeStore{}
	w := NewExportWorker(store, sheetsmem.New(), 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending with nothing pending: %v", err)
	}
}

func TestExportWorker_StartupCheckContinuesPastFailures(t *testing.T) {
	store := &fakeStore{
		pending: []core.TransactionRecord{record("txn-1"), record("txn-2")},
	}
	writer := sheetsmem.New()
	w := NewExportWorker(store, writer, 10)

	// First record is invalid so Append rejects it; the second must
	// still be exported.
	store.pending[0].Kind = "transfer"

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	if len(store.exportError) != 1 || store.exportError[0] != "txn-1" {
		t.Errorf("exportError = %v, want [txn-1]", store.exportError)
	}
	if len(store.exported) != 1 || store.exported[0] != "txn-2" {
		t.Errorf("exported = %v, want [txn-2]", store.exported)
	}
}
