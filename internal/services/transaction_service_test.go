package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
)

type fakeCreator struct {
	err     error
	created []core.TransactionRecord
}

func (c *fakeCreator) CreateTransaction(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error) {
	if c.err != nil {
		return core.TransactionRecord{}, c.err
	}
	rec.ID = "txn-1"
	rec.CreatedAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	c.created = append(c.created, rec)
	return rec, nil
}

type fakePublisher struct {
	err       error
	published []string
}

func (p *fakePublisher) PublishLedgerChange(ctx context.Context, transactionID, userID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, transactionID)
	return nil
}

func validRecord() core.TransactionRecord {
	return core.TransactionRecord{
		UserID:   "user-a",
		Kind:     core.Expense,
		Title:    "groceries",
		Amount:   core.Money{Cents: 4230},
		Category: core.CategoryFood,
	}
}

func TestTransactionService_Create(t *testing.T) {
	creator := &fakeCreator{}
	publisher := &fakePublisher{}
	svc := NewTransactionService(creator, publisher)

	created, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "txn-1" {
		t.Errorf("created.ID = %q, want store-assigned txn-1", created.ID)
	}
	if len(publisher.published) != 1 || publisher.published[0] != "txn-1" {
		t.Errorf("published = %v, want [txn-1]", publisher.published)
	}
}

func TestTransactionService_CreateStoreFailure(t *testing.T) {
	creator := &fakeCreator{err: errors.New("disk full")}
	publisher := &fakePublisher{}
	svc := NewTransactionService(creator, publisher)

	if _, err := svc.Create(context.Background(), validRecord()); err == nil {
		t.Fatal("Create should fail when the store fails")
	}
	if len(publisher.published) != 0 {
		t.Error("nothing should be published when the save fails")
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	creator := &fakeCreator{}
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(creator, publisher)

	created, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("Create should succeed when only the publish fails: %v", err)
	}
	if created.ID == "" {
		t.Error("created record missing ID")
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	creator := &fakeCreator{}
	svc := NewTransactionService(creator, nil)

	if _, err := svc.Create(context.Background(), validRecord()); err != nil {
		t.Fatalf("Create with nil publisher: %v", err)
	}
}
