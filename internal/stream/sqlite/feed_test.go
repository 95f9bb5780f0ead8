package sqlite

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
)

type fakeRepo struct {
	records []core.TransactionRecord
	err     error
	calls   int
}

func (r *fakeRepo) ListTransactions(ctx context.Context, f stream.Filter) ([]core.TransactionRecord, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []core.TransactionRecord
	for _, rec := range r.records {
		if rec.UserID == f.UserID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func testRecord(user string, at time.Time) core.TransactionRecord {
	return core.TransactionRecord{
		ID:        "txn-" + at.Format("150405"),
		UserID:    user,
		Kind:      core.Expense,
		Title:     "coffee",
		Amount:    core.Money{Cents: 250},
		Category:  core.CategoryFood,
		CreatedAt: at,
	}
}

func TestFeed_LiveQueryInitialSnapshot(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{records: []core.TransactionRecord{testRecord("user-a", at)}}
	feed := NewFeed(repo)

	var got []core.TransactionRecord
	sub, err := feed.LiveQuery(context.Background(), stream.Filter{UserID: "user-a"},
		func(records []core.TransactionRecord) { got = records },
		func(err error) { t.Errorf("unexpected error: %v", err) })
	if err != nil {
		t.Fatalf("LiveQuery: %v", err)
	}
	defer sub.Unsubscribe()

	if len(got) != 1 {
		t.Fatalf("initial snapshot has %d records, want 1", len(got))
	}
	if feed.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount = %d, want 1", feed.SubscriberCount())
	}
}

func TestFeed_HandleChangeRedelivers(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{records: []core.TransactionRecord{testRecord("user-a", at)}}
	feed := NewFeed(repo)

	var deliveries int
	var last []core.TransactionRecord
	sub, _ := feed.LiveQuery(context.Background(), stream.Filter{UserID: "user-a"},
		func(records []core.TransactionRecord) {
			deliveries++
			last = records
		},
		func(err error) { t.Errorf("unexpected error: %v", err) })
	defer sub.Unsubscribe()

	repo.records = append(repo.records, testRecord("user-a", at.Add(time.Hour)))
	feed.HandleChange(context.Background(), "user-a")

	if deliveries != 2 {
		t.Fatalf("deliveries = %d, want 2 (initial plus redelivery)", deliveries)
	}
	if len(last) != 2 {
		t.Errorf("redelivered batch has %d records, want full set of 2", len(last))
	}

	// Changes for other users must not wake this subscription.
	feed.HandleChange(context.Background(), "user-b")
	if deliveries != 2 {
		t.Errorf("delivery fired for an unrelated user's change")
	}
}

func TestFeed_HandleChangeAfterUnsubscribe(t *testing.T) {
	repo := &fakeRepo{}
	feed := NewFeed(repo)

	var deliveries int
	sub, _ := feed.LiveQuery(context.Background(), stream.Filter{UserID: "user-a"},
		func(records []core.TransactionRecord) { deliveries++ },
		func(err error) {})

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	feed.HandleChange(context.Background(), "user-a")
	if deliveries != 1 {
		t.Errorf("deliveries = %d after unsubscribe, want only the initial 1", deliveries)
	}
	if feed.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", feed.SubscriberCount())
	}
}

func TestFeed_LiveQueryErrorReportsClassifiedKind(t *testing.T) {
	repo := &fakeRepo{err: fmt.Errorf("query: %w", errors.New("database is locked"))}
	feed := NewFeed(repo)

	var gotErr error
	_, err := feed.LiveQuery(context.Background(), stream.Filter{UserID: "user-a"},
		func(records []core.TransactionRecord) { t.Error("batch delivered despite query failure") },
		func(err error) { gotErr = err })
	if err != nil {
		t.Fatalf("LiveQuery: %v", err)
	}

	if gotErr == nil {
		t.Fatal("error callback not invoked")
	}
	if kind := stream.KindOf(gotErr); kind != stream.KindStreamUnavailable {
		t.Errorf("KindOf = %v, want %v", kind, stream.KindStreamUnavailable)
	}
	if feed.SubscriberCount() != 0 {
		t.Error("failed live query left a subscriber registered")
	}
}

func TestFeed_PullQueryClassifiesErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection reset by peer")}
	feed := NewFeed(repo)

	_, err := feed.PullQuery(context.Background(), stream.Filter{UserID: "user-a"})
	if err == nil {
		t.Fatal("PullQuery should fail")
	}
	if kind := stream.KindOf(err); kind != stream.KindNetworkFailure {
		t.Errorf("KindOf = %v, want %v", kind, stream.KindNetworkFailure)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want stream.ErrorKind
	}{
		{"locked message", errors.New("database is locked (5) (SQLITE_BUSY)"), stream.KindStreamUnavailable},
		{"missing schema", errors.New("no such table: transactions"), stream.KindStreamUnavailable},
		{"schema changed", errors.New("database schema has changed"), stream.KindStreamUnavailable},
		{"bad connection", fmt.Errorf("exec: %w", driver.ErrBadConn), stream.KindStreamUnavailable},
		{"anything else", errors.New("connection refused"), stream.KindNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stream.KindOf(classify(tt.err)); got != tt.want {
				t.Errorf("classify(%v) kind = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
