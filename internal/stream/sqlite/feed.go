// Package sqlite is the durable feed backend: snapshots come from the
// SQLite store and redelivery is driven by ledger change notifications
// fanned out over AMQP.
package sqlite

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
)

// Repository is the slice of the storage layer the feed queries.
type Repository interface {
	ListTransactions(ctx context.Context, f stream.Filter) ([]core.TransactionRecord, error)
}

type subscriber struct {
	id      int64
	filter  stream.Filter
	onBatch stream.BatchFunc
	onError stream.ErrorFunc
}

// Feed implements stream.Feed over the SQLite repository. A live query
// gets its initial snapshot synchronously; every subsequent delivery is
// triggered by HandleChange, which the AMQP change consumer calls once
// per ledger change message.
type Feed struct {
	repo Repository

	mu        sync.Mutex
	subs      map[int64]*subscriber
	nextSubID int64
}

func NewFeed(repo Repository) *Feed {
	return &Feed{
		repo: repo,
		subs: make(map[int64]*subscriber),
	}
}

// LiveQuery implements stream.LiveQuerier. A failing initial snapshot is
// reported through onError with a classified kind; the returned handle
// is inert in that case.
func (f *Feed) LiveQuery(ctx context.Context, filter stream.Filter, onBatch stream.BatchFunc, onError stream.ErrorFunc) (stream.Subscription, error) {
	initial, err := f.repo.ListTransactions(ctx, filter)
	if err != nil {
		onError(classify(err))
		return &subscription{}, nil
	}

	f.mu.Lock()
	f.nextSubID++
	sub := &subscriber{
		id:      f.nextSubID,
		filter:  filter,
		onBatch: onBatch,
		onError: onError,
	}
	f.subs[sub.id] = sub
	f.mu.Unlock()

	onBatch(initial)
	return &subscription{feed: f, id: sub.id}, nil
}

// PullQuery implements stream.PullQuerier.
func (f *Feed) PullQuery(ctx context.Context, filter stream.Filter) ([]core.TransactionRecord, error) {
	records, err := f.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, classify(err)
	}
	return records, nil
}

// HandleChange re-queries and redelivers a full snapshot to every live
// query watching userID. Query failures go to the subscriber's error
// callback; the subscription itself stays registered so the next change
// can still recover it.
func (f *Feed) HandleChange(ctx context.Context, userID string) {
	f.mu.Lock()
	var matching []*subscriber
	for _, sub := range f.subs {
		if sub.filter.UserID == userID {
			matching = append(matching, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range matching {
		records, err := f.repo.ListTransactions(ctx, sub.filter)
		if err != nil {
			slog.WarnContext(ctx, "Snapshot redelivery failed",
				"user_id", userID, "error", err)
			sub.onError(classify(err))
			continue
		}
		sub.onBatch(records)
	}
}

// SubscriberCount reports how many live queries are currently
// registered.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type subscription struct {
	feed *Feed
	id   int64
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.feed == nil {
			return
		}
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
	})
}
