// Package memory is the in-process feed backend: records live in a map,
// snapshots are served synchronously, and failures can be injected.
// It backs DATA_BACKEND=memory for local development and doubles as the
// controllable collaborator in subscription tests.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
)

type subscriber struct {
	id      int64
	filter  stream.Filter
	onBatch stream.BatchFunc
	onError stream.ErrorFunc
}

type heldDelivery struct {
	onBatch stream.BatchFunc
	records []core.TransactionRecord
}

// Feed implements stream.Feed entirely in memory. Deliveries are
// synchronous with the triggering call unless Hold is engaged, which
// queues change-driven deliveries until Flush. Hold simulates a slow
// collaborator with callbacks still in flight.
type Feed struct {
	mu        sync.Mutex
	records   map[string][]core.TransactionRecord
	subs      map[int64]*subscriber
	nextSubID int64
	now       func() time.Time

	liveErr   error // consumed by the next LiveQuery
	pullErr   error // returned by every PullQuery until cleared
	pullCount int

	holding bool
	held    []heldDelivery
}

func NewFeed() *Feed {
	return &Feed{
		records: make(map[string][]core.TransactionRecord),
		subs:    make(map[int64]*subscriber),
		now:     time.Now,
	}
}

// SetClock overrides the feed's clock, for deterministic CreatedAt
// assignment in tests.
func (f *Feed) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// CreateTransaction assigns ID and CreatedAt and stores the record,
// then redelivers a fresh snapshot to every matching live query.
func (f *Feed) CreateTransaction(ctx context.Context, rec core.TransactionRecord) (core.TransactionRecord, error) {
	f.mu.Lock()
	rec.ID = uuid.NewString()
	rec.CreatedAt = f.now()
	if err := rec.Validate(); err != nil {
		f.mu.Unlock()
		return core.TransactionRecord{}, err
	}
	f.records[rec.UserID] = append(f.records[rec.UserID], rec)
	deliveries := f.snapshotDeliveriesLocked(rec.UserID)
	f.mu.Unlock()

	f.dispatch(deliveries)
	return rec, nil
}

// SeedRaw stores a record exactly as given, without validation or
// store-side assignment. Tests use it to plant malformed records.
func (f *Feed) SeedRaw(rec core.TransactionRecord) {
	f.mu.Lock()
	f.records[rec.UserID] = append(f.records[rec.UserID], rec)
	deliveries := f.snapshotDeliveriesLocked(rec.UserID)
	f.mu.Unlock()

	f.dispatch(deliveries)
}

// LiveQuery implements stream.LiveQuerier. The initial snapshot is
// delivered synchronously before LiveQuery returns, unless an injected
// failure consumes this call.
func (f *Feed) LiveQuery(ctx context.Context, filter stream.Filter, onBatch stream.BatchFunc, onError stream.ErrorFunc) (stream.Subscription, error) {
	f.mu.Lock()
	if err := f.liveErr; err != nil {
		f.liveErr = nil
		f.mu.Unlock()
		onError(err)
		return &subscription{}, nil
	}

	f.nextSubID++
	sub := &subscriber{
		id:      f.nextSubID,
		filter:  filter,
		onBatch: onBatch,
		onError: onError,
	}
	f.subs[sub.id] = sub
	initial := f.queryLocked(filter)
	f.mu.Unlock()

	onBatch(initial)
	return &subscription{feed: f, id: sub.id}, nil
}

// PullQuery implements stream.PullQuerier.
func (f *Feed) PullQuery(ctx context.Context, filter stream.Filter) ([]core.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pullCount++
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	return f.queryLocked(filter), nil
}

// PullCount reports how many one-shot fetches have been served,
// including failed ones.
func (f *Feed) PullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pullCount
}

// FailNextLiveQuery makes the next LiveQuery report err through its
// error callback instead of delivering a snapshot.
func (f *Feed) FailNextLiveQuery(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveErr = err
}

// SetPullError makes every PullQuery fail with err until cleared with
// nil.
func (f *Feed) SetPullError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullErr = err
}

// Hold queues change-driven deliveries instead of dispatching them,
// simulating callbacks still in flight from a slow collaborator.
func (f *Feed) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holding = true
}

// Flush dispatches every held delivery and resumes synchronous delivery.
// Held deliveries whose subscription has since been released still fire,
// exactly like a late callback.
func (f *Feed) Flush() {
	f.mu.Lock()
	held := f.held
	f.held = nil
	f.holding = false
	f.mu.Unlock()

	for _, d := range held {
		d.onBatch(d.records)
	}
}

// SubscriberCount reports how many live queries are currently
// registered.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) snapshotDeliveriesLocked(userID string) []heldDelivery {
	var out []heldDelivery
	for _, sub := range f.subs {
		if sub.filter.UserID != userID {
			continue
		}
		out = append(out, heldDelivery{
			onBatch: sub.onBatch,
			records: f.queryLocked(sub.filter),
		})
	}
	if f.holding {
		f.held = append(f.held, out...)
		return nil
	}
	return out
}

func (f *Feed) dispatch(deliveries []heldDelivery) {
	for _, d := range deliveries {
		d.onBatch(d.records)
	}
}

// queryLocked evaluates a filter: window bound, createdAt descending,
// optional limit. Records that fail validation are logged and dropped
// so one corrupt entry cannot blank a whole batch.
func (f *Feed) queryLocked(filter stream.Filter) []core.TransactionRecord {
	var out []core.TransactionRecord
	for _, rec := range f.records[filter.UserID] {
		if filter.Window != nil && !filter.Window.Contains(rec.CreatedAt) {
			continue
		}
		if err := rec.Validate(); err != nil {
			slog.Warn("Dropping malformed record from snapshot", "id", rec.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
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
