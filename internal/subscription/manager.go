// Package subscription owns the lifecycle of live ledger queries: one
// exclusive slot per view, generation-tagged handles so late callbacks
// from a released subscription can never touch view state, and a
// one-shot fallback pull when the live stream is unavailable.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
	"github.com/Richmiz/Coinlytics/internal/timewindow"
	"github.com/Richmiz/Coinlytics/internal/viewstate"
)

// SlotState tracks one view's subscription through its lifecycle.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotSubscribing
	SlotLive
	SlotErrored
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotSubscribing:
		return "subscribing"
	case SlotLive:
		return "live"
	case SlotErrored:
		return "errored"
	default:
		return "unknown"
	}
}

var ErrNoWindow = errors.New("view has no window reference")

type slot struct {
	state   SlotState
	gen     uint64
	sub     stream.Subscription
	refDate time.Time
	polled  bool // fallback already consumed for this generation
}

// Manager establishes exactly one live subscription per view for the
// active user and routes every delivery through the view state store.
type Manager struct {
	feed        stream.Feed
	views       *viewstate.Store
	poller      *Poller
	recentLimit int
	now         func() time.Time

	mu     sync.Mutex
	ctx    context.Context
	userID string
	slots  map[viewstate.ViewKind]*slot
}

// NewManager wires a manager over a feed and a view state store.
// recentLimit caps the dashboard's most-recent-records query.
func NewManager(feed stream.Feed, views *viewstate.Store, recentLimit int) *Manager {
	m := &Manager{
		feed:        feed,
		views:       views,
		poller:      NewPoller(feed),
		recentLimit: recentLimit,
		now:         time.Now,
		ctx:         context.Background(),
		slots:       make(map[viewstate.ViewKind]*slot),
	}
	for _, kind := range viewstate.Kinds() {
		m.slots[kind] = &slot{}
	}
	return m
}

// Run consumes auth events until ctx is cancelled or the event stream
// closes. Every user change tears down the prior user's subscriptions
// before any state for the new user is accepted.
func (m *Manager) Run(ctx context.Context, events <-chan stream.AuthEvent) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			m.SetUser("")
			return
		case ev, ok := <-events:
			if !ok {
				m.SetUser("")
				return
			}
			m.SetUser(ev.UserID)
		}
	}
}

// SetUser switches the active user. Empty means logged out. Prior
// subscriptions are invalidated (generation bump) and view state is
// cleared before anything for the new user happens, so a slow in-flight
// callback from the old user can never land in the new user's views.
func (m *Manager) SetUser(userID string) {
	m.mu.Lock()
	if m.userID == userID {
		m.mu.Unlock()
		return
	}

	old := make([]stream.Subscription, 0, len(m.slots))
	for _, s := range m.slots {
		s.gen++
		s.polled = false
		s.state = SlotIdle
		if s.sub != nil {
			old = append(old, s.sub)
			s.sub = nil
		}
	}
	m.userID = userID
	m.views.ClearAll()
	if userID != "" {
		// History starts on today's window for the new user.
		h := m.slots[viewstate.ViewHistory]
		h.refDate = m.now()
		ref := h.refDate
		m.views.SetWindow(viewstate.ViewHistory, timewindow.Day(ref), timewindow.Week(ref))
	}
	m.mu.Unlock()

	for _, sub := range old {
		sub.Unsubscribe()
	}

	if userID == "" {
		slog.Info("Subscriptions released on sign-out")
		return
	}

	slog.Info("Establishing subscriptions", "user_id", userID)
	for _, kind := range viewstate.Kinds() {
		m.resubscribe(kind)
	}
}

// SetWindowReference moves the history view to the day containing date
// and re-subscribes that slot. Only the history view carries a window.
func (m *Manager) SetWindowReference(kind viewstate.ViewKind, date time.Time) error {
	if kind != viewstate.ViewHistory {
		return fmt.Errorf("view %s: %w", kind, ErrNoWindow)
	}

	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return stream.NewError(stream.KindAuthRequired, nil)
	}
	s := m.slots[kind]
	s.refDate = date
	m.views.SetWindow(kind, timewindow.Day(date), timewindow.Week(date))
	m.mu.Unlock()

	m.resubscribe(kind)
	return nil
}

// Refresh forces a fallback-style pull for the view regardless of the
// live subscription's health. The result flows through the same batch
// path a live delivery would.
func (m *Manager) Refresh(ctx context.Context, kind viewstate.ViewKind) error {
	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return stream.NewError(stream.KindAuthRequired, nil)
	}
	s := m.slots[kind]
	gen := s.gen
	filter := m.filterLocked(kind)
	m.mu.Unlock()

	records, err := m.poller.Fetch(ctx, filter)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots[kind].gen != gen {
		return nil // superseded while the pull was in flight
	}
	if err != nil {
		m.views.SetError(kind, stream.KindOf(err))
		return err
	}
	m.views.ApplyBatch(kind, records)
	return nil
}

// State reports the slot's lifecycle state.
func (m *Manager) State(kind viewstate.ViewKind) SlotState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[kind].state
}

// CurrentUser returns the active user ID, empty when logged out.
func (m *Manager) CurrentUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Close releases every live subscription.
func (m *Manager) Close() {
	m.SetUser("")
}

// resubscribe replaces the slot's subscription with a fresh one for the
// current user and window. The old handle's generation is invalidated
// under the lock before its Unsubscribe is called.
func (m *Manager) resubscribe(kind viewstate.ViewKind) {
	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	s := m.slots[kind]
	s.gen++
	s.polled = false
	s.state = SlotSubscribing
	gen := s.gen
	old := s.sub
	s.sub = nil
	filter := m.filterLocked(kind)
	m.views.SetLoading(kind)
	m.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}

	sub, err := m.feed.LiveQuery(ctx, filter, m.batchFunc(kind, gen), m.errorFunc(kind, gen, filter))

	m.mu.Lock()
	if m.slots[kind].gen != gen {
		m.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		return
	}
	m.slots[kind].sub = sub
	m.mu.Unlock()

	if err != nil {
		m.errorFunc(kind, gen, filter)(err)
	}
}

// batchFunc tags a delivery callback with the handle's generation.
// Stale generations are discarded before they can touch view state.
func (m *Manager) batchFunc(kind viewstate.ViewKind, gen uint64) stream.BatchFunc {
	return func(records []core.TransactionRecord) {
		m.mu.Lock()
		defer m.mu.Unlock()

		s := m.slots[kind]
		if s.gen != gen {
			slog.Debug("Discarding stale batch", "view", string(kind), "generation", gen, "current", s.gen)
			return
		}
		s.state = SlotLive
		m.views.ApplyBatch(kind, records)
	}
}

func (m *Manager) errorFunc(kind viewstate.ViewKind, gen uint64, filter stream.Filter) stream.ErrorFunc {
	return func(err error) {
		errKind := stream.KindOf(err)

		m.mu.Lock()
		s := m.slots[kind]
		if s.gen != gen {
			m.mu.Unlock()
			return
		}

		if !stream.Recoverable(err) || s.polled {
			s.state = SlotErrored
			m.views.SetError(kind, errKind)
			m.mu.Unlock()
			slog.Warn("Live query failed", "view", string(kind), "kind", string(errKind), "error", err)
			return
		}

		// Recoverable: run the fallback pull exactly once for this
		// generation, then settle in Idle whatever the outcome.
		s.polled = true
		s.state = SlotErrored
		ctx := m.ctx
		m.mu.Unlock()

		slog.Info("Live query unavailable, falling back to pull", "view", string(kind))
		go m.fallback(ctx, kind, gen, filter)
	}
}

func (m *Manager) fallback(ctx context.Context, kind viewstate.ViewKind, gen uint64, filter stream.Filter) {
	records, err := m.poller.Fetch(ctx, filter)

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slots[kind]
	if s.gen != gen {
		return
	}
	s.state = SlotIdle
	if err != nil {
		m.views.SetError(kind, stream.KindOf(err))
		return
	}
	m.views.ApplyBatch(kind, records)
}

// filterLocked builds the slot's query filter. Caller holds m.mu.
func (m *Manager) filterLocked(kind viewstate.ViewKind) stream.Filter {
	f := stream.Filter{UserID: m.userID}
	switch kind {
	case viewstate.ViewDashboard:
		f.Limit = m.recentLimit
	case viewstate.ViewHistory:
		w := timewindow.Day(m.slots[kind].refDate)
		f.Window = &w
	}
	return f
}
