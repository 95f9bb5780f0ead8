// Package viewstate holds the process-local state presentation reads:
// per-view records, derived aggregates, the active window, and
// loading/error flags.
//
// Single-writer discipline: only the subscription manager writes here,
// through its batch and error callbacks. Everything else reads copies.
package viewstate

import (
	"sync"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
	"github.com/Richmiz/Coinlytics/internal/timewindow"
)

type ViewKind string

const (
	// ViewDashboard shows the most recent records for a user with
	// running totals.
	ViewDashboard ViewKind = "dashboard"

	// ViewHistory shows one selected calendar day plus its week strip.
	ViewHistory ViewKind = "history"
)

// Kinds lists every view the store tracks.
func Kinds() []ViewKind {
	return []ViewKind{ViewDashboard, ViewHistory}
}

// ViewState is the current value for one view. Aggregate is always
// derived from Records in full; the two never drift apart.
type ViewState struct {
	Records   []core.TransactionRecord
	Aggregate core.Snapshot
	Day       *timewindow.DayWindow
	Week      []time.Time
	Loading   bool
	LastError stream.ErrorKind // empty when healthy
}

type Store struct {
	mu    sync.RWMutex
	views map[ViewKind]*ViewState
}

func NewStore() *Store {
	s := &Store{views: make(map[ViewKind]*ViewState)}
	for _, kind := range Kinds() {
		s.views[kind] = &ViewState{}
	}
	return s
}

// Get returns a copy of the view's current state. Mutating the returned
// value never affects the store.
func (s *Store) Get(kind ViewKind) ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.views[kind]
	if v == nil {
		return ViewState{}
	}
	out := *v
	out.Records = append([]core.TransactionRecord(nil), v.Records...)
	out.Week = append([]time.Time(nil), v.Week...)
	if v.Day != nil {
		day := *v.Day
		out.Day = &day
	}
	return out
}

// SetLoading flags the view as (re)subscribing without touching its
// current records.
func (s *Store) SetLoading(kind ViewKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view(kind).Loading = true
}

// ApplyBatch replaces the view's record set with a fresh full batch and
// recomputes the aggregate. Loading and lastError are cleared; a good
// batch always supersedes a prior failure.
func (s *Store) ApplyBatch(kind ViewKind, records []core.TransactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(kind)
	v.Records = append([]core.TransactionRecord(nil), records...)
	v.Aggregate = core.Aggregate(records)
	v.Loading = false
	v.LastError = ""
}

// SetWindow records the view's active day window and week strip.
func (s *Store) SetWindow(kind ViewKind, day timewindow.DayWindow, week [7]time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(kind)
	d := day
	v.Day = &d
	v.Week = week[:]
}

// SetError records a delivery failure. The previous records stay in
// place: stale-but-correct data beats a blanked view.
func (s *Store) SetError(kind ViewKind, errKind stream.ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(kind)
	v.Loading = false
	v.LastError = errKind
}

// Clear resets one view to its zero state.
func (s *Store) Clear(kind ViewKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[kind] = &ViewState{}
}

// ClearAll resets every view, used on sign-out so no trace of the prior
// user's data survives.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range Kinds() {
		s.views[kind] = &ViewState{}
	}
}

func (s *Store) view(kind ViewKind) *ViewState {
	v, ok := s.views[kind]
	if !ok {
		v = &ViewState{}
		s.views[kind] = v
	}
	return v
}
