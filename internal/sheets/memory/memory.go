// Package memory is an in-process TransactionWriter for local runs and
// worker tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Richmiz/Coinlytics/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.TransactionRecord
	err   error
}

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec core.TransactionRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.items = append(s.items, rec)
	return fmt.Sprintf("mem!A%d", len(s.items)), nil
}

// SetError makes every Append fail with err until cleared with nil.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TransactionRecord, len(s.items))
	copy(out, s.items)
	return out
}
