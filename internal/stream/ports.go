// Package stream defines the contract between the ledger views and the
// remote transaction store: live full-batch snapshot queries, one-shot
// pull queries, and typed delivery errors.
package stream

import (
	"context"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/timewindow"
)

// Filter scopes a query to one user, optionally bounded to a calendar
// day and capped to the most recent Limit records. Results are always
// ordered by CreatedAt descending; the ordering is part of the contract,
// not a parameter.
type Filter struct {
	UserID string
	Window *timewindow.DayWindow
	Limit  int // 0 means unlimited
}

// BatchFunc receives one complete snapshot of the filter's current
// result set. Every delivery replaces the previous one; batches are
// never deltas.
type BatchFunc func(records []core.TransactionRecord)

// ErrorFunc receives a delivery or establishment failure. The error
// always unwraps to a *Error so callers can branch on its Kind.
type ErrorFunc func(err error)

// Ports for the remote store adapters.
type (
	// LiveQuerier keeps delivering the filter's full result set as it
	// changes. onBatch fires once immediately upon establishment and
	// again on every subsequent change until the subscription is
	// released.
	LiveQuerier interface {
		LiveQuery(ctx context.Context, f Filter, onBatch BatchFunc, onError ErrorFunc) (Subscription, error)
	}

	// PullQuerier performs a one-shot fetch equivalent to a live query's
	// initial snapshot. Used by the fallback poller and manual refresh.
	PullQuerier interface {
		PullQuery(ctx context.Context, f Filter) ([]core.TransactionRecord, error)
	}

	// Feed is the full collaborator surface the subscription manager
	// consumes.
	Feed interface {
		LiveQuerier
		PullQuerier
	}
)

// Subscription is a handle on one live query.
type Subscription interface {
	// Unsubscribe releases the live query. It is idempotent; releasing
	// an already-released handle is a no-op.
	Unsubscribe()
}

// AuthEvent reports the current authenticated user, empty when logged
// out.
type AuthEvent struct {
	UserID string
}
