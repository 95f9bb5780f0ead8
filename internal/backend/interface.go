package backend

import (
	"context"

	"github.com/Richmiz/Coinlytics/internal/amqp"
	"github.com/Richmiz/Coinlytics/internal/services"
	"github.com/Richmiz/Coinlytics/internal/stream"
	sqlitefeed "github.com/Richmiz/Coinlytics/internal/stream/sqlite"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result bundles the wired data backend for the daemon. Feed serves live
// and pull queries, Creator accepts writes, and Publisher announces new
// transactions to other processes. Publisher is nil when the backend
// delivers changes in-process.
type Result struct {
	Feed      stream.Feed
	Creator   services.TransactionCreator
	Publisher services.ChangePublisher

	// SQLiteFeed and AMQP are non-nil for the sqlite backend. Change
	// notifications consumed from the broker must be routed to the feed
	// so subscribers get fresh snapshots.
	SQLiteFeed *sqlitefeed.Feed
	AMQP       *amqp.Client

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath    string
	AMQPURL         string
	AMQPExchange    string
	AMQPExportQueue string
}

// Type represents the kind of data backend
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
