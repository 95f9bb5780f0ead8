package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Richmiz/Coinlytics/internal/amqp"
	"github.com/Richmiz/Coinlytics/internal/storage"
	"github.com/Richmiz/Coinlytics/internal/stream/memory"
	sqlitefeed "github.com/Richmiz/Coinlytics/internal/stream/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}

	amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPExportQueue)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("initialize amqp client: %w", err)
	}

	feed := sqlitefeed.NewFeed(repo)

	f.logger.Info("initialized sqlite backend",
		"db_path", config.SQLiteDBPath,
		"exchange", config.AMQPExchange,
		"export_queue", config.AMQPExportQueue)

	return &Result{
		Feed:       feed,
		Creator:    repo,
		Publisher:  amqpClient,
		SQLiteFeed: feed,
		AMQP:       amqpClient,
		Cleanup: func() error {
			return errors.Join(amqpClient.Close(), repo.Close())
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	feed := memory.NewFeed()

	f.logger.Info("initialized memory backend")

	// The memory feed delivers snapshots to subscribers on every write,
	// so no publisher is needed.
	return &Result{
		Feed:    feed,
		Creator: feed,
		Cleanup: nil,
	}, nil
}
