package backend

import (
	"context"
	"fmt"

	"finvault/internal/log"
	"finvault/internal/session"
	"finvault/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new store factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSession)}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(ctx, config)
	default:
		f.logger.Info("Using in-memory session store")
		return &StoreResult{
			Store:   session.NewMemoryStore(),
			Cleanup: func() error { return nil },
		}, nil
	}
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*StoreResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("SQLite session store not reachable: %w", err)
	}

	f.logger.Info("Using SQLite session store", "db_path", config.SQLiteDBPath)
	return &StoreResult{Store: repo, Cleanup: repo.Close}, nil
}
