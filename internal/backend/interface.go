// Package backend builds the session store selected by SESSION_BACKEND.
package backend

import (
	"context"

	"finvault/internal/session"
)

// CleanupFunc releases the resources held by a store.
type CleanupFunc func() error

// StoreResult contains the session store and its cleanup function
type StoreResult struct {
	Store   session.Store
	Cleanup CleanupFunc
}

// Factory creates session stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
}

// BackendType names a session store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
