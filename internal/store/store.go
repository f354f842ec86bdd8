// Package store provides the valuation store: the most recent observation per symbol.
package store

import (
	"context"
	"fmt"
	"strings"

	qterrors "quote-tracker/internal/errors"
	"quote-tracker/internal/models"
)

// ValuationStore holds the most recently committed observation per symbol key.
// Implementations must be safe for concurrent use.
type ValuationStore interface {
	// Previous returns the last committed observation for key. The bool is
	// false when nothing has been committed for key yet.
	Previous(ctx context.Context, key string) (models.Observation, bool, error)
	// Commit atomically replaces the observation stored for key.
	Commit(ctx context.Context, key string, obs models.Observation) error
	// Len returns the number of distinct keys held.
	Len(ctx context.Context) (int, error)
	// Snapshot returns a copy of every stored observation.
	Snapshot(ctx context.Context) (map[string]models.Observation, error)
	// Close releases resources held by the store.
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New creates a store for the named backend.
func New(backend string) (ValuationStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(DefaultShards), nil
	case BackendSQLite:
		return NewSQLiteStore()
	default:
		return nil, fmt.Errorf("%w: %q", qterrors.ErrUnknownBackend, backend)
	}
}
