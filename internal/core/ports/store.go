// Package ports defines the interfaces between the caching engine and its
// collaborators: the backing store, the injected computations, the
// filesystem watcher and the observability sinks.
package ports

import (
	"context"
	"time"
)

// Store is the external cache store. The engine treats store errors as
// fail-open: a read error is a miss, a write error is logged and the
// freshly computed result is still returned.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Get retrieves the value for key. Returns (nil, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL. A zero TTL stores the
	// value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Idempotent, missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes every key matching the glob-style pattern and returns
	// the number of keys removed.
	Clear(ctx context.Context, pattern string) (int, error)
}
