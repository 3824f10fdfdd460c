// Package cache defines the external TTL cache collaborator used to persist
// the serialized remote schema set between processes, plus two
// implementations: an in-process ristretto cache and a redis-backed one.
package cache

import (
	"context"
	"time"
)

// Store is a key/value store with per-entry TTL semantics. Implementations
// must treat every Set as a complete replacement of the entry; partial
// updates are never performed by callers.
type Store interface {
	// Get returns the entry for key, reporting whether it exists and has not
	// expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes the entry for key with the given TTL. A zero TTL stores the
	// entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
