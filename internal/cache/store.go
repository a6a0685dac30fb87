// Package cache provides the TTL key-value store port used for session
// continuation state, with memcached and in-memory implementations.
package cache

import (
	"context"
	"time"
)

// Store is a minimal TTL key-value store. Implementations report backend
// failures as errors; a missing key is not an error.
type Store interface {
	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set writes key=value with the given TTL, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Add writes key=value only if the key does not already exist. It returns
	// false (and no error) when the key is already present.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
}
