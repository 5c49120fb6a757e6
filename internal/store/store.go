// Package store defines the TTL-capable key-value table behind the Lock
// Manager and Hold Store. Tests run on the in-memory table; production runs
// on a shared Redis. Call sites never see the difference.
package store

import (
	"context"
	"time"
)

// Store is the minimal surface the engine's mutable state needs. A ttl of
// zero or less means the entry never expires on its own.
type Store interface {
	// Get returns the value and whether the key exists and is unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX writes only when the key is absent, returning whether it won.
	// Lock acquisition rides entirely on this.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes the key only while it still holds the
	// expected value, reporting whether it did. Compare and delete are a
	// single atomic step, so a stale owner can never remove a successor's
	// entry.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	// List returns every live entry whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
