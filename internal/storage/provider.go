// Package storage defines the durable key-value abstraction the reminder
// collection is persisted through, and its backends.
package storage

import "context"

// Provider is a durable key-value store. Values are opaque bytes written
// and read as a whole; a Put either fully replaces the value or fails.
type Provider interface {
	// Get returns the value stored under key. A missing key yields an error
	// wrapping apperr.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put atomically replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Close releases the underlying resources.
	Close() error
}
