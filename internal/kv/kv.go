// Package kv provides the key-value record store used for channel-ID
// caching, fetch-result caching, preferences and the published snapshot.
// Records are opaque JSON values; callers own the encoding.
package kv

import (
	"context"
	"errors"
)

// Sentinel errors for record store operations.
var (
	// ErrNotFound indicates the requested key has no record.
	ErrNotFound = errors.New("kv: not found")
	// ErrCorrupt indicates the persisted data could not be decoded.
	ErrCorrupt = errors.New("kv: data corrupt")
	// ErrLockTimeout indicates a timeout acquiring the store file lock.
	ErrLockTimeout = errors.New("kv: lock timeout")
)

// Store is the record store capability. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the record under key. It reports whether a record
	// existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Keys lists all record keys.
	Keys(ctx context.Context) ([]string, error)

	// Backup writes every record to a JSON file at path.
	Backup(ctx context.Context, path string) error

	// Close releases resources held by the store.
	Close() error
}

// StoreError wraps store failures with the operation and key that failed.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return "kv: " + e.Op + ": " + e.Err.Error()
	}
	return "kv: " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }
