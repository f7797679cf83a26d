// Package storage provides storage abstractions for VeilDir.
//
// This file defines the Backend capability contract that every storage
// medium implements: flat string key-value access plus a single-writer
// advisory lock.
package storage

import "errors"

// Common errors
var (
	ErrClosed = errors.New("storage backend closed")
)

// Backend defines the capability contract for a flat key-value medium.
//
// A Backend stores opaque string values under string keys. Absence is
// reported via the bool return, never as an error; errors mean the medium
// itself failed and are propagated to callers unmodified.
//
// The lock is an advisory single-writer flag. Holding it is a
// precondition for writes at the layers above; the Backend itself does
// not enforce it.
//
// Implementation requirements:
//   - Thread-safe: concurrent reads/writes must be safe
//   - Overwrite semantics: Set replaces any existing value
//   - Delete of an absent key is not an error
type Backend interface {
	// Get retrieves a value by key.
	// The second return is false when the key is absent.
	Get(key string) (string, bool, error)

	// Set stores a key-value pair, replacing any existing value.
	Set(key, value string) error

	// Delete removes a key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Keys returns all keys beginning with prefix, in no particular order.
	Keys(prefix string) ([]string, error)

	// TryLock attempts to acquire the single-writer lock.
	// Returns true if the lock was newly acquired. Calling TryLock while
	// already holding the lock returns false with no error.
	TryLock() (bool, error)

	// IsLocked reports whether this instance holds the lock.
	IsLocked() (bool, error)

	// Unlock releases the lock. Unlocking when not held is a no-op.
	Unlock() error
}

// Closer is implemented by backends that own external resources.
type Closer interface {
	Close() error
}

// KVConfig configures the embedded durable backend.
type KVConfig struct {
	// Dir is the storage directory.
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value-log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Higher values trigger GC more aggressively.
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// SyncWrites enables fsync after each write.
	// Default: true (directory documents are re-fetchable but state is not)
	SyncWrites bool
}

// DefaultKVConfig returns the default backend configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger tuning parameters.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		SyncWrites:       true,
	}
}
