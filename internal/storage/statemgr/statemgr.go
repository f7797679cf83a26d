package statemgr

import "context"

// LockStatus reports the outcome of a TryLock call.
type LockStatus int

const (
	// LockNone means the lock is held elsewhere and was not acquired.
	LockNone LockStatus = iota

	// LockAlreadyHeld means this instance already held the lock.
	LockAlreadyHeld

	// LockNewlyAcquired means the lock was just acquired.
	LockNewlyAcquired
)

// String returns the status name for logs.
func (s LockStatus) String() string {
	switch s {
	case LockAlreadyHeld:
		return "already-held"
	case LockNewlyAcquired:
		return "newly-acquired"
	default:
		return "none"
	}
}

// Held reports whether the lock is held after the call.
func (s LockStatus) Held() bool {
	return s == LockAlreadyHeld || s == LockNewlyAcquired
}

// StateMgr is the capability contract for persistent client state.
//
// Values are JSON documents; keys are short identifiers chosen by the
// caller.
type StateMgr interface {
	// Load reads the value at key into out (a JSON-decodable pointer).
	// Returns false when the key is absent; out is untouched then.
	Load(key string, out any) (bool, error)

	// Store writes val (JSON-encodable) at key. Fails with
	// domain.ErrReadOnly when the lock is not held.
	Store(key string, val any) error

	// CanStore reports whether this manager may write.
	CanStore() bool

	// TryLock attempts to become the single writer.
	TryLock() (LockStatus, error)

	// Unlock releases the lock. A no-op when not held.
	Unlock() error

	// WaitForUnlock blocks until another instance's lock is released or
	// ctx is done. Managers without an observable external lock return
	// immediately.
	WaitForUnlock(ctx context.Context) error
}

// StringStore is the narrow string capability KVStateMgr layers JSON
// over. storage.Backend satisfies it.
type StringStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	TryLock() (bool, error)
	IsLocked() (bool, error)
	Unlock() error
}
