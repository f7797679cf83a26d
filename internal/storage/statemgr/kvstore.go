package statemgr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/veildir/veildir-go/internal/core/domain"
)

// KVStateMgr layers the typed state contract over a StringStore,
// usually a storage.StateView of some backend.
//
// The lock is the store's own single-writer flag; there is no separate
// lock file.
type KVStateMgr struct {
	store StringStore
}

// NewKVStateMgr creates a state manager over store.
func NewKVStateMgr(store StringStore) *KVStateMgr {
	return &KVStateMgr{store: store}
}

// Load reads the JSON value at key into out.
func (m *KVStateMgr) Load(key string, out any) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	raw, ok, err := m.store.Get(key)
	if err != nil {
		return false, fmt.Errorf("statemgr: get %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, domain.ErrCacheCorrupted.WithDetails(key).WithCause(err)
	}
	return true, nil
}

// Store writes val as compact JSON at key. Requires the lock.
func (m *KVStateMgr) Store(key string, val any) error {
	if err := validKey(key); err != nil {
		return err
	}
	if !m.CanStore() {
		return domain.ErrReadOnly
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("statemgr: encode %q: %w", key, err)
	}
	if err := m.store.Set(key, string(raw)); err != nil {
		return fmt.Errorf("statemgr: set %q: %w", key, err)
	}
	return nil
}

// CanStore reports whether the store's lock is held.
func (m *KVStateMgr) CanStore() bool {
	locked, err := m.store.IsLocked()
	return err == nil && locked
}

// TryLock acquires the store's single-writer flag.
func (m *KVStateMgr) TryLock() (LockStatus, error) {
	acquired, err := m.store.TryLock()
	if err != nil {
		return LockNone, fmt.Errorf("statemgr: try lock: %w", err)
	}
	if acquired {
		return LockNewlyAcquired, nil
	}

	locked, err := m.store.IsLocked()
	if err != nil {
		return LockNone, fmt.Errorf("statemgr: check lock: %w", err)
	}
	if locked {
		return LockAlreadyHeld, nil
	}
	return LockNone, nil
}

// Unlock releases the store's lock.
func (m *KVStateMgr) Unlock() error {
	if err := m.store.Unlock(); err != nil {
		return fmt.Errorf("statemgr: unlock: %w", err)
	}
	return nil
}

// WaitForUnlock returns immediately: a KV store exposes no external
// lock to observe, so there is nothing to wait on.
func (m *KVStateMgr) WaitForUnlock(ctx context.Context) error {
	return ctx.Err()
}
