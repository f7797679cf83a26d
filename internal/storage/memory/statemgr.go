package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/storage/statemgr"
)

// StateMgr is the in-memory client-state manager.
//
// It keeps documents as raw JSON so Load/Store round-trip exactly like
// the persistent managers, including decode failures for values a test
// seeded with bad JSON.
type StateMgr struct {
	mu     sync.RWMutex
	items  map[string]json.RawMessage
	locked bool
}

// NewStateMgr creates an empty in-memory state manager.
func NewStateMgr() *StateMgr {
	return &StateMgr{items: make(map[string]json.RawMessage)}
}

// Load reads the value at key into out.
func (m *StateMgr) Load(key string, out any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, domain.ErrCacheCorrupted.WithDetails(key).WithCause(err)
	}
	return true, nil
}

// Store writes val at key. Requires the lock.
func (m *StateMgr) Store(key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("memory: encode %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		return domain.ErrReadOnly
	}
	m.items[key] = raw
	return nil
}

// CanStore reports whether the lock is held.
func (m *StateMgr) CanStore() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locked
}

// TryLock acquires the single-writer flag.
func (m *StateMgr) TryLock() (statemgr.LockStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return statemgr.LockAlreadyHeld, nil
	}
	m.locked = true
	return statemgr.LockNewlyAcquired, nil
}

// Unlock releases the single-writer flag.
func (m *StateMgr) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
	return nil
}

// WaitForUnlock returns immediately; there is no external lock.
func (m *StateMgr) WaitForUnlock(ctx context.Context) error {
	return ctx.Err()
}
