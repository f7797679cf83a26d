package storage

import (
	"strings"
	"sync"
)

// MemBackend is a map-based Backend.
//
// It is used as the medium behind ephemeral stores and in tests. All
// operations are guarded by one mutex; the workload here is small keys
// at low rates, so sharding would buy nothing.
type MemBackend struct {
	mu     sync.RWMutex
	items  map[string]string
	locked bool
}

// NewMemBackend creates an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{items: make(map[string]string)}
}

// Get retrieves a value by key.
func (m *MemBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// Set stores a key-value pair, replacing any existing value.
func (m *MemBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

// Delete removes a key.
func (m *MemBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns all keys beginning with prefix.
func (m *MemBackend) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// TryLock acquires the single-writer flag.
func (m *MemBackend) TryLock() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false, nil
	}
	m.locked = true
	return true, nil
}

// IsLocked reports whether the single-writer flag is held.
func (m *MemBackend) IsLocked() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locked, nil
}

// Unlock releases the single-writer flag.
func (m *MemBackend) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
	return nil
}
