// Package cmap provides a concurrent-safe sharded map.
package cmap

import "sync"

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func newShard[V any]() *shard[V] {
	return &shard[V]{items: make(map[string]V)}
}

// Range iterates over all key-value pairs.
//
// The callback returns false to stop iteration.
// Note: This acquires locks shard by shard, so the view may not be consistent.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// KeysWithPrefix returns all keys that begin with prefix, in no particular order.
func (m *Map[V]) KeysWithPrefix(prefix string) []string {
	keys := make([]string, 0)
	m.Range(func(key string, _ V) bool {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}
