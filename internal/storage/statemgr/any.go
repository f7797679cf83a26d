package statemgr

import "context"

// AnyStateMgr wraps one of the concrete state managers so callers hold
// a single concrete type regardless of the storage medium.
type AnyStateMgr struct {
	inner StateMgr
	isFs  bool
}

// NewAnyFs wraps a filesystem state manager.
func NewAnyFs(m *FsStateMgr) *AnyStateMgr {
	return &AnyStateMgr{inner: m, isFs: true}
}

// NewAnyKV wraps a KV-backed state manager.
func NewAnyKV(m *KVStateMgr) *AnyStateMgr {
	return &AnyStateMgr{inner: m}
}

// Wrap wraps any StateMgr implementation. Non-filesystem managers get
// the immediate WaitForUnlock behavior.
func Wrap(m StateMgr) *AnyStateMgr {
	if fs, ok := m.(*FsStateMgr); ok {
		return NewAnyFs(fs)
	}
	return &AnyStateMgr{inner: m}
}

// Load reads the value at key into out.
func (a *AnyStateMgr) Load(key string, out any) (bool, error) {
	return a.inner.Load(key, out)
}

// Store writes val at key.
func (a *AnyStateMgr) Store(key string, val any) error {
	return a.inner.Store(key, val)
}

// CanStore reports whether writes are allowed.
func (a *AnyStateMgr) CanStore() bool {
	return a.inner.CanStore()
}

// TryLock attempts to become the single writer.
func (a *AnyStateMgr) TryLock() (LockStatus, error) {
	return a.inner.TryLock()
}

// Unlock releases the lock.
func (a *AnyStateMgr) Unlock() error {
	return a.inner.Unlock()
}

// WaitForUnlock waits for an external lock only on the filesystem path.
// Every other medium has no observable external lock, so the wait
// resolves immediately.
func (a *AnyStateMgr) WaitForUnlock(ctx context.Context) error {
	if a.isFs {
		return a.inner.WaitForUnlock(ctx)
	}
	return ctx.Err()
}
