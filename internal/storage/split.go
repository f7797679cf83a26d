package storage

import "strings"

// statePrefix is prepended to every key of the state namespace.
const statePrefix = "state:"

// StateView returns a Backend view that stores its keys under the
// "state:" namespace of b.
//
// Both views returned by StateView and DirView share b's single lock:
// acquiring it through either view makes both writable. The lock flag is
// owned by the backend and never duplicated per view.
func StateView(b Backend) Backend {
	return &stateView{inner: b}
}

// DirView returns a Backend view for directory-cache keys.
//
// Directory callers already namespace their keys with "dir:", so this
// view passes keys through unchanged. It exists so both namespaces are
// handed out the same way and so future key rewriting has one place to
// live.
func DirView(b Backend) Backend {
	return &dirView{inner: b}
}

type stateView struct {
	inner Backend
}

func (v *stateView) Get(key string) (string, bool, error) {
	return v.inner.Get(statePrefix + key)
}

func (v *stateView) Set(key, value string) error {
	return v.inner.Set(statePrefix+key, value)
}

func (v *stateView) Delete(key string) error {
	return v.inner.Delete(statePrefix + key)
}

// Keys lists state keys with the namespace prefix stripped, so callers
// see the same names they stored under.
func (v *stateView) Keys(prefix string) ([]string, error) {
	raw, err := v.inner.Keys(statePrefix + prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, statePrefix))
	}
	return keys, nil
}

func (v *stateView) TryLock() (bool, error) { return v.inner.TryLock() }
func (v *stateView) IsLocked() (bool, error) {
	return v.inner.IsLocked()
}
func (v *stateView) Unlock() error { return v.inner.Unlock() }

type dirView struct {
	inner Backend
}

func (v *dirView) Get(key string) (string, bool, error) { return v.inner.Get(key) }
func (v *dirView) Set(key, value string) error          { return v.inner.Set(key, value) }
func (v *dirView) Delete(key string) error              { return v.inner.Delete(key) }
func (v *dirView) Keys(prefix string) ([]string, error) { return v.inner.Keys(prefix) }
func (v *dirView) TryLock() (bool, error)               { return v.inner.TryLock() }
func (v *dirView) IsLocked() (bool, error)              { return v.inner.IsLocked() }
func (v *dirView) Unlock() error                        { return v.inner.Unlock() }
