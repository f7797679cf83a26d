package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeBackend is an AsyncBackend with controllable latency and failure.
type fakeBackend struct {
	mu     sync.Mutex
	items  map[string]string
	locked bool

	// gate, when non-nil, blocks Set/Delete until released.
	gate chan struct{}

	// applied records mutations in the order the backend saw them.
	applied []string

	failKeys bool
	failSet  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{items: make(map[string]string)}
}

func (f *fakeBackend) waitGate() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *fakeBackend) Set(_ context.Context, key, value string) error {
	f.waitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("backend unavailable")
	}
	f.items[key] = value
	f.applied = append(f.applied, "set "+key+"="+value)
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) error {
	f.waitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
	f.applied = append(f.applied, "del "+key)
	return nil
}

func (f *fakeBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys {
		return nil, errors.New("backend unavailable")
	}
	var keys []string
	for k := range f.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeBackend) TryLock(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return false, nil
	}
	f.locked = true
	f.applied = append(f.applied, "trylock")
	return true, nil
}

func (f *fakeBackend) IsLocked(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked, nil
}

func (f *fakeBackend) Unlock(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = false
	f.applied = append(f.applied, "unlock")
	return nil
}

func (f *fakeBackend) appliedOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.applied))
	copy(out, f.applied)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCachedStore(t *testing.T, backend *fakeBackend) *CachedStore {
	t.Helper()
	s, err := New(context.Background(), backend, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestCachedStore_PreloadsMirror(t *testing.T) {
	backend := newFakeBackend()
	backend.items["state:guards"] = "{}"
	backend.items["dir:protocols"] = `{"valid_after":1}`
	backend.items["unrelated:key"] = "ignored"

	s := newCachedStore(t, backend)

	if v, ok, _ := s.Get("state:guards"); !ok || v != "{}" {
		t.Fatalf("Get(state:guards) = %q, %v; want preloaded value", v, ok)
	}
	if v, ok, _ := s.Get("dir:protocols"); !ok || v != `{"valid_after":1}` {
		t.Fatalf("Get(dir:protocols) = %q, %v; want preloaded value", v, ok)
	}
	// Only the known namespaces are mirrored.
	if _, ok, _ := s.Get("unrelated:key"); ok {
		t.Fatal("Get(unrelated:key) found a key outside the preloaded namespaces")
	}
}

func TestCachedStore_PreloadFailureFailsConstruction(t *testing.T) {
	backend := newFakeBackend()
	backend.failKeys = true

	if _, err := New(context.Background(), backend, testLogger()); err == nil {
		t.Fatal("New() error = nil, want preload failure")
	}
}

func TestCachedStore_WriteVisibleBeforePersistence(t *testing.T) {
	backend := newFakeBackend()
	backend.gate = make(chan struct{})

	s := newCachedStore(t, backend)

	if err := s.Set("dir:protocols", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// The mirror answers immediately even though the backend write is
	// still blocked behind the gate.
	if v, ok, _ := s.Get("dir:protocols"); !ok || v != "v1" {
		t.Fatalf("Get() = %q, %v; want v1 before persistence", v, ok)
	}
	if _, ok, _ := backend.Get(context.Background(), "dir:protocols"); ok {
		t.Fatal("backend already has the key while gated")
	}

	close(backend.gate)
	waitFor(t, func() bool {
		_, ok, _ := backend.Get(context.Background(), "dir:protocols")
		return ok
	})
}

func TestCachedStore_OperationsApplyInSubmissionOrder(t *testing.T) {
	backend := newFakeBackend()
	s := newCachedStore(t, backend)

	var want []string
	for i := 0; i < 20; i++ {
		v := fmt.Sprintf("v%d", i)
		s.Set("dir:counter", v)
		want = append(want, "set dir:counter="+v)
	}
	s.Delete("dir:counter")
	want = append(want, "del dir:counter")

	waitFor(t, func() bool {
		return len(backend.appliedOps()) == len(want)
	})

	got := backend.appliedOps()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("applied[%d] = %q, want %q (order broken)", i, got[i], want[i])
		}
	}
}

func TestCachedStore_DeleteVisibleImmediately(t *testing.T) {
	backend := newFakeBackend()
	backend.items["dir:protocols"] = "old"
	s := newCachedStore(t, backend)

	if err := s.Delete("dir:protocols"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := s.Get("dir:protocols"); ok {
		t.Fatal("Get() after Delete() found the key in the mirror")
	}

	waitFor(t, func() bool {
		_, ok, _ := backend.Get(context.Background(), "dir:protocols")
		return !ok
	})
}

func TestCachedStore_KeysFromMirror(t *testing.T) {
	backend := newFakeBackend()
	backend.items["dir:microdesc:aa"] = "1"
	backend.items["dir:microdesc:bb"] = "2"
	backend.items["state:guards"] = "3"
	s := newCachedStore(t, backend)

	keys, err := s.Keys("dir:microdesc:")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "dir:microdesc:aa" || keys[1] != "dir:microdesc:bb" {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestCachedStore_LockIsLocalAndForwarded(t *testing.T) {
	backend := newFakeBackend()
	s := newCachedStore(t, backend)

	// The local flag flips synchronously.
	acquired, err := s.TryLock()
	if err != nil || !acquired {
		t.Fatalf("TryLock() = %v, %v; want true, nil", acquired, err)
	}
	if locked, _ := s.IsLocked(); !locked {
		t.Fatal("IsLocked() = false after TryLock")
	}
	if again, _ := s.TryLock(); again {
		t.Fatal("second TryLock() = true, want false")
	}

	// The remote lock call rides the queue.
	waitFor(t, func() bool {
		locked, _ := backend.IsLocked(context.Background())
		return locked
	})

	if err := s.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if locked, _ := s.IsLocked(); locked {
		t.Fatal("IsLocked() = true after Unlock")
	}
	waitFor(t, func() bool {
		locked, _ := backend.IsLocked(context.Background())
		return !locked
	})
}

func TestCachedStore_WriteBackFailureIsSilent(t *testing.T) {
	backend := newFakeBackend()
	s := newCachedStore(t, backend)

	backend.mu.Lock()
	backend.failSet = true
	backend.mu.Unlock()

	// The caller never sees the remote failure.
	if err := s.Set("dir:protocols", "v1"); err != nil {
		t.Fatalf("Set() error = %v, want nil despite backend failure", err)
	}
	if v, ok, _ := s.Get("dir:protocols"); !ok || v != "v1" {
		t.Fatalf("Get() = %q, %v; mirror must keep the value", v, ok)
	}
}

func TestCachedStore_SetRacingCloseDoesNotPanic(t *testing.T) {
	// Writers and Close contend over the wake channel; any iteration
	// that sends on a closed channel panics and fails the test.
	for i := 0; i < 200; i++ {
		backend := newFakeBackend()
		s, err := New(context.Background(), backend, testLogger())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				<-start
				for j := 0; j < 10; j++ {
					s.Set(fmt.Sprintf("dir:k%d", g), "v")
					s.Delete(fmt.Sprintf("dir:k%d", g))
				}
			}(g)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.Close()
		}()

		close(start)
		wg.Wait()
	}
}

func TestCachedStore_CloseDropsQueue(t *testing.T) {
	backend := newFakeBackend()
	backend.gate = make(chan struct{})
	s, err := New(context.Background(), backend, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Set("dir:a", "1")
	s.Set("dir:b", "2")

	// Unblock the in-flight operation, then close; close must not hang.
	close(backend.gate)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// Writes after close keep the mirror coherent but are not queued.
	s.Set("dir:c", "3")
	if v, ok, _ := s.Get("dir:c"); !ok || v != "3" {
		t.Fatalf("Get() after close = %q, %v", v, ok)
	}
}
