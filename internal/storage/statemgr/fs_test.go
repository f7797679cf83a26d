package statemgr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/veildir/veildir-go/internal/core/domain"
)

type guardState struct {
	Sample  []string `json:"sample"`
	Version int      `json:"version"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFsMgr(t *testing.T, dir string) *FsStateMgr {
	t.Helper()
	m, err := NewFsStateMgr(dir, testLogger(), WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewFsStateMgr() error = %v", err)
	}
	return m
}

func TestFsStateMgr_RoundTrip(t *testing.T) {
	m := newFsMgr(t, t.TempDir())

	if status, err := m.TryLock(); err != nil || status != LockNewlyAcquired {
		t.Fatalf("TryLock() = %v, %v; want newly-acquired", status, err)
	}

	in := guardState{Sample: []string{"relay-a", "relay-b"}, Version: 3}
	if err := m.Store("guards", in); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	var out guardState
	ok, err := m.Load("guards", &out)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v; want true, nil", ok, err)
	}
	if out.Version != 3 || len(out.Sample) != 2 {
		t.Fatalf("Load() = %+v, want stored value", out)
	}
}

func TestFsStateMgr_LoadAbsent(t *testing.T) {
	m := newFsMgr(t, t.TempDir())

	var out guardState
	ok, err := m.Load("never-stored", &out)
	if err != nil {
		t.Fatalf("Load(absent) error = %v", err)
	}
	if ok {
		t.Fatal("Load(absent) = true, want false")
	}
}

func TestFsStateMgr_StoreWithoutLock(t *testing.T) {
	m := newFsMgr(t, t.TempDir())

	if m.CanStore() {
		t.Fatal("CanStore() = true before TryLock")
	}
	err := m.Store("guards", guardState{})
	if !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("Store() without lock error = %v, want ErrReadOnly", err)
	}
}

func TestFsStateMgr_LockExclusion(t *testing.T) {
	dir := t.TempDir()
	first := newFsMgr(t, dir)
	second := newFsMgr(t, dir)

	if status, _ := first.TryLock(); status != LockNewlyAcquired {
		t.Fatalf("first TryLock() = %v, want newly-acquired", status)
	}

	// Another instance cannot acquire while the first holds it.
	if status, err := second.TryLock(); err != nil || status != LockNone {
		t.Fatalf("second TryLock() = %v, %v; want none", status, err)
	}
	if second.CanStore() {
		t.Fatal("second.CanStore() = true without the lock")
	}

	// Re-locking by the holder reports already-held.
	if status, _ := first.TryLock(); status != LockAlreadyHeld {
		t.Fatalf("first re-TryLock() = %v, want already-held", status)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if status, _ := second.TryLock(); status != LockNewlyAcquired {
		t.Fatalf("second TryLock() after unlock = %v, want newly-acquired", status)
	}
}

func TestFsStateMgr_StaleLockIsNotReclaimed(t *testing.T) {
	dir := t.TempDir()
	first := newFsMgr(t, dir)
	if status, _ := first.TryLock(); status != LockNewlyAcquired {
		t.Fatal("first TryLock() failed")
	}

	// A crashed run leaves its lock file behind. A fresh manager over
	// the same directory must treat it as held by someone else, not
	// reclaim it.
	restarted := newFsMgr(t, dir)
	if status, err := restarted.TryLock(); err != nil || status != LockNone {
		t.Fatalf("restarted TryLock() = %v, %v; want none", status, err)
	}
	if restarted.CanStore() {
		t.Fatal("restarted.CanStore() = true over a leftover lock file")
	}

	// Removing the leftover file is the only way forward.
	if err := os.Remove(filepath.Join(dir, lockFileName)); err != nil {
		t.Fatalf("Remove(lock file) error = %v", err)
	}
	if status, _ := restarted.TryLock(); status != LockNewlyAcquired {
		t.Fatal("restarted TryLock() after cleanup failed")
	}
}

func TestFsStateMgr_WaitForUnlock(t *testing.T) {
	dir := t.TempDir()
	holder := newFsMgr(t, dir)
	waiter := newFsMgr(t, dir)

	if status, _ := holder.TryLock(); status != LockNewlyAcquired {
		t.Fatal("holder failed to acquire lock")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		holder.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := waiter.WaitForUnlock(ctx); err != nil {
		t.Fatalf("WaitForUnlock() error = %v", err)
	}
	if status, _ := waiter.TryLock(); status != LockNewlyAcquired {
		t.Fatal("waiter could not acquire lock after WaitForUnlock")
	}
}

func TestFsStateMgr_WaitForUnlock_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	holder := newFsMgr(t, dir)
	waiter := newFsMgr(t, dir)
	holder.TryLock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := waiter.WaitForUnlock(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitForUnlock() error = %v, want deadline exceeded", err)
	}
}

func TestFsStateMgr_KeyValidation(t *testing.T) {
	m := newFsMgr(t, t.TempDir())
	m.TryLock()

	bad := []string{"", "../escape", "with/slash", "with.dot", "sp ace"}
	for _, key := range bad {
		if err := m.Store(key, guardState{}); err == nil {
			t.Errorf("Store(%q) error = nil, want invalid key error", key)
		}
		var out guardState
		if _, err := m.Load(key, &out); err == nil {
			t.Errorf("Load(%q) error = nil, want invalid key error", key)
		}
	}

	if err := m.Store("ok-key_2", guardState{}); err != nil {
		t.Fatalf("Store(valid key) error = %v", err)
	}
}

func TestFsStateMgr_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	m := newFsMgr(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "guards.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var out guardState
	_, err := m.Load("guards", &out)
	if !errors.Is(err, domain.ErrCacheCorrupted) {
		t.Fatalf("Load(corrupt) error = %v, want ErrCacheCorrupted", err)
	}
}
