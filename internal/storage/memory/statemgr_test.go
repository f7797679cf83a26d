package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/storage/statemgr"
)

var _ statemgr.StateMgr = (*StateMgr)(nil)

type retryState struct {
	Attempts int `json:"attempts"`
}

func TestStateMgr_RoundTrip(t *testing.T) {
	m := NewStateMgr()

	if status, err := m.TryLock(); err != nil || status != statemgr.LockNewlyAcquired {
		t.Fatalf("TryLock() = %v, %v; want newly-acquired", status, err)
	}
	if status, _ := m.TryLock(); status != statemgr.LockAlreadyHeld {
		t.Fatalf("second TryLock() = %v, want already-held", status)
	}

	if err := m.Store("retry", retryState{Attempts: 4}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	var out retryState
	ok, err := m.Load("retry", &out)
	if err != nil || !ok || out.Attempts != 4 {
		t.Fatalf("Load() = %v, %v, %+v", ok, err, out)
	}

	if ok, err := m.Load("absent", &out); err != nil || ok {
		t.Fatalf("Load(absent) = %v, %v; want false, nil", ok, err)
	}
}

func TestStateMgr_LockGatesWrites(t *testing.T) {
	m := NewStateMgr()

	if m.CanStore() {
		t.Fatal("CanStore() = true before lock")
	}
	if err := m.Store("retry", retryState{}); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("Store() without lock error = %v, want ErrReadOnly", err)
	}

	m.TryLock()
	if !m.CanStore() {
		t.Fatal("CanStore() = false while locked")
	}
	m.Unlock()
	if m.CanStore() {
		t.Fatal("CanStore() = true after Unlock")
	}

	if err := m.WaitForUnlock(context.Background()); err != nil {
		t.Fatalf("WaitForUnlock() error = %v", err)
	}
}
