package statemgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/veildir/veildir-go/internal/core/domain"
)

const (
	lockFileName = "state.lock"

	// DefaultPollInterval is how often WaitForUnlock re-checks the lock
	// file.
	DefaultPollInterval = 500 * time.Millisecond
)

// FsStateMgr stores each state document as a JSON file under a
// directory.
//
// Cross-process exclusion uses a lock file next to the documents whose
// content is the owner's ULID. Creating the file with O_EXCL acquires
// the lock; the ULID only identifies the holder for diagnostics, so a
// file left behind by a crashed run must be removed by hand before the
// lock can be taken again.
type FsStateMgr struct {
	dir          string
	ownerID      string
	logger       *slog.Logger
	pollInterval time.Duration

	holding bool
}

// FsOption configures an FsStateMgr.
type FsOption func(*FsStateMgr)

// WithPollInterval sets the WaitForUnlock polling interval.
func WithPollInterval(d time.Duration) FsOption {
	return func(m *FsStateMgr) { m.pollInterval = d }
}

// NewFsStateMgr creates a filesystem state manager rooted at dir,
// creating the directory if needed.
func NewFsStateMgr(dir string, logger *slog.Logger, opts ...FsOption) (*FsStateMgr, error) {
	if dir == "" {
		return nil, domain.ErrMissingArgument.WithDetails("state directory")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("statemgr: create state dir: %w", err)
	}

	m := &FsStateMgr{
		dir:          dir,
		ownerID:      ulid.Make().String(),
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// validKey restricts keys to names that are safe as file stems.
func validKey(key string) error {
	if key == "" {
		return domain.ErrMissingArgument.WithDetails("state key")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return domain.ErrInvalidArgument.WithDetails("state key " + key)
		}
	}
	return nil
}

func (m *FsStateMgr) keyPath(key string) string {
	return filepath.Join(m.dir, key+".json")
}

func (m *FsStateMgr) lockPath() string {
	return filepath.Join(m.dir, lockFileName)
}

// Load reads the document at key into out.
func (m *FsStateMgr) Load(key string, out any) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	raw, err := os.ReadFile(m.keyPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("statemgr: read %q: %w", key, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, domain.ErrCacheCorrupted.WithDetails(key).WithCause(err)
	}
	return true, nil
}

// Store writes the document at key. Requires the lock.
func (m *FsStateMgr) Store(key string, val any) error {
	if err := validKey(key); err != nil {
		return err
	}
	if !m.holding {
		return domain.ErrReadOnly
	}

	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("statemgr: encode %q: %w", key, err)
	}

	// Write-then-rename keeps readers from seeing a torn document.
	tmp := m.keyPath(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("statemgr: write %q: %w", key, err)
	}
	if err := os.Rename(tmp, m.keyPath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("statemgr: rename %q: %w", key, err)
	}
	return nil
}

// CanStore reports whether this manager holds its lock.
func (m *FsStateMgr) CanStore() bool {
	return m.holding
}

// TryLock acquires the lock file.
func (m *FsStateMgr) TryLock() (LockStatus, error) {
	if m.holding {
		return LockAlreadyHeld, nil
	}

	f, err := os.OpenFile(m.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err == nil {
		_, werr := f.WriteString(m.ownerID)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(m.lockPath())
			return LockNone, fmt.Errorf("statemgr: write lock file: %w", errors.Join(werr, cerr))
		}
		m.holding = true
		m.logger.Debug("state lock acquired", "dir", m.dir)
		return LockNewlyAcquired, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return LockNone, fmt.Errorf("statemgr: create lock file: %w", err)
	}

	// Lock file exists; read the owner ULID for the log only.
	owner, rerr := os.ReadFile(m.lockPath())
	if rerr != nil {
		if errors.Is(rerr, fs.ErrNotExist) {
			// Raced with an unlock; caller can retry.
			return LockNone, nil
		}
		return LockNone, fmt.Errorf("statemgr: read lock file: %w", rerr)
	}
	m.logger.Debug("state lock held elsewhere",
		"dir", m.dir, "owner", strings.TrimSpace(string(owner)))
	return LockNone, nil
}

// Unlock releases the lock file if held.
func (m *FsStateMgr) Unlock() error {
	if !m.holding {
		return nil
	}
	if err := os.Remove(m.lockPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("statemgr: remove lock file: %w", err)
	}
	m.holding = false
	m.logger.Debug("state lock released", "dir", m.dir)
	return nil
}

// WaitForUnlock polls the lock file until it disappears or ctx is done.
func (m *FsStateMgr) WaitForUnlock(ctx context.Context) error {
	if m.holding {
		return nil
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(m.lockPath()); errors.Is(err, fs.ErrNotExist) {
			return nil
		} else if err != nil {
			return fmt.Errorf("statemgr: stat lock file: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
