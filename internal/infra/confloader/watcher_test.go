package confloader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func watcherTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatching(t *testing.T, path string) (*Watcher, chan string) {
	t.Helper()

	w, err := NewWatcher(WithWatcherLogger(watcherTestLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(p string) {
		select {
		case changed <- p:
		default:
		}
	})

	w.StartAsync()
	// Give the event loop time to come up before mutating files.
	time.Sleep(100 * time.Millisecond)
	return w, changed
}

func TestNewWatcher_WithLogger(t *testing.T) {
	logger := watcherTestLogger()
	w, err := NewWatcher(WithWatcherLogger(logger))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.logger != logger {
		t.Error("WithWatcherLogger() option not applied")
	}
}

func TestWatcher_WatchNonexistentDir(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(watcherTestLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Watch(nonexistent dir) error = nil")
	}
}

func TestWatcher_FileChangeTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, changed := startWatching(t, configFile)

	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case path := <-changed:
		if filepath.Clean(path) != configFile {
			t.Errorf("callback path = %q, want %q", path, configFile)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not triggered by file change")
	}
}

func TestWatcher_CreateAfterWatchTriggersCallback(t *testing.T) {
	// A config file that does not exist yet is still watchable: the
	// watch sits on the directory and fires when the file appears.
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")

	_, changed := startWatching(t, configFile)

	if err := os.WriteFile(configFile, []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("callback not triggered by file creation")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, changed := startWatching(t, configFile)

	sibling := filepath.Join(dir, "unrelated.txt")
	if err := os.WriteFile(sibling, []byte("noise"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case path := <-changed:
		t.Fatalf("callback fired for sibling file %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w, err := NewWatcher(WithWatcherLogger(watcherTestLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	w.StartAsync()
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcher_ConcurrentNotify(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(watcherTestLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var mu sync.Mutex
	count := 0
	w.OnChange(func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.notify("/test/path")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 100 {
		t.Errorf("notifications delivered = %d, want 100", count)
	}
}

func TestWatcher_RegisterCallbackWhileRunning(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w, changed := startWatching(t, configFile)

	// A late registration must observe subsequent changes too.
	late := make(chan struct{}, 1)
	w.OnChange(func(string) {
		select {
		case late <- struct{}{}:
		default:
		}
	})

	if err := os.WriteFile(configFile, []byte("a: 2\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("original callback not triggered")
	}
	select {
	case <-late:
	case <-time.After(2 * time.Second):
		t.Fatal("late callback not triggered")
	}
}
