// Package storage provides storage abstractions for VeilDir.
//
// This file implements the Backend contract over Badger v3, the default
// durable medium for the cache and state directories.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerBackend implements Backend using Badger v3.
//
// Badger already takes an exclusive OS-level lock on its directory, so
// the advisory single-writer lock is a process-local flag: whichever
// component holds it is the designated writer for this process.
type BadgerBackend struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	locked atomic.Bool
	closed atomic.Bool

	// Metrics (internal counters)
	lastGCTime atomic.Int64 // Unix milliseconds

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerBackend opens (or creates) a Badger-backed store.
func NewBadgerBackend(cfg KVConfig, logger *slog.Logger) (*BadgerBackend, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Build Badger options
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}

	badgerCfg := cfg.Badger
	opts.BlockCacheSize = badgerCfg.CacheSize
	opts.ValueLogFileSize = badgerCfg.ValueLogFileSize
	opts.SyncWrites = badgerCfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	b := &BadgerBackend{
		db:     db,
		cfg:    badgerCfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	// Start background GC loop
	go b.gcLoop()

	logger.Info("badger backend started",
		"dir", cfg.Dir,
		"cache_size", badgerCfg.CacheSize,
		"gc_interval", badgerCfg.GCInterval)

	return b, nil
}

// Get retrieves a value by key.
func (b *BadgerBackend) Get(key string) (string, bool, error) {
	if b.closed.Load() {
		return "", false, ErrClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("badger: get %q: %w", key, err)
	}

	return string(value), true, nil
}

// Set stores a key-value pair, replacing any existing value.
func (b *BadgerBackend) Set(key, value string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badger: set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Badger treats deletion of an absent key as a no-op.
func (b *BadgerBackend) Delete(key string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger: delete %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys beginning with prefix.
func (b *BadgerBackend) Keys(prefix string) ([]string, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: keys %q: %w", prefix, err)
	}
	return keys, nil
}

// TryLock acquires the process-local single-writer flag.
func (b *BadgerBackend) TryLock() (bool, error) {
	if b.closed.Load() {
		return false, ErrClosed
	}
	return b.locked.CompareAndSwap(false, true), nil
}

// IsLocked reports whether the single-writer flag is held.
func (b *BadgerBackend) IsLocked() (bool, error) {
	return b.locked.Load(), nil
}

// Unlock releases the single-writer flag.
func (b *BadgerBackend) Unlock() error {
	b.locked.Store(false)
	return nil
}

// GC triggers value-log garbage collection.
func (b *BadgerBackend) GC() error {
	startTime := time.Now()

	// Run GC until no more can be reclaimed (threshold-based)
	cycles := 0
	for {
		err := b.db.RunValueLogGC(b.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("badger: gc: %w", err)
		}
		cycles++
	}

	b.lastGCTime.Store(time.Now().UnixMilli())

	if cycles > 0 {
		b.logger.Info("badger gc completed",
			"cycles", cycles,
			"elapsed", time.Since(startTime))
	}
	return nil
}

// Close gracefully shuts down the backend.
func (b *BadgerBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.logger.Info("shutting down badger backend")

	// Stop GC loop
	close(b.stopCh)
	<-b.doneCh

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("badger: close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger size metrics with Prometheus.
//
// This should be called once during initialization.
// Returns the backend for method chaining.
func (b *BadgerBackend) RegisterMetrics(registry *prometheus.Registry) *BadgerBackend {
	b.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "veildir",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	b.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "veildir",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	b.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "veildir",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	registry.MustRegister(
		b.metricsLSMSize,
		b.metricsValueLogSize,
		b.metricsLastGCTime,
	)

	// Start metrics updater
	go b.metricsUpdateLoop()

	return b
}

// metricsUpdateLoop periodically updates Prometheus metrics.
func (b *BadgerBackend) metricsUpdateLoop() {
	if b.metricsLSMSize == nil {
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lsm, vlog := b.db.Size()
			b.metricsLSMSize.Set(float64(lsm))
			b.metricsValueLogSize.Set(float64(vlog))

			if t := b.lastGCTime.Load(); t > 0 {
				b.metricsLastGCTime.Set(float64(t) / 1000.0)
			}

		case <-b.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (b *BadgerBackend) gcLoop() {
	defer close(b.doneCh)

	interval, err := time.ParseDuration(b.cfg.GCInterval)
	if err != nil {
		b.logger.Error("invalid gc_interval, using default 10m", "error", err)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.GC(); err != nil {
				b.logger.Error("auto gc failed", "error", err)
			}

		case <-b.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
