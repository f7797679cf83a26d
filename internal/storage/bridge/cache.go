package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/veildir/veildir-go/internal/telemetry/metric"
	"github.com/veildir/veildir-go/pkg/cmap"
)

// Namespaces preloaded into the mirror at construction.
var preloadPrefixes = []string{"state:", "dir:"}

// opKind discriminates queued background operations.
type opKind int

const (
	opSet opKind = iota
	opDelete
	opTryLock
	opUnlock
)

type op struct {
	kind  opKind
	key   string
	value string
}

// CachedStore adapts an AsyncBackend to the synchronous storage.Backend
// contract.
//
// All reads are served from an in-memory mirror that is fully preloaded
// at construction. Writes update the mirror synchronously and enqueue a
// background persistence operation; the write call never observes the
// remote outcome. One persister goroutine applies queued operations in
// submission order, so the remote medium converges to the mirror's
// state whenever it is reachable.
//
// The lock is two-tier: a local flag flips synchronously (gating writes
// at the layers above) and the remote lock call rides the same queue.
// A remote lock conflict is therefore not discoverable synchronously;
// it surfaces only in the log.
type CachedStore struct {
	backend AsyncBackend
	mirror  *cmap.Map[string]
	logger  *slog.Logger
	metrics *metric.Collector

	locked atomic.Bool

	mu     sync.Mutex
	queue  []op
	closed bool
	wakeCh chan struct{}
	doneCh chan struct{}
}

// Option configures a CachedStore.
type Option func(*CachedStore)

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metric.Collector) Option {
	return func(s *CachedStore) { s.metrics = c }
}

// New builds a CachedStore over backend.
//
// Construction preloads every state and directory key into the mirror;
// a failed read fails construction, so a returned store always has a
// complete warm mirror.
func New(ctx context.Context, backend AsyncBackend, logger *slog.Logger, opts ...Option) (*CachedStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &CachedStore{
		backend: backend,
		mirror:  cmap.New[string](),
		logger:  logger,
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.preload(ctx); err != nil {
		return nil, err
	}

	go s.persister()

	logger.Info("async bridge warmed up", "entries", s.mirror.Count())
	return s, nil
}

// preload copies every key of the known namespaces into the mirror.
func (s *CachedStore) preload(ctx context.Context) error {
	for _, prefix := range preloadPrefixes {
		keys, err := s.backend.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("bridge: preload keys %q: %w", prefix, err)
		}
		for _, key := range keys {
			value, ok, err := s.backend.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("bridge: preload %q: %w", key, err)
			}
			if !ok {
				// Deleted between Keys and Get; skip.
				continue
			}
			s.mirror.Set(key, value)
		}
	}
	if s.metrics != nil {
		s.metrics.MirrorEntries.Set(float64(s.mirror.Count()))
	}
	return nil
}

// enqueue appends a background operation and wakes the persister.
func (s *CachedStore) enqueue(o op) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("write-back dropped, store closed", "key", o.key)
		return
	}
	s.queue = append(s.queue, o)
	depth := len(s.queue)

	// The wake send stays under mu: Close closes wakeCh only after its
	// own critical section sets closed, so a send here can never hit a
	// closed channel.
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.WriteBackQueue.Set(float64(depth))
	}
}

// persister drains the queue in submission order.
//
// Remote calls use a background context: queued operations are already
// acknowledged to the caller, so they are never cancelled.
func (s *CachedStore) persister() {
	defer close(s.doneCh)
	ctx := context.Background()

	for range s.wakeCh {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			o := s.queue[0]
			s.queue = s.queue[1:]
			depth := len(s.queue)
			s.mu.Unlock()

			if s.metrics != nil {
				s.metrics.WriteBackQueue.Set(float64(depth))
			}
			s.apply(ctx, o)
		}
	}
}

// apply performs one remote operation; failures are logged, never
// surfaced.
func (s *CachedStore) apply(ctx context.Context, o op) {
	var err error
	switch o.kind {
	case opSet:
		err = s.backend.Set(ctx, o.key, o.value)
	case opDelete:
		err = s.backend.Delete(ctx, o.key)
	case opTryLock:
		var acquired bool
		acquired, err = s.backend.TryLock(ctx)
		if err == nil && !acquired {
			s.logger.Warn("remote lock held elsewhere, local writes may not persist")
		}
	case opUnlock:
		err = s.backend.Unlock(ctx)
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.WriteBackFailures.Inc()
		}
		s.logger.Warn("write-back failed", "key", o.key, "error", err)
	}
}

// Get serves the key from the mirror.
func (s *CachedStore) Get(key string) (string, bool, error) {
	v, ok := s.mirror.Get(key)
	return v, ok, nil
}

// Set updates the mirror and enqueues the remote write.
func (s *CachedStore) Set(key, value string) error {
	s.mirror.Set(key, value)
	if s.metrics != nil {
		s.metrics.MirrorEntries.Set(float64(s.mirror.Count()))
	}
	s.enqueue(op{kind: opSet, key: key, value: value})
	return nil
}

// Delete updates the mirror and enqueues the remote delete.
func (s *CachedStore) Delete(key string) error {
	s.mirror.Delete(key)
	if s.metrics != nil {
		s.metrics.MirrorEntries.Set(float64(s.mirror.Count()))
	}
	s.enqueue(op{kind: opDelete, key: key})
	return nil
}

// Keys lists mirror keys with the prefix.
func (s *CachedStore) Keys(prefix string) ([]string, error) {
	return s.mirror.KeysWithPrefix(prefix), nil
}

// TryLock flips the local flag and enqueues the remote lock call.
func (s *CachedStore) TryLock() (bool, error) {
	acquired := s.locked.CompareAndSwap(false, true)
	if acquired {
		s.enqueue(op{kind: opTryLock})
	}
	return acquired, nil
}

// IsLocked reports the local flag.
func (s *CachedStore) IsLocked() (bool, error) {
	return s.locked.Load(), nil
}

// Unlock clears the local flag and enqueues the remote unlock.
func (s *CachedStore) Unlock() error {
	if s.locked.CompareAndSwap(true, false) {
		s.enqueue(op{kind: opUnlock})
	}
	return nil
}

// Close stops the persister goroutine.
//
// Queued operations that have not started are dropped; there is no
// flush and no cancellation of the operation in flight.
func (s *CachedStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	close(s.wakeCh)
	<-s.doneCh

	if dropped > 0 {
		s.logger.Warn("async bridge closed with pending write-backs", "dropped", dropped)
	}
	return nil
}
