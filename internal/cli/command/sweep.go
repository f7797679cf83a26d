// Package command provides CLI command definitions for veildir.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/veildir/veildir-go/internal/config"
	"github.com/veildir/veildir-go/internal/infra/confloader"
	"github.com/veildir/veildir-go/internal/infra/shutdown"
	"github.com/veildir/veildir-go/internal/storage"
	"github.com/veildir/veildir-go/internal/storage/dircache"
	"github.com/veildir/veildir-go/internal/telemetry/logger"
	"github.com/veildir/veildir-go/internal/telemetry/metric"
)

// SweepCommand removes expired directory documents.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove expired directory documents from the cache",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Run continuously, sweeping at this interval (0 = sweep once and exit)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Prometheus endpoint address (continuous mode only)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("metrics-addr") {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Addr = c.String("metrics-addr")
			}
			log := newLogger(cfg)

			backend, closeFn, err := openBackend(cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := acquireWriteLock(backend); err != nil {
				return err
			}
			defer backend.Unlock()

			registry := prometheus.NewRegistry()
			collector := metric.NewCollector(registry)
			if b, ok := backend.(*storage.BadgerBackend); ok {
				b.RegisterMetrics(registry)
			}

			store := dircache.NewKVStore(storage.DirView(backend), log,
				dircache.WithMetrics(collector))
			sw := newSweeper(store, log)
			sw.setExpiry(cfg.Expiry.ExpirationConfig())

			interval := c.Duration("interval")
			if interval <= 0 {
				return sweepOnce(c, sw)
			}

			// In daemon mode a config file is live: editing it adjusts
			// the log level and expiry tolerances without a restart.
			var watcher *confloader.Watcher
			if path := c.String("config"); path != "" {
				watcher, err = watchConfig(path, log, sw)
				if err != nil {
					return err
				}
			}

			var metricsAddr string
			if cfg.Metrics.Enabled {
				metricsAddr = cfg.Metrics.Addr
			}
			return sweepLoop(sw, interval, registry, metricsAddr, watcher, log)
		},
	}
}

// sweeper runs expiry passes with tolerances that a config reload may
// swap out between passes.
type sweeper struct {
	store dircache.Store
	log   *slog.Logger
	exp   atomic.Pointer[dircache.ExpirationConfig]
}

func newSweeper(store dircache.Store, log *slog.Logger) *sweeper {
	return &sweeper{store: store, log: log}
}

func (s *sweeper) setExpiry(exp dircache.ExpirationConfig) {
	s.exp.Store(&exp)
}

func (s *sweeper) run() (int, error) {
	return s.store.ExpireAll(*s.exp.Load(), time.Now())
}

func sweepOnce(c *cli.Context, sw *sweeper) error {
	removed, err := sw.run()
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	return formatter(c).Format(c.App.Writer, map[string]any{"removed": removed})
}

// reloadConfig rebuilds the configuration from the file and the
// environment. Flag overrides do not apply on reload.
func reloadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// watchConfig applies the runtime-safe settings of a changed config
// file: the log level and the sweeper's expiry tolerances. A reload
// that fails to load or verify keeps the current settings.
func watchConfig(path string, log *slog.Logger, sw *sweeper) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := reloadConfig(path)
		if err != nil {
			log.Warn("config reload failed, keeping current settings",
				"path", path, "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		sw.setExpiry(cfg.Expiry.ExpirationConfig())
		log.Info("configuration reloaded", "path", path, "log_level", cfg.Log.Level)
	})

	w.StartAsync()
	return w, nil
}

// sweepLoop runs periodic sweeps until SIGINT/SIGTERM. When metricsAddr
// is non-empty it also serves the Prometheus registry over HTTP.
func sweepLoop(sw *sweeper, interval time.Duration, registry *prometheus.Registry,
	metricsAddr string, watcher *confloader.Watcher, log *slog.Logger) error {

	var metricsServer *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			log.Info("metrics endpoint listening", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics endpoint error", "error", err)
			}
		}()
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runSweep := func() {
			removed, err := sw.run()
			if err != nil {
				log.Error("sweep failed", "error", err)
				return
			}
			log.Info("sweep completed", "removed", removed)
		}

		runSweep()
		for {
			select {
			case <-ticker.C:
				runSweep()
			case <-stopCh:
				return
			}
		}
	}()

	handler := shutdown.NewHandler(10 * time.Second)
	handler.OnShutdown(func(ctx context.Context) error {
		if watcher != nil {
			watcher.Stop()
		}
		close(stopCh)
		<-doneCh
		if metricsServer != nil {
			return metricsServer.Shutdown(ctx)
		}
		return nil
	})

	log.Info("sweeper started", "interval", interval)
	return handler.Wait()
}
