// Package command provides CLI command definitions for veildir.
package command

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/veildir/veildir-go/internal/cli/output"
	"github.com/veildir/veildir-go/internal/config"
	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/infra/buildinfo"
	"github.com/veildir/veildir-go/internal/infra/confloader"
	"github.com/veildir/veildir-go/internal/storage"
	"github.com/veildir/veildir-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "veildir",
		Usage:   "directory cache and client state management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StatusCommand(),
			SweepCommand(),
			StateCommand(),
			KeysCommand(),
			GetCommand(),
			DelCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			EnvVars: []string{"VEILDIR_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Directory document cache location",
		},
		&cli.StringFlag{
			Name:  "state-dir",
			Usage: "Client state location",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep everything in memory, never touch disk",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// loadConfig builds the effective configuration.
// Priority: flags > environment > config file > defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	if path := c.String("config"); path != "" {
		if err := loader.LoadFile(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loader.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	overrides := map[string]any{}
	if c.IsSet("cache-dir") {
		overrides["storage.cache_dir"] = c.String("cache-dir")
	}
	if c.IsSet("state-dir") {
		overrides["storage.state_dir"] = c.String("state-dir")
	}
	if c.IsSet("ephemeral") {
		overrides["storage.ephemeral"] = c.Bool("ephemeral")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
	}

	if err := loader.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger initializes the structured logger from the configuration.
func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// openBackend opens the configured storage backend.
// The returned close function is safe to call on a nil-resource path.
func openBackend(cfg *config.Config, log *slog.Logger) (storage.Backend, func() error, error) {
	if cfg.Storage.Ephemeral {
		return storage.NewMemBackend(), func() error { return nil }, nil
	}

	b, err := storage.NewBadgerBackend(cfg.Storage.KVConfig(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache backend: %w", err)
	}
	return b, b.Close, nil
}

// acquireWriteLock takes the backend's single-writer flag for a
// mutating command.
func acquireWriteLock(b storage.Backend) error {
	acquired, err := b.TryLock()
	if err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if !acquired {
		return domain.ErrLockConflict
	}
	return nil
}

// formatter returns the output formatter selected by the --output flag.
func formatter(c *cli.Context) output.Formatter {
	return output.NewFormatter(output.Format(c.String("output")))
}
