// Package config defines the VeilDir configuration structure.
package config

import (
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyExpiry(&cfg.Expiry); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.Ephemeral {
		return nil
	}
	if cfg.CacheDir == "" {
		return errors.New("storage.cache_dir is required")
	}
	if cfg.StateDir == "" {
		return errors.New("storage.state_dir is required")
	}
	if cfg.CacheDir == cfg.StateDir {
		return errors.New("storage.cache_dir and storage.state_dir must differ")
	}

	for _, dir := range []string{cfg.CacheDir, cfg.StateDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return errors.New("cannot create storage directory: " + err.Error())
		}
	}

	if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold > 1 {
		return errors.New("storage.badger.gc_threshold must be in (0, 1]")
	}
	return nil
}

func verifyExpiry(cfg *ExpirySection) error {
	if cfg.Consensus < 0 || cfg.AuthCert < 0 || cfg.Microdesc < 0 || cfg.RouterDesc < 0 {
		return errors.New("expiry tolerances must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("log.level must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "", "json", "text", "console":
	default:
		return errors.New("log.format must be json or text")
	}
	return nil
}
