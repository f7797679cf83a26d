// Package config defines the VeilDir configuration structure.
package config

import (
	"time"

	"github.com/veildir/veildir-go/internal/storage"
	"github.com/veildir/veildir-go/internal/storage/dircache"
)

// Config is the root configuration for veildir.
type Config struct {
	Storage StorageSection `koanf:"storage"`
	Expiry  ExpirySection  `koanf:"expiry"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// StorageSection configures where and how documents are persisted.
type StorageSection struct {
	// CacheDir holds the directory document store. Everything in it can
	// be re-fetched from the network and is safe to delete.
	CacheDir string `koanf:"cache_dir"`

	// StateDir holds client state (guards, persisted runtime state).
	// Unlike the cache, its contents are not reconstructible.
	StateDir string `koanf:"state_dir"`

	// Ephemeral keeps everything in memory and never touches disk.
	Ephemeral bool `koanf:"ephemeral"`

	Badger BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the embedded Badger store.
type BadgerSection struct {
	GCInterval       time.Duration `koanf:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold"`
	CacheSize        int64         `koanf:"cache_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	SyncWrites       bool          `koanf:"sync_writes"`
}

// ExpirySection sets the per-type tolerance added to each document's
// natural lifetime before the sweeper removes it.
type ExpirySection struct {
	Consensus  time.Duration `koanf:"consensus"`
	AuthCert   time.Duration `koanf:"authcert"`
	Microdesc  time.Duration `koanf:"microdesc"`
	RouterDesc time.Duration `koanf:"routerdesc"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// KVConfig translates the storage section into the backend configuration.
func (s StorageSection) KVConfig() storage.KVConfig {
	return storage.KVConfig{
		Dir: s.CacheDir,
		Badger: storage.BadgerConfig{
			GCInterval:       s.Badger.GCInterval.String(),
			GCThreshold:      s.Badger.GCThreshold,
			CacheSize:        s.Badger.CacheSize,
			ValueLogFileSize: s.Badger.ValueLogFileSize,
			SyncWrites:       s.Badger.SyncWrites,
		},
	}
}

// ExpirationConfig translates the expiry section into sweep tolerances.
func (e ExpirySection) ExpirationConfig() dircache.ExpirationConfig {
	return dircache.ExpirationConfig{
		Consensus:  e.Consensus,
		AuthCert:   e.AuthCert,
		Microdesc:  e.Microdesc,
		RouterDesc: e.RouterDesc,
	}
}
