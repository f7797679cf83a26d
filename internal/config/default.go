// Package config defines the VeilDir configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultCacheDir = "/var/lib/veildir/cache"
	DefaultStateDir = "/var/lib/veildir/state"

	DefaultGCInterval       = 10 * time.Minute
	DefaultGCThreshold      = 0.5
	DefaultCacheSize        = 64 << 20  // 64MB
	DefaultValueLogFileSize = 256 << 20 // 256MB

	DefaultConsensusTolerance  = 48 * time.Hour
	DefaultAuthCertTolerance   = 48 * time.Hour
	DefaultMicrodescTolerance  = 7 * 24 * time.Hour
	DefaultRouterDescTolerance = 7 * 24 * time.Hour

	DefaultMetricsAddr = "127.0.0.1:9351"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageSection{
			CacheDir: DefaultCacheDir,
			StateDir: DefaultStateDir,
			Badger: BadgerSection{
				GCInterval:       DefaultGCInterval,
				GCThreshold:      DefaultGCThreshold,
				CacheSize:        DefaultCacheSize,
				ValueLogFileSize: DefaultValueLogFileSize,
				SyncWrites:       true,
			},
		},
		Expiry: ExpirySection{
			Consensus:  DefaultConsensusTolerance,
			AuthCert:   DefaultAuthCertTolerance,
			Microdesc:  DefaultMicrodescTolerance,
			RouterDesc: DefaultRouterDescTolerance,
		},
		Metrics: MetricsSection{
			Enabled: false,
			Addr:    DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
