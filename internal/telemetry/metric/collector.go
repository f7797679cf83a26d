package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Record type label values used by the per-type counters.
const (
	TypeConsensus  = "consensus"
	TypeAuthCert   = "authcert"
	TypeMicrodesc  = "microdesc"
	TypeRouterDesc = "routerdesc"
	TypeBridge     = "bridge"
	TypeProtocols  = "protocols"
)

// Collector holds the application metrics.
//
// All components share one Collector; components that receive a nil
// Collector simply skip instrumentation.
type Collector struct {
	// Directory cache
	RecordsStored  *prometheus.CounterVec
	RecordsExpired *prometheus.CounterVec
	SweepDuration  prometheus.Histogram

	// Async bridge
	MirrorEntries     prometheus.Gauge
	WriteBackFailures prometheus.Counter
	WriteBackQueue    prometheus.Gauge
}

// NewCollector creates the application metrics and registers them with
// the given registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		RecordsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veildir",
			Subsystem: "dircache",
			Name:      "records_stored_total",
			Help:      "Directory records written, by record type",
		}, []string{"type"}),

		RecordsExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veildir",
			Subsystem: "dircache",
			Name:      "records_expired_total",
			Help:      "Directory records removed by the expiration sweep, by record type",
		}, []string{"type"}),

		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veildir",
			Subsystem: "dircache",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of expiration sweeps",
			Buckets:   prometheus.DefBuckets,
		}),

		MirrorEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veildir",
			Subsystem: "bridge",
			Name:      "mirror_entries",
			Help:      "Entries held in the async-bridge in-memory mirror",
		}),

		WriteBackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veildir",
			Subsystem: "bridge",
			Name:      "write_back_failures_total",
			Help:      "Background persistence operations that failed",
		}),

		WriteBackQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veildir",
			Subsystem: "bridge",
			Name:      "write_back_queue_depth",
			Help:      "Pending background persistence operations",
		}),
	}

	registry.MustRegister(
		c.RecordsStored,
		c.RecordsExpired,
		c.SweepDuration,
		c.MirrorEntries,
		c.WriteBackFailures,
		c.WriteBackQueue,
	)

	return c
}

// CountStored increments the stored counter for a record type, if
// metrics are enabled.
func (c *Collector) CountStored(recordType string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RecordsStored.WithLabelValues(recordType).Add(float64(n))
}

// CountExpired increments the expired counter for a record type, if
// metrics are enabled.
func (c *Collector) CountExpired(recordType string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RecordsExpired.WithLabelValues(recordType).Add(float64(n))
}

// ObserveSweep records the duration of one expiration sweep.
func (c *Collector) ObserveSweep(seconds float64) {
	if c == nil {
		return
	}
	c.SweepDuration.Observe(seconds)
}
