// Package metric provides Prometheus metrics for VeilDir.
//
// It exposes metrics for cache record counts, expiration sweeps,
// the async-bridge mirror, and backend write-back health.
package metric
