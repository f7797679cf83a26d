// Package shutdown provides graceful shutdown for VeilDir.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - Timeout-based forced shutdown
//   - Cleanup callback registration
//   - Shutdown coordination
//
// Hooks run in reverse registration order so dependents close before
// the resources they rely on: the async bridge before the store, the
// store before the backend.
package shutdown
