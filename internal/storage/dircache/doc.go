// Package dircache implements the typed directory-document store.
//
// Directory documents (consensuses, authority certificates,
// microdescriptors, router descriptors, bridge descriptors and the
// protocol recommendation slot) are stored as compact JSON records over
// a flat storage.Backend. Every record type has a fixed key scheme under
// the "dir:" namespace and a natural time field that drives the
// expiration sweep.
//
// Two invariants matter everywhere in this package:
//
//   - Writes require the backend's single-writer lock. A mutation
//     without the lock fails with domain.ErrReadOnly; nothing is
//     written partially.
//   - A record that fails to decode is cache corruption. Corruption is
//     always surfaced as domain.ErrCacheCorrupted, never papered over
//     with defaults, and it aborts an expiration sweep.
package dircache
