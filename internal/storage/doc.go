// Package storage provides the persistence layer for VeilDir.
//
// The layer is organized around a single flat key-value contract:
//
//   - Backend: the capability contract every storage medium implements
//     (string KV access plus an advisory single-writer lock)
//   - BadgerBackend: the default durable medium, built on Badger v3
//   - StateView / DirView: namespace views that split one backend into
//     the client-state and directory-cache keyspaces while sharing the
//     backend's one lock
//
// Typed record access lives in the subpackages:
//
//   - dircache: JSON-encoded directory documents with per-type expiration
//   - memory: the in-memory reference store used when no backend is given
//   - statemgr: client-state managers (filesystem, KV-backed, dispatch)
//   - bridge: adapts an asynchronous backend to the synchronous contract
package storage
