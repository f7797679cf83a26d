// Package memory provides in-memory storage for VeilDir.
//
// DirStore implements the typed directory-store contract over native
// maps keyed by each record's natural identity, with no string-key
// indirection and no JSON cost. It reproduces the same latest-selection,
// monotonic-listed and expiration semantics as the KV-backed store and
// is the default when no durable backend is supplied.
//
// StateMgr is the matching in-memory client-state manager.
package memory
