// Package statemgr manages persistent client state.
//
// Client state (guard selection, retry schedules and similar
// caller-opaque documents) is stored as JSON values under string keys.
// Two managers implement the contract:
//
//   - FsStateMgr: one JSON file per key under a state directory, with
//     an exclusive lock file identifying the owning instance
//   - KVStateMgr: state layered over any storage.Backend view
//
// AnyStateMgr wraps either so callers hold one concrete type regardless
// of the medium.
//
// The lock discipline is single-writer: a manager that does not hold
// its lock serves reads but fails writes with domain.ErrReadOnly.
package statemgr
