// Package bridge adapts an asynchronous storage medium to the
// synchronous Backend contract.
package bridge

import "context"

// AsyncBackend is the Backend capability contract for media whose every
// operation is asynchronous, such as an externally supplied store
// reached over IPC or a network.
//
// Semantics match storage.Backend exactly; only the signatures differ.
type AsyncBackend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	TryLock(ctx context.Context) (bool, error)
	IsLocked(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}
