// Package store holds the string stores that back the weather cache.
//
// Stores are best-effort: TryGet reports a miss for any failure and TrySet
// reports false when the write did not happen. Neither ever returns an error,
// so correctness of callers must not depend on a value persisting.
package store

import "context"

// Store is a best-effort key/value store of strings.
type Store interface {
	TryGet(ctx context.Context, key string) (string, bool)
	TrySet(ctx context.Context, key, value string) bool
}

// Pinger is implemented by stores that depend on an external service.
// Used for health checks.
type Pinger interface {
	Ping() error
}
