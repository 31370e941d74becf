// Package cache provides the content-addressed artifact store and the
// byte-oriented key/value stores that back shared query results.
//
// [ArtifactCache] is a flat directory of files named
// "cache.<sha1-hex>.<kind>". The hash folds in a version prefix, so a
// version bump invalidates every previous entry. At most one construction
// runs per key; concurrent callers for the same key share an [Artifact]
// future. Files not touched during a session can be reclaimed with
// [ArtifactCache.RemoveUnused].
//
// [Cache] is the interface for plain key/value stores: [NullCache] (no-op),
// [FileCache] (directory, usable across processes) and [RedisCache]
// (shared between machines).
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store.
type Cache interface {
	// Get returns the stored value. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}
