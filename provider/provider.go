// Package provider defines the backing-store abstraction used by matcache.
//
// Implementations MUST be byte-for-byte transparent: GetMany must return
// exactly the same []byte previously passed to SetMany for a key (no
// prepended metadata, no re-encoding). Any internal transform (e.g.
// compression) must be fully reversed.
//
// Implementations MUST be safe for concurrent use; matcache issues batched
// calls from many goroutines and relies on the store for all coherence and
// eviction policy.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal batched byte store. TTL semantics are the store's
// own: implementations without per-entry TTLs may ignore the argument, and
// ttl <= 0 means "no expiry requested".
type Provider interface {
	// GetMany returns the values present for keys; absent keys simply do
	// not appear in the result. A non-nil error means the whole batch
	// failed (matcache then degrades to no-cache behavior).
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany stores every entry in items, best-effort.
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	// Del removes a single key (best-effort; deleting an absent key is
	// not an error).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
