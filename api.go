package matcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/matcache/field"
	pr "github.com/unkn0wn-root/matcache/provider"
)

// Cache is the read/write-through orchestration surface over a Provider, a
// materializer Registry and a field codec Registry.
type Cache interface {
	// Enabled reports whether a backing store is attached. A disabled
	// cache always loads and never persists.
	Enabled() bool
	Close(ctx context.Context) error

	// FetchMany resolves a batch of subject references under version
	// ("" = default) with one batched read and one batched write.
	// Results are keyed by subject identity; per-subject failures are
	// carried in FetchResult.Err. Subjects whose loader reports
	// ErrNotFound, or that serialize to nothing, are omitted.
	FetchMany(ctx context.Context, refs []SubjectRef, version string) (map[SubjectID]FetchResult, error)

	// Update re-serializes one subject per applicable version, writes or
	// deletes its entry when the representation changed, and returns the
	// dependents still needing follow-on Update calls.
	Update(ctx context.Context, req UpdateRequest) ([]Cascade, error)

	// DeleteAllVersions drops the subject's entry under every declared
	// version without touching dependents.
	DeleteAllVersions(ctx context.Context, subjectType, pk string) error
}

// Options tune the cache. Only Registry is required; a nil Provider yields
// a disabled (always-load) cache.
type Options struct {
	// Registry holds the per-(subject type, version) materializers.
	// Required; populate it fully before New.
	Registry *Registry

	// Provider is the backing store. nil disables caching: FetchMany
	// degrades to always-load and Update becomes a no-op.
	Provider pr.Provider

	// Namespace prefixes every derived key; "" => "mat".
	Namespace string

	// Versions declares the materialization styles this cache carries;
	// nil => ["default"].
	Versions []string

	// DefaultVersion is used when an operation names no version;
	// "" => "default". Must be a member of Versions.
	DefaultVersion string

	// Fields is the tagged-field codec registry; nil => field.NewRegistry()
	// (built-in codecs only). The cache binds itself as the registry's
	// resolver so decoded reference handles can re-fetch lazily.
	Fields *field.Registry

	// TTL is passed through to the provider on writes; 0 => no expiry
	// requested (eviction stays a backing-store policy).
	TTL time.Duration

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// New builds a Cache. It fails when Registry is absent or DefaultVersion is
// not among Versions.
func New(opts Options) (Cache, error) {
	return newCache(opts)
}
