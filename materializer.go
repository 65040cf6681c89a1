package matcache

import "context"

// LoadFunc fetches the authoritative subject for pk. It returns ErrNotFound
// (possibly wrapped) when no such subject exists.
type LoadFunc func(ctx context.Context, pk string) (any, error)

// SerializeFunc converts a subject to its plain attribute mapping: string
// keys, JSON-representable values, with codec-encoded fields stored under
// tagged keys (see field.Registry.Encode). Returning a nil or empty mapping
// means "no representation"; such subjects are never cached.
type SerializeFunc func(subject any) (map[string]any, error)

// InvalidateFunc lists the cache entries that become stale when subject
// changes.
type InvalidateFunc func(subject any) ([]Instruction, error)

// Materializer bundles the three per-(subject type, version) operations.
// Any member may be nil; a pair whose three members are all nil is inert and
// skipped by Update.
type Materializer struct {
	Load       LoadFunc
	Serialize  SerializeFunc
	Invalidate InvalidateFunc
}

func (m Materializer) inert() bool {
	return m.Load == nil && m.Serialize == nil && m.Invalidate == nil
}

// Instruction is one invalidation produced by an InvalidateFunc: either a
// raw cache key deleted verbatim, or a dependent subject. Use RawKey or
// Dependent to construct them.
type Instruction struct {
	// Key, when non-empty, is an opaque cache key deleted as-is.
	Key string

	// Type and PK identify a dependent subject. Immediate additionally
	// deletes its entry for the version Update is running under; either
	// way the dependent is queued on the returned cascade list.
	Type      string
	PK        string
	Immediate bool
}

// RawKey returns an instruction deleting an opaque cache key verbatim.
func RawKey(key string) Instruction {
	return Instruction{Key: key}
}

// Dependent returns an instruction against a dependent subject. immediate
// entries are deleted synchronously under the running version; all
// dependents are returned to the caller for follow-on Update calls.
func Dependent(subjectType, pk string, immediate bool) Instruction {
	return Instruction{Type: subjectType, PK: pk, Immediate: immediate}
}

type registryKey struct {
	subjectType string
	version     string
}

// Registry holds the Materializer for each (subject type, version) pair.
// Populate it before constructing the cache; it is read-only afterwards and
// therefore safe for concurrent lookups without locking.
type Registry struct {
	m map[registryKey]Materializer
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[registryKey]Materializer)}
}

// Register installs m for (subjectType, version), replacing any previous
// registration.
func (r *Registry) Register(subjectType, version string, m Materializer) {
	r.m[registryKey{subjectType, version}] = m
}

// Lookup returns the materializer for (subjectType, version). ok is false
// when the pair was never registered.
func (r *Registry) Lookup(subjectType, version string) (Materializer, bool) {
	m, ok := r.m[registryKey{subjectType, version}]
	return m, ok
}
