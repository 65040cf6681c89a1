package matcache

// SubjectID identifies one authoritative record: results of FetchMany are
// keyed by it.
type SubjectID struct {
	Type string
	PK   string
}

// SubjectRef is one input to FetchMany. Subject, when non-nil, is an
// already-loaded handle and suppresses the loader on a miss.
type SubjectRef struct {
	Type    string
	PK      string
	Subject any
}

// ID returns the reference's identity.
func (r SubjectRef) ID() SubjectID { return SubjectID{Type: r.Type, PK: r.PK} }

// FetchResult is the outcome of FetchMany for one subject.
type FetchResult struct {
	// Attrs is the decoded attribute mapping. Tagged keys are resolved:
	// it never contains a colon-delimited key.
	Attrs map[string]any

	// Key is the derived backing-store key the entry lives under.
	Key string

	// Subject is the in-memory handle: the caller-supplied one, the
	// freshly loaded one on a miss, or nil on a cache hit.
	Subject any

	// Err carries this subject's failure. Subjects fail independently;
	// one bad entry never aborts the rest of the batch.
	Err error
}

// UpdateRequest describes one write-through pass for a subject.
type UpdateRequest struct {
	Type string
	PK   string

	// Subject, when non-nil, is the in-memory subject. When nil the
	// version's loader runs; the loader answering ErrNotFound is treated
	// as a deletion.
	Subject any

	// Deleted marks the subject as removed. Subject, if also set, is the
	// pre-delete snapshot and still drives the invalidator; without a
	// snapshot dependents cannot be computed and only the entry deletes
	// happen.
	Deleted bool

	// Version restricts the pass to one declared version. Empty means
	// every declared version.
	Version string

	// UpdateOnly suppresses populating entries that are not currently
	// cached: a pure update signal never warms the cache.
	UpdateOnly bool
}

// Cascade is one deferred invalidation returned by Update. The caller
// re-invokes Update for each (batched or async as it sees fit); the core
// never recurses, which bounds depth on cyclic dependency graphs.
type Cascade struct {
	Type    string
	PK      string
	Version string
}
