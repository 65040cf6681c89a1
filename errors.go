package matcache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Materializer's Load when no subject exists
// under the given pk. FetchMany omits the subject from its results; Update
// treats it as a deletion signal. It is never a batch-level failure.
var ErrNotFound = errors.New("matcache: subject not found")

// InvalidReferenceError marks a subject reference missing its type or pk.
// Such a reference has no stable cache key and is rejected per item; the
// rest of the batch proceeds.
type InvalidReferenceError struct {
	Type string
	PK   string
}

func (e *InvalidReferenceError) Error() string {
	switch {
	case e.Type == "" && e.PK == "":
		return "matcache: subject reference has neither type nor pk"
	case e.Type == "":
		return fmt.Sprintf("matcache: subject reference %q has no type", e.PK)
	default:
		return fmt.Sprintf("matcache: %s reference has no pk", e.Type)
	}
}

// UnknownVersionError marks a request for a version the cache was not
// declared with.
type UnknownVersionError struct {
	Version string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("matcache: version %q is not declared for this cache", e.Version)
}

// MissingSerializerError marks a fetch of a (subject type, version) pair
// that has no Serialize function: the pair cannot produce a cacheable
// representation.
type MissingSerializerError struct {
	Type    string
	Version string
}

func (e *MissingSerializerError) Error() string {
	return fmt.Sprintf("matcache: no serializer registered for %s/%s", e.Type, e.Version)
}

// MissingLoaderError marks a subject that had to be loaded but whose
// (subject type, version) pair has no Load function.
type MissingLoaderError struct {
	Type    string
	Version string
}

func (e *MissingLoaderError) Error() string {
	return fmt.Sprintf("matcache: no loader registered for %s/%s", e.Type, e.Version)
}

// FieldCollisionError marks a cached entry that carries both a tagged key
// and the plain key the tag decodes to. The entry violates the persisted
// format contract; the fetch fails for that one subject.
type FieldCollisionError struct {
	TaggedKey string
	Name      string
}

func (e *FieldCollisionError) Error() string {
	return fmt.Sprintf("matcache: tagged key %q decodes to %q which already exists in the entry",
		e.TaggedKey, e.Name)
}
