// Package field converts attribute values that are not natively
// JSON-representable to and from a transportable form.
//
// A converted value is stored under a tagged key "name:code"; the code picks
// the Codec that restores the native value on the way out. Built-in codes:
//
//	date     - calendar date <-> [year, month, day]; zero date <-> null
//	datetime - instant <-> unix seconds (int) or "<sec>.<6-digit-micros>"
//	pk       - single foreign key <-> {type, name, pk}; decodes to a lazy Ref
//	pklist   - ordered foreign keys <-> {type, name, pks}; decodes to a lazy RefList
//
// Attribute names must not contain ":". Registries are populated before
// first use and read-only afterwards.
package field

import (
	"fmt"
	"strings"
)

// Codec converts one value class between its native and transport forms.
// Encode must produce a JSON-representable value; Decode must accept the
// value as it comes back from a JSON round trip.
type Codec interface {
	Encode(v any) (any, error)
	Decode(raw any) (any, error)
}

// CodecNotFoundError reports a tagged key whose type code has no registered
// codec. Silently dropping the field would corrupt the visible attribute
// set, so lookups always surface this.
type CodecNotFoundError struct {
	Code string
}

func (e *CodecNotFoundError) Error() string {
	return fmt.Sprintf("matcache: no field codec registered for type code %q", e.Code)
}

// DecodeError wraps a codec failure for one tagged key.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("matcache: decode field %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Registry maps type codes to codecs. New registries carry the built-in
// codecs; callers may add their own codes before handing the registry to
// the cache.
type Registry struct {
	codecs   map[string]Codec
	resolver Resolver
}

// NewRegistry returns a registry with the built-in codecs registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.MustRegister("date", dateCodec{})
	r.MustRegister("datetime", datetimeCodec{})
	r.MustRegister("pk", refCodec{r})
	r.MustRegister("pklist", refListCodec{r})
	return r
}

// Register adds a codec under code. Codes are case-sensitive and must not
// contain ":". Registering an existing code replaces it.
func (r *Registry) Register(code string, c Codec) error {
	if code == "" || strings.Contains(code, ":") {
		return fmt.Errorf("matcache: invalid field type code %q", code)
	}
	if c == nil {
		return fmt.Errorf("matcache: nil codec for type code %q", code)
	}
	r.codecs[code] = c
	return nil
}

// MustRegister is Register, panicking on error. Intended for package-level
// setup of known-good codes.
func (r *Registry) MustRegister(code string, c Codec) {
	if err := r.Register(code, c); err != nil {
		panic(err)
	}
}

// Bind attaches the resolver used by lazy reference handles produced on
// decode. The cache binds itself during construction; Bind must happen
// before any handle is fetched.
func (r *Registry) Bind(res Resolver) { r.resolver = res }

// Encode converts v with the codec for code and returns the tagged key and
// the transport value to store under it.
func (r *Registry) Encode(code, name string, v any) (string, any, error) {
	if strings.Contains(name, ":") {
		return "", nil, fmt.Errorf("matcache: field name %q must not contain ':'", name)
	}
	c, ok := r.codecs[code]
	if !ok {
		return "", nil, &CodecNotFoundError{Code: code}
	}
	out, err := c.Encode(v)
	if err != nil {
		return "", nil, fmt.Errorf("matcache: encode field %q: %w", name, err)
	}
	return name + ":" + code, out, nil
}

// Decode converts a transport value stored under taggedKey back to its
// native form and returns the plain attribute name.
func (r *Registry) Decode(taggedKey string, raw any) (string, any, error) {
	name, code, ok := strings.Cut(taggedKey, ":")
	if !ok {
		return "", nil, fmt.Errorf("matcache: key %q is not tagged", taggedKey)
	}
	c, found := r.codecs[code]
	if !found {
		return "", nil, &CodecNotFoundError{Code: code}
	}
	v, err := c.Decode(raw)
	if err != nil {
		return "", nil, &DecodeError{Key: taggedKey, Err: err}
	}
	return name, v, nil
}
