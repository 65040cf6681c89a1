package matcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unkn0wn-root/matcache/field"
	"github.com/unkn0wn-root/matcache/internal/keys"
	"github.com/unkn0wn-root/matcache/internal/wire"
	pr "github.com/unkn0wn-root/matcache/provider"
)

const defaultVersionName = "default"

type cache struct {
	ns       string
	provider pr.Provider
	registry *Registry
	fields   *field.Registry
	versions []string
	defaultV string
	ttl      time.Duration
	log      Logger
	hooks    Hooks
}

var _ Cache = (*cache)(nil)
var _ field.Resolver = (*cache)(nil)

func newCache(opts Options) (*cache, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("matcache: materializer registry is required")
	}

	c := &cache{
		provider: opts.Provider,
		registry: opts.Registry,
	}

	// defaults
	c.ns = coalesce(opts.Namespace, "mat")
	c.defaultV = coalesce(opts.DefaultVersion, defaultVersionName)
	c.ttl = opts.TTL
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	c.versions = opts.Versions
	if len(c.versions) == 0 {
		c.versions = []string{c.defaultV}
	}
	if !c.hasVersion(c.defaultV) {
		return nil, fmt.Errorf("matcache: default version %q is not in declared versions %v",
			c.defaultV, c.versions)
	}

	if opts.Fields != nil {
		c.fields = opts.Fields
	} else {
		c.fields = field.NewRegistry()
	}
	// reference handles decoded from entries re-fetch through this cache
	c.fields.Bind(c)

	return c, nil
}

func (c *cache) Enabled() bool { return c.provider != nil }

func (c *cache) Close(ctx context.Context) error {
	if c.provider != nil {
		return c.provider.Close(ctx)
	}
	return nil
}

func (c *cache) hasVersion(v string) bool {
	for _, have := range c.versions {
		if have == v {
			return true
		}
	}
	return false
}

func (c *cache) keyFor(version, subjectType, pk string) string {
	return keys.For(c.ns, version, subjectType, pk)
}

func (c *cache) FetchMany(ctx context.Context, refs []SubjectRef, version string) (map[SubjectID]FetchResult, error) {
	version = coalesce(version, c.defaultV)
	if !c.hasVersion(version) {
		return nil, &UnknownVersionError{Version: version}
	}

	results := make(map[SubjectID]FetchResult, len(refs))

	// Derive keys, rejecting unkeyable references per item and
	// deduplicating the rest so duplicate inputs cost one lookup.
	byKey := make(map[string]SubjectRef, len(refs))
	storageKeys := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Type == "" || ref.PK == "" {
			results[ref.ID()] = FetchResult{
				Subject: ref.Subject,
				Err:     &InvalidReferenceError{Type: ref.Type, PK: ref.PK},
			}
			continue
		}
		k := c.keyFor(version, ref.Type, ref.PK)
		if _, dup := byKey[k]; dup {
			continue
		}
		byKey[k] = ref
		storageKeys = append(storageKeys, k)
	}

	// One batched read. A failing store degrades to all-miss instead of
	// failing the call: the cache is an optimization, not a dependency.
	cached := map[string][]byte{}
	if c.provider != nil && len(storageKeys) > 0 {
		vals, err := c.provider.GetMany(ctx, storageKeys)
		if err != nil {
			c.hooks.ProviderDegraded("getmany", len(storageKeys), err)
			c.log.Warn("batched read failed; loading everything", Fields{"keys": len(storageKeys), "err": err})
		} else {
			cached = vals
		}
	}

	toSet := make(map[string][]byte)
	for k, ref := range byKey {
		res, include := c.fetchOne(ctx, version, ref, k, cached[k], toSet)
		if include {
			results[ref.ID()] = res
		}
	}

	// One batched write for everything materialized on this call.
	// Best-effort: a failed write just repeats the miss path next time.
	if c.provider != nil && len(toSet) > 0 {
		if err := c.provider.SetMany(ctx, toSet, c.ttl); err != nil {
			c.hooks.ProviderDegraded("setmany", len(toSet), err)
			c.log.Warn("batched write failed; entries stay cold", Fields{"keys": len(toSet), "err": err})
		}
	}

	return results, nil
}

// fetchOne resolves a single deduplicated reference. include is false when
// the subject has no representation (not found, or serialized to nothing).
func (c *cache) fetchOne(ctx context.Context, version string, ref SubjectRef, storageKey string, raw []byte, toSet map[string][]byte) (FetchResult, bool) {
	fail := func(err error) (FetchResult, bool) {
		return FetchResult{Key: storageKey, Subject: ref.Subject, Err: err}, true
	}

	mat, _ := c.registry.Lookup(ref.Type, version)
	if mat.Serialize == nil {
		return fail(&MissingSerializerError{Type: ref.Type, Version: version})
	}

	var attrs map[string]any
	if len(raw) > 0 {
		m, err := wire.Decode(raw)
		if err != nil {
			// corrupt persisted bytes: drop and rebuild
			if c.provider != nil {
				_ = c.provider.Del(ctx, storageKey)
			}
			c.hooks.EntrySelfHealed(storageKey)
		} else {
			attrs = m
		}
	}

	subject := ref.Subject
	var encoded []byte
	if len(attrs) == 0 {
		if subject == nil {
			if mat.Load == nil {
				return fail(&MissingLoaderError{Type: ref.Type, Version: version})
			}
			s, err := mat.Load(ctx, ref.PK)
			if errors.Is(err, ErrNotFound) {
				return FetchResult{}, false
			}
			if err != nil {
				return fail(err)
			}
			subject = s
		}
		m, err := mat.Serialize(subject)
		if err != nil {
			return fail(err)
		}
		if len(m) == 0 {
			// "no representation" is never cached
			return FetchResult{}, false
		}
		attrs = m

		// capture the persisted (still tagged) form before decoding
		// mutates attrs in place
		b, err := wire.Encode(attrs)
		if err != nil {
			return fail(err)
		}
		encoded = b
	}

	if err := c.decodeTagged(attrs); err != nil {
		return fail(err)
	}
	// stage only entries that proved decodable; persisting one that fails
	// decode would poison every subsequent fetch of this subject
	if encoded != nil {
		toSet[storageKey] = encoded
	}
	return FetchResult{Attrs: attrs, Key: storageKey, Subject: subject}, true
}

// decodeTagged resolves every "name:code" key in place. A decoded mapping
// never contains a colon key; a plain key already occupying a tag's target
// name is a contract violation.
func (c *cache) decodeTagged(attrs map[string]any) error {
	var tagged []string
	for k := range attrs {
		if strings.Contains(k, ":") {
			tagged = append(tagged, k)
		}
	}
	for _, k := range tagged {
		name, v, err := c.fields.Decode(k, attrs[k])
		if err != nil {
			return err
		}
		if _, exists := attrs[name]; exists {
			return &FieldCollisionError{TaggedKey: k, Name: name}
		}
		delete(attrs, k)
		attrs[name] = v
	}
	return nil
}

func (c *cache) Update(ctx context.Context, req UpdateRequest) ([]Cascade, error) {
	if req.Type == "" || req.PK == "" {
		return nil, &InvalidReferenceError{Type: req.Type, PK: req.PK}
	}
	versions := c.versions
	if req.Version != "" {
		if !c.hasVersion(req.Version) {
			return nil, &UnknownVersionError{Version: req.Version}
		}
		versions = []string{req.Version}
	}

	subject := req.Subject
	deleted := req.Deleted

	var cascades []Cascade
	for _, version := range versions {
		mat, registered := c.registry.Lookup(req.Type, version)
		if !registered || mat.inert() {
			continue // inert version for this subject type
		}
		if c.provider == nil {
			continue // cache-optional mode: nothing to keep coherent
		}

		// lazy single load, shared across versions
		if subject == nil && !deleted && mat.Load != nil {
			s, err := mat.Load(ctx, req.PK)
			switch {
			case errors.Is(err, ErrNotFound):
				deleted = true
			case err != nil:
				return cascades, err
			default:
				subject = s
			}
		}

		invalidate := true
		if mat.Serialize != nil {
			storageKey := c.keyFor(version, req.Type, req.PK)
			currentRaw := c.readOne(ctx, storageKey)
			var current map[string]any
			if len(currentRaw) > 0 {
				if m, err := wire.Decode(currentRaw); err == nil {
					current = m
				}
			}

			var next map[string]any
			switch {
			case req.UpdateOnly && len(currentRaw) == 0:
				// pure update signal: never populate a cold entry
			case deleted:
				// a removed subject serializes to nothing
			default:
				m, err := mat.Serialize(subject)
				if err != nil {
					return cascades, err
				}
				next = m
			}

			invalidate = !wire.Equal(current, next) || deleted
			if invalidate {
				if deleted || len(next) == 0 {
					if err := c.provider.Del(ctx, storageKey); err != nil {
						c.hooks.ProviderDegraded("delete", 1, err)
					}
					c.hooks.EntryInvalidated(storageKey, true)
				} else {
					b, err := wire.Encode(next)
					if err != nil {
						return cascades, err
					}
					if err := c.provider.SetMany(ctx, map[string][]byte{storageKey: b}, c.ttl); err != nil {
						c.hooks.ProviderDegraded("setmany", 1, err)
					}
					c.hooks.EntryInvalidated(storageKey, false)
				}
			}
		}
		// without a serializer staleness cannot be verified, so the
		// conservative default above (invalidate=true) stands

		// Dependents can only be computed from a live subject (or a
		// pre-delete snapshot supplied by the caller).
		if !invalidate || subject == nil || mat.Invalidate == nil {
			continue
		}
		instrs, err := mat.Invalidate(subject)
		if err != nil {
			return cascades, err
		}
		for _, in := range instrs {
			if in.Key != "" {
				if err := c.provider.Del(ctx, in.Key); err != nil {
					c.hooks.ProviderDegraded("delete", 1, err)
				}
				continue
			}
			if in.Immediate {
				k := c.keyFor(version, in.Type, in.PK)
				if err := c.provider.Del(ctx, k); err != nil {
					c.hooks.ProviderDegraded("delete", 1, err)
				}
			}
			// immediate or not, the dependent still propagates across
			// its own versions through a follow-on Update
			cascades = append(cascades, Cascade{Type: in.Type, PK: in.PK, Version: version})
			c.hooks.CascadeQueued(in.Type, in.PK, version)
		}
	}
	return cascades, nil
}

func (c *cache) DeleteAllVersions(ctx context.Context, subjectType, pk string) error {
	if c.provider == nil {
		return nil
	}
	var errs []error
	for _, version := range c.versions {
		if err := c.provider.Del(ctx, c.keyFor(version, subjectType, pk)); err != nil {
			c.hooks.ProviderDegraded("delete", 1, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// readOne fetches a single entry through the batched port. A failing store
// reads as a miss.
func (c *cache) readOne(ctx context.Context, storageKey string) []byte {
	vals, err := c.provider.GetMany(ctx, []string{storageKey})
	if err != nil {
		c.hooks.ProviderDegraded("getmany", 1, err)
		return nil
	}
	return vals[storageKey]
}

// Resolve implements field.Resolver: decoded reference handles re-fetch
// related subjects through the cache under the default version, preserving
// pk order and skipping subjects that no longer exist.
func (c *cache) Resolve(ctx context.Context, subjectType string, pks []string) ([]map[string]any, error) {
	refs := make([]SubjectRef, len(pks))
	for i, pk := range pks {
		refs[i] = SubjectRef{Type: subjectType, PK: pk}
	}
	results, err := c.FetchMany(ctx, refs, "")
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(pks))
	for _, pk := range pks {
		res, ok := results[SubjectID{Type: subjectType, PK: pk}]
		if !ok {
			continue
		}
		if res.Err != nil {
			return nil, res.Err
		}
		out = append(out, res.Attrs)
	}
	return out, nil
}
