package field

import (
	"context"
	"fmt"
)

// Resolver fetches the decoded attribute mappings for subjects of one type.
// The cache orchestrator implements it; reference handles use it to stay
// lazy instead of loading related subjects eagerly on decode.
type Resolver interface {
	Resolve(ctx context.Context, subjectType string, pks []string) ([]map[string]any, error)
}

// Ref is a lazy handle on a single related subject. Decoding a "pk" field
// yields a *Ref; the related subject is only materialized on Fetch.
type Ref struct {
	// Type is the related subject's type name.
	Type string
	// Name is the collection name on the owning subject.
	Name string
	// PK is the related subject's primary key.
	PK string

	resolver Resolver
}

// Fetch materializes the referenced subject. ok is false when it no longer
// exists.
func (r *Ref) Fetch(ctx context.Context) (attrs map[string]any, ok bool, err error) {
	if r.resolver == nil {
		return nil, false, fmt.Errorf("matcache: ref %s/%s has no resolver bound", r.Type, r.PK)
	}
	all, err := r.resolver.Resolve(ctx, r.Type, []string{r.PK})
	if err != nil || len(all) == 0 {
		return nil, false, err
	}
	return all[0], true, nil
}

// RefList is a lazy handle on a named, ordered collection of related
// subjects. Decoding a "pklist" field yields a *RefList.
type RefList struct {
	Type string
	Name string
	PKs  []string

	resolver Resolver
}

func (l *RefList) Len() int { return len(l.PKs) }

// Fetch materializes the referenced subjects, in PK order. Subjects that no
// longer exist are skipped.
func (l *RefList) Fetch(ctx context.Context) ([]map[string]any, error) {
	if l.resolver == nil {
		return nil, fmt.Errorf("matcache: ref list %s.%s has no resolver bound", l.Type, l.Name)
	}
	if len(l.PKs) == 0 {
		return nil, nil
	}
	return l.resolver.Resolve(ctx, l.Type, l.PKs)
}

type refCodec struct {
	reg *Registry
}

func (c refCodec) Encode(v any) (any, error) {
	r, ok := v.(Ref)
	if !ok {
		if p, isPtr := v.(*Ref); isPtr {
			r, ok = *p, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("want field.Ref, got %T", v)
	}
	return map[string]any{"type": r.Type, "name": r.Name, "pk": r.PK}, nil
}

func (c refCodec) Decode(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("want {type, name, pk}, got %v", raw)
	}
	pk, err := asPK(m["pk"])
	if err != nil {
		return nil, err
	}
	return &Ref{
		Type:     asString(m["type"]),
		Name:     asString(m["name"]),
		PK:       pk,
		resolver: c.reg.resolver,
	}, nil
}

type refListCodec struct {
	reg *Registry
}

func (c refListCodec) Encode(v any) (any, error) {
	l, ok := v.(RefList)
	if !ok {
		if p, isPtr := v.(*RefList); isPtr {
			l, ok = *p, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("want field.RefList, got %T", v)
	}
	pks := make([]any, len(l.PKs))
	for i, pk := range l.PKs {
		pks[i] = pk
	}
	return map[string]any{"type": l.Type, "name": l.Name, "pks": pks}, nil
}

func (c refListCodec) Decode(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("want {type, name, pks}, got %v", raw)
	}
	rawPKs, ok := m["pks"].([]any)
	if !ok {
		return nil, fmt.Errorf("want pk array, got %v", m["pks"])
	}
	pks := make([]string, len(rawPKs))
	for i, p := range rawPKs {
		pk, err := asPK(p)
		if err != nil {
			return nil, err
		}
		pks[i] = pk
	}
	return &RefList{
		Type:     asString(m["type"]),
		Name:     asString(m["name"]),
		PKs:      pks,
		resolver: c.reg.resolver,
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asPK keeps primary keys as strings on the Go side while tolerating
// numeric keys written by other producers of the same entries.
func asPK(v any) (string, error) {
	switch pk := v.(type) {
	case string:
		return pk, nil
	default:
		n, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("unsupported pk value %v (%T)", v, v)
		}
		return fmt.Sprintf("%d", n), nil
	}
}
