package matcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/matcache/field"
)

// recHooks records invalidation events for assertions.
type recHooks struct {
	NopHooks
	mu          sync.Mutex
	invalidated int
	deletes     int
}

func (h *recHooks) EntryInvalidated(_ string, deleted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated++
	if deleted {
		h.deletes++
	}
}

func (h *recHooks) counts() (invalidated, deletes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invalidated, h.deletes
}

// newVersionedCache declares "default" and "extended" materializations of
// the widget type, both serializer-bearing, sharing one loader and one
// invalidator.
func newVersionedCache(t *testing.T, mp *memProvider, hooks Hooks, inv InvalidateFunc) (Cache, *widgetStore) {
	t.Helper()
	store := &widgetStore{widgets: map[string]*widget{
		"42": {ID: "42", Name: "Bolt", Made: field.Date{Year: 2020, Month: time.January, Day: 1}},
	}}
	fields := field.NewRegistry()
	base := widgetSerializer(fields)
	extended := func(subject any) (map[string]any, error) {
		attrs, err := base(subject)
		if err != nil {
			return nil, err
		}
		attrs["extended"] = true
		return attrs, nil
	}

	reg := NewRegistry()
	reg.Register("widget", "default", Materializer{Load: store.load, Serialize: base, Invalidate: inv})
	reg.Register("widget", "extended", Materializer{Load: store.load, Serialize: extended, Invalidate: inv})

	opts := Options{
		Registry: reg,
		Fields:   fields,
		Versions: []string{"default", "extended"},
		Hooks:    hooks,
	}
	if mp != nil {
		opts.Provider = mp
	}
	cc, err := New(opts)
	require.NoError(t, err)
	return cc, store
}

func TestUpdateWritesChangedEntry(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc, store := newVersionedCache(t, mp, nil, nil)

	_, err := cc.FetchMany(ctx, []SubjectRef{{Type: "widget", PK: "42"}}, "")
	require.NoError(t, err)

	store.widgets["42"].Name = "Hex Bolt"
	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	require.Empty(t, cascades) // no invalidator registered

	res, err := cc.FetchMany(ctx, []SubjectRef{{Type: "widget", PK: "42"}}, "")
	require.NoError(t, err)
	got := res[SubjectID{Type: "widget", PK: "42"}]
	require.NoError(t, got.Err)
	assert.Equal(t, "Hex Bolt", got.Attrs["name"])
	assert.Nil(t, got.Subject) // served from cache after the update
}

func TestUpdateUnchangedWritesNothing(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	cc, _ := newVersionedCache(t, mp, hooks, nil)

	_, err := cc.FetchMany(ctx, []SubjectRef{{Type: "widget", PK: "42"}}, "")
	require.NoError(t, err)
	_, err = cc.FetchMany(ctx, []SubjectRef{{Type: "widget", PK: "42"}}, "extended")
	require.NoError(t, err)

	_, err = cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)

	invalidated, _ := hooks.counts()
	assert.Zero(t, invalidated, "identical serialization must not touch the store")
}

func TestUpdateOnlyUncachedIsNoop(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	dependents := func(any) ([]Instruction, error) {
		return []Instruction{Dependent("gadget", "7", false)}, nil
	}
	cc, _ := newVersionedCache(t, mp, nil, dependents)

	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42", UpdateOnly: true})
	require.NoError(t, err)
	assert.Empty(t, cascades)
	assert.False(t, mp.has(key("default", "widget", "42")))
	assert.False(t, mp.has(key("extended", "widget", "42")))
}

// emptyMissProvider answers absent keys with an empty value instead of
// omitting them, as some stores do.
type emptyMissProvider struct{ *memProvider }

func (p *emptyMissProvider) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out, err := p.memProvider.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = []byte{}
		}
	}
	return out, nil
}

func TestUpdateOnlyTreatsEmptyValueAsUncached(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	store := &widgetStore{widgets: map[string]*widget{"42": {ID: "42", Name: "Bolt"}}}
	fields := field.NewRegistry()
	reg := NewRegistry()
	reg.Register("widget", "default", Materializer{
		Load:      store.load,
		Serialize: widgetSerializer(fields),
	})
	cc, err := New(Options{
		Registry: reg,
		Provider: &emptyMissProvider{mp},
		Fields:   fields,
	})
	require.NoError(t, err)

	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42", UpdateOnly: true})
	require.NoError(t, err)
	assert.Empty(t, cascades)
	assert.False(t, mp.has(key("default", "widget", "42")), "a pure update signal must not warm the cache")
}

func TestUpdatePopulatesColdEntryAndCascades(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	dependents := func(any) ([]Instruction, error) {
		return []Instruction{Dependent("gadget", "7", false)}, nil
	}
	cc, _ := newVersionedCache(t, mp, nil, dependents)

	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	assert.True(t, mp.has(key("default", "widget", "42")))
	assert.True(t, mp.has(key("extended", "widget", "42")))
	assert.ElementsMatch(t, []Cascade{
		{Type: "gadget", PK: "7", Version: "default"},
		{Type: "gadget", PK: "7", Version: "extended"},
	}, cascades)
}

func TestUpdateDeletedSubjectClearsEveryVersion(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	dependents := func(any) ([]Instruction, error) {
		return []Instruction{Dependent("gadget", "7", false)}, nil
	}
	cc, store := newVersionedCache(t, mp, nil, dependents)

	_, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	require.True(t, mp.has(key("default", "widget", "42")))

	// Subject disappears from the authoritative store; no snapshot is
	// supplied, so there is nothing to compute dependents from.
	delete(store.widgets, "42")
	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	assert.Empty(t, cascades)
	assert.False(t, mp.has(key("default", "widget", "42")))
	assert.False(t, mp.has(key("extended", "widget", "42")))
}

func TestUpdateDeletedWithSnapshotDrivesInvalidator(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	dependents := func(any) ([]Instruction, error) {
		return []Instruction{Dependent("gadget", "7", false)}, nil
	}
	cc, store := newVersionedCache(t, mp, nil, dependents)

	_, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)

	snapshot := store.widgets["42"]
	delete(store.widgets, "42")
	cascades, err := cc.Update(ctx, UpdateRequest{
		Type: "widget", PK: "42", Subject: snapshot, Deleted: true,
	})
	require.NoError(t, err)
	assert.False(t, mp.has(key("default", "widget", "42")))
	assert.False(t, mp.has(key("extended", "widget", "42")))
	assert.ElementsMatch(t, []Cascade{
		{Type: "gadget", PK: "7", Version: "default"},
		{Type: "gadget", PK: "7", Version: "extended"},
	}, cascades)
}

func TestUpdateInstructionSemantics(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	inv := func(any) ([]Instruction, error) {
		return []Instruction{
			RawKey("app_widget_count"),
			Dependent("gadget", "7", true),
			Dependent("user", "9", false),
		}, nil
	}
	cc, store := newVersionedCache(t, mp, nil, inv)

	mp.put("app_widget_count", []byte(`17`))
	mp.put(key("default", "gadget", "7"), []byte(`{"id":"7"}`))
	mp.put(key("default", "user", "9"), []byte(`{"id":"9"}`))

	store.widgets["42"].Name = "Hex Bolt"
	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42", Version: "default"})
	require.NoError(t, err)

	assert.False(t, mp.has("app_widget_count"), "raw keys are deleted verbatim")
	assert.False(t, mp.has(key("default", "gadget", "7")), "immediate dependents are deleted under the running version")
	assert.True(t, mp.has(key("default", "user", "9")), "deferred dependents are never deleted immediately")
	assert.ElementsMatch(t, []Cascade{
		{Type: "gadget", PK: "7", Version: "default"},
		{Type: "user", PK: "9", Version: "default"},
	}, cascades, "all structured instructions propagate, tagged with the running version")
}

func TestUpdateWithoutSerializerIsConservative(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	store := &widgetStore{widgets: map[string]*widget{"42": {ID: "42"}}}
	reg := NewRegistry()
	reg.Register("widget", "default", Materializer{
		Load: store.load,
		Invalidate: func(any) ([]Instruction, error) {
			return []Instruction{Dependent("gadget", "7", false)}, nil
		},
	})
	cc, err := New(Options{Registry: reg, Provider: mp})
	require.NoError(t, err)

	// Staleness cannot be checked without a serializer: every update
	// propagates.
	for i := 0; i < 2; i++ {
		cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
		require.NoError(t, err)
		assert.Equal(t, []Cascade{{Type: "gadget", PK: "7", Version: "default"}}, cascades)
	}
}

func TestUpdateInertAndUnregisteredPairsSkipped(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	reg := NewRegistry()
	reg.Register("widget", "default", Materializer{}) // all three absent
	cc, err := New(Options{Registry: reg, Provider: mp})
	require.NoError(t, err)

	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	assert.Empty(t, cascades)

	cascades, err = cc.Update(ctx, UpdateRequest{Type: "never-registered", PK: "1"})
	require.NoError(t, err)
	assert.Empty(t, cascades)
}

func TestUpdateDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	cc, store := newVersionedCache(t, nil, nil, func(any) ([]Instruction, error) {
		return []Instruction{Dependent("gadget", "7", false)}, nil
	})

	cascades, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	assert.Empty(t, cascades)
	assert.Equal(t, 0, store.loadCount())
}

func TestUpdateSingleVersionScope(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc, store := newVersionedCache(t, mp, nil, nil)

	_, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)

	store.widgets["42"].Name = "Hex Bolt"
	_, err = cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42", Version: "extended"})
	require.NoError(t, err)

	// One version moved, the other kept its independent materialization.
	res, err := cc.FetchMany(ctx, []SubjectRef{{Type: "widget", PK: "42"}}, "extended")
	require.NoError(t, err)
	assert.Equal(t, "Hex Bolt", res[SubjectID{Type: "widget", PK: "42"}].Attrs["name"])

	res, err = cc.FetchMany(ctx, []SubjectRef{{Type: "widget", PK: "42"}}, "default")
	require.NoError(t, err)
	assert.Equal(t, "Bolt", res[SubjectID{Type: "widget", PK: "42"}].Attrs["name"])
}

func TestUpdateCallerDrivenCascade(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()

	// widget invalidates its gadget; the gadget invalidates nothing.
	store := &widgetStore{widgets: map[string]*widget{"42": {ID: "42", Name: "Bolt"}}}
	fields := field.NewRegistry()
	reg := NewRegistry()
	reg.Register("widget", "default", Materializer{
		Load:      store.load,
		Serialize: widgetSerializer(fields),
		Invalidate: func(any) ([]Instruction, error) {
			return []Instruction{Dependent("gadget", "7", false)}, nil
		},
	})
	gadgetLoads := 0
	reg.Register("gadget", "default", Materializer{
		Load: func(context.Context, string) (any, error) {
			gadgetLoads++
			return nil, ErrNotFound
		},
		Serialize: func(any) (map[string]any, error) { return nil, nil },
	})
	cc, err := New(Options{Registry: reg, Provider: mp, Fields: fields})
	require.NoError(t, err)

	// Drain the cascade the way an application layer would.
	queue, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		more, err := cc.Update(ctx, UpdateRequest{
			Type: next.Type, PK: next.PK, Version: next.Version, UpdateOnly: true,
		})
		require.NoError(t, err)
		queue = append(queue, more...)
	}
	assert.Equal(t, 1, gadgetLoads)
}

func TestDeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	cc, _ := newVersionedCache(t, mp, nil, nil)

	_, err := cc.Update(ctx, UpdateRequest{Type: "widget", PK: "42"})
	require.NoError(t, err)
	require.True(t, mp.has(key("default", "widget", "42")))
	require.True(t, mp.has(key("extended", "widget", "42")))

	require.NoError(t, cc.DeleteAllVersions(ctx, "widget", "42"))
	assert.False(t, mp.has(key("default", "widget", "42")))
	assert.False(t, mp.has(key("extended", "widget", "42")))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{
		Registry:       NewRegistry(),
		Versions:       []string{"a", "b"},
		DefaultVersion: "c",
	})
	require.Error(t, err)
}
