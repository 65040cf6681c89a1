package matcache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Wrap with hooks/async for anything that may stall.
type Hooks interface {
	// An entry with corrupt persisted bytes was deleted on read and
	// treated as a miss.
	EntrySelfHealed(storageKey string)

	// A batched provider call failed and the operation degraded to
	// no-cache behavior. op is "getmany", "setmany" or "delete".
	ProviderDegraded(op string, keys int, err error)

	// An entry was written or deleted by Update because its serialized
	// form changed. deleted is true when the entry was removed.
	EntryInvalidated(storageKey string, deleted bool)

	// A non-recursive invalidation instruction was queued for the
	// caller-driven cascade.
	CascadeQueued(subjectType, pk, version string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) EntrySelfHealed(string)              {}
func (NopHooks) ProviderDegraded(string, int, error) {}
func (NopHooks) EntryInvalidated(string, bool)       {}
func (NopHooks) CascadeQueued(string, string, string) {}
