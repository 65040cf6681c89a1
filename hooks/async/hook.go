// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/matcache"
//	"github.com/unkn0wn-root/matcache/hooks/async"
//	"github.com/unkn0wn-root/matcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:   10, // sample logs: ~every 10th self-heal
//	    InvalidateEvery: 1,  // log every invalidation
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := matcache.New(matcache.Options{
//	    Registry: registry,
//	    Provider: provider,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/matcache"
)

type Hooks struct {
	inner matcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ matcache.Hooks = (*Hooks)(nil)

func New(inner matcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) EntrySelfHealed(k string) { h.try(func() { h.inner.EntrySelfHealed(k) }) }
func (h *Hooks) ProviderDegraded(op string, n int, err error) {
	h.try(func() { h.inner.ProviderDegraded(op, n, err) })
}
func (h *Hooks) EntryInvalidated(k string, deleted bool) {
	h.try(func() { h.inner.EntryInvalidated(k, deleted) })
}
func (h *Hooks) CascadeQueued(t, pk, v string) {
	h.try(func() { h.inner.CascadeQueued(t, pk, v) })
}
