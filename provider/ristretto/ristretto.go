// Package ristretto adapts dgraph-io/ristretto to the matcache provider
// port. Ristretto has no batched API, so the batched calls loop; entry cost
// is the payload length.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/matcache/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok := p.c.Get(k)
		if !ok {
			continue
		}
		b, _ := v.([]byte)
		if b == nil {
			// self-heal: drop unexpected entry shape
			p.c.Del(k)
			continue
		}
		out[k] = b
	}
	return out, nil
}

func (p *Provider) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	for k, v := range items {
		if ttl > 0 {
			p.c.SetWithTTL(k, v, int64(len(v)), ttl)
		} else {
			p.c.Set(k, v, int64(len(v)))
		}
	}
	return nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters (not part of the provider port).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
