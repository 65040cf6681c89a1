// Package sturdyc adapts viccon/sturdyc to the matcache provider port:
// a sharded in-process byte store with a client-global TTL. The per-call
// TTL is ignored; expiry follows Config.TTL.
package sturdyc

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"

	pr "github.com/unkn0wn-root/matcache/provider"
)

type Provider struct {
	c *sturdyc.Client[[]byte]
}

var _ pr.Provider = (*Provider)(nil)

// Config mirrors the sturdyc constructor parameters.
type Config struct {
	// Capacity is the maximum number of entries. Must be > 0.
	Capacity int
	// NumShards spreads entries over independent shards; 0 => 64.
	NumShards int
	// TTL is the client-global time-to-live. Must be > 0.
	TTL time.Duration
	// EvictionPercentage of entries removed when a shard is full; 0 => 10.
	EvictionPercentage int
}

func New(cfg Config) (*Provider, error) {
	if cfg.Capacity <= 0 {
		return nil, &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if cfg.TTL <= 0 {
		return nil, &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = 64
	}
	if cfg.EvictionPercentage <= 0 {
		cfg.EvictionPercentage = 10
	}
	client := sturdyc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)
	return &Provider{c: client}, nil
}

func (p *Provider) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := p.c.Get(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (p *Provider) SetMany(_ context.Context, items map[string][]byte, _ time.Duration) error {
	for k, v := range items {
		p.c.Set(k, v)
	}
	return nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error { return nil }

// ConfigError reports an invalid adapter configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "sturdyc provider: config error in field " + e.Field + ": " + e.Message
}
