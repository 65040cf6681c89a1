// Package config loads matcache settings from YAML and builds the matching
// provider. It covers the deploy-time knobs (namespace, versions, TTL,
// backing store); registries and codecs stay code-level concerns.
package config

import (
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/matcache"
	pr "github.com/unkn0wn-root/matcache/provider"
	"github.com/unkn0wn-root/matcache/provider/bigcache"
	"github.com/unkn0wn-root/matcache/provider/redis"
	"github.com/unkn0wn-root/matcache/provider/ristretto"
	"github.com/unkn0wn-root/matcache/provider/sturdyc"
)

// Duration parses YAML scalars like "10m" or "1h30m" (or a bare integer,
// read as nanoseconds) into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration value")
	}
	*d = Duration(n)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	// Namespace prefixes every cache key; empty uses the library default.
	Namespace string `yaml:"namespace"`

	// Versions declares the materialization styles; empty means just the
	// default version.
	Versions []string `yaml:"versions"`

	// DefaultVersion must be a member of Versions when both are set.
	DefaultVersion string `yaml:"default_version"`

	// Disabled turns the cache into an always-load pass-through.
	Disabled bool `yaml:"disabled"`

	// TTL is requested on every write; zero leaves expiry to the store.
	TTL Duration `yaml:"ttl"`

	Provider ProviderConfig `yaml:"provider"`
}

type ProviderConfig struct {
	// Kind selects the backing store: redis, bigcache, ristretto or
	// sturdyc. Required unless the cache is disabled.
	Kind string `yaml:"kind"`

	Redis     RedisConfig     `yaml:"redis"`
	BigCache  BigCacheConfig  `yaml:"bigcache"`
	Ristretto RistrettoConfig `yaml:"ristretto"`
	Sturdyc   SturdycConfig   `yaml:"sturdyc"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BigCacheConfig struct {
	LifeWindow         Duration `yaml:"life_window"`
	CleanWindow        Duration `yaml:"clean_window"`
	MaxEntriesInWindow int      `yaml:"max_entries_in_window"`
	MaxEntrySize       int      `yaml:"max_entry_size"`
	HardMaxCacheSizeMB int      `yaml:"hard_max_cache_size_mb"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
	Metrics     bool  `yaml:"metrics"`
}

type SturdycConfig struct {
	Capacity           int      `yaml:"capacity"`
	NumShards          int      `yaml:"num_shards"`
	TTL                Duration `yaml:"ttl"`
	EvictionPercentage int      `yaml:"eviction_percentage"`
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DefaultVersion != "" && len(c.Versions) > 0 {
		found := false
		for _, v := range c.Versions {
			if v == c.DefaultVersion {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("config: default_version %q is not in versions %v",
				c.DefaultVersion, c.Versions)
		}
	}
	if c.TTL < 0 {
		return fmt.Errorf("config: ttl must not be negative")
	}
	if !c.Disabled {
		switch c.Provider.Kind {
		case "redis", "bigcache", "ristretto", "sturdyc":
		case "":
			return fmt.Errorf("config: provider.kind is required unless disabled")
		default:
			return fmt.Errorf("config: unknown provider kind %q", c.Provider.Kind)
		}
	}
	return nil
}

// BuildProvider constructs the configured backing store. A disabled config
// yields a nil provider, which matcache treats as always-load mode.
func (c Config) BuildProvider() (pr.Provider, error) {
	if c.Disabled {
		return nil, nil
	}
	switch c.Provider.Kind {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     c.Provider.Redis.Addr,
			Password: c.Provider.Redis.Password,
			DB:       c.Provider.Redis.DB,
		})
		return redis.New(redis.Config{Client: client, CloseClient: true})
	case "bigcache":
		bc := c.Provider.BigCache
		return bigcache.New(bigcache.Config{
			LifeWindow:         bc.LifeWindow.Std(),
			CleanWindow:        bc.CleanWindow.Std(),
			MaxEntriesInWindow: bc.MaxEntriesInWindow,
			MaxEntrySize:       bc.MaxEntrySize,
			HardMaxCacheSizeMB: bc.HardMaxCacheSizeMB,
		})
	case "ristretto":
		rc := c.Provider.Ristretto
		return ristretto.New(ristretto.Config{
			NumCounters: rc.NumCounters,
			MaxCost:     rc.MaxCost,
			BufferItems: rc.BufferItems,
			Metrics:     rc.Metrics,
		})
	case "sturdyc":
		sc := c.Provider.Sturdyc
		return sturdyc.New(sturdyc.Config{
			Capacity:           sc.Capacity,
			NumShards:          sc.NumShards,
			TTL:                sc.TTL.Std(),
			EvictionPercentage: sc.EvictionPercentage,
		})
	default:
		return nil, fmt.Errorf("config: unknown provider kind %q", c.Provider.Kind)
	}
}

// Options maps the config onto matcache.Options. The caller still supplies
// the registries and the provider (see BuildProvider).
func (c Config) Options(registry *matcache.Registry, provider pr.Provider) matcache.Options {
	return matcache.Options{
		Registry:       registry,
		Provider:       provider,
		Namespace:      c.Namespace,
		Versions:       c.Versions,
		DefaultVersion: c.DefaultVersion,
		TTL:            c.TTL.Std(),
	}
}
