// Package config loads the storage engine's ambient configuration: the
// single environment variable the core contract defines (AIDB_CACHE_MB)
// plus room for future engine-level knobs, using a koanf-based loader
// rather than a bare os.Getenv call.
package config

import (
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// DefaultCacheMB is used whenever AIDB_CACHE_MB is absent or unparseable.
const DefaultCacheMB = 64

// Config holds the core's resolved runtime knobs.
type Config struct {
	// CacheMB is the doc cache capacity, in mebibytes.
	CacheMB int64
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.CacheMB <= 0 {
		c.CacheMB = DefaultCacheMB
	}
}

// Load reads AIDB_CACHE_MB from the environment via koanf's env provider,
// falling back to DefaultCacheMB when the variable is unset or not a
// positive decimal integer (so "0" also falls back).
func Load() *Config {
	k := koanf.New(".")

	// env.Provider filters to the AIDB_ prefix; the transformer strips it
	// and lowercases the remainder, so AIDB_CACHE_MB -> "cache_mb".
	_ = k.Load(env.Provider("AIDB_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "AIDB_"))
	}), nil)

	cfg := &Config{}
	if raw := k.Get("cache_mb"); raw != nil {
		if v, ok := asPositiveInt64(raw); ok {
			cfg.CacheMB = v
		}
	}
	cfg.ApplyDefaults()
	return cfg
}

// CacheBytes converts the configured MiB capacity to bytes.
func (c *Config) CacheBytes() int64 {
	return c.CacheMB * 1024 * 1024
}

// asPositiveInt64 accepts koanf's string-valued env entries and rejects
// anything that isn't a positive integer; a non-numeric or non-positive
// value is treated as a parsing failure and falls back to the default.
func asPositiveInt64(raw interface{}) (int64, bool) {
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	var v int64
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n++
		v = v*10 + int64(r-'0')
	}
	if n == 0 || v <= 0 {
		return 0, false
	}
	return v, true
}
