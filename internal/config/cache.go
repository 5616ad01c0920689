package config

import "time"

// CacheConfig controls the Redis response cache applied to the public
// event listing routes. Ticket and scan routes must never be cached:
// a stale verdict or ticket status defeats the whole check-in flow,
// so the cache is opt-in per route rather than method-wide.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads cache settings from the environment with
// short-TTL defaults suited to event listings.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
