package githost

import (
	"time"

	"github.com/allegro/bigcache/v3"
)

// capabilityTTL bounds how long a positive capability check is trusted
// before the remote is consulted again.
const capabilityTTL = 2 * time.Minute

// CapabilityCache remembers positive write-capability checks. It is an
// explicit object owned by the Client rather than module-level state, so
// tests can construct isolated instances and callers can invalidate it.
// Only positive results are cached; failures always hit the remote again.
type CapabilityCache struct {
	cache *bigcache.BigCache
}

// NewCapabilityCache creates a cache whose entries expire after ttl.
func NewCapabilityCache(ttl time.Duration) *CapabilityCache {
	cache, _ := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	return &CapabilityCache{cache: cache}
}

// Valid reports whether a positive result is cached for the token digest,
// repo and branch combination.
func (c *CapabilityCache) Valid(tokenDigest, repo, branch string) bool {
	buf, err := c.cache.Get(cacheKey(tokenDigest, repo, branch))
	if err != nil {
		return false
	}
	return len(buf) > 0 && buf[0] == 1
}

// MarkValid records a positive capability result.
func (c *CapabilityCache) MarkValid(tokenDigest, repo, branch string) {
	_ = c.cache.Set(cacheKey(tokenDigest, repo, branch), []byte{1})
}

// Invalidate drops the entry for one token digest, repo and branch.
func (c *CapabilityCache) Invalidate(tokenDigest, repo, branch string) {
	_ = c.cache.Delete(cacheKey(tokenDigest, repo, branch))
}

// Reset drops every cached result.
func (c *CapabilityCache) Reset() {
	_ = c.cache.Reset()
}

func cacheKey(tokenDigest, repo, branch string) string {
	return tokenDigest + "\n" + repo + "\n" + branch
}
