package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

const (
	keyCacheTTL        = 5 * time.Minute
	negativeCacheTTL   = 30 * time.Second
	maxCacheEntries    = 10000
	cacheCleanupPeriod = 60 * time.Second
)

// errCachedNotFound is returned for negative cache hits.
var errCachedNotFound = errors.New("api key not found (cached)")

type cachedKey struct {
	actor     string
	negative  bool
	fetchedAt time.Time
}

func (ck cachedKey) ttl() time.Duration {
	if ck.negative {
		return negativeCacheTTL
	}
	return keyCacheTTL
}

// hashKey returns a hex-encoded SHA-256 hash of the API key so raw keys
// are never stored in memory.
func hashKey(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// CachedKeyLookup wraps a KeyLookup with a bounded in-memory cache.
type CachedKeyLookup struct {
	inner KeyLookup
	mu    sync.RWMutex
	cache map[string]cachedKey
	now   func() time.Time
}

// NewCachedKeyLookup creates a caching wrapper around the given KeyLookup.
// The provided context controls the lifetime of the background eviction goroutine.
func NewCachedKeyLookup(ctx context.Context, inner KeyLookup) *CachedKeyLookup {
	c := &CachedKeyLookup{
		inner: inner,
		cache: make(map[string]cachedKey),
		now:   time.Now,
	}
	go c.evictLoop(ctx)
	return c
}

func (c *CachedKeyLookup) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.mu.Unlock()
		}
	}
}

// evictExpired removes expired entries. Caller must hold c.mu.
func (c *CachedKeyLookup) evictExpired() {
	now := c.now()
	for k, v := range c.cache {
		if now.Sub(v.fetchedAt) >= v.ttl() {
			delete(c.cache, k)
		}
	}
}

// LookupAPIKey returns a cached key name or delegates to the inner lookup.
// Failed lookups are negatively cached for 30s to keep guessing off the database.
func (c *CachedKeyLookup) LookupAPIKey(ctx context.Context, apiKey string) (string, error) {
	hk := hashKey(apiKey)

	c.mu.RLock()
	entry, ok := c.cache[hk]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) < entry.ttl() {
		if entry.negative {
			return "", errCachedNotFound
		}
		return entry.actor, nil
	}

	actor, err := c.inner.LookupAPIKey(ctx, apiKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= maxCacheEntries {
		c.evictExpired()
		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}
			delete(c.cache, k)
		}
	}

	if err != nil {
		c.cache[hk] = cachedKey{negative: true, fetchedAt: c.now()}
		return "", err
	}

	c.cache[hk] = cachedKey{actor: actor, fetchedAt: c.now()}

	return actor, nil
}
