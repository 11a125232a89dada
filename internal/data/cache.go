package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/model"
)

const defaultCacheTTL = time.Hour

type cacheEntry struct {
	bars      map[string][]model.Bar
	expiresAt time.Time
}

// BarCache is an in-memory TTL cache of provider responses.
//
// The process-wide instance returned by GetCache is only enabled when
// ENABLE_BAR_CACHE=true and API_ENV is not "production".
type BarCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

var (
	globalCache *BarCache
	cacheOnce   sync.Once
)

// GetCache returns the global cache, or nil when caching is disabled.
func GetCache() *BarCache {
	if os.Getenv("ENABLE_BAR_CACHE") != "true" {
		return nil
	}
	if os.Getenv("API_ENV") == "production" {
		return nil
	}
	cacheOnce.Do(func() {
		ttl := defaultCacheTTL
		if s := os.Getenv("BAR_CACHE_TTL"); s != "" {
			if parsed, err := time.ParseDuration(s); err == nil && parsed > 0 {
				ttl = parsed
			}
		}
		globalCache = NewBarCache(ttl)
		go globalCache.cleanup(5 * time.Minute)
	})
	return globalCache
}

func NewBarCache(ttl time.Duration) *BarCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &BarCache{
		store: make(map[string]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a copy of the cached bars so callers may mutate them freely.
func (c *BarCache) Get(key string) (map[string][]model.Bar, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return copyBars(entry.bars), true
}

func (c *BarCache) Set(key string, bars map[string][]model.Bar) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = cacheEntry{bars: copyBars(bars), expiresAt: c.now().Add(c.ttl)}
}

func (c *BarCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry)
}

func (c *BarCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *BarCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

func (c *BarCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		c.evictExpired()
	}
}

// GenerateCacheKey hashes the provider name and query into a fixed-size key.
// Symbol order does not affect the key.
func GenerateCacheKey(provider string, q Query) string {
	symbols := make([]string, len(q.Symbols))
	for i, s := range q.Symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	sort.Strings(symbols)
	keyStr := fmt.Sprintf("%s:%s:%s:%s:%s",
		provider,
		strings.Join(symbols, ","),
		q.Start.UTC().Format(time.RFC3339),
		q.End.UTC().Format(time.RFC3339),
		strings.ToLower(q.Interval),
	)
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

func copyBars(in map[string][]model.Bar) map[string][]model.Bar {
	out := make(map[string][]model.Bar, len(in))
	for sym, bars := range in {
		out[sym] = append([]model.Bar(nil), bars...)
	}
	return out
}

// CachedProvider serves repeated queries from a BarCache.
type CachedProvider struct {
	inner Provider
	cache *BarCache
	log   logrus.FieldLogger
}

// NewCachedProvider wraps p. A nil cache returns p unchanged.
func NewCachedProvider(p Provider, cache *BarCache, log logrus.FieldLogger) Provider {
	if cache == nil {
		return p
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedProvider{inner: p, cache: cache, log: log.WithField("provider", p.Name())}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) Bars(ctx context.Context, q Query) (map[string][]model.Bar, error) {
	key := GenerateCacheKey(c.inner.Name(), q)
	if bars, ok := c.cache.Get(key); ok {
		c.log.WithField("symbols", strings.Join(q.Symbols, ",")).Debug("bar cache hit")
		return bars, nil
	}
	bars, err := c.inner.Bars(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, bars)
	return bars, nil
}
