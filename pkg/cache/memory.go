package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/quill/core"
)

// Ensure InMemoryCache implements core.CacheWithStats
var _ core.CacheWithStats = (*InMemoryCache)(nil)

// InMemoryCache implements an in-memory session cache keyed by token hash.
//
// An entry lives until the earlier of its cache TTL and the session's own
// expiry. Only session rows are cached; account and post data never are.
//
// Delete leaves a tombstone for one TTL. A Set for a tombstoned hash is
// dropped, so a read that raced a sign-out cannot put the session back.
type InMemoryCache struct {
	cache      map[string]*cachedRecord
	tombstones map[string]time.Time
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

type cachedRecord struct {
	session   *core.Session
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache(c core.CacheConfig) *InMemoryCache {
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxSize == 0 {
		c.MaxSize = 500
	}

	return &InMemoryCache{
		cache:      make(map[string]*cachedRecord),
		tombstones: make(map[string]time.Time),
		ttl:     c.TTL,
		maxSize: c.MaxSize,
		now:     time.Now,
	}
}

// Get retrieves a session from cache
func (c *InMemoryCache) Get(tokenHash string) (*core.Session, error) {
	c.mu.RLock()
	record, exists := c.cache[tokenHash]
	c.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, core.ErrCacheNotFound
	}

	if !c.now().Before(record.expiresAt) {
		atomic.AddInt64(&c.misses, 1)
		c.removeIfSame(tokenHash, record)
		return nil, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	s := *record.session
	return &s, nil
}

// Set stores a copy of session in cache
func (c *InMemoryCache) Set(tokenHash string, session *core.Session) error {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(expiresAt) {
		expiresAt = session.ExpiresAt
	}
	s := *session

	c.mu.Lock()
	defer c.mu.Unlock()

	if until, ok := c.tombstones[tokenHash]; ok {
		if now.Before(until) {
			return nil
		}
		delete(c.tombstones, tokenHash)
	}

	if _, exists := c.cache[tokenHash]; !exists && len(c.cache) >= c.maxSize {
		c.evictLocked(now)
	}

	c.cache[tokenHash] = &cachedRecord{
		session:   &s,
		expiresAt: expiresAt,
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

// evictLocked drops every expired record, or one arbitrary record when none
// has expired. Caller holds c.mu.
func (c *InMemoryCache) evictLocked(now time.Time) {
	removed := false
	for k, r := range c.cache {
		if !now.Before(r.expiresAt) {
			delete(c.cache, k)
			atomic.AddInt64(&c.evictions, 1)
			removed = true
		}
	}
	if removed {
		return
	}
	for k := range c.cache {
		delete(c.cache, k)
		atomic.AddInt64(&c.evictions, 1)
		return
	}
}

func (c *InMemoryCache) removeIfSame(tokenHash string, record *cachedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.cache[tokenHash]; ok && current == record {
		delete(c.cache, tokenHash)
		atomic.AddInt64(&c.deletes, 1)
	}
}

// Delete removes a session from cache and tombstones its hash.
func (c *InMemoryCache) Delete(tokenHash string) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tombstones) >= c.maxSize {
		for k, until := range c.tombstones {
			if !now.Before(until) {
				delete(c.tombstones, k)
			}
		}
	}
	c.tombstones[tokenHash] = now.Add(c.ttl)
	if _, existed := c.cache[tokenHash]; existed {
		delete(c.cache, tokenHash)
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

// Clear removes all sessions from cache. Tombstones survive.
func (c *InMemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cachedRecord)
	return nil
}

func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *InMemoryCache) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
