package cache

import (
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"retrieval/internal/domain"
	"retrieval/internal/port"
)

// QueryCache is an LRU of score tables keyed by model and token sequence.
// Cached tables are shared and must be treated as read-only.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	table     *domain.ScoreTable
	timestamp time.Time
}

// NewQueryCache creates a cache holding at most maxSize tables. A ttl of
// zero keeps entries until they are evicted.
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(model string, tokens []string) string {
	h := blake3.Sum256([]byte(model + "\x00" + strings.Join(tokens, "\x1f")))
	return hex.EncodeToString(h[:16])
}

func (c *QueryCache) Get(model string, tokens []string) (*domain.ScoreTable, bool) {
	key := cacheKey(model, tokens)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	expired := c.ttl > 0 && time.Since(entry.timestamp) > c.ttl
	if expired {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses++
		return nil, false
	}

	c.moveToEnd(key)
	c.hits++
	return entry.table, true
}

func (c *QueryCache) Put(model string, tokens []string, table *domain.ScoreTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(model, tokens)
	entry := &cacheEntry{
		table:     table,
		timestamp: time.Now(),
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counters.
func (c *QueryCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedScorer memoizes another scorer's tables.
type CachedScorer struct {
	scorer port.Scorer
	cache  *QueryCache
}

func NewCachedScorer(scorer port.Scorer, cache *QueryCache) *CachedScorer {
	return &CachedScorer{
		scorer: scorer,
		cache:  cache,
	}
}

func (s *CachedScorer) Name() string {
	return s.scorer.Name()
}

func (s *CachedScorer) Score(tokens []string) *domain.ScoreTable {
	if table, hit := s.cache.Get(s.scorer.Name(), tokens); hit {
		return table
	}

	table := s.scorer.Score(tokens)
	s.cache.Put(s.scorer.Name(), tokens, table)
	return table
}
