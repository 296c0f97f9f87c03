package plan

import (
	"sync"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// Key identifies one optimization configuration. Two requests with equal
// keys over the same snapshot produce identical results, so the result of
// the first can be replayed for the second.
type Key struct {
	SnapshotID string
	MinDegree  int
	Facilities int
	Seed       int64
}

// Cache memoizes optimization results by configuration tuple. It replaces
// the redraw-avoidance session state the interactive front end used to
// keep: ownership sits with the calling layer (the serve command), never
// with Build itself.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*cacheEntry
	max     int
	tick    uint64
}

type cacheEntry struct {
	result *model.OptimizationResult
	seen   uint64
}

// NewCache creates a cache bounded to max entries; max <= 0 means 128.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = 128
	}
	return &Cache{entries: make(map[Key]*cacheEntry), max: max}
}

// Get returns the memoized result for key, if any.
func (c *Cache) Get(key Key) (*model.OptimizationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.tick++
	e.seen = c.tick
	return e.result, true
}

// Put stores result under key, evicting the least recently used entry
// when the cache is full.
func (c *Cache) Put(key Key, result *model.OptimizationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[key]; ok {
		e.result = result
		e.seen = c.tick
		return
	}

	if len(c.entries) >= c.max {
		var oldest Key
		var oldestSeen uint64
		first := true
		for k, e := range c.entries {
			if first || e.seen < oldestSeen {
				oldest = k
				oldestSeen = e.seen
				first = false
			}
		}
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry{result: result, seen: c.tick}
}

// Len returns the number of memoized entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
