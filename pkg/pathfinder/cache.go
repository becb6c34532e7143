package pathfinder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelgames/pathkeeper/pkg/geometry"
)

// PathCacheEntry is a computed path keyed by a stable hash of quantized raw
// endpoints. lastUsedNano and useCount are atomics so a cache lookup only
// needs the map's shared (read) lock; touching "recently used" bookkeeping
// never escalates to the exclusive lock.
type PathCacheEntry struct {
	Path         []geometry.Vector2D
	lastUsedNano atomic.Int64
	useCount     atomic.Uint64
}

func newCacheEntry(path []geometry.Vector2D) *PathCacheEntry {
	e := &PathCacheEntry{Path: path}
	e.touch()
	return e
}

func (e *PathCacheEntry) touch() {
	e.lastUsedNano.Store(time.Now().UnixNano())
	e.useCount.Add(1)
}

// LastUsed returns the entry's last-access time.
func (e *PathCacheEntry) LastUsed() time.Time { return time.Unix(0, e.lastUsedNano.Load()) }

// UseCount returns how many times this entry has been looked up, including
// the insertion itself.
func (e *PathCacheEntry) UseCount() uint64 { return e.useCount.Load() }

// pathCache is the Dispatcher's exclusively-owned result cache: many
// concurrent readers during lookup, one writer during insert/evict/clear.
type pathCache struct {
	mu       sync.RWMutex
	entries  map[uint64]*PathCacheEntry
	capacity int
	ttl      time.Duration // 0 disables TTL expiry; LRU/invalidation still apply
}

func newPathCache(capacity int) *pathCache {
	if capacity < 1 {
		capacity = 1
	}
	return &pathCache{
		entries:  make(map[uint64]*PathCacheEntry, capacity),
		capacity: capacity,
	}
}

func (c *pathCache) setCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	c.mu.Lock()
	c.capacity = capacity
	c.mu.Unlock()
}

func (c *pathCache) setTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// get returns the cached path for key, or (nil, false) on miss or TTL
// expiry. A TTL-expired entry is left in place rather than deleted here;
// the next insert or eviction pass will reclaim it, keeping this path
// lock-free beyond the initial RLock.
func (c *pathCache) get(key uint64) ([]geometry.Vector2D, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	ttl := c.ttl
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if ttl > 0 && time.Since(e.LastUsed()) > ttl {
		return nil, false
	}
	e.touch()
	return e.Path, true
}

// put inserts or overwrites key (last-writer-wins), evicting the LRU entry
// first if at capacity. It blocks for the exclusive lock; use tryPut on the
// hot async path where blocking is undesirable.
func (c *pathCache) put(key uint64, path []geometry.Vector2D) {
	c.mu.Lock()
	c.insertLocked(key, path)
	c.mu.Unlock()
}

// tryPut attempts the insert without blocking. Contention on the write lock
// is treated as a silent skip: the next identical request will recompute
// and try the insert again.
func (c *pathCache) tryPut(key uint64, path []geometry.Vector2D) bool {
	if !c.mu.TryLock() {
		return false
	}
	c.insertLocked(key, path)
	c.mu.Unlock()
	return true
}

func (c *pathCache) insertLocked(key uint64, path []geometry.Vector2D) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = newCacheEntry(path)
}

func (c *pathCache) evictOldestLocked() {
	var oldestKey uint64
	var oldestTime int64
	first := true
	for k, e := range c.entries {
		t := e.lastUsedNano.Load()
		if first || t < oldestTime {
			oldestKey, oldestTime, first = k, t, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// evictFraction removes the oldest frac (in [0,1]) of entries by LastUsed,
// used for the post-rebuild "evict oldest 50%" pass.
func (c *pathCache) evictFraction(frac float64) int {
	if frac <= 0 {
		return 0
	}
	if frac > 1 {
		frac = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	toEvict := int(float64(n) * frac)
	if toEvict <= 0 {
		return 0
	}
	type kt struct {
		key uint64
		t   int64
	}
	ordered := make([]kt, 0, n)
	for k, e := range c.entries {
		ordered = append(ordered, kt{k, e.lastUsedNano.Load()})
	}
	// Partial selection by repeated min-scan is fine at cache sizes this
	// dispatcher deals with; no need for a full sort.
	for i := 0; i < toEvict; i++ {
		minIdx := i
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].t < ordered[minIdx].t {
				minIdx = j
			}
		}
		ordered[i], ordered[minIdx] = ordered[minIdx], ordered[i]
		delete(c.entries, ordered[i].key)
	}
	return toEvict
}

// evictIntersecting removes every entry whose path satisfies pred, returning
// the count removed. Used by the invalidation listener.
func (c *pathCache) evictIntersecting(pred func([]geometry.Vector2D) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if pred(e.Path) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *pathCache) clear() {
	c.mu.Lock()
	c.entries = make(map[uint64]*PathCacheEntry, c.capacity)
	c.mu.Unlock()
}

func (c *pathCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
