package cache

import (
	"container/list"
	"sync"
)

// LRU is an in-memory cache with least-recently-used eviction. It is safe
// for concurrent use.
type LRU[K comparable, V any] struct {
	capacity int64
	size     int64
	sizer    Sizer[V]

	items    map[K]*list.Element
	eviction *list.List

	mu sync.Mutex

	stats Stats
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// NewLRU creates a cache bounded by capacity, measured with sizer. A nil
// sizer counts items.
func NewLRU[K comparable, V any](capacity int64, sizer Sizer[V]) *LRU[K, V] {
	if sizer == nil {
		sizer = CountSizer[V]
	}
	return &LRU[K, V]{
		capacity: capacity,
		sizer:    sizer,
		items:    make(map[K]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*lruEntry[K, V]).value, true
}

// Put stores a value, evicting least recently used entries to make room.
func (c *LRU[K, V]) Put(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.sizer(value)

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		c.size += size - entry.size
		entry.value = value
		entry.size = size
		for c.size > c.capacity && c.eviction.Len() > 1 {
			c.evictOldest()
		}
		return nil
	}

	if size > c.capacity {
		return ErrItemTooLarge
	}

	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&lruEntry[K, V]{key: key, value: value, size: size})
	c.items[key] = elem
	c.size += size
	return nil
}

// Delete removes an entry from the cache.
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries from the cache.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Contains checks if a key exists without updating recency.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *LRU[K, V]) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)
	c.size -= entry.size
}
