// Package epochcache implements a bounded mapping from epoch number to a
// snapshot value, retaining only the K largest epoch numbers.
package epochcache

import (
	"sort"
	"sync"

	"github.com/mohae/deepcopy"
	"github.com/trailofbits/go-mutexasserts"
)

// BoundedEpochCache retains at most Capacity entries, evicting the
// smallest keys first. The zero value is not usable; use New.
type BoundedEpochCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]interface{}
}

// New constructs a cache retaining at most capacity epochs.
func New(capacity int) *BoundedEpochCache {
	return &BoundedEpochCache{
		capacity: capacity,
		entries:  make(map[uint64]interface{}),
	}
}

// Put inserts or overwrites the value for epoch, then evicts the oldest
// keys beyond the retention limit. The stored value is deep-copied so a
// caller mutating its own copy afterward can never reach into the cache.
func (c *BoundedEpochCache) Put(epoch uint64, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[epoch] = deepcopy.Copy(v)
	c.evictLocked()
}

func (c *BoundedEpochCache) evictLocked() {
	mutexasserts.AssertMutexLocked(&c.mu)
	if len(c.entries) <= c.capacity {
		return
	}
	keys := make([]uint64, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys[:len(keys)-c.capacity] {
		delete(c.entries, k)
	}
}

// Get returns the value stored for epoch and whether it was present.
func (c *BoundedEpochCache) Get(epoch uint64) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[epoch]
	return v, ok
}

// Has reports whether epoch is currently cached.
func (c *BoundedEpochCache) Has(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[epoch]
	return ok
}

// Len returns the number of cached epochs.
func (c *BoundedEpochCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
