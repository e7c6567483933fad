// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package imageproxy

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// byteCache is the content-addressed image store. Entries are keyed by an
// xxhash digest of the URL rather than the raw string, bounding map key
// size regardless of how long the source URL is. Eviction is FIFO by
// insertion order, which the contract explicitly allows in place of a full
// LRU.
type byteCache struct {
	mu       sync.RWMutex
	capacity int64
	size     int64
	order    *list.List // front = oldest
	entries  map[uint64]*list.Element
}

type cacheEntry struct {
	key   uint64
	bytes []byte
}

func newByteCache(capacity int64) *byteCache {
	return &byteCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[uint64]*list.Element),
	}
}

func cacheKey(url string) uint64 {
	return xxhash.Sum64String(url)
}

func (c *byteCache) get(url string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	el, ok := c.entries[cacheKey(url)]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).bytes, true
}

// put inserts bytes for url, evicting the oldest entries until the new entry
// fits within capacity. A single entry larger than capacity is rejected by
// the caller before reaching here (per_entry_size_limit is enforced by
// Proxy, not this cache).
func (c *byteCache) put(url string, data []byte) {
	key := cacheKey(url)
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.size -= int64(len(el.Value.(*cacheEntry).bytes))
		c.order.Remove(el)
		delete(c.entries, key)
	}

	for c.size+int64(len(data)) > c.capacity && c.order.Len() > 0 {
		oldest := c.order.Front()
		entry := oldest.Value.(*cacheEntry)
		c.size -= int64(len(entry.bytes))
		c.order.Remove(oldest)
		delete(c.entries, entry.key)
	}

	el := c.order.PushBack(&cacheEntry{key: key, bytes: data})
	c.entries[key] = el
	c.size += int64(len(data))
}
