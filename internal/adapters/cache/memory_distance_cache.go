package cache

import (
	"hash/fnv"
	"sync"
	"visit-route-engine/internal/domain"
)

const shardCount = 32

// MemoryDistanceCache is a bounded in-process DistanceCache. Keys are
// spread over shards, each guarded by its own lock, so concurrent runs
// only contend on the same shard. When a shard is full its oldest entry
// is evicted.
type MemoryDistanceCache struct {
	shards   [shardCount]memoryShard
	perShard int
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[domain.PairKey]domain.DistanceEntry
	order []domain.PairKey
}

// NewMemoryDistanceCache holds at most maxEntries entries (0 means 10000).
func NewMemoryDistanceCache(maxEntries int) *MemoryDistanceCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	c := &MemoryDistanceCache{perShard: max(1, maxEntries/shardCount)}
	for i := range c.shards {
		c.shards[i].items = make(map[domain.PairKey]domain.DistanceEntry)
	}
	return c
}

func (c *MemoryDistanceCache) shard(key domain.PairKey) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key.Origin))
	h.Write([]byte{'|'})
	h.Write([]byte(key.Destination))
	return &c.shards[h.Sum32()%shardCount]
}

func (c *MemoryDistanceCache) Get(key domain.PairKey) (domain.DistanceEntry, bool) {
	s := c.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	return e, ok
}

func (c *MemoryDistanceCache) PutIfAbsent(key domain.PairKey, entry domain.DistanceEntry) domain.DistanceEntry {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		return e
	}
	if len(s.order) >= c.perShard {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	s.items[key] = entry
	s.order = append(s.order, key)
	return entry
}

// Len returns the number of cached entries.
func (c *MemoryDistanceCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
