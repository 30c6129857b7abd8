package strategy

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryCache keeps strategies in process. Values are stored serialized so
// callers never share a *Strategy with the cache.
type MemoryCache struct {
	items map[Slot][]byte
	mu    sync.RWMutex
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[Slot][]byte),
	}
}

func (c *MemoryCache) Get(ctx context.Context, slot Slot) (*Strategy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.items[slot]
	if !exists {
		return nil, ErrNotFound
	}

	var s Strategy
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *MemoryCache) Put(ctx context.Context, slot Slot, s *Strategy) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[slot] = data
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, slot)
	return nil
}

func (c *MemoryCache) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[Slot][]byte)
	return nil
}
