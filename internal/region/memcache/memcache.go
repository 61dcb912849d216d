// Package memcache contains an in-memory region cache for tests and
// development runs.
package memcache

import (
	"context"
	"sync"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Cache implements region.Cache in memory.
type Cache struct {
	mu       sync.RWMutex
	mappings map[vacancy.Platform]region.Mapping
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{mappings: make(map[vacancy.Platform]region.Mapping)}
}

// Load returns a copy of the stored mapping, if any.
func (c *Cache) Load(_ context.Context, platform vacancy.Platform) (region.Mapping, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mapping, ok := c.mappings[platform]
	if !ok {
		return nil, false, nil
	}
	out := make(region.Mapping, len(mapping))
	for k, v := range mapping {
		out[k] = v
	}
	return out, true, nil
}

// Store replaces the mapping for the platform.
func (c *Cache) Store(_ context.Context, platform vacancy.Platform, m region.Mapping) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make(region.Mapping, len(m))
	for k, v := range m {
		cp[k] = v
	}
	c.mappings[platform] = cp
	return nil
}

// Invalidate drops the mapping for the platform.
func (c *Cache) Invalidate(_ context.Context, platform vacancy.Platform) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.mappings, platform)
	return nil
}
