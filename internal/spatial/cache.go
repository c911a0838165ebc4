package spatial

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LayoutCache memoises layouts by map identity. Concurrent misses for the same
// map compute the layout once.
type LayoutCache struct {
	mu      sync.RWMutex
	layouts map[string]*Layout
	group   singleflight.Group
}

func NewLayoutCache() *LayoutCache {
	return &LayoutCache{layouts: make(map[string]*Layout)}
}

// Get returns the layout for m, deriving it on first use. Maps without an ID are
// keyed by their digest.
func (c *LayoutCache) Get(m *Map) (*Layout, error) {
	key := m.ID
	if key == "" {
		digest, err := Digest(m)
		if err != nil {
			return nil, fmt.Errorf("failed to digest map: %w", err)
		}
		key = digest
	}

	c.mu.RLock()
	l, ok := c.layouts[key]
	c.mu.RUnlock()
	if ok {
		return l, nil
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if l, ok := c.layouts[key]; ok {
			return l, nil
		}
		l := GenerateLayout(m)
		l.MapID = key
		c.layouts[key] = l
		return l, nil
	})
	return v.(*Layout), nil
}

// Put seeds the cache with a layout restored from a snapshot.
func (c *LayoutCache) Put(l *Layout) {
	if l == nil || l.MapID == "" {
		return
	}
	c.mu.Lock()
	c.layouts[l.MapID] = l
	c.mu.Unlock()
}

func (c *LayoutCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.layouts)
}
