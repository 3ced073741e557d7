package calendar

import (
	"context"
	"sync"
)

// Cache keeps loaded windows across calls. Windows are immutable, so a
// cached pointer can be shared by any number of readers; the map itself
// is guarded by an RWMutex.
type Cache struct {
	loader *Loader
	max    int

	mu      sync.RWMutex
	windows map[string]*Window

	// OnLoad, when set, is called after every window materialised on a miss.
	OnLoad func(cached int)
}

// NewCache wraps a Loader. max bounds the number of windows kept; the
// cache is cleared when it fills up.
func NewCache(l *Loader, max int) *Cache {
	if max <= 0 {
		max = 32
	}
	return &Cache{loader: l, max: max, windows: make(map[string]*Window)}
}

// Window returns the window ending at asOf, loading it on a miss.
func (c *Cache) Window(ctx context.Context, asOf string) (*Window, error) {
	key := c.loader.Exchange() + ":" + asOf

	c.mu.RLock()
	w, ok := c.windows[key]
	c.mu.RUnlock()
	if ok {
		return w, nil
	}

	w, err := c.loader.Load(ctx, asOf)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.windows) >= c.max {
		c.windows = make(map[string]*Window)
	}
	c.windows[key] = w
	n := len(c.windows)
	c.mu.Unlock()
	if c.OnLoad != nil {
		c.OnLoad(n)
	}
	return w, nil
}

// Len returns the number of cached windows.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.windows)
}
