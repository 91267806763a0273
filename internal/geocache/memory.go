// Package geocache caches geocode results by normalized query. The
// in-memory implementation is the default; the Redis one shares results
// across worker processes.
package geocache

import (
	"context"
	"sync"
	"time"

	"github.com/newsglobe/backend/internal/models"
)

type record struct {
	key string
	ts  time.Time
}

// Memory keeps a fixed-size set of recently resolved locations.
type Memory struct {
	mu       sync.Mutex
	items    map[string]memItem
	order    []record
	capacity int
	ttl      time.Duration
}

type memItem struct {
	loc models.ResolvedLocation
	ts  time.Time
}

// NewMemory creates a cache with the provided capacity and ttl.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Memory{
		items:    make(map[string]memItem, capacity),
		order:    make([]record, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Get returns a copy of the cached location when the key is inside the
// ttl window.
func (c *Memory) Get(_ context.Context, key string) (*models.ResolvedLocation, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || now.Sub(item.ts) > c.ttl {
		return nil, false
	}
	loc := item.loc
	return &loc, true
}

// Set records a resolved location, evicting expired and over-capacity
// entries oldest-first.
func (c *Memory) Set(_ context.Context, key string, loc *models.ResolvedLocation) {
	if loc == nil {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memItem{loc: *loc, ts: now}
	c.order = append(c.order, record{key: key, ts: now})
	c.compact(now)
}

func (c *Memory) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if item, ok := c.items[oldest.key]; ok {
			if item.ts == oldest.ts {
				delete(c.items, oldest.key)
			}
		}
	}
}
