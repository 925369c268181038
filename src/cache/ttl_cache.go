package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a process-wide key/value store. Entries expire a fixed TTL after
// they were written, regardless of reads. Expired entries are purged lazily on
// Get and periodically by the sweep loop.
type TTLCache[V any] struct {
	ttl           time.Duration
	sweepInterval time.Duration
	clock         clockwork.Clock

	mu    sync.Mutex
	items map[string]entry[V]

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// -----------------------------------------------------------------------------

// NewTTLCache builds a cache. A nil clock uses the wall clock.
func NewTTLCache[V any](ttl, sweepInterval time.Duration, clock clockwork.Clock) *TTLCache[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[V]{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		clock:         clock,
		items:         make(map[string]entry[V]),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Get returns the value for key. An entry read at or after its expiry is a miss
// and is removed.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

// -----------------------------------------------------------------------------

// Set stores value under key, overwriting any previous entry and resetting its TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Len counts stored entries, including expired ones not yet swept.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// -----------------------------------------------------------------------------

// Keys lists the keys of live entries.
func (c *TTLCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	keys := make([]string, 0, len(c.items))
	for key, e := range c.items {
		if now.Before(e.expiresAt) {
			keys = append(keys, key)
		}
	}
	return keys
}

// -----------------------------------------------------------------------------

// sweep removes every expired entry and reports how many were dropped.
func (c *TTLCache[V]) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

// Start runs the periodic sweep until ctx is done or Stop is called.
func (c *TTLCache[V]) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	if c.sweepInterval <= 0 {
		close(c.done)
		return
	}
	ticker := c.clock.NewTicker(c.sweepInterval)
	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.Chan():
				c.sweep()
			}
		}
	}()
}

// -----------------------------------------------------------------------------

// Stop ends the sweep loop and waits for it to exit.
func (c *TTLCache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}
