package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry TTL. Expired entries
// are invisible to Get and removed by a background sweep.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	items      map[K]item[V]
	defaultTTL time.Duration
	clock      clockwork.Clock

	stopOnce sync.Once
	stop     chan struct{}
}

func New[K comparable, V any](defaultTTL time.Duration, clock clockwork.Clock) *Cache[K, V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Cache[K, V]{
		items:      make(map[K]item[V]),
		defaultTTL: defaultTTL,
		clock:      clock,
		stop:       make(chan struct{}),
	}

	interval := defaultTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	go c.sweep(interval)

	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || !c.clock.Now().Before(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

func (c *Cache[K, V]) Delete(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Purge drops every expired entry and reports how many were removed.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) sweep(interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.Purge()
		case <-c.stop:
			return
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (c *Cache[K, V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
