package openweather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydrotech/groundwater-serve/internal/domain"
	"github.com/hydrotech/groundwater-serve/internal/observability"
)

// Source is the weather lookup the cache decorates.
type Source interface {
	Current(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)
}

// CachedClient wraps a weather source with an in-memory TTL'd LRU cache.
// Coordinates are bucketed to four decimal places (~11 m), so the zone
// poller's repeated centroid lookups hit the cache between refreshes.
type CachedClient struct {
	inner   Source
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedClient creates a cache decorator around a weather source. A nil
// clock selects the real clock.
func NewCachedClient(inner Source, maxEntries int, ttl time.Duration, metrics *observability.Metrics, clk clockwork.Clock) *CachedClient {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &CachedClient{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clk),
		metrics: metrics,
	}
}

func (c *CachedClient) Current(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if snap, ok := c.cache.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return snap, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	snap, err := c.inner.Current(ctx, lat, lon)
	if err != nil {
		return snap, err
	}
	c.cache.put(key, snap)
	return snap, nil
}

// lruCache is a simple thread-safe LRU cache of weather snapshots with a
// fixed per-entry TTL.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key     string
	value   domain.WeatherSnapshot
	fetched time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clk clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clk,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.WeatherSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.WeatherSnapshot{}, false
	}
	if c.clock.Since(e.fetched) >= c.ttl {
		delete(c.entries, key)
		c.remove(e)
		return domain.WeatherSnapshot{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.WeatherSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.fetched = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, fetched: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
