package bigquery

import (
	"context"
	"sync"
	"time"

	"github.com/mesuradors/tank-telemetry/internal/domain"
)

type calibrationGetter interface {
	GetCalibration(ctx context.Context, deviceID string) (domain.Calibration, error)
}

// CachedCalibrations wraps a calibration store with an in-memory TTL'd LRU
// cache. Calibrations change rarely (a technician edits the meters table), so
// a short TTL keeps the per-uplink query off the warehouse without holding
// stale geometry for long. Only successful lookups are cached; a not-found
// device is re-queried every time so newly provisioned devices appear
// immediately.
type CachedCalibrations struct {
	inner calibrationGetter
	cache *lruCache
	ttl   time.Duration
}

// NewCachedCalibrations creates a cache decorator around a calibration store.
func NewCachedCalibrations(inner calibrationGetter, maxEntries int, ttl time.Duration) *CachedCalibrations {
	return &CachedCalibrations{
		inner: inner,
		cache: newLRUCache(maxEntries),
		ttl:   ttl,
	}
}

func (c *CachedCalibrations) GetCalibration(ctx context.Context, deviceID string) (domain.Calibration, error) {
	if cal, ok := c.cache.get(deviceID); ok {
		return cal, nil
	}
	cal, err := c.inner.GetCalibration(ctx, deviceID)
	if err != nil {
		return domain.Calibration{}, err
	}
	c.cache.put(deviceID, cal, c.ttl)
	return cal, nil
}

// lruCache is a simple thread-safe LRU cache with per-entry expiry.
type lruCache struct {
	maxEntries int
	now        func() time.Time
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     domain.Calibration
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Calibration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Calibration{}, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, e.key)
		c.remove(e)
		return domain.Calibration{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Calibration, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: c.now().Add(ttl)}
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
