package cache

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: sha1 for cache keys, not security
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"modelserve/internal/core"
)

// LRUCache is a thread-safe LRU cache with per-item expiry.
type LRUCache struct {
	capacity int
	items    map[string]*entry
	mu       sync.Mutex
	head     *entry
	tail     *entry
	cancel   context.CancelFunc
}

type entry struct {
	value      any
	expiration int64
	key        string
	prev       *entry
	next       *entry
}

// NewCache creates an LRUCache holding at most capacity items and starts its
// cleanup worker. Stop must be called to release the worker.
func NewCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = core.CacheDefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LRUCache{
		capacity: capacity,
		items:    make(map[string]*entry),
		cancel:   cancel,
	}
	c.head = &entry{}
	c.tail = &entry{}
	c.head.next = c.tail
	c.tail.prev = c.head

	go c.cleanupLoop(ctx)
	return c
}

func (c *LRUCache) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(core.CacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the cleanup worker.
func (c *LRUCache) Stop() {
	c.cancel()
}

// Set stores value under key for duration.
func (c *LRUCache) Set(key string, value any, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration := time.Now().Add(duration).UnixNano()
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiration = expiration
		c.moveToFront(e)
		return
	}

	e := &entry{value: value, expiration: expiration, key: key}
	c.addToFront(e)
	c.items[key] = e

	if len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Get returns the value for key, or false if it is absent or expired.
func (c *LRUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().UnixNano() > e.expiration {
		c.unlink(e)
		delete(c.items, key)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Len returns the number of stored items, including expired ones not yet cleaned up.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache) addToFront(e *entry) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRUCache) moveToFront(e *entry) {
	c.unlink(e)
	c.addToFront(e)
}

func (c *LRUCache) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRUCache) evictOldest() {
	if c.tail.prev == c.head {
		return
	}
	e := c.tail.prev
	c.unlink(e)
	delete(c.items, e.key)
}

func (c *LRUCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, e := range c.items {
		if now > e.expiration {
			c.unlink(e)
			delete(c.items, key)
		}
	}
}

// PredictionCache memoizes prediction responses by input values.
type PredictionCache struct {
	lru core.Cache
	ttl time.Duration
}

// NewPredictionCache returns nil when ttl is not positive; a nil
// *PredictionCache is valid and never hits.
func NewPredictionCache(ttl time.Duration, capacity int) *PredictionCache {
	if ttl <= 0 {
		return nil
	}
	return &PredictionCache{lru: NewCache(capacity), ttl: ttl}
}

// Get returns a shallow copy of the cached response for values. The
// prediction payload is shared and must not be mutated.
func (pc *PredictionCache) Get(values []float64) (*core.PredictResponse, bool) {
	if pc == nil {
		return nil, false
	}
	cached, ok := pc.lru.Get(PredictionCacheKey(values))
	if !ok {
		return nil, false
	}
	resp, ok := cached.(*core.PredictResponse)
	if !ok {
		return nil, false
	}
	clone := *resp
	return &clone, true
}

// Set stores resp for values.
func (pc *PredictionCache) Set(values []float64, resp *core.PredictResponse) {
	if pc == nil || resp == nil {
		return
	}
	clone := *resp
	pc.lru.Set(PredictionCacheKey(values), &clone, pc.ttl)
}

// Close stops the underlying cache.
func (pc *PredictionCache) Close() error {
	if pc == nil {
		return nil
	}
	pc.lru.Stop()
	return nil
}

// PredictionCacheKey hashes the exact bit patterns of values.
func PredictionCacheKey(values []float64) string {
	h := sha1.New() //nolint:gosec // G401: sha1 for cache keys, not security
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return fmt.Sprintf("predict:%s:%d:%s", core.CacheKeyVersion, len(values), hex.EncodeToString(h.Sum(nil)))
}
