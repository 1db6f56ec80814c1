package service

import (
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	value   T
	expires time.Time
}

// TTLCache is a small in-process cache for expensive read endpoints.
// Entries expire lazily on read; there is no background sweeper.
type TTLCache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry[T]
}

func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, entries: map[string]cacheEntry[T]{}}
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[T]{value: value, expires: time.Now().Add(c.ttl)}
}

func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry[T]{}
}
