package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type item[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL support.
type Cache[T any] struct {
	mu         sync.RWMutex
	items      map[string]item[T]
	defaultTTL time.Duration
	now        func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// New creates a cache. A positive cleanupInterval starts a goroutine that evicts expired
// entries until Stop is called.
func New[T any](defaultTTL, cleanupInterval time.Duration) *Cache[T] {
	c := &Cache[T]{
		items:       make(map[string]item[T]),
		defaultTTL:  defaultTTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanup(cleanupInterval)
	}
	return c
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero T
		return zero, false
	}
	return it.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item[T]{value: value, expiresAt: c.now().Add(ttl)}
}

// GetOrLoad returns the cached value or stores the result of load. Errors are not cached.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Invalidate drops every key starting with prefix. An empty prefix drops expired keys only.
func (c *Cache[T]) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if prefix == "" {
			if now.After(it.expiresAt) {
				delete(c.items, key)
			}
			continue
		}
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[T]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Invalidate("")
		case <-c.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (c *Cache[T]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}
