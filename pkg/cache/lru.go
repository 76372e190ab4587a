package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruCache is a bounded local cache. golang-lru's expirable LRU only knows a
// single TTL, so per-key expirations are tracked alongside each value.
type lruCache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, lruItem]
}

type lruItem struct {
	value     interface{}
	expiresAt time.Time
}

func (i lruItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// NewLocalCache creates a size-bounded LRU cache.
func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	return &lruCache{lru: expirable.NewLRU[string, lruItem](size, nil, config.DefaultExpiration)}
}

func (c *lruCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if item.expired(time.Now()) {
		c.lru.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (c *lruCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, expiration)
	return nil
}

func (c *lruCache) set(key string, value interface{}, expiration time.Duration) {
	item := lruItem{value: value}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}
	c.lru.Add(key, item)
}

func (c *lruCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
	return nil
}

func (c *lruCache) Exists(ctx context.Context, key string) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

func (c *lruCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	return nil
}

func (c *lruCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.lru.Peek(key); ok && !item.expired(time.Now()) {
		return false, nil
	}
	c.set(key, value, expiration)
	return true, nil
}

func (c *lruCache) Close() error {
	return nil
}
