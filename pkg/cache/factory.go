package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewCache creates the backend selected by config.Type.
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "local":
		return NewLocalCache(config.Local), nil
	case "", "gocache":
		return NewGoCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// NewCacheWithOptions fronts redis with a local tier when options ask for it.
func NewCacheWithOptions(config Config, options *Options) (Cache, error) {
	if options == nil {
		options = DefaultOptions()
	}
	if options.UseLocalCache && strings.ToLower(config.Type) == "redis" {
		distributed, err := NewRedisCache(config.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		return NewLayeredCache(NewLocalCache(config.Local), distributed, options), nil
	}
	return NewCache(config)
}

// NewLayeredCache combines a local tier with a distributed one. Writes go to
// both; reads fall through to distributed and backfill local.
func NewLayeredCache(local, distributed Cache, options *Options) Cache {
	if options == nil {
		options = DefaultOptions()
	}
	return &layeredCache{local: local, distributed: distributed, options: options}
}

type layeredCache struct {
	local       Cache
	distributed Cache
	options     *Options
}

func (lc *layeredCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if value, exists := lc.local.Get(ctx, key); exists {
		return value, true
	}
	if value, exists := lc.distributed.Get(ctx, key); exists {
		_ = lc.local.Set(ctx, key, value, lc.options.LocalExpiration)
		return value, true
	}
	return nil, false
}

func (lc *layeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.distributed.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.local.Set(ctx, key, value, lc.localTTL(expiration))
}

// Delete clears local even if the distributed delete fails, so a stale local
// value never outlives an invalidation attempt.
func (lc *layeredCache) Delete(ctx context.Context, key string) error {
	_ = lc.local.Delete(ctx, key)
	return lc.distributed.Delete(ctx, key)
}

func (lc *layeredCache) Exists(ctx context.Context, key string) bool {
	return lc.local.Exists(ctx, key) || lc.distributed.Exists(ctx, key)
}

func (lc *layeredCache) Clear(ctx context.Context) error {
	_ = lc.local.Clear(ctx)
	return lc.distributed.Clear(ctx)
}

// SetNX is decided by the distributed tier only.
func (lc *layeredCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := lc.distributed.SetNX(ctx, key, value, expiration)
	if err != nil || !ok {
		return ok, err
	}
	return true, lc.local.Set(ctx, key, value, lc.localTTL(expiration))
}

func (lc *layeredCache) localTTL(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.options.LocalExpiration {
		return expiration
	}
	return lc.options.LocalExpiration
}

func (lc *layeredCache) Close() error {
	if err := lc.local.Close(); err != nil {
		return err
	}
	return lc.distributed.Close()
}
