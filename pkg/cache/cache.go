package cache

import (
	"context"
	"time"
)

// Cache is the key/value contract shared by the local and redis backends.
// Values round-trip unchanged through local backends; the redis backend
// stores JSON, so callers that need a concrete type should cache strings.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value; expiration <= 0 means the backend default.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) bool

	Clear(ctx context.Context) error

	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)

	Close() error
}

type Config struct {
	// local | gocache | redis
	Type string `json:"type" yaml:"type" env:"CACHE_TYPE" default:"gocache"`

	Redis RedisConfig `json:"redis" yaml:"redis"`

	Local LocalConfig `json:"local" yaml:"local"`
}

type RedisConfig struct {
	Addr string `json:"addr" yaml:"addr" env:"REDIS_ADDR" default:"localhost:6379"`

	Password string `json:"password" yaml:"password" env:"REDIS_PASSWORD"`

	DB int `json:"db" yaml:"db" env:"REDIS_DB" default:"0"`

	PoolSize int `json:"pool_size" yaml:"pool_size" env:"REDIS_POOL_SIZE" default:"10"`

	MinIdleConns int `json:"min_idle_conns" yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" default:"2"`

	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" default:"5s"`

	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout" env:"REDIS_READ_TIMEOUT" default:"3s"`

	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

type LocalConfig struct {
	MaxSize int `json:"max_size" yaml:"max_size" env:"LOCAL_CACHE_MAX_SIZE" default:"1000"`

	DefaultExpiration time.Duration `json:"default_expiration" yaml:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION" default:"5m"`

	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL" default:"10m"`
}

type Options struct {
	Expiration time.Duration

	// UseLocalCache puts a short-lived local tier in front of redis.
	UseLocalCache bool

	LocalExpiration time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		Expiration:      5 * time.Minute,
		UseLocalCache:   true,
		LocalExpiration: 10 * time.Second,
	}
}
