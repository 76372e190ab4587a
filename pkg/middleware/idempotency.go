package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"MediRoute/pkg/cache"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
)

type IdempotencyConfig struct {
	HeaderName string        // defaults to Idempotency-Key
	TTL        time.Duration // window in which a repeated key is rejected
	KeyPrefix  string
	Store      cache.Cache
}

// IdempotencyMiddleware rejects a request whose idempotency key was already
// accepted within TTL. Requests without the header pass through untouched,
// and a key whose request failed (status >= 400) is released so the caller
// can retry with it.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "idem:"
	}
	store := cfg.Store
	if store == nil {
		store = cache.NewLocalCache(cache.LocalConfig{MaxSize: 10000})
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		storeKey := cfg.KeyPrefix + route + ":" + key
		ok, err := store.SetNX(c.Request.Context(), storeKey, time.Now().Unix(), cfg.TTL)
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			response.AbortWithStatus(c, http.StatusConflict, "duplicate request")
			return
		}
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			_ = store.Delete(context.WithoutCancel(c.Request.Context()), storeKey)
		}
	}
}
