package handlers

import (
	"net/http"

	"MediRoute/pkg/middleware"
	"MediRoute/pkg/response"

	"github.com/gin-gonic/gin"
)

// UpdateRateLimiterConfig swaps the dispatch limiter configuration at runtime.
func (h *Handlers) UpdateRateLimiterConfig(c *gin.Context) {
	if h.limiter == nil {
		response.AbortWithStatus(c, http.StatusNotFound, "rate limiter disabled")
		return
	}
	var cfg middleware.RateLimiterConfig
	if err := c.ShouldBindJSON(&cfg); err != nil || cfg.Rate == "" {
		response.Fail(c, "invalid request", nil)
		return
	}
	h.limiter.UpdateConfig(cfg)
	response.Success(c, "rate limiter config updated", nil)
}

// HealthCheck pings the store.
func (h *Handlers) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
