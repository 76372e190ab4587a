package dispatch

import (
	"context"

	"MediRoute/internal/models"
	"MediRoute/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DepthGauge interface {
	SetPendingRequests(n int64)
}

// QueueDepth returns a job that publishes the number of pending requests.
func QueueDepth(db *gorm.DB, gauge DepthGauge) func(ctx context.Context) {
	return func(ctx context.Context) {
		n, err := models.CountPendingRequests(db.WithContext(ctx))
		if err != nil {
			logger.Warn("count pending requests failed", zap.Error(err))
			return
		}
		gauge.SetPendingRequests(n)
	}
}
