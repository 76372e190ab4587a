package dispatch

import (
	"context"
	"sort"

	"MediRoute/internal/models"
	apperrors "MediRoute/pkg/errors"
)

// QueueLess is the queue ordering: higher criticality first, then older
// requests first.
func QueueLess(a, b *models.Request) bool {
	ra, rb := a.Criticality.Rank(), b.Criticality.Rank()
	if ra != rb {
		return ra > rb
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// SortQueue orders requests in place with QueueLess. Equal elements keep
// their relative order.
func SortQueue(requests []models.Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		return QueueLess(&requests[i], &requests[j])
	})
}

// Queue lists the pending requests of hospitalID. The store sorts natively
// and the result is re-sorted with QueueLess, which is the authoritative
// order whatever the backend does.
func (s *Service) Queue(ctx context.Context, hospitalID uint) ([]models.Request, error) {
	requests, err := models.ListPendingRequests(s.db.WithContext(ctx), hospitalID)
	if err != nil {
		return nil, apperrors.Wrap(err, "list pending requests")
	}
	SortQueue(requests)
	return requests, nil
}
