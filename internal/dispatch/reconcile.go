package dispatch

import (
	"context"
	"time"

	"MediRoute/internal/models"
	"MediRoute/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReconcileReport struct {
	Scanned  int
	Issued   int
	Flagged  int
	Deferred int
}

// Reconciler completes saga resolutions. A PENDING prescription whose
// request is gone is issued unless the request already has an ISSUED
// prescription; that one and one whose request still exists after
// staleAfter are flagged NEEDS_REVIEW.
type Reconciler struct {
	db         *gorm.DB
	staleAfter time.Duration
	recorder   Recorder
	now        func() time.Time
}

func NewReconciler(db *gorm.DB, staleAfter time.Duration, recorder Recorder) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Reconciler{db: db, staleAfter: staleAfter, recorder: recorder, now: time.Now}
}

func (r *Reconciler) Sweep(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	db := r.db.WithContext(ctx)

	pending, err := models.ListPendingPrescriptions(db)
	if err != nil {
		return report, err
	}
	report.Scanned = len(pending)

	cutoff := r.now().Add(-r.staleAfter)
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p := &pending[i]

		exists := false
		var issued int64
		if p.RequestID != nil {
			exists, err = models.RequestExists(db, *p.RequestID)
			if err != nil {
				return report, err
			}
			if !exists {
				issued, err = models.CountIssuedForRequest(db, *p.RequestID)
				if err != nil {
					return report, err
				}
			}
		}

		switch {
		case p.RequestID != nil && !exists && issued > 0:
			// another resolver already won this request
			if err := models.SetPrescriptionStatus(db, p.ID, models.PrescriptionNeedsReview); err != nil {
				return report, err
			}
			report.Flagged++
			logger.Warn("duplicate prescription flagged for review",
				zap.Uint("prescription_id", p.ID),
				zap.String("request_id", *p.RequestID))
		case p.RequestID != nil && !exists:
			if err := models.SetPrescriptionStatus(db, p.ID, models.PrescriptionIssued); err != nil {
				return report, err
			}
			report.Issued++
		case p.CreatedAt.Before(cutoff):
			if err := models.SetPrescriptionStatus(db, p.ID, models.PrescriptionNeedsReview); err != nil {
				return report, err
			}
			report.Flagged++
			logger.Warn("prescription flagged for review",
				zap.Uint("prescription_id", p.ID),
				zap.Uint("hospital_id", p.HospitalID))
		default:
			report.Deferred++
		}
	}

	if report.Flagged > 0 {
		r.recorder.RecordReconcileFlagged(report.Flagged)
	}
	return report, nil
}

// Run makes the reconciler usable as a scheduled job.
func (r *Reconciler) Run(ctx context.Context) {
	report, err := r.Sweep(ctx)
	if err != nil {
		logger.Error("reconcile sweep failed", zap.Error(err))
		return
	}
	if report.Scanned > 0 {
		logger.Info("reconcile sweep",
			zap.Int("scanned", report.Scanned),
			zap.Int("issued", report.Issued),
			zap.Int("flagged", report.Flagged),
			zap.Int("deferred", report.Deferred))
	}
}
