package listeners

import (
	"context"
	"time"

	"MediRoute/internal/models"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/notification"
	"MediRoute/pkg/search"
	"MediRoute/pkg/util"

	"go.uber.org/zap"
)

// HospitalCache is the locator snapshot that must be dropped when the set of
// dispatchable hospitals changes.
type HospitalCache interface {
	Invalidate(ctx context.Context) error
}

func InitHospitalListeners(sig *util.Signals, mailer *notification.MailNotification, hospitals HospitalCache) {
	invalidate := func(sender any, params ...any) {
		if hospitals == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := hospitals.Invalidate(ctx); err != nil {
			logger.Warn("invalidate hospital cache failed", zap.Error(err))
		}
	}
	sig.Connect(models.SigHospitalLocationChanged, invalidate)
	sig.Connect(models.SigHospitalApproved, invalidate)

	// register approval listener - Send Approval Email
	sig.Connect(models.SigHospitalApproved, func(sender any, params ...any) {
		hospital, ok := sender.(*models.Account)
		if !ok || hospital.Email == "" || mailer == nil || !mailer.Enabled() {
			return
		}

		go func() {
			err := mailer.SendHospitalApproved(hospital.Email, hospital.DisplayName, hospital.Code())
			if err != nil {
				logger.Warn("send approval mail failed",
					zap.Uint("hospital_id", hospital.ID),
					zap.Error(err))
			}
		}()
	})
}

// HospitalIndex is the searchable hospital directory.
type HospitalIndex interface {
	Put(ctx context.Context, h search.Hospital) error
}

// DirectoryEntry maps an account to its directory entry. ok is false for
// hospitals that are not dispatchable yet.
func DirectoryEntry(acc *models.Account) (search.Hospital, bool) {
	if acc == nil || !acc.IsHospital() || !acc.IsApproved() || !acc.HasLocation() {
		return search.Hospital{}, false
	}
	return search.Hospital{
		ID:        acc.ID,
		Name:      acc.DisplayName,
		Code:      acc.Code(),
		Latitude:  *acc.Latitude,
		Longitude: *acc.Longitude,
	}, true
}

func InitDirectoryListeners(sig *util.Signals, index HospitalIndex) {
	reindex := func(sender any, params ...any) {
		acc, _ := sender.(*models.Account)
		entry, ok := DirectoryEntry(acc)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := index.Put(ctx, entry); err != nil {
			logger.Warn("index hospital failed", zap.Uint("hospital_id", acc.ID), zap.Error(err))
		}
	}
	sig.Connect(models.SigHospitalApproved, reindex)
	sig.Connect(models.SigHospitalLocationChanged, reindex)
}
