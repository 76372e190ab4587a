package dispatch

import (
	"context"
	"net/http"
	"strings"

	"MediRoute/internal/models"
	apperrors "MediRoute/pkg/errors"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/sse"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidRequestID  = apperrors.WithCode(http.StatusBadRequest, "malformed request identifier")
	ErrRequestNotFound   = apperrors.WithCode(http.StatusNotFound, "request not found")
	ErrEmptyPrescription = apperrors.WithCode(http.StatusBadRequest, "prescription text is required")
)

const (
	ResolutionResolved = "resolved"
	ResolutionNotFound = "not_found"
	ResolutionInvalid  = "invalid"
	ResolutionFailed   = "error"
)

type ResolveInput struct {
	RequestID        string
	HospitalID       uint
	PrescriptionText string
	StaffName        string
}

// Resolve turns a pending request of the calling hospital into a
// prescription and removes it from the queue. Requests owned by another
// hospital are reported as not found.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (*models.Prescription, error) {
	p, err := s.resolve(ctx, in)
	switch {
	case err == nil:
		s.recorder.RecordResolution(ResolutionResolved)
	case apperrors.Is(err, ErrRequestNotFound):
		s.recorder.RecordResolution(ResolutionNotFound)
	case apperrors.HTTPStatus(err) < http.StatusInternalServerError:
		s.recorder.RecordResolution(ResolutionInvalid)
	default:
		s.recorder.RecordResolution(ResolutionFailed)
		logger.Error("resolve request failed",
			zap.String("request_id", in.RequestID),
			zap.Uint("hospital_id", in.HospitalID),
			zap.Error(err))
	}
	return p, err
}

func (s *Service) resolve(ctx context.Context, in ResolveInput) (*models.Prescription, error) {
	id, err := uuid.Parse(strings.TrimSpace(in.RequestID))
	if err != nil {
		return nil, ErrInvalidRequestID
	}
	requestID := id.String()
	text := strings.TrimSpace(in.PrescriptionText)
	if text == "" {
		return nil, ErrEmptyPrescription
	}
	staff := strings.TrimSpace(in.StaffName)
	if staff == "" {
		staff = s.staffName
	}

	db := s.db.WithContext(ctx)
	hospital, err := models.GetAccountByID(db, in.HospitalID)
	if err != nil {
		return nil, err
	}

	draft := &models.Prescription{
		Text:         text,
		HospitalID:   in.HospitalID,
		HospitalName: hospital.DisplayName,
		StaffName:    staff,
		RequestID:    &requestID,
	}

	var p *models.Prescription
	if s.tx {
		p, err = s.resolveTx(db, requestID, in.HospitalID, draft)
	} else {
		p, err = s.resolveSaga(db, requestID, in.HospitalID, draft)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("request resolved",
		zap.String("request_id", requestID),
		zap.Uint("hospital_id", in.HospitalID),
		zap.Uint("prescription_id", p.ID))
	s.publisher.SendToGroup(HospitalGroup(in.HospitalID), sse.Event{
		Name: EventRequestResolved,
		Data: map[string]interface{}{"requestId": requestID, "prescriptionId": p.ID},
	})
	return p, nil
}

// resolveTx writes the prescription and compare-and-deletes the request in
// one transaction. Any failure leaves neither effect behind.
func (s *Service) resolveTx(db *gorm.DB, requestID string, hospitalID uint, p *models.Prescription) (*models.Prescription, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		req, err := models.GetPendingRequest(tx, requestID, hospitalID)
		if err != nil {
			if models.IsNotFound(err) {
				return ErrRequestNotFound
			}
			return apperrors.Wrap(err, "load request")
		}
		p.PatientName = req.RequesterName
		p.Status = models.PrescriptionIssued
		if err := models.CreatePrescription(tx, p); err != nil {
			return apperrors.Wrap(err, "create prescription")
		}
		n, err := models.DeletePendingRequest(tx, requestID, hospitalID)
		if err != nil {
			return apperrors.Wrap(err, "delete request")
		}
		if n == 0 {
			return ErrRequestNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// resolveSaga writes a PENDING prescription that references the request,
// deletes the request, then issues the prescription. A crash between the
// steps leaves a PENDING prescription for the reconciler.
func (s *Service) resolveSaga(db *gorm.DB, requestID string, hospitalID uint, p *models.Prescription) (*models.Prescription, error) {
	req, err := models.GetPendingRequest(db, requestID, hospitalID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, apperrors.Wrap(err, "load request")
	}
	p.PatientName = req.RequesterName
	p.Status = models.PrescriptionPending
	if err := models.CreatePrescription(db, p); err != nil {
		return nil, apperrors.Wrap(err, "create prescription")
	}

	n, err := models.DeletePendingRequest(db, requestID, hospitalID)
	if err != nil {
		return nil, apperrors.Wrap(err, "delete request")
	}
	if n == 0 {
		// another resolver won the compare-and-delete
		if err := models.SetPrescriptionStatus(db, p.ID, models.PrescriptionVoid); err != nil {
			logger.Warn("void prescription failed", zap.Uint("prescription_id", p.ID), zap.Error(err))
		}
		return nil, ErrRequestNotFound
	}

	if err := models.SetPrescriptionStatus(db, p.ID, models.PrescriptionIssued); err != nil {
		logger.Warn("issue prescription deferred to reconciliation",
			zap.Uint("prescription_id", p.ID), zap.Error(err))
		return p, nil
	}
	p.Status = models.PrescriptionIssued
	return p, nil
}
