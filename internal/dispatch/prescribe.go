package dispatch

import (
	"context"
	"strings"

	"MediRoute/internal/models"
	apperrors "MediRoute/pkg/errors"
)

// PrescribeAdmitted writes a prescription for a patient admitted at
// hospitalID. Staff name defaults as in Resolve.
func (s *Service) PrescribeAdmitted(ctx context.Context, hospitalID, patientID uint, text, staffName string) (*models.Prescription, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPrescription
	}
	staffName = strings.TrimSpace(staffName)
	if staffName == "" {
		staffName = s.staffName
	}

	db := s.db.WithContext(ctx)
	patient, err := models.GetPatient(db, patientID, hospitalID)
	if err != nil {
		return nil, err
	}
	if patient.Status != models.AdmissionAdmitted {
		return nil, models.ErrPatientDischarged
	}
	hospital, err := models.GetAccountByID(db, hospitalID)
	if err != nil {
		return nil, err
	}

	p := &models.Prescription{
		PatientName:  patient.Name,
		PatientID:    &patient.ID,
		Text:         text,
		HospitalID:   hospitalID,
		HospitalName: hospital.DisplayName,
		StaffName:    staffName,
		Status:       models.PrescriptionIssued,
	}
	if err := models.CreatePrescription(db, p); err != nil {
		return nil, apperrors.Wrap(err, "create prescription")
	}
	return p, nil
}
