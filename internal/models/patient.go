package models

import (
	"errors"
	"net/http"
	"time"

	apperrors "MediRoute/pkg/errors"

	"gorm.io/gorm"
)

type AdmissionStatus string

const (
	AdmissionAdmitted   AdmissionStatus = "ADMITTED"
	AdmissionDischarged AdmissionStatus = "DISCHARGED"
)

var (
	ErrPatientNotFound   = apperrors.WithCode(http.StatusNotFound, "patient not found")
	ErrPatientDischarged = apperrors.WithCode(http.StatusConflict, "patient already discharged")
)

// Patient is an admission record kept by a hospital.
type Patient struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	HospitalID   uint            `json:"hospitalId" gorm:"index;not null"`
	Name         string          `json:"name" gorm:"size:128;not null"`
	Age          int             `json:"age"`
	Gender       string          `json:"gender" gorm:"size:16"`
	Ailment      string          `json:"ailment" gorm:"type:text"`
	Status       AdmissionStatus `json:"status" gorm:"size:16;index;not null"`
	AdmittedAt   time.Time       `json:"admittedAt"`
	DischargedAt *time.Time      `json:"dischargedAt,omitempty"`
}

func ListPatients(db *gorm.DB, hospitalID uint, status AdmissionStatus) ([]Patient, error) {
	var list []Patient
	q := db.Where("hospital_id = ?", hospitalID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("admitted_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

func AdmitPatient(db *gorm.DB, p *Patient) error {
	p.Status = AdmissionAdmitted
	if p.AdmittedAt.IsZero() {
		p.AdmittedAt = time.Now().UTC()
	}
	p.DischargedAt = nil
	return db.Create(p).Error
}

func GetPatient(db *gorm.DB, id, hospitalID uint) (*Patient, error) {
	var p Patient
	if err := db.Where("id = ? AND hospital_id = ?", id, hospitalID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func DischargePatient(db *gorm.DB, id, hospitalID uint) (*Patient, error) {
	p, err := GetPatient(db, id, hospitalID)
	if err != nil {
		return nil, err
	}
	if p.Status == AdmissionDischarged {
		return nil, ErrPatientDischarged
	}
	now := time.Now().UTC()
	if err := db.Model(p).Updates(map[string]interface{}{
		"status":        AdmissionDischarged,
		"discharged_at": now,
	}).Error; err != nil {
		return nil, err
	}
	p.Status = AdmissionDischarged
	p.DischargedAt = &now
	return p, nil
}
