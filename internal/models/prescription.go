package models

import (
	"time"

	"gorm.io/gorm"
)

type PrescriptionStatus string

const (
	PrescriptionIssued      PrescriptionStatus = "ISSUED"
	PrescriptionPending     PrescriptionStatus = "PENDING"
	PrescriptionVoid        PrescriptionStatus = "VOID"
	PrescriptionNeedsReview PrescriptionStatus = "NEEDS_REVIEW"
)

// Prescription is the durable outcome of resolving a request or of
// prescribing for an admitted patient.
type Prescription struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	PatientName  string             `json:"patientName" gorm:"size:128;index"`
	PatientID    *uint              `json:"patientId,omitempty" gorm:"index"`
	Text         string             `json:"prescriptionText" gorm:"type:text;not null"`
	HospitalID   uint               `json:"hospitalId" gorm:"index;not null"`
	HospitalName string             `json:"hospitalName" gorm:"size:128"`
	StaffName    string             `json:"staffName" gorm:"size:128"`
	RequestID    *string            `json:"requestId,omitempty" gorm:"size:36;index"`
	Status       PrescriptionStatus `json:"status" gorm:"size:16;index;not null"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func CreatePrescription(db *gorm.DB, p *Prescription) error {
	if p.Status == "" {
		p.Status = PrescriptionIssued
	}
	return db.Create(p).Error
}

func SetPrescriptionStatus(db *gorm.DB, id uint, status PrescriptionStatus) error {
	return db.Model(&Prescription{}).Where("id = ?", id).Update("status", status).Error
}

// ListHospitalPrescriptions returns visible prescriptions newest first.
func ListHospitalPrescriptions(db *gorm.DB, hospitalID uint) ([]Prescription, error) {
	var list []Prescription
	err := db.Where("hospital_id = ? AND status = ?", hospitalID, PrescriptionIssued).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, err
}

// ListPatientPrescriptions matches on the patient's display name, which is
// how requests record the requester.
func ListPatientPrescriptions(db *gorm.DB, patientName string) ([]Prescription, error) {
	var list []Prescription
	err := db.Where("patient_name = ? AND status = ?", patientName, PrescriptionIssued).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, err
}

// ListPendingPrescriptions returns saga-mode prescriptions still waiting for
// their request deletion to be confirmed.
func ListPendingPrescriptions(db *gorm.DB) ([]Prescription, error) {
	var list []Prescription
	err := db.Where("status = ?", PrescriptionPending).Order("id").Find(&list).Error
	return list, err
}

func CountPrescriptionsForRequest(db *gorm.DB, requestID string) (int64, error) {
	var n int64
	err := db.Model(&Prescription{}).Where("request_id = ?", requestID).Count(&n).Error
	return n, err
}

func CountIssuedForRequest(db *gorm.DB, requestID string) (int64, error) {
	var n int64
	err := db.Model(&Prescription{}).
		Where("request_id = ? AND status = ?", requestID, PrescriptionIssued).
		Count(&n).Error
	return n, err
}
