package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestType string

const (
	RequestTypeSOS           RequestType = "SOS"
	RequestTypeDoctorConnect RequestType = "DOCTOR_CONNECT"
)

type Criticality string

const (
	CriticalityHigh   Criticality = "HIGH"
	CriticalityMedium Criticality = "MEDIUM"
	CriticalityLow    Criticality = "LOW"
)

// Rank orders criticality for the queue. Unknown values rank below LOW.
func (c Criticality) Rank() int {
	switch c {
	case CriticalityHigh:
		return 3
	case CriticalityMedium:
		return 2
	case CriticalityLow:
		return 1
	}
	return 0
}

// ParseCriticality accepts any casing of HIGH, MEDIUM or LOW.
func ParseCriticality(s string) (Criticality, bool) {
	c := Criticality(strings.ToUpper(strings.TrimSpace(s)))
	if c.Rank() == 0 {
		return "", false
	}
	return c, true
}

type RequestStatus string

const RequestPending RequestStatus = "PENDING"

// Request is an SOS or doctor-connect request routed to one hospital.
// It lives only while pending; resolution deletes it.
type Request struct {
	ID              string        `json:"id" gorm:"primaryKey;size:36"`
	Type            RequestType   `json:"type" gorm:"size:20;not null"`
	RequesterName   string        `json:"patientName" gorm:"size:128"`
	Reason          string        `json:"reason" gorm:"type:text"`
	Criticality     Criticality   `json:"criticality" gorm:"size:10"`
	CriticalityRank int           `json:"-" gorm:"index:idx_requests_queue,priority:2"`
	Latitude        float64       `json:"latitude"`
	Longitude       float64       `json:"longitude"`
	HospitalID      uint          `json:"hospitalId" gorm:"index:idx_requests_queue,priority:1;not null"`
	DistanceKm      float64       `json:"distanceKm"`
	Status          RequestStatus `json:"status" gorm:"size:16;not null"`
	CreatedAt       time.Time     `json:"createdAt" gorm:"index:idx_requests_queue,priority:3"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RequestPending
	}
	r.CriticalityRank = r.Criticality.Rank()
	return nil
}

func CreateRequest(db *gorm.DB, r *Request) error {
	return db.Create(r).Error
}

// ListPendingRequests returns the hospital's queue ordered by criticality
// rank descending, then creation time ascending.
func ListPendingRequests(db *gorm.DB, hospitalID uint) ([]Request, error) {
	var requests []Request
	err := db.Where("hospital_id = ? AND status = ?", hospitalID, RequestPending).
		Order("criticality_rank DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&requests).Error
	return requests, err
}

// GetPendingRequest loads a pending request owned by hospitalID. Requests
// of other hospitals are reported as absent.
func GetPendingRequest(db *gorm.DB, id string, hospitalID uint) (*Request, error) {
	var r Request
	err := db.Where("id = ? AND hospital_id = ? AND status = ?", id, hospitalID, RequestPending).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeletePendingRequest removes the request only if it still belongs to
// hospitalID and returns how many rows went away.
func DeletePendingRequest(db *gorm.DB, id string, hospitalID uint) (int64, error) {
	res := db.Where("id = ? AND hospital_id = ? AND status = ?", id, hospitalID, RequestPending).
		Delete(&Request{})
	return res.RowsAffected, res.Error
}

func RequestExists(db *gorm.DB, id string) (bool, error) {
	var n int64
	if err := db.Model(&Request{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountPendingRequests counts queued requests across all hospitals.
func CountPendingRequests(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&Request{}).Where("status = ?", RequestPending).Count(&n).Error
	return n, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
