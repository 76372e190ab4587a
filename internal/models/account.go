package models

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"MediRoute/pkg/auth"
	apperrors "MediRoute/pkg/errors"
	"MediRoute/pkg/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RolePatient  Role = "PATIENT"
	RoleHospital Role = "HOSPITAL"
	RoleAdmin    Role = "ADMIN"
)

type AccountStatus string

const (
	StatusPending  AccountStatus = "PENDING"
	StatusApproved AccountStatus = "APPROVED"
)

const (
	SigHospitalApproved        = "hospital.approved"
	SigHospitalLocationChanged = "hospital.location_changed"
)

var (
	ErrAccountExists      = apperrors.WithCode(http.StatusConflict, "username or email already registered")
	ErrAccountNotFound    = apperrors.WithCode(http.StatusNotFound, "account not found")
	ErrInvalidCredentials = apperrors.WithCode(http.StatusUnauthorized, "invalid credentials")
	ErrNotHospital        = apperrors.WithCode(http.StatusBadRequest, "account is not a hospital")
)

// Account is the generic user entity. Hospitals are accounts with role
// HOSPITAL; only APPROVED hospitals with a location are dispatch targets.
type Account struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Username     string        `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email        string        `json:"email" gorm:"size:128;uniqueIndex;not null"`
	PasswordHash string        `json:"-" gorm:"size:128;not null"`
	Role         Role          `json:"role" gorm:"size:16;index;not null"`
	DisplayName  string        `json:"displayName" gorm:"size:128"`
	Phone        string        `json:"phone,omitempty" gorm:"size:32"`
	Status       AccountStatus `json:"status" gorm:"size:16;index;not null"`
	HospitalCode *string       `json:"hospitalCode,omitempty" gorm:"size:16;uniqueIndex"` // issued on approval
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	ApprovedAt   *time.Time    `json:"approvedAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (a *Account) IsHospital() bool { return a.Role == RoleHospital }

func (a *Account) HasLocation() bool { return a.Latitude != nil && a.Longitude != nil }

func (a *Account) IsApproved() bool { return a.Status == StatusApproved }

// Code returns the hospital code or "" before approval.
func (a *Account) Code() string {
	if a.HospitalCode == nil {
		return ""
	}
	return *a.HospitalCode
}

// CreateAccount stores a new account with a hashed password. Patients and
// admins are approved immediately; hospitals wait for an admin.
func CreateAccount(db *gorm.DB, acc *Account, password string) error {
	acc.Email = strings.ToLower(strings.TrimSpace(acc.Email))
	acc.Username = strings.TrimSpace(acc.Username)
	if acc.DisplayName == "" {
		acc.DisplayName = acc.Username
	}
	if acc.Role == RoleHospital {
		acc.Status = StatusPending
		acc.HospitalCode = nil
	} else {
		acc.Status = StatusApproved
	}

	var n int64
	if err := db.Model(&Account{}).
		Where("username = ? OR email = ?", acc.Username, acc.Email).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrAccountExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	return db.Create(acc).Error
}

func GetAccountByID(db *gorm.DB, id uint) (*Account, error) {
	var acc Account
	if err := db.First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// FindAccountForLogin resolves a login identifier. Precedence is fixed:
// hospital code, then email, then username; the first match wins.
func FindAccountForLogin(db *gorm.DB, identifier string) (*Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrAccountNotFound
	}
	lookups := []struct {
		column string
		value  string
	}{
		{"hospital_code", strings.ToUpper(identifier)},
		{"email", strings.ToLower(identifier)},
		{"username", identifier},
	}
	for _, l := range lookups {
		var acc Account
		err := db.Where(l.column+" = ?", l.value).Order("id").Limit(1).Find(&acc).Error
		if err != nil {
			return nil, err
		}
		if acc.ID != 0 {
			return &acc, nil
		}
	}
	return nil, ErrAccountNotFound
}

// Authenticate checks credentials. Unknown identifiers and wrong passwords
// are reported identically.
func Authenticate(db *gorm.DB, identifier, password string) (*Account, error) {
	acc, err := FindAccountForLogin(db, identifier)
	if err != nil {
		if apperrors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := auth.CheckPassword(acc.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// ListApprovedHospitals returns dispatch-eligible hospitals ordered by id so
// scans see a stable order on every backend.
func ListApprovedHospitals(db *gorm.DB) ([]Account, error) {
	var hospitals []Account
	err := db.Where("role = ? AND status = ? AND latitude IS NOT NULL AND longitude IS NOT NULL",
		RoleHospital, StatusApproved).
		Order("id").
		Find(&hospitals).Error
	return hospitals, err
}

func ListPendingHospitals(db *gorm.DB) ([]Account, error) {
	var hospitals []Account
	err := db.Where("role = ? AND status = ?", RoleHospital, StatusPending).
		Order("created_at").
		Find(&hospitals).Error
	return hospitals, err
}

// ApproveHospital marks a hospital approved and issues its short code.
// Approving an already approved hospital is a no-op returning the account.
func ApproveHospital(db *gorm.DB, id uint) (*Account, error) {
	acc, err := GetAccountByID(db, id)
	if err != nil {
		return nil, err
	}
	if !acc.IsHospital() {
		return nil, ErrNotHospital
	}
	if acc.IsApproved() {
		return acc, nil
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < 5; attempt++ {
		code := newHospitalCode()
		res := db.Model(&Account{}).
			Where("id = ? AND status = ?", id, StatusPending).
			Updates(map[string]interface{}{
				"status":        StatusApproved,
				"hospital_code": code,
				"approved_at":   now,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(res.Error.Error()), "unique") {
				continue
			}
			return nil, res.Error
		}
		acc, err = GetAccountByID(db, id)
		if err != nil {
			return nil, err
		}
		if res.RowsAffected == 1 {
			util.Sig().Emit(SigHospitalApproved, acc)
		}
		return acc, nil
	}
	return nil, apperrors.New("could not allocate a unique hospital code")
}

func newHospitalCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "HSP-" + strings.ToUpper(raw[:6])
}

// UpdateHospitalLocation sets the coordinate used by the locator.
func UpdateHospitalLocation(db *gorm.DB, id uint, lat, lng float64) (*Account, error) {
	acc, err := GetAccountByID(db, id)
	if err != nil {
		return nil, err
	}
	if !acc.IsHospital() {
		return nil, ErrNotHospital
	}
	if err := db.Model(acc).Updates(map[string]interface{}{"latitude": lat, "longitude": lng}).Error; err != nil {
		return nil, err
	}
	acc.Latitude, acc.Longitude = &lat, &lng
	util.Sig().Emit(SigHospitalLocationChanged, acc)
	return acc, nil
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet.
func EnsureAdmin(db *gorm.DB, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	var n int64
	if err := db.Model(&Account{}).Where("role = ?", RoleAdmin).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	admin := &Account{
		Username:    "admin",
		Email:       email,
		Role:        RoleAdmin,
		DisplayName: "Administrator",
	}
	if err := CreateAccount(db, admin, password); err != nil {
		return false, err
	}
	return true, nil
}
