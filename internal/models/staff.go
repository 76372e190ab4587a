package models

import (
	"net/http"

	apperrors "MediRoute/pkg/errors"

	"gorm.io/gorm"
)

var ErrStaffNotFound = apperrors.WithCode(http.StatusNotFound, "staff member not found")

type Staff struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	HospitalID uint   `json:"hospitalId" gorm:"index;not null"`
	Name       string `json:"name" gorm:"size:128;not null"`
	Role       string `json:"role" gorm:"size:64"`
	Specialty  string `json:"specialty" gorm:"size:128"`
	Phone      string `json:"phone" gorm:"size:32"`
}

func ListStaff(db *gorm.DB, hospitalID uint) ([]Staff, error) {
	var list []Staff
	err := db.Where("hospital_id = ?", hospitalID).Order("name").Find(&list).Error
	return list, err
}

func CreateStaff(db *gorm.DB, s *Staff) error {
	return db.Create(s).Error
}

// DeleteStaff removes a staff member of hospitalID; others' staff are not found.
func DeleteStaff(db *gorm.DB, id, hospitalID uint) error {
	res := db.Where("id = ? AND hospital_id = ?", id, hospitalID).Delete(&Staff{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaffNotFound
	}
	return nil
}
