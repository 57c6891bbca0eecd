package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"gorm.io/gorm"
)

// DoctorReferences counts the rows that block a doctor delete
type DoctorReferences struct {
	HealthRecords int64 `json:"health_records"`
	Appointments  int64 `json:"appointments"`
}

// Total sums every reference
func (r DoctorReferences) Total() int64 {
	return r.HealthRecords + r.Appointments
}

// DoctorRepository handles doctor roster database operations
type DoctorRepository struct{}

// NewDoctorRepository creates a new doctor repository
func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{}
}

// Create inserts a doctor
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if err := database.Conn(ctx).Create(doctor).Error; err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

// GetByID retrieves a doctor with its department
func (r *DoctorRepository) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := database.Conn(ctx).Preload("Department").First(&doctor, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

// GetByUserID retrieves the roster entry linked to a login
func (r *DoctorRepository) GetByUserID(ctx context.Context, userID uint) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := database.Conn(ctx).Where("user_id = ?", userID).First(&doctor).Error; err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

// List retrieves doctors ordered by name, optionally within one department
func (r *DoctorRepository) List(ctx context.Context, departmentID uint) ([]models.Doctor, error) {
	var doctors []models.Doctor
	query := database.Conn(ctx).Preload("Department").Order("full_name ASC, id ASC")
	if departmentID != 0 {
		query = query.Where("department_id = ?", departmentID)
	}
	if err := query.Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// Update saves a doctor
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	if err := database.Conn(ctx).Omit("Department", "User").Save(doctor).Error; err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return nil
}

// References counts health records and appointments pointing at a doctor
func (r *DoctorRepository) References(ctx context.Context, id uint) (DoctorReferences, error) {
	var refs DoctorReferences
	db := database.Conn(ctx)
	if err := db.Model(&models.HealthRecord{}).Where("doctor_id = ?", id).Count(&refs.HealthRecords).Error; err != nil {
		return refs, fmt.Errorf("failed to count doctor health records: %w", err)
	}
	if err := db.Model(&models.Appointment{}).Where("doctor_id = ?", id).Count(&refs.Appointments).Error; err != nil {
		return refs, fmt.Errorf("failed to count doctor appointments: %w", err)
	}
	return refs, nil
}

// Delete removes a doctor
func (r *DoctorRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx).Delete(&models.Doctor{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete doctor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete doctor: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
