package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"gorm.io/gorm"
)

// HealthRecordQuery narrows a health record list. Zero values do not filter.
type HealthRecordQuery struct {
	PatientID    uint
	DoctorID     uint
	DepartmentID uint
	Limit        int
	Offset       int
}

// HealthRecordRepository handles health record database operations
type HealthRecordRepository struct{}

// NewHealthRecordRepository creates a new health record repository
func NewHealthRecordRepository() *HealthRecordRepository {
	return &HealthRecordRepository{}
}

// Create inserts a health record
func (r *HealthRecordRepository) Create(ctx context.Context, record *models.HealthRecord) error {
	if err := database.Conn(ctx).Omit("Patient", "Doctor", "Department").Create(record).Error; err != nil {
		return fmt.Errorf("failed to create health record: %w", err)
	}
	return nil
}

// GetByID retrieves a health record with its patient, doctor and department
func (r *HealthRecordRepository) GetByID(ctx context.Context, id uint) (*models.HealthRecord, error) {
	var record models.HealthRecord
	if err := database.Conn(ctx).
		Preload("Patient").
		Preload("Doctor").
		Preload("Department").
		First(&record, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}
	return &record, nil
}

// List retrieves health records inside scope, newest first
func (r *HealthRecordRepository) List(ctx context.Context, scope policy.Scope, q HealthRecordQuery) ([]models.HealthRecord, int64, error) {
	query := scopePatients(database.Conn(ctx).Model(&models.HealthRecord{}), scope, "health_records.patient_id")
	if q.PatientID != 0 {
		query = query.Where("health_records.patient_id = ?", q.PatientID)
	}
	if q.DoctorID != 0 {
		query = query.Where("health_records.doctor_id = ?", q.DoctorID)
	}
	if q.DepartmentID != 0 {
		query = query.Where("health_records.department_id = ?", q.DepartmentID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count health records: %w", err)
	}

	var records []models.HealthRecord
	query = query.
		Preload("Patient").
		Preload("Doctor").
		Preload("Department").
		Order("health_records.record_date DESC, health_records.id DESC")
	if err := paginate(query, q.Limit, q.Offset).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list health records: %w", err)
	}
	return records, total, nil
}

// Update saves a health record; BMI is recomputed by the model hook
func (r *HealthRecordRepository) Update(ctx context.Context, record *models.HealthRecord) error {
	if err := database.Conn(ctx).Omit("Patient", "Doctor", "Department").Save(record).Error; err != nil {
		return fmt.Errorf("failed to update health record: %w", err)
	}
	return nil
}

// Delete removes one health record
func (r *HealthRecordRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx).Delete(&models.HealthRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete health record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete health record: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteByPatient removes every health record of a patient and returns how many went
func (r *HealthRecordRepository) DeleteByPatient(ctx context.Context, patientID uint) (int64, error) {
	result := database.Conn(ctx).Where("patient_id = ?", patientID).Delete(&models.HealthRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete patient health records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountByPatient counts the health records of a patient
func (r *HealthRecordRepository) CountByPatient(ctx context.Context, patientID uint) (int64, error) {
	var count int64
	if err := database.Conn(ctx).Model(&models.HealthRecord{}).Where("patient_id = ?", patientID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count health records: %w", err)
	}
	return count, nil
}
