package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"gorm.io/gorm"
)

// DepartmentReferences counts the rows that block a department delete
type DepartmentReferences struct {
	Doctors       int64 `json:"doctors"`
	HealthRecords int64 `json:"health_records"`
	Appointments  int64 `json:"appointments"`
}

// Total sums every reference
func (r DepartmentReferences) Total() int64 {
	return r.Doctors + r.HealthRecords + r.Appointments
}

// DepartmentRepository handles department database operations
type DepartmentRepository struct{}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{}
}

// Create inserts a department
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if err := database.Conn(ctx).Create(dept).Error; err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id uint) (*models.Department, error) {
	var dept models.Department
	if err := database.Conn(ctx).First(&dept, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &dept, nil
}

// GetByName retrieves a department by its unique name
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*models.Department, error) {
	var dept models.Department
	if err := database.Conn(ctx).Where("name = ?", name).First(&dept).Error; err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &dept, nil
}

// List retrieves every department ordered by name
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	var depts []models.Department
	if err := database.Conn(ctx).Order("name ASC").Find(&depts).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return depts, nil
}

// Update saves a department
func (r *DepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	if err := database.Conn(ctx).Save(dept).Error; err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	return nil
}

// References counts doctors, health records and appointments pointing at a department
func (r *DepartmentRepository) References(ctx context.Context, id uint) (DepartmentReferences, error) {
	var refs DepartmentReferences
	db := database.Conn(ctx)
	if err := db.Model(&models.Doctor{}).Where("department_id = ?", id).Count(&refs.Doctors).Error; err != nil {
		return refs, fmt.Errorf("failed to count department doctors: %w", err)
	}
	if err := db.Model(&models.HealthRecord{}).Where("department_id = ?", id).Count(&refs.HealthRecords).Error; err != nil {
		return refs, fmt.Errorf("failed to count department health records: %w", err)
	}
	if err := db.Model(&models.Appointment{}).Where("department_id = ?", id).Count(&refs.Appointments).Error; err != nil {
		return refs, fmt.Errorf("failed to count department appointments: %w", err)
	}
	return refs, nil
}

// Delete removes a department
func (r *DepartmentRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx).Delete(&models.Department{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete department: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete department: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
