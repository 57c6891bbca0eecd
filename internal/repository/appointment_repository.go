package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"gorm.io/gorm"
)

// AppointmentQuery narrows an appointment list. Zero values do not filter.
type AppointmentQuery struct {
	PatientID    uint
	DoctorID     uint
	DepartmentID uint
	Limit        int
	Offset       int
}

// AppointmentRepository handles appointment database operations
type AppointmentRepository struct{}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{}
}

// Create inserts an appointment
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if err := database.Conn(ctx).Omit("Patient", "Doctor", "Department").Create(appt).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID retrieves an appointment with its doctor and department
func (r *AppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appt models.Appointment
	if err := database.Conn(ctx).
		Preload("Doctor").
		Preload("Department").
		First(&appt, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// List retrieves appointments inside scope, soonest first
func (r *AppointmentRepository) List(ctx context.Context, scope policy.Scope, q AppointmentQuery) ([]models.Appointment, int64, error) {
	query := scopeAppointments(database.Conn(ctx).Model(&models.Appointment{}), scope)
	if q.PatientID != 0 {
		query = query.Where("appointments.patient_id = ?", q.PatientID)
	}
	if q.DoctorID != 0 {
		query = query.Where("appointments.doctor_id = ?", q.DoctorID)
	}
	if q.DepartmentID != 0 {
		query = query.Where("appointments.department_id = ?", q.DepartmentID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	var appts []models.Appointment
	query = query.
		Preload("Doctor").
		Preload("Department").
		Order("appointments.appointment_date ASC, appointments.id ASC")
	if err := paginate(query, q.Limit, q.Offset).Find(&appts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, total, nil
}

// Update saves an appointment
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	if err := database.Conn(ctx).Omit("Patient", "Doctor", "Department").Save(appt).Error; err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// Delete removes an appointment
func (r *AppointmentRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx).Delete(&models.Appointment{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete appointment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete appointment: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// DetachPatient clears the patient link on every appointment of a patient,
// keeping the name and email snapshots, and returns how many were touched
func (r *AppointmentRepository) DetachPatient(ctx context.Context, patientID uint) (int64, error) {
	result := database.Conn(ctx).Model(&models.Appointment{}).
		Where("patient_id = ?", patientID).
		Update("patient_id", nil)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to detach patient appointments: %w", result.Error)
	}
	return result.RowsAffected, nil
}
