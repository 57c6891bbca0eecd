package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/reporting"
	"gorm.io/gorm"
)

// PatientQuery narrows a patient list. Zero values do not filter.
type PatientQuery struct {
	Search       string
	Gender       string
	BloodType    string
	DOB          *reporting.DOBRange
	DepartmentID uint
	Diagnosis    string
	BMIMin       *float64
	BMIMax       *float64
	Limit        int
	Offset       int
}

// PatientRepository handles patient database operations
type PatientRepository struct{}

// NewPatientRepository creates a new patient repository
func NewPatientRepository() *PatientRepository {
	return &PatientRepository{}
}

// Create inserts a patient
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if err := database.Conn(ctx).Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// GetByID retrieves a patient by internal ID
func (r *PatientRepository) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := database.Conn(ctx).First(&patient, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

// GetByUserID retrieves the patient record linked to a login
func (r *PatientRepository) GetByUserID(ctx context.Context, userID uint) (*models.Patient, error) {
	var patient models.Patient
	if err := database.Conn(ctx).Where("user_id = ?", userID).First(&patient).Error; err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

// PatientIDTaken reports whether a public patient id is in use by another row
func (r *PatientRepository) PatientIDTaken(ctx context.Context, patientID string, exceptID uint) (bool, error) {
	return r.taken(ctx, "patient_id", patientID, exceptID)
}

// NationalIDTaken reports whether a national id is in use by another row
func (r *PatientRepository) NationalIDTaken(ctx context.Context, nationalID string, exceptID uint) (bool, error) {
	return r.taken(ctx, "national_id", nationalID, exceptID)
}

func (r *PatientRepository) taken(ctx context.Context, column, value string, exceptID uint) (bool, error) {
	var count int64
	query := database.Conn(ctx).Model(&models.Patient{}).Where(column+" = ?", value)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s: %w", column, err)
	}
	return count > 0, nil
}

// Treats reports whether a doctor has at least one health record with a patient
func (r *PatientRepository) Treats(ctx context.Context, doctorID, patientID uint) (bool, error) {
	var count int64
	if err := database.Conn(ctx).Model(&models.HealthRecord{}).
		Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check treatment link: %w", err)
	}
	return count > 0, nil
}

// List retrieves the patients inside scope matching q, ordered by name, and
// the total number of matches before pagination
func (r *PatientRepository) List(ctx context.Context, scope policy.Scope, q PatientQuery) ([]models.Patient, int64, error) {
	query := r.filter(database.Conn(ctx).Model(&models.Patient{}), scope, q)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	var patients []models.Patient
	query = query.Order("patients.last_name ASC, patients.first_name ASC, patients.id ASC")
	if err := paginate(query, q.Limit, q.Offset).Find(&patients).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *PatientRepository) filter(query *gorm.DB, scope policy.Scope, q PatientQuery) *gorm.DB {
	query = scopePatients(query, scope, "patients.id")
	sub := func() *gorm.DB {
		return query.Session(&gorm.Session{NewDB: true})
	}

	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		like := "%" + s + "%"
		query = query.Where(
			"LOWER(patients.patient_id) LIKE ? OR LOWER(patients.first_name) LIKE ? OR LOWER(patients.last_name) LIKE ? OR LOWER(patients.email) LIKE ?",
			like, like, like, like,
		)
	}
	if q.Gender != "" {
		query = query.Where("patients.gender = ?", q.Gender)
	}
	if q.BloodType != "" {
		query = query.Where("patients.blood_type = ?", q.BloodType)
	}
	if q.DOB != nil {
		if q.DOB.After != nil {
			query = query.Where("patients.date_of_birth > ?", *q.DOB.After)
		}
		if q.DOB.OnOrBefore != nil {
			query = query.Where("patients.date_of_birth <= ?", *q.DOB.OnOrBefore)
		}
	}
	if q.DepartmentID != 0 {
		records := sub().Table("health_records").Select("patient_id").Where("department_id = ?", q.DepartmentID)
		appts := sub().Table("appointments").Select("patient_id").
			Where("department_id = ? AND patient_id IS NOT NULL", q.DepartmentID)
		query = query.Where("patients.id IN (?) OR patients.id IN (?)", records, appts)
	}
	if q.Diagnosis != "" {
		query = query.Where("patients.id IN (?)",
			sub().Table("health_records").Select("patient_id").Where("diagnosis = ?", q.Diagnosis))
	}
	if q.BMIMin != nil || q.BMIMax != nil {
		bmi := sub().Table("health_records").Select("patient_id").Where("bmi IS NOT NULL")
		if q.BMIMin != nil {
			bmi = bmi.Where("bmi >= ?", *q.BMIMin)
		}
		if q.BMIMax != nil {
			bmi = bmi.Where("bmi < ?", *q.BMIMax)
		}
		query = query.Where("patients.id IN (?)", bmi)
	}
	return query
}

// Update saves the editable patient fields. The registration date is never rewritten.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	if err := database.Conn(ctx).Omit("User", "RegistrationDate").Save(patient).Error; err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

// Delete removes a patient row
func (r *PatientRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx).Delete(&models.Patient{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete patient: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete patient: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
