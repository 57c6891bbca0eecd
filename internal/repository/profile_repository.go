package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
)

// ProfileRepository handles doctor and patient profile rows
type ProfileRepository struct{}

// NewProfileRepository creates a new profile repository
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{}
}

// CreateDoctorProfile inserts a doctor profile
func (r *ProfileRepository) CreateDoctorProfile(ctx context.Context, profile *models.DoctorProfile) error {
	if err := database.Conn(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create doctor profile: %w", err)
	}
	return nil
}

// CreatePatientProfile inserts a patient profile
func (r *ProfileRepository) CreatePatientProfile(ctx context.Context, profile *models.PatientProfile) error {
	if err := database.Conn(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create patient profile: %w", err)
	}
	return nil
}

// GetDoctorProfile retrieves the doctor profile of a user
func (r *ProfileRepository) GetDoctorProfile(ctx context.Context, userID uint) (*models.DoctorProfile, error) {
	var profile models.DoctorProfile
	if err := database.Conn(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to get doctor profile: %w", err)
	}
	return &profile, nil
}

// GetPatientProfile retrieves the patient profile of a user
func (r *ProfileRepository) GetPatientProfile(ctx context.Context, userID uint) (*models.PatientProfile, error) {
	var profile models.PatientProfile
	if err := database.Conn(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to get patient profile: %w", err)
	}
	return &profile, nil
}

// CountForUser returns how many profiles of each kind a user has
func (r *ProfileRepository) CountForUser(ctx context.Context, userID uint) (doctors, patients int64, err error) {
	db := database.Conn(ctx)
	if err = db.Model(&models.DoctorProfile{}).Where("user_id = ?", userID).Count(&doctors).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count doctor profiles: %w", err)
	}
	if err = db.Model(&models.PatientProfile{}).Where("user_id = ?", userID).Count(&patients).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count patient profiles: %w", err)
	}
	return doctors, patients, nil
}

// DeleteForUser removes every profile of a user
func (r *ProfileRepository) DeleteForUser(ctx context.Context, userID uint) error {
	db := database.Conn(ctx)
	if err := db.Where("user_id = ?", userID).Delete(&models.DoctorProfile{}).Error; err != nil {
		return fmt.Errorf("failed to delete doctor profile: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.PatientProfile{}).Error; err != nil {
		return fmt.Errorf("failed to delete patient profile: %w", err)
	}
	return nil
}

// SetSpecialization updates a doctor profile's specialization
func (r *ProfileRepository) SetSpecialization(ctx context.Context, profileID uint, specialization string) error {
	if err := database.Conn(ctx).Model(&models.DoctorProfile{}).
		Where("id = ?", profileID).
		Update("specialization", specialization).Error; err != nil {
		return fmt.Errorf("failed to update doctor profile: %w", err)
	}
	return nil
}

// SetPatientNationalID copies the national id onto a user's patient profile
func (r *ProfileRepository) SetPatientNationalID(ctx context.Context, userID uint, nationalID string) error {
	if err := database.Conn(ctx).Model(&models.PatientProfile{}).
		Where("user_id = ?", userID).
		Update("national_id", nationalID).Error; err != nil {
		return fmt.Errorf("failed to update patient profile: %w", err)
	}
	return nil
}
