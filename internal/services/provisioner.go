package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/metrics"
)

const msgUsernameTaken = "A user with that username already exists."

// provisioner creates login accounts together with their role profile. Every
// method must run inside database.WithTransaction.
type provisioner struct {
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	patients *repository.PatientRepository
	hasher   *auth.Hasher
}

// checkUsername rejects a login name that is already taken
func (p *provisioner) checkUsername(ctx context.Context, username string) error {
	taken, err := p.users.UsernameTaken(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return fieldError("username", msgUsernameTaken)
	}
	return nil
}

// createUser inserts the user with a hashed password, or an unusable one when
// password is blank, then the profile its role calls for
func (p *provisioner) createUser(ctx context.Context, user *models.User, password string, profileName string) error {
	if !database.InTransaction(ctx) {
		return fmt.Errorf("account provisioning must run inside a transaction")
	}
	if strings.TrimSpace(user.Username) == "" {
		return fieldError("username", "This field is required.")
	}
	if err := p.checkUsername(ctx, user.Username); err != nil {
		return err
	}

	if password != "" {
		hash, err := p.hasher.Hash(password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	} else {
		user.PasswordHash = auth.Unusable()
	}

	if err := p.users.Create(ctx, user); err != nil {
		return duplicate(err, "username", msgUsernameTaken)
	}
	if err := p.provisionProfile(ctx, user, profileName); err != nil {
		return err
	}

	metrics.AccountsProvisioned.WithLabelValues(string(user.Role)).Inc()
	return nil
}

// provisionProfile stamps out exactly one profile for doctor and patient
// accounts. The public id derives from the user primary key.
func (p *provisioner) provisionProfile(ctx context.Context, user *models.User, fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		fullName = user.FullName()
	}

	switch user.Role {
	case models.RoleDoctor:
		profile := &models.DoctorProfile{
			UserID:         user.ID,
			FullName:       fullName,
			Specialization: models.DefaultSpecialization,
			PublicID:       models.FormatProfileID(models.DoctorProfilePrefix, user.ID),
		}
		return p.profiles.CreateDoctorProfile(ctx, profile)
	case models.RolePatient:
		profile := &models.PatientProfile{
			UserID:   user.ID,
			FullName: fullName,
			PublicID: models.FormatProfileID(models.PatientProfilePrefix, user.ID),
		}
		return p.profiles.CreatePatientProfile(ctx, profile)
	default:
		return nil
	}
}

// provisionPatient creates the patient login, its profile and the linked
// patient row. A blank public patient id is generated from today's date.
func (p *provisioner) provisionPatient(ctx context.Context, patient *models.Patient, username, password string, now time.Time) (*models.User, error) {
	if patient.PatientID == "" {
		id, err := generatePatientID(ctx, p.patients, now.UTC().Format("20060102"))
		if err != nil {
			return nil, err
		}
		patient.PatientID = id
	}
	if err := checkPatientUnique(ctx, p.patients, patient); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Email:     patient.Email,
		FirstName: patient.FirstName,
		LastName:  patient.LastName,
		Role:      models.RolePatient,
		IsActive:  true,
	}
	if err := p.createUser(ctx, user, password, patient.FullName()); err != nil {
		return nil, err
	}
	if patient.NationalID != nil {
		if err := p.profiles.SetPatientNationalID(ctx, user.ID, *patient.NationalID); err != nil {
			return nil, err
		}
	}

	patient.UserID = &user.ID
	if err := p.patients.Create(ctx, patient); err != nil {
		return nil, patientDuplicate(err)
	}
	return user, nil
}

// generatePatientID returns PAT + YYYYMMDD + four random upper-case characters
func generatePatientID(ctx context.Context, patients *repository.PatientRepository, day string) (string, error) {
	for i := 0; i < 10; i++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
		candidate := models.PatientProfilePrefix + day + suffix
		taken, err := patients.PatientIDTaken(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique patient id")
}

// splitName splits "First Middle Last" into first and remaining names
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
