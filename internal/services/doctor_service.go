package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const minPasswordLength = 8

// DoctorService handles the doctor roster
type DoctorService struct {
	provisioner
	doctors     *repository.DoctorRepository
	departments *repository.DepartmentRepository
	auditRepo   *repository.AuditRepository
	policy      *policy.Engine
}

// NewDoctorService creates a new doctor service
func NewDoctorService(
	doctorRepo *repository.DoctorRepository,
	departmentRepo *repository.DepartmentRepository,
	userRepo *repository.UserRepository,
	profileRepo *repository.ProfileRepository,
	auditRepo *repository.AuditRepository,
	hasher *auth.Hasher,
	engine *policy.Engine,
) *DoctorService {
	return &DoctorService{
		provisioner: provisioner{users: userRepo, profiles: profileRepo, hasher: hasher},
		doctors:     doctorRepo,
		departments: departmentRepo,
		auditRepo:   auditRepo,
		policy:      engine,
	}
}

// List returns the roster, optionally for one department
func (s *DoctorService) List(ctx context.Context, actor policy.Principal, departmentID uint) ([]models.Doctor, error) {
	if err := s.policy.Authorize(actor, policy.ResourceDoctor, policy.ActionList).Err(); err != nil {
		return nil, err
	}
	return s.doctors.List(ctx, departmentID)
}

// Get returns one doctor
func (s *DoctorService) Get(ctx context.Context, actor policy.Principal, id uint) (*models.Doctor, error) {
	if err := s.policy.Authorize(actor, policy.ResourceDoctor, policy.ActionView).Err(); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "doctor")
	}
	return doctor, nil
}

// Create adds a doctor. With a username it also provisions the doctor's
// login and profile in the same transaction.
func (s *DoctorService) Create(ctx context.Context, actor policy.Principal, req *models.DoctorRequest) (*models.Doctor, error) {
	ctx, span := telemetry.Start(ctx, "DoctorService.Create")
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceDoctor, policy.ActionCreate).Err(); err != nil {
		return nil, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	if req.Username != "" && len(req.Password1) < minPasswordLength {
		return nil, fieldError("password1", fmt.Sprintf("Ensure this value has at least %d characters.", minPasswordLength))
	}

	doctor := &models.Doctor{
		FullName:     req.FullName,
		DepartmentID: req.DepartmentID,
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
	}

	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		if req.Username == "" {
			return s.doctors.Create(ctx, doctor)
		}

		first, last := splitName(req.FullName)
		user := &models.User{
			Username:  req.Username,
			Email:     doctor.Email,
			FirstName: first,
			LastName:  last,
			Role:      models.RoleDoctor,
			IsActive:  true,
		}
		if err := s.createUser(ctx, user, req.Password1, req.FullName); err != nil {
			return err
		}
		doctor.UserID = &user.ID
		if err := s.doctors.Create(ctx, doctor); err != nil {
			return err
		}
		return appendAudit(ctx, s.auditRepo, actor.ActorID(), models.AuditCreateDoctorAccount, user.Username, map[string]interface{}{
			"role":              string(user.Role),
			"doctor_id":         doctor.ID,
			"password_provided": true,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("doctor_id", doctor.ID).Bool("with_account", doctor.UserID != nil).Msg("Doctor created")
	return doctor, nil
}

// Update edits a doctor's roster fields. The login link never changes here.
func (s *DoctorService) Update(ctx context.Context, actor policy.Principal, id uint, req *models.DoctorRequest) (*models.Doctor, error) {
	if err := s.policy.Authorize(actor, policy.ResourceDoctor, policy.ActionUpdate).Err(); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "doctor")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Username, req.Password1, req.Password2 = "", "", ""
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	doctor.FullName = req.FullName
	doctor.DepartmentID = req.DepartmentID
	doctor.Department = nil
	doctor.Email = strings.TrimSpace(req.Email)
	doctor.Phone = strings.TrimSpace(req.Phone)
	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *DoctorService) validate(ctx context.Context, req *models.DoctorRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
		if repository.IsNotFound(err) {
			return fieldError("department_id", "Select a valid choice.")
		}
		return err
	}
	return nil
}

// DeletePreview returns the doctor and the references that would block its delete
func (s *DoctorService) DeletePreview(ctx context.Context, actor policy.Principal, id uint) (*models.Doctor, repository.DoctorReferences, error) {
	var refs repository.DoctorReferences
	if err := s.policy.Authorize(actor, policy.ResourceDoctor, policy.ActionDelete).Err(); err != nil {
		return nil, refs, err
	}
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, refs, notFound(err, "doctor")
	}
	refs, err = s.doctors.References(ctx, id)
	return doctor, refs, err
}

// Delete removes a doctor no health record or appointment references.
// Otherwise it fails with an IntegrityError and changes nothing.
func (s *DoctorService) Delete(ctx context.Context, actor policy.Principal, id uint) error {
	ctx, span := telemetry.Start(ctx, "DoctorService.Delete", attribute.Int64("doctor_id", int64(id)))
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceDoctor, policy.ActionDelete).Err(); err != nil {
		return err
	}

	return database.WithTransaction(ctx, func(ctx context.Context) error {
		doctor, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "doctor")
		}
		refs, err := s.doctors.References(ctx, id)
		if err != nil {
			return err
		}
		if refs.Total() > 0 {
			return &IntegrityError{
				Message: fmt.Sprintf("Cannot delete doctor %q: they are referenced by %d health record(s) and %d appointment(s).",
					doctor.FullName, refs.HealthRecords, refs.Appointments),
				Counts: map[string]int64{
					"health_records": refs.HealthRecords,
					"appointments":   refs.Appointments,
				},
			}
		}
		if err := s.doctors.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, s.auditRepo, actor.ActorID(), models.AuditDeleteDoctor, doctor.FullName, map[string]interface{}{
			"doctor_id": doctor.ID,
		})
	})
}
