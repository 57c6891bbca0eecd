package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgDepartmentTaken = "Department with this Name already exists."
	recentRecordsLimit = 10
)

// DepartmentDetail is a department with the doctors, patients and recent
// records the caller may see there
type DepartmentDetail struct {
	Department    *models.Department    `json:"department"`
	Doctors       []models.Doctor       `json:"doctors"`
	Patients      []models.Patient      `json:"patients"`
	RecentRecords []models.HealthRecord `json:"recent_records"`
}

// DepartmentService handles department business logic
type DepartmentService struct {
	departments   *repository.DepartmentRepository
	doctors       *repository.DoctorRepository
	patients      *repository.PatientRepository
	healthRecords *repository.HealthRecordRepository
	auditRepo     *repository.AuditRepository
	policy        *policy.Engine
}

// NewDepartmentService creates a new department service
func NewDepartmentService(
	departmentRepo *repository.DepartmentRepository,
	doctorRepo *repository.DoctorRepository,
	patientRepo *repository.PatientRepository,
	healthRecordRepo *repository.HealthRecordRepository,
	auditRepo *repository.AuditRepository,
	engine *policy.Engine,
) *DepartmentService {
	return &DepartmentService{
		departments:   departmentRepo,
		doctors:       doctorRepo,
		patients:      patientRepo,
		healthRecords: healthRecordRepo,
		auditRepo:     auditRepo,
		policy:        engine,
	}
}

// List returns every department
func (s *DepartmentService) List(ctx context.Context, actor policy.Principal) ([]models.Department, error) {
	if err := s.policy.Authorize(actor, policy.ResourceDepartment, policy.ActionList).Err(); err != nil {
		return nil, err
	}
	return s.departments.List(ctx)
}

// Get returns a department with its roster and the caller's slice of its
// clinical activity
func (s *DepartmentService) Get(ctx context.Context, actor policy.Principal, id uint) (*DepartmentDetail, error) {
	ctx, span := telemetry.Start(ctx, "DepartmentService.Get", attribute.Int64("department_id", int64(id)))
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceDepartment, policy.ActionView).Err(); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "department")
	}

	detail := &DepartmentDetail{Department: dept}
	if detail.Doctors, err = s.doctors.List(ctx, id); err != nil {
		return nil, err
	}

	if d := s.policy.Authorize(actor, policy.ResourcePatient, policy.ActionList); d.Allowed() {
		detail.Patients, _, err = s.patients.List(ctx, d.Scope, repository.PatientQuery{DepartmentID: id})
		if err != nil {
			return nil, err
		}
	}
	if d := s.policy.Authorize(actor, policy.ResourceHealthRecord, policy.ActionList); d.Allowed() {
		q := repository.HealthRecordQuery{DepartmentID: id, Limit: recentRecordsLimit}
		if d.Scope.Kind == policy.ScopeDoctor {
			// doctors see the records they authored here
			q.DoctorID = d.Scope.DoctorID
		}
		detail.RecentRecords, _, err = s.healthRecords.List(ctx, d.Scope, q)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// Create adds a department
func (s *DepartmentService) Create(ctx context.Context, actor policy.Principal, req *models.DepartmentRequest) (*models.Department, error) {
	if err := s.policy.Authorize(actor, policy.ResourceDepartment, policy.ActionCreate).Err(); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, req.Name, 0); err != nil {
		return nil, err
	}

	dept := &models.Department{Name: req.Name, Description: req.Description}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, duplicate(err, "name", msgDepartmentTaken)
	}
	return dept, nil
}

// Update edits a department
func (s *DepartmentService) Update(ctx context.Context, actor policy.Principal, id uint, req *models.DepartmentRequest) (*models.Department, error) {
	if err := s.policy.Authorize(actor, policy.ResourceDepartment, policy.ActionUpdate).Err(); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "department")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, req.Name, id); err != nil {
		return nil, err
	}

	dept.Name = req.Name
	dept.Description = req.Description
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, duplicate(err, "name", msgDepartmentTaken)
	}
	return dept, nil
}

func (s *DepartmentService) checkName(ctx context.Context, name string, exceptID uint) error {
	existing, err := s.departments.GetByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != exceptID {
		return fieldError("name", msgDepartmentTaken)
	}
	return nil
}

// DeletePreview returns the department and the references that would block its delete
func (s *DepartmentService) DeletePreview(ctx context.Context, actor policy.Principal, id uint) (*models.Department, repository.DepartmentReferences, error) {
	var refs repository.DepartmentReferences
	if err := s.policy.Authorize(actor, policy.ResourceDepartment, policy.ActionDelete).Err(); err != nil {
		return nil, refs, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, refs, notFound(err, "department")
	}
	refs, err = s.departments.References(ctx, id)
	return dept, refs, err
}

// Delete removes a department that nothing references. Otherwise it fails
// with an IntegrityError carrying the reference counts and changes nothing.
func (s *DepartmentService) Delete(ctx context.Context, actor policy.Principal, id uint) error {
	ctx, span := telemetry.Start(ctx, "DepartmentService.Delete", attribute.Int64("department_id", int64(id)))
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceDepartment, policy.ActionDelete).Err(); err != nil {
		return err
	}

	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		dept, err := s.departments.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "department")
		}
		refs, err := s.departments.References(ctx, id)
		if err != nil {
			return err
		}
		if refs.Total() > 0 {
			return &IntegrityError{
				Message: fmt.Sprintf("Cannot delete department %q: it is referenced by %d doctor(s), %d health record(s) and %d appointment(s).",
					dept.Name, refs.Doctors, refs.HealthRecords, refs.Appointments),
				Counts: map[string]int64{
					"doctors":        refs.Doctors,
					"health_records": refs.HealthRecords,
					"appointments":   refs.Appointments,
				},
			}
		}
		if err := s.departments.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, s.auditRepo, actor.ActorID(), models.AuditDeleteDepartment, dept.Name, map[string]interface{}{
			"department_id": dept.ID,
		})
	})
	if err != nil {
		return err
	}

	log.Info().Uint("department_id", id).Uint("actor_id", actor.UserID).Msg("Department deleted")
	return nil
}
