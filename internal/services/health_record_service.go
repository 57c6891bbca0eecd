package services

import (
	"context"
	"strings"
	"time"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// HealthRecordFilter narrows the health record list
type HealthRecordFilter struct {
	PatientID    uint `schema:"patient_id"`
	DepartmentID uint `schema:"department_id"`
	Limit        int  `schema:"limit"`
	Offset       int  `schema:"offset"`
}

// HealthRecordPage is one page of the health record list
type HealthRecordPage struct {
	Records []models.HealthRecord `json:"records"`
	Total   int64                 `json:"total"`
}

// HealthRecordService handles clinical encounters
type HealthRecordService struct {
	records     *repository.HealthRecordRepository
	patients    *repository.PatientRepository
	doctors     *repository.DoctorRepository
	departments *repository.DepartmentRepository
	policy      *policy.Engine
	now         func() time.Time
}

// NewHealthRecordService creates a new health record service
func NewHealthRecordService(
	recordRepo *repository.HealthRecordRepository,
	patientRepo *repository.PatientRepository,
	doctorRepo *repository.DoctorRepository,
	departmentRepo *repository.DepartmentRepository,
	engine *policy.Engine,
) *HealthRecordService {
	return &HealthRecordService{
		records:     recordRepo,
		patients:    patientRepo,
		doctors:     doctorRepo,
		departments: departmentRepo,
		policy:      engine,
		now:         time.Now,
	}
}

// List returns the health records the caller may see, newest first
func (s *HealthRecordService) List(ctx context.Context, actor policy.Principal, f HealthRecordFilter) (*HealthRecordPage, error) {
	ctx, span := telemetry.Start(ctx, "HealthRecordService.List")
	defer span.End()

	d := s.policy.Authorize(actor, policy.ResourceHealthRecord, policy.ActionList)
	if err := d.Err(); err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	records, total, err := s.records.List(ctx, d.Scope, repository.HealthRecordQuery{
		PatientID:    f.PatientID,
		DepartmentID: f.DepartmentID,
		Limit:        limit,
		Offset:       f.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &HealthRecordPage{Records: records, Total: total}, nil
}

// Get returns one health record
func (s *HealthRecordService) Get(ctx context.Context, actor policy.Principal, id uint) (*models.HealthRecord, error) {
	return s.authorized(ctx, actor, policy.ActionView, id)
}

// Editable returns the record when the caller may edit it
func (s *HealthRecordService) Editable(ctx context.Context, actor policy.Principal, id uint) (*models.HealthRecord, error) {
	return s.authorized(ctx, actor, policy.ActionUpdate, id)
}

func (s *HealthRecordService) authorized(ctx context.Context, actor policy.Principal, action policy.Action, id uint) (*models.HealthRecord, error) {
	if err := s.policy.Authorize(actor, policy.ResourceHealthRecord, action).Err(); err != nil {
		return nil, err
	}
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "health record")
	}
	facts, err := s.facts(ctx, actor, record.PatientID, record.DoctorID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.HealthRecord(actor, action, facts).Err(); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *HealthRecordService) facts(ctx context.Context, actor policy.Principal, patientID, doctorID uint) (policy.HealthRecordFacts, error) {
	f := policy.HealthRecordFacts{PatientID: patientID, DoctorID: doctorID}
	if actor.Role == models.RoleDoctor && actor.DoctorID != nil {
		treats, err := s.patients.Treats(ctx, *actor.DoctorID, patientID)
		if err != nil {
			return f, err
		}
		f.Treats = treats
	}
	return f, nil
}

// Create writes a health record. Doctors always author as themselves.
func (s *HealthRecordService) Create(ctx context.Context, actor policy.Principal, req *models.HealthRecordRequest) (*models.HealthRecord, error) {
	ctx, span := telemetry.Start(ctx, "HealthRecordService.Create", attribute.Int64("patient_id", int64(req.PatientID)))
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceHealthRecord, policy.ActionCreate).Err(); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleDoctor {
		if actor.DoctorID == nil {
			return nil, ErrForbidden
		}
		req.DoctorID = *actor.DoctorID
	}
	if err := s.policy.HealthRecord(actor, policy.ActionCreate, policy.HealthRecordFacts{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
	}).Err(); err != nil {
		return nil, err
	}

	record := &models.HealthRecord{}
	if err := s.apply(ctx, record, req); err != nil {
		return nil, err
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}

	log.Info().Uint("record_id", record.ID).Uint("patient_id", record.PatientID).Uint("doctor_id", record.DoctorID).Msg("Health record created")
	return record, nil
}

// Update edits a health record; BMI follows the new weight and height
func (s *HealthRecordService) Update(ctx context.Context, actor policy.Principal, id uint, req *models.HealthRecordRequest) (*models.HealthRecord, error) {
	record, err := s.authorized(ctx, actor, policy.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, record, req); err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a health record
func (s *HealthRecordService) Delete(ctx context.Context, actor policy.Principal, id uint) error {
	if _, err := s.authorized(ctx, actor, policy.ActionDelete, id); err != nil {
		return err
	}
	return s.records.Delete(ctx, id)
}

// apply validates req and copies it onto record
func (s *HealthRecordService) apply(ctx context.Context, record *models.HealthRecord, req *models.HealthRecordRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.DoctorID == 0 {
		return fieldError("doctor_id", "This field is required.")
	}

	recordDate := s.now().UTC()
	if strings.TrimSpace(req.RecordDate) != "" {
		t, err := parseDateTime("record_date", req.RecordDate)
		if err != nil {
			return err
		}
		recordDate = t
	} else if !record.RecordDate.IsZero() {
		recordDate = record.RecordDate
	}

	var errs []error
	if _, err := s.patients.GetByID(ctx, req.PatientID); err != nil {
		errs = append(errs, choiceError(err, "patient_id"))
	}
	if _, err := s.doctors.GetByID(ctx, req.DoctorID); err != nil {
		errs = append(errs, choiceError(err, "doctor_id"))
	}
	if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
		errs = append(errs, choiceError(err, "department_id"))
	}
	if err := mergeErrors(errs...); err != nil {
		return err
	}

	record.PatientID = req.PatientID
	record.Patient = nil
	record.DoctorID = req.DoctorID
	record.Doctor = nil
	record.DepartmentID = req.DepartmentID
	record.Department = nil
	record.RecordDate = recordDate
	record.VisitType = strings.TrimSpace(req.VisitType)
	record.SystolicBP = req.SystolicBP
	record.DiastolicBP = req.DiastolicBP
	record.HeartRate = req.HeartRate
	record.Temperature = req.Temperature
	record.Weight = req.Weight
	record.Height = req.Height
	record.Symptoms = req.Symptoms
	record.Diagnosis = strings.TrimSpace(req.Diagnosis)
	record.Medications = req.Medications
	record.Notes = req.Notes
	return nil
}

// choiceError turns a missing foreign row into a field error
func choiceError(err error, field string) error {
	if repository.IsNotFound(err) {
		return fieldError(field, "Select a valid choice. That choice is not one of the available choices.")
	}
	return err
}
