package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/reporting"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	msgPatientIDTaken  = "Patient with this Patient ID already exists."
	msgNationalIDTaken = "Patient with this National ID already exists."

	defaultPageSize = 50
	maxPageSize     = 200
)

// Patient list drill-down filter types
const (
	FilterGender     = "gender"
	FilterBloodType  = "blood_type"
	FilterAgeGroup   = "age_group"
	FilterDepartment = "department"
	FilterDiagnosis  = "diagnosis"
	FilterBMI        = "bmi"
)

// PatientPage is one page of the patient list
type PatientPage struct {
	Patients []models.Patient    `json:"patients"`
	Total    int64               `json:"total"`
	Filter   models.PatientFilter `json:"filter"`
}

// PatientDetail is a patient with derived fields and latest health records
type PatientDetail struct {
	Patient            *models.Patient       `json:"patient"`
	Age                int                   `json:"age"`
	AgeGroup           string                `json:"age_group"`
	InternationalPhone string                `json:"international_phone"`
	RecentRecords      []models.HealthRecord `json:"recent_records"`
	Appointments       []models.Appointment  `json:"appointments"`
}

// PatientService handles patient records
type PatientService struct {
	provisioner
	departments   *repository.DepartmentRepository
	healthRecords *repository.HealthRecordRepository
	appointments  *repository.AppointmentRepository
	auditRepo     *repository.AuditRepository
	policy        *policy.Engine
	now           func() time.Time
}

// NewPatientService creates a new patient service
func NewPatientService(
	patientRepo *repository.PatientRepository,
	departmentRepo *repository.DepartmentRepository,
	healthRecordRepo *repository.HealthRecordRepository,
	appointmentRepo *repository.AppointmentRepository,
	userRepo *repository.UserRepository,
	profileRepo *repository.ProfileRepository,
	auditRepo *repository.AuditRepository,
	hasher *auth.Hasher,
	engine *policy.Engine,
) *PatientService {
	return &PatientService{
		provisioner:   provisioner{users: userRepo, profiles: profileRepo, patients: patientRepo, hasher: hasher},
		departments:   departmentRepo,
		healthRecords: healthRecordRepo,
		appointments:  appointmentRepo,
		auditRepo:     auditRepo,
		policy:        engine,
		now:           time.Now,
	}
}

// List returns the patients the caller may see, narrowed by search and an
// optional dashboard drill-down filter
func (s *PatientService) List(ctx context.Context, actor policy.Principal, filter models.PatientFilter) (*PatientPage, error) {
	ctx, span := telemetry.Start(ctx, "PatientService.List", attribute.String("filter_type", filter.FilterType))
	defer span.End()

	d := s.policy.Authorize(actor, policy.ResourcePatient, policy.ActionList)
	if err := d.Err(); err != nil {
		return nil, err
	}

	q, err := s.query(ctx, filter)
	if err != nil {
		return nil, err
	}
	patients, total, err := s.patients.List(ctx, d.Scope, q)
	if err != nil {
		return nil, err
	}
	return &PatientPage{Patients: patients, Total: total, Filter: filter}, nil
}

func (s *PatientService) query(ctx context.Context, f models.PatientFilter) (repository.PatientQuery, error) {
	q := repository.PatientQuery{
		Search: strings.TrimSpace(f.Search),
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	value := strings.TrimSpace(f.FilterValue)
	if f.FilterType == "" || value == "" {
		return q, nil
	}

	switch f.FilterType {
	case FilterGender:
		q.Gender = models.GenderCode(value)
	case FilterBloodType:
		q.BloodType = value
	case FilterAgeGroup:
		r, ok := reporting.AgeGroupRange(value, reporting.Today(s.now()))
		if !ok {
			return q, fieldError("filter_value", "Unknown age group.")
		}
		q.DOB = &r
	case FilterDepartment:
		id, err := s.departmentID(ctx, value)
		if err != nil {
			return q, err
		}
		q.DepartmentID = id
	case FilterDiagnosis:
		q.Diagnosis = value
	case FilterBMI:
		min, max, ok := reporting.BMIRange(value)
		if !ok {
			return q, fieldError("filter_value", "Unknown BMI band.")
		}
		q.BMIMin, q.BMIMax = min, max
	default:
		return q, fieldError("filter_type", "Select a valid choice.")
	}
	return q, nil
}

// departmentID accepts a department name, as the dashboard emits, or an id
func (s *PatientService) departmentID(ctx context.Context, value string) (uint, error) {
	dept, err := s.departments.GetByName(ctx, value)
	if err == nil {
		return dept.ID, nil
	}
	if !repository.IsNotFound(err) {
		return 0, err
	}
	if id, perr := strconv.ParseUint(value, 10, 64); perr == nil {
		if dept, err := s.departments.GetByID(ctx, uint(id)); err == nil {
			return dept.ID, nil
		}
	}
	return 0, fieldError("filter_value", "Unknown department.")
}

// Get returns one patient with their latest health records
func (s *PatientService) Get(ctx context.Context, actor policy.Principal, id uint) (*PatientDetail, error) {
	ctx, span := telemetry.Start(ctx, "PatientService.Get", attribute.Int64("patient_id", int64(id)))
	defer span.End()

	patient, err := s.authorized(ctx, actor, policy.ActionView, id)
	if err != nil {
		return nil, err
	}

	today := reporting.Today(s.now())
	detail := &PatientDetail{
		Patient:            patient,
		Age:                patient.Age(today),
		AgeGroup:           reporting.PatientAgeGroup(patient, today),
		InternationalPhone: patient.InternationalPhone(),
	}

	if d := s.policy.Authorize(actor, policy.ResourceHealthRecord, policy.ActionList); d.Allowed() {
		detail.RecentRecords, _, err = s.healthRecords.List(ctx, d.Scope, repository.HealthRecordQuery{
			PatientID: patient.ID,
			Limit:     recentRecordsLimit,
		})
		if err != nil {
			return nil, err
		}
	}
	if d := s.policy.Authorize(actor, policy.ResourceAppointment, policy.ActionList); d.Allowed() {
		detail.Appointments, _, err = s.appointments.List(ctx, d.Scope, repository.AppointmentQuery{PatientID: patient.ID})
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// Editable returns the patient when the caller may edit it
func (s *PatientService) Editable(ctx context.Context, actor policy.Principal, id uint) (*models.Patient, error) {
	return s.authorized(ctx, actor, policy.ActionUpdate, id)
}

// authorized loads a patient and applies the record-level rule for action
func (s *PatientService) authorized(ctx context.Context, actor policy.Principal, action policy.Action, id uint) (*models.Patient, error) {
	if err := s.policy.Authorize(actor, policy.ResourcePatient, action).Err(); err != nil {
		return nil, err
	}
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "patient")
	}

	facts := policy.PatientFacts{PatientID: patient.ID}
	if actor.Role == models.RoleDoctor && actor.DoctorID != nil {
		if facts.Treats, err = s.patients.Treats(ctx, *actor.DoctorID, patient.ID); err != nil {
			return nil, err
		}
	}
	if err := s.policy.Patient(actor, action, facts).Err(); err != nil {
		return nil, err
	}
	return patient, nil
}

// Create registers a patient together with a portal login
func (s *PatientService) Create(ctx context.Context, actor policy.Principal, req *models.PatientAccountRequest) (*models.Patient, error) {
	ctx, span := telemetry.Start(ctx, "PatientService.Create")
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourcePatient, policy.ActionCreate).Err(); err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	patient, err := buildPatient(&req.PatientRequest, nil)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := s.provisionPatient(ctx, patient, req.Username, req.Password1, s.now())
		if err != nil {
			return err
		}
		return appendAudit(ctx, s.auditRepo, actor.ActorID(), models.AuditCreatePatientAccount, user.Username, map[string]interface{}{
			"role":              string(user.Role),
			"patient_id":        patient.PatientID,
			"password_provided": true,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("patient_id", patient.PatientID).Uint("actor_id", actor.UserID).Msg("Patient registered")
	return patient, nil
}

// Update edits a patient record. Patients may edit their own record but
// never its public patient id.
func (s *PatientService) Update(ctx context.Context, actor policy.Principal, id uint, req *models.PatientRequest) (*models.Patient, error) {
	ctx, span := telemetry.Start(ctx, "PatientService.Update", attribute.Int64("patient_id", int64(id)))
	defer span.End()

	existing, err := s.authorized(ctx, actor, policy.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RolePatient || strings.TrimSpace(req.PatientID) == "" {
		req.PatientID = existing.PatientID
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	patient, err := buildPatient(req, existing)
	if err != nil {
		return nil, err
	}
	if err := checkPatientUnique(ctx, s.patients, patient); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, patientDuplicate(err)
	}
	return patient, nil
}

// DeletePreview returns the patient and how many health records and
// appointments a delete would touch
func (s *PatientService) DeletePreview(ctx context.Context, actor policy.Principal, id uint) (*models.Patient, map[string]int64, error) {
	patient, err := s.authorized(ctx, actor, policy.ActionDelete, id)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.healthRecords.CountByPatient(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	_, appts, err := s.appointments.List(ctx, policy.Scope{Kind: policy.ScopeAll}, repository.AppointmentQuery{PatientID: id, Limit: 1})
	if err != nil {
		return nil, nil, err
	}
	return patient, map[string]int64{"health_records": records, "appointments": appts}, nil
}

// Delete removes a patient with every health record. Appointments survive
// with the patient link cleared and their name and email snapshot intact.
func (s *PatientService) Delete(ctx context.Context, actor policy.Principal, id uint) (*DeletionSummary, error) {
	ctx, span := telemetry.Start(ctx, "PatientService.Delete", attribute.Int64("patient_id", int64(id)))
	defer span.End()

	var summary *DeletionSummary
	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		patient, err := s.authorized(ctx, actor, policy.ActionDelete, id)
		if err != nil {
			return err
		}
		summary = &DeletionSummary{Target: patient.PatientID}
		if summary.HealthRecordsDeleted, err = s.healthRecords.DeleteByPatient(ctx, id); err != nil {
			return err
		}
		if summary.AppointmentsDetached, err = s.appointments.DetachPatient(ctx, id); err != nil {
			return err
		}
		if err := s.patients.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, s.auditRepo, actor.ActorID(), models.AuditDeletePatient, patient.PatientID, map[string]interface{}{
			"name":                   patient.FullName(),
			"health_records_deleted": summary.HealthRecordsDeleted,
			"appointments_detached":  summary.AppointmentsDetached,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("patient_id", summary.Target).Int64("health_records_deleted", summary.HealthRecordsDeleted).Msg("Patient deleted")
	return summary, nil
}

// buildPatient maps a validated request onto a patient, updating existing when given
func buildPatient(req *models.PatientRequest, existing *models.Patient) (*models.Patient, error) {
	dob, err := parseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		return nil, err
	}

	p := existing
	if p == nil {
		p = &models.Patient{}
	}
	p.PatientID = strings.TrimSpace(req.PatientID)
	p.FirstName = strings.TrimSpace(req.FirstName)
	p.LastName = strings.TrimSpace(req.LastName)
	p.DateOfBirth = dob
	p.Gender = req.Gender
	p.Email = strings.TrimSpace(req.Email)
	p.PhoneCountryCode = req.PhoneCountryCode
	if p.PhoneCountryCode == "" {
		p.PhoneCountryCode = models.DefaultCountryCode
	}
	p.Phone = req.Phone
	p.Address = req.Address
	p.EmergencyContactName = req.EmergencyContactName
	p.EmergencyContactPhone = req.EmergencyContactPhone
	p.BloodType = req.BloodType
	p.KnownAllergies = req.KnownAllergies
	p.MedicalHistory = req.MedicalHistory
	p.NationalID = nil
	if nid := strings.TrimSpace(req.NationalID); nid != "" {
		p.NationalID = &nid
	}
	return p, nil
}

// checkPatientUnique rejects a public or national id used by another patient
func checkPatientUnique(ctx context.Context, patients *repository.PatientRepository, p *models.Patient) error {
	var errs []error
	if p.PatientID != "" {
		taken, err := patients.PatientIDTaken(ctx, p.PatientID, p.ID)
		if err != nil {
			return err
		}
		if taken {
			errs = append(errs, fieldError("patient_id", msgPatientIDTaken))
		}
	}
	if p.NationalID != nil {
		taken, err := patients.NationalIDTaken(ctx, *p.NationalID, p.ID)
		if err != nil {
			return err
		}
		if taken {
			errs = append(errs, fieldError("national_id", msgNationalIDTaken))
		}
	}
	return mergeErrors(errs...)
}

// patientDuplicate maps a unique-index loss on insert or update
func patientDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldError("patient_id", "A patient with this Patient ID or National ID already exists.")
	}
	return err
}
