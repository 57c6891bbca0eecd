package services

import (
	"context"
	"strings"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
)

// AppointmentFilter narrows the appointment list
type AppointmentFilter struct {
	PatientID    uint `schema:"patient_id"`
	DoctorID     uint `schema:"doctor_id"`
	DepartmentID uint `schema:"department_id"`
	Limit        int  `schema:"limit"`
	Offset       int  `schema:"offset"`
}

// AppointmentPage is one page of the appointment list
type AppointmentPage struct {
	Appointments []models.Appointment `json:"appointments"`
	Total        int64                `json:"total"`
}

// AppointmentService handles bookings
type AppointmentService struct {
	appointments *repository.AppointmentRepository
	patients     *repository.PatientRepository
	doctors      *repository.DoctorRepository
	departments  *repository.DepartmentRepository
	policy       *policy.Engine
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentRepo *repository.AppointmentRepository,
	patientRepo *repository.PatientRepository,
	doctorRepo *repository.DoctorRepository,
	departmentRepo *repository.DepartmentRepository,
	engine *policy.Engine,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointmentRepo,
		patients:     patientRepo,
		doctors:      doctorRepo,
		departments:  departmentRepo,
		policy:       engine,
	}
}

// List returns the appointments the caller may see, soonest first
func (s *AppointmentService) List(ctx context.Context, actor policy.Principal, f AppointmentFilter) (*AppointmentPage, error) {
	ctx, span := telemetry.Start(ctx, "AppointmentService.List")
	defer span.End()

	d := s.policy.Authorize(actor, policy.ResourceAppointment, policy.ActionList)
	if err := d.Err(); err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	appts, total, err := s.appointments.List(ctx, d.Scope, repository.AppointmentQuery{
		PatientID:    f.PatientID,
		DoctorID:     f.DoctorID,
		DepartmentID: f.DepartmentID,
		Limit:        limit,
		Offset:       f.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &AppointmentPage{Appointments: appts, Total: total}, nil
}

// Get returns one appointment
func (s *AppointmentService) Get(ctx context.Context, actor policy.Principal, id uint) (*models.Appointment, error) {
	return s.authorized(ctx, actor, policy.ActionView, id)
}

// Editable returns the appointment when the caller may edit it
func (s *AppointmentService) Editable(ctx context.Context, actor policy.Principal, id uint) (*models.Appointment, error) {
	return s.authorized(ctx, actor, policy.ActionUpdate, id)
}

func (s *AppointmentService) authorized(ctx context.Context, actor policy.Principal, action policy.Action, id uint) (*models.Appointment, error) {
	if err := s.policy.Authorize(actor, policy.ResourceAppointment, action).Err(); err != nil {
		return nil, err
	}
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "appointment")
	}
	if err := s.policy.Appointment(actor, action, policy.AppointmentFacts{
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
	}).Err(); err != nil {
		return nil, err
	}
	return appt, nil
}

// Book creates an appointment. Patients always book for their own record;
// the name and email snapshot defaults to the linked patient.
func (s *AppointmentService) Book(ctx context.Context, actor policy.Principal, req *models.AppointmentRequest) (*models.Appointment, error) {
	ctx, span := telemetry.Start(ctx, "AppointmentService.Book")
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceAppointment, policy.ActionCreate).Err(); err != nil {
		return nil, err
	}
	if actor.Role == models.RolePatient {
		if actor.PatientID == nil {
			return nil, ErrForbidden
		}
		own := *actor.PatientID
		req.PatientID = &own
	}
	if err := s.policy.Appointment(actor, policy.ActionCreate, policy.AppointmentFacts{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
	}).Err(); err != nil {
		return nil, err
	}

	appt := &models.Appointment{}
	if err := s.apply(ctx, appt, req); err != nil {
		return nil, err
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}

	log.Info().Uint("appointment_id", appt.ID).Uint("doctor_id", appt.DoctorID).Msg("Appointment booked")
	return appt, nil
}

// Update edits an appointment
func (s *AppointmentService) Update(ctx context.Context, actor policy.Principal, id uint, req *models.AppointmentRequest) (*models.Appointment, error) {
	appt, err := s.authorized(ctx, actor, policy.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, appt, req); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// Delete removes an appointment
func (s *AppointmentService) Delete(ctx context.Context, actor policy.Principal, id uint) error {
	if _, err := s.authorized(ctx, actor, policy.ActionDelete, id); err != nil {
		return err
	}
	return s.appointments.Delete(ctx, id)
}

func (s *AppointmentService) apply(ctx context.Context, appt *models.Appointment, req *models.AppointmentRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	when, err := parseDateTime("appointment_date", req.AppointmentDate)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(req.PatientName)
	email := strings.TrimSpace(req.PatientEmail)

	var errs []error
	if req.PatientID != nil {
		patient, err := s.patients.GetByID(ctx, *req.PatientID)
		if err != nil {
			errs = append(errs, choiceError(err, "patient_id"))
		} else {
			if name == "" {
				name = patient.FullName()
			}
			if email == "" {
				email = patient.Email
			}
		}
	}
	if name == "" && req.PatientID == nil {
		errs = append(errs, fieldError("patient_name", "This field is required."))
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

	appt.PatientID = req.PatientID
	appt.Patient = nil
	appt.PatientName = name
	appt.PatientEmail = email
	appt.DoctorID = req.DoctorID
	appt.Doctor = nil
	appt.DepartmentID = req.DepartmentID
	appt.Department = nil
	appt.AppointmentDate = when
	appt.Notes = req.Notes
	return nil
}
