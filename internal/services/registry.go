package services

import (
	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/notify"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
)

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Hasher   *auth.Hasher
	Sessions *auth.SessionManager
	Tokens   cache.Cache
	Mailer   notify.Mailer
	Policy   *policy.Engine
	Account  AccountConfig
}

// Registry holds one instance of every service over a shared set of repositories
type Registry struct {
	Accounts      *AccountService
	Audit         *AuditService
	Departments   *DepartmentService
	Doctors       *DoctorService
	Patients      *PatientService
	HealthRecords *HealthRecordService
	Appointments  *AppointmentService
	Reporting     *ReportingService
}

// NewRegistry builds every repository and service
func NewRegistry(d Dependencies) *Registry {
	userRepo := repository.NewUserRepository()
	profileRepo := repository.NewProfileRepository()
	departmentRepo := repository.NewDepartmentRepository()
	doctorRepo := repository.NewDoctorRepository()
	patientRepo := repository.NewPatientRepository()
	healthRecordRepo := repository.NewHealthRecordRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditRepo := repository.NewAuditRepository()
	snapshotRepo := repository.NewSnapshotRepository()

	return &Registry{
		Accounts: NewAccountService(
			userRepo, profileRepo, patientRepo, doctorRepo, healthRecordRepo, appointmentRepo, auditRepo,
			d.Hasher, d.Sessions, d.Tokens, d.Mailer, d.Policy, d.Account,
		),
		Audit:         NewAuditService(auditRepo, d.Policy),
		Departments:   NewDepartmentService(departmentRepo, doctorRepo, patientRepo, healthRecordRepo, auditRepo, d.Policy),
		Doctors:       NewDoctorService(doctorRepo, departmentRepo, userRepo, profileRepo, auditRepo, d.Hasher, d.Policy),
		Patients:      NewPatientService(patientRepo, departmentRepo, healthRecordRepo, appointmentRepo, userRepo, profileRepo, auditRepo, d.Hasher, d.Policy),
		HealthRecords: NewHealthRecordService(healthRecordRepo, patientRepo, doctorRepo, departmentRepo, d.Policy),
		Appointments:  NewAppointmentService(appointmentRepo, patientRepo, doctorRepo, departmentRepo, d.Policy),
		Reporting:     NewReportingService(snapshotRepo, d.Policy),
	}
}
