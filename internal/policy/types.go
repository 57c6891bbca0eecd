package policy

import (
	"errors"

	"github.com/otcheredev/hospital-records/internal/models"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

type Resource string
type Action string

const (
	ResourceDepartment   Resource = "department"
	ResourceDoctor       Resource = "doctor"
	ResourcePatient      Resource = "patient"
	ResourceHealthRecord Resource = "health_record"
	ResourceAppointment  Resource = "appointment"
	ResourceUser         Resource = "user"
	ResourceAccount      Resource = "account"
	ResourceDashboard    Resource = "dashboard"
	ResourceAuditLog     Resource = "audit_log"
)

const (
	ActionList   Action = "list"
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Principal is the acting identity, resolved once per request and passed
// explicitly to every service call.
type Principal struct {
	UserID        uint
	Username      string
	Role          models.Role
	Authenticated bool
	// DoctorID is the roster entry linked to a doctor login, if any
	DoctorID *uint
	// PatientID is the internal id of the patient record linked to a patient login, if any
	PatientID *uint
}

// Anonymous returns the unauthenticated principal
func Anonymous() Principal {
	return Principal{}
}

// IsStaff reports whether p is an administrator
func (p Principal) IsStaff() bool {
	return p.Authenticated && p.Role.IsStaff()
}

// ActorID returns the user id for audit attribution, nil when anonymous
func (p Principal) ActorID() *uint {
	if !p.Authenticated || p.UserID == 0 {
		return nil
	}
	id := p.UserID
	return &id
}

type Effect int

const (
	Allow Effect = iota
	Unauthenticated
	Forbidden
	NotFound
)

func (e Effect) String() string {
	switch e {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type ScopeKind int

const (
	// ScopeNone matches no rows
	ScopeNone ScopeKind = iota
	ScopeAll
	// ScopeDoctor restricts to patients the doctor has a health record with
	ScopeDoctor
	// ScopePatient restricts to the caller's own patient record
	ScopePatient
)

// Scope is the row restriction a list query must apply
type Scope struct {
	Kind      ScopeKind
	DoctorID  uint
	PatientID uint
}

// Decision is the typed outcome of a policy evaluation
type Decision struct {
	Effect Effect
	Scope  Scope
	Reason string
}

// Allowed reports whether the decision permits the operation
func (d Decision) Allowed() bool {
	return d.Effect == Allow
}

// Err maps the decision onto a sentinel error, nil when allowed
func (d Decision) Err() error {
	switch d.Effect {
	case Allow:
		return nil
	case Unauthenticated:
		return ErrUnauthenticated
	case NotFound:
		return ErrNotFound
	default:
		return ErrForbidden
	}
}

// PatientFacts describes a concrete patient record for record-level checks
type PatientFacts struct {
	PatientID uint
	// Treats is true when the acting doctor has a health record with this patient
	Treats bool
}

// HealthRecordFacts describes a concrete health record
type HealthRecordFacts struct {
	PatientID uint
	DoctorID  uint
	Treats    bool
}

// AppointmentFacts describes a concrete appointment
type AppointmentFacts struct {
	PatientID *uint
	DoctorID  uint
}
