package models

// Request payloads accepted by the HTTP layer. Fields carry json tags for API
// clients and schema tags for form posts.

// LoginRequest authenticates a user
type LoginRequest struct {
	Username string `json:"username" schema:"username" validate:"required"`
	Password string `json:"password" schema:"password" validate:"required"`
	Next     string `json:"next" schema:"next"`
}

// CreateUserRequest provisions a workforce or patient login
type CreateUserRequest struct {
	Username  string `json:"username" schema:"username" validate:"required,max=150"`
	Email     string `json:"email" schema:"email" validate:"required,email"`
	Role      Role   `json:"role" schema:"role" validate:"required,oneof=superadmin admin doctor patient analyst"`
	FirstName string `json:"first_name" schema:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" schema:"last_name" validate:"max=150"`
	// IsActive defaults to true when omitted
	IsActive *bool `json:"is_active" schema:"is_active"`
	// Password is optional; when blank a password-reset mail is sent instead
	Password string `json:"password" schema:"password" validate:"omitempty,min=8,max=128"`
}

// PasswordResetRequest asks for a reset link
type PasswordResetRequest struct {
	Email string `json:"email" schema:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest sets a new password from a reset token
type PasswordResetConfirmRequest struct {
	Token     string `json:"token" schema:"token" validate:"required"`
	Password1 string `json:"password1" schema:"password1" validate:"required,min=8,max=128"`
	Password2 string `json:"password2" schema:"password2" validate:"required,eqfield=Password1"`
}

// DepartmentRequest creates or updates a department
type DepartmentRequest struct {
	Name        string `json:"name" schema:"name" validate:"required,max=120"`
	Description string `json:"description" schema:"description"`
}

// DoctorRequest creates or updates a doctor. Username is only honoured on
// create and provisions a login account alongside the roster entry.
type DoctorRequest struct {
	FullName     string `json:"full_name" schema:"full_name" validate:"required,max=160"`
	DepartmentID uint   `json:"department_id" schema:"department_id" validate:"required"`
	Email        string `json:"email" schema:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" schema:"phone" validate:"max=40"`

	Username  string `json:"username" schema:"username" validate:"omitempty,max=150"`
	Password1 string `json:"password1" schema:"password1" validate:"required_with=Username,max=128"`
	Password2 string `json:"password2" schema:"password2" validate:"eqfield=Password1"`
}

// PatientRequest carries the editable patient fields
type PatientRequest struct {
	PatientID             string `json:"patient_id" schema:"patient_id" validate:"omitempty,max=20"`
	FirstName             string `json:"first_name" schema:"first_name" validate:"required,max=100"`
	LastName              string `json:"last_name" schema:"last_name" validate:"required,max=100"`
	DateOfBirth           string `json:"date_of_birth" schema:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender                string `json:"gender" schema:"gender" validate:"required,oneof=M F O P"`
	Email                 string `json:"email" schema:"email" validate:"required,email"`
	PhoneCountryCode      string `json:"phone_country_code" schema:"phone_country_code" validate:"omitempty,oneof=+91 +1 +44 +61 +971"`
	Phone                 string `json:"phone" schema:"phone" validate:"required,numeric,min=7,max=15"`
	Address               string `json:"address" schema:"address"`
	EmergencyContactName  string `json:"emergency_contact_name" schema:"emergency_contact_name" validate:"max=160"`
	EmergencyContactPhone string `json:"emergency_contact_phone" schema:"emergency_contact_phone" validate:"max=20"`
	BloodType             string `json:"blood_type" schema:"blood_type" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	KnownAllergies        string `json:"known_allergies" schema:"known_allergies"`
	MedicalHistory        string `json:"medical_history" schema:"medical_history"`
	NationalID            string `json:"national_id" schema:"national_id" validate:"omitempty,numeric,len=12"`
}

// PatientAccountRequest registers a patient together with a portal login.
// Used by staff registration and by public signup.
type PatientAccountRequest struct {
	PatientRequest
	Username  string `json:"username" schema:"username" validate:"required,max=150"`
	Password1 string `json:"password1" schema:"password1" validate:"required,min=8,max=128"`
	Password2 string `json:"password2" schema:"password2" validate:"required,eqfield=Password1"`
}

// HealthRecordRequest creates or updates a health record
type HealthRecordRequest struct {
	PatientID    uint   `json:"patient_id" schema:"patient_id" validate:"required"`
	DoctorID     uint   `json:"doctor_id" schema:"doctor_id"`
	DepartmentID uint   `json:"department_id" schema:"department_id" validate:"required"`
	RecordDate   string `json:"record_date" schema:"record_date"`
	VisitType    string `json:"visit_type" schema:"visit_type" validate:"max=50"`

	SystolicBP  *int     `json:"systolic_bp" schema:"systolic_bp" validate:"omitempty,min=0,max=300"`
	DiastolicBP *int     `json:"diastolic_bp" schema:"diastolic_bp" validate:"omitempty,min=0,max=200"`
	HeartRate   *int     `json:"heart_rate" schema:"heart_rate" validate:"omitempty,min=0,max=300"`
	Temperature *float64 `json:"temperature" schema:"temperature" validate:"omitempty,min=30,max=45"`
	Weight      *float64 `json:"weight" schema:"weight" validate:"omitempty,min=0,max=500"`
	Height      *float64 `json:"height" schema:"height" validate:"omitempty,min=0,max=300"`

	Symptoms    string `json:"symptoms" schema:"symptoms"`
	Diagnosis   string `json:"diagnosis" schema:"diagnosis" validate:"max=255"`
	Medications string `json:"medications" schema:"medications"`
	Notes       string `json:"notes" schema:"notes"`
}

// AppointmentRequest books or updates an appointment. Patients booking for
// themselves may omit every patient field.
type AppointmentRequest struct {
	PatientID       *uint  `json:"patient_id" schema:"patient_id"`
	PatientName     string `json:"patient_name" schema:"patient_name" validate:"max=200"`
	PatientEmail    string `json:"patient_email" schema:"patient_email" validate:"omitempty,email"`
	DoctorID        uint   `json:"doctor_id" schema:"doctor_id" validate:"required"`
	DepartmentID    uint   `json:"department_id" schema:"department_id" validate:"required"`
	AppointmentDate string `json:"appointment_date" schema:"appointment_date" validate:"required"`
	Notes           string `json:"notes" schema:"notes"`
}

// PatientFilter narrows the patient list. FilterType is one of gender,
// blood_type, age_group, department, diagnosis or bmi; FilterValue uses the
// same labels the dashboard emits.
type PatientFilter struct {
	Search      string `schema:"search"`
	FilterType  string `schema:"filter_type"`
	FilterValue string `schema:"filter_value"`
	Limit       int    `schema:"limit"`
	Offset      int    `schema:"offset"`
}
