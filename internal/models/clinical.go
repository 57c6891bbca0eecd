package models

import (
	"math"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"gorm.io/gorm"
)

// Gender codes stored on patients
const (
	GenderMale         = "M"
	GenderFemale       = "F"
	GenderOther        = "O"
	GenderNotDisclosed = "P"
)

const (
	DefaultCountryCode    = "+91"
	DefaultSpecialization = "General Medicine"
)

// Genders lists gender codes in choice order with their display labels
var Genders = []struct {
	Code  string
	Label string
}{
	{GenderMale, "Male"},
	{GenderFemale, "Female"},
	{GenderOther, "Other"},
	{GenderNotDisclosed, "Prefer not to say"},
}

// BloodTypes lists the accepted blood type values
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// PhoneCountryCodes lists the accepted international dialing codes
var PhoneCountryCodes = []string{"+91", "+1", "+44", "+61", "+971"}

// GenderLabel maps a gender code onto its display label
func GenderLabel(code string) string {
	for _, g := range Genders {
		if g.Code == code {
			return g.Label
		}
	}
	return code
}

// GenderCode maps a display label (or a code) back onto a gender code
func GenderCode(label string) string {
	for _, g := range Genders {
		if g.Label == label {
			return g.Code
		}
	}
	return label
}

// Department groups doctors and clinical activity
type Department struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Department) TableName() string {
	return "departments"
}

// Doctor is a rostered clinician, optionally linked to a login account
type Doctor struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       *uint       `gorm:"uniqueIndex" json:"user_id,omitempty"`
	User         *User       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	FullName     string      `gorm:"type:varchar(160);not null" json:"full_name"`
	DepartmentID uint        `gorm:"not null;index" json:"department_id"`
	Department   *Department `gorm:"constraint:OnDelete:RESTRICT" json:"department,omitempty"`
	Email        string      `gorm:"type:varchar(254)" json:"email"`
	Phone        string      `gorm:"type:varchar(40)" json:"phone"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName overrides the table name
func (Doctor) TableName() string {
	return "doctors"
}

// Patient is the clinical record of a person receiving care
type Patient struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	User                  *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PatientID             string    `gorm:"type:varchar(20);uniqueIndex:idx_patients_patient_id;not null" json:"patient_id"`
	FirstName             string    `gorm:"type:varchar(100);not null;index:idx_patients_name,priority:2" json:"first_name"`
	LastName              string    `gorm:"type:varchar(100);not null;index:idx_patients_name,priority:1" json:"last_name"`
	DateOfBirth           time.Time `gorm:"type:date;not null" json:"date_of_birth"`
	Gender                string    `gorm:"type:varchar(1);not null" json:"gender"`
	Email                 string    `gorm:"type:varchar(254);not null" json:"email"`
	PhoneCountryCode      string    `gorm:"type:varchar(5);not null" json:"phone_country_code"`
	Phone                 string    `gorm:"type:varchar(15);not null" json:"phone"`
	Address               string    `gorm:"type:text" json:"address"`
	EmergencyContactName  string    `gorm:"type:varchar(160)" json:"emergency_contact_name"`
	EmergencyContactPhone string    `gorm:"type:varchar(20)" json:"emergency_contact_phone"`
	BloodType             string    `gorm:"type:varchar(3)" json:"blood_type"`
	KnownAllergies        string    `gorm:"type:text" json:"known_allergies"`
	MedicalHistory        string    `gorm:"type:text" json:"medical_history"`
	NationalID            *string   `gorm:"type:varchar(12);uniqueIndex" json:"national_id,omitempty"`
	RegistrationDate      time.Time `gorm:"not null;index" json:"registration_date"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate stamps the registration date
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.RegistrationDate.IsZero() {
		p.RegistrationDate = tx.NowFunc()
	}
	if p.PhoneCountryCode == "" {
		p.PhoneCountryCode = DefaultCountryCode
	}
	return nil
}

// FullName returns "first last"
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age returns completed years on the given day
func (p *Patient) Age(today time.Time) int {
	return AgeOn(p.DateOfBirth, today)
}

// AgeOn returns completed years between dob and today
func AgeOn(dob, today time.Time) int {
	years := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		years--
	}
	return years
}

// InternationalPhone renders the phone in E.164, falling back to code+digits
func (p *Patient) InternationalPhone() string {
	raw := p.PhoneCountryCode + p.Phone
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// HealthRecord is one clinical encounter with vitals and findings
type HealthRecord struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	PatientID    uint        `gorm:"not null;index:idx_health_records_patient_date,priority:1" json:"patient_id"`
	Patient      *Patient    `gorm:"constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	RecordDate   time.Time   `gorm:"not null;index:idx_health_records_patient_date,priority:2;index:idx_health_records_department_date,priority:2;index:idx_health_records_record_date" json:"record_date"`
	DoctorID     uint        `gorm:"not null;index" json:"doctor_id"`
	Doctor       *Doctor     `gorm:"constraint:OnDelete:RESTRICT" json:"doctor,omitempty"`
	DepartmentID uint        `gorm:"not null;index:idx_health_records_department_date,priority:1" json:"department_id"`
	Department   *Department `gorm:"constraint:OnDelete:RESTRICT" json:"department,omitempty"`

	SystolicBP  *int     `json:"systolic_bp,omitempty"`
	DiastolicBP *int     `json:"diastolic_bp,omitempty"`
	HeartRate   *int     `json:"heart_rate,omitempty"`
	Temperature *float64 `gorm:"type:decimal(4,2)" json:"temperature,omitempty"`
	Weight      *float64 `gorm:"type:decimal(5,2)" json:"weight,omitempty"`
	Height      *float64 `gorm:"type:decimal(5,2)" json:"height,omitempty"`
	BMI         *float64 `gorm:"column:bmi;type:decimal(5,2)" json:"bmi,omitempty"`

	Symptoms    string    `gorm:"type:text" json:"symptoms"`
	Diagnosis   string    `gorm:"type:varchar(255);index:idx_health_records_diagnosis" json:"diagnosis"`
	Medications string    `gorm:"type:text" json:"medications"`
	Notes       string    `gorm:"type:text" json:"notes"`
	VisitType   string    `gorm:"type:varchar(50)" json:"visit_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the table name
func (HealthRecord) TableName() string {
	return "health_records"
}

// BeforeSave recomputes BMI whenever weight and height are both known
func (h *HealthRecord) BeforeSave(tx *gorm.DB) error {
	if bmi, ok := ComputeBMI(h.Weight, h.Height); ok {
		h.BMI = &bmi
	}
	return nil
}

// ComputeBMI returns weight/(height/100)^2 rounded to two decimals
func ComputeBMI(weightKg, heightCm *float64) (float64, bool) {
	if weightKg == nil || heightCm == nil || *weightKg == 0 || *heightCm <= 0 {
		return 0, false
	}
	m := *heightCm / 100
	return math.Round(*weightKg/(m*m)*100) / 100, true
}

// Appointment is a booked visit; patient name and email are kept as a snapshot
type Appointment struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	PatientName     string      `gorm:"type:varchar(200);not null" json:"patient_name"`
	PatientEmail    string      `gorm:"type:varchar(254)" json:"patient_email"`
	PatientID       *uint       `gorm:"index" json:"patient_id"`
	Patient         *Patient    `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DoctorID        uint        `gorm:"not null;index" json:"doctor_id"`
	Doctor          *Doctor     `gorm:"constraint:OnDelete:RESTRICT" json:"doctor,omitempty"`
	DepartmentID    uint        `gorm:"not null;index" json:"department_id"`
	Department      *Department `gorm:"constraint:OnDelete:RESTRICT" json:"department,omitempty"`
	AppointmentDate time.Time   `gorm:"not null;index" json:"appointment_date"`
	Notes           string      `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TableName overrides the table name
func (Appointment) TableName() string {
	return "appointments"
}
