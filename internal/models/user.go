package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the single role attached to every login account
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RolePatient    Role = "patient"
	RoleAnalyst    Role = "analyst"
)

// Roles lists every assignable role in display order
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleDoctor, RolePatient, RoleAnalyst}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role carries administrative rights
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// UnusablePasswordPrefix marks a stored hash that can never verify
const UnusablePasswordPrefix = "!"

// Profile identifier prefixes
const (
	DoctorProfilePrefix  = "DOC"
	PatientProfilePrefix = "PAT"
)

// User is a login-capable identity
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(254);not null" json:"email"`
	FirstName    string     `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string     `gorm:"type:varchar(150)" json:"last_name"`
	Role         Role       `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsStaff      bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser  bool       `gorm:"not null" json:"is_superuser"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// BeforeSave keeps the staff flags consistent with the role
func (u *User) BeforeSave(tx *gorm.DB) error {
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role: %q", u.Role)
	}
	u.ApplyRoleFlags()
	return nil
}

// ApplyRoleFlags derives is_staff and is_superuser from the role
func (u *User) ApplyRoleFlags() {
	if u.Role.IsStaff() {
		u.IsStaff = true
	} else if !u.IsSuperuser {
		u.IsStaff = false
	}
	if u.Role == RoleSuperAdmin {
		u.IsSuperuser = true
	}
}

// HasUsablePassword reports whether the account can log in with a password
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, UnusablePasswordPrefix)
}

// FullName returns "first last", falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// DoctorProfile is the public-facing record provisioned for doctor accounts
type DoctorProfile struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	User           *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	FullName       string `gorm:"type:varchar(255);not null" json:"full_name"`
	Specialization string `gorm:"type:varchar(120)" json:"specialization"`
	PublicID       string `gorm:"type:varchar(8);uniqueIndex;not null" json:"doctor_id"`
}

// TableName overrides the table name
func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// PatientProfile is the public-facing record provisioned for patient accounts
type PatientProfile struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	UserID     uint    `gorm:"not null;uniqueIndex" json:"user_id"`
	User       *User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	FullName   string  `gorm:"type:varchar(255);not null" json:"full_name"`
	PublicID   string  `gorm:"type:varchar(8);uniqueIndex;not null" json:"patient_id"`
	NationalID *string `gorm:"type:varchar(12)" json:"national_id,omitempty"`
}

// TableName overrides the table name
func (PatientProfile) TableName() string {
	return "patient_profiles"
}

// FormatProfileID renders a profile identifier such as DOC00007
func FormatProfileID(prefix string, userID uint) string {
	return fmt.Sprintf("%s%05d", prefix, userID)
}
