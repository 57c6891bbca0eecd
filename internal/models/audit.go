package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by the service
const (
	AuditCreateUser           = "create_user"
	AuditCreatePatientAccount = "create_patient_account"
	AuditCreateDoctorAccount  = "create_doctor_account"
	AuditDeletePatient        = "delete_patient"
	AuditDeleteDoctor         = "delete_doctor"
	AuditDeleteDepartment     = "delete_department"
	AuditSelfDeleteAccount    = "self_delete_account"
)

// AuditLog represents an append-only audit entry
type AuditLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ActorID   *uint             `gorm:"index" json:"actor_id,omitempty"`
	Actor     *User             `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Action    string            `gorm:"type:varchar(64);not null;index:idx_audit_logs_action_created,priority:1" json:"action"`
	Target    string            `gorm:"type:varchar(150);index" json:"target"`
	Details   datatypes.JSONMap `json:"details"`
	CreatedAt time.Time         `gorm:"index:idx_audit_logs_action_created,priority:2" json:"created_at"`
}

// TableName overrides the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
