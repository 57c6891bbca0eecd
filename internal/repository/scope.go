package repository

import (
	"github.com/otcheredev/hospital-records/internal/policy"
	"gorm.io/gorm"
)

// treatedPatients selects the ids of patients a doctor has a health record with
func treatedPatients(db *gorm.DB, doctorID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("health_records").
		Select("patient_id").
		Where("doctor_id = ?", doctorID)
}

// scopePatients restricts a query over patients (column is the patient id column)
func scopePatients(q *gorm.DB, scope policy.Scope, column string) *gorm.DB {
	switch scope.Kind {
	case policy.ScopeAll:
		return q
	case policy.ScopeDoctor:
		return q.Where(column+" IN (?)", treatedPatients(q, scope.DoctorID))
	case policy.ScopePatient:
		return q.Where(column+" = ?", scope.PatientID)
	default:
		return q.Where("1 = 0")
	}
}

// scopeAppointments restricts a query over appointments
func scopeAppointments(q *gorm.DB, scope policy.Scope) *gorm.DB {
	switch scope.Kind {
	case policy.ScopeAll:
		return q
	case policy.ScopeDoctor:
		return q.Where("appointments.doctor_id = ?", scope.DoctorID)
	case policy.ScopePatient:
		return q.Where("appointments.patient_id = ?", scope.PatientID)
	default:
		return q.Where("1 = 0")
	}
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
