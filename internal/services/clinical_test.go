package services

import (
	"testing"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRecord_BMI(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "General")
	doc, _ := env.doctor(t, dept.ID, "dra", "Ada A")
	p, _ := env.patient(t, "jane", "Jane", "Doe")

	req := &models.HealthRecordRequest{
		PatientID: p.ID, DoctorID: doc.ID, DepartmentID: dept.ID,
		Weight: fptr(70), Height: fptr(175),
	}
	rec, err := env.reg.HealthRecords.Create(env.ctx, env.admin, req)
	require.NoError(t, err)

	stored, err := env.reg.HealthRecords.Get(env.ctx, env.admin, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.BMI)
	assert.InDelta(t, 22.86, *stored.BMI, 0.001)

	for name, height := range map[string]*float64{"zero height": fptr(0), "missing height": nil} {
		t.Run(name, func(t *testing.T) {
			rec, err := env.reg.HealthRecords.Create(env.ctx, env.admin, &models.HealthRecordRequest{
				PatientID: p.ID, DoctorID: doc.ID, DepartmentID: dept.ID,
				Weight: fptr(70), Height: height,
			})
			require.NoError(t, err)
			stored, err := env.reg.HealthRecords.Get(env.ctx, env.admin, rec.ID)
			require.NoError(t, err)
			assert.Nil(t, stored.BMI)
		})
	}
}

func TestHealthRecord_Validation(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "General")
	doc, _ := env.doctor(t, dept.ID, "dra", "Ada A")
	p, _ := env.patient(t, "jane", "Jane", "Doe")

	_, err := env.reg.HealthRecords.Create(env.ctx, env.admin, &models.HealthRecordRequest{
		PatientID: p.ID, DoctorID: doc.ID, DepartmentID: dept.ID,
		SystolicBP: iptr(400), Temperature: fptr(50),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "systolic_bp")
	assert.Contains(t, verr.Fields, "temperature")

	_, err = env.reg.HealthRecords.Create(env.ctx, env.admin, &models.HealthRecordRequest{
		PatientID: 9999, DoctorID: doc.ID, DepartmentID: dept.ID,
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "patient_id")
}

func TestHealthRecord_DoctorAuthorsAsSelf(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "General")
	docA, drA := env.doctor(t, dept.ID, "dra", "Ada A")
	docB, _ := env.doctor(t, dept.ID, "drb", "Bo B")
	p, _ := env.patient(t, "jane", "Jane", "Doe")

	rec, err := env.reg.HealthRecords.Create(env.ctx, drA, &models.HealthRecordRequest{
		PatientID: p.ID, DoctorID: docB.ID, DepartmentID: dept.ID, Diagnosis: "Flu",
	})
	require.NoError(t, err)
	assert.Equal(t, docA.ID, rec.DoctorID)

	// the new record makes the patient visible to the doctor
	_, err = env.reg.Patients.Get(env.ctx, drA, p.ID)
	assert.NoError(t, err)

	// doctors never edit or delete records
	_, err = env.reg.HealthRecords.Update(env.ctx, drA, rec.ID, &models.HealthRecordRequest{
		PatientID: p.ID, DoctorID: docA.ID, DepartmentID: dept.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, env.reg.HealthRecords.Delete(env.ctx, drA, rec.ID), ErrForbidden)
}

func TestHealthRecord_DoctorWithoutRosterEntry(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "General")
	p, _ := env.patient(t, "jane", "Jane", "Doe")
	env.createUser(t, "loose", models.RoleDoctor, "password123")
	loose := env.principal(t, "loose")
	assert.Nil(t, loose.DoctorID)

	_, err := env.reg.HealthRecords.Create(env.ctx, loose, &models.HealthRecordRequest{
		PatientID: p.ID, DepartmentID: dept.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := env.reg.Patients.List(env.ctx, loose, models.PatientFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Patients)
}

func TestDeleteDepartment_RestrictedWhileReferenced(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	doc, _ := env.doctor(t, dept.ID, "dra", "Ada A")
	p, _ := env.patient(t, "jane", "Jane", "Doe")
	env.record(t, p.ID, doc.ID, dept.ID, "Angina")

	_, refs, err := env.reg.Departments.DeletePreview(env.ctx, env.admin, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs.Doctors)
	assert.Equal(t, int64(1), refs.HealthRecords)

	err = env.reg.Departments.Delete(env.ctx, env.admin, dept.ID)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, int64(1), ierr.Counts["doctors"])
	assert.Equal(t, int64(1), ierr.Counts["health_records"])

	_, err = env.reg.Departments.Get(env.ctx, env.admin, dept.ID)
	require.NoError(t, err)
	count, err := repository.NewHealthRecordRepository().CountByPatient(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteDepartment_WithOnlyDoctorIsBlocked(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	env.doctor(t, dept.ID, "dra", "Ada A")

	var ierr *IntegrityError
	require.ErrorAs(t, env.reg.Departments.Delete(env.ctx, env.admin, dept.ID), &ierr)
}

func TestDeleteDepartment_Unreferenced(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Empty")

	require.NoError(t, env.reg.Departments.Delete(env.ctx, env.admin, dept.ID))
	_, err := env.reg.Departments.Get(env.ctx, env.admin, dept.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := repository.NewAuditRepository().ListByAction(env.ctx, models.AuditDeleteDepartment, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Empty", entries[0].Target)
}

func TestDeleteDoctor(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	busy, _ := env.doctor(t, dept.ID, "dra", "Ada A")
	idle, _ := env.doctor(t, dept.ID, "drb", "Bo B")
	p, _ := env.patient(t, "jane", "Jane", "Doe")
	env.appointment(t, p.ID, busy.ID, dept.ID)

	var ierr *IntegrityError
	require.ErrorAs(t, env.reg.Doctors.Delete(env.ctx, env.admin, busy.ID), &ierr)
	assert.Equal(t, int64(1), ierr.Counts["appointments"])

	require.NoError(t, env.reg.Doctors.Delete(env.ctx, env.admin, idle.ID))
	_, err := env.reg.Doctors.Get(env.ctx, env.admin, idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the login outlives the roster entry
	_, err = env.users.GetByUsername(env.ctx, "drb")
	assert.NoError(t, err)
}

func TestDepartmentName_Unique(t *testing.T) {
	env := newEnv(t)
	env.department(t, "Cardiology")

	_, err := env.reg.Departments.Create(env.ctx, env.admin, &models.DepartmentRequest{Name: "Cardiology"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgDepartmentTaken, verr.Fields["name"])
}

func TestDoctorCreate_DuplicateUsernameRollsBack(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	env.doctor(t, dept.ID, "dra", "Ada A")

	_, err := env.reg.Doctors.Create(env.ctx, env.admin, &models.DoctorRequest{
		FullName: "Another", DepartmentID: dept.ID, Username: "dra", Password1: "doctorpass1", Password2: "doctorpass1",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")

	doctors, err := env.reg.Doctors.List(env.ctx, env.admin, dept.ID)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
}

func TestAppointment_PatientBooksForSelf(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "General")
	doc, dr := env.doctor(t, dept.ID, "dra", "Ada A")
	own, self := env.patient(t, "jane", "Jane", "Doe")
	other, _ := env.patient(t, "john", "John", "Roe")

	appt, err := env.reg.Appointments.Book(env.ctx, self, &models.AppointmentRequest{
		PatientID:       &other.ID,
		DoctorID:        doc.ID,
		DepartmentID:    dept.ID,
		AppointmentDate: "2030-03-01T09:00",
	})
	require.NoError(t, err)
	require.NotNil(t, appt.PatientID)
	assert.Equal(t, own.ID, *appt.PatientID)
	assert.Equal(t, "Jane Doe", appt.PatientName)
	assert.Equal(t, "jane@example.com", appt.PatientEmail)

	theirs := env.appointment(t, other.ID, doc.ID, dept.ID)
	_, err = env.reg.Appointments.Get(env.ctx, self, theirs.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	page, err := env.reg.Appointments.List(env.ctx, self, AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, page.Appointments, 1)
	assert.Equal(t, appt.ID, page.Appointments[0].ID)

	// doctors see the appointments booked with them
	page, err = env.reg.Appointments.List(env.ctx, dr, AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Appointments, 2)
}

func TestAppointment_Validation(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "General")
	doc, _ := env.doctor(t, dept.ID, "dra", "Ada A")

	_, err := env.reg.Appointments.Book(env.ctx, env.admin, &models.AppointmentRequest{
		DoctorID: doc.ID, DepartmentID: dept.ID, AppointmentDate: "soon",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "appointment_date")

	_, err = env.reg.Appointments.Book(env.ctx, env.admin, &models.AppointmentRequest{
		DoctorID: doc.ID, DepartmentID: dept.ID, AppointmentDate: "2030-03-01T09:00",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "patient_name")

	walkIn, err := env.reg.Appointments.Book(env.ctx, env.admin, &models.AppointmentRequest{
		PatientName: "Walk In", DoctorID: doc.ID, DepartmentID: dept.ID, AppointmentDate: "2030-03-01T09:00",
	})
	require.NoError(t, err)
	assert.Nil(t, walkIn.PatientID)
}

func TestDashboard_Access(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	doc, dr := env.doctor(t, dept.ID, "dra", "Ada A")
	p, self := env.patient(t, "jane", "Jane", "Doe")
	env.record(t, p.ID, doc.ID, dept.ID, "Angina")
	env.createUser(t, "ana", models.RoleAnalyst, "password123")

	dash, err := env.reg.Reporting.Dashboard(env.ctx, env.principal(t, "ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, dash.TotalPatients)
	assert.Equal(t, 1, dash.TotalHealthRecords)

	_, err = env.reg.Reporting.Dashboard(env.ctx, dr)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.reg.Reporting.Dashboard(env.ctx, self)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuditLog_AdminOnly(t *testing.T) {
	env := newEnv(t)
	env.createUser(t, "ana", models.RoleAnalyst, "password123")

	entries, err := env.reg.Audit.List(env.ctx, env.admin, models.AuditCreateUser, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = env.reg.Audit.List(env.ctx, env.principal(t, "ana"), "", "", 10, 0)
	assert.ErrorIs(t, err, ErrForbidden)
}
