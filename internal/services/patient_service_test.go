package services

import (
	"testing"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patientIDs(page *PatientPage) []uint {
	ids := make([]uint, 0, len(page.Patients))
	for _, p := range page.Patients {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestDoctorSeesOnlyTreatedPatients(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	docA, drA := env.doctor(t, dept.ID, "dra", "Ada A")
	docB, _ := env.doctor(t, dept.ID, "drb", "Bo B")

	treated, _ := env.patient(t, "p1", "Treated", "One")
	other, _ := env.patient(t, "p2", "Other", "Two")
	booked, _ := env.patient(t, "p3", "Booked", "Three")

	env.record(t, treated.ID, docA.ID, dept.ID, "Angina")
	env.record(t, other.ID, docB.ID, dept.ID, "Arrhythmia")
	// an appointment alone does not grant visibility
	env.appointment(t, booked.ID, docA.ID, dept.ID)

	page, err := env.reg.Patients.List(env.ctx, drA, models.PatientFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{treated.ID}, patientIDs(page))
	assert.Equal(t, int64(1), page.Total)

	detail, err := env.reg.Patients.Get(env.ctx, drA, treated.ID)
	require.NoError(t, err)
	assert.Equal(t, treated.ID, detail.Patient.ID)
	require.Len(t, detail.RecentRecords, 1)

	_, err = env.reg.Patients.Get(env.ctx, drA, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.reg.Patients.Get(env.ctx, drA, booked.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	records, err := env.reg.HealthRecords.List(env.ctx, drA, HealthRecordFilter{})
	require.NoError(t, err)
	require.Len(t, records.Records, 1)
	assert.Equal(t, treated.ID, records.Records[0].PatientID)
}

func TestDoctorCannotWritePatients(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	doc, dr := env.doctor(t, dept.ID, "dra", "Ada A")
	p, _ := env.patient(t, "p1", "Pat", "One")
	env.record(t, p.ID, doc.ID, dept.ID, "Flu")

	_, err := env.reg.Patients.Create(env.ctx, dr, patientRequest("p9", "New", "Nine"))
	assert.ErrorIs(t, err, ErrForbidden)

	req := patientRequest("p1", "Pat", "Renamed").PatientRequest
	_, err = env.reg.Patients.Update(env.ctx, dr, p.ID, &req)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.reg.Patients.Delete(env.ctx, dr, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPatientSeesOnlyOwnRecord(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	doc, _ := env.doctor(t, dept.ID, "dra", "Ada A")
	own, self := env.patient(t, "jane", "Jane", "Doe")
	other, _ := env.patient(t, "john", "John", "Roe")
	mine := env.record(t, own.ID, doc.ID, dept.ID, "Flu")
	theirs := env.record(t, other.ID, doc.ID, dept.ID, "Cold")

	page, err := env.reg.Patients.List(env.ctx, self, models.PatientFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{own.ID}, patientIDs(page))

	_, err = env.reg.Patients.Get(env.ctx, self, own.ID)
	require.NoError(t, err)

	// another patient's id and an id that does not exist fail identically
	_, errOther := env.reg.Patients.Get(env.ctx, self, other.ID)
	_, errMissing := env.reg.Patients.Get(env.ctx, self, 99999)
	assert.ErrorIs(t, errOther, ErrNotFound)
	assert.ErrorIs(t, errMissing, ErrNotFound)

	_, err = env.reg.HealthRecords.Get(env.ctx, self, mine.ID)
	require.NoError(t, err)
	_, err = env.reg.HealthRecords.Get(env.ctx, self, theirs.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	req := patientRequest("jane", "Janet", "Doe").PatientRequest
	req.PatientID = "HIJACK"
	updated, err := env.reg.Patients.Update(env.ctx, self, own.ID, &req)
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, own.PatientID, updated.PatientID)

	_, err = env.reg.Patients.Update(env.ctx, self, other.ID, &req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePatient_Uniqueness(t *testing.T) {
	env := newEnv(t)

	req := patientRequest("p1", "Pat", "One")
	req.PatientID = "PAT-1"
	req.NationalID = "123456789012"
	_, err := env.reg.Patients.Create(env.ctx, env.admin, req)
	require.NoError(t, err)

	dup := patientRequest("p2", "Pat", "Two")
	dup.PatientID = "PAT-1"
	dup.NationalID = "123456789012"
	_, err = env.reg.Patients.Create(env.ctx, env.admin, dup)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgPatientIDTaken, verr.Fields["patient_id"])
	assert.Equal(t, msgNationalIDTaken, verr.Fields["national_id"])

	// the rolled back attempt left no login behind
	_, err = env.users.GetByUsername(env.ctx, "p2")
	assert.True(t, repository.IsNotFound(err))

	sameUser := patientRequest("p1", "Pat", "Three")
	_, err = env.reg.Patients.Create(env.ctx, env.admin, sameUser)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgUsernameTaken, verr.Fields["username"])
}

func TestCreatePatient_Validation(t *testing.T) {
	env := newEnv(t)

	req := patientRequest("p1", "", "One")
	req.Phone = "12ab"
	req.Gender = "X"
	req.DateOfBirth = "01/02/1990"
	_, err := env.reg.Patients.Create(env.ctx, env.admin, req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"first_name", "phone", "gender", "date_of_birth"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestDeletePatient_CascadesRecordsAndDetachesAppointments(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	doc, _ := env.doctor(t, dept.ID, "dra", "Ada A")
	p, _ := env.patient(t, "jane", "Jane", "Doe")
	for _, dx := range []string{"Flu", "Cold", "Angina"} {
		env.record(t, p.ID, doc.ID, dept.ID, dx)
	}
	appt := env.appointment(t, p.ID, doc.ID, dept.ID)

	_, counts, err := env.reg.Patients.DeletePreview(env.ctx, env.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["health_records"])
	assert.Equal(t, int64(1), counts["appointments"])

	summary, err := env.reg.Patients.Delete(env.ctx, env.admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.HealthRecordsDeleted)
	assert.Equal(t, int64(1), summary.AppointmentsDetached)

	left, err := repository.NewHealthRecordRepository().CountByPatient(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, left)

	kept, err := repository.NewAppointmentRepository().GetByID(env.ctx, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.PatientID)
	assert.Equal(t, "Jane Doe", kept.PatientName)
	assert.Equal(t, "jane@example.com", kept.PatientEmail)

	entries, err := repository.NewAuditRepository().ListByAction(env.ctx, models.AuditDeletePatient, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, p.PatientID, entries[0].Target)
}

func TestPatientList_DrillDownFilters(t *testing.T) {
	env := newEnv(t)
	cardio := env.department(t, "Cardiology")
	neuro := env.department(t, "Neurology")
	doc, _ := env.doctor(t, cardio.ID, "dra", "Ada A")

	female, _ := env.patient(t, "f1", "Fay", "Female")
	maleReq := patientRequest("m1", "Max", "Male")
	maleReq.Gender = models.GenderMale
	maleReq.BloodType = "A-"
	male, err := env.reg.Patients.Create(env.ctx, env.admin, maleReq)
	require.NoError(t, err)

	_, err = env.reg.HealthRecords.Create(env.ctx, env.admin, &models.HealthRecordRequest{
		PatientID: female.ID, DoctorID: doc.ID, DepartmentID: cardio.ID,
		Diagnosis: "Hypertension", Weight: fptr(70), Height: fptr(175),
	})
	require.NoError(t, err)
	env.appointment(t, male.ID, doc.ID, neuro.ID)

	tests := []struct {
		name   string
		filter models.PatientFilter
		want   []uint
	}{
		{"gender label", models.PatientFilter{FilterType: FilterGender, FilterValue: "Male"}, []uint{male.ID}},
		{"blood type", models.PatientFilter{FilterType: FilterBloodType, FilterValue: "O+"}, []uint{female.ID}},
		{"department by name", models.PatientFilter{FilterType: FilterDepartment, FilterValue: "Neurology"}, []uint{male.ID}},
		{"diagnosis", models.PatientFilter{FilterType: FilterDiagnosis, FilterValue: "Hypertension"}, []uint{female.ID}},
		{"bmi band", models.PatientFilter{FilterType: FilterBMI, FilterValue: "Normal (18.5-24.9)"}, []uint{female.ID}},
		{"search", models.PatientFilter{Search: "max"}, []uint{male.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.reg.Patients.List(env.ctx, env.admin, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, patientIDs(page))
		})
	}

	_, err = env.reg.Patients.List(env.ctx, env.admin, models.PatientFilter{FilterType: "shoe_size", FilterValue: "9"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "filter_type")
}
