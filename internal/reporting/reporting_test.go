package reporting

import (
	"testing"
	"time"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)

func iptr(v int) *int { return &v }
func fptr(v float64) *float64 { return &v }
func uptr(v uint) *uint { return &v }
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeGroupBoundary(t *testing.T) {
	today := Today(now)

	exactly18 := models.Patient{DateOfBirth: date(2008, 6, 15)}
	turns18Tomorrow := models.Patient{DateOfBirth: date(2008, 6, 16)}

	assert.Equal(t, AgeGroup18to30, PatientAgeGroup(&exactly18, today))
	assert.Equal(t, AgeGroup0to17, PatientAgeGroup(&turns18Tomorrow, today))

	tests := []struct {
		age  int
		want string
	}{
		{0, AgeGroup0to17}, {17, AgeGroup0to17}, {18, AgeGroup18to30}, {30, AgeGroup18to30},
		{31, AgeGroup31to45}, {45, AgeGroup31to45}, {46, AgeGroup46to60}, {60, AgeGroup46to60},
		{61, AgeGroup61to75}, {75, AgeGroup61to75}, {76, AgeGroup75Plus}, {102, AgeGroup75Plus},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AgeGroup(tt.age), "age %d", tt.age)
	}
}

func TestAgeGroupRangeAgreesWithBuckets(t *testing.T) {
	days := []time.Time{date(2026, 6, 15), date(2028, 2, 29), date(2027, 3, 1), date(2026, 12, 31)}

	for _, today := range days {
		for dob := today.AddDate(-90, 0, -3); !dob.After(today); dob = dob.AddDate(0, 0, 11) {
			want := AgeGroup(models.AgeOn(dob, today))
			for _, label := range AgeGroups() {
				r, ok := AgeGroupRange(label, today)
				require.True(t, ok)
				assert.Equal(t, label == want, r.Contains(dob), "today=%s dob=%s label=%s", today.Format("2006-01-02"), dob.Format("2006-01-02"), label)
			}
		}
	}

	_, ok := AgeGroupRange("12-14", now)
	assert.False(t, ok)
}

func TestLeapDayBirthday(t *testing.T) {
	dob := date(2008, 2, 29)
	assert.Equal(t, 17, models.AgeOn(dob, date(2026, 2, 28)))
	assert.Equal(t, 18, models.AgeOn(dob, date(2026, 3, 1)))

	r, _ := AgeGroupRange(AgeGroup18to30, date(2026, 2, 28))
	assert.False(t, r.Contains(dob))
	r, _ = AgeGroupRange(AgeGroup18to30, date(2026, 3, 1))
	assert.True(t, r.Contains(dob))
}

func TestBMIBand(t *testing.T) {
	assert.Equal(t, BMIUnderweight, BMIBand(18.49))
	assert.Equal(t, BMINormal, BMIBand(18.5))
	assert.Equal(t, BMINormal, BMIBand(24.99))
	assert.Equal(t, BMIOverweight, BMIBand(25))
	assert.Equal(t, BMIObese, BMIBand(30))

	min, max, ok := BMIRange(BMINormal)
	require.True(t, ok)
	assert.Equal(t, 18.5, *min)
	assert.Equal(t, 25.0, *max)

	min, max, ok = BMIRange(BMIObese)
	require.True(t, ok)
	assert.Equal(t, 30.0, *min)
	assert.Nil(t, max)
}

func TestGenderAndBloodTypes(t *testing.T) {
	patients := []models.Patient{
		{Gender: "F", BloodType: "O+"},
		{Gender: "M", BloodType: ""},
		{Gender: "F", BloodType: "A-"},
		{Gender: "P", BloodType: "O+"},
	}

	assert.Equal(t, []Count{
		{"Male", 1}, {"Female", 2}, {"Prefer not to say", 1},
	}, GenderCounts(patients))

	assert.Equal(t, []Count{{"A-", 1}, {"O+", 2}}, BloodTypeCounts(patients))
}

func TestMonthlyRegistrations(t *testing.T) {
	patients := []models.Patient{
		{RegistrationDate: date(2025, 6, 14)}, // just outside 365 days
		{RegistrationDate: date(2025, 6, 16)},
		{RegistrationDate: date(2026, 1, 3)},
		{RegistrationDate: date(2026, 1, 28)},
		{RegistrationDate: date(2026, 6, 1)},
	}

	assert.Equal(t, []Count{
		{"2025-06", 1}, {"2026-01", 2}, {"2026-06", 1},
	}, MonthlyRegistrations(patients, now))
}

func TestDepartmentPatientCounts(t *testing.T) {
	depts := []models.Department{{ID: 1, Name: "Cardiology"}, {ID: 2, Name: "Neurology"}, {ID: 3, Name: "Oncology"}}
	records := []models.HealthRecord{
		{PatientID: 10, DepartmentID: 1},
		{PatientID: 10, DepartmentID: 1},
		{PatientID: 11, DepartmentID: 1},
		{PatientID: 10, DepartmentID: 2},
	}
	appts := []models.Appointment{
		{PatientID: uptr(12), DepartmentID: 2},
		{PatientID: uptr(10), DepartmentID: 2},
		{PatientID: nil, DepartmentID: 3},
	}

	assert.Equal(t, []Count{
		{"Cardiology", 2}, {"Neurology", 2}, {"Oncology", 0},
	}, DepartmentPatientCounts(depts, records, appts))
}

func TestTopDiagnoses(t *testing.T) {
	var records []models.HealthRecord
	add := func(id uint, diag string) {
		records = append(records, models.HealthRecord{ID: id, Diagnosis: diag})
	}
	// inserted out of id order on purpose
	add(5, "Asthma")
	add(1, "Flu")
	add(2, "Asthma")
	add(3, "Migraine")
	add(4, "")
	add(6, "Flu")
	add(7, "Diabetes")

	got := TopDiagnoses(records, 10)
	assert.Equal(t, []Count{{"Flu", 2}, {"Asthma", 2}, {"Migraine", 1}, {"Diabetes", 1}}, got)

	assert.Len(t, TopDiagnoses(records, 2), 2)
	assert.Equal(t, []Count{}, TopDiagnoses(nil, 10))
}

func TestDepartmentVitals(t *testing.T) {
	depts := []models.Department{{ID: 1, Name: "Cardiology"}, {ID: 2, Name: "Neurology"}, {ID: 3, Name: "Oncology"}}
	records := []models.HealthRecord{
		{DepartmentID: 1, SystolicBP: iptr(120), DiastolicBP: iptr(80), HeartRate: iptr(70)},
		{DepartmentID: 1, SystolicBP: iptr(131), DiastolicBP: nil, HeartRate: iptr(75)},
		{DepartmentID: 1, SystolicBP: nil, DiastolicBP: iptr(200), HeartRate: iptr(200)},
		{DepartmentID: 2, SystolicBP: iptr(110)},
		{DepartmentID: 3, DiastolicBP: iptr(70)},
	}

	got := DepartmentVitals(depts, records)
	require.Len(t, got, 2)

	cardio := got["Cardiology"]
	assert.Equal(t, 125.5, cardio.SystolicBP)
	require.NotNil(t, cardio.DiastolicBP)
	assert.Equal(t, 80.0, *cardio.DiastolicBP)
	require.NotNil(t, cardio.HeartRate)
	assert.Equal(t, 72.5, *cardio.HeartRate)

	neuro := got["Neurology"]
	assert.Equal(t, 110.0, neuro.SystolicBP)
	assert.Nil(t, neuro.DiastolicBP)
	assert.Nil(t, neuro.HeartRate)

	_, ok := got["Oncology"]
	assert.False(t, ok)
}

func TestBMIDistribution(t *testing.T) {
	records := []models.HealthRecord{
		{BMI: fptr(17.2)}, {BMI: fptr(22.86)}, {BMI: fptr(18.5)}, {BMI: fptr(27)}, {BMI: fptr(31.4)}, {BMI: nil},
	}
	assert.Equal(t, []Count{
		{BMIUnderweight, 1}, {BMINormal, 2}, {BMIOverweight, 1}, {BMIObese, 1},
	}, BMIDistribution(records))
}

func TestBuildIsPure(t *testing.T) {
	s := Snapshot{
		Now:         now,
		Departments: []models.Department{{ID: 1, Name: "Cardiology"}},
		Doctors:     []models.Doctor{{ID: 1, DepartmentID: 1}},
		Patients: []models.Patient{
			{ID: 1, Gender: "F", DateOfBirth: date(1990, 1, 1), RegistrationDate: date(2026, 5, 2)},
		},
		HealthRecords: []models.HealthRecord{
			{ID: 2, PatientID: 1, DepartmentID: 1, Diagnosis: "Flu", SystolicBP: iptr(118), BMI: fptr(21)},
			{ID: 1, PatientID: 1, DepartmentID: 1, Diagnosis: "Cold"},
		},
	}

	first := Build(s)
	second := Build(s)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, first.TotalPatients)
	assert.Equal(t, 2, first.TotalHealthRecords)
	assert.Equal(t, []Count{{"Cold", 1}, {"Flu", 1}}, first.TopDiagnoses)
	// input order untouched
	assert.Equal(t, uint(2), s.HealthRecords[0].ID)
}
