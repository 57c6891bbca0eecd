// Package reporting computes the dashboard statistics. Every function here is
// pure: it reads a Snapshot and never touches storage.
package reporting

import (
	"math"
	"sort"
	"time"

	"github.com/otcheredev/hospital-records/internal/models"
)

// TopDiagnosesLimit caps the diagnosis ranking
const TopDiagnosesLimit = 10

// RegistrationWindow is the trailing period covered by monthly registrations
const RegistrationWindow = 365 * 24 * time.Hour

// Snapshot is the record set a dashboard is computed from
type Snapshot struct {
	Now           time.Time
	Departments   []models.Department
	Doctors       []models.Doctor
	Patients      []models.Patient
	HealthRecords []models.HealthRecord
	Appointments  []models.Appointment
}

// Count is one labelled bar of a chart
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Vitals holds per-department averages rounded to one decimal. Diastolic and
// heart rate are nil when no qualifying record carries them.
type Vitals struct {
	SystolicBP  float64  `json:"systolic_bp"`
	DiastolicBP *float64 `json:"diastolic_bp"`
	HeartRate   *float64 `json:"heart_rate"`
}

// Dashboard is the context handed to the presentation layer
type Dashboard struct {
	GeneratedAt        time.Time         `json:"generated_at"`
	TotalPatients      int               `json:"total_patients"`
	TotalDoctors       int               `json:"total_doctors"`
	TotalDepartments   int               `json:"total_departments"`
	TotalHealthRecords int               `json:"total_health_records"`
	TotalAppointments  int               `json:"total_appointments"`
	Gender             []Count           `json:"gender"`
	BloodTypes         []Count           `json:"blood_types"`
	AgeGroups          []Count           `json:"age_groups"`
	Registrations      []Count           `json:"registrations"`
	DepartmentPatients []Count           `json:"department_patients"`
	TopDiagnoses       []Count           `json:"top_diagnoses"`
	DepartmentVitals   map[string]Vitals `json:"department_vitals"`
	BMIBands           []Count           `json:"bmi_bands"`
}

// Build computes every dashboard statistic from s
func Build(s Snapshot) Dashboard {
	return Dashboard{
		GeneratedAt:        s.Now,
		TotalPatients:      len(s.Patients),
		TotalDoctors:       len(s.Doctors),
		TotalDepartments:   len(s.Departments),
		TotalHealthRecords: len(s.HealthRecords),
		TotalAppointments:  len(s.Appointments),
		Gender:             GenderCounts(s.Patients),
		BloodTypes:         BloodTypeCounts(s.Patients),
		AgeGroups:          AgeGroupCounts(s.Patients, s.Now),
		Registrations:      MonthlyRegistrations(s.Patients, s.Now),
		DepartmentPatients: DepartmentPatientCounts(s.Departments, s.HealthRecords, s.Appointments),
		TopDiagnoses:       TopDiagnoses(s.HealthRecords, TopDiagnosesLimit),
		DepartmentVitals:   DepartmentVitals(s.Departments, s.HealthRecords),
		BMIBands:           BMIDistribution(s.HealthRecords),
	}
}

// GenderCounts counts patients per gender present, in choice order, labelled
func GenderCounts(patients []models.Patient) []Count {
	counts := make(map[string]int)
	for _, p := range patients {
		counts[p.Gender]++
	}

	out := []Count{}
	for _, g := range models.Genders {
		if n := counts[g.Code]; n > 0 {
			out = append(out, Count{Label: g.Label, Count: n})
			delete(counts, g.Code)
		}
	}
	// codes outside the choice list keep their raw value
	rest := make([]string, 0, len(counts))
	for code := range counts {
		rest = append(rest, code)
	}
	sort.Strings(rest)
	for _, code := range rest {
		out = append(out, Count{Label: code, Count: counts[code]})
	}
	return out
}

// BloodTypeCounts counts patients per non-blank blood type, sorted by type
func BloodTypeCounts(patients []models.Patient) []Count {
	counts := make(map[string]int)
	for _, p := range patients {
		if p.BloodType != "" {
			counts[p.BloodType]++
		}
	}
	return sortedCounts(counts)
}

// AgeGroupCounts buckets patients by age on now's date; every bucket is present
func AgeGroupCounts(patients []models.Patient, now time.Time) []Count {
	today := Today(now)
	counts := make(map[string]int)
	for i := range patients {
		counts[PatientAgeGroup(&patients[i], today)]++
	}

	out := make([]Count, 0, len(ageBands))
	for _, label := range AgeGroups() {
		out = append(out, Count{Label: label, Count: counts[label]})
	}
	return out
}

// MonthlyRegistrations counts patients registered within the trailing window,
// grouped by calendar month (YYYY-MM, UTC) in ascending order. Months without
// registrations are absent.
func MonthlyRegistrations(patients []models.Patient, now time.Time) []Count {
	since := now.Add(-RegistrationWindow)
	counts := make(map[string]int)
	for _, p := range patients {
		if p.RegistrationDate.Before(since) {
			continue
		}
		counts[p.RegistrationDate.UTC().Format("2006-01")]++
	}
	return sortedCounts(counts)
}

// DepartmentPatientCounts counts, per department, the distinct patients with
// at least one health record or linked appointment there. Departments appear
// in the given order, including those with no patients.
func DepartmentPatientCounts(departments []models.Department, records []models.HealthRecord, appointments []models.Appointment) []Count {
	seen := make(map[uint]map[uint]struct{})
	add := func(dept, patient uint) {
		set, ok := seen[dept]
		if !ok {
			set = make(map[uint]struct{})
			seen[dept] = set
		}
		set[patient] = struct{}{}
	}
	for _, r := range records {
		add(r.DepartmentID, r.PatientID)
	}
	for _, a := range appointments {
		if a.PatientID != nil {
			add(a.DepartmentID, *a.PatientID)
		}
	}

	out := make([]Count, 0, len(departments))
	for _, d := range departments {
		out = append(out, Count{Label: d.Name, Count: len(seen[d.ID])})
	}
	return out
}

// TopDiagnoses ranks non-blank diagnoses by frequency. Ties keep the order in
// which the diagnosis first appears when records are read by ascending id.
func TopDiagnoses(records []models.HealthRecord, limit int) []Count {
	ordered := make([]models.HealthRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	index := make(map[string]int)
	var out []Count
	for _, r := range ordered {
		if r.Diagnosis == "" {
			continue
		}
		if i, ok := index[r.Diagnosis]; ok {
			out[i].Count++
			continue
		}
		index[r.Diagnosis] = len(out)
		out = append(out, Count{Label: r.Diagnosis, Count: 1})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Count{}
	}
	return out
}

// DepartmentVitals averages vitals per department over records that carry a
// systolic reading. Departments without such records are left out.
func DepartmentVitals(departments []models.Department, records []models.HealthRecord) map[string]Vitals {
	type acc struct {
		sys, dia, hr    float64
		nSys, nDia, nHR int
	}
	byDept := make(map[uint]*acc)
	for _, r := range records {
		if r.SystolicBP == nil {
			continue
		}
		a, ok := byDept[r.DepartmentID]
		if !ok {
			a = &acc{}
			byDept[r.DepartmentID] = a
		}
		a.sys += float64(*r.SystolicBP)
		a.nSys++
		if r.DiastolicBP != nil {
			a.dia += float64(*r.DiastolicBP)
			a.nDia++
		}
		if r.HeartRate != nil {
			a.hr += float64(*r.HeartRate)
			a.nHR++
		}
	}

	out := make(map[string]Vitals)
	for _, d := range departments {
		a, ok := byDept[d.ID]
		if !ok {
			continue
		}
		v := Vitals{SystolicBP: round1(a.sys / float64(a.nSys))}
		if a.nDia > 0 {
			dia := round1(a.dia / float64(a.nDia))
			v.DiastolicBP = &dia
		}
		if a.nHR > 0 {
			hr := round1(a.hr / float64(a.nHR))
			v.HeartRate = &hr
		}
		out[d.Name] = v
	}
	return out
}

// BMIDistribution counts records with a BMI into the four fixed bands
func BMIDistribution(records []models.HealthRecord) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		if r.BMI != nil {
			counts[BMIBand(*r.BMI)]++
		}
	}
	out := make([]Count, 0, 4)
	for _, label := range BMIBands() {
		out = append(out, Count{Label: label, Count: counts[label]})
	}
	return out
}

func sortedCounts(counts map[string]int) []Count {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Count, 0, len(keys))
	for _, k := range keys {
		out = append(out, Count{Label: k, Count: counts[k]})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
