package reporting

import (
	"time"

	"github.com/otcheredev/hospital-records/internal/models"
)

// Age group labels in display order
const (
	AgeGroup0to17  = "0-17"
	AgeGroup18to30 = "18-30"
	AgeGroup31to45 = "31-45"
	AgeGroup46to60 = "46-60"
	AgeGroup61to75 = "61-75"
	AgeGroup75Plus = "75+"
)

type ageBand struct {
	label  string
	lo, hi int // inclusive; hi < 0 means unbounded
}

var ageBands = []ageBand{
	{AgeGroup0to17, 0, 17},
	{AgeGroup18to30, 18, 30},
	{AgeGroup31to45, 31, 45},
	{AgeGroup46to60, 46, 60},
	{AgeGroup61to75, 61, 75},
	{AgeGroup75Plus, 76, -1},
}

// AgeGroups lists the age group labels in display order
func AgeGroups() []string {
	out := make([]string, len(ageBands))
	for i, b := range ageBands {
		out[i] = b.label
	}
	return out
}

// AgeGroup returns the bucket label for an age in completed years
func AgeGroup(age int) string {
	for _, b := range ageBands {
		if b.hi < 0 || age <= b.hi {
			return b.label
		}
	}
	return AgeGroup75Plus
}

// DOBRange bounds date of birth: After is exclusive, OnOrBefore inclusive.
// A nil bound is open.
type DOBRange struct {
	After      *time.Time
	OnOrBefore *time.Time
}

// Contains reports whether dob falls inside the range
func (r DOBRange) Contains(dob time.Time) bool {
	if r.After != nil && !dob.After(*r.After) {
		return false
	}
	if r.OnOrBefore != nil && dob.After(*r.OnOrBefore) {
		return false
	}
	return true
}

// AgeGroupRange converts an age group label into the date-of-birth range of
// patients in that group on the given day. The range agrees with AgeGroup
// applied to models.AgeOn, including birthdays on 29 February.
func AgeGroupRange(label string, today time.Time) (DOBRange, bool) {
	for _, b := range ageBands {
		if b.label != label {
			continue
		}
		var r DOBRange
		if b.lo > 0 {
			t := birthCutoff(today, b.lo)
			r.OnOrBefore = &t
		}
		if b.hi >= 0 {
			t := birthCutoff(today, b.hi+1)
			r.After = &t
		}
		return r, true
	}
	return DOBRange{}, false
}

// birthCutoff returns the latest date of birth of someone who is at least
// years old on today.
func birthCutoff(today time.Time, years int) time.Time {
	y, m, d := today.Date()
	t := time.Date(y-years, m, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != m {
		// 29 February in a non-leap year: the birthday has not happened until 1 March
		t = time.Date(y-years, m+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// BMI band labels in display order
const (
	BMIUnderweight = "Underweight (<18.5)"
	BMINormal      = "Normal (18.5-24.9)"
	BMIOverweight  = "Overweight (25-29.9)"
	BMIObese       = "Obese (≥30)"
)

// BMIBands lists the BMI band labels in display order
func BMIBands() []string {
	return []string{BMIUnderweight, BMINormal, BMIOverweight, BMIObese}
}

// BMIBand classifies a BMI value
func BMIBand(bmi float64) string {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// BMIRange returns the half-open [Min, Max) bounds of a band; nil is open
func BMIRange(label string) (min, max *float64, ok bool) {
	f := func(v float64) *float64 { return &v }
	switch label {
	case BMIUnderweight:
		return nil, f(18.5), true
	case BMINormal:
		return f(18.5), f(25), true
	case BMIOverweight:
		return f(25), f(30), true
	case BMIObese:
		return f(30), nil, true
	default:
		return nil, nil, false
	}
}

// Today truncates now to midnight UTC
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PatientAgeGroup buckets a patient on the given day
func PatientAgeGroup(p *models.Patient, today time.Time) string {
	return AgeGroup(p.Age(today))
}
