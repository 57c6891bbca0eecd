package handlers

import (
	"strconv"

	"github.com/otcheredev/hospital-records/internal/models"
)

// formContext is what a GET on a create or edit page returns: the current
// values, if any, and the choices for every select field
type formContext struct {
	Instance interface{}         `json:"instance,omitempty"`
	Choices  map[string][]choice `json:"choices,omitempty"`
}

type choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func patientFormContext() formContext {
	genders := make([]choice, 0, len(models.Genders))
	for _, g := range models.Genders {
		genders = append(genders, choice{Value: g.Code, Label: g.Label})
	}
	return formContext{Choices: map[string][]choice{
		"gender":             genders,
		"blood_type":         plainChoices(models.BloodTypes),
		"phone_country_code": plainChoices(models.PhoneCountryCodes),
	}}
}

func roleChoices() []choice {
	out := make([]choice, 0, len(models.Roles))
	for _, r := range models.Roles {
		out = append(out, choice{Value: string(r), Label: string(r)})
	}
	return out
}

func plainChoices(values []string) []choice {
	out := make([]choice, 0, len(values))
	for _, v := range values {
		out = append(out, choice{Value: v, Label: v})
	}
	return out
}

func departmentChoices(depts []models.Department) []choice {
	out := make([]choice, 0, len(depts))
	for _, d := range depts {
		out = append(out, choice{Value: strconv.FormatUint(uint64(d.ID), 10), Label: d.Name})
	}
	return out
}

func doctorChoices(doctors []models.Doctor) []choice {
	out := make([]choice, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, choice{Value: strconv.FormatUint(uint64(d.ID), 10), Label: d.FullName})
	}
	return out
}
