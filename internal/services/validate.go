package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and converts failures to a ValidationError
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this value has exactly %s characters.", fe.Param())
	case "numeric":
		return "Enter digits only."
	case "oneof":
		return "Select a valid choice."
	case "eqfield":
		return "The two password fields didn't match."
	case "datetime":
		return "Enter a valid date."
	default:
		return "Enter a valid value."
	}
}

// Accepted layouts for date-time inputs, HTML datetime-local first
var dateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDateTime reads a date-time form value as UTC
func parseDateTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fieldError(field, "Enter a valid date/time.")
}

// parseDate reads a YYYY-MM-DD value
func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fieldError(field, "Enter a valid date.")
	}
	return t, nil
}

// mergeErrors folds several validation errors into one; any other error wins
func mergeErrors(errs ...error) error {
	var merged *ValidationError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		if merged == nil {
			merged = &ValidationError{Fields: map[string]string{}}
		}
		for k, v := range ve.Fields {
			if _, ok := merged.Fields[k]; !ok {
				merged.Fields[k] = v
			}
		}
	}
	if merged == nil {
		return nil
	}
	return merged
}
