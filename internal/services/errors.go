package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"gorm.io/gorm"
)

// Authorization outcomes, shared with the policy engine
var (
	ErrUnauthenticated = policy.ErrUnauthenticated
	ErrForbidden       = policy.ErrForbidden
	ErrNotFound        = policy.ErrNotFound
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// NonFieldErrors is the ValidationError key for messages that belong to no
// single field
const NonFieldErrors = "__all__"

// ValidationError carries field-level messages for a rejected input
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == NonFieldErrors {
			parts = append(parts, e.Fields[k])
			continue
		}
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldError builds a single-field validation error
func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IntegrityError reports a delete blocked by live references
type IntegrityError struct {
	Message string
	Counts  map[string]int64
}

func (e *IntegrityError) Error() string {
	return e.Message
}

// notFound maps a missing row onto ErrNotFound and leaves other errors wrapped
func notFound(err error, what string) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// duplicate maps a unique-index violation onto a field error. Concurrent
// writers that slip past the pre-insert checks end up here.
func duplicate(err error, field, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldError(field, msg)
	}
	return err
}
