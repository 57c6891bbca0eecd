package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"errors,omitempty"`
	Counts map[string]int64  `json:"counts,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// redirect answers a successful write with 303 See Other
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// writeError maps a service error onto its HTTP outcome
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *services.ValidationError
	var ierr *services.IntegrityError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &ierr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: ierr.Message, Counts: ierr.Counts})
	case errors.Is(err, services.ErrUnauthenticated):
		middleware.RedirectToLogin(w, r)
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "You do not have permission to perform this action."})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found."})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
	}
}

// idParam reads the {id} route parameter; ok is false when it is not a positive integer
func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// withID runs fn with the parsed route id, answering 404 for malformed ids
func withID(fn func(w http.ResponseWriter, r *http.Request, id uint)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found."})
			return
		}
		fn(w, r, id)
	}
}

// path builds "/base/{id}"
func path(base string, id uint) string {
	return base + "/" + strconv.FormatUint(uint64(id), 10)
}

// guard checks type-level permissions for pages that only render a form
type guard struct {
	policy *policy.Engine
}

// allow writes the denial and returns false when the caller may not perform action
func (g guard) allow(w http.ResponseWriter, r *http.Request, resource policy.Resource, action policy.Action) bool {
	err := g.policy.Authorize(middleware.GetPrincipal(r.Context()), resource, action).Err()
	if err != nil {
		writeError(w, r, err, "")
		return false
	}
	return true
}
