package handlers

import (
	"net/http"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
)

type PatientHandler struct {
	guard
	service *services.PatientService
}

func NewPatientHandler(service *services.PatientService, engine *policy.Engine) *PatientHandler {
	return &PatientHandler{guard: guard{engine}, service: service}
}

// List returns the visible patients, honouring search and the dashboard
// drill-down parameters filter_type and filter_value
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter models.PatientFilter
	if err := bindQuery(r, &filter); err != nil {
		writeError(w, r, err, "Failed to read patient filter")
		return
	}
	page, err := h.service.List(r.Context(), middleware.GetPrincipal(r.Context()), filter)
	if err != nil {
		writeError(w, r, err, "Failed to list patients")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request, id uint) {
	detail, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get patient")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *PatientHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourcePatient, policy.ActionCreate) {
		return
	}
	writeJSON(w, http.StatusOK, patientFormContext())
}

// Create registers a patient with a portal login
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.PatientAccountRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read patient")
		return
	}
	patient, err := h.service.Create(r.Context(), middleware.GetPrincipal(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create patient")
		return
	}
	redirect(w, r, path("/patients", patient.ID))
}

func (h *PatientHandler) EditForm(w http.ResponseWriter, r *http.Request, id uint) {
	patient, err := h.service.Editable(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get patient")
		return
	}
	ctx := patientFormContext()
	ctx.Instance = patient
	writeJSON(w, http.StatusOK, ctx)
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request, id uint) {
	var req models.PatientRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read patient")
		return
	}
	if _, err := h.service.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, &req); err != nil {
		writeError(w, r, err, "Failed to update patient")
		return
	}
	redirect(w, r, path("/patients", id))
}

// DeletePreview shows how many health records and appointments the delete touches
func (h *PatientHandler) DeletePreview(w http.ResponseWriter, r *http.Request, id uint) {
	patient, counts, err := h.service.DeletePreview(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to preview patient delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patient": patient,
		"counts":  counts,
	})
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request, id uint) {
	if _, err := h.service.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		writeError(w, r, err, "Failed to delete patient")
		return
	}
	redirect(w, r, "/patients")
}
