package handlers

import (
	"net/http"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
)

type AppointmentHandler struct {
	guard
	service     *services.AppointmentService
	patients    *services.PatientService
	doctors     *services.DoctorService
	departments *services.DepartmentService
}

func NewAppointmentHandler(
	service *services.AppointmentService,
	patients *services.PatientService,
	doctors *services.DoctorService,
	departments *services.DepartmentService,
	engine *policy.Engine,
) *AppointmentHandler {
	return &AppointmentHandler{
		guard:       guard{engine},
		service:     service,
		patients:    patients,
		doctors:     doctors,
		departments: departments,
	}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter services.AppointmentFilter
	if err := bindQuery(r, &filter); err != nil {
		writeError(w, r, err, "Failed to read appointment filter")
		return
	}
	page, err := h.service.List(r.Context(), middleware.GetPrincipal(r.Context()), filter)
	if err != nil {
		writeError(w, r, err, "Failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request, id uint) {
	appt, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) BookForm(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourceAppointment, policy.ActionCreate) {
		return
	}
	h.form(w, r, nil)
}

// Book creates an appointment; patients book for themselves
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req models.AppointmentRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read appointment")
		return
	}
	appt, err := h.service.Book(r.Context(), middleware.GetPrincipal(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, "Failed to book appointment")
		return
	}
	redirect(w, r, path("/appointments", appt.ID))
}

func (h *AppointmentHandler) EditForm(w http.ResponseWriter, r *http.Request, id uint) {
	appt, err := h.service.Editable(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get appointment")
		return
	}
	h.form(w, r, appt)
}

// form lists doctors and departments, plus patients for callers who book on
// someone else's behalf
func (h *AppointmentHandler) form(w http.ResponseWriter, r *http.Request, instance *models.Appointment) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	doctors, err := h.doctors.List(ctx, p, 0)
	if err != nil {
		writeError(w, r, err, "Failed to list doctors")
		return
	}
	depts, err := h.departments.List(ctx, p)
	if err != nil {
		writeError(w, r, err, "Failed to list departments")
		return
	}
	choices := map[string][]choice{
		"doctor_id":     doctorChoices(doctors),
		"department_id": departmentChoices(depts),
	}
	if p.Role != models.RolePatient {
		patients, err := h.patients.List(ctx, p, models.PatientFilter{Limit: 200})
		if err != nil {
			writeError(w, r, err, "Failed to list patients")
			return
		}
		choices["patient_id"] = patientChoices(patients.Patients)
	}

	fc := formContext{Choices: choices}
	if instance != nil {
		fc.Instance = instance
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request, id uint) {
	var req models.AppointmentRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read appointment")
		return
	}
	if _, err := h.service.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, &req); err != nil {
		writeError(w, r, err, "Failed to update appointment")
		return
	}
	redirect(w, r, path("/appointments", id))
}

func (h *AppointmentHandler) DeletePreview(w http.ResponseWriter, r *http.Request, id uint) {
	if !h.allow(w, r, policy.ResourceAppointment, policy.ActionDelete) {
		return
	}
	appt, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointment": appt})
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request, id uint) {
	if err := h.service.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		writeError(w, r, err, "Failed to delete appointment")
		return
	}
	redirect(w, r, "/appointments")
}
