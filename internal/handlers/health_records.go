package handlers

import (
	"net/http"
	"strconv"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
)

type HealthRecordHandler struct {
	guard
	service     *services.HealthRecordService
	patients    *services.PatientService
	doctors     *services.DoctorService
	departments *services.DepartmentService
}

func NewHealthRecordHandler(
	service *services.HealthRecordService,
	patients *services.PatientService,
	doctors *services.DoctorService,
	departments *services.DepartmentService,
	engine *policy.Engine,
) *HealthRecordHandler {
	return &HealthRecordHandler{
		guard:       guard{engine},
		service:     service,
		patients:    patients,
		doctors:     doctors,
		departments: departments,
	}
}

func (h *HealthRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter services.HealthRecordFilter
	if err := bindQuery(r, &filter); err != nil {
		writeError(w, r, err, "Failed to read health record filter")
		return
	}
	page, err := h.service.List(r.Context(), middleware.GetPrincipal(r.Context()), filter)
	if err != nil {
		writeError(w, r, err, "Failed to list health records")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *HealthRecordHandler) Get(w http.ResponseWriter, r *http.Request, id uint) {
	record, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get health record")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *HealthRecordHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourceHealthRecord, policy.ActionCreate) {
		return
	}
	h.form(w, r, nil)
}

func (h *HealthRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.HealthRecordRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read health record")
		return
	}
	record, err := h.service.Create(r.Context(), middleware.GetPrincipal(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create health record")
		return
	}
	redirect(w, r, path("/health-records", record.ID))
}

func (h *HealthRecordHandler) EditForm(w http.ResponseWriter, r *http.Request, id uint) {
	record, err := h.service.Editable(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get health record")
		return
	}
	h.form(w, r, record)
}

// form lists the patients, doctors and departments a record may point at.
// Doctors author as themselves so they get no doctor choice.
func (h *HealthRecordHandler) form(w http.ResponseWriter, r *http.Request, instance *models.HealthRecord) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	patients, err := h.patients.List(ctx, p, models.PatientFilter{Limit: 200})
	if err != nil {
		writeError(w, r, err, "Failed to list patients")
		return
	}
	depts, err := h.departments.List(ctx, p)
	if err != nil {
		writeError(w, r, err, "Failed to list departments")
		return
	}
	choices := map[string][]choice{
		"patient_id":    patientChoices(patients.Patients),
		"department_id": departmentChoices(depts),
	}
	if p.Role != models.RoleDoctor {
		doctors, err := h.doctors.List(ctx, p, 0)
		if err != nil {
			writeError(w, r, err, "Failed to list doctors")
			return
		}
		choices["doctor_id"] = doctorChoices(doctors)
	}

	fc := formContext{Choices: choices}
	if instance != nil {
		fc.Instance = instance
	}
	writeJSON(w, http.StatusOK, fc)
}

func (h *HealthRecordHandler) Update(w http.ResponseWriter, r *http.Request, id uint) {
	var req models.HealthRecordRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read health record")
		return
	}
	if _, err := h.service.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, &req); err != nil {
		writeError(w, r, err, "Failed to update health record")
		return
	}
	redirect(w, r, path("/health-records", id))
}

func (h *HealthRecordHandler) DeletePreview(w http.ResponseWriter, r *http.Request, id uint) {
	p := middleware.GetPrincipal(r.Context())
	if !h.allow(w, r, policy.ResourceHealthRecord, policy.ActionDelete) {
		return
	}
	record, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err, "Failed to get health record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"health_record": record})
}

func (h *HealthRecordHandler) Delete(w http.ResponseWriter, r *http.Request, id uint) {
	if err := h.service.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		writeError(w, r, err, "Failed to delete health record")
		return
	}
	redirect(w, r, "/health-records")
}

func patientChoices(patients []models.Patient) []choice {
	out := make([]choice, 0, len(patients))
	for _, p := range patients {
		out = append(out, choice{
			Value: strconv.FormatUint(uint64(p.ID), 10),
			Label: p.FullName() + " (" + p.PatientID + ")",
		})
	}
	return out
}
