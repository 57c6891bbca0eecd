package handlers

import (
	"net/http"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
)

type DoctorHandler struct {
	guard
	service     *services.DoctorService
	departments *services.DepartmentService
}

func NewDoctorHandler(service *services.DoctorService, departments *services.DepartmentService, engine *policy.Engine) *DoctorHandler {
	return &DoctorHandler{guard: guard{engine}, service: service, departments: departments}
}

type doctorListQuery struct {
	DepartmentID uint `schema:"department_id"`
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	var q doctorListQuery
	if err := bindQuery(r, &q); err != nil {
		writeError(w, r, err, "Failed to read doctor filter")
		return
	}
	doctors, err := h.service.List(r.Context(), middleware.GetPrincipal(r.Context()), q.DepartmentID)
	if err != nil {
		writeError(w, r, err, "Failed to list doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"doctors": doctors})
}

func (h *DoctorHandler) Get(w http.ResponseWriter, r *http.Request, id uint) {
	doctor, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get doctor")
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

func (h *DoctorHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourceDoctor, policy.ActionCreate) {
		return
	}
	h.form(w, r, nil)
}

func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DoctorRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read doctor")
		return
	}
	doctor, err := h.service.Create(r.Context(), middleware.GetPrincipal(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create doctor")
		return
	}
	redirect(w, r, path("/doctors", doctor.ID))
}

func (h *DoctorHandler) EditForm(w http.ResponseWriter, r *http.Request, id uint) {
	if !h.allow(w, r, policy.ResourceDoctor, policy.ActionUpdate) {
		return
	}
	doctor, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get doctor")
		return
	}
	h.form(w, r, doctor)
}

func (h *DoctorHandler) form(w http.ResponseWriter, r *http.Request, instance *models.Doctor) {
	depts, err := h.departments.List(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		writeError(w, r, err, "Failed to list departments")
		return
	}
	ctx := formContext{Choices: map[string][]choice{"department_id": departmentChoices(depts)}}
	if instance != nil {
		ctx.Instance = instance
	}
	writeJSON(w, http.StatusOK, ctx)
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request, id uint) {
	var req models.DoctorRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read doctor")
		return
	}
	if _, err := h.service.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, &req); err != nil {
		writeError(w, r, err, "Failed to update doctor")
		return
	}
	redirect(w, r, path("/doctors", id))
}

func (h *DoctorHandler) DeletePreview(w http.ResponseWriter, r *http.Request, id uint) {
	doctor, refs, err := h.service.DeletePreview(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to preview doctor delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doctor":     doctor,
		"references": refs,
		"can_delete": refs.Total() == 0,
	})
}

func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request, id uint) {
	if err := h.service.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		writeError(w, r, err, "Failed to delete doctor")
		return
	}
	redirect(w, r, "/doctors")
}
