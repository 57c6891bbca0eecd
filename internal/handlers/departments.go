package handlers

import (
	"net/http"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
)

type DepartmentHandler struct {
	guard
	service *services.DepartmentService
}

func NewDepartmentHandler(service *services.DepartmentService, engine *policy.Engine) *DepartmentHandler {
	return &DepartmentHandler{guard: guard{engine}, service: service}
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.service.List(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		writeError(w, r, err, "Failed to list departments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"departments": depts})
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request, id uint) {
	detail, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get department")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *DepartmentHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourceDepartment, policy.ActionCreate) {
		return
	}
	writeJSON(w, http.StatusOK, formContext{})
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DepartmentRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read department")
		return
	}
	dept, err := h.service.Create(r.Context(), middleware.GetPrincipal(r.Context()), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create department")
		return
	}
	redirect(w, r, path("/departments", dept.ID))
}

func (h *DepartmentHandler) EditForm(w http.ResponseWriter, r *http.Request, id uint) {
	if !h.allow(w, r, policy.ResourceDepartment, policy.ActionUpdate) {
		return
	}
	detail, err := h.service.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to get department")
		return
	}
	writeJSON(w, http.StatusOK, formContext{Instance: detail.Department})
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request, id uint) {
	var req models.DepartmentRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read department")
		return
	}
	if _, err := h.service.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, &req); err != nil {
		writeError(w, r, err, "Failed to update department")
		return
	}
	redirect(w, r, path("/departments", id))
}

// DeletePreview shows what still references the department
func (h *DepartmentHandler) DeletePreview(w http.ResponseWriter, r *http.Request, id uint) {
	dept, refs, err := h.service.DeletePreview(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		writeError(w, r, err, "Failed to preview department delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"department": dept,
		"references": refs,
		"can_delete": refs.Total() == 0,
	})
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request, id uint) {
	if err := h.service.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id); err != nil {
		writeError(w, r, err, "Failed to delete department")
		return
	}
	redirect(w, r, "/departments")
}
