package handlers

import (
	"net/http"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/services"
)

type AdminHandler struct {
	accounts *services.AccountService
	audit    *services.AuditService
}

func NewAdminHandler(accounts *services.AccountService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{accounts: accounts, audit: audit}
}

type pageQuery struct {
	Limit  int `schema:"limit"`
	Offset int `schema:"offset"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var q pageQuery
	if err := bindQuery(r, &q); err != nil {
		writeError(w, r, err, "Failed to read paging")
		return
	}
	users, err := h.accounts.ListUsers(r.Context(), middleware.GetPrincipal(r.Context()), q.Limit, q.Offset)
	if err != nil {
		writeError(w, r, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":   users,
		"choices": map[string][]choice{"role": roleChoices()},
	})
}

// CreateUser provisions an account. Without a password the user gets a
// reset link by mail.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read user")
		return
	}
	if _, err := h.accounts.CreateUser(r.Context(), middleware.GetPrincipal(r.Context()), &req); err != nil {
		writeError(w, r, err, "Failed to create user")
		return
	}
	redirect(w, r, "/admin/users")
}

type auditQuery struct {
	Action string `schema:"action"`
	Target string `schema:"target"`
	Limit  int    `schema:"limit"`
	Offset int    `schema:"offset"`
}

// AuditLogs lists audit entries, newest first
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	var q auditQuery
	if err := bindQuery(r, &q); err != nil {
		writeError(w, r, err, "Failed to read audit filter")
		return
	}
	entries, err := h.audit.List(r.Context(), middleware.GetPrincipal(r.Context()), q.Action, q.Target, q.Limit, q.Offset)
	if err != nil {
		writeError(w, r, err, "Failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": entries})
}
