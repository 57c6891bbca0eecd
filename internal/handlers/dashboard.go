package handlers

import (
	"net/http"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/services"
)

type DashboardHandler struct {
	service *services.ReportingService
}

func NewDashboardHandler(service *services.ReportingService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Dashboard returns every statistic plus the drill-down filter choices
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context(), middleware.GetPrincipal(r.Context()))
	if err != nil {
		writeError(w, r, err, "Failed to build dashboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dashboard": dash,
		"filters":   h.service.Filters(),
	})
}
