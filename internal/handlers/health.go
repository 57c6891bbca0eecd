package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/database"
)

type HealthHandler struct {
	cache cache.Cache
}

func NewHealthHandler(c cache.Cache) *HealthHandler {
	return &HealthHandler{cache: c}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	if pingDatabase(ctx) != nil {
		response.Services["database"] = "unhealthy"
		response.Status = "degraded"
	} else {
		response.Services["database"] = "healthy"
	}

	// token store backs sessions and password resets
	if err := h.cache.Ping(ctx); err != nil {
		response.Services["cache"] = "unhealthy"
		response.Status = "degraded"
	} else {
		response.Services["cache"] = "healthy"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := pingDatabase(r.Context()); err != nil {
		http.Error(w, "Service not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func pingDatabase(ctx context.Context) error {
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
