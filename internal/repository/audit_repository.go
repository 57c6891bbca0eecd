package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/pkg/metrics"
)

// AuditRepository appends and reads audit log entries. There is no update or
// delete path.
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create appends an audit log entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := database.Conn(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	metrics.AuditEntries.WithLabelValues(entry.Action).Inc()
	return nil
}

// List retrieves audit logs, newest first
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := database.Conn(ctx).Order("created_at DESC, id DESC")
	if err := paginate(query, limit, offset).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}

// ListByAction retrieves audit logs of one action, newest first
func (r *AuditRepository) ListByAction(ctx context.Context, action string, limit, offset int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := database.Conn(ctx).
		Where("action = ?", action).
		Order("created_at DESC, id DESC")
	if err := paginate(query, limit, offset).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}

// ListByTarget retrieves audit logs for a specific target
func (r *AuditRepository) ListByTarget(ctx context.Context, target string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := database.Conn(ctx).
		Where("target = ?", target).
		Order("created_at DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	return logs, nil
}
