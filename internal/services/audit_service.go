package services

import (
	"context"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
)

// appendAudit writes one audit entry inside the caller's transaction
func appendAudit(ctx context.Context, repo *repository.AuditRepository, actorID *uint, action, target string, details map[string]interface{}) error {
	return repo.Create(ctx, &models.AuditLog{
		ActorID: actorID,
		Action:  action,
		Target:  target,
		Details: details,
	})
}

// AuditService exposes the audit log to administrators
type AuditService struct {
	auditRepo *repository.AuditRepository
	policy    *policy.Engine
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *repository.AuditRepository, engine *policy.Engine) *AuditService {
	return &AuditService{auditRepo: auditRepo, policy: engine}
}

// List returns audit entries newest first, optionally of one action or target
func (s *AuditService) List(ctx context.Context, actor policy.Principal, action, target string, limit, offset int) ([]models.AuditLog, error) {
	if err := s.policy.Authorize(actor, policy.ResourceAuditLog, policy.ActionList).Err(); err != nil {
		return nil, err
	}
	switch {
	case target != "":
		return s.auditRepo.ListByTarget(ctx, target)
	case action != "":
		return s.auditRepo.ListByAction(ctx, action, limit, offset)
	default:
		return s.auditRepo.List(ctx, limit, offset)
	}
}
