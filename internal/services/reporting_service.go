package services

import (
	"context"
	"time"

	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/reporting"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/metrics"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
)

// ReportingService builds the dashboard
type ReportingService struct {
	snapshots *repository.SnapshotRepository
	policy    *policy.Engine
	now       func() time.Time
}

// NewReportingService creates a new reporting service
func NewReportingService(snapshotRepo *repository.SnapshotRepository, engine *policy.Engine) *ReportingService {
	return &ReportingService{snapshots: snapshotRepo, policy: engine, now: time.Now}
}

// Dashboard computes every statistic over the full record set. Only
// administrators and analysts may see it.
func (s *ReportingService) Dashboard(ctx context.Context, actor policy.Principal) (*reporting.Dashboard, error) {
	ctx, span := telemetry.Start(ctx, "ReportingService.Dashboard")
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceDashboard, policy.ActionView).Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	snap, err := s.snapshots.Load(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	dash := reporting.Build(snap)
	metrics.DashboardBuildDuration.Observe(time.Since(start).Seconds())

	log.Debug().
		Int("patients", dash.TotalPatients).
		Int("health_records", dash.TotalHealthRecords).
		Dur("elapsed", time.Since(start)).
		Msg("Dashboard built")
	return &dash, nil
}

// Filters lists the drill-down choices the dashboard links to
func (s *ReportingService) Filters() map[string][]string {
	genders := make([]string, 0, len(models.Genders))
	for _, g := range models.Genders {
		genders = append(genders, g.Label)
	}
	return map[string][]string{
		FilterGender:    genders,
		FilterBloodType: models.BloodTypes,
		FilterAgeGroup:  reporting.AgeGroups(),
		FilterBMI:       reporting.BMIBands(),
	}
}
