package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/reporting"
)

// SnapshotRepository loads the full record set the dashboard is computed from
type SnapshotRepository struct{}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

// Load reads every department, doctor, patient, health record and
// appointment in one read transaction
func (r *SnapshotRepository) Load(ctx context.Context, now time.Time) (reporting.Snapshot, error) {
	s := reporting.Snapshot{Now: now}
	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		db := database.Conn(ctx)
		if err := db.Order("name ASC").Find(&s.Departments).Error; err != nil {
			return fmt.Errorf("failed to load departments: %w", err)
		}
		if err := db.Order("id ASC").Find(&s.Doctors).Error; err != nil {
			return fmt.Errorf("failed to load doctors: %w", err)
		}
		if err := db.Order("id ASC").Find(&s.Patients).Error; err != nil {
			return fmt.Errorf("failed to load patients: %w", err)
		}
		if err := db.Order("id ASC").Find(&s.HealthRecords).Error; err != nil {
			return fmt.Errorf("failed to load health records: %w", err)
		}
		if err := db.Order("id ASC").Find(&s.Appointments).Error; err != nil {
			return fmt.Errorf("failed to load appointments: %w", err)
		}
		return nil
	})
	return s, err
}
