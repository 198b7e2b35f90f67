package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/config"
	"github.com/aristath/pricewatch/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers the maintenance jobs on
// MAINTENANCE_SCHEDULE, plus the backup job on BACKUP_SCHEDULE when backups are
// configured. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)

	jobs := &JobInstances{
		AlertRetention: scheduler.NewAlertRetentionJob(container.AlertRepo, cfg.AlertRetentionDays, log),
		WALCheckpoint:  scheduler.NewWALCheckpointJob(container.DB, log),
		DatabaseHealth: scheduler.NewDatabaseHealthJob(container.DB, log),
	}

	for _, job := range []scheduler.Job{jobs.AlertRetention, jobs.WALCheckpoint, jobs.DatabaseHealth} {
		if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", job.Name(), err)
		}
	}

	if container.Backups != nil {
		jobs.DatabaseBackup = scheduler.NewDatabaseBackupJob(container.Backups, cfg.BackupRetentionDays, log)
		if err := container.Scheduler.AddJob(cfg.BackupSchedule, jobs.DatabaseBackup); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", jobs.DatabaseBackup.Name(), err)
		}
	}

	return jobs, nil
}
