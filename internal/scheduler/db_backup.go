package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backuper ships a database snapshot off-site and prunes old copies
type Backuper interface {
	CreateAndUpload(ctx context.Context) (string, error)
	RotateOldBackups(ctx context.Context, retentionDays int) (int, error)
}

// DatabaseBackupJob uploads a snapshot, then rotates old backups.
// A rotation failure is logged; the upload already succeeded.
type DatabaseBackupJob struct {
	backup        Backuper
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewDatabaseBackupJob creates a backup job
func NewDatabaseBackupJob(backup Backuper, retentionDays int, log zerolog.Logger) *DatabaseBackupJob {
	return &DatabaseBackupJob{
		backup:        backup,
		retentionDays: retentionDays,
		timeout:       10 * time.Minute,
		log:           log.With().Str("job", "db_backup").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseBackupJob) Name() string {
	return "db_backup"
}

// Run executes the backup job
func (j *DatabaseBackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	key, err := j.backup.CreateAndUpload(ctx)
	if err != nil {
		return fmt.Errorf("database backup failed: %w", err)
	}

	deleted, err := j.backup.RotateOldBackups(ctx, j.retentionDays)
	if err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	j.log.Info().Str("key", key).Int("rotated", deleted).Msg("Database backup completed")
	return nil
}
