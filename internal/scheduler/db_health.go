package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	// free space below criticalFreeBytes fails the job
	criticalFreeBytes = 200 << 20
	lowFreeBytes      = 1 << 30
)

// HealthChecker runs an integrity check on a database
type HealthChecker interface {
	Name() string
	Path() string
	HealthCheck(ctx context.Context) error
}

// DatabaseHealthJob runs a quick integrity check and verifies free disk space
// next to the database file
type DatabaseHealthJob struct {
	db        HealthChecker
	timeout   time.Duration
	diskUsage func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewDatabaseHealthJob creates a new DatabaseHealthJob
func NewDatabaseHealthJob(db HealthChecker, log zerolog.Logger) *DatabaseHealthJob {
	return &DatabaseHealthJob{
		db:        db,
		timeout:   30 * time.Second,
		diskUsage: disk.Usage,
		log:       log.With().Str("job", "db_health").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseHealthJob) Name() string {
	return "db_health"
}

// Run executes the health check
func (j *DatabaseHealthJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database %s unhealthy: %w", j.db.Name(), err)
	}

	usage, err := j.diskUsage(filepath.Dir(j.db.Path()))
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	switch {
	case usage.Free < criticalFreeBytes:
		return fmt.Errorf("only %d MB free on %s", usage.Free>>20, usage.Path)
	case usage.Free < lowFreeBytes:
		j.log.Warn().
			Uint64("free_mb", usage.Free>>20).
			Float64("used_percent", usage.UsedPercent).
			Msg("Disk space running low")
	default:
		j.log.Debug().
			Uint64("free_mb", usage.Free>>20).
			Msg("Database health OK")
	}
	return nil
}
