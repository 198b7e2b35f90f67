// Package di wires the alert engine's dependencies.
//
// The Container is the single owner of every long-lived instance; cmd/server
// builds it with Wire and hands its parts to the HTTP server and background loops.
package di

import (
	"github.com/aristath/pricewatch/internal/database"
	"github.com/aristath/pricewatch/internal/features"
	"github.com/aristath/pricewatch/internal/marketdata"
	"github.com/aristath/pricewatch/internal/modules/alerts"
	"github.com/aristath/pricewatch/internal/modules/portfolio"
	"github.com/aristath/pricewatch/internal/modules/strategies"
	"github.com/aristath/pricewatch/internal/modules/universe"
	"github.com/aristath/pricewatch/internal/notify/telegram"
	"github.com/aristath/pricewatch/internal/reliability"
	"github.com/aristath/pricewatch/internal/scheduler"
	"github.com/aristath/pricewatch/internal/seed"
	"github.com/aristath/pricewatch/internal/worker"
)

// Container holds all application dependencies
type Container struct {
	// Database
	DB *database.DB

	// Repositories
	AssetRepo    *universe.AssetRepository
	HoldingRepo  *portfolio.HoldingRepository
	StateRepo    *portfolio.StateRepository
	StrategyRepo *strategies.Repository
	AlertRepo    *alerts.Repository

	// Services
	Aggregator   *marketdata.Aggregator
	Features     *features.Engine
	Notifier     *telegram.Notifier
	Deduplicator *alerts.Deduplicator
	Seeder       *seed.Seeder
	Worker       *worker.Worker

	// Backups is nil unless BACKUP_BUCKET is set
	Backups *reliability.BackupService

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered maintenance jobs for manual triggering
type JobInstances struct {
	AlertRetention scheduler.Job
	WALCheckpoint  scheduler.Job
	DatabaseHealth scheduler.Job
	DatabaseBackup scheduler.Job // nil when backups are disabled
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
