package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AlertPruner deletes ledger rows older than a unix timestamp
type AlertPruner interface {
	PruneBefore(ctx context.Context, ts int64) (int64, error)
}

// AlertRetentionJob removes alert ledger rows past the retention window.
// Deduplication only consults the current bucket, so old rows are history only.
type AlertRetentionJob struct {
	pruner    AlertPruner
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewAlertRetentionJob creates a retention job keeping retentionDays of alerts.
// A non-positive retention disables pruning.
func NewAlertRetentionJob(pruner AlertPruner, retentionDays int, log zerolog.Logger) *AlertRetentionJob {
	return &AlertRetentionJob{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		timeout:   time.Minute,
		now:       time.Now,
		log:       log.With().Str("job", "alert_retention").Logger(),
	}
}

// Name returns the job name
func (j *AlertRetentionJob) Name() string {
	return "alert_retention"
}

// Run executes the retention job
func (j *AlertRetentionJob) Run() error {
	if j.retention <= 0 {
		j.log.Debug().Msg("Alert retention disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	removed, err := j.pruner.PruneBefore(ctx, cutoff.Unix())
	if err != nil {
		return fmt.Errorf("alert retention failed: %w", err)
	}

	j.log.Info().
		Int64("removed", removed).
		Time("cutoff", cutoff).
		Msg("Alert ledger pruned")
	return nil
}
