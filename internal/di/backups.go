package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/clients/r2"
	"github.com/aristath/pricewatch/internal/config"
	"github.com/aristath/pricewatch/internal/reliability"
)

// InitializeBackups creates the off-site backup service. It is a no-op when
// no bucket is configured.
func InitializeBackups(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if !cfg.BackupEnabled() {
		log.Info().Msg("Off-site backups disabled (no BACKUP_BUCKET)")
		return nil
	}
	if container == nil || container.DB == nil {
		return fmt.Errorf("database must be initialized before backups")
	}

	client, err := r2.NewClient(ctx, r2.Config{
		Endpoint:        cfg.BackupEndpoint,
		Region:          cfg.BackupRegion,
		Bucket:          cfg.BackupBucket,
		AccessKeyID:     cfg.BackupAccessKeyID,
		SecretAccessKey: cfg.BackupSecretAccessKey,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create backup client: %w", err)
	}

	container.Backups = reliability.NewBackupService(client, container.DB, log)
	return nil
}
