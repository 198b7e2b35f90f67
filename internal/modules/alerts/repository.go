// Package alerts is the alert ledger: the persistent record of delivered alerts that
// backs deduplication within 5 minute buckets.
package alerts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

// BucketSeconds is the width of a dedup bucket
const BucketSeconds int64 = 300

// Bucket floors a unix timestamp to its 5 minute bucket
func Bucket(now int64) int64 {
	return now - now%BucketSeconds
}

// Repository handles alert ledger database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alert ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "alerts").Logger(),
	}
}

// Eligible reports whether no alert of kind was recorded for the holding in now's bucket
func (r *Repository) Eligible(ctx context.Context, holdingID int64, kind domain.SignalKind, now int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE holding_id = ? AND kind = ? AND bucket = ?",
		holdingID, string(kind), Bucket(now),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check alert eligibility: %w", err)
	}
	return n == 0, nil
}

// Record stores a delivered alert. A row already present for the same holding,
// kind and bucket is left untouched and no error is returned.
func (r *Repository) Record(ctx context.Context, holdingID int64, kind domain.SignalKind, message string, now int64) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (holding_id, kind, bucket, message, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(holding_id, kind, bucket) DO NOTHING`,
		holdingID, string(kind), Bucket(now), message, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.log.Debug().
			Int64("holding_id", holdingID).
			Str("kind", string(kind)).
			Int64("bucket", Bucket(now)).
			Msg("Alert already recorded for bucket")
	}
	return nil
}

// ListRecent returns the holding's most recent alerts, newest first
func (r *Repository) ListRecent(ctx context.Context, holdingID int64, limit int) ([]domain.AlertRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, holding_id, kind, bucket, message, created_at
		FROM alerts
		WHERE holding_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		holdingID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AlertRecord, 0)
	for rows.Next() {
		var (
			rec       domain.AlertRecord
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.HoldingID, &kind, &rec.Bucket, &rec.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		rec.Kind = domain.SignalKind(kind)
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return records, nil
}

// PruneBefore deletes ledger rows created before ts and returns how many were removed
func (r *Repository) PruneBefore(ctx context.Context, ts int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE created_at < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("failed to prune alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune alerts: %w", err)
	}
	return n, nil
}
