package alerts

import (
	"context"

	"github.com/aristath/pricewatch/internal/domain"
)

// Ledger is the storage the Deduplicator needs
type Ledger interface {
	Eligible(ctx context.Context, holdingID int64, kind domain.SignalKind, now int64) (bool, error)
	Record(ctx context.Context, holdingID int64, kind domain.SignalKind, message string, now int64) error
}

// Deduplicator guards against delivering the same alert twice in one bucket.
// Checking and recording are separate steps: callers check, attempt delivery,
// and record only what was delivered.
type Deduplicator struct {
	ledger Ledger
}

// NewDeduplicator creates a deduplicator over the given ledger
func NewDeduplicator(ledger Ledger) *Deduplicator {
	return &Deduplicator{ledger: ledger}
}

// Eligible reports whether sig may be sent for the holding at now
func (d *Deduplicator) Eligible(ctx context.Context, holdingID int64, sig domain.Signal, now int64) (bool, error) {
	return d.ledger.Eligible(ctx, holdingID, sig.Kind, now)
}

// Record marks sig as delivered for the holding at now
func (d *Deduplicator) Record(ctx context.Context, holdingID int64, sig domain.Signal, now int64) error {
	return d.ledger.Record(ctx, holdingID, sig.Kind, sig.Message, now)
}
