// Package portfolio stores holdings and their per-holding engine state.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/database"
	"github.com/aristath/pricewatch/internal/domain"
)

const holdingColumns = `id, symbol, entry, invested_amount`

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repository", "holding").Logger(),
	}
}

// List returns holdings for symbol, or every holding when symbol is empty
func (r *HoldingRepository) List(ctx context.Context, symbol string) ([]domain.Holding, error) {
	query := "SELECT " + holdingColumns + " FROM holdings"
	var args []interface{}
	if s := domain.NormalizeSymbol(symbol); s != "" {
		query += " WHERE symbol = ?"
		args = append(args, s)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Entry, &h.InvestedAmount); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// GetByID returns a holding or domain.ErrNotFound
func (r *HoldingRepository) GetByID(ctx context.Context, id int64) (*domain.Holding, error) {
	var h domain.Holding
	err := r.db.QueryRowContext(ctx, "SELECT "+holdingColumns+" FROM holdings WHERE id = ?", id).
		Scan(&h.ID, &h.Symbol, &h.Entry, &h.InvestedAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query holding %d: %w", id, err)
	}
	return &h, nil
}

// Create validates and stores a holding together with its default engine state
func (r *HoldingRepository) Create(ctx context.Context, h domain.Holding) (*domain.Holding, error) {
	h.Symbol = domain.NormalizeSymbol(h.Symbol)
	if err := h.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO holdings (symbol, entry, invested_amount, created_at) VALUES (?, ?, ?, ?)",
			h.Symbol, h.Entry, h.InvestedAmount, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding: %w", err)
		}
		if h.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get holding id: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO engine_state (holding_id, trailing_active, updated_at) VALUES (?, 0, ?)",
			h.ID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert engine state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Int64("holding_id", h.ID).
		Str("symbol", h.Symbol).
		Float64("entry", h.Entry).
		Msg("Holding created")

	return &h, nil
}

// Delete removes a holding; its engine state and alerts cascade
func (r *HoldingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM holdings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holding %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete holding %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("holding %d: %w", id, domain.ErrNotFound)
	}

	r.log.Info().Int64("holding_id", id).Msg("Holding deleted")
	return nil
}

// Exists reports whether a holding with identical symbol, entry and invested amount exists
func (r *HoldingRepository) Exists(ctx context.Context, h domain.Holding) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holdings WHERE symbol = ? AND entry = ? AND invested_amount = ?",
		domain.NormalizeSymbol(h.Symbol), h.Entry, h.InvestedAmount,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check holding: %w", err)
	}
	return n > 0, nil
}
