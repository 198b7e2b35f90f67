// Package strategies stores the per-symbol alert parameters.
package strategies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

const strategyColumns = `symbol, base_tp, sl_pct, trail_atr_mult, profit_lock_pct, cooldown_sec, confirm_regime`

// Repository handles strategy database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new strategy repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "strategy").Logger(),
	}
}

// GetOrCreate returns the symbol's strategy, storing the defaults on first access
func (r *Repository) GetOrCreate(ctx context.Context, symbol string) (domain.Strategy, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Strategy{}, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}

	s, err := r.get(ctx, symbol)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Strategy{}, fmt.Errorf("failed to load strategy %s: %w", symbol, err)
	}

	s = domain.DefaultStrategy(symbol)
	if err := r.write(ctx, s, "ON CONFLICT(symbol) DO NOTHING"); err != nil {
		return domain.Strategy{}, err
	}
	r.log.Info().Str("symbol", symbol).Msg("Created default strategy")

	// re-read: a concurrent writer may have won the insert
	return r.get(ctx, symbol)
}

// Upsert validates and stores the strategy for symbol
func (r *Repository) Upsert(ctx context.Context, symbol string, s domain.Strategy) (domain.Strategy, error) {
	s.Symbol = domain.NormalizeSymbol(symbol)
	if s.Symbol == "" {
		return domain.Strategy{}, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if err := s.Validate(); err != nil {
		return domain.Strategy{}, err
	}

	err := r.write(ctx, s, `ON CONFLICT(symbol) DO UPDATE SET
			base_tp = excluded.base_tp,
			sl_pct = excluded.sl_pct,
			trail_atr_mult = excluded.trail_atr_mult,
			profit_lock_pct = excluded.profit_lock_pct,
			cooldown_sec = excluded.cooldown_sec,
			confirm_regime = excluded.confirm_regime,
			updated_at = excluded.updated_at`)
	if err != nil {
		return domain.Strategy{}, err
	}

	r.log.Info().Str("symbol", s.Symbol).Msg("Strategy updated")
	return s, nil
}

func (r *Repository) write(ctx context.Context, s domain.Strategy, onConflict string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO strategies ("+strategyColumns+", updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+onConflict,
		s.Symbol, s.BaseTP, s.SLPct, s.TrailATRMult, s.ProfitLockPct, s.CooldownSec, s.ConfirmRegime, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write strategy %s: %w", s.Symbol, err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, symbol string) (domain.Strategy, error) {
	var s domain.Strategy
	err := r.db.QueryRowContext(ctx, "SELECT "+strategyColumns+" FROM strategies WHERE symbol = ?", symbol).
		Scan(&s.Symbol, &s.BaseTP, &s.SLPct, &s.TrailATRMult, &s.ProfitLockPct, &s.CooldownSec, &s.ConfirmRegime)
	return s, err
}
