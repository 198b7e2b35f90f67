package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

// StateRepository persists per-holding engine state
type StateRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStateRepository creates a new engine state repository
func NewStateRepository(db *sql.DB, log zerolog.Logger) *StateRepository {
	return &StateRepository{
		db:  db,
		log: log.With().Str("repository", "engine_state").Logger(),
	}
}

// Load returns the holding's state, creating the default state if none is stored
func (r *StateRepository) Load(ctx context.Context, holdingID int64) (domain.EngineState, error) {
	st, err := r.get(ctx, holdingID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.EngineState{}, fmt.Errorf("failed to load state for holding %d: %w", holdingID, err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO engine_state (holding_id, trailing_active, updated_at) VALUES (?, 0, ?) ON CONFLICT(holding_id) DO NOTHING",
		holdingID, time.Now().Unix(),
	)
	if err != nil {
		return domain.EngineState{}, fmt.Errorf("failed to create state for holding %d: %w", holdingID, err)
	}

	r.log.Debug().Int64("holding_id", holdingID).Msg("Created default engine state")
	return domain.DefaultEngineState(holdingID), nil
}

// Save writes the state, replacing any previous row
func (r *StateRepository) Save(ctx context.Context, st domain.EngineState) error {
	var anchor sql.NullFloat64
	if st.TrailingAnchor != nil {
		anchor = sql.NullFloat64{Float64: *st.TrailingAnchor, Valid: true}
	}
	var lastAlert sql.NullInt64
	if st.LastAlertTS != nil {
		lastAlert = sql.NullInt64{Int64: *st.LastAlertTS, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO engine_state (holding_id, trailing_active, trailing_anchor, last_alert_ts, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(holding_id) DO UPDATE SET
			trailing_active = excluded.trailing_active,
			trailing_anchor = excluded.trailing_anchor,
			last_alert_ts = excluded.last_alert_ts,
			updated_at = excluded.updated_at`,
		st.HoldingID, st.TrailingActive, anchor, lastAlert, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save state for holding %d: %w", st.HoldingID, err)
	}
	return nil
}

func (r *StateRepository) get(ctx context.Context, holdingID int64) (domain.EngineState, error) {
	var (
		st        = domain.EngineState{HoldingID: holdingID}
		anchor    sql.NullFloat64
		lastAlert sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT trailing_active, trailing_anchor, last_alert_ts FROM engine_state WHERE holding_id = ?",
		holdingID,
	).Scan(&st.TrailingActive, &anchor, &lastAlert)
	if err != nil {
		return domain.EngineState{}, err
	}

	if anchor.Valid {
		v := anchor.Float64
		st.TrailingAnchor = &v
	}
	if lastAlert.Valid {
		v := lastAlert.Int64
		st.LastAlertTS = &v
	}
	return st, nil
}
