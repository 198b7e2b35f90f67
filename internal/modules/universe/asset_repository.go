// Package universe manages the set of monitored assets and their provider mappings.
package universe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

const assetColumns = `id, symbol, enabled, binance_symbol, coinbase_product_id, coingecko_id`

// AssetRepository handles asset database operations
type AssetRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB, log zerolog.Logger) *AssetRepository {
	return &AssetRepository{
		db:  db,
		log: log.With().Str("repository", "asset").Logger(),
	}
}

// ListEnabled returns the assets the worker should evaluate, ordered by symbol
func (r *AssetRepository) ListEnabled(ctx context.Context) ([]domain.Asset, error) {
	return r.list(ctx, "SELECT "+assetColumns+" FROM assets WHERE enabled = 1 ORDER BY symbol")
}

// ListAll returns every asset, enabled or not
func (r *AssetRepository) ListAll(ctx context.Context) ([]domain.Asset, error) {
	return r.list(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY symbol")
}

// GetBySymbol returns the asset or domain.ErrNotFound
func (r *AssetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	symbol = domain.NormalizeSymbol(symbol)
	row := r.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE symbol = ?", symbol)

	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", symbol, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	return &a, nil
}

// Upsert inserts the asset or replaces the mutable fields of an existing one.
// The symbol is normalized; the stored asset is returned.
func (r *AssetRepository) Upsert(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	asset.Symbol = domain.NormalizeSymbol(asset.Symbol)
	if asset.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}

	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (symbol, enabled, binance_symbol, coinbase_product_id, coingecko_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			enabled = excluded.enabled,
			binance_symbol = excluded.binance_symbol,
			coinbase_product_id = excluded.coinbase_product_id,
			coingecko_id = excluded.coingecko_id,
			updated_at = excluded.updated_at`,
		asset.Symbol, asset.Enabled, asset.BinanceSymbol, asset.CoinbaseProductID, asset.CoingeckoID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert asset %s: %w", asset.Symbol, err)
	}

	r.log.Info().Str("symbol", asset.Symbol).Bool("enabled", asset.Enabled).Msg("Asset upserted")

	return r.GetBySymbol(ctx, asset.Symbol)
}

func (r *AssetRepository) list(ctx context.Context, query string) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(s scanner) (domain.Asset, error) {
	var a domain.Asset
	err := s.Scan(&a.ID, &a.Symbol, &a.Enabled, &a.BinanceSymbol, &a.CoinbaseProductID, &a.CoingeckoID)
	return a, err
}
