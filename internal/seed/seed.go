// Package seed applies a YAML portfolio file at startup: assets, holdings and
// strategy overrides. Applying the same file twice leaves the database unchanged.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/pricewatch/internal/domain"
)

// Asset is an asset entry in the seed file
type Asset struct {
	Symbol            string `yaml:"symbol"`
	Enabled           *bool  `yaml:"enabled"`
	BinanceSymbol     string `yaml:"binance_symbol"`
	CoinbaseProductID string `yaml:"coinbase_product_id"`
	CoingeckoID       string `yaml:"coingecko_id"`
}

// Holding is a holding entry in the seed file
type Holding struct {
	Symbol         string  `yaml:"symbol"`
	Entry          float64 `yaml:"entry"`
	InvestedAmount float64 `yaml:"invested_amount"`
}

// Strategy is a strategy override; omitted fields keep their current values
type Strategy struct {
	Symbol        string   `yaml:"symbol"`
	BaseTP        *float64 `yaml:"base_tp"`
	SLPct         *float64 `yaml:"sl_pct"`
	TrailATRMult  *float64 `yaml:"trail_atr_mult"`
	ProfitLockPct *float64 `yaml:"profit_lock_pct"`
	CooldownSec   *int64   `yaml:"cooldown_sec"`
	ConfirmRegime *bool    `yaml:"confirm_regime"`
}

// File is the root of a seed file
type File struct {
	Assets     []Asset    `yaml:"assets"`
	Holdings   []Holding  `yaml:"holdings"`
	Strategies []Strategy `yaml:"strategies"`
}

// Load reads and parses a seed file
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(b)
}

// Parse decodes seed YAML. Unknown keys are rejected so typos surface at startup.
func Parse(b []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// AssetStore upserts assets
type AssetStore interface {
	Upsert(ctx context.Context, asset domain.Asset) (*domain.Asset, error)
}

// HoldingStore creates holdings and checks for existing identical ones
type HoldingStore interface {
	Exists(ctx context.Context, h domain.Holding) (bool, error)
	Create(ctx context.Context, h domain.Holding) (*domain.Holding, error)
}

// StrategyStore reads and writes strategies
type StrategyStore interface {
	GetOrCreate(ctx context.Context, symbol string) (domain.Strategy, error)
	Upsert(ctx context.Context, symbol string, s domain.Strategy) (domain.Strategy, error)
}

// Result counts what Apply changed
type Result struct {
	Assets          int
	HoldingsCreated int
	HoldingsSkipped int
	Strategies      int
}

// Seeder applies seed files
type Seeder struct {
	assets     AssetStore
	holdings   HoldingStore
	strategies StrategyStore
	log        zerolog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(assets AssetStore, holdings HoldingStore, strategies StrategyStore, log zerolog.Logger) *Seeder {
	return &Seeder{
		assets:     assets,
		holdings:   holdings,
		strategies: strategies,
		log:        log.With().Str("component", "seed").Logger(),
	}
}

// Apply writes the file's contents. It stops at the first invalid entry; entries
// written before it are kept.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	for _, a := range f.Assets {
		enabled := true
		if a.Enabled != nil {
			enabled = *a.Enabled
		}
		if _, err := s.assets.Upsert(ctx, domain.Asset{
			Symbol:            a.Symbol,
			Enabled:           enabled,
			BinanceSymbol:     a.BinanceSymbol,
			CoinbaseProductID: a.CoinbaseProductID,
			CoingeckoID:       a.CoingeckoID,
		}); err != nil {
			return res, fmt.Errorf("seed asset %q: %w", a.Symbol, err)
		}
		res.Assets++
	}

	for _, h := range f.Holdings {
		holding := domain.Holding{
			Symbol:         domain.NormalizeSymbol(h.Symbol),
			Entry:          h.Entry,
			InvestedAmount: h.InvestedAmount,
		}
		exists, err := s.holdings.Exists(ctx, holding)
		if err != nil {
			return res, fmt.Errorf("seed holding %q: %w", h.Symbol, err)
		}
		if exists {
			res.HoldingsSkipped++
			continue
		}
		if _, err := s.holdings.Create(ctx, holding); err != nil {
			return res, fmt.Errorf("seed holding %q: %w", h.Symbol, err)
		}
		res.HoldingsCreated++
	}

	for _, st := range f.Strategies {
		current, err := s.strategies.GetOrCreate(ctx, st.Symbol)
		if err != nil {
			return res, fmt.Errorf("seed strategy %q: %w", st.Symbol, err)
		}
		if _, err := s.strategies.Upsert(ctx, st.Symbol, st.merge(current)); err != nil {
			return res, fmt.Errorf("seed strategy %q: %w", st.Symbol, err)
		}
		res.Strategies++
	}

	s.log.Info().
		Int("assets", res.Assets).
		Int("holdings_created", res.HoldingsCreated).
		Int("holdings_skipped", res.HoldingsSkipped).
		Int("strategies", res.Strategies).
		Msg("Seed applied")

	return res, nil
}

// ApplyFile loads and applies the seed file at path
func (s *Seeder) ApplyFile(ctx context.Context, path string) (Result, error) {
	f, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	return s.Apply(ctx, f)
}

func (st Strategy) merge(current domain.Strategy) domain.Strategy {
	out := current
	if st.BaseTP != nil {
		out.BaseTP = *st.BaseTP
	}
	if st.SLPct != nil {
		out.SLPct = *st.SLPct
	}
	if st.TrailATRMult != nil {
		out.TrailATRMult = *st.TrailATRMult
	}
	if st.ProfitLockPct != nil {
		out.ProfitLockPct = *st.ProfitLockPct
	}
	if st.CooldownSec != nil {
		out.CooldownSec = *st.CooldownSec
	}
	if st.ConfirmRegime != nil {
		out.ConfirmRegime = *st.ConfirmRegime
	}
	return out
}
