// Package domain provides the core types shared by the alert engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderName identifies a market-data source
type ProviderName string

const (
	ProviderBinance   ProviderName = "BINANCE"
	ProviderCoinbase  ProviderName = "COINBASE"
	ProviderCoingecko ProviderName = "COINGECKO"
)

// NormalizeSymbol trims and upper-cases a symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Asset is a tradable instrument with one identifier per market-data source.
// An empty identifier means that source cannot serve the asset.
type Asset struct {
	ID                int64  `json:"id"`
	Symbol            string `json:"symbol"`
	Enabled           bool   `json:"enabled"`
	BinanceSymbol     string `json:"binance_symbol,omitempty"`
	CoinbaseProductID string `json:"coinbase_product_id,omitempty"`
	CoingeckoID       string `json:"coingecko_id,omitempty"`
}

// Identifier returns the source-specific identifier for the given provider
func (a Asset) Identifier(provider ProviderName) string {
	switch provider {
	case ProviderBinance:
		return a.BinanceSymbol
	case ProviderCoinbase:
		return a.CoinbaseProductID
	case ProviderCoingecko:
		return a.CoingeckoID
	}
	return ""
}

// Holding is a position in one asset. The engine never mutates it.
type Holding struct {
	ID             int64   `json:"id"`
	Symbol         string  `json:"symbol"`
	Entry          float64 `json:"entry"`
	InvestedAmount float64 `json:"invested_amount"`
}

// Validate checks the holding invariants
func (h Holding) Validate() error {
	if NormalizeSymbol(h.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if !(h.Entry > 0) {
		return fmt.Errorf("%w: entry must be > 0", ErrInvalidInput)
	}
	if !(h.InvestedAmount > 0) {
		return fmt.Errorf("%w: invested_amount must be > 0", ErrInvalidInput)
	}
	return nil
}

// Strategy holds the per-symbol alert parameters
type Strategy struct {
	Symbol        string  `json:"symbol"`
	BaseTP        float64 `json:"base_tp"`
	SLPct         float64 `json:"sl_pct"`
	TrailATRMult  float64 `json:"trail_atr_mult"`
	ProfitLockPct float64 `json:"profit_lock_pct"`
	CooldownSec   int64   `json:"cooldown_sec"`
	ConfirmRegime bool    `json:"confirm_regime"`
}

const maxCooldownSec = 7 * 24 * 3600

// DefaultStrategy returns the parameters used when a symbol has no explicit strategy
func DefaultStrategy(symbol string) Strategy {
	return Strategy{
		Symbol:        NormalizeSymbol(symbol),
		BaseTP:        0.10,
		SLPct:         0.08,
		TrailATRMult:  2.5,
		ProfitLockPct: 0.06,
		CooldownSec:   1800,
		ConfirmRegime: true,
	}
}

// Validate checks the strategy parameters are within their accepted ranges
func (s Strategy) Validate() error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"base_tp", s.BaseTP, 0, 10},
		{"sl_pct", s.SLPct, 0, 1},
		{"trail_atr_mult", s.TrailATRMult, 0.1, 100},
		{"profit_lock_pct", s.ProfitLockPct, 0, 10},
		{"cooldown_sec", float64(s.CooldownSec), 0, maxCooldownSec},
	}
	for _, c := range checks {
		if !(c.value >= c.min && c.value <= c.max) {
			return fmt.Errorf("%w: %s must be within [%g, %g]", ErrInvalidInput, c.name, c.min, c.max)
		}
	}
	return nil
}

// EngineState is the per-holding decision state, the only entity the engine mutates.
// TrailingAnchor is non-nil whenever TrailingActive is true.
type EngineState struct {
	HoldingID      int64    `json:"holding_id"`
	TrailingActive bool     `json:"trailing_active"`
	TrailingAnchor *float64 `json:"trailing_anchor"`
	LastAlertTS    *int64   `json:"last_alert_ts"`
}

// DefaultEngineState returns the state of a holding that has never been evaluated
func DefaultEngineState(holdingID int64) EngineState {
	return EngineState{HoldingID: holdingID}
}

// Clone returns a deep copy so callers never share the pointer fields
func (s EngineState) Clone() EngineState {
	out := s
	if s.TrailingAnchor != nil {
		v := *s.TrailingAnchor
		out.TrailingAnchor = &v
	}
	if s.LastAlertTS != nil {
		v := *s.LastAlertTS
		out.LastAlertTS = &v
	}
	return out
}

// PricePoint is the latest price plus chronological close history (oldest first)
type PricePoint struct {
	Last   float64   `json:"last"`
	Closes []float64 `json:"closes"`
}

// AlertRecord is one entry of the alert ledger
type AlertRecord struct {
	ID        int64      `json:"id"`
	HoldingID int64      `json:"holding_id"`
	Kind      SignalKind `json:"kind"`
	Bucket    int64      `json:"bucket"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}
