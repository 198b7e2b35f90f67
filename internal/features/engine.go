// Package features derives technical indicators (trend, volatility, momentum) from
// a close-price history. The engine is pure: no state, no I/O.
package features

import (
	"github.com/aristath/pricewatch/internal/domain"
	"github.com/aristath/pricewatch/pkg/formulas"
)

const (
	minWindow = 300

	bullBand = 1.001
	bearBand = 0.999
)

// Config holds the indicator periods
type Config struct {
	EMAShort  int
	EMALong   int
	ATRPeriod int
	VolWindow int
	RSIPeriod int
}

// DefaultConfig returns the standard indicator periods
func DefaultConfig() Config {
	return Config{
		EMAShort:  50,
		EMALong:   200,
		ATRPeriod: 14,
		VolWindow: 30,
		RSIPeriod: 14,
	}
}

// Engine computes Features from a last price and close history
type Engine struct {
	cfg Config
}

// NewEngine creates a feature engine
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Compute derives the indicators for one asset.
//
// The history is truncated to the trailing max(2*EMALong, 300) closes and its last
// element is replaced by last, so indicators track the freshest tick between history
// refreshes. An empty history yields zero indicators and a SIDEWAYS regime.
func (e *Engine) Compute(last float64, closes []float64) domain.Features {
	window := e.window(last, closes)

	f := domain.Features{
		Last:   last,
		Regime: domain.RegimeSideways,
		RSI:    formulas.NeutralRSI,
	}
	if len(window) == 0 {
		return f
	}

	f.EMAShort = formulas.EMA(window, e.cfg.EMAShort)
	f.EMALong = formulas.EMA(window, e.cfg.EMALong)
	f.VolPct = formulas.SampleStdDev(formulas.SimpleReturns(tail(window, e.cfg.VolWindow+1)))
	f.ATR = formulas.ATRProxy(window, e.cfg.ATRPeriod)
	f.RSI = formulas.RSI(window, e.cfg.RSIPeriod)
	f.Regime = ClassifyRegime(f.EMAShort, f.EMALong)

	return f
}

// ClassifyRegime applies the 0.1% hysteresis band around the EMA crossover
func ClassifyRegime(emaShort, emaLong float64) domain.Regime {
	switch {
	case emaShort > emaLong*bullBand:
		return domain.RegimeBull
	case emaShort < emaLong*bearBand:
		return domain.RegimeBear
	default:
		return domain.RegimeSideways
	}
}

// window copies the trailing history so the caller's slice is never modified
func (e *Engine) window(last float64, closes []float64) []float64 {
	size := 2 * e.cfg.EMALong
	if size < minWindow {
		size = minWindow
	}

	src := tail(closes, size)
	if len(src) == 0 {
		return nil
	}

	out := make([]float64, len(src))
	copy(out, src)
	if last > 0 {
		out[len(out)-1] = last
	}
	return out
}

func tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
