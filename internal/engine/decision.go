// Package engine implements the per-holding alert state machine.
//
// A holding is either Normal or Trailing. Decide evaluates one tick and returns the
// next state plus at most one signal; the caller owns persistence.
package engine

import (
	"fmt"
	"math"

	"github.com/aristath/pricewatch/internal/domain"
)

const (
	// tpVolWeight widens the take-profit threshold with realised volatility
	tpVolWeight = 0.5
	// tpUnconfirmedFactor applies when regime confirmation is required and the trend is not BULL
	tpUnconfirmedFactor = 1.25
	// slATRCushion is the number of ATRs below the short EMA used as trend support
	slATRCushion = 1.0
)

// Decide evaluates one holding at time now (unix seconds).
//
// Guards run in fixed order, each an early return: invalid price, cooldown,
// trailing arming, the trailing branch, smart stop-loss, take-profit.
// The input state is never modified.
func Decide(now int64, h domain.Holding, s domain.Strategy, f domain.Features, st domain.EngineState) (domain.EngineState, []domain.Signal) {
	next := st.Clone()
	last := f.Last

	if !(last > 0) || math.IsInf(last, 0) {
		return next, nil
	}

	if next.LastAlertTS != nil && now-*next.LastAlertTS < s.CooldownSec {
		return next, nil
	}

	pnl := last/h.Entry - 1

	if !next.TrailingActive && pnl >= s.ProfitLockPct {
		next.TrailingActive = true
		next.TrailingAnchor = floatPtr(last)
	}

	if next.TrailingActive {
		anchor := last
		if next.TrailingAnchor != nil && *next.TrailingAnchor > anchor {
			anchor = *next.TrailingAnchor
		}
		next.TrailingAnchor = floatPtr(anchor)
		trailStop := anchor - s.TrailATRMult*f.ATR

		if last <= trailStop {
			return next, []domain.Signal{{
				Kind: domain.SignalTrailingStop,
				Message: fmt.Sprintf("[%s] Trailing stop hit. Price=%.4f, TrailStop≈%.4f, PnL=%.2f%%.",
					h.Symbol, last, trailStop, pnl*100),
			}}
		}

		return next, []domain.Signal{{
			Kind: domain.SignalTrailingUpdate,
			Message: fmt.Sprintf("[%s] Trailing active. Anchor=%.4f, Stop≈%.4f, PnL=%.2f%%, Regime=%s.",
				h.Symbol, anchor, trailStop, pnl*100, f.Regime),
		}}
	}

	smartSL := math.Max(h.Entry*(1-s.SLPct), f.EMAShort-slATRCushion*f.ATR)
	if last <= smartSL {
		return next, []domain.Signal{{
			Kind: domain.SignalStopLoss,
			Message: fmt.Sprintf("[%s] Smart stop hit. Price=%.4f, SL≈%.4f, Regime=%s, RSI=%.1f.",
				h.Symbol, last, smartSL, f.Regime, f.RSI),
		}}
	}

	tp := TakeProfitThreshold(s, f)
	if pnl >= tp {
		return next, []domain.Signal{{
			Kind: domain.SignalTakeProfit,
			Message: fmt.Sprintf("[%s] Take-profit threshold reached. Price=%.4f, PnL=%.2f%%, TP≈%.2f%%, Regime=%s, RSI=%.1f. "+
				"Consider taking partial profit and arming a trailing stop.",
				h.Symbol, last, pnl*100, tp*100, f.Regime, f.RSI),
		}}
	}

	return next, nil
}

// TakeProfitThreshold is base_tp widened by half the volatility, and by a further
// 25% when the strategy requires a confirmed BULL regime that is not present.
func TakeProfitThreshold(s domain.Strategy, f domain.Features) float64 {
	tp := s.BaseTP + tpVolWeight*f.VolPct
	if s.ConfirmRegime && f.Regime != domain.RegimeBull {
		tp *= tpUnconfirmedFactor
	}
	return tp
}

func floatPtr(v float64) *float64 {
	return &v
}
