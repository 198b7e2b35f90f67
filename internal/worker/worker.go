// Package worker runs the polling loop: each tick fetches prices for every enabled
// asset with holdings, evaluates the decision engine per holding, and delivers
// deduplicated alerts.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/pricewatch/internal/domain"
	"github.com/aristath/pricewatch/internal/engine"
)

// AssetLister lists the assets to evaluate
type AssetLister interface {
	ListEnabled(ctx context.Context) ([]domain.Asset, error)
}

// HoldingLister lists the holdings of a symbol
type HoldingLister interface {
	List(ctx context.Context, symbol string) ([]domain.Holding, error)
}

// StrategyStore resolves a symbol's strategy
type StrategyStore interface {
	GetOrCreate(ctx context.Context, symbol string) (domain.Strategy, error)
}

// StateStore loads and saves per-holding engine state
type StateStore interface {
	Load(ctx context.Context, holdingID int64) (domain.EngineState, error)
	Save(ctx context.Context, st domain.EngineState) error
}

// Deduplicator checks and records delivered alerts
type Deduplicator interface {
	Eligible(ctx context.Context, holdingID int64, sig domain.Signal, now int64) (bool, error)
	Record(ctx context.Context, holdingID int64, sig domain.Signal, now int64) error
}

// PriceSource resolves an asset to a price point
type PriceSource interface {
	FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error)
}

// FeatureEngine derives indicators from a price point
type FeatureEngine interface {
	Compute(last float64, closes []float64) domain.Features
}

// Notifier delivers alert text
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Deps groups the collaborators of a Worker
type Deps struct {
	Assets     AssetLister
	Holdings   HoldingLister
	Strategies StrategyStore
	States     StateStore
	Dedup      Deduplicator
	Prices     PriceSource
	Features   FeatureEngine
	Notifier   Notifier
}

// Config controls the polling loop
type Config struct {
	Interval    time.Duration
	Concurrency int
}

// TickReport summarizes one tick
type TickReport struct {
	TickID            string        `json:"tick_id"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration_ns"`
	AssetsScanned     int           `json:"assets_scanned"`
	AssetsSkipped     int           `json:"assets_skipped"`
	HoldingsEvaluated int           `json:"holdings_evaluated"`
	SignalsEmitted    int           `json:"signals_emitted"`
	AlertsSent        int           `json:"alerts_sent"`
	AlertsSuppressed  int           `json:"alerts_suppressed"`
	NotifyFailures    int           `json:"notify_failures"`
}

func (r *TickReport) add(o TickReport) {
	r.AssetsScanned += o.AssetsScanned
	r.AssetsSkipped += o.AssetsSkipped
	r.HoldingsEvaluated += o.HoldingsEvaluated
	r.SignalsEmitted += o.SignalsEmitted
	r.AlertsSent += o.AlertsSent
	r.AlertsSuppressed += o.AlertsSuppressed
	r.NotifyFailures += o.NotifyFailures
}

// Worker is the tick orchestrator
type Worker struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.RWMutex
	last *TickReport
}

// New creates a worker
func New(deps Deps, cfg Config, log zerolog.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Worker{
		deps:  deps,
		cfg:   cfg,
		log:   log.With().Str("component", "worker").Logger(),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Run ticks until ctx is cancelled, sleeping the remainder of the interval between
// ticks. A failed or panicking tick is logged and the loop continues.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().
		Dur("interval", w.cfg.Interval).
		Int("concurrency", w.cfg.Concurrency).
		Msg("Worker started")

	for {
		start := w.now()
		w.safeTick(ctx)

		wait := w.cfg.Interval - w.now().Sub(start)
		if wait < 0 {
			wait = 0
		}
		if err := w.sleep(ctx, wait); err != nil {
			w.log.Info().Msg("Worker stopped")
			return
		}
	}
}

func (w *Worker) safeTick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			w.log.Error().
				Interface("panic", p).
				Str("stack", string(debug.Stack())).
				Msg("Tick panicked")
		}
	}()

	if _, err := w.Tick(ctx); err != nil {
		w.log.Error().Err(err).Msg("Tick failed")
	}
}

// Tick evaluates every enabled asset once. Per-asset and per-holding failures are
// logged and counted; only a failure to list assets fails the tick.
func (w *Worker) Tick(ctx context.Context) (TickReport, error) {
	start := w.now()
	report := TickReport{
		TickID:    uuid.NewString(),
		StartedAt: start,
	}
	log := w.log.With().Str("tick_id", report.TickID).Logger()

	assets, err := w.deps.Assets.ListEnabled(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list enabled assets: %w", err)
	}

	nowTS := start.Unix()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(w.cfg.Concurrency)

	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			res := w.processAsset(ctx, log, asset, nowTS)
			mu.Lock()
			report.add(res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = w.now().Sub(start)

	w.mu.Lock()
	last := report
	w.last = &last
	w.mu.Unlock()

	log.Info().
		Int("assets", report.AssetsScanned).
		Int("skipped", report.AssetsSkipped).
		Int("holdings", report.HoldingsEvaluated).
		Int("signals", report.SignalsEmitted).
		Int("sent", report.AlertsSent).
		Int("suppressed", report.AlertsSuppressed).
		Int("notify_failures", report.NotifyFailures).
		Dur("duration", report.Duration).
		Msg("Tick completed")

	return report, nil
}

// LastReport returns the most recent tick report
func (w *Worker) LastReport() (TickReport, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return TickReport{}, false
	}
	return *w.last, true
}

func (w *Worker) processAsset(ctx context.Context, tickLog zerolog.Logger, asset domain.Asset, nowTS int64) (res TickReport) {
	log := tickLog.With().Str("symbol", asset.Symbol).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Interface("panic", p).
				Str("stack", string(debug.Stack())).
				Msg("Asset evaluation panicked")
			res.AssetsSkipped++
		}
	}()

	holdings, err := w.deps.Holdings.List(ctx, asset.Symbol)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list holdings")
		res.AssetsSkipped++
		return res
	}
	if len(holdings) == 0 {
		return res
	}
	res.AssetsScanned++

	pp, err := w.deps.Prices.FetchPricePoint(ctx, asset)
	if err != nil {
		log.Warn().Err(err).Msg("Price fetch failed, skipping asset this tick")
		res.AssetsSkipped++
		return res
	}
	f := w.deps.Features.Compute(pp.Last, pp.Closes)

	strategy, err := w.deps.Strategies.GetOrCreate(ctx, asset.Symbol)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load strategy, skipping asset this tick")
		res.AssetsSkipped++
		return res
	}

	log.Debug().
		Float64("last", f.Last).
		Float64("atr", f.ATR).
		Float64("ema_short", f.EMAShort).
		Float64("ema_long", f.EMALong).
		Float64("vol_pct", f.VolPct).
		Float64("rsi", f.RSI).
		Str("regime", string(f.Regime)).
		Msg("Features computed")

	for _, h := range holdings {
		w.processHolding(ctx, log, h, strategy, f, nowTS, &res)
	}
	return res
}

// processHolding runs load, decide, deliver and save for one holding
func (w *Worker) processHolding(ctx context.Context, assetLog zerolog.Logger, h domain.Holding, s domain.Strategy, f domain.Features, nowTS int64, res *TickReport) {
	log := assetLog.With().Int64("holding_id", h.ID).Logger()

	st, err := w.deps.States.Load(ctx, h.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load engine state")
		return
	}
	res.HoldingsEvaluated++

	next, signals := engine.Decide(nowTS, h, s, f, st)
	res.SignalsEmitted += len(signals)

	for _, sig := range signals {
		eligible, err := w.deps.Dedup.Eligible(ctx, h.ID, sig, nowTS)
		if err != nil {
			log.Error().Err(err).Str("kind", string(sig.Kind)).Msg("Failed to check alert eligibility")
			continue
		}
		if !eligible {
			res.AlertsSuppressed++
			log.Debug().Str("kind", string(sig.Kind)).Msg("Alert already sent in this bucket")
			continue
		}

		if err := w.deps.Notifier.Send(ctx, sig.Message); err != nil {
			res.NotifyFailures++
			log.Warn().Err(err).Str("kind", string(sig.Kind)).Msg("Alert delivery failed, will retry on a later tick")
			continue
		}

		if err := w.deps.Dedup.Record(ctx, h.ID, sig, nowTS); err != nil {
			log.Error().Err(err).Str("kind", string(sig.Kind)).Msg("Failed to record alert")
		}
		ts := nowTS
		next.LastAlertTS = &ts
		res.AlertsSent++

		log.Info().Str("kind", string(sig.Kind)).Msg(sig.Message)
	}

	if err := w.deps.States.Save(ctx, next); err != nil {
		log.Error().Err(err).Msg("Failed to save engine state")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
