// Package marketdata resolves an asset to a PricePoint across several market-data
// providers, with caching, fallback ordering, retries and per-provider circuit breakers.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/pricewatch/internal/domain"
	"github.com/aristath/pricewatch/internal/reliability"
)

// Provider is a single market-data source
type Provider interface {
	Name() domain.ProviderName
	FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error)
}

const (
	defaultMaxAttempts = 3
	backoffBase        = 400 * time.Millisecond
	backoffJitter      = 200 * time.Millisecond
)

// Config controls fallback order and resilience settings
type Config struct {
	Order         []string
	FailThreshold int
	OpenDuration  time.Duration
	CacheTTL      time.Duration
	MaxAttempts   int
}

// Aggregator fetches price points with cache, fallback, retry and circuit breaking.
// It is safe for concurrent use.
type Aggregator struct {
	order       []Provider
	breakers    map[domain.ProviderName]*reliability.CircuitBreaker
	cache       *PriceCache
	group       singleflight.Group
	maxAttempts int
	log         zerolog.Logger

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewAggregator builds the fallback chain from cfg.Order. Names that match no
// registered provider are skipped.
func NewAggregator(cfg Config, providers []Provider, log zerolog.Logger) *Aggregator {
	a := &Aggregator{
		breakers:    make(map[domain.ProviderName]*reliability.CircuitBreaker),
		cache:       NewPriceCache(cfg.CacheTTL),
		maxAttempts: cfg.MaxAttempts,
		log:         log.With().Str("component", "marketdata").Logger(),
		now:         time.Now,
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
	if a.maxAttempts < 1 {
		a.maxAttempts = defaultMaxAttempts
	}

	registry := make(map[domain.ProviderName]Provider, len(providers))
	for _, p := range providers {
		registry[p.Name()] = p
	}

	for _, raw := range cfg.Order {
		name := domain.ProviderName(strings.ToUpper(strings.TrimSpace(raw)))
		p, ok := registry[name]
		if !ok {
			a.log.Warn().Str("provider", raw).Msg("Unknown provider in order, skipping")
			continue
		}
		if _, dup := a.breakers[name]; dup {
			continue
		}
		a.order = append(a.order, p)
		a.breakers[name] = reliability.NewCircuitBreaker(string(name), cfg.FailThreshold, cfg.OpenDuration)
	}

	return a
}

// FetchPricePoint returns the asset's price point from cache or the first provider
// that succeeds. When every provider fails the error wraps domain.ErrAllProvidersFailed
// and the last provider error.
func (a *Aggregator) FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error) {
	symbol := domain.NormalizeSymbol(asset.Symbol)

	if pp, ok := a.cache.Get(symbol, a.now()); ok {
		return &pp, nil
	}

	v, err, shared := a.group.Do(symbol, func() (interface{}, error) {
		// another caller may have filled the cache while this one waited
		if pp, ok := a.cache.Get(symbol, a.now()); ok {
			return pp, nil
		}
		return a.fetch(ctx, symbol, asset)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		a.log.Debug().Str("symbol", symbol).Msg("Joined in-flight fetch")
	}

	pp := copyPricePoint(v.(domain.PricePoint))
	return &pp, nil
}

func (a *Aggregator) fetch(ctx context.Context, symbol string, asset domain.Asset) (domain.PricePoint, error) {
	var lastErr error

	for _, p := range a.order {
		if err := ctx.Err(); err != nil {
			return domain.PricePoint{}, fmt.Errorf("fetch %s: %w", symbol, err)
		}

		pp, err := a.tryProvider(ctx, p, asset)
		if err == nil {
			a.cache.Set(symbol, *pp, a.now())
			return *pp, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return domain.PricePoint{}, fmt.Errorf("%w: %s: %w", domain.ErrAllProvidersFailed, symbol, lastErr)
}

// tryProvider runs up to maxAttempts against one provider. Only exhausted
// attempts count as a breaker failure; a missing identifier or an open circuit
// fail fast without I/O.
func (a *Aggregator) tryProvider(ctx context.Context, p Provider, asset domain.Asset) (*domain.PricePoint, error) {
	name := p.Name()
	breaker := a.breakers[name]
	log := a.log.With().Str("provider", string(name)).Str("symbol", asset.Symbol).Logger()

	if !breaker.Allow() {
		log.Debug().Msg("Circuit open, skipping provider")
		return nil, fmt.Errorf("%s: %w", name, domain.ErrCircuitOpen)
	}
	if asset.Identifier(name) == "" {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNoIdentifier)
	}

	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		pp, err := p.FetchPricePoint(ctx, asset)
		if err == nil {
			breaker.RecordSuccess()
			return pp, nil
		}
		if errors.Is(err, domain.ErrNoIdentifier) {
			return nil, err
		}
		lastErr = err

		log.Debug().Err(err).Int("attempt", attempt+1).Msg("Fetch attempt failed")

		if attempt == a.maxAttempts-1 {
			break
		}
		if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
			// shutting down: not the provider's fault, so not a breaker failure
			return nil, fmt.Errorf("%s: %w", name, lastErr)
		}
	}

	breaker.RecordFailure()
	log.Warn().Err(lastErr).Int("attempts", a.maxAttempts).Msg("Provider exhausted")
	return nil, fmt.Errorf("%s: %w", name, lastErr)
}

// backoff is 0.4*2^attempt seconds plus up to 0.2s of jitter
func (a *Aggregator) backoff(attempt int) time.Duration {
	base := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	return base + time.Duration(a.jitter()*float64(backoffJitter))
}

// BreakerSnapshots reports breaker state in fallback order
func (a *Aggregator) BreakerSnapshots() []reliability.BreakerSnapshot {
	out := make([]reliability.BreakerSnapshot, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, a.breakers[p.Name()].Snapshot())
	}
	return out
}

// CacheSize returns the number of symbols held in the price cache
func (a *Aggregator) CacheSize() int {
	return a.cache.Len()
}

// Providers returns the resolved fallback order
func (a *Aggregator) Providers() []domain.ProviderName {
	out := make([]domain.ProviderName, len(a.order))
	for i, p := range a.order {
		out[i] = p.Name()
	}
	return out
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
