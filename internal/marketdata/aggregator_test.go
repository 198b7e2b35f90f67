package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricewatch/internal/domain"
	"github.com/aristath/pricewatch/internal/reliability"
)

type fakeProvider struct {
	name domain.ProviderName

	mu    sync.Mutex
	calls int
	fn    func(call int) (*domain.PricePoint, error)
}

func (p *fakeProvider) Name() domain.ProviderName { return p.name }

func (p *fakeProvider) FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	return p.fn(call)
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func succeeding(name domain.ProviderName, last float64) *fakeProvider {
	return &fakeProvider{name: name, fn: func(int) (*domain.PricePoint, error) {
		return &domain.PricePoint{Last: last, Closes: []float64{last - 1, last}}, nil
	}}
}

func failing(name domain.ProviderName) *fakeProvider {
	return &fakeProvider{name: name, fn: func(call int) (*domain.PricePoint, error) {
		return nil, fmt.Errorf("%w: boom %d", domain.ErrTransientFetch, call)
	}}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	agg    *Aggregator
	clock  *testClock
	mu     sync.Mutex
	sleeps []time.Duration
}

func (h *harness) Sleeps() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.sleeps...)
}

func newHarness(cfg Config, providers ...Provider) *harness {
	h := &harness{clock: &testClock{t: time.Unix(1_700_000_000, 0)}}
	a := NewAggregator(cfg, providers, zerolog.Nop())
	a.now = h.clock.Now
	a.jitter = func() float64 { return 0 }
	a.sleep = func(ctx context.Context, d time.Duration) error {
		h.mu.Lock()
		h.sleeps = append(h.sleeps, d)
		h.mu.Unlock()
		return nil
	}
	for _, b := range a.breakers {
		b.SetClock(h.clock.Now)
	}
	h.agg = a
	return h
}

func defaultConfig() Config {
	return Config{
		Order:         []string{"BINANCE", "COINBASE", "COINGECKO"},
		FailThreshold: 4,
		OpenDuration:  120 * time.Second,
		CacheTTL:      8 * time.Second,
	}
}

var btc = domain.Asset{
	Symbol:            "BTC",
	BinanceSymbol:     "BTCUSDT",
	CoinbaseProductID: "BTC-USD",
	CoingeckoID:       "bitcoin",
}

func TestFetchPricePoint_FirstProviderWins(t *testing.T) {
	bin := succeeding(domain.ProviderBinance, 100)
	cb := succeeding(domain.ProviderCoinbase, 200)
	h := newHarness(defaultConfig(), bin, cb)

	pp, err := h.agg.FetchPricePoint(context.Background(), btc)

	require.NoError(t, err)
	assert.Equal(t, 100.0, pp.Last)
	assert.Equal(t, 1, bin.Calls())
	assert.Zero(t, cb.Calls())
}

func TestFetchPricePoint_CacheTTL(t *testing.T) {
	bin := succeeding(domain.ProviderBinance, 100)
	h := newHarness(defaultConfig(), bin)
	ctx := context.Background()

	_, err := h.agg.FetchPricePoint(ctx, btc)
	require.NoError(t, err)

	// now - ts == ttl is still fresh
	h.clock.Advance(8 * time.Second)
	_, err = h.agg.FetchPricePoint(ctx, domain.Asset{Symbol: "btc", BinanceSymbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, 1, bin.Calls())

	h.clock.Advance(time.Second)
	_, err = h.agg.FetchPricePoint(ctx, btc)
	require.NoError(t, err)
	assert.Equal(t, 2, bin.Calls())
	assert.Equal(t, 1, h.agg.CacheSize())
}

func TestFetchPricePoint_CachedValueIsACopy(t *testing.T) {
	h := newHarness(defaultConfig(), succeeding(domain.ProviderBinance, 100))
	ctx := context.Background()

	first, err := h.agg.FetchPricePoint(ctx, btc)
	require.NoError(t, err)
	first.Closes[0] = -1

	second, err := h.agg.FetchPricePoint(ctx, btc)
	require.NoError(t, err)
	assert.Equal(t, 99.0, second.Closes[0])
}

func TestFetchPricePoint_RetriesThenFallsBack(t *testing.T) {
	bin := failing(domain.ProviderBinance)
	cb := succeeding(domain.ProviderCoinbase, 200)
	h := newHarness(defaultConfig(), bin, cb)

	pp, err := h.agg.FetchPricePoint(context.Background(), btc)

	require.NoError(t, err)
	assert.Equal(t, 200.0, pp.Last)
	assert.Equal(t, 3, bin.Calls())
	// backoff between attempts only, none after the last one
	assert.Equal(t, []time.Duration{400 * time.Millisecond, 800 * time.Millisecond}, h.Sleeps())

	snaps := h.agg.BreakerSnapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, 1, snaps[0].Failures)
	assert.Zero(t, snaps[1].Failures)
}

func TestFetchPricePoint_RecoversOnRetry(t *testing.T) {
	flaky := &fakeProvider{name: domain.ProviderBinance, fn: func(call int) (*domain.PricePoint, error) {
		if call < 3 {
			return nil, domain.ErrTransientFetch
		}
		return &domain.PricePoint{Last: 42}, nil
	}}
	h := newHarness(defaultConfig(), flaky)

	pp, err := h.agg.FetchPricePoint(context.Background(), btc)

	require.NoError(t, err)
	assert.Equal(t, 42.0, pp.Last)
	assert.Zero(t, h.agg.BreakerSnapshots()[0].Failures)
}

func TestFetchPricePoint_NoIdentifierSkipsWithoutIO(t *testing.T) {
	bin := succeeding(domain.ProviderBinance, 100)
	gecko := succeeding(domain.ProviderCoingecko, 300)
	h := newHarness(defaultConfig(), bin, gecko)

	pp, err := h.agg.FetchPricePoint(context.Background(), domain.Asset{Symbol: "PEPE", CoingeckoID: "pepe"})

	require.NoError(t, err)
	assert.Equal(t, 300.0, pp.Last)
	assert.Zero(t, bin.Calls())
	assert.Empty(t, h.Sleeps())
	assert.Zero(t, h.agg.BreakerSnapshots()[0].Failures)
}

func TestFetchPricePoint_AllProvidersFail(t *testing.T) {
	bin := failing(domain.ProviderBinance)
	cb := failing(domain.ProviderCoinbase)
	gecko := failing(domain.ProviderCoingecko)
	h := newHarness(defaultConfig(), bin, cb, gecko)

	pp, err := h.agg.FetchPricePoint(context.Background(), btc)

	require.Error(t, err)
	assert.Nil(t, pp)
	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
	assert.ErrorIs(t, err, domain.ErrTransientFetch)
	assert.Contains(t, err.Error(), "COINGECKO")
	for _, p := range []*fakeProvider{bin, cb, gecko} {
		assert.Equal(t, 3, p.Calls(), string(p.name))
	}
	assert.Zero(t, h.agg.CacheSize())
}

func TestFetchPricePoint_OpenCircuitSkipsProvider(t *testing.T) {
	cfg := defaultConfig()
	cfg.FailThreshold = 2
	bin := failing(domain.ProviderBinance)
	h := newHarness(cfg, bin)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.agg.FetchPricePoint(ctx, btc)
		require.ErrorIs(t, err, domain.ErrAllProvidersFailed)
	}
	require.Equal(t, 6, bin.Calls())

	_, err := h.agg.FetchPricePoint(ctx, btc)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, 6, bin.Calls(), "open circuit must not attempt I/O")
	assert.Equal(t, reliability.BreakerOpen, h.agg.BreakerSnapshots()[0].State)

	h.clock.Advance(120 * time.Second)
	_, err = h.agg.FetchPricePoint(ctx, btc)
	assert.ErrorIs(t, err, domain.ErrTransientFetch)
	assert.Equal(t, 9, bin.Calls())
}

func TestFetchPricePoint_SuccessClosesCircuit(t *testing.T) {
	cfg := defaultConfig()
	cfg.FailThreshold = 1
	healthy := false
	bin := &fakeProvider{name: domain.ProviderBinance, fn: func(int) (*domain.PricePoint, error) {
		if healthy {
			return &domain.PricePoint{Last: 1}, nil
		}
		return nil, domain.ErrTransientFetch
	}}
	h := newHarness(cfg, bin)
	ctx := context.Background()

	_, err := h.agg.FetchPricePoint(ctx, btc)
	require.Error(t, err)
	require.Equal(t, reliability.BreakerOpen, h.agg.BreakerSnapshots()[0].State)

	h.clock.Advance(121 * time.Second)
	healthy = true
	_, err = h.agg.FetchPricePoint(ctx, btc)
	require.NoError(t, err)

	snap := h.agg.BreakerSnapshots()[0]
	assert.Equal(t, reliability.BreakerClosed, snap.State)
	assert.Zero(t, snap.Failures)
}

func TestFetchPricePoint_CancelledDuringBackoff(t *testing.T) {
	bin := failing(domain.ProviderBinance)
	h := newHarness(defaultConfig(), bin)
	h.agg.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := h.agg.FetchPricePoint(context.Background(), btc)

	require.Error(t, err)
	assert.Equal(t, 1, bin.Calls())
	assert.Zero(t, h.agg.BreakerSnapshots()[0].Failures)
}

func TestFetchPricePoint_CollapsesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	bin := &fakeProvider{name: domain.ProviderBinance, fn: func(int) (*domain.PricePoint, error) {
		<-release
		return &domain.PricePoint{Last: 7}, nil
	}}
	h := newHarness(defaultConfig(), bin)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pp, err := h.agg.FetchPricePoint(context.Background(), btc)
			if err == nil && pp.Last != 7 {
				err = errors.New("unexpected price")
			}
			errs <- err
		}()
	}
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, bin.Calls())
}

func TestNewAggregator_ResolvesOrder(t *testing.T) {
	h := newHarness(
		Config{Order: []string{"coingecko", "KRAKEN", "BINANCE", "COINGECKO"}},
		succeeding(domain.ProviderBinance, 1),
		succeeding(domain.ProviderCoingecko, 2),
	)

	assert.Equal(t, []domain.ProviderName{domain.ProviderCoingecko, domain.ProviderBinance}, h.agg.Providers())
	assert.Len(t, h.agg.BreakerSnapshots(), 2)
}

func TestFetchPricePoint_NoProviders(t *testing.T) {
	h := newHarness(Config{Order: []string{"KRAKEN"}})

	_, err := h.agg.FetchPricePoint(context.Background(), btc)

	assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
}

func TestBackoff(t *testing.T) {
	h := newHarness(defaultConfig())
	h.agg.jitter = func() float64 { return 1 }

	assert.Equal(t, 600*time.Millisecond, h.agg.backoff(0))
	assert.Equal(t, 1000*time.Millisecond, h.agg.backoff(1))
	assert.Equal(t, 1800*time.Millisecond, h.agg.backoff(2))
}
