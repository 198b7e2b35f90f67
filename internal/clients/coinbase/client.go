// Package coinbase provides a market-data client for the Coinbase Exchange REST API.
package coinbase

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/clients/transport"
	"github.com/aristath/pricewatch/internal/domain"
)

const (
	defaultBaseURL = "https://api.exchange.coinbase.com"
	userAgent      = "price-alert-engine/1.0"
	historyLimit   = 300

	// candle rows are [time, low, high, open, close, volume]
	candleTimeIdx  = 0
	candleCloseIdx = 4
)

// Client for the Coinbase Exchange product ticker and candle endpoints
type Client struct {
	baseURL string
	http    *transport.JSONGetter
	log     zerolog.Logger
}

// NewClient creates a new Coinbase client. Coinbase rejects requests without a User-Agent.
func NewClient(opts transport.Options, log zerolog.Logger) *Client {
	l := log.With().Str("client", "coinbase").Logger()
	headers := map[string]string{"User-Agent": userAgent}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	opts.Headers = headers

	return &Client{
		baseURL: defaultBaseURL,
		http:    transport.NewJSONGetter(opts, l),
		log:     l,
	}
}

// Name returns the provider name
func (c *Client) Name() domain.ProviderName {
	return domain.ProviderCoinbase
}

// FetchPricePoint returns the last trade price and up to 300 hourly closes
func (c *Client) FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error) {
	productID := asset.Identifier(domain.ProviderCoinbase)
	if productID == "" {
		return nil, fmt.Errorf("%w: %s has no coinbase product id", domain.ErrNoIdentifier, asset.Symbol)
	}
	product := url.PathEscape(productID)

	var ticker struct {
		Price string `json:"price"`
	}
	if err := c.http.Get(ctx, fmt.Sprintf("%s/products/%s/ticker", c.baseURL, product), &ticker); err != nil {
		return nil, fmt.Errorf("coinbase ticker %s: %w", productID, err)
	}
	last, err := transport.ParsePrice(ticker.Price)
	if err != nil {
		return nil, fmt.Errorf("coinbase ticker %s: %w", productID, err)
	}

	var candles [][]float64
	if err := c.http.Get(ctx, fmt.Sprintf("%s/products/%s/candles?granularity=3600", c.baseURL, product), &candles); err != nil {
		return nil, fmt.Errorf("coinbase candles %s: %w", productID, err)
	}

	closes, err := closesFromCandles(candles)
	if err != nil {
		return nil, fmt.Errorf("coinbase candles %s: %w", productID, err)
	}

	c.log.Debug().
		Str("product_id", productID).
		Float64("last", last).
		Int("closes", len(closes)).
		Msg("Fetched price point")

	return &domain.PricePoint{Last: last, Closes: closes}, nil
}

// closesFromCandles orders rows oldest first (the API returns newest first),
// keeps the trailing 300 and extracts the close column.
func closesFromCandles(candles [][]float64) ([]float64, error) {
	for _, row := range candles {
		if len(row) <= candleCloseIdx {
			return nil, fmt.Errorf("%w: short candle row", domain.ErrTransientFetch)
		}
	}

	sorted := make([][]float64, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i][candleTimeIdx] < sorted[j][candleTimeIdx]
	})
	if len(sorted) > historyLimit {
		sorted = sorted[len(sorted)-historyLimit:]
	}

	closes := make([]float64, len(sorted))
	for i, row := range sorted {
		closes[i] = row[candleCloseIdx]
	}
	return closes, nil
}
