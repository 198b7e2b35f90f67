// Package coingecko provides a market-data client for the CoinGecko public API.
package coingecko

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/clients/transport"
	"github.com/aristath/pricewatch/internal/domain"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	historyLimit   = 300
)

// Client for the CoinGecko simple price and market chart endpoints
type Client struct {
	baseURL string
	http    *transport.JSONGetter
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(opts transport.Options, log zerolog.Logger) *Client {
	l := log.With().Str("client", "coingecko").Logger()
	headers := map[string]string{"Accept": "application/json"}
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
	return domain.ProviderCoingecko
}

// FetchPricePoint returns the USD price and the trailing 300 points of the 7 day chart
func (c *Client) FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error) {
	id := asset.Identifier(domain.ProviderCoingecko)
	if id == "" {
		return nil, fmt.Errorf("%w: %s has no coingecko id", domain.ErrNoIdentifier, asset.Symbol)
	}

	var prices map[string]struct {
		USD *float64 `json:"usd"`
	}
	priceURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(id))
	if err := c.http.Get(ctx, priceURL, &prices); err != nil {
		return nil, fmt.Errorf("coingecko price %s: %w", id, err)
	}
	entry, ok := prices[id]
	if !ok || entry.USD == nil {
		return nil, fmt.Errorf("coingecko price %s: %w: no usd price in response", id, domain.ErrTransientFetch)
	}

	var chart struct {
		Prices [][]float64 `json:"prices"`
	}
	chartURL := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=7", c.baseURL, url.PathEscape(id))
	if err := c.http.Get(ctx, chartURL, &chart); err != nil {
		return nil, fmt.Errorf("coingecko market chart %s: %w", id, err)
	}

	closes := make([]float64, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			return nil, fmt.Errorf("coingecko market chart %s: %w: short price row", id, domain.ErrTransientFetch)
		}
		closes = append(closes, p[1])
	}
	closes = transport.Tail(closes, historyLimit)

	c.log.Debug().
		Str("id", id).
		Float64("last", *entry.USD).
		Int("closes", len(closes)).
		Msg("Fetched price point")

	return &domain.PricePoint{Last: *entry.USD, Closes: closes}, nil
}
