// Package binance provides a market-data client for the Binance public REST API.
package binance

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/clients/transport"
	"github.com/aristath/pricewatch/internal/domain"
)

const (
	defaultBaseURL = "https://api.binance.com/api/v3"
	historyLimit   = 300
	klineCloseIdx  = 4
)

// Client for the Binance spot ticker and kline endpoints
type Client struct {
	baseURL string
	http    *transport.JSONGetter
	log     zerolog.Logger
}

// NewClient creates a new Binance client
func NewClient(opts transport.Options, log zerolog.Logger) *Client {
	l := log.With().Str("client", "binance").Logger()
	return &Client{
		baseURL: defaultBaseURL,
		http:    transport.NewJSONGetter(opts, l),
		log:     l,
	}
}

// Name returns the provider name
func (c *Client) Name() domain.ProviderName {
	return domain.ProviderBinance
}

// FetchPricePoint returns the last price and up to 300 hourly closes
func (c *Client) FetchPricePoint(ctx context.Context, asset domain.Asset) (*domain.PricePoint, error) {
	symbol := asset.Identifier(domain.ProviderBinance)
	if symbol == "" {
		return nil, fmt.Errorf("%w: %s has no binance symbol", domain.ErrNoIdentifier, asset.Symbol)
	}

	var ticker struct {
		Price string `json:"price"`
	}
	tickerURL := fmt.Sprintf("%s/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	if err := c.http.Get(ctx, tickerURL, &ticker); err != nil {
		return nil, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	last, err := transport.ParsePrice(ticker.Price)
	if err != nil {
		return nil, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}

	var klines [][]interface{}
	klinesURL := fmt.Sprintf("%s/klines?symbol=%s&interval=1h&limit=%d", c.baseURL, url.QueryEscape(symbol), historyLimit)
	if err := c.http.Get(ctx, klinesURL, &klines); err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, row := range klines {
		if len(row) <= klineCloseIdx {
			return nil, fmt.Errorf("binance klines %s: %w: short row", symbol, domain.ErrTransientFetch)
		}
		v, err := parseCell(row[klineCloseIdx])
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
		}
		closes = append(closes, v)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Float64("last", last).
		Int("closes", len(closes)).
		Msg("Fetched price point")

	return &domain.PricePoint{Last: last, Closes: closes}, nil
}

// Binance encodes decimals as strings; accept plain numbers too
func parseCell(v interface{}) (float64, error) {
	switch x := v.(type) {
	case string:
		return transport.ParsePrice(x)
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("%w: unexpected kline value %v", domain.ErrTransientFetch, v)
}
