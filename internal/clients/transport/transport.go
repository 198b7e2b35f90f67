// Package transport holds the HTTP plumbing shared by the market-data clients:
// rate limiting, request timeouts and mapping failures to domain.ErrTransientFetch.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/pricewatch/internal/domain"
)

// DefaultTimeout is the per-request timeout when none is configured
const DefaultTimeout = 8 * time.Second

// maxErrorBody bounds how much of a failed response body ends up in an error
const maxErrorBody = 256

// Options configures a JSON getter
type Options struct {
	Timeout    time.Duration
	RatePerSec float64
	Headers    map[string]string
}

// JSONGetter issues rate-limited GET requests and decodes JSON responses
type JSONGetter struct {
	client  *http.Client
	limiter *rate.Limiter
	headers map[string]string
	log     zerolog.Logger
}

// NewJSONGetter creates a getter. A non-positive rate disables limiting.
func NewJSONGetter(opts Options, log zerolog.Logger) *JSONGetter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}

	return &JSONGetter{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		headers: opts.Headers,
		log:     log,
	}
}

// Get fetches url and decodes the body into out.
// Every failure wraps domain.ErrTransientFetch.
func (g *JSONGetter) Get(ctx context.Context, url string, out interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", domain.ErrTransientFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrTransientFetch, err)
	}
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}

	g.log.Debug().Str("url", url).Msg("GET")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransientFetch, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrTransientFetch, err)
	}
	return nil
}

// ParsePrice converts a decimal price string
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid price %q", domain.ErrTransientFetch, s)
	}
	return v, nil
}

// Tail returns the trailing n values
func Tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
