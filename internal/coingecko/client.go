// Package coingecko fetches the Bitcoin spot price for the dashboard ticker.
package coingecko

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"go.uber.org/zap"
)

const pricePath = "/simple/price"

// Cache holds the last good price
type Cache interface {
	GetBitcoinPrice(ctx context.Context) (*models.BitcoinPrice, error)
	SetBitcoinPrice(ctx context.Context, price *models.BitcoinPrice) error
}

type coinQuote struct {
	USD       decimal.NullDecimal `json:"usd"`
	Change24h decimal.NullDecimal `json:"usd_24h_change"`
}

type priceResponse map[string]coinQuote

// Client talks to the CoinGecko public API
type Client struct {
	http    *resty.Client
	cache   Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures the client
type Option func(*Client)

// WithCache serves the last good price when a fetch fails
func WithCache(c Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithMetrics records upstream outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New creates a client for baseURL
func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBitcoinPrice returns the current USD price and 24h change. A response
// without a bitcoin quote yields nil and no error.
func (c *Client) FetchBitcoinPrice(ctx context.Context) (*models.BitcoinPrice, error) {
	price, err := c.fetch(ctx)
	if err != nil {
		if stale := c.cached(ctx); stale != nil {
			c.logger.Warn("Serving cached bitcoin price", zap.Error(err))
			return stale, nil
		}
		return nil, err
	}

	if price != nil && c.cache != nil {
		if err := c.cache.SetBitcoinPrice(ctx, price); err != nil {
			c.logger.Warn("Failed to cache bitcoin price", zap.Error(err))
		}
	}
	return price, nil
}

func (c *Client) fetch(ctx context.Context) (*models.BitcoinPrice, error) {
	var result priceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                 "bitcoin",
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
		}).
		SetResult(&result).
		Get(pricePath)
	if err != nil {
		c.metrics.ObserveUpstream("coingecko", metrics.OutcomeError)
		return nil, fmt.Errorf("failed to request bitcoin price: %w", err)
	}
	if resp.IsError() {
		c.metrics.ObserveUpstream("coingecko", metrics.OutcomeError)
		c.logger.Error("Price request failed", zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("price request failed with status %d", resp.StatusCode())
	}

	quote, ok := result["bitcoin"]
	if !ok || !quote.USD.Valid {
		c.metrics.ObserveUpstream("coingecko", metrics.OutcomeMalformed)
		c.logger.Warn("Price response has no bitcoin quote")
		return nil, nil
	}
	c.metrics.ObserveUpstream("coingecko", metrics.OutcomeSuccess)

	price := &models.BitcoinPrice{USD: quote.USD.Decimal.InexactFloat64()}
	if quote.Change24h.Valid {
		price.Change24h = quote.Change24h.Decimal.InexactFloat64()
	}
	return price, nil
}

func (c *Client) cached(ctx context.Context) *models.BitcoinPrice {
	if c.cache == nil {
		return nil
	}
	price, err := c.cache.GetBitcoinPrice(ctx)
	if err != nil {
		c.logger.Warn("Failed to read cached bitcoin price", zap.Error(err))
		return nil
	}
	return price
}
