// Package alpaca adapts the brokerage account and positions endpoints into
// the dashboard's fixed numeric shapes.
package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/trogers1052/satoshi-dashboard/internal/config"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"go.uber.org/zap"
)

const (
	accountPath   = "/v2/account"
	positionsPath = "/v2/positions"

	headerKeyID  = "APCA-API-KEY-ID"
	headerSecret = "APCA-API-SECRET-KEY"
)

var (
	// ErrMissingCredentials is returned before any request is made when the
	// key id or secret is not configured.
	ErrMissingCredentials = errors.New("alpaca: API credentials are not configured")

	// ErrMalformedResponse is returned when the upstream body does not have
	// the expected shape.
	ErrMalformedResponse = errors.New("alpaca: malformed response")
)

// APIError is a non-success response from the brokerage
type APIError struct {
	StatusCode int
	Code       int64
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca api error %d: %s", e.StatusCode, e.Message)
}

// CredentialsFunc supplies the key pair for each request
type CredentialsFunc func() config.Credentials

// Client talks to the brokerage REST API
type Client struct {
	http        *resty.Client
	credentials CredentialsFunc
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		baseURL := c.http.BaseURL
		c.http = resty.NewWithClient(hc).SetBaseURL(baseURL)
	}
}

// WithMetrics records upstream outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// New creates a brokerage client for baseURL
func New(baseURL string, credentials CredentialsFunc, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetHeader("Accept", "application/json"),
		credentials: credentials,
		logger:      logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authenticated GET and returns the raw body of a 2xx response
func (c *Client) get(ctx context.Context, source, path string) ([]byte, error) {
	creds := config.Credentials{}
	if c.credentials != nil {
		creds = c.credentials()
	}
	if !creds.Valid() {
		c.metrics.ObserveUpstream(source, metrics.OutcomeNoConfig)
		return nil, ErrMissingCredentials
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(headerKeyID, creds.KeyID).
		SetHeader(headerSecret, creds.SecretKey).
		Get(path)
	if err != nil {
		c.metrics.ObserveUpstream(source, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to request %s: %w", path, err)
	}

	if !resp.IsSuccess() {
		c.metrics.ObserveUpstream(source, metrics.OutcomeError)
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		var body struct {
			Code    int64  `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		c.logger.Error("Brokerage request failed",
			zap.String("path", path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	return resp.Body(), nil
}

// Describe turns a fetch error into display text. Missing credentials get
// their own message; upstream errors carry the upstream message.
func Describe(err error, fallback string) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "Alpaca API credentials are not configured"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return fallback
	}
}
