// Package commentary asks a chat-completion service for a one-line comment
// on the bot's latest decision. Failures never reach the caller of
// RequestComment; they turn into Fallback.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/trogers1052/satoshi-dashboard/internal/config"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fallback is returned whenever a comment cannot be produced
const Fallback = "Stack those sats!"

var (
	// ErrMissingAPIKey is returned before any request when no key is configured
	ErrMissingAPIKey = errors.New("commentary: API key is not configured")

	// ErrEmptyCompletion is returned when the service answers without text
	ErrEmptyCompletion = errors.New("commentary: empty completion")
)

// APIError is a non-success response from the completion service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commentary api error %d: %s", e.StatusCode, e.Message)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client requests comments from the completion service
type Client struct {
	http        *resty.Client
	apiKey      func() string
	model       string
	maxTokens   int
	temperature float64
	limiter     *rate.Limiter
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Option configures the client
type Option func(*Client)

// WithMetrics counts fallback comments
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client. apiKey is consulted on every request.
func New(cfg config.OpenAIConfig, apiKey func() string, logger *zap.Logger, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey:      apiKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestComment returns a generated comment for status, or Fallback on any
// failure. It makes at most one request.
func (c *Client) RequestComment(ctx context.Context, status *models.BotStatusData) string {
	comment, err := c.Generate(ctx, status)
	if err != nil {
		c.metrics.CommentaryFallback()
		c.logger.Warn("Using fallback comment", zap.Error(err))
		return Fallback
	}
	return comment
}

// Generate performs a single completion request and returns its text
func (c *Client) Generate(ctx context.Context, status *models.BotStatusData) (string, error) {
	key := ""
	if c.apiKey != nil {
		key = c.apiKey()
	}
	if key == "" {
		c.metrics.ObserveUpstream("openai", metrics.OutcomeNoConfig)
		return "", ErrMissingAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	var s models.BotStatusData
	if status != nil {
		s = *status
	}
	payload := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: BuildPrompt(s)}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var result chatResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(key).
		SetBody(payload).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		c.metrics.ObserveUpstream("openai", metrics.OutcomeError)
		return "", fmt.Errorf("failed to request completion: %w", err)
	}

	if resp.IsError() {
		c.metrics.ObserveUpstream("openai", metrics.OutcomeError)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}

	if len(result.Choices) == 0 {
		c.metrics.ObserveUpstream("openai", metrics.OutcomeMalformed)
		return "", ErrEmptyCompletion
	}
	comment := strings.TrimSpace(result.Choices[0].Message.Content)
	if comment == "" {
		c.metrics.ObserveUpstream("openai", metrics.OutcomeMalformed)
		return "", ErrEmptyCompletion
	}

	c.metrics.ObserveUpstream("openai", metrics.OutcomeSuccess)
	return comment, nil
}
