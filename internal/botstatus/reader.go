// Package botstatus reads the bot's decision snapshots from the shared store
// and flattens them into single-level records.
package botstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/metrics"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultRecentCount is used when a non-positive count is requested
	DefaultRecentCount = 10
	// HistoryCount is the number of entries shown in the history view
	HistoryCount = 20
)

// ErrMalformedDocument is returned by Flatten for a document whose data is
// not an object of the expected shape.
var ErrMalformedDocument = errors.New("botstatus: malformed document")

// Store defines the snapshot query the reader depends on
type Store interface {
	GetRecentBotStatuses(ctx context.Context, limit int) ([]models.BotStatusDocument, error)
}

// Cache defines the optional read-through cache
type Cache interface {
	GetBotStatuses(ctx context.Context, count int) ([]models.BotStatusData, bool, error)
	SetBotStatuses(ctx context.Context, count int, statuses []models.BotStatusData) error
	InvalidateBotStatuses(ctx context.Context) error
}

// Reader fetches and flattens bot status snapshots. Store failures are
// logged and surface as "no data".
type Reader struct {
	store   Store
	cache   Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures the reader
type Option func(*Reader)

// WithCache enables the read-through cache
func WithCache(c Cache) Option {
	return func(r *Reader) {
		r.cache = c
	}
}

// WithMetrics records store and cache outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) {
		r.metrics = m
	}
}

// NewReader creates a reader over store
func NewReader(store Store, logger *zap.Logger, opts ...Option) *Reader {
	r := &Reader{
		store:  store,
		logger: logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchLatest returns the newest snapshot, or nil when the store is empty or
// unreachable.
func (r *Reader) FetchLatest(ctx context.Context) *models.BotStatusData {
	statuses := r.FetchRecent(ctx, 1)
	if len(statuses) == 0 {
		return nil
	}
	latest := statuses[0]
	return &latest
}

// FetchRecent returns up to count snapshots, newest first, in the order the
// store returned them. A non-positive count means DefaultRecentCount.
// The result is never nil.
func (r *Reader) FetchRecent(ctx context.Context, count int) []models.BotStatusData {
	if count <= 0 {
		count = DefaultRecentCount
	}

	if r.cache != nil {
		cached, ok, err := r.cache.GetBotStatuses(ctx, count)
		if err != nil {
			r.logger.Warn("Bot status cache read failed", zap.Error(err))
		}
		r.metrics.ObserveCache(ok)
		if ok {
			return cached
		}
	}

	docs, err := r.store.GetRecentBotStatuses(ctx, count)
	if err != nil {
		r.metrics.ObserveUpstream("bot_status", metrics.OutcomeError)
		r.logger.Error("Error fetching bot status", zap.Int("count", count), zap.Error(err))
		return []models.BotStatusData{}
	}
	r.metrics.ObserveUpstream("bot_status", metrics.OutcomeSuccess)

	statuses := make([]models.BotStatusData, 0, len(docs))
	for i, doc := range docs {
		status, err := Flatten(doc)
		if err != nil {
			r.logger.Warn("Skipping bot status document",
				zap.Int("position", i),
				zap.String("timestamp", doc.Timestamp),
				zap.Error(err))
			continue
		}
		statuses = append(statuses, status)
	}

	if r.cache != nil {
		if err := r.cache.SetBotStatuses(ctx, count, statuses); err != nil {
			r.logger.Warn("Bot status cache write failed", zap.Error(err))
		}
	}
	return statuses
}

// Invalidate drops cached reads so the next fetch goes to the store
func (r *Reader) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.InvalidateBotStatuses(ctx)
}

// Flatten merges a stored document into a single-level record. The
// document's top-level timestamp and type replace any same-named keys
// inside data.
func Flatten(doc models.BotStatusDocument) (models.BotStatusData, error) {
	var status models.BotStatusData

	data := bytes.TrimSpace(doc.Data)
	if len(data) > 0 && string(data) != "null" {
		if data[0] != '{' {
			return status, fmt.Errorf("%w: data is not an object", ErrMalformedDocument)
		}
		if err := json.Unmarshal(data, &status); err != nil {
			return status, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	}

	status.Timestamp = doc.Timestamp
	status.Type = doc.Type
	return status, nil
}
