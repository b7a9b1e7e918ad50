package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/satoshi-dashboard/internal/botstatus"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"go.uber.org/zap"
)

// Event types published by the bot
const (
	// EventStatusUpdated carries a new snapshot document to store
	EventStatusUpdated = "BOT_STATUS_UPDATED"
	// EventStatusStored announces a snapshot the bot already wrote itself
	EventStatusStored = "BOT_STATUS_STORED"
)

// StatusStore defines the insert the consumer needs
type StatusStore interface {
	InsertBotStatus(ctx context.Context, doc models.BotStatusDocument) (int64, error)
}

// Invalidator drops cached status reads
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RefreshFunc is called after every accepted event
type RefreshFunc func(ctx context.Context)

// StatusEvent is a bot status notification from Kafka
type StatusEvent struct {
	EventType string                    `json:"event_type"`
	Source    string                    `json:"source"`
	Timestamp string                    `json:"timestamp"`
	Document  *models.BotStatusDocument `json:"document,omitempty"`
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Config() kafka.ReaderConfig
	Close() error
}

// StatusConsumer consumes bot status events, stores carried snapshots and
// triggers a status refresh so the dashboard does not wait for its next poll.
type StatusConsumer struct {
	reader      messageReader
	store       StatusStore
	invalidator Invalidator
	refresh     RefreshFunc
	logger      *zap.Logger
}

// NewStatusConsumer creates a new Kafka consumer for bot status events.
// invalidator and refresh may be nil.
func NewStatusConsumer(brokers []string, topic, groupID string, store StatusStore, invalidator Invalidator, refresh RefreshFunc, logger *zap.Logger) *StatusConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-status",
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset, // Only new snapshots matter
		CommitInterval: time.Second,
	})

	return &StatusConsumer{
		reader:      reader,
		store:       store,
		invalidator: invalidator,
		refresh:     refresh,
		logger:      logging.OrNop(logger),
	}
}

// Start consumes messages until ctx is cancelled
func (c *StatusConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting bot status consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Bot status consumer shutting down")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Warn("Error reading bot status message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Warn("Error processing bot status message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

func (c *StatusConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event StatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal bot status event: %w", err)
	}

	switch event.EventType {
	case EventStatusUpdated:
		if event.Document == nil {
			return fmt.Errorf("%s event without a document", event.EventType)
		}
		if _, err := botstatus.Flatten(*event.Document); err != nil {
			return fmt.Errorf("rejected bot status document: %w", err)
		}
		if c.store == nil {
			return fmt.Errorf("no store configured for %s", event.EventType)
		}
		id, err := c.store.InsertBotStatus(ctx, *event.Document)
		if err != nil {
			return err
		}
		c.logger.Debug("Stored bot status", zap.Int64("id", id), zap.String("source", event.Source))

	case EventStatusStored:
		c.logger.Debug("Bot status stored upstream", zap.String("source", event.Source))

	default:
		c.logger.Debug("Ignoring unknown bot status event type", zap.String("event_type", event.EventType))
		return nil
	}

	if c.invalidator != nil {
		if err := c.invalidator.Invalidate(ctx); err != nil {
			c.logger.Warn("Failed to invalidate bot status cache", zap.Error(err))
		}
	}
	if c.refresh != nil {
		c.refresh(ctx)
	}
	return nil
}

// Close closes the Kafka reader
func (c *StatusConsumer) Close() error {
	return c.reader.Close()
}
