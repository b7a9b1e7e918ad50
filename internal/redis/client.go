package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/satoshi-dashboard/internal/config"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
)

const (
	botStatusPrefix = "bot_status:recent:"
	bitcoinPriceKey = "price:bitcoin:usd"
)

// Client wraps the Redis client with dashboard cache operations
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(rdb, cfg.TTL), nil
}

// NewFromClient wraps an existing go-redis client
func NewFromClient(rdb *redis.Client, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Bot status snapshot caching

func botStatusKey(count int) string {
	return fmt.Sprintf("%s%d", botStatusPrefix, count)
}

// SetBotStatuses caches the flattened result of a count-limited read
func (c *Client) SetBotStatuses(ctx context.Context, count int, statuses []models.BotStatusData) error {
	jsonData, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("failed to marshal bot statuses: %w", err)
	}
	return c.rdb.Set(ctx, botStatusKey(count), jsonData, c.ttl).Err()
}

// GetBotStatuses returns a cached read. The bool is false on a cache miss.
func (c *Client) GetBotStatuses(ctx context.Context, count int) ([]models.BotStatusData, bool, error) {
	jsonData, err := c.rdb.Get(ctx, botStatusKey(count)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get bot statuses: %w", err)
	}

	var statuses []models.BotStatusData
	if err := json.Unmarshal(jsonData, &statuses); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal bot statuses: %w", err)
	}
	if statuses == nil {
		statuses = []models.BotStatusData{}
	}
	return statuses, true, nil
}

// InvalidateBotStatuses drops every cached bot status read
func (c *Client) InvalidateBotStatuses(ctx context.Context) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, botStatusPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan bot status keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Price caching

// SetBitcoinPrice caches the latest ticker value
func (c *Client) SetBitcoinPrice(ctx context.Context, price *models.BitcoinPrice) error {
	jsonData, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("failed to marshal bitcoin price: %w", err)
	}
	return c.rdb.Set(ctx, bitcoinPriceKey, jsonData, c.ttl).Err()
}

// GetBitcoinPrice returns the cached ticker value, or nil on a miss
func (c *Client) GetBitcoinPrice(ctx context.Context) (*models.BitcoinPrice, error) {
	jsonData, err := c.rdb.Get(ctx, bitcoinPriceKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bitcoin price: %w", err)
	}

	var price models.BitcoinPrice
	if err := json.Unmarshal(jsonData, &price); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bitcoin price: %w", err)
	}
	return &price, nil
}
