package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewFromClient(rdb, 30*time.Second)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestBotStatuses_RoundTripAndMiss(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, ok, err := c.GetBotStatuses(ctx, 20)
	require.NoError(t, err)
	assert.False(t, ok)

	statuses := []models.BotStatusData{
		{Action: "buy", Price: 65000, Timestamp: "2024-05-01T12:00:00Z"},
		{Action: "hold", Price: 64900, Timestamp: "2024-05-01T11:55:00Z"},
	}
	require.NoError(t, c.SetBotStatuses(ctx, 20, statuses))

	got, ok, err := c.GetBotStatuses(ctx, 20)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, statuses, got)

	_, ok, err = c.GetBotStatuses(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "counts are cached independently")
}

func TestBotStatuses_EmptyReadIsCached(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetBotStatuses(ctx, 1, nil))

	got, ok, err := c.GetBotStatuses(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBotStatuses_Expire(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetBotStatuses(ctx, 10, []models.BotStatusData{{Action: "sell"}}))
	mr.FastForward(31 * time.Second)

	_, ok, err := c.GetBotStatuses(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateBotStatuses(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetBotStatuses(ctx, 1, []models.BotStatusData{{Action: "buy"}}))
	require.NoError(t, c.SetBotStatuses(ctx, 20, []models.BotStatusData{{Action: "buy"}}))
	require.NoError(t, c.SetBitcoinPrice(ctx, &models.BitcoinPrice{USD: 65000}))

	require.NoError(t, c.InvalidateBotStatuses(ctx))

	assert.False(t, mr.Exists(botStatusKey(1)))
	assert.False(t, mr.Exists(botStatusKey(20)))
	assert.True(t, mr.Exists(bitcoinPriceKey), "price entry is untouched")

	// Nothing left to delete
	require.NoError(t, c.InvalidateBotStatuses(ctx))
}

func TestBitcoinPrice(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	price, err := c.GetBitcoinPrice(ctx)
	require.NoError(t, err)
	assert.Nil(t, price)

	require.NoError(t, c.SetBitcoinPrice(ctx, &models.BitcoinPrice{USD: 65432.1, Change24h: -1.25}))

	price, err = c.GetBitcoinPrice(ctx)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 65432.1, price.USD)
	assert.Equal(t, -1.25, price.Change24h)
}

func TestGetBotStatuses_CorruptEntry(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set(botStatusKey(5), "not json"))

	_, ok, err := c.GetBotStatuses(context.Background(), 5)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
