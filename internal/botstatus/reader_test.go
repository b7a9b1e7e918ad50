package botstatus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockStore struct {
	mu     sync.Mutex
	docs   []models.BotStatusDocument
	err    error
	limits []int
}

func (m *mockStore) GetRecentBotStatuses(_ context.Context, limit int) ([]models.BotStatusDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, limit)
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.docs) {
		return m.docs[:limit], nil
	}
	return m.docs, nil
}

func (m *mockStore) Limits() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.limits...)
}

type mockCache struct {
	mu          sync.Mutex
	entries     map[int][]models.BotStatusData
	getErr      error
	invalidated int
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[int][]models.BotStatusData{}}
}

func (m *mockCache) GetBotStatuses(_ context.Context, count int) ([]models.BotStatusData, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	s, ok := m.entries[count]
	return s, ok, nil
}

func (m *mockCache) SetBotStatuses(_ context.Context, count int, statuses []models.BotStatusData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[count] = statuses
	return nil
}

func (m *mockCache) InvalidateBotStatuses(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[int][]models.BotStatusData{}
	m.invalidated++
	return nil
}

func doc(data, ts, kind string) models.BotStatusDocument {
	return models.BotStatusDocument{Data: []byte(data), Timestamp: ts, Type: kind}
}

// ---------------------------------------------------------------------------
// FetchLatest
// ---------------------------------------------------------------------------

func TestFetchLatest_EmptyStore(t *testing.T) {
	store := &mockStore{}
	r := NewReader(store, nil)

	assert.Nil(t, r.FetchLatest(context.Background()))
	assert.Equal(t, []int{1}, store.Limits())
}

func TestFetchLatest_StoreError(t *testing.T) {
	r := NewReader(&mockStore{err: errors.New("store unreachable")}, nil)

	assert.Nil(t, r.FetchLatest(context.Background()))
}

func TestFetchLatest_Flattens(t *testing.T) {
	store := &mockStore{docs: []models.BotStatusDocument{
		doc(`{"action":"buy","buy_score":7,"sell_score":1,"price":65000.5,"qty":0.001,
			"signals":{"rsi_1h":25.5,"ema_4h_trend_bullish":true}}`, "2024-05-01T12:00:00.123456Z", "decision"),
	}}
	r := NewReader(store, nil)

	latest := r.FetchLatest(context.Background())
	require.NotNil(t, latest)
	assert.Equal(t, "buy", latest.Action)
	assert.Equal(t, 7.0, latest.BuyScore)
	assert.Equal(t, 1.0, latest.SellScore)
	assert.Equal(t, 65000.5, latest.Price)
	assert.Equal(t, 0.001, latest.Qty)
	assert.Equal(t, "2024-05-01T12:00:00.123456Z", latest.Timestamp)
	assert.Equal(t, "decision", latest.Type)
	require.NotNil(t, latest.Signals)
	require.NotNil(t, latest.Signals.RSI1h)
	assert.Equal(t, 25.5, *latest.Signals.RSI1h)
	assert.Nil(t, latest.Signals.RSI4h)
	assert.True(t, latest.Signals.EMA4hTrendBullish)
}

// ---------------------------------------------------------------------------
// FetchRecent
// ---------------------------------------------------------------------------

func TestFetchRecent_FewerThanRequested(t *testing.T) {
	var docs []models.BotStatusDocument
	for i := 5; i > 0; i-- {
		docs = append(docs, doc(fmt.Sprintf(`{"action":"hold","price":%d}`, i), fmt.Sprintf("2024-05-01T12:0%d:00Z", i), "decision"))
	}
	r := NewReader(&mockStore{docs: docs}, nil)

	statuses := r.FetchRecent(context.Background(), HistoryCount)
	require.Len(t, statuses, 5)
	for i, s := range statuses {
		assert.Equal(t, docs[i].Timestamp, s.Timestamp)
		assert.Equal(t, float64(5-i), s.Price)
	}
}

func TestFetchRecent_DefaultCount(t *testing.T) {
	for _, count := range []int{0, -3} {
		store := &mockStore{}
		r := NewReader(store, nil)

		statuses := r.FetchRecent(context.Background(), count)
		assert.NotNil(t, statuses)
		assert.Empty(t, statuses)
		assert.Equal(t, []int{DefaultRecentCount}, store.Limits())
	}
}

func TestFetchRecent_StoreErrorIsEmpty(t *testing.T) {
	r := NewReader(&mockStore{err: errors.New("permission denied")}, nil)

	statuses := r.FetchRecent(context.Background(), 20)
	assert.NotNil(t, statuses)
	assert.Empty(t, statuses)
}

func TestFetchRecent_SkipsMalformedDocuments(t *testing.T) {
	store := &mockStore{docs: []models.BotStatusDocument{
		doc(`{"action":"buy"}`, "3", "decision"),
		doc(`["not","an","object"]`, "2", "decision"),
		doc(`{"action":`, "1", "decision"),
		doc(`{"action":"sell"}`, "0", "decision"),
	}}
	r := NewReader(store, nil)

	statuses := r.FetchRecent(context.Background(), 10)
	require.Len(t, statuses, 2)
	assert.Equal(t, "buy", statuses[0].Action)
	assert.Equal(t, "sell", statuses[1].Action)
}

func TestFetchRecent_StringEncodedNumerics(t *testing.T) {
	store := &mockStore{docs: []models.BotStatusDocument{
		doc(`{"action":"buy","buy_score":"7","sell_score":"1.5","price":"65000.50","qty":"0.00125000",
			"signals":{"rsi_1h":"25.5","rsi_4h":72.1,"ema_1h":"64000"}}`, "2", "decision"),
		doc(`{"action":"hold","price":"not a number","buy_score":true,"signals":{"rsi_1h":"n/a"}}`, "1", "decision"),
	}}
	r := NewReader(store, nil)

	statuses := r.FetchRecent(context.Background(), 10)
	require.Len(t, statuses, 2)

	first := statuses[0]
	assert.Equal(t, 7.0, first.BuyScore)
	assert.Equal(t, 1.5, first.SellScore)
	assert.Equal(t, 65000.5, first.Price)
	assert.Equal(t, 0.00125, first.Qty)
	require.NotNil(t, first.Signals)
	require.NotNil(t, first.Signals.RSI1h)
	assert.Equal(t, 25.5, *first.Signals.RSI1h)
	require.NotNil(t, first.Signals.RSI4h)
	assert.Equal(t, 72.1, *first.Signals.RSI4h)
	require.NotNil(t, first.Signals.EMA1h)
	assert.Equal(t, 64000.0, *first.Signals.EMA1h)

	// Mistyped values take their defaults instead of dropping the snapshot
	second := statuses[1]
	assert.Equal(t, "hold", second.Action)
	assert.Equal(t, 0.0, second.Price)
	assert.Equal(t, 0.0, second.BuyScore)
	require.NotNil(t, second.Signals)
	assert.Nil(t, second.Signals.RSI1h)
}

func TestFetchLatest_StringEncodedScore(t *testing.T) {
	store := &mockStore{docs: []models.BotStatusDocument{
		doc(`{"action":"buy","buy_score":"7"}`, "2024-05-01T12:00:00Z", "decision"),
	}}
	r := NewReader(store, nil)

	latest := r.FetchLatest(context.Background())
	require.NotNil(t, latest)
	assert.Equal(t, 7.0, latest.BuyScore)
}

func TestFetchRecent_UsesCache(t *testing.T) {
	store := &mockStore{docs: []models.BotStatusDocument{doc(`{"action":"buy"}`, "t1", "decision")}}
	cache := newMockCache()
	r := NewReader(store, nil, WithCache(cache))

	first := r.FetchRecent(context.Background(), 20)
	second := r.FetchRecent(context.Background(), 20)

	assert.Equal(t, first, second)
	assert.Equal(t, []int{20}, store.Limits(), "second read served from cache")

	require.NoError(t, r.Invalidate(context.Background()))
	r.FetchRecent(context.Background(), 20)
	assert.Equal(t, []int{20, 20}, store.Limits())
	assert.Equal(t, 1, cache.invalidated)
}

func TestFetchRecent_CacheErrorFallsThrough(t *testing.T) {
	store := &mockStore{docs: []models.BotStatusDocument{doc(`{"action":"buy"}`, "t1", "decision")}}
	cache := newMockCache()
	cache.getErr = errors.New("redis down")
	r := NewReader(store, nil, WithCache(cache))

	statuses := r.FetchRecent(context.Background(), 5)
	require.Len(t, statuses, 1)
	assert.Equal(t, "buy", statuses[0].Action)
}

func TestInvalidate_NoCache(t *testing.T) {
	r := NewReader(&mockStore{}, nil)
	assert.NoError(t, r.Invalidate(context.Background()))
}

// ---------------------------------------------------------------------------
// Flatten
// ---------------------------------------------------------------------------

func TestFlatten_TopLevelFieldsWin(t *testing.T) {
	status, err := Flatten(doc(`{"action":"sell","timestamp":"inner","type":"inner-type"}`, "outer", "decision"))
	require.NoError(t, err)
	assert.Equal(t, "sell", status.Action)
	assert.Equal(t, "outer", status.Timestamp)
	assert.Equal(t, "decision", status.Type)
}

func TestFlatten_MissingData(t *testing.T) {
	for _, data := range []string{"", "null", "{}"} {
		status, err := Flatten(doc(data, "2024-05-01T12:00:00Z", "heartbeat"))
		require.NoError(t, err)
		assert.Equal(t, models.BotStatusData{Timestamp: "2024-05-01T12:00:00Z", Type: "heartbeat"}, status)
	}
}

func TestFlatten_MistypedFieldsDefault(t *testing.T) {
	status, err := Flatten(doc(`{"action":42,"message":{"k":"v"},"signals":"none","bb_1h_lower_touch":"yes"}`, "t", "decision"))
	require.NoError(t, err)
	assert.Equal(t, "", status.Action)
	assert.Equal(t, "", status.Message)
	assert.Nil(t, status.Signals)
}

func TestFlatten_MistypedSignalFlags(t *testing.T) {
	status, err := Flatten(doc(`{"signals":{"bb_1h_lower_touch":"yes","bullish_div_4h":true,"rsi_4h":null}}`, "t", "decision"))
	require.NoError(t, err)
	require.NotNil(t, status.Signals)
	assert.False(t, status.Signals.BB1hLowerTouch)
	assert.True(t, status.Signals.BullishDiv4h)
	assert.Nil(t, status.Signals.RSI4h)
}

func TestFlatten_NotAnObject(t *testing.T) {
	_, err := Flatten(doc(`42`, "t", "decision"))
	assert.ErrorIs(t, err, ErrMalformedDocument)
}
