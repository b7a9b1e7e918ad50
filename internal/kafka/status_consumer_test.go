package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockStatusStore struct {
	mu      sync.Mutex
	inserts []models.BotStatusDocument
	err     error
}

func (m *mockStatusStore) InsertBotStatus(_ context.Context, doc models.BotStatusDocument) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.inserts = append(m.inserts, doc)
	return int64(len(m.inserts)), nil
}

func (m *mockStatusStore) Inserts() []models.BotStatusDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.BotStatusDocument, len(m.inserts))
	copy(cp, m.inserts)
	return cp
}

type mockInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockInvalidator) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockInvalidator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type refreshCounter struct {
	mu    sync.Mutex
	calls int
}

func (r *refreshCounter) Refresh(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *refreshCounter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// mockReader hands out queued messages, then blocks until ctx is done
type mockReader struct {
	msgs   chan kafkago.Message
	closed bool
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case msg := <-m.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (m *mockReader) Config() kafkago.ReaderConfig {
	return kafkago.ReaderConfig{Topic: "bot.status"}
}

func (m *mockReader) Close() error {
	m.closed = true
	return nil
}

func newTestConsumer() (*StatusConsumer, *mockStatusStore, *mockInvalidator, *refreshCounter) {
	store := &mockStatusStore{}
	inv := &mockInvalidator{}
	refresh := &refreshCounter{}
	c := &StatusConsumer{
		store:       store,
		invalidator: inv,
		refresh:     refresh.Refresh,
		logger:      zap.NewNop(),
	}
	return c, store, inv, refresh
}

func encode(t *testing.T, event StatusEvent) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Value: payload}
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func TestStatusConsumer_processMessage_Updated(t *testing.T) {
	c, store, inv, refresh := newTestConsumer()

	msg := encode(t, StatusEvent{
		EventType: EventStatusUpdated,
		Source:    "satoshi-accumulator",
		Document: &models.BotStatusDocument{
			Data:      json.RawMessage(`{"action":"buy","price":65000}`),
			Timestamp: "2024-05-01T12:00:00Z",
			Type:      "status",
		},
	})

	require.NoError(t, c.processMessage(context.Background(), msg))

	inserts := store.Inserts()
	require.Len(t, inserts, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", inserts[0].Timestamp)
	assert.JSONEq(t, `{"action":"buy","price":65000}`, string(inserts[0].Data))
	assert.Equal(t, 1, inv.Calls())
	assert.Equal(t, 1, refresh.Calls())
}

func TestStatusConsumer_processMessage_Stored(t *testing.T) {
	c, store, inv, refresh := newTestConsumer()

	require.NoError(t, c.processMessage(context.Background(), encode(t, StatusEvent{EventType: EventStatusStored})))

	assert.Empty(t, store.Inserts())
	assert.Equal(t, 1, inv.Calls())
	assert.Equal(t, 1, refresh.Calls())
}

func TestStatusConsumer_processMessage_UnknownType(t *testing.T) {
	c, store, inv, refresh := newTestConsumer()

	require.NoError(t, c.processMessage(context.Background(), encode(t, StatusEvent{EventType: "SOMETHING_ELSE"})))

	assert.Empty(t, store.Inserts())
	assert.Equal(t, 0, inv.Calls())
	assert.Equal(t, 0, refresh.Calls())
}

func TestStatusConsumer_processMessage_InvalidJSON(t *testing.T) {
	c, _, inv, _ := newTestConsumer()

	err := c.processMessage(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err)
	assert.Equal(t, 0, inv.Calls())
}

func TestStatusConsumer_processMessage_MissingDocument(t *testing.T) {
	c, store, _, refresh := newTestConsumer()

	err := c.processMessage(context.Background(), encode(t, StatusEvent{EventType: EventStatusUpdated}))
	assert.Error(t, err)
	assert.Empty(t, store.Inserts())
	assert.Equal(t, 0, refresh.Calls())
}

func TestStatusConsumer_processMessage_MalformedDocument(t *testing.T) {
	c, store, _, _ := newTestConsumer()

	msg := encode(t, StatusEvent{
		EventType: EventStatusUpdated,
		Document:  &models.BotStatusDocument{Data: json.RawMessage(`[1,2,3]`)},
	})
	err := c.processMessage(context.Background(), msg)
	assert.Error(t, err)
	assert.Empty(t, store.Inserts())
}

func TestStatusConsumer_processMessage_StoreError(t *testing.T) {
	c, store, inv, refresh := newTestConsumer()
	store.err = errors.New("connection refused")

	msg := encode(t, StatusEvent{
		EventType: EventStatusUpdated,
		Document:  &models.BotStatusDocument{Data: json.RawMessage(`{}`)},
	})
	err := c.processMessage(context.Background(), msg)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 0, inv.Calls())
	assert.Equal(t, 0, refresh.Calls())
}

func TestStatusConsumer_processMessage_InvalidateErrorStillRefreshes(t *testing.T) {
	c, _, inv, refresh := newTestConsumer()
	inv.err = errors.New("redis down")

	require.NoError(t, c.processMessage(context.Background(), encode(t, StatusEvent{EventType: EventStatusStored})))
	assert.Equal(t, 1, refresh.Calls())
}

func TestStatusConsumer_processMessage_NilCollaborators(t *testing.T) {
	c := &StatusConsumer{logger: zap.NewNop()}

	assert.NoError(t, c.processMessage(context.Background(), encode(t, StatusEvent{EventType: EventStatusStored})))

	msg := encode(t, StatusEvent{
		EventType: EventStatusUpdated,
		Document:  &models.BotStatusDocument{Data: json.RawMessage(`{}`)},
	})
	assert.Error(t, c.processMessage(context.Background(), msg))
}

// ---------------------------------------------------------------------------
// Start loop
// ---------------------------------------------------------------------------

func TestStatusConsumer_Start(t *testing.T) {
	c, _, _, refresh := newTestConsumer()
	reader := &mockReader{msgs: make(chan kafkago.Message, 3)}
	c.reader = reader

	reader.msgs <- kafkago.Message{Value: []byte("garbage")}
	reader.msgs <- encode(t, StatusEvent{EventType: EventStatusStored})
	reader.msgs <- encode(t, StatusEvent{EventType: EventStatusStored})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return refresh.Calls() == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
