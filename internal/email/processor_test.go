package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache/cachetest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
)

func TestMain(m *testing.M) {
	code := m.Run()
	cachetest.Shutdown()
	os.Exit(code)
}

type fakeSender struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, to)
	return nil
}

func encode(t *testing.T, msg Message) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func newTestProcessor(t *testing.T, sender Sender, dlq Publisher) (*Processor, *IdempotencyStore) {
	t.Helper()
	store := NewIdempotencyStore(cachetest.New(t), logger.Discard())
	p := NewProcessor(ProcessorConfig{DLQTopic: "email-events-dlq", ConsumerGroup: "g", MaxRetries: 3}, sender, store, dlq, logger.Discard())
	return p, store
}

func TestProcessor_DeliversOnce(t *testing.T) {
	sender := &fakeSender{}
	p, store := newTestProcessor(t, sender, &fakePublisher{})
	ctx := context.Background()
	msg := Message{MessageID: "m-1", Recipient: "a@example.com", Subject: "s", Body: "b"}

	assert.True(t, p.Process(ctx, encode(t, msg)))
	assert.True(t, p.Process(ctx, encode(t, msg)))
	assert.Equal(t, []string{"a@example.com"}, sender.sent)

	meta, err := store.GetMetadata(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", meta.Recipient)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestProcessor_RetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2}
	p, _ := newTestProcessor(t, sender, &fakePublisher{})

	ok := p.Process(context.Background(), encode(t, Message{MessageID: "m-2", Recipient: "b@example.com"}))
	assert.True(t, ok)
	assert.Len(t, sender.sent, 1)
}

func TestProcessor_DeadLettersAfterRetries(t *testing.T) {
	sender := &fakeSender{failures: 10}
	dlq := &fakePublisher{}
	p, store := newTestProcessor(t, sender, dlq)
	ctx := context.Background()

	ok := p.Process(ctx, encode(t, Message{MessageID: "m-3", Recipient: "c@example.com"}))
	assert.True(t, ok)

	require.Len(t, dlq.events, 1)
	assert.Equal(t, "email-events-dlq", dlq.events[0].topic)
	letter, isLetter := dlq.events[0].event.(DeadLetter)
	require.True(t, isLetter)
	assert.Equal(t, "m-3", letter.Original.MessageID)
	assert.Contains(t, letter.Error, "smtp unavailable")

	_, err := store.GetMetadata(ctx, "m-3")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestProcessor_DLQFailureRequestsRedelivery(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeSender{failures: 10}, &fakePublisher{err: errors.New("down")})

	ok := p.Process(context.Background(), encode(t, Message{MessageID: "m-4", Recipient: "d@example.com"}))
	assert.False(t, ok)
}

func TestProcessor_SkipsMalformed(t *testing.T) {
	sender := &fakeSender{}
	p, _ := newTestProcessor(t, sender, &fakePublisher{})

	assert.True(t, p.Process(context.Background(), []byte("not json")))
	assert.True(t, p.Process(context.Background(), encode(t, Message{Recipient: "x@example.com"})))
	assert.Empty(t, sender.sent)
}

func TestHandler_MessageStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb := cachetest.New(t)
	store := NewIdempotencyStore(rdb, logger.Discard())
	_, err := store.MarkAsProcessed(context.Background(), Message{MessageID: "m-5", Recipient: "e@example.com"})
	require.NoError(t, err)

	r := gin.New()
	NewHandler(rdb, store, logger.Discard()).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/m-5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"idempotency_records":1,"ttl_hours":24}`, w.Body.String())
}
