package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate-ai/storefront-backend/internal/chat"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/internal/responder"
	"github.com/shopmate-ai/storefront-backend/internal/store"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
)

// stubResponder returns a fixed reply or error and records the last request.
type stubResponder struct {
	reply   string
	err     error
	block   bool
	lastReq *responder.Request
}

func (s *stubResponder) Name() string { return "stub" }

func (s *stubResponder) Respond(ctx context.Context, req *responder.Request) (string, error) {
	s.lastReq = req
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func newTestService(t *testing.T, generative responder.Responder) (*chat.Service, *store.Memory) {
	t.Helper()

	m := store.NewMemory()
	m.SeedProducts(
		model.Product{ID: 1, Name: "Wireless Headphones", Description: "noise cancelling",
			Price: decimal.RequireFromString("199.99"), Category: "electronics", Stock: 10},
		model.Product{ID: 2, Name: "Yoga Mat", Description: "non-slip",
			Price: decimal.RequireFromString("38.50"), Category: "sports", Stock: 10},
	)

	index := responder.NewIndex()
	products, err := m.Products(context.Background())
	require.NoError(t, err)
	index.Rebuild(products)

	return chat.NewService(m, generative, index, m, 100*time.Millisecond, logger.NewNop()), m
}

func TestMessageGenerativeReply(t *testing.T) {
	stub := &stubResponder{reply: "We have great headphones in stock."}
	svc, _ := newTestService(t, stub)

	reply, err := svc.Message(context.Background(), "user-1", "tell me about headphones")
	require.NoError(t, err)

	assert.Equal(t, "We have great headphones in stock.", reply.Response)
	assert.False(t, reply.Fallback)
	require.NotEmpty(t, reply.Sources)
	assert.Equal(t, int64(1), reply.Sources[0].ProductID)

	require.NotNil(t, stub.lastReq)
	require.NotEmpty(t, stub.lastReq.Products)
	assert.Equal(t, "Wireless Headphones", stub.lastReq.Products[0].Name)
}

func TestMessageFallbackOnError(t *testing.T) {
	svc, _ := newTestService(t, &stubResponder{err: errors.New("upstream unavailable")})

	reply, err := svc.Message(context.Background(), "user-1", "hello there")
	require.NoError(t, err, "generative failures must not surface to the caller")

	assert.True(t, reply.Fallback)
	assert.NotEmpty(t, reply.Response)
	assert.Empty(t, reply.Sources, "fallback replies carry no sources")
}

func TestMessageFallbackOnTimeout(t *testing.T) {
	svc, _ := newTestService(t, &stubResponder{block: true})

	start := time.Now()
	reply, err := svc.Message(context.Background(), "user-1", "hello")
	require.NoError(t, err)

	assert.True(t, reply.Fallback)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMessageWithoutGenerativeResponder(t *testing.T) {
	svc, _ := newTestService(t, nil)

	reply, err := svc.Message(context.Background(), "user-1", "what categories do you have?")
	require.NoError(t, err)

	assert.True(t, reply.Fallback)
	assert.Contains(t, reply.Response, "Electronics")
}

func TestMessageOrderIntent(t *testing.T) {
	svc, _ := newTestService(t, &stubResponder{reply: "Sure, I can set that up."})

	reply, err := svc.Message(context.Background(), "user-1", "I want to buy a yoga mat")
	require.NoError(t, err)
	assert.Equal(t, "order_intent", reply.Action)
	assert.True(t, reply.RequiresConfirmation)

	reply, err = svc.Message(context.Background(), "user-1", "what colors does it come in?")
	require.NoError(t, err)
	assert.Empty(t, reply.Action)
	assert.False(t, reply.RequiresConfirmation)
}

func TestMessageRecordsHistory(t *testing.T) {
	stub := &stubResponder{reply: "reply one"}
	svc, _ := newTestService(t, stub)
	ctx := context.Background()

	_, err := svc.Message(ctx, "user-1", "first message")
	require.NoError(t, err)
	stub.reply = "reply two"
	_, err = svc.Message(ctx, "user-1", "second message")
	require.NoError(t, err)

	history, err := svc.History(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first message", history[0].Message)
	assert.Equal(t, "reply one", history[0].Response)
	assert.Equal(t, "second message", history[1].Message)

	// Prior turns flow into the next generative request.
	require.NotNil(t, stub.lastReq)
	require.NotEmpty(t, stub.lastReq.History)
	assert.Equal(t, "first message", stub.lastReq.History[0].Message)
}

func TestHistoryIsolatedPerUser(t *testing.T) {
	svc, _ := newTestService(t, &stubResponder{reply: "ok"})
	ctx := context.Background()

	_, err := svc.Message(ctx, "user-1", "alpha")
	require.NoError(t, err)
	_, err = svc.Message(ctx, "user-2", "beta")
	require.NoError(t, err)

	history, err := svc.History(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "beta", history[0].Message)
}

func TestClearHistory(t *testing.T) {
	stub := &stubResponder{reply: "ok"}
	svc, _ := newTestService(t, stub)
	ctx := context.Background()

	_, err := svc.Message(ctx, "user-1", "remember this")
	require.NoError(t, err)
	require.NoError(t, svc.ClearHistory(ctx, "user-1"))

	history, err := svc.History(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// The in-memory context is dropped too, so the next request starts fresh.
	_, err = svc.Message(ctx, "user-1", "new conversation")
	require.NoError(t, err)
	assert.Empty(t, stub.lastReq.History)
}

func TestRebuildIndex(t *testing.T) {
	svc, m := newTestService(t, nil)

	m.SeedProducts(model.Product{ID: 3, Name: "Coffee Set",
		Price: decimal.RequireFromString("44.95"), Category: "home", Stock: 5})

	count, err := svc.RebuildIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDetectOrderIntent(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"I want to buy headphones", true},
		{"please ORDER two yoga mats", true},
		{"add to cart", true},
		{"can i get the blue one", true},
		{"what categories do you have?", false},
		{"tell me about shipping", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, chat.DetectOrderIntent(tc.message), "message %q", tc.message)
	}
}
