package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate-ai/storefront-backend/internal/chat"
	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/middleware"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/internal/responder"
	"github.com/shopmate-ai/storefront-backend/internal/store"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
)

// asUser injects an authenticated identity, standing in for the JWT middleware.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestServer(t *testing.T, userID string) (*httptest.Server, *store.Memory) {
	t.Helper()

	m := store.NewMemory()
	m.SeedProducts(
		model.Product{ID: 1, Name: "Wireless Headphones", Description: "noise cancelling",
			Price: decimal.RequireFromString("199.99"), Category: "electronics", Stock: 5},
		model.Product{ID: 2, Name: "Yoga Mat", Description: "non-slip",
			Price: decimal.RequireFromString("38.50"), Category: "sports", Stock: 10},
	)

	log := logger.NewNop()
	engine := commerce.NewEngine(m, log)

	index := responder.NewIndex()
	products, err := m.Products(context.Background())
	require.NoError(t, err)
	index.Rebuild(products)

	chatSvc := chat.NewService(m, nil, index, m, time.Second, log)

	chatHandler := NewChatHandler(chatSvc, engine, log)
	orderHandler := NewOrderHandler(engine, log)
	productHandler := NewProductHandler(m, log)

	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Route("/chat", func(r chi.Router) {
		r.Post("/message", chatHandler.Message)
		r.Post("/order-verify", chatHandler.VerifyOrder)
		r.Get("/history", chatHandler.History)
		r.Post("/clear-history", chatHandler.ClearHistory)
		r.Post("/init", chatHandler.Init)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", orderHandler.List)
		r.Get("/pending", orderHandler.Pending)
		r.Post("/create", orderHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", orderHandler.Get)
			r.Post("/confirm", orderHandler.Confirm)
			r.Post("/cancel", orderHandler.Cancel)
		})
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", productHandler.List)
		r.Get("/categories", productHandler.Categories)
		r.Get("/favorites", productHandler.Favorites)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", productHandler.Get)
			r.Post("/review", productHandler.Review)
			r.Post("/favorite", productHandler.Favorite)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestChatMessageEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/message",
		map[string]string{"message": "I want to buy headphones"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["response"])
	assert.Equal(t, "order_intent", body["action"])
	assert.Equal(t, true, body["requires_confirmation"])
	assert.Equal(t, true, body["fallback"])
}

func TestChatMessageRejectsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/message",
		map[string]string{"message": "   "})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestOrderVerifyFlow(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	// Phase one: quote.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/order-verify", map[string]interface{}{
		"product_ids": []int64{1},
		"quantities":  []int{2},
		"confirm":     false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending_confirmation", body["action"])
	assert.Contains(t, body["message"], "Would you like to confirm this order?")
	assert.NotNil(t, body["order_summary"])

	// Phase two: confirm.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/chat/order-verify", map[string]interface{}{
		"product_ids": []int64{1},
		"quantities":  []int{2},
		"confirm":     true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "order_created", body["action"])
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "pending", order["status"])
}

func TestOrderVerifyDefaultsQuantity(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/order-verify", map[string]interface{}{
		"product_ids": []int64{1, 2},
		"quantities":  []int{2},
		"confirm":     false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	quantities := body["quantities"].([]interface{})
	require.Len(t, quantities, 2)
	assert.Equal(t, float64(2), quantities[0])
	assert.Equal(t, float64(1), quantities[1])
}

func TestOrderVerifyNoProducts(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/order-verify", map[string]interface{}{
		"product_ids": []int64{},
		"confirm":     true,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no products specified for order", body["error"])
}

func TestOrderVerifyInsufficientStock(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/order-verify", map[string]interface{}{
		"product_ids": []int64{1},
		"quantities":  []int{99},
		"confirm":     false,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, float64(5), body["available"])
}

func TestChatHistoryRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/chat/message", map[string]string{"message": "hello"})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/chat/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := body["history"].([]interface{})
	require.Len(t, history, 1)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/chat/clear-history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Chat history cleared", body["message"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/chat/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["history"])
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/orders/create", map[string]interface{}{
		"items":            []map[string]interface{}{{"product_id": 2, "quantity": 1}},
		"shipping_address": "1 Main St",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["id"].(float64)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["orders"].([]interface{}), 1)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/orders/"+jsonID(id)+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "confirmed", order["status"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/orders/"+jsonID(id)+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order = body["order"].(map[string]interface{})
	assert.Equal(t, "cancelled", order["status"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/orders/"+jsonID(id)+"/cancel", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestOrderForeignAccess(t *testing.T) {
	srv, m := newTestServer(t, "user-2")

	order := &model.Order{UserID: "someone-else", Items: []model.OrderItem{{ProductID: 1, Quantity: 1}}}
	require.NoError(t, m.PlaceOrder(context.Background(), order))

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/orders/"+jsonID(float64(order.ID)), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOrderInvalidID(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductListAndDetail(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/products/?category=electronics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["products"].([]interface{}), 1)
	assert.Len(t, body["categories"].([]interface{}), len(model.Categories))

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/products/?category=automotive", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/products/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	product := body["product"].(map[string]interface{})
	assert.Equal(t, "Wireless Headphones", product["name"])
	assert.Equal(t, false, body["is_favorite"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/products/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductReviewEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/products/1/review",
		map[string]interface{}{"rating": 5, "comment": "great sound"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(5), body["avg_rating"])
	assert.Equal(t, float64(1), body["rating_count"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/products/1/review",
		map[string]interface{}{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductFavoriteEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "user-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/products/2/favorite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "added", body["action"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/products/favorites", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["favorites"].([]interface{}), 1)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/products/2/favorite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "removed", body["action"])
}

func TestChatInitEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "admin-user")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/init", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["products"])
}

func jsonID(id float64) string {
	return strconv.FormatInt(int64(id), 10)
}
