package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/middleware"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
)

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	engine *commerce.Engine
	logger *logger.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(engine *commerce.Engine, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		engine: engine,
		logger: log,
	}
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	orders, err := h.engine.Orders(ctx, userID)
	if err != nil {
		writeCommerceError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
	})
}

// Pending handles GET /api/v1/orders/pending
func (h *OrderHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	orders, err := h.engine.PendingOrders(ctx, userID)
	if err != nil {
		writeCommerceError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
	})
}

// Get handles GET /api/v1/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.engine.Order(ctx, userID, id)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Create handles POST /api/v1/orders/create
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	address := strings.TrimSpace(req.ShippingAddress)
	if err := middleware.ValidateShippingAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.engine.Create(ctx, userID, req.Items, address)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// Confirm handles POST /api/v1/orders/{id}/confirm
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.engine.Confirm(ctx, userID, id)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Order confirmed",
		"order":   order,
	})
}

// Cancel handles POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	id, err := orderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.engine.Cancel(ctx, userID, id)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Order cancelled",
		"order":   order,
	})
}
