package commerce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
	"github.com/shopmate-ai/storefront-backend/pkg/metrics"
)

// Store is the persistence capability the engine commits through.
//
// PlaceOrder must be atomic: it re-validates every item against live stock,
// snapshots product name and price into the items, computes the order total,
// inserts the order with its items and decrements stock — all inside one
// transaction. Concurrent placements for the same product must serialize the
// check-then-decrement step. On any line failing validation nothing is
// written. Implementations lock products in ascending product-id order.
//
// CancelOrder must atomically re-check that the order is still cancellable,
// restore the stock recorded on its items and mark it cancelled.
//
// TransitionOrder applies from -> to only if the order is still in from,
// returning ErrNotConfirmable otherwise.
type Store interface {
	Catalog
	PlaceOrder(ctx context.Context, order *model.Order) error
	Order(ctx context.Context, id int64) (*model.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	PendingOrders(ctx context.Context, userID string) ([]model.Order, error)
	TransitionOrder(ctx context.Context, id int64, from, to model.OrderStatus) error
	CancelOrder(ctx context.Context, id int64) (*model.Order, error)
}

// Engine turns validated quotes into committed orders and drives order
// lifecycle transitions.
type Engine struct {
	store  Store
	logger *logger.Logger
}

// NewEngine creates a new order engine.
func NewEngine(store Store, log *logger.Logger) *Engine {
	return &Engine{store: store, logger: log}
}

// Verify actions for VerifyResult.
const (
	ActionPendingConfirmation = "pending_confirmation"
	ActionOrderCreated        = "order_created"
)

// VerifyResult is the outcome of the two-phase chat order flow.
type VerifyResult struct {
	Action     string       `json:"action"`
	Message    string       `json:"message"`
	Quote      *Quote       `json:"-"`
	Order      *model.Order `json:"order,omitempty"`
	ProductIDs []int64      `json:"product_ids,omitempty"`
	Quantities []int        `json:"quantities,omitempty"`
}

// Verify implements the quote -> confirm protocol. With confirm false it
// returns a priced summary and is free of side effects; repeated calls are
// idempotent. With confirm true it re-validates every line against live
// stock and commits order, items and stock decrements atomically.
func (e *Engine) Verify(ctx context.Context, userID string, lines []model.OrderLine, confirm bool) (*VerifyResult, error) {
	if !confirm {
		quote, err := BuildQuote(ctx, e.store, lines)
		if err != nil {
			return nil, err
		}

		productIDs := make([]int64, len(lines))
		quantities := make([]int, len(lines))
		for i, line := range lines {
			productIDs[i] = line.ProductID
			quantities[i] = line.Quantity
		}

		return &VerifyResult{
			Action: ActionPendingConfirmation,
			Message: fmt.Sprintf("Here's your order summary:\n\n%s\n\nWould you like to confirm this order?",
				quote.Summary()),
			Quote:      quote,
			ProductIDs: productIDs,
			Quantities: quantities,
		}, nil
	}

	order, err := e.place(ctx, userID, lines, "", "chat")
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Action: ActionOrderCreated,
		Message: fmt.Sprintf("Your order #%d has been placed successfully!\n\nTotal: $%s\nStatus: Pending\n\nThank you for shopping with us!",
			order.ID, order.TotalAmount.StringFixed(2)),
		Order: order,
	}, nil
}

// Create places an order directly, outside the chat flow.
func (e *Engine) Create(ctx context.Context, userID string, lines []model.OrderLine, shippingAddress string) (*model.Order, error) {
	return e.place(ctx, userID, lines, shippingAddress, "direct")
}

func (e *Engine) place(ctx context.Context, userID string, lines []model.OrderLine, shippingAddress, source string) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	order := &model.Order{
		UserID:          userID,
		Status:          model.OrderPending,
		ShippingAddress: shippingAddress,
		CreatedAt:       time.Now(),
	}
	for _, line := range lines {
		order.Items = append(order.Items, model.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	if err := e.store.PlaceOrder(ctx, order); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			metrics.StockConflictsTotal.Inc()
		}
		return nil, err
	}

	metrics.OrdersPlacedTotal.WithLabelValues(source).Inc()
	e.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("source", source),
	)

	return order, nil
}

// Order returns a single order, enforcing ownership.
func (e *Engine) Order(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	order, err := e.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrUnauthorized
	}
	return order, nil
}

// Orders returns all orders for a user, newest first.
func (e *Engine) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	return e.store.OrdersByUser(ctx, userID)
}

// PendingOrders returns the user's orders still awaiting confirmation.
func (e *Engine) PendingOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return e.store.PendingOrders(ctx, userID)
}

// Confirm moves a pending order to confirmed. The transition is guarded so
// two racing confirmations cannot both succeed.
func (e *Engine) Confirm(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	order, err := e.Order(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPending {
		return nil, ErrNotConfirmable
	}

	if err := e.store.TransitionOrder(ctx, orderID, model.OrderPending, model.OrderConfirmed); err != nil {
		return nil, err
	}

	e.logger.Info("order confirmed", zap.Int64("order_id", orderID), zap.String("user_id", userID))
	return e.store.Order(ctx, orderID)
}

// Cancel cancels a pending or confirmed order and restores the stock
// recorded on its items.
func (e *Engine) Cancel(ctx context.Context, userID string, orderID int64) (*model.Order, error) {
	order, err := e.Order(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, ErrNotCancellable
	}

	cancelled, err := e.store.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	metrics.OrdersCancelledTotal.Inc()
	e.logger.Info("order cancelled", zap.Int64("order_id", orderID), zap.String("user_id", userID))
	return cancelled, nil
}
