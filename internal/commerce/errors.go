package commerce

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOrder is returned when an order request has no items.
	ErrEmptyOrder = errors.New("order must contain at least one item")

	// ErrOrderNotFound is returned when an order id does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrUnauthorized is returned when a user acts on another user's order.
	ErrUnauthorized = errors.New("order belongs to another user")

	// ErrNotConfirmable is returned when confirming an order that is not pending.
	ErrNotConfirmable = errors.New("order cannot be confirmed")

	// ErrNotCancellable is returned when cancelling an order that is neither
	// pending nor confirmed.
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// ProductNotFoundError reports a requested product id that is not in the catalog.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError reports a line with a quantity below 1.
type InvalidQuantityError struct {
	ProductID int64
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %d", e.Quantity, e.ProductID)
}

// InsufficientStockError reports a line requesting more units than are
// available. Available carries the live count so the caller can retry.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}
