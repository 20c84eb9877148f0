// Package commerce implements the conversational order pipeline: quote
// building, the quote -> committed order confirmation step, and order
// lifecycle transitions.
package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// Catalog is the read-only product lookup the quote builder prices against.
type Catalog interface {
	Product(ctx context.Context, id int64) (*model.Product, error)
	Products(ctx context.Context) ([]model.Product, error)
}

// QuoteLine is one priced line of a quote.
type QuoteLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Quote is an unpersisted, priced preview of a prospective order. It is not
// a reservation: availability is re-checked at confirmation time.
type Quote struct {
	Lines []QuoteLine     `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Summary renders the quote as a human-readable order summary.
func (q *Quote) Summary() string {
	var b strings.Builder
	for _, line := range q.Lines {
		fmt.Fprintf(&b, "• %s x%d = $%s\n", line.Name, line.Quantity, line.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: $%s", q.Total.StringFixed(2))
	return b.String()
}

// BuildQuote prices the requested lines against the current catalog. It
// validates existence, quantity and advisory stock availability, and has no
// side effects. The total is the sum of per-line price * quantity.
func BuildQuote(ctx context.Context, catalog Catalog, lines []model.OrderLine) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	quote := &Quote{Total: decimal.Zero}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}

		product, err := catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if line.Quantity > product.Stock {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: line.Quantity,
				Available: product.Stock,
			}
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		quote.Lines = append(quote.Lines, QuoteLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
		})
		quote.Total = quote.Total.Add(subtotal)
	}

	return quote, nil
}
