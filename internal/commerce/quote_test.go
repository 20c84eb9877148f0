package commerce_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/internal/store"
)

func catalogWith(products ...model.Product) *store.Memory {
	m := store.NewMemory()
	m.SeedProducts(products...)
	return m
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuildQuoteTotals(t *testing.T) {
	catalog := catalogWith(
		model.Product{ID: 1, Name: "Yoga Mat", Price: price("38.50"), Category: "sports", Stock: 10},
		model.Product{ID: 2, Name: "Coffee Beans", Price: price("18.75"), Category: "grocery", Stock: 10},
	)

	quote, err := commerce.BuildQuote(context.Background(), catalog, []model.OrderLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, quote.Lines, 2)
	assert.Equal(t, "Yoga Mat", quote.Lines[0].Name)
	assert.True(t, quote.Lines[0].Subtotal.Equal(price("77.00")), "subtotal = %s", quote.Lines[0].Subtotal)
	assert.True(t, quote.Lines[1].Subtotal.Equal(price("18.75")))
	assert.True(t, quote.Total.Equal(price("95.75")), "total = %s", quote.Total)
}

func TestBuildQuoteLineOrderPreserved(t *testing.T) {
	catalog := catalogWith(
		model.Product{ID: 1, Name: "A", Price: price("1.00"), Stock: 5},
		model.Product{ID: 2, Name: "B", Price: price("2.00"), Stock: 5},
	)

	forward, err := commerce.BuildQuote(context.Background(), catalog, []model.OrderLine{
		{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	reversed, err := commerce.BuildQuote(context.Background(), catalog, []model.OrderLine{
		{ProductID: 2, Quantity: 1}, {ProductID: 1, Quantity: 1},
	})
	require.NoError(t, err)

	// Lines keep request order while the total is order-independent.
	assert.Equal(t, int64(1), forward.Lines[0].ProductID)
	assert.Equal(t, int64(2), reversed.Lines[0].ProductID)
	assert.True(t, forward.Total.Equal(reversed.Total))
}

func TestBuildQuoteEmptyOrder(t *testing.T) {
	_, err := commerce.BuildQuote(context.Background(), catalogWith(), nil)
	assert.ErrorIs(t, err, commerce.ErrEmptyOrder)
}

func TestBuildQuoteUnknownProduct(t *testing.T) {
	_, err := commerce.BuildQuote(context.Background(), catalogWith(), []model.OrderLine{
		{ProductID: 42, Quantity: 1},
	})

	var notFound *commerce.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(42), notFound.ProductID)
}

func TestBuildQuoteInvalidQuantity(t *testing.T) {
	catalog := catalogWith(model.Product{ID: 1, Name: "A", Price: price("1.00"), Stock: 5})

	for _, qty := range []int{0, -3} {
		_, err := commerce.BuildQuote(context.Background(), catalog, []model.OrderLine{
			{ProductID: 1, Quantity: qty},
		})

		var invalid *commerce.InvalidQuantityError
		require.ErrorAs(t, err, &invalid, "quantity %d", qty)
		assert.Equal(t, qty, invalid.Quantity)
	}
}

func TestBuildQuoteInsufficientStock(t *testing.T) {
	catalog := catalogWith(model.Product{ID: 1, Name: "Dumbbells", Price: price("179.00"), Stock: 2})

	_, err := commerce.BuildQuote(context.Background(), catalog, []model.OrderLine{
		{ProductID: 1, Quantity: 3},
	})

	var stockErr *commerce.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Contains(t, stockErr.Error(), "Dumbbells")
}

func TestQuoteSummaryFormat(t *testing.T) {
	catalog := catalogWith(model.Product{ID: 1, Name: "Yoga Mat", Price: price("10.00"), Stock: 10})

	quote, err := commerce.BuildQuote(context.Background(), catalog, []model.OrderLine{
		{ProductID: 1, Quantity: 3},
	})
	require.NoError(t, err)

	summary := quote.Summary()
	assert.Contains(t, summary, "Yoga Mat x3 = $30.00")
	assert.Contains(t, summary, "Total: $30.00")
}
