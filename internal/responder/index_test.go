package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

func testCatalog() []model.Product {
	return []model.Product{
		{ID: 1, Name: "Wireless Headphones", Description: "noise cancelling over-ear", Category: "electronics"},
		{ID: 2, Name: "Bluetooth Speaker", Description: "portable wireless speaker", Category: "electronics"},
		{ID: 3, Name: "Yoga Mat", Description: "non-slip exercise mat", Category: "sports"},
		{ID: 4, Name: "Coffee Beans", Description: "single-origin medium roast", Category: "grocery"},
	}
}

func TestIndexSearchRanksNameAboveDescription(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild(testCatalog())

	// "wireless" appears in product 1's name and product 2's description.
	results := ix.Search("wireless", 5)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].ID)
	assert.Equal(t, int64(2), results[1].ID)
}

func TestIndexSearchCategoryTerm(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild(testCatalog())

	results := ix.Search("electronics", 5)
	require.Len(t, results, 2)
}

func TestIndexSearchLimit(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild(testCatalog())

	results := ix.Search("wireless speaker headphones", 1)
	assert.Len(t, results, 1)
}

func TestIndexSearchNoMatch(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild(testCatalog())

	assert.Empty(t, ix.Search("submarine", 5))
	assert.Empty(t, ix.Search("", 5))
	assert.Empty(t, ix.Search("a an of", 5), "short tokens are dropped")
}

func TestIndexRebuildReplacesSnapshot(t *testing.T) {
	ix := NewIndex()
	ix.Rebuild(testCatalog())
	require.Equal(t, 4, ix.Len())

	ix.Rebuild([]model.Product{{ID: 9, Name: "Desk Lamp", Category: "home"}})
	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Search("headphones", 5))

	results := ix.Search("lamp", 5)
	require.Len(t, results, 1)
	assert.Equal(t, int64(9), results[0].ID)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"wireless", "headphones"}, tokenize("Wireless, Headphones!"))
	assert.Empty(t, tokenize("a of in"))
}
