package responder

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// Index holds an in-memory snapshot of the catalog used to ground generative
// replies. It is rebuilt from the full catalog via the bootstrap endpoint
// and read on every chat message.
type Index struct {
	mu       sync.RWMutex
	products []model.Product
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Rebuild replaces the snapshot with the given catalog.
func (ix *Index) Rebuild(products []model.Product) {
	cp := make([]model.Product, len(products))
	copy(cp, products)

	ix.mu.Lock()
	ix.products = cp
	ix.mu.Unlock()
}

// Len returns the number of indexed products.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.products)
}

// Search returns up to k products ranked by keyword overlap with the query.
// Name matches weigh more than category matches, which weigh more than
// description matches. Products with no overlap are omitted.
func (ix *Index) Search(query string, k int) []model.Product {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		product model.Product
		score   int
	}
	var matches []scored

	for _, p := range ix.products {
		name := strings.ToLower(p.Name)
		desc := strings.ToLower(p.Description)
		score := 0
		for _, term := range terms {
			switch {
			case strings.Contains(name, term):
				score += 3
			case term == p.Category:
				score += 2
			case strings.Contains(desc, term):
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{product: p, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].product.ID < matches[j].product.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	out := make([]model.Product, len(matches))
	for i, m := range matches {
		out[i] = m.product
	}
	return out
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
