// Package model defines data structures for the storefront backend.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Categories is the fixed set of product categories the store sells.
var Categories = []string{"electronics", "fashion", "home", "beauty", "books", "sports", "toys", "grocery"}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// Product represents a catalog item. Stock is only ever mutated by the
// store's order paths (place, cancel).
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url,omitempty"`
	Stock       int             `json:"stock"`
	AvgRating   float64         `json:"avg_rating"`
	RatingCount int             `json:"rating_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Review is a user's rating of a product. One review per user per product;
// submitting again replaces the previous one.
type Review struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite links a user to a bookmarked product.
type Favorite struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// SearchRecord is one entry in a user's product search history.
type SearchRecord struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searched_at"`
}

// ProductFilter narrows and orders a catalog listing.
type ProductFilter struct {
	Category string
	Search   string
	Sort     string // name, price_low, price_high, rating
}

// ReviewRequest is the request to review a product.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}
