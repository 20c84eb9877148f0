// Package main seeds the product catalog from a JSON file.
//
// Usage: seed [-file data/products.json] [-force]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopmate-ai/storefront-backend/internal/config"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/internal/store"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
)

type seedProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Stock       *int            `json:"stock"`
	AvgRating   *float64        `json:"avg_rating"`
	RatingCount int             `json:"rating_count"`
}

func main() {
	file := flag.String("file", "data/products.json", "path to the products JSON file")
	force := flag.Bool("force", false, "delete existing products before seeding")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), cfg, log, *file, *force); err != nil {
		log.Error("seeding failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, file string, force bool) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read products file: %w", err)
	}

	var seeds []seedProduct
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return fmt.Errorf("failed to parse products file: %w", err)
	}

	db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	existing, err := db.CountProducts(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		if !force {
			log.Info("catalog already seeded, use -force to replace",
				zap.Int("existing", existing))
			return nil
		}
		log.Info("deleting existing products", zap.Int("existing", existing))
		if err := db.DeleteAllProducts(ctx); err != nil {
			return err
		}
	}

	byCategory := make(map[string]int)
	for _, seed := range seeds {
		if !model.ValidCategory(seed.Category) {
			return fmt.Errorf("product %q has unknown category %q", seed.Name, seed.Category)
		}

		p := model.Product{
			Name:        seed.Name,
			Description: seed.Description,
			Price:       seed.Price,
			Category:    seed.Category,
			ImageURL:    seed.ImageURL,
			Stock:       100,
			AvgRating:   4.0,
			RatingCount: seed.RatingCount,
		}
		if seed.Stock != nil {
			p.Stock = *seed.Stock
		}
		if seed.AvgRating != nil {
			p.AvgRating = *seed.AvgRating
		}

		if err := db.InsertProduct(ctx, &p); err != nil {
			return err
		}
		byCategory[p.Category]++
	}

	log.Info("catalog seeded", zap.Int("products", len(seeds)))
	for _, cat := range model.Categories {
		if n := byCategory[cat]; n > 0 {
			log.Info("category seeded", zap.String("category", cat), zap.Int("products", n))
		}
	}
	return nil
}
