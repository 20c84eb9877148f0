package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// Postgres implements the catalog, stock ledger and order aggregate store
// on top of a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	config.MaxConns = 20

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Ping reports database reachability for readiness checks.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		category TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		avg_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		rating_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_amount NUMERIC(12,2) NOT NULL,
		shipping_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		product_name TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		price NUMERIC(12,2) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS favorites (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS search_history (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		searched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history(user_id, searched_at DESC);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

const productColumns = `id, name, description, price, category, image_url, stock, avg_rating, rating_count, created_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.ImageURL, &p.Stock, &p.AvgRating, &p.RatingCount, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Product returns a product by id.
func (s *Postgres) Product(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &commerce.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Products returns the full catalog ordered by id.
func (s *Postgres) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ListProducts returns the catalog narrowed and ordered by filter.
func (s *Postgres) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE TRUE`
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	switch filter.Sort {
	case "price_low":
		query += " ORDER BY price ASC"
	case "price_high":
		query += " ORDER BY price DESC"
	case "rating":
		query += " ORDER BY avg_rating DESC"
	default:
		query += " ORDER BY name ASC"
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// InsertProduct adds a product to the catalog (used by the seeder).
func (s *Postgres) InsertProduct(ctx context.Context, p *model.Product) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, category, image_url, stock, avg_rating, rating_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.Stock, p.AvgRating, p.RatingCount).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// CountProducts returns the number of products in the catalog.
func (s *Postgres) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// DeleteAllProducts empties the catalog (used by the seeder's replace mode).
func (s *Postgres) DeleteAllProducts(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to delete products: %w", err)
	}
	return nil
}

// PlaceOrder commits the order, its items and the stock decrements in one
// transaction. Product rows are locked FOR UPDATE in ascending id order so
// concurrent placements serialize their check-then-decrement and cannot
// deadlock on multi-item orders.
func (s *Postgres) PlaceOrder(ctx context.Context, order *model.Order) error {
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return &commerce.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, len(order.Items))
	seen := make(map[int64]bool, len(order.Items))
	for _, item := range order.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	type lockedProduct struct {
		name  string
		price decimal.Decimal
		stock int
	}
	locked := make(map[int64]*lockedProduct, len(ids))
	for _, id := range ids {
		var lp lockedProduct
		err := tx.QueryRow(ctx,
			`SELECT name, price, stock FROM products WHERE id = $1 FOR UPDATE`, id).
			Scan(&lp.name, &lp.price, &lp.stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return &commerce.ProductNotFoundError{ProductID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to lock product %d: %w", id, err)
		}
		locked[id] = &lp
	}

	total := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		lp := locked[item.ProductID]
		if item.Quantity > lp.stock {
			return &commerce.InsufficientStockError{
				ProductID: item.ProductID,
				Name:      lp.name,
				Requested: item.Quantity,
				Available: lp.stock,
			}
		}
		lp.stock -= item.Quantity
		item.ProductName = lp.name
		item.Price = lp.price
		total = total.Add(item.Subtotal())
	}
	order.TotalAmount = total

	if order.Status == "" {
		order.Status = model.OrderPending
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, total_amount, shipping_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, order.UserID, order.Status, order.TotalAmount, order.ShippingAddress).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price).
			Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE products SET stock = stock - $1 WHERE id = $2`,
			item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// Order returns an order with its items.
func (s *Postgres) Order(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, status, total_amount, shipping_address, created_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, commerce.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := s.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Postgres) loadItems(ctx context.Context, o *model.Order) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.ProductName, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

// OrdersByUser returns a user's orders, newest first.
func (s *Postgres) OrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.ordersWhere(ctx, `user_id = $1`, userID)
}

// PendingOrders returns a user's orders still in pending status.
func (s *Postgres) PendingOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return s.ordersWhere(ctx, `user_id = $1 AND status = 'pending'`, userID)
}

func (s *Postgres) ordersWhere(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, status, total_amount, shipping_address, created_at
		FROM orders WHERE `+where+` ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount,
			&o.ShippingAddress, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TransitionOrder applies from -> to only if the order is still in from.
func (s *Postgres) TransitionOrder(ctx context.Context, id int64, from, to model.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to transition order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return commerce.ErrNotConfirmable
	}
	return nil
}

// CancelOrder restores the stock recorded on the order's items and marks it
// cancelled, atomically re-checking that it is still cancellable.
func (s *Postgres) CancelOrder(ctx context.Context, id int64) (*model.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status model.OrderStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, commerce.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if !status.Cancellable() {
		return nil, commerce.ErrNotCancellable
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET stock = stock + items.quantity
		FROM (SELECT product_id, quantity FROM order_items WHERE order_id = $1) AS items
		WHERE products.id = items.product_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to restore stock: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status = 'cancelled' WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.Order(ctx, id)
}

// SaveReview creates or replaces the user's review of a product and
// recomputes the product's rating rollup.
func (s *Postgres) SaveReview(ctx context.Context, review *model.Review) error {
	if _, err := s.Product(ctx, review.ProductID); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO reviews (user_id, product_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		RETURNING id, created_at
	`, review.UserID, review.ProductID, review.Rating, review.Comment).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET
			avg_rating = (SELECT AVG(rating)::DOUBLE PRECISION FROM reviews WHERE product_id = $1),
			rating_count = (SELECT COUNT(*) FROM reviews WHERE product_id = $1)
		WHERE id = $1
	`, review.ProductID)
	if err != nil {
		return fmt.Errorf("failed to update rating rollup: %w", err)
	}

	return tx.Commit(ctx)
}

// Reviews returns all reviews of a product, newest first.
func (s *Postgres) Reviews(ctx context.Context, productID int64) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, product_id, rating, comment, created_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UserReview returns the user's review of a product, or nil if there is none.
func (s *Postgres) UserReview(ctx context.Context, userID string, productID int64) (*model.Review, error) {
	var r model.Review
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, product_id, rating, comment, created_at
		FROM reviews WHERE user_id = $1 AND product_id = $2
	`, userID, productID).Scan(&r.ID, &r.UserID, &r.ProductID, &r.Rating, &r.Comment, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &r, nil
}

// ToggleFavorite adds the product to the user's favorites, or removes it if
// already present. It reports whether the product ended up favorited.
func (s *Postgres) ToggleFavorite(ctx context.Context, userID string, productID int64) (bool, error) {
	if _, err := s.Product(ctx, productID); err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO favorites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return true, nil
}

// IsFavorite reports whether the user has favorited the product.
func (s *Postgres) IsFavorite(ctx context.Context, userID string, productID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND product_id = $2)`,
		userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return exists, nil
}

// Favorites returns the user's favorites with product details attached.
func (s *Postgres) Favorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.id, f.user_id, f.product_id, f.added_at, `+prefixedProductColumns("p")+`
		FROM favorites f JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1 ORDER BY f.added_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var out []model.Favorite
	for rows.Next() {
		var f model.Favorite
		var p model.Product
		err := rows.Scan(&f.ID, &f.UserID, &f.ProductID, &f.AddedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
			&p.ImageURL, &p.Stock, &p.AvgRating, &p.RatingCount, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		f.Product = &p
		out = append(out, f)
	}
	return out, rows.Err()
}

func prefixedProductColumns(alias string) string {
	return alias + ".id, " + alias + ".name, " + alias + ".description, " + alias + ".price, " +
		alias + ".category, " + alias + ".image_url, " + alias + ".stock, " +
		alias + ".avg_rating, " + alias + ".rating_count, " + alias + ".created_at"
}

// RecordSearch appends a query to the user's search history.
func (s *Postgres) RecordSearch(ctx context.Context, userID, query string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_history (user_id, query) VALUES ($1, $2)`, userID, query)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// SearchHistory returns the user's most recent searches, newest first.
func (s *Postgres) SearchHistory(ctx context.Context, userID string, limit int) ([]model.SearchRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, query, searched_at
		FROM search_history WHERE user_id = $1
		ORDER BY searched_at DESC, id DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer rows.Close()

	var out []model.SearchRecord
	for rows.Next() {
		var r model.SearchRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Query, &r.SearchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
