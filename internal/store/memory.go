// Package store provides the persistence layer: a Postgres implementation
// for production and an in-memory implementation for tests and local
// development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// Memory is a mutex-guarded in-memory store. All commerce.Store methods are
// serialized by a single lock, which gives PlaceOrder and CancelOrder their
// required atomicity for free.
type Memory struct {
	mu sync.Mutex

	products  map[int64]*model.Product
	orders    map[int64]*model.Order
	reviews   map[int64]*model.Review
	favorites map[int64]*model.Favorite
	searches  []model.SearchRecord
	turns     map[string][]model.ConversationTurn

	nextOrderID  int64
	nextItemID   int64
	nextReviewID int64
	nextFavID    int64
	nextSearchID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		products:  make(map[int64]*model.Product),
		orders:    make(map[int64]*model.Order),
		reviews:   make(map[int64]*model.Review),
		favorites: make(map[int64]*model.Favorite),
		turns:     make(map[string][]model.ConversationTurn),
	}
}

// SeedProducts inserts products, keeping the ids they carry.
func (m *Memory) SeedProducts(products ...model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range products {
		cp := p
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		m.products[cp.ID] = &cp
	}
}

// Product returns a product by id.
func (m *Memory) Product(ctx context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, &commerce.ProductNotFoundError{ProductID: id}
	}
	cp := *p
	return &cp, nil
}

// Products returns the full catalog ordered by id.
func (m *Memory) Products(ctx context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListProducts returns the catalog narrowed and ordered by filter.
func (m *Memory) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	products, err := m.Products(ctx)
	if err != nil {
		return nil, err
	}

	out := products[:0]
	search := strings.ToLower(filter.Search)
	for _, p := range products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}

	switch filter.Sort {
	case "price_low":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case "price_high":
		sort.SliceStable(out, func(i, j int) bool { return out[j].Price.LessThan(out[i].Price) })
	case "rating":
		sort.SliceStable(out, func(i, j int) bool { return out[i].AvgRating > out[j].AvgRating })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}

	return out, nil
}

// PlaceOrder validates every line against live stock and commits the order,
// its items and the stock decrements together, or not at all.
func (m *Memory) PlaceOrder(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate all lines before touching anything. Remaining tracks stock
	// consumed by earlier lines of the same batch.
	remaining := make(map[int64]int)
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return &commerce.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		product, ok := m.products[item.ProductID]
		if !ok {
			return &commerce.ProductNotFoundError{ProductID: item.ProductID}
		}
		if _, seen := remaining[item.ProductID]; !seen {
			remaining[item.ProductID] = product.Stock
		}
		if item.Quantity > remaining[item.ProductID] {
			return &commerce.InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: item.Quantity,
				Available: remaining[item.ProductID],
			}
		}
		remaining[item.ProductID] -= item.Quantity
	}

	m.nextOrderID++
	order.ID = m.nextOrderID
	if order.Status == "" {
		order.Status = model.OrderPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	order.TotalAmount = decimal.Zero
	for i := range order.Items {
		product := m.products[order.Items[i].ProductID]
		m.nextItemID++
		order.Items[i].ID = m.nextItemID
		order.Items[i].OrderID = order.ID
		order.Items[i].ProductName = product.Name
		order.Items[i].Price = product.Price
		order.TotalAmount = order.TotalAmount.Add(order.Items[i].Subtotal())
		product.Stock -= order.Items[i].Quantity
	}

	stored := cloneOrder(order)
	m.orders[order.ID] = stored
	return nil
}

// Order returns an order with its items.
func (m *Memory) Order(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, commerce.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// OrdersByUser returns a user's orders, newest first.
func (m *Memory) OrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return m.ordersWhere(func(o *model.Order) bool { return o.UserID == userID })
}

// PendingOrders returns a user's orders still in pending status.
func (m *Memory) PendingOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return m.ordersWhere(func(o *model.Order) bool {
		return o.UserID == userID && o.Status == model.OrderPending
	})
}

func (m *Memory) ordersWhere(match func(*model.Order) bool) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Order
	for _, o := range m.orders {
		if match(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// TransitionOrder applies from -> to only if the order is still in from.
func (m *Memory) TransitionOrder(ctx context.Context, id int64, from, to model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return commerce.ErrOrderNotFound
	}
	if order.Status != from {
		return commerce.ErrNotConfirmable
	}
	order.Status = to
	return nil
}

// CancelOrder restores the stock recorded on the order's items and marks it
// cancelled, atomically re-checking that it is still cancellable.
func (m *Memory) CancelOrder(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, commerce.ErrOrderNotFound
	}
	if !order.Status.Cancellable() {
		return nil, commerce.ErrNotCancellable
	}

	for _, item := range order.Items {
		if product, ok := m.products[item.ProductID]; ok {
			product.Stock += item.Quantity
		}
	}
	order.Status = model.OrderCancelled
	return cloneOrder(order), nil
}

// SaveReview creates or replaces the user's review of a product and
// recomputes the product's rating rollup.
func (m *Memory) SaveReview(ctx context.Context, review *model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[review.ProductID]
	if !ok {
		return &commerce.ProductNotFoundError{ProductID: review.ProductID}
	}

	var existing *model.Review
	for _, r := range m.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			existing = r
			break
		}
	}

	if existing != nil {
		existing.Rating = review.Rating
		existing.Comment = review.Comment
		review.ID = existing.ID
		review.CreatedAt = existing.CreatedAt
	} else {
		m.nextReviewID++
		review.ID = m.nextReviewID
		if review.CreatedAt.IsZero() {
			review.CreatedAt = time.Now()
		}
		cp := *review
		m.reviews[review.ID] = &cp
	}

	// Rating rollup
	var sum, count int
	for _, r := range m.reviews {
		if r.ProductID == review.ProductID {
			sum += r.Rating
			count++
		}
	}
	product.RatingCount = count
	if count > 0 {
		product.AvgRating = float64(sum) / float64(count)
	} else {
		product.AvgRating = 0
	}

	return nil
}

// Reviews returns all reviews of a product, newest first.
func (m *Memory) Reviews(ctx context.Context, productID int64) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Review
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// UserReview returns the user's review of a product, or nil if there is none.
func (m *Memory) UserReview(ctx context.Context, userID string, productID int64) (*model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reviews {
		if r.UserID == userID && r.ProductID == productID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// ToggleFavorite adds the product to the user's favorites, or removes it if
// already present. It reports whether the product ended up favorited.
func (m *Memory) ToggleFavorite(ctx context.Context, userID string, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[productID]; !ok {
		return false, &commerce.ProductNotFoundError{ProductID: productID}
	}

	for id, f := range m.favorites {
		if f.UserID == userID && f.ProductID == productID {
			delete(m.favorites, id)
			return false, nil
		}
	}

	m.nextFavID++
	m.favorites[m.nextFavID] = &model.Favorite{
		ID:        m.nextFavID,
		UserID:    userID,
		ProductID: productID,
		AddedAt:   time.Now(),
	}
	return true, nil
}

// IsFavorite reports whether the user has favorited the product.
func (m *Memory) IsFavorite(ctx context.Context, userID string, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.favorites {
		if f.UserID == userID && f.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// Favorites returns the user's favorites with product details attached.
func (m *Memory) Favorites(ctx context.Context, userID string) ([]model.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Favorite
	for _, f := range m.favorites {
		if f.UserID != userID {
			continue
		}
		cp := *f
		if product, ok := m.products[f.ProductID]; ok {
			pcp := *product
			cp.Product = &pcp
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// RecordSearch appends a query to the user's search history.
func (m *Memory) RecordSearch(ctx context.Context, userID, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSearchID++
	m.searches = append(m.searches, model.SearchRecord{
		ID:         m.nextSearchID,
		UserID:     userID,
		Query:      query,
		SearchedAt: time.Now(),
	})
	return nil
}

// SearchHistory returns the user's most recent searches, newest first.
func (m *Memory) SearchHistory(ctx context.Context, userID string, limit int) ([]model.SearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.SearchRecord
	for i := len(m.searches) - 1; i >= 0 && len(out) < limit; i-- {
		if m.searches[i].UserID == userID {
			out = append(out, m.searches[i])
		}
	}
	return out, nil
}

// AppendTurn appends a conversation turn to the user's persisted log.
func (m *Memory) AppendTurn(ctx context.Context, turn *model.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.Must(uuid.NewV7()).String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	m.turns[turn.UserID] = append(m.turns[turn.UserID], *turn)
	return nil
}

// Turns returns up to limit of the user's most recent turns, oldest first.
func (m *Memory) Turns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.turns[userID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]model.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// PurgeTurns deletes the user's persisted turn log.
func (m *Memory) PurgeTurns(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.turns, userID)
	return nil
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = make([]model.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
