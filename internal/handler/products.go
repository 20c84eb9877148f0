package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shopmate-ai/storefront-backend/internal/middleware"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
)

const searchHistoryLimit = 20

// CatalogStore is the catalog surface the product handlers need. Both the
// postgres and in-memory stores satisfy it.
type CatalogStore interface {
	Product(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	SaveReview(ctx context.Context, review *model.Review) error
	Reviews(ctx context.Context, productID int64) ([]model.Review, error)
	UserReview(ctx context.Context, userID string, productID int64) (*model.Review, error)
	ToggleFavorite(ctx context.Context, userID string, productID int64) (bool, error)
	IsFavorite(ctx context.Context, userID string, productID int64) (bool, error)
	Favorites(ctx context.Context, userID string) ([]model.Favorite, error)
	RecordSearch(ctx context.Context, userID, query string) error
	SearchHistory(ctx context.Context, userID string, limit int) ([]model.SearchRecord, error)
}

// ProductHandler handles catalog browsing, reviews and favorites.
type ProductHandler struct {
	store  CatalogStore
	logger *logger.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(store CatalogStore, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		store:  store,
		logger: log,
	}
}

func productID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := model.ProductFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Sort:   r.URL.Query().Get("sort"),
	}
	if category := r.URL.Query().Get("category"); category != "" {
		if !model.ValidCategory(category) {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = category
	}

	if filter.Search != "" {
		if userID := middleware.GetUserID(ctx); userID != "" {
			if err := h.store.RecordSearch(ctx, userID, filter.Search); err != nil {
				h.logger.Warn("failed to record search", zap.Error(err))
			}
		}
	}

	products, err := h.store.ListProducts(ctx, filter)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products":   products,
		"categories": model.Categories,
	})
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.store.Product(ctx, id)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	reviews, err := h.store.Reviews(ctx, id)
	if err != nil {
		h.logger.Error("failed to load reviews", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}

	resp := map[string]interface{}{
		"product": product,
		"reviews": reviews,
	}

	if userID := middleware.GetUserID(ctx); userID != "" {
		fav, err := h.store.IsFavorite(ctx, userID, id)
		if err == nil {
			resp["is_favorite"] = fav
		}
		if userReview, err := h.store.UserReview(ctx, userID, id); err == nil && userReview != nil {
			resp["user_review"] = userReview
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Review handles POST /api/v1/products/{id}/review
func (h *ProductHandler) Review(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req model.ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateRating(req.Rating); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	review := &model.Review{
		UserID:    userID,
		ProductID: id,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := h.store.SaveReview(ctx, review); err != nil {
		writeCommerceError(w, err)
		return
	}

	// Re-read the product so the response carries the updated rating rollup.
	product, err := h.store.Product(ctx, id)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":      "Review submitted",
		"review":       review,
		"avg_rating":   product.AvgRating,
		"rating_count": product.RatingCount,
	})
}

// Favorite handles POST /api/v1/products/{id}/favorite
func (h *ProductHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	added, err := h.store.ToggleFavorite(ctx, userID, id)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	action := "removed"
	if added {
		action = "added"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"action": action,
	})
}

// Favorites handles GET /api/v1/products/favorites
func (h *ProductHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	favorites, err := h.store.Favorites(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list favorites", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}
	if favorites == nil {
		favorites = []model.Favorite{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"favorites": favorites,
	})
}

// Categories handles GET /api/v1/products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": model.Categories,
	})
}

// SearchHistory handles GET /api/v1/products/search-history
func (h *ProductHandler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	history, err := h.store.SearchHistory(ctx, userID, searchHistoryLimit)
	if err != nil {
		h.logger.Error("failed to load search history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load search history")
		return
	}
	if history == nil {
		history = []model.SearchRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"searches": history,
	})
}
