// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shopmate-ai/storefront-backend/internal/chat"
	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/middleware"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
)

// ChatHandler handles the conversational assistant endpoints.
type ChatHandler struct {
	chatService *chat.Service
	engine      *commerce.Engine
	logger      *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, engine *commerce.Engine, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: svc,
		engine:      engine,
		logger:      log,
	}
}

// Message handles POST /api/v1/chat/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.ChatMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if err := middleware.ValidateMessageContent(message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.chatService.Message(ctx, userID, message)
	if err != nil {
		h.logger.Error("failed to process chat message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// VerifyOrder handles POST /api/v1/chat/order-verify, the two-phase
// quote/confirm flow driven by the assistant.
func (h *ChatHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.OrderVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.ProductIDs) == 0 {
		writeError(w, http.StatusBadRequest, "no products specified for order")
		return
	}

	lines := make([]model.OrderLine, len(req.ProductIDs))
	for i, id := range req.ProductIDs {
		qty := 1
		if i < len(req.Quantities) {
			qty = req.Quantities[i]
		}
		lines[i] = model.OrderLine{ProductID: id, Quantity: qty}
	}

	result, err := h.engine.Verify(ctx, userID, lines, req.Confirm)
	if err != nil {
		writeCommerceError(w, err)
		return
	}

	if result.Action == commerce.ActionPendingConfirmation {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"action":        result.Action,
			"message":       result.Message,
			"order_summary": result.Quote.Lines,
			"total":         result.Quote.Total,
			"product_ids":   result.ProductIDs,
			"quantities":    result.Quantities,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"action":  result.Action,
		"message": result.Message,
		"order":   result.Order,
	})
}

// History handles GET /api/v1/chat/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	history, err := h.chatService.History(ctx, userID)
	if err != nil {
		h.logger.Error("failed to get chat history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get chat history")
		return
	}
	if history == nil {
		history = []model.ConversationTurn{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
	})
}

// ClearHistory handles POST /api/v1/chat/clear-history
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.chatService.ClearHistory(ctx, userID); err != nil {
		h.logger.Error("failed to clear chat history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear chat history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Chat history cleared",
	})
}

// Init handles POST /api/v1/chat/init, rebuilding the responder's product
// index from the full catalog snapshot.
func (h *ChatHandler) Init(w http.ResponseWriter, r *http.Request) {
	count, err := h.chatService.RebuildIndex(r.Context())
	if err != nil {
		h.logger.Error("failed to rebuild product index", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to rebuild product index")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "product index rebuilt",
		"products": count,
	})
}
