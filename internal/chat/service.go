package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopmate-ai/storefront-backend/internal/commerce"
	"github.com/shopmate-ai/storefront-backend/internal/model"
	"github.com/shopmate-ai/storefront-backend/internal/responder"
	"github.com/shopmate-ai/storefront-backend/pkg/logger"
	"github.com/shopmate-ai/storefront-backend/pkg/metrics"
)

const (
	// historyLimit caps how many persisted turns the history endpoint returns.
	historyLimit = 50

	// contextWindow caps how many prior turns condition the responder.
	contextWindow = 20

	// retrievalK is how many catalog products ground a generative reply.
	retrievalK = 5
)

// TurnLog persists conversation turns across restarts.
type TurnLog interface {
	AppendTurn(ctx context.Context, turn *model.ConversationTurn) error
	Turns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error)
	PurgeTurns(ctx context.Context, userID string) error
}

// Service handles chat messages, history and the product index.
type Service struct {
	catalog    commerce.Catalog
	generative responder.Responder // nil when no provider is configured
	fallback   responder.Responder
	index      *responder.Index
	contexts   *ContextStore
	turnLog    TurnLog
	timeout    time.Duration
	logger     *logger.Logger
}

// NewService creates a chat service. generative may be nil, in which case
// every reply comes from the fallback responder.
func NewService(
	catalog commerce.Catalog,
	generative responder.Responder,
	index *responder.Index,
	turnLog TurnLog,
	timeout time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		catalog:    catalog,
		generative: generative,
		fallback:   responder.NewFallback(),
		index:      index,
		contexts:   NewContextStore(),
		turnLog:    turnLog,
		timeout:    timeout,
		logger:     log,
	}
}

// Message processes a chat message: retrieves product context, generates a
// reply (degrading silently to the fallback), annotates order intent, and
// records the turn in both the in-memory context and the persisted log.
func (s *Service) Message(ctx context.Context, userID, message string) (*model.ChatReply, error) {
	userCtx := s.contexts.Get(userID)
	history := userCtx.Turns(contextWindow)
	products := s.index.Search(message, retrievalK)

	text, usedFallback := s.respond(ctx, &responder.Request{
		Message:  message,
		History:  history,
		Products: products,
	})

	reply := &model.ChatReply{
		Response: text,
		Sources:  []model.ProductRef{},
		Fallback: usedFallback,
	}
	if !usedFallback {
		for _, p := range products {
			reply.Sources = append(reply.Sources, model.ProductRef{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
			})
		}
	}

	intent := "none"
	if DetectOrderIntent(message) {
		reply.Action = "order_intent"
		reply.RequiresConfirmation = true
		intent = "order"
	}
	metrics.ChatMessagesTotal.WithLabelValues(intent).Inc()

	turn := &model.ConversationTurn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Message:   message,
		Response:  text,
		CreatedAt: time.Now(),
	}
	userCtx.Append(*turn)
	if err := s.turnLog.AppendTurn(ctx, turn); err != nil {
		// The reply already happened; losing one log entry is not worth a 500.
		metrics.ChatTurnLogErrors.Inc()
		s.logger.Warn("failed to persist conversation turn",
			zap.String("user_id", userID), zap.Error(err))
	}

	return reply, nil
}

// respond runs the generative variant under a bounded timeout and degrades
// to the fallback on any failure. Generative errors never reach the caller.
func (s *Service) respond(ctx context.Context, req *responder.Request) (string, bool) {
	if s.generative == nil {
		text, _ := s.fallback.Respond(ctx, req)
		metrics.ResponderFallbacksTotal.WithLabelValues("disabled").Inc()
		return text, true
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generative.Respond(genCtx, req)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.ResponderFallbacksTotal.WithLabelValues(reason).Inc()
		s.logger.Warn("generative responder failed, using fallback",
			zap.String("provider", s.generative.Name()), zap.Error(err))

		text, _ = s.fallback.Respond(ctx, req)
		return text, true
	}

	return text, false
}

// History returns the user's most recent persisted turns, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	return s.turnLog.Turns(ctx, userID, historyLimit)
}

// ClearHistory removes the user's persisted turns and drops the in-memory
// context so the next message starts fresh.
func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if err := s.turnLog.PurgeTurns(ctx, userID); err != nil {
		return err
	}
	s.contexts.Clear(userID)
	return nil
}

// RebuildIndex reloads the product index from the full catalog snapshot and
// returns the number of indexed products.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return 0, err
	}
	s.index.Rebuild(products)
	s.logger.Info("product index rebuilt", zap.Int("products", len(products)))
	return len(products), nil
}
