// Package chat implements the conversational assistant: per-user context,
// order-intent detection, and responder orchestration with fallback.
package chat

import (
	"sync"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// ContextStore keeps per-user conversation contexts in memory. Contexts are
// created lazily on first message, removed on history clear, and live for
// the process lifetime otherwise.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewContextStore creates an empty context store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		contexts: make(map[string]*Context),
	}
}

// Get returns the user's context, creating it if absent.
func (s *ContextStore) Get(userID string) *Context {
	s.mu.RLock()
	c, ok := s.contexts[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contexts[userID]; ok {
		return c
	}
	c = &Context{}
	s.contexts[userID] = c
	return c
}

// Clear drops the user's context entirely; the next message starts fresh.
func (s *ContextStore) Clear(userID string) {
	s.mu.Lock()
	delete(s.contexts, userID)
	s.mu.Unlock()
}

// Context accumulates one user's prior turns. Appends are serialized so
// concurrent messages from the same user cannot corrupt the history; order
// beyond receipt order is not guaranteed.
type Context struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
}

// Append records a completed turn.
func (c *Context) Append(turn model.ConversationTurn) {
	c.mu.Lock()
	c.turns = append(c.turns, turn)
	c.mu.Unlock()
}

// Turns returns a copy of up to limit of the most recent turns, oldest first.
func (c *Context) Turns(limit int) []model.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turns := c.turns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]model.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}
