// Package responder provides the natural-language reply capability for the
// chat assistant. Two generative variants (Anthropic, OpenAI) share one
// interface with a deterministic rule-based fallback; callers pick the
// variant at construction time.
package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// Request carries everything a responder may condition on: the user's
// message, prior turns, and catalog products retrieved for context.
type Request struct {
	Message  string
	History  []model.ConversationTurn
	Products []model.Product
}

// Responder turns a chat request into reply text.
type Responder interface {
	// Respond generates a reply for the request.
	Respond(ctx context.Context, req *Request) (string, error)

	// Name returns the variant name.
	Name() string
}

// Provider is the type of generative provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewGenerative creates a generative responder for the given provider.
func NewGenerative(provider Provider, apiKey string) (Responder, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicResponder(apiKey)
	case ProviderOpenAI:
		return NewOpenAIResponder(apiKey)
	default:
		return nil, fmt.Errorf("unknown responder provider %q", provider)
	}
}

// systemPrompt renders the assistant instructions plus the retrieved product
// context the generative variants are grounded on.
func systemPrompt(products []model.Product) string {
	var b strings.Builder
	b.WriteString(`You are a helpful e-commerce assistant. Use the product information below to answer questions.
Be friendly, concise, and helpful. If the customer wants to order something, confirm the product name, price, and ask for confirmation.
For questions about categories (` + strings.Join(model.Categories, ", ") + `), provide helpful suggestions.
Always be polite and professional.`)

	if len(products) > 0 {
		b.WriteString("\n\nProduct catalog context:\n")
		for _, p := range products {
			fmt.Fprintf(&b, "\nProduct: %s\nCategory: %s\nPrice: $%s\nDescription: %s\nRating: %.1f/5 (%d reviews)\nStock: %d available\nProduct ID: %d\n",
				p.Name, p.Category, p.Price.StringFixed(2), p.Description,
				p.AvgRating, p.RatingCount, p.Stock, p.ID)
		}
	}

	return b.String()
}
