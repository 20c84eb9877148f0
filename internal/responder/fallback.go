package responder

import (
	"context"
	"strings"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

// Fallback is the deterministic rule-based responder used whenever no
// generative variant is configured or the generative call fails. It never
// returns an error.
type Fallback struct{}

// NewFallback creates the fallback responder.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Name returns the variant name.
func (f *Fallback) Name() string {
	return "fallback"
}

// Respond picks a canned reply by simple substring rules over the message.
func (f *Fallback) Respond(ctx context.Context, req *Request) (string, error) {
	message := strings.ToLower(req.Message)
	categories := strings.Join(titleCategories(), ", ")

	switch {
	case strings.Contains(message, "hello") || strings.Contains(message, "hi"):
		return "Hello! Welcome to our store. I can help you find products in our categories: " +
			categories + ". How can I assist you today?", nil
	case strings.Contains(message, "categor"):
		return "We have these categories: " + categories + ". Which category interests you?", nil
	case strings.Contains(message, "order"):
		return "To place an order, please browse our products, select the items you want, and proceed to checkout. " +
			"Would you like me to help you find something specific?", nil
	case strings.Contains(message, "help"):
		return "I can help you with:\n- Finding products in different categories\n- Product recommendations\n" +
			"- Order placement and confirmation\n- Answering questions about items\n\nWhat would you like assistance with?", nil
	default:
		return "I'm here to help! You can ask me about our products, categories, or placing orders. " +
			"What would you like to know?", nil
	}
}

func titleCategories() []string {
	out := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		out[i] = strings.ToUpper(c[:1]) + c[1:]
	}
	return out
}
