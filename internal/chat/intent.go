package chat

import "strings"

// orderIntentKeywords are the phrases that mark a message as an attempt to
// place an order.
var orderIntentKeywords = []string{
	"order", "buy", "purchase", "add to cart", "checkout",
	"i want", "i need", "i'd like", "get me", "can i get",
}

// DetectOrderIntent reports whether the message looks like an attempt to
// place an order. Matching is a plain substring check over the lowercased
// message.
func DetectOrderIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range orderIntentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
