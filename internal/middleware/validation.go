package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateMessageContent validates a chat message.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateRating validates a product review rating.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}

// ValidateShippingAddress validates an optional shipping address.
func ValidateShippingAddress(address string) error {
	if len(address) > 1024 {
		return errors.New("shipping address exceeds maximum length")
	}
	if !utf8.ValidString(address) {
		return errors.New("shipping address must be valid UTF-8")
	}
	return nil
}
