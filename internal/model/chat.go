package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversationTurn is one (message, response) exchange in a user's chat
// history. Turns are append-only and owned by the user.
type ConversationTurn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductRef cites a catalog product in a chat reply.
type ProductRef struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

// ChatMessageRequest is the request to send a chat message.
type ChatMessageRequest struct {
	Message string `json:"message"`
}

// ChatReply is the assistant's answer to a chat message.
type ChatReply struct {
	Response             string       `json:"response"`
	Sources              []ProductRef `json:"sources"`
	Action               string       `json:"action,omitempty"`
	RequiresConfirmation bool         `json:"requires_confirmation,omitempty"`
	Fallback             bool         `json:"fallback,omitempty"`
}

// OrderVerifyRequest is the two-phase chat order request: with Confirm
// false it asks for a priced summary, with Confirm true it commits.
type OrderVerifyRequest struct {
	ProductIDs []int64 `json:"product_ids"`
	Quantities []int   `json:"quantities"`
	Confirm    bool    `json:"confirm"`
}
