package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal account record this engine needs: identity management
// itself (registration, credentials, roles) lives in a separate service; the
// auction core only resolves display names for receipts and broadcasts.
type User struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"email"        db:"email"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Notification
// ──────────────────────────────────────────────────────────────────────────────

// Notification categories emitted by the auction closer.
const (
	NotifyAuctionWon    = "auction_won"
	NotifyAuctionLost   = "auction_lost"
	NotifyAuctionNoBids = "auction_no_bids"
)

// Notification is a (recipient, message, category) tuple handed to the
// notification sink.  Delivery guarantees are the sink's concern; the closer
// may re-emit a notification when a close attempt is retried.
type Notification struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	Message     string    `json:"message"      db:"message"`
	Category    string    `json:"category"     db:"category"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}
