package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Bid
// ──────────────────────────────────────────────────────────────────────────────

// Bid is a single accepted offer inside an auction.  Bids are immutable once
// created and the set of bids for an auction is append-only; replay order is
// PlacedAt ascending.
type Bid struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	AuctionID uuid.UUID       `json:"auction_id" db:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"  db:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	PlacedAt  time.Time       `json:"placed_at"  db:"placed_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBidRequest / BidReceipt — value objects used by the bid processor
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBidRequest carries the validated inputs for placing a bid.  BidderID is
// the authenticated caller identity, never taken from the request payload.
type PlaceBidRequest struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// BidReceipt is returned to the caller when a bid is accepted.  BuyNow is true
// when the bid met the buy-now price and the auction became immediately
// eligible for closing.
type BidReceipt struct {
	Accepted          bool            `json:"accepted"`
	BidID             uuid.UUID       `json:"bid_id"`
	NewPrice          decimal.Decimal `json:"new_price"`
	HighestBidderName string          `json:"highest_bidder_name"`
	BuyNow            bool            `json:"buy_now"`
}
