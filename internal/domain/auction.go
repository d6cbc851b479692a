// Package domain defines the core business entities for the mezat timed
// auction engine.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Auction
// ──────────────────────────────────────────────────────────────────────────────

// Auction is the authoritative price ledger for one listing.  The price and
// highest-bidder fields are mutated only by the bid processor; the closed flag
// is set only by the auction closer.  Invariants held on every mutation:
//
//	CurrentPrice >= StartBidPrice
//	HighestBidderID != nil  iff  CurrentPrice > StartBidPrice
//
// The seller is never the implicit highest bidder: an auction with no bids has
// CurrentPrice == StartBidPrice and a nil HighestBidderID.
type Auction struct {
	ID              uuid.UUID        `json:"id"                db:"id"`
	SellerID        uuid.UUID        `json:"seller_id"         db:"seller_id"`
	Title           string           `json:"title"             db:"title"`
	StartBidPrice   decimal.Decimal  `json:"start_bid_price"   db:"start_bid_price"`
	BuyNowPrice     *decimal.Decimal `json:"buy_now_price"     db:"buy_now_price"`
	CurrentPrice    decimal.Decimal  `json:"current_price"     db:"current_price"`
	HighestBidderID *uuid.UUID       `json:"highest_bidder_id" db:"highest_bidder_id"`
	EndsAt          time.Time        `json:"ends_at"           db:"ends_at"`
	Closed          bool             `json:"closed"            db:"closed"`
	CreatedAt       time.Time        `json:"created_at"        db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"        db:"updated_at"`
}

// HasBids reports whether at least one bid was ever accepted.
func (a *Auction) HasBids() bool {
	return a.CurrentPrice.GreaterThan(a.StartBidPrice)
}

// AcceptsBidsAt reports whether a bid submitted at now can still be accepted:
// the auction must not be closed and its deadline must not have passed.
func (a *Auction) AcceptsBidsAt(now time.Time) bool {
	return !a.Closed && now.Before(a.EndsAt)
}

// IsExpired reports whether the auction's deadline has passed.
func (a *Auction) IsExpired(now time.Time) bool {
	return !now.Before(a.EndsAt)
}

// BuyNowReached reports whether amount meets the buy-now price.  Always false
// when no buy-now price is set.
func (a *Auction) BuyNowReached(amount decimal.Decimal) bool {
	return a.BuyNowPrice != nil && amount.GreaterThanOrEqual(*a.BuyNowPrice)
}

// TimeLeft returns the duration remaining until the auction deadline, or 0 if
// the deadline has already passed.
func (a *Auction) TimeLeft() time.Duration {
	remaining := time.Until(a.EndsAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
