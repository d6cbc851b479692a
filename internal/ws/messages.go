// Package ws holds WebSocket message types and the room-aware Hub.
// messages.go defines the wire protocol for the live auction feed.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypePriceUpdate   MsgType = "priceUpdate"
	MsgTypeAuctionClosed MsgType = "auctionClosed"
	MsgTypeError         MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// JoinMessage — the only inbound message type
// ──────────────────────────────────────────────────────────────────────────────

// JoinMessage subscribes the connection to one auction's updates.  Joining a
// second auction moves the connection; there is no explicit leave — closing
// the socket unsubscribes.
type JoinMessage struct {
	Action    string `json:"action"` // must be "join"
	AuctionID string `json:"auctionId"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PriceUpdateMessage — pushed to a room after every accepted bid
// ──────────────────────────────────────────────────────────────────────────────

// PriceUpdateMessage carries the new price ladder state for one auction.
type PriceUpdateMessage struct {
	Type              MsgType         `json:"type"`
	AuctionID         uuid.UUID       `json:"auctionId"`
	NewPrice          decimal.Decimal `json:"newPrice"`
	HighestBidderName string          `json:"highestBidderName"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// AuctionClosedMessage — pushed to a room when the closer settles the auction
// ──────────────────────────────────────────────────────────────────────────────

// AuctionClosedMessage tells viewers the auction is over and who won.
// WinnerName is empty when the auction ended without bids.
type AuctionClosedMessage struct {
	Type       MsgType         `json:"type"`
	AuctionID  uuid.UUID       `json:"auctionId"`
	WinnerName string          `json:"winnerName"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
