package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Auction errors
var (
	// ErrAuctionNotFound is returned when no auction matches the given id.
	ErrAuctionNotFound = errors.New("auction not found")

	// ErrAuctionClosed is returned when a bid is placed on an auction that the
	// closer has already processed.
	ErrAuctionClosed = errors.New("auction is already closed")

	// ErrAuctionEnded is returned when a bid arrives after the auction deadline
	// but before the closer has processed it.
	ErrAuctionEnded = errors.New("auction has ended")
)

// Bid errors
var (
	// ErrBidTooLow is returned when a bid does not exceed the current price.
	// Use errors.As with *BidTooLowError to read the price the bid lost to.
	ErrBidTooLow = errors.New("bid amount must exceed the current price")

	// ErrInvalidAmount is returned when a bid amount is missing, zero or
	// negative before any price comparison happens.
	ErrInvalidAmount = errors.New("bid amount must be a positive value")
)

// User errors
var (
	// ErrUserNotFound is returned when no user matches the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Closer-side errors — always recovered locally, never fatal to the scheduler.
var (
	// ErrSettlementFailed wraps a payment-initiation failure; the auction stays
	// open so the next tick retries it.
	ErrSettlementFailed = errors.New("settlement initiation failed")

	// ErrNotificationFailed wraps a notification-sink failure; the auction
	// stays open so the next tick retries it.
	ErrNotificationFailed = errors.New("notification delivery failed")
)

// ──────────────────────────────────────────────────────────────────────────────
// BidTooLowError
// ──────────────────────────────────────────────────────────────────────────────

// BidTooLowError reports the price a rejected bid lost to, so the caller can
// immediately re-render "someone else just bid higher" instead of a bare
// failure.  It unwraps to ErrBidTooLow.
type BidTooLowError struct {
	CurrentPrice decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount must exceed the current price of %s", e.CurrentPrice.StringFixed(2))
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrAuctionNotFound,
	ErrUserNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors.  Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict between
// the request and the auction lifecycle.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrAuctionClosed,
		ErrAuctionEnded,
		ErrBidTooLow,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
