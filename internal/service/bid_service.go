package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces consumed by the services — declared here, next to the consumer,
// so the repository and ws packages stay free of service imports.
// ──────────────────────────────────────────────────────────────────────────────

// AuctionStore is the slice of the storage collaborator the bid processor
// needs.  RecordBid applies an accepted bid atomically: the price and
// highest-bidder update, the buy-now deadline pull-in when closesAt is set,
// and the bid row land together or not at all.  Implemented by
// repository.AuctionRepository inside one transaction.
type AuctionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	RecordBid(ctx context.Context, b *domain.Bid, closesAt *time.Time) error
}

// UserDirectory resolves bidder display names.  Implemented by
// repository.UserRepository.
type UserDirectory interface {
	DisplayName(ctx context.Context, id uuid.UUID) (string, error)
}

// Broadcaster is the minimal interface the services need from the WS hub.
// Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastPriceUpdate(auctionID uuid.UUID, newPrice decimal.Decimal, bidderName string)
	BroadcastAuctionClosed(auctionID uuid.UUID, winnerName string, finalPrice decimal.Decimal)
}

// ──────────────────────────────────────────────────────────────────────────────
// BidService
// ──────────────────────────────────────────────────────────────────────────────

// BidService is the bid processor: the only writer of an auction's price and
// highest-bidder fields.  Concurrent bids on one auction are serialized by a
// per-auction mutex, so the price check and the update are indivisible — two
// equal-amount bids can never both pass validation.  Bids on different
// auctions run fully in parallel.
type BidService struct {
	auctions    AuctionStore
	users       UserDirectory
	broadcaster Broadcaster // injected after the WS hub is built
	locks       *keyedLocks
}

// NewBidService creates a BidService.
func NewBidService(auctions AuctionStore, users UserDirectory) *BidService {
	return &BidService{
		auctions: auctions,
		users:    users,
		locks:    newKeyedLocks(),
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *BidService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// PlaceBid validates and applies one bid.  Preconditions are checked in order:
// the auction exists, is not closed, its deadline has not passed, and the
// amount strictly exceeds the current price.  A bid meeting the buy-now price
// is accepted normally and pulls the deadline to now, making the auction
// immediately eligible for closing — an early end-time trigger, not a
// separate path.
//
// Rejections are synchronous, carry a machine-readable reason, and are never
// partially applied.  There is no retry here; resubmitting with a higher
// amount is the caller's decision.
func (s *BidService) PlaceBid(ctx context.Context, req domain.PlaceBidRequest) (*domain.BidReceipt, error) {
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	// Serialization boundary: one bid at a time per auction from here on.
	lock := s.locks.lockFor(req.AuctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := s.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("bid_service.PlaceBid: get auction: %w", err)
	}
	if auction.Closed {
		return nil, domain.ErrAuctionClosed
	}

	now := time.Now().UTC()
	if auction.IsExpired(now) {
		return nil, domain.ErrAuctionEnded
	}
	if req.Amount.LessThanOrEqual(auction.CurrentPrice) {
		return nil, &domain.BidTooLowError{CurrentPrice: auction.CurrentPrice}
	}

	buyNow := auction.BuyNowReached(req.Amount)

	bid := &domain.Bid{
		ID:        uuid.New(),
		AuctionID: req.AuctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		PlacedAt:  now,
	}
	var closesAt *time.Time
	if buyNow {
		closesAt = &now
	}

	// One atomic write: price, optional deadline pull-in, and the bid row.
	// The monotonic-price guard in the store backs up the per-auction lock:
	// a rejected write here means another writer won outside this process.
	if err = s.auctions.RecordBid(ctx, bid, closesAt); err != nil {
		if errors.Is(err, domain.ErrBidTooLow) {
			fresh, ferr := s.auctions.GetByID(ctx, req.AuctionID)
			if ferr == nil {
				return nil, &domain.BidTooLowError{CurrentPrice: fresh.CurrentPrice}
			}
		}
		return nil, fmt.Errorf("bid_service.PlaceBid: record bid: %w", err)
	}

	name, err := s.users.DisplayName(ctx, req.BidderID)
	if err != nil {
		name = "" // receipt still valid without a resolvable name
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastPriceUpdate(req.AuctionID, req.Amount, name)
	}

	return &domain.BidReceipt{
		Accepted:          true,
		BidID:             bid.ID,
		NewPrice:          req.Amount,
		HighestBidderName: name,
		BuyNow:            buyNow,
	}, nil
}
