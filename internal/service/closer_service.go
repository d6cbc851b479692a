package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Collaborator interfaces
// ──────────────────────────────────────────────────────────────────────────────

// ExpiredAuctionStore is the slice of the storage collaborator the closer
// needs.  Implemented by repository.AuctionRepository.
type ExpiredAuctionStore interface {
	FindExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error)
	Close(ctx context.Context, auctionID uuid.UUID) error
}

// BidHistoryStore loads the full ranked bid history for one auction.
// Implemented by repository.BidRepository.
type BidHistoryStore interface {
	HistoryByAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error)
}

// Notifier is the notification sink: fire-and-forget from this core's
// perspective, delivery guarantees are the sink's concern.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message, category string) error
}

// SettlementInitiator starts payment collection from the winner.  Must be
// idempotent keyed by auction id, since a failed close attempt is retried.
type SettlementInitiator interface {
	InitiateSettlement(ctx context.Context, auctionID, winnerID uuid.UUID, amount decimal.Decimal) error
}

// ──────────────────────────────────────────────────────────────────────────────
// CloserService
// ──────────────────────────────────────────────────────────────────────────────

// CloserService processes expired auctions: it computes the outcome from the
// bid history, triggers settlement and notifications, and marks the auction
// closed only after every side effect for it has been attempted.  An auction
// that fails mid-processing stays open and is retried on the next tick, which
// makes the job idempotent at the cost of possible duplicate notifications.
type CloserService struct {
	auctions    ExpiredAuctionStore
	bids        BidHistoryStore
	users       UserDirectory
	notifier    Notifier
	settler     SettlementInitiator
	broadcaster Broadcaster // optional; injected after the WS hub is built

	settlementWindow time.Duration

	// inFlight guards against a slow previous tick overlapping with a new one:
	// the same auction is never processed twice concurrently.
	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewCloserService creates a CloserService.  settlementWindow is quoted in the
// winner's notification.
func NewCloserService(
	auctions ExpiredAuctionStore,
	bids BidHistoryStore,
	users UserDirectory,
	notifier Notifier,
	settler SettlementInitiator,
	settlementWindow time.Duration,
) *CloserService {
	return &CloserService{
		auctions:         auctions,
		bids:             bids,
		users:            users,
		notifier:         notifier,
		settler:          settler,
		settlementWindow: settlementWindow,
		inFlight:         make(map[uuid.UUID]bool),
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *CloserService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ProcessExpiredAuctions closes every auction whose deadline has passed.
// Each auction is processed independently: a failure on one is logged and
// never aborts the others.  Returns the number of auctions closed.
func (s *CloserService) ProcessExpiredAuctions(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.auctions.FindExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("closer_service.ProcessExpiredAuctions: fetch: %w", err)
	}

	closed := 0
	for _, a := range expired {
		if !s.claim(a.ID) {
			continue // still being processed by a previous tick
		}
		err := s.closeAuction(ctx, a)
		s.release(a.ID)
		if err != nil {
			slog.Error("auction close failed, left open for retry", "auction_id", a.ID, "err", err)
			continue
		}
		closed++
	}
	return closed, nil
}

// closeAuction settles a single auction.  Side effects run before the closed
// flag is set; any error leaves the flag unset so the next tick retries.
func (s *CloserService) closeAuction(ctx context.Context, a *domain.Auction) error {
	history, err := s.bids.HistoryByAuction(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load bid history: %w", err)
	}

	outcome := domain.ComputeOutcome(history)

	if outcome.Winner == nil {
		msg := fmt.Sprintf("Your auction %q ended without any bids.", a.Title)
		if err = s.notifier.Notify(ctx, a.SellerID, msg, domain.NotifyAuctionNoBids); err != nil {
			return fmt.Errorf("notify seller: %w: %w", domain.ErrNotificationFailed, err)
		}
	} else {
		winner := outcome.Winner
		if err = s.settler.InitiateSettlement(ctx, a.ID, winner.BidderID, winner.Amount); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSettlementFailed, err)
		}

		winMsg := fmt.Sprintf("You won the auction %q. Please pay %s within %s.",
			a.Title, winner.Amount.StringFixed(2), formatWindow(s.settlementWindow))
		if err = s.notifier.Notify(ctx, winner.BidderID, winMsg, domain.NotifyAuctionWon); err != nil {
			return fmt.Errorf("notify winner: %w: %w", domain.ErrNotificationFailed, err)
		}

		loseMsg := fmt.Sprintf("The auction %q ended. The winning bid was %s.",
			a.Title, winner.Amount.StringFixed(2))
		for _, loserID := range outcome.Losers {
			if err = s.notifier.Notify(ctx, loserID, loseMsg, domain.NotifyAuctionLost); err != nil {
				return fmt.Errorf("notify loser %s: %w: %w", loserID, domain.ErrNotificationFailed, err)
			}
		}
	}

	if err = s.auctions.Close(ctx, a.ID); err != nil {
		return fmt.Errorf("mark closed: %w", err)
	}

	if s.broadcaster != nil && outcome.Winner != nil {
		name, nerr := s.users.DisplayName(ctx, outcome.Winner.BidderID)
		if nerr != nil {
			name = ""
		}
		s.broadcaster.BroadcastAuctionClosed(a.ID, name, outcome.Winner.Amount)
	}

	slog.Info("auction closed",
		"auction_id", a.ID, "had_bids", outcome.Winner != nil, "losers", len(outcome.Losers))
	return nil
}

// claim marks an auction as in flight; returns false when another tick owns it.
func (s *CloserService) claim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *CloserService) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// formatWindow renders the settlement window in whole hours for user-facing
// messages ("48 hours" rather than "48h0m0s").
func formatWindow(d time.Duration) string {
	hours := int(d.Hours())
	if hours >= 1 {
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
