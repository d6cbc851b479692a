package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/mezatapp/mezat/internal/service"
	"github.com/shopspring/decimal"
)

func expiredAuction(store *memStore) *domain.Auction {
	a := &domain.Auction{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "old vinyl",
		StartBidPrice: decimal.NewFromInt(1000),
		CurrentPrice:  decimal.NewFromInt(1000),
		EndsAt:        time.Now().UTC().Add(-time.Minute),
	}
	store.put(a)
	return a
}

func appendBid(store *memStore, auctionID, bidder uuid.UUID, amount int64, placedAt time.Time) {
	store.seedBid(&domain.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidder,
		Amount:    decimal.NewFromInt(amount),
		PlacedAt:  placedAt,
	})
}

func newCloser(store *memStore, notifier *memNotifier, settler *memSettler) *service.CloserService {
	return service.NewCloserService(store, store, store, notifier, settler, 48*time.Hour)
}

// Winner is the highest amount with the earliest timestamp on ties; all other
// distinct bidders are notified as losers with the winning amount stated.
func TestProcessExpiredAuctions_WinnerAndLosers(t *testing.T) {
	store := newMemStore()
	notifier := newMemNotifier()
	settler := newMemSettler()

	a := expiredAuction(store)
	bidderA, bidderB, bidderC := uuid.New(), uuid.New(), uuid.New()
	t0 := a.EndsAt.Add(-time.Hour)
	appendBid(store, a.ID, bidderA, 2000, t0)
	appendBid(store, a.ID, bidderB, 2500, t0.Add(time.Minute))
	appendBid(store, a.ID, bidderC, 2500, t0.Add(2*time.Minute))
	a.CurrentPrice = decimal.NewFromInt(2500)
	bidder := bidderB
	a.HighestBidderID = &bidder
	store.put(a)

	closer := newCloser(store, notifier, settler)
	closed, err := closer.ProcessExpiredAuctions(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}

	if settler.callCount() != 1 {
		t.Fatalf("settlement calls = %d, want 1", settler.callCount())
	}
	settler.mu.Lock()
	call := settler.calls[0]
	settler.mu.Unlock()
	if call.winnerID != bidderB {
		t.Error("settlement should target bidder B (earlier of the 2500 tie)")
	}
	if !call.amount.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("settlement amount = %s, want 2500", call.amount)
	}

	won := notifier.byCategory(domain.NotifyAuctionWon)
	if len(won) != 1 || won[0].recipient != bidderB {
		t.Errorf("winner notifications = %v, want exactly one to B", won)
	}
	lost := notifier.byCategory(domain.NotifyAuctionLost)
	if len(lost) != 2 {
		t.Fatalf("loser notifications = %d, want 2 (A and C)", len(lost))
	}
	recipients := map[uuid.UUID]bool{lost[0].recipient: true, lost[1].recipient: true}
	if !recipients[bidderA] || !recipients[bidderC] {
		t.Error("losers notified should be exactly A and C")
	}

	final, _ := store.GetByID(context.Background(), a.ID)
	if !final.Closed {
		t.Error("auction should be marked closed after side effects")
	}
}

func TestProcessExpiredAuctions_NoBidsNotifiesSeller(t *testing.T) {
	store := newMemStore()
	notifier := newMemNotifier()
	settler := newMemSettler()

	a := expiredAuction(store)
	closer := newCloser(store, notifier, settler)

	closed, err := closer.ProcessExpiredAuctions(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}
	if settler.callCount() != 0 {
		t.Error("no settlement must be initiated without a winner")
	}
	noBids := notifier.byCategory(domain.NotifyAuctionNoBids)
	if len(noBids) != 1 || noBids[0].recipient != a.SellerID {
		t.Errorf("seller no-bids notification missing or misaddressed: %v", noBids)
	}
}

// Running the closer again after an auction is closed produces zero additional
// notifications and zero additional settlement calls.
func TestProcessExpiredAuctions_Idempotent(t *testing.T) {
	store := newMemStore()
	notifier := newMemNotifier()
	settler := newMemSettler()

	a := expiredAuction(store)
	appendBid(store, a.ID, uuid.New(), 1500, a.EndsAt.Add(-time.Hour))

	closer := newCloser(store, notifier, settler)
	ctx := context.Background()
	now := time.Now().UTC()

	if closed, _ := closer.ProcessExpiredAuctions(ctx, now); closed != 1 {
		t.Fatal("first tick should close the auction")
	}
	notesAfterFirst := notifier.count()
	settlementsAfterFirst := settler.callCount()

	closed, err := closer.ProcessExpiredAuctions(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if closed != 0 {
		t.Errorf("second tick closed %d auctions, want 0", closed)
	}
	if notifier.count() != notesAfterFirst {
		t.Error("second tick must not emit additional notifications")
	}
	if settler.callCount() != settlementsAfterFirst {
		t.Error("second tick must not initiate additional settlements")
	}
}

// A settlement failure on auction A leaves it open for retry and must not
// affect auction B processed in the same tick.
func TestProcessExpiredAuctions_PartialFailureIsolation(t *testing.T) {
	store := newMemStore()
	notifier := newMemNotifier()
	settler := newMemSettler()

	failing := expiredAuction(store)
	appendBid(store, failing.ID, uuid.New(), 1500, failing.EndsAt.Add(-time.Hour))
	settler.mu.Lock()
	settler.failFor[failing.ID] = true
	settler.mu.Unlock()

	healthy := expiredAuction(store)
	appendBid(store, healthy.ID, uuid.New(), 1800, healthy.EndsAt.Add(-time.Hour))

	closer := newCloser(store, notifier, settler)
	ctx := context.Background()

	closed, err := closer.ProcessExpiredAuctions(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want only the healthy auction", closed)
	}

	failedState, _ := store.GetByID(ctx, failing.ID)
	if failedState.Closed {
		t.Error("auction with failed settlement must stay open for retry")
	}
	healthyState, _ := store.GetByID(ctx, healthy.ID)
	if !healthyState.Closed {
		t.Error("healthy auction must close despite the other failing")
	}

	// Downstream recovers: the next tick closes the failed auction without
	// re-settling the healthy one.
	settler.mu.Lock()
	delete(settler.failFor, failing.ID)
	settler.mu.Unlock()

	closed, err = closer.ProcessExpiredAuctions(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Errorf("retry tick closed %d auctions, want 1", closed)
	}
	if settler.callCount() != 2 {
		t.Errorf("settlement calls = %d, want 2 (one per auction)", settler.callCount())
	}
}

// A slow tick still processing an auction blocks a newer tick from
// double-processing it.
func TestProcessExpiredAuctions_NoOverlapBetweenTicks(t *testing.T) {
	store := newMemStore()
	notifier := newMemNotifier()
	settler := newMemSettler()
	settler.gate = make(chan struct{})

	a := expiredAuction(store)
	appendBid(store, a.ID, uuid.New(), 1500, a.EndsAt.Add(-time.Hour))

	closer := newCloser(store, notifier, settler)
	ctx := context.Background()

	firstDone := make(chan int)
	go func() {
		closed, _ := closer.ProcessExpiredAuctions(ctx, time.Now().UTC())
		firstDone <- closed
	}()

	// Give the first tick time to claim the auction and block in settlement.
	time.Sleep(50 * time.Millisecond)

	closed, err := closer.ProcessExpiredAuctions(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if closed != 0 {
		t.Errorf("overlapping tick closed %d auctions, want 0", closed)
	}

	close(settler.gate)
	if got := <-firstDone; got != 1 {
		t.Errorf("first tick closed %d auctions, want 1", got)
	}
	if settler.callCount() != 1 {
		t.Errorf("settlement calls = %d, want exactly 1", settler.callCount())
	}
}
