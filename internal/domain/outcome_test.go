package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/shopspring/decimal"
)

func bid(bidder uuid.UUID, amount int64, placedAt time.Time) *domain.Bid {
	return &domain.Bid{
		ID:       uuid.New(),
		BidderID: bidder,
		Amount:   decimal.NewFromInt(amount),
		PlacedAt: placedAt,
	}
}

func TestComputeOutcome_Empty(t *testing.T) {
	out := domain.ComputeOutcome(nil)
	if out.Winner != nil {
		t.Error("empty history should produce no winner")
	}
	if len(out.Losers) != 0 {
		t.Errorf("empty history should produce no losers, got %d", len(out.Losers))
	}
}

func TestComputeOutcome_HighestAmountWins(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	t0 := time.Now().UTC()

	out := domain.ComputeOutcome([]*domain.Bid{
		bid(a, 1200, t0),
		bid(b, 1500, t0.Add(time.Minute)),
		bid(a, 1300, t0.Add(2*time.Minute)),
	})

	if out.Winner == nil || out.Winner.BidderID != b {
		t.Fatal("bidder with the highest amount should win")
	}
	if len(out.Losers) != 1 || out.Losers[0] != a {
		t.Errorf("losers = %v, want exactly [%s]", out.Losers, a)
	}
}

// Ties on amount are broken by earliest PlacedAt: B at 2500@t2 beats C at
// 2500@t3, and the losers are A and C.
func TestComputeOutcome_TieBrokenByTime(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	t0 := time.Now().UTC()

	out := domain.ComputeOutcome([]*domain.Bid{
		bid(a, 2000, t0),
		bid(b, 2500, t0.Add(time.Minute)),
		bid(c, 2500, t0.Add(2*time.Minute)),
	})

	if out.Winner == nil || out.Winner.BidderID != b {
		t.Fatal("earlier of two equal-amount bids should win")
	}
	if len(out.Losers) != 2 {
		t.Fatalf("expected 2 losers, got %d", len(out.Losers))
	}
	// Ranking order: C (2500@t3) outranks A (2000@t1).
	if out.Losers[0] != c || out.Losers[1] != a {
		t.Errorf("losers = %v, want [%s %s]", out.Losers, c, a)
	}
}

func TestComputeOutcome_LosersDeduplicated(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	t0 := time.Now().UTC()

	out := domain.ComputeOutcome([]*domain.Bid{
		bid(a, 1000, t0),
		bid(a, 1100, t0.Add(time.Minute)),
		bid(b, 1200, t0.Add(2*time.Minute)),
		bid(a, 1300, t0.Add(3*time.Minute)),
	})

	if out.Winner == nil || out.Winner.BidderID != a {
		t.Fatal("a's final 1300 bid should win")
	}
	if len(out.Losers) != 1 || out.Losers[0] != b {
		t.Errorf("losers = %v, want exactly [%s] (winner excluded, repeats collapsed)", out.Losers, b)
	}
}

func TestComputeOutcome_InputOrderIrrelevant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	t0 := time.Now().UTC()

	// History handed over in reverse replay order.
	out := domain.ComputeOutcome([]*domain.Bid{
		bid(b, 1500, t0.Add(time.Minute)),
		bid(a, 1200, t0),
	})
	if out.Winner == nil || out.Winner.BidderID != b {
		t.Error("outcome must be deterministic regardless of input order")
	}
}
