package domain

import (
	"sort"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// ClosingOutcome
// ──────────────────────────────────────────────────────────────────────────────

// ClosingOutcome is the derived result of an expired auction: the winning bid
// (highest amount, earliest PlacedAt on amount ties) and the distinct losing
// bidder identities in ranking order.  Winner is nil when no bids were placed.
// It is computed on demand from the bid history and never stored.
type ClosingOutcome struct {
	Winner *Bid
	Losers []uuid.UUID
}

// ComputeOutcome ranks the bid history and determines the winner and losers.
// The input slice is not modified.  Ranking is amount descending, then
// PlacedAt ascending so that on equal amounts the earlier bid wins.  Losers
// are deduplicated, exclude the winner, and keep ranking order.
func ComputeOutcome(history []*Bid) ClosingOutcome {
	if len(history) == 0 {
		return ClosingOutcome{}
	}

	ranked := make([]*Bid, len(history))
	copy(ranked, history)
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].Amount.Equal(ranked[j].Amount) {
			return ranked[i].Amount.GreaterThan(ranked[j].Amount)
		}
		return ranked[i].PlacedAt.Before(ranked[j].PlacedAt)
	})

	winner := ranked[0]
	seen := map[uuid.UUID]bool{winner.BidderID: true}
	var losers []uuid.UUID
	for _, b := range ranked[1:] {
		if seen[b.BidderID] {
			continue
		}
		seen[b.BidderID] = true
		losers = append(losers, b.BidderID)
	}

	return ClosingOutcome{Winner: winner, Losers: losers}
}
