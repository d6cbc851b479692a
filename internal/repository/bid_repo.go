package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mezatapp/mezat/internal/domain"
)

// BidRepository handles read access to the bid ledger.  Bids are append-only
// and the insert happens inside AuctionRepository.RecordBid's transaction, so
// there is no write path here.
type BidRepository struct {
	db *sqlx.DB
}

// NewBidRepository creates a new BidRepository.
func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// HistoryByAuction returns the full bid history in closing rank order: amount
// descending, placed_at ascending on ties.  The first row, if any, is the
// winning bid.
func (r *BidRepository) HistoryByAuction(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	err := r.db.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE auction_id = $1 ORDER BY amount DESC, placed_at ASC`,
		auctionID)
	if err != nil {
		return nil, fmt.Errorf("bid_repo.HistoryByAuction: %w", err)
	}
	return bids, nil
}

// ListByAuction returns the bid history in replay order (placed_at ascending),
// paginated.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	err := r.db.SelectContext(ctx, &bids,
		`SELECT * FROM bids WHERE auction_id = $1 ORDER BY placed_at ASC LIMIT $2 OFFSET $3`,
		auctionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("bid_repo.ListByAuction: %w", err)
	}
	return bids, nil
}
