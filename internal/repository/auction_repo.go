// Package repository contains the PostgreSQL persistence layer.  Auction
// records are created through the back-office; everything else here serves
// the bidding engine and the closer.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mezatapp/mezat/internal/domain"
)

// AuctionRepository handles all database operations for Auctions.
type AuctionRepository struct {
	db *sqlx.DB
}

// NewAuctionRepository creates a new AuctionRepository.
func NewAuctionRepository(db *sqlx.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create inserts a new auction row.  Used by the back-office listing flow;
// the bidding engine itself never creates auctions.
func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	query := `
		INSERT INTO auctions
			(id, seller_id, title, start_bid_price, buy_now_price, current_price,
			 highest_bidder_id, ends_at, closed, created_at, updated_at)
		VALUES
			(:id, :seller_id, :title, :start_bid_price, :buy_now_price, :current_price,
			 :highest_bidder_id, :ends_at, :closed, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("auction_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches an auction by its primary key.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	var a domain.Auction
	err := r.db.GetContext(ctx, &a, `SELECT * FROM auctions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("auction_repo.GetByID: %w", err)
	}
	return &a, nil
}

// FindExpired returns all auctions whose deadline has passed but are not yet
// closed, oldest deadline first.
func (r *AuctionRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	var auctions []*domain.Auction
	err := r.db.SelectContext(ctx, &auctions,
		`SELECT * FROM auctions WHERE closed = false AND ends_at <= $1 ORDER BY ends_at ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("auction_repo.FindExpired: %w", err)
	}
	return auctions, nil
}

// RecordBid applies one accepted bid inside a single transaction: the
// price/highest-bidder update, the buy-now deadline pull-in when closesAt is
// set, and the insert of the bid row commit together or not at all — the
// ledger can never show a price without the bid that set it.
//
// The price update carries a monotonic guard: the row only changes while the
// auction is open and the amount strictly exceeds the stored current price.
// Returns ErrBidTooLow when the guard rejects the write — the caller re-reads
// to learn the price it lost to.
func (r *AuctionRepository) RecordBid(ctx context.Context, b *domain.Bid, closesAt *time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("auction_repo.RecordBid: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET current_price     = $1,
		    highest_bidder_id = $2,
		    updated_at        = now()
		WHERE id = $3 AND closed = false AND current_price < $1`,
		b.Amount, b.BidderID, b.AuctionID)
	if err != nil {
		return fmt.Errorf("auction_repo.RecordBid: update price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBidTooLow
	}

	if closesAt != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE auctions SET ends_at = $1, updated_at = now() WHERE id = $2 AND closed = false`,
			*closesAt, b.AuctionID)
		if err != nil {
			return fmt.Errorf("auction_repo.RecordBid: pull deadline: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrAuctionClosed
		}
	}

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at)
		VALUES (:id, :auction_id, :bidder_id, :amount, :placed_at)`, b); err != nil {
		return fmt.Errorf("auction_repo.RecordBid: insert bid: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("auction_repo.RecordBid: commit: %w", err)
	}
	return nil
}

// SetEndsAt moves the auction deadline.  Used by the back-office forced-end
// flow: pulling the deadline to the present makes the closer pick the auction
// up on its next tick.
func (r *AuctionRepository) SetEndsAt(ctx context.Context, auctionID uuid.UUID, endsAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET ends_at = $1, updated_at = now() WHERE id = $2 AND closed = false`,
		endsAt, auctionID)
	if err != nil {
		return fmt.Errorf("auction_repo.SetEndsAt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAuctionClosed
	}
	return nil
}

// Close flips the closed flag.  The WHERE clause makes the check-and-set
// atomic: exactly one caller observes a row change, all later callers get
// ErrAuctionClosed.
func (r *AuctionRepository) Close(ctx context.Context, auctionID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET closed = true, updated_at = now() WHERE id = $1 AND closed = false`,
		auctionID)
	if err != nil {
		return fmt.Errorf("auction_repo.Close: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAuctionClosed
	}
	return nil
}

// List returns a paginated slice of auctions, optionally filtered to open
// (closed=false) or finished (closed=true) listings.
// Returns (auctions, totalCount, error).
func (r *AuctionRepository) List(ctx context.Context, limit, offset int, closed *bool) ([]*domain.Auction, int, error) {
	var auctions []*domain.Auction
	var total int

	if closed != nil {
		if err := r.db.GetContext(ctx, &total,
			`SELECT COUNT(*) FROM auctions WHERE closed = $1`, *closed); err != nil {
			return nil, 0, fmt.Errorf("auction_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &auctions,
			`SELECT * FROM auctions WHERE closed = $1 ORDER BY ends_at ASC LIMIT $2 OFFSET $3`,
			*closed, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("auction_repo.List select: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM auctions`); err != nil {
			return nil, 0, fmt.Errorf("auction_repo.List count: %w", err)
		}
		if err := r.db.SelectContext(ctx, &auctions,
			`SELECT * FROM auctions ORDER BY ends_at ASC LIMIT $1 OFFSET $2`,
			limit, offset); err != nil {
			return nil, 0, fmt.Errorf("auction_repo.List select: %w", err)
		}
	}
	return auctions, total, nil
}
