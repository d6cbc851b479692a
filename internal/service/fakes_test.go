package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory storage collaborator implementing the store
// interfaces the services consume.  It applies the same monotonic-price guard
// as the SQL implementation so the service tests exercise the full contract.
type memStore struct {
	mu           sync.Mutex
	auctions     map[uuid.UUID]*domain.Auction
	bids         map[uuid.UUID][]*domain.Bid
	names        map[uuid.UUID]string
	recordBidErr error // when set, RecordBid fails without applying anything
}

func newMemStore() *memStore {
	return &memStore{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]*domain.Bid),
		names:    make(map[uuid.UUID]string),
	}
}

func (m *memStore) put(a *domain.Auction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.auctions[a.ID] = &cp
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

// RecordBid mirrors the SQL implementation's all-or-nothing contract: under
// one lock it applies the guarded price update, the optional deadline
// pull-in, and the bid append together, or returns leaving the store
// untouched.
func (m *memStore) RecordBid(_ context.Context, b *domain.Bid, closesAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordBidErr != nil {
		return m.recordBidErr
	}
	a, ok := m.auctions[b.AuctionID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if a.Closed || !a.CurrentPrice.LessThan(b.Amount) {
		return domain.ErrBidTooLow
	}
	a.CurrentPrice = b.Amount
	bidder := b.BidderID
	a.HighestBidderID = &bidder
	if closesAt != nil {
		a.EndsAt = *closesAt
	}
	cp := *b
	m.bids[b.AuctionID] = append(m.bids[b.AuctionID], &cp)
	return nil
}

func (m *memStore) FindExpired(_ context.Context, now time.Time) ([]*domain.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Auction
	for _, a := range m.auctions {
		if !a.Closed && !now.Before(a.EndsAt) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

func (m *memStore) Close(_ context.Context, auctionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok || a.Closed {
		return domain.ErrAuctionClosed
	}
	a.Closed = true
	return nil
}

// seedBid plants a bid row directly, bypassing the acceptance path.
func (m *memStore) seedBid(b *domain.Bid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bids[b.AuctionID] = append(m.bids[b.AuctionID], &cp)
}

func (m *memStore) HistoryByAuction(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.bids[auctionID]
	out := make([]*domain.Bid, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].PlacedAt.Before(out[j].PlacedAt)
	})
	return out, nil
}

func (m *memStore) DisplayName(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[id]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	return name, nil
}

// replayOrder returns the accepted bids for an auction sorted by PlacedAt.
func (m *memStore) replayOrder(auctionID uuid.UUID) []*domain.Bid {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.bids[auctionID]
	out := make([]*domain.Bid, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// ── Notification sink fake ────────────────────────────────────────────────────

type sentNote struct {
	recipient uuid.UUID
	message   string
	category  string
}

type memNotifier struct {
	mu      sync.Mutex
	sent    []sentNote
	failFor map[uuid.UUID]bool // recipients whose notifications fail
}

func newMemNotifier() *memNotifier {
	return &memNotifier{failFor: make(map[uuid.UUID]bool)}
}

func (n *memNotifier) Notify(_ context.Context, recipientID uuid.UUID, message, category string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[recipientID] {
		return fmt.Errorf("sink unavailable for %s", recipientID)
	}
	n.sent = append(n.sent, sentNote{recipient: recipientID, message: message, category: category})
	return nil
}

func (n *memNotifier) byCategory(category string) []sentNote {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNote
	for _, s := range n.sent {
		if s.category == category {
			out = append(out, s)
		}
	}
	return out
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// ── Settlement fake ───────────────────────────────────────────────────────────

type settlementCall struct {
	auctionID uuid.UUID
	winnerID  uuid.UUID
	amount    decimal.Decimal
}

type memSettler struct {
	mu      sync.Mutex
	calls   []settlementCall
	failFor map[uuid.UUID]bool // auctions whose settlement fails
	gate    chan struct{}      // when non-nil, InitiateSettlement blocks on it
}

func newMemSettler() *memSettler {
	return &memSettler{failFor: make(map[uuid.UUID]bool)}
}

func (p *memSettler) InitiateSettlement(_ context.Context, auctionID, winnerID uuid.UUID, amount decimal.Decimal) error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[auctionID] {
		return fmt.Errorf("payment service rejected auction %s", auctionID)
	}
	p.calls = append(p.calls, settlementCall{auctionID: auctionID, winnerID: winnerID, amount: amount})
	return nil
}

func (p *memSettler) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// ── Broadcaster fake ──────────────────────────────────────────────────────────

type memBroadcaster struct {
	mu           sync.Mutex
	priceUpdates int
	closes       int
}

func (b *memBroadcaster) BroadcastPriceUpdate(uuid.UUID, decimal.Decimal, string) {
	b.mu.Lock()
	b.priceUpdates++
	b.mu.Unlock()
}

func (b *memBroadcaster) BroadcastAuctionClosed(uuid.UUID, string, decimal.Decimal) {
	b.mu.Lock()
	b.closes++
	b.mu.Unlock()
}

func (b *memBroadcaster) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.priceUpdates, b.closes
}
