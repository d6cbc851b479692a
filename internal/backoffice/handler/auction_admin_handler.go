package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/mezatapp/mezat/internal/repository"
	"github.com/mezatapp/mezat/internal/service"
	"github.com/shopspring/decimal"
)

// AuctionAdminHandler serves /admin/auctions endpoints: listing creation,
// forced early endings, and an on-demand close run for operators who don't
// want to wait for the next scheduler tick.
type AuctionAdminHandler struct {
	auctions  *repository.AuctionRepository
	bids      *repository.BidRepository
	closerSvc *service.CloserService
}

// NewAuctionAdminHandler creates an AuctionAdminHandler.
func NewAuctionAdminHandler(
	auctions *repository.AuctionRepository,
	bids *repository.BidRepository,
	closerSvc *service.CloserService,
) *AuctionAdminHandler {
	return &AuctionAdminHandler{auctions: auctions, bids: bids, closerSvc: closerSvc}
}

// List godoc
// GET /admin/auctions?closed=true&page=1&limit=50
func (h *AuctionAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	var closed *bool
	if q := c.Query("closed"); q != "" {
		v, err := strconv.ParseBool(q)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_FILTER", "closed must be true or false")
			return
		}
		closed = &v
	}

	auctions, total, err := h.auctions.List(c.Request.Context(), limit, offset, closed)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, auctions, total, page, limit)
}

// Detail godoc
// GET /admin/auctions/:id
//
// Returns the auction together with its full ranked bid history.
func (h *AuctionAdminHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid auction id")
		return
	}

	ctx := c.Request.Context()
	auction, err := h.auctions.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	history, err := h.bids.HistoryByAuction(ctx, id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"auction":   auction,
		"bids":      history,
		"bid_count": len(history),
	})
}

// Create godoc
// POST /admin/auctions
// Body: {"seller_id": "...", "title": "...", "start_bid_price": "1000.00",
//
//	"buy_now_price": "5000.00"?, "ends_at": "2026-09-01T12:00:00Z"}
func (h *AuctionAdminHandler) Create(c *gin.Context) {
	var body struct {
		SellerID      uuid.UUID        `json:"seller_id"       binding:"required"`
		Title         string           `json:"title"           binding:"required"`
		StartBidPrice decimal.Decimal  `json:"start_bid_price" binding:"required"`
		BuyNowPrice   *decimal.Decimal `json:"buy_now_price"`
		EndsAt        time.Time        `json:"ends_at"         binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	now := time.Now().UTC()
	if !body.EndsAt.After(now) {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TIMES", "ends_at must be in the future")
		return
	}
	if body.StartBidPrice.IsNegative() || body.StartBidPrice.IsZero() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "start_bid_price must be positive")
		return
	}
	if body.BuyNowPrice != nil && body.BuyNowPrice.LessThanOrEqual(body.StartBidPrice) {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "buy_now_price must exceed start_bid_price")
		return
	}

	auction := &domain.Auction{
		ID:            uuid.New(),
		SellerID:      body.SellerID,
		Title:         body.Title,
		StartBidPrice: body.StartBidPrice,
		BuyNowPrice:   body.BuyNowPrice,
		CurrentPrice:  body.StartBidPrice, // no bids yet
		EndsAt:        body.EndsAt.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.auctions.Create(c.Request.Context(), auction); err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, auction)
}

// EndNow godoc
// POST /admin/auctions/:id/end-now
//
// Pulls the deadline to now so the next close run settles the auction with
// whatever bids it has.  Used for listings withdrawn by the seller.
func (h *AuctionAdminHandler) EndNow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid auction id")
		return
	}

	if err = h.auctions.SetEndsAt(c.Request.Context(), id, time.Now().UTC()); err != nil {
		if domain.IsConflict(err) {
			respondError(c, http.StatusConflict, "ERR_AUCTION_CLOSED", "auction already closed")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "ending", "auction_id": id})
}

// RunCloser godoc
// POST /admin/close-run
//
// Triggers one closer pass immediately instead of waiting for the scheduler
// tick.  Safe to call while the scheduler runs: in-flight auctions are
// skipped, already-closed ones are no-ops.
func (h *AuctionAdminHandler) RunCloser(c *gin.Context) {
	closed, err := h.closerSvc.ProcessExpiredAuctions(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"closed": closed})
}
