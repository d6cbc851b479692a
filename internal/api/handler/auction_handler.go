package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/mezatapp/mezat/internal/repository"
)

// AuctionHandler serves the auction read endpoints.  Auction creation is the
// seller back-office's job and lives outside this service.
type AuctionHandler struct {
	auctions *repository.AuctionRepository
	bids     *repository.BidRepository
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(auctions *repository.AuctionRepository, bids *repository.BidRepository) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, bids: bids}
}

// List godoc
// GET /api/auctions?closed=false&page=1&limit=20
func (h *AuctionHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
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
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list auctions")
		return
	}
	respondList(c, auctions, total, page, limit)
}

// GetByID godoc
// GET /api/auctions/:id
func (h *AuctionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid auction id")
		return
	}

	auction, err := h.auctions.GetByID(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrAuctionNotFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch auction")
		return
	}
	respondSuccess(c, http.StatusOK, auction)
}

// ListBids godoc
// GET /api/auctions/:id/bids?page=1&limit=20
//
// Bids are returned in placement order (placed_at ascending) so a client can
// replay the auction's price progression.
func (h *AuctionHandler) ListBids(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid auction id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	bids, err := h.bids.ListByAuction(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list bids")
		return
	}
	respondList(c, bids, len(bids), page, limit)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
