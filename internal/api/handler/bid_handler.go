package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/api/middleware"
	"github.com/mezatapp/mezat/internal/domain"
	"github.com/mezatapp/mezat/internal/service"
	"github.com/shopspring/decimal"
)

// BidHandler serves bid submission.
type BidHandler struct {
	bidSvc *service.BidService
}

// NewBidHandler creates a BidHandler.
func NewBidHandler(bidSvc *service.BidService) *BidHandler {
	return &BidHandler{bidSvc: bidSvc}
}

// placeBidBody is the request payload.  The bidder's identity comes from the
// JWT, never from the body.
type placeBidBody struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// PlaceBid godoc
// POST /api/auctions/:id/bids
func (h *BidHandler) PlaceBid(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid auction id")
		return
	}

	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		respondError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", domain.ErrUnauthorized.Error())
		return
	}

	var body placeBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "amount is required")
		return
	}

	receipt, err := h.bidSvc.PlaceBid(c.Request.Context(), domain.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  userID,
		Amount:    body.Amount,
	})
	if err != nil {
		h.respondBidError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, receipt)
}

// respondBidError maps domain rejection reasons onto HTTP status codes.
func (h *BidHandler) respondBidError(c *gin.Context, err error) {
	var tooLow *domain.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		respondBidTooLow(c, tooLow.CurrentPrice)
	case errors.Is(err, domain.ErrBidTooLow):
		respondError(c, http.StatusConflict, "ERR_BID_TOO_LOW", domain.ErrBidTooLow.Error())
	case errors.Is(err, domain.ErrAuctionNotFound):
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrAuctionNotFound.Error())
	case errors.Is(err, domain.ErrAuctionEnded):
		respondError(c, http.StatusConflict, "ERR_AUCTION_ENDED", domain.ErrAuctionEnded.Error())
	case errors.Is(err, domain.ErrAuctionClosed):
		respondError(c, http.StatusConflict, "ERR_AUCTION_CLOSED", domain.ErrAuctionClosed.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", domain.ErrInvalidAmount.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not place bid")
	}
}
