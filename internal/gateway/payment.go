package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/mezatapp/mezat/internal/config"
	"github.com/shopspring/decimal"
)

// PaymentClient initiates settlements against the external payment service.
// Settlement is a side effect of closing an auction: it runs before the close
// is committed, so a failure here leaves the auction open for a later retry.
// The Idempotency-Key header makes those retries safe on the payment side.
type PaymentClient struct {
	client  *http.Client
	baseURL string
}

// NewPaymentClient constructs a PaymentClient from the given config.
func NewPaymentClient(cfg *config.PaymentConfig) *PaymentClient {
	return &PaymentClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}
}

// settlementRequest is the wire payload for POST /settlements.
type settlementRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	WinnerID  uuid.UUID       `json:"winner_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// InitiateSettlement asks the payment service to start collecting the final
// price from the winner.  The auction ID doubles as the idempotency key, so
// re-initiating after a partial close failure is a no-op downstream.
func (pc *PaymentClient) InitiateSettlement(ctx context.Context, auctionID, winnerID uuid.UUID, amount decimal.Decimal) error {
	payload, err := json.Marshal(settlementRequest{
		AuctionID: auctionID,
		WinnerID:  winnerID,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Errorf("gateway.InitiateSettlement: marshal: %w", err)
	}

	url := pc.baseURL + "/settlements"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gateway.InitiateSettlement: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", auctionID.String())

	resp, err := pc.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway.InitiateSettlement: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway.InitiateSettlement: unexpected status %d: %s", resp.StatusCode, body)
	}
	return nil
}
