package models

import (
	"time"

	"github.com/auction-indexer/internal/types"
)

// Bid is the read-model row for a submitted bid. Identity is (AuctionID,
// BidID); amounts are decimal strings normalized to the owning auction's
// currency decimals, and MaxPrice is display-ready (no further scaling
// required by consumers).
type Bid struct {
	AuctionID    string          `json:"auctionId"`
	BidID        string          `json:"bidId"`
	Address      string          `json:"address"`
	MaxPrice     string          `json:"maxPrice"`
	Amount       string          `json:"amount"`
	AmountUsd    *string         `json:"amountUsd,omitempty"`
	FilledAmount string          `json:"filledAmount"`
	ExitedAmount string          `json:"exitedAmount"`
	Status       types.BidStatus `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
