// Package models defines the persistent data structures of the auction indexer.
package models

import (
	"time"

	"github.com/auction-indexer/internal/types"
)

// TokenInfo describes the token being auctioned.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	Icon     string `json:"icon,omitempty"`
}

// Auction is the read-model row derived from on-chain auction events.
// Identity is (Chain, Address) with Address stored lower-cased; rows are
// never deleted.
type Auction struct {
	ID                   string              `json:"id"`
	Chain                types.ChainID       `json:"chain"`
	Address              string              `json:"address"`
	Status               types.AuctionStatus `json:"status"`
	Currency             string              `json:"currency"`
	CurrencyDecimals     int                 `json:"currencyDecimals"`
	TokenAddress         string              `json:"tokenAddress"`
	Token                TokenInfo           `json:"token"`
	FloorPrice           string              `json:"floorPrice"`
	CurrentClearingPrice string              `json:"currentClearingPrice"`
	CollectedAmount      string              `json:"collectedAmount"`
	TargetAmount         string              `json:"targetAmount"`
	StartTime            *time.Time          `json:"startTime,omitempty"`
	EndTime              *time.Time          `json:"endTime,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}
