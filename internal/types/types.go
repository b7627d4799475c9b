// Package types provides common type definitions for the auction indexer system.
package types

// ChainID represents supported blockchain networks
type ChainID string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainID = "ethereum"
	// ChainPolygon represents the Polygon network
	ChainPolygon ChainID = "polygon"
	// ChainArbitrum represents the Arbitrum network
	ChainArbitrum ChainID = "arbitrum"
	// ChainOptimism represents the Optimism network
	ChainOptimism ChainID = "optimism"
	// ChainBase represents the Base network
	ChainBase ChainID = "base"
	// ChainBNB represents the BNB Chain (BSC)
	ChainBNB ChainID = "bnb"
)

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	// AuctionCreated is the initial state set by an AuctionCreated event
	AuctionCreated AuctionStatus = "created"
	// AuctionPlanned means the auction contract has received its tokens
	AuctionPlanned AuctionStatus = "planned"
	// AuctionActive means bidding is open
	AuctionActive AuctionStatus = "active"
	// AuctionGraduated means the auction met its target
	AuctionGraduated AuctionStatus = "graduated"
	// AuctionClaimable means settled tokens can be claimed
	AuctionClaimable AuctionStatus = "claimable"
	// AuctionEnded means the auction closed without graduating
	AuctionEnded AuctionStatus = "ended"
)

// BidStatus represents the settlement state of a bid
type BidStatus string

const (
	// BidOpen is the initial state of a submitted bid
	BidOpen BidStatus = "open"
	// BidPartiallyFilled means part of the bid amount has settled
	BidPartiallyFilled BidStatus = "partially_filled"
	// BidFilled means the full bid amount has settled
	BidFilled BidStatus = "filled"
	// BidExited means the bidder withdrew the unfilled remainder
	BidExited BidStatus = "exited"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
