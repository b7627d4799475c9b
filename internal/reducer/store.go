package reducer

import (
	"context"

	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
)

// LedgerStore is the persistence boundary for the event handlers. All writes
// are keyed: inserts report whether a row was created, updates report whether
// a row matched, and replays of the same event are no-ops at this layer.
type LedgerStore interface {
	InsertAuctionIfAbsent(ctx context.Context, auction *models.Auction) (bool, error)
	GetAuction(ctx context.Context, chain types.ChainID, address string) (*models.Auction, error)
	UpdateAuctionStatusIf(ctx context.Context, chain types.ChainID, address string, expected, next types.AuctionStatus) (bool, error)
	UpdateAuctionPricing(ctx context.Context, chain types.ChainID, address, clearingPrice, collectedAmount string) (bool, error)

	InsertBidIfAbsent(ctx context.Context, bid *models.Bid) (bool, error)
	GetBid(ctx context.Context, auctionID, bidID string) (*models.Bid, error)
	UpdateBidSettlement(ctx context.Context, auctionID, bidID, filledAmount, exitedAmount string, status types.BidStatus) (bool, error)
}
