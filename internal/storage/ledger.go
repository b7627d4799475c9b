package storage

import (
	"context"

	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
)

// Ledger bundles the auction and bid repositories behind a single facade so
// the event handlers can be wired against one dependency.
type Ledger struct {
	auctions *AuctionRepository
	bids     *BidRepository
}

// NewLedger creates a ledger backed by Postgres
func NewLedger(db *PostgresDB) *Ledger {
	return &Ledger{
		auctions: NewAuctionRepository(db),
		bids:     NewBidRepository(db),
	}
}

// Auctions returns the underlying auction repository
func (l *Ledger) Auctions() *AuctionRepository {
	return l.auctions
}

// Bids returns the underlying bid repository
func (l *Ledger) Bids() *BidRepository {
	return l.bids
}

func (l *Ledger) InsertAuctionIfAbsent(ctx context.Context, auction *models.Auction) (bool, error) {
	return l.auctions.InsertIfAbsent(ctx, auction)
}

func (l *Ledger) GetAuction(ctx context.Context, chain types.ChainID, address string) (*models.Auction, error) {
	return l.auctions.Get(ctx, chain, address)
}

func (l *Ledger) UpdateAuctionStatusIf(ctx context.Context, chain types.ChainID, address string, expected, next types.AuctionStatus) (bool, error) {
	return l.auctions.UpdateStatusIf(ctx, chain, address, expected, next)
}

func (l *Ledger) UpdateAuctionPricing(ctx context.Context, chain types.ChainID, address, clearingPrice, collectedAmount string) (bool, error) {
	return l.auctions.UpdatePricing(ctx, chain, address, clearingPrice, collectedAmount)
}

func (l *Ledger) InsertBidIfAbsent(ctx context.Context, bid *models.Bid) (bool, error) {
	return l.bids.InsertIfAbsent(ctx, bid)
}

func (l *Ledger) GetBid(ctx context.Context, auctionID, bidID string) (*models.Bid, error) {
	return l.bids.Get(ctx, auctionID, bidID)
}

func (l *Ledger) UpdateBidSettlement(ctx context.Context, auctionID, bidID, filledAmount, exitedAmount string, status types.BidStatus) (bool, error) {
	return l.bids.UpdateSettlement(ctx, auctionID, bidID, filledAmount, exitedAmount, status)
}
