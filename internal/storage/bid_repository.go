package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
	"github.com/jackc/pgx/v5"
)

// BidRepository handles bid read-model persistence
type BidRepository struct {
	db *PostgresDB
}

// NewBidRepository creates a new bid repository
func NewBidRepository(db *PostgresDB) *BidRepository {
	return &BidRepository{db: db}
}

// InsertIfAbsent inserts a new bid keyed by (auction_id, bid_id). Returns
// false when the key already exists; replays are no-ops, never errors.
func (r *BidRepository) InsertIfAbsent(ctx context.Context, bid *models.Bid) (bool, error) {
	if err := ValidateAddress(bid.Address); err != nil {
		return false, err
	}
	bid.Address = strings.ToLower(bid.Address)

	query := `
		INSERT INTO bids (
			auction_id, bid_id, address, max_price, amount, amount_usd,
			filled_amount, exited_amount, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (auction_id, bid_id) DO NOTHING
	`

	result, err := r.db.Pool().Exec(ctx, query,
		bid.AuctionID,
		bid.BidID,
		bid.Address,
		bid.MaxPrice,
		bid.Amount,
		bid.AmountUsd,
		bid.FilledAmount,
		bid.ExitedAmount,
		bid.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, apperrors.NewPersistenceConflict("bid", fmt.Sprintf("%s/%s", bid.AuctionID, bid.BidID))
		}
		return false, fmt.Errorf("failed to insert bid: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Get retrieves a bid by its (auctionID, bidID) key, or nil when absent
func (r *BidRepository) Get(ctx context.Context, auctionID, bidID string) (*models.Bid, error) {
	query := `
		SELECT auction_id, bid_id, address, max_price, amount, amount_usd,
			   filled_amount, exited_amount, status, created_at, updated_at
		FROM bids
		WHERE auction_id = $1 AND bid_id = $2
	`

	var b models.Bid
	err := r.db.Pool().QueryRow(ctx, query, auctionID, bidID).Scan(
		&b.AuctionID,
		&b.BidID,
		&b.Address,
		&b.MaxPrice,
		&b.Amount,
		&b.AmountUsd,
		&b.FilledAmount,
		&b.ExitedAmount,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &b, nil
}

// UpdateSettlement stores absolute filled/exited amounts and the resulting
// status. Absolute values keep redelivery safe; deltas are never
// accumulated. Returns false when the bid is absent.
func (r *BidRepository) UpdateSettlement(ctx context.Context, auctionID, bidID, filledAmount, exitedAmount string, status types.BidStatus) (bool, error) {
	query := `
		UPDATE bids
		SET filled_amount = $3, exited_amount = $4, status = $5, updated_at = NOW()
		WHERE auction_id = $1 AND bid_id = $2
	`
	result, err := r.db.Pool().Exec(ctx, query, auctionID, bidID, filledAmount, exitedAmount, status)
	if err != nil {
		return false, fmt.Errorf("failed to update bid settlement: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
