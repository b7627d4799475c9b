package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EVM address regex pattern (0x followed by 40 hexadecimal characters)
var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// AuctionRepository handles auction read-model persistence
type AuctionRepository struct {
	db *PostgresDB
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(db *PostgresDB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// ValidateAddress validates an EVM address format
func ValidateAddress(address string) error {
	if !evmAddressRegex.MatchString(address) {
		return &types.ServiceError{
			Code:    "INVALID_ADDRESS_FORMAT",
			Message: fmt.Sprintf("invalid address format: %s (must be 0x followed by 40 hexadecimal characters)", address),
			Details: map[string]any{
				"address": address,
				"format":  "0x[a-fA-F0-9]{40}",
			},
		}
	}
	return nil
}

const auctionColumns = `
	id, chain, address, status, currency, currency_decimals,
	token_address, token_symbol, token_name, token_decimals, token_icon,
	floor_price, current_clearing_price, collected_amount, target_amount,
	start_time, end_time, created_at, updated_at
`

// InsertIfAbsent inserts a new auction keyed by (chain, lower(address)).
// Returns false when the key already exists; replays are no-ops, never
// errors.
func (r *AuctionRepository) InsertIfAbsent(ctx context.Context, auction *models.Auction) (bool, error) {
	if err := ValidateAddress(auction.Address); err != nil {
		return false, err
	}
	auction.Address = strings.ToLower(auction.Address)
	if auction.ID == "" {
		auction.ID = uuid.NewString()
	}

	query := `
		INSERT INTO auctions (
			id, chain, address, status, currency, currency_decimals,
			token_address, token_symbol, token_name, token_decimals, token_icon,
			floor_price, current_clearing_price, collected_amount, target_amount,
			start_time, end_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		ON CONFLICT (chain, address) DO NOTHING
	`

	result, err := r.db.Pool().Exec(ctx, query,
		auction.ID,
		auction.Chain,
		auction.Address,
		auction.Status,
		strings.ToLower(auction.Currency),
		auction.CurrencyDecimals,
		strings.ToLower(auction.TokenAddress),
		auction.Token.Symbol,
		auction.Token.Name,
		auction.Token.Decimals,
		auction.Token.Icon,
		auction.FloorPrice,
		auction.CurrentClearingPrice,
		auction.CollectedAmount,
		auction.TargetAmount,
		auction.StartTime,
		auction.EndTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, apperrors.NewPersistenceConflict("auction", fmt.Sprintf("%s/%s", auction.Chain, auction.Address))
		}
		return false, fmt.Errorf("failed to insert auction: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Get retrieves an auction by chain and address, or nil when absent
func (r *AuctionRepository) Get(ctx context.Context, chain types.ChainID, address string) (*models.Auction, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	address = strings.ToLower(address)

	query := `SELECT` + auctionColumns + `FROM auctions WHERE chain = $1 AND address = $2`

	var a models.Auction
	err := r.db.Pool().QueryRow(ctx, query, chain, address).Scan(
		&a.ID,
		&a.Chain,
		&a.Address,
		&a.Status,
		&a.Currency,
		&a.CurrencyDecimals,
		&a.TokenAddress,
		&a.Token.Symbol,
		&a.Token.Name,
		&a.Token.Decimals,
		&a.Token.Icon,
		&a.FloorPrice,
		&a.CurrentClearingPrice,
		&a.CollectedAmount,
		&a.TargetAmount,
		&a.StartTime,
		&a.EndTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &a, nil
}

// UpdateStatusIf transitions the auction's status only when it currently has
// the expected status. Returns false when the auction is absent or already
// past the expected state; idempotent under redelivery.
func (r *AuctionRepository) UpdateStatusIf(ctx context.Context, chain types.ChainID, address string, expected, next types.AuctionStatus) (bool, error) {
	if err := ValidateAddress(address); err != nil {
		return false, err
	}
	address = strings.ToLower(address)

	query := `
		UPDATE auctions
		SET status = $4, updated_at = NOW()
		WHERE chain = $1 AND address = $2 AND status = $3
	`
	result, err := r.db.Pool().Exec(ctx, query, chain, address, expected, next)
	if err != nil {
		return false, fmt.Errorf("failed to update auction status: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdatePricing stores absolute clearing price and collected amount values.
// Absolute values keep redelivery safe; deltas are never accumulated.
func (r *AuctionRepository) UpdatePricing(ctx context.Context, chain types.ChainID, address, clearingPrice, collectedAmount string) (bool, error) {
	if err := ValidateAddress(address); err != nil {
		return false, err
	}
	address = strings.ToLower(address)

	query := `
		UPDATE auctions
		SET current_clearing_price = $3, collected_amount = $4, updated_at = NOW()
		WHERE chain = $1 AND address = $2
	`
	result, err := r.db.Pool().Exec(ctx, query, chain, address, clearingPrice, collectedAmount)
	if err != nil {
		return false, fmt.Errorf("failed to update auction pricing: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
