package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/auction-indexer/internal/models"
	"github.com/jackc/pgx/v5"
)

// PriceRepository appends USD price samples and serves the latest one
type PriceRepository struct {
	db *PostgresDB
}

// NewPriceRepository creates a new price sample repository
func NewPriceRepository(db *PostgresDB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Insert appends a price sample
func (r *PriceRepository) Insert(ctx context.Context, sample *models.EthPriceSample) error {
	query := `INSERT INTO eth_prices (sampled_at, price) VALUES ($1, $2)`

	_, err := r.db.Pool().Exec(ctx, query, sample.Timestamp, sample.Price)
	if err != nil {
		return fmt.Errorf("failed to insert price sample: %w", err)
	}
	return nil
}

// Latest returns the most recent price sample, or nil when none exist
func (r *PriceRepository) Latest(ctx context.Context) (*models.EthPriceSample, error) {
	query := `SELECT sampled_at, price FROM eth_prices ORDER BY sampled_at DESC LIMIT 1`

	var s models.EthPriceSample
	err := r.db.Pool().QueryRow(ctx, query).Scan(&s.Timestamp, &s.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price sample: %w", err)
	}
	return &s, nil
}
