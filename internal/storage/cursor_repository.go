package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/auction-indexer/internal/types"
	"github.com/jackc/pgx/v5"
)

// CursorRepository tracks the last committed scan block per chain
type CursorRepository struct {
	db *PostgresDB
}

// NewCursorRepository creates a new scan cursor repository
func NewCursorRepository(db *PostgresDB) *CursorRepository {
	return &CursorRepository{db: db}
}

// GetLatestScannedBlock returns the committed cursor for a chain. The
// second return value is false when the chain has never been scanned.
func (r *CursorRepository) GetLatestScannedBlock(ctx context.Context, chain types.ChainID) (uint64, bool, error) {
	query := `SELECT last_scanned_block FROM scan_cursors WHERE chain = $1`

	var block int64
	err := r.db.Pool().QueryRow(ctx, query, chain).Scan(&block)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get scan cursor: %w", err)
	}
	return uint64(block), true, nil
}

// UpdateLatestScannedBlock commits the cursor for a chain. The stored value
// is monotonic non-decreasing: a stale commit from a re-scan never moves the
// cursor backwards.
func (r *CursorRepository) UpdateLatestScannedBlock(ctx context.Context, chain types.ChainID, block uint64) error {
	query := `
		INSERT INTO scan_cursors (chain, last_scanned_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (chain)
		DO UPDATE SET
			last_scanned_block = GREATEST(scan_cursors.last_scanned_block, EXCLUDED.last_scanned_block),
			updated_at = NOW()
	`

	_, err := r.db.Pool().Exec(ctx, query, chain, int64(block))
	if err != nil {
		return fmt.Errorf("failed to update scan cursor: %w", err)
	}
	return nil
}
