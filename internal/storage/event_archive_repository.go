package storage

import (
	"context"
	"fmt"

	"github.com/auction-indexer/internal/models"
)

// EventArchiveRepository writes decoded events to the ClickHouse archive.
// The archive is append-only and best effort: the read models in Postgres
// remain the source of truth.
type EventArchiveRepository struct {
	db *ClickHouseDB
}

// NewEventArchiveRepository creates a new event archive repository
func NewEventArchiveRepository(db *ClickHouseDB) *EventArchiveRepository {
	return &EventArchiveRepository{db: db}
}

// BatchInsert writes a batch of decoded events to the archive
func (r *EventArchiveRepository) BatchInsert(ctx context.Context, events []*models.ArchivedEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO auction_events (
			chain, block_number, tx_hash, log_index,
			contract, event_name, params, indexed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, e := range events {
		if err := batch.Append(
			string(e.Chain),
			e.BlockNumber,
			e.TxHash,
			uint32(e.LogIndex),
			e.Contract,
			e.EventName,
			e.Params,
			e.IndexedAt,
		); err != nil {
			return fmt.Errorf("failed to append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event batch: %w", err)
	}

	return nil
}
