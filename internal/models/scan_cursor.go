package models

import (
	"time"

	"github.com/auction-indexer/internal/types"
)

// ScanCursor records the last committed block per chain. The committed value
// is monotonic non-decreasing; the next run re-scans the cursor block
// inclusively as a reorg-safety measure.
type ScanCursor struct {
	Chain            types.ChainID `json:"chain"`
	LastScannedBlock uint64        `json:"lastScannedBlock"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// EthPriceSample is an append-only USD price observation; the latest sample
// is used for best-effort USD conversion of bid amounts.
type EthPriceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Price     string    `json:"price"`
}
