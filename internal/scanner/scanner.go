// Package scanner orchestrates batched log retrieval per chain and drives
// the decoder and reducer over each retrieved log.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auction-indexer/internal/adapter"
	"github.com/auction-indexer/internal/decoder"
	"github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/reducer"
	"github.com/auction-indexer/internal/registry"
	"github.com/auction-indexer/internal/types"
)

// CursorStore persists per-chain scan progress
type CursorStore interface {
	GetLatestScannedBlock(ctx context.Context, chain types.ChainID) (uint64, bool, error)
	UpdateLatestScannedBlock(ctx context.Context, chain types.ChainID, block uint64) error
}

// EventArchive receives decoded events for the append-only audit trail.
// Best effort: archive failures never affect scan progress.
type EventArchive interface {
	BatchInsert(ctx context.Context, events []*models.ArchivedEvent) error
}

// maxErrorMessages caps per-chain error message collection so a pathological
// batch cannot balloon the run summary
const maxErrorMessages = 20

// ScanResult aggregates one chain's scan over a block range
type ScanResult struct {
	BlocksScanned uint64   `json:"blocksScanned"`
	Processed     int      `json:"processed"`
	Errors        int      `json:"errors"`
	ErrorMessages []string `json:"errorMessages,omitempty"`
}

// Scanner scans block ranges for one run
type Scanner struct {
	reducer *reducer.Reducer
	cursors CursorStore
	archive EventArchive
	logger  *logging.Logger
}

// NewScanner creates a scanner. archive may be nil.
func NewScanner(r *reducer.Reducer, cursors CursorStore, archive EventArchive) *Scanner {
	return &Scanner{
		reducer: r,
		cursors: cursors,
		archive: archive,
		logger:  logging.GetGlobalLogger().WithField("component", "scanner"),
	}
}

// ScanBlocks partitions [startBlock, endBlock] into ascending batches of at
// most batchSize blocks, applies every matching log, and commits the cursor
// after each fully applied batch. A single log's failure is counted, never
// fatal; an upstream provider failure aborts the remaining batches of this
// chain only, leaving the cursor at the last committed batch.
func (s *Scanner) ScanBlocks(ctx context.Context, chain types.ChainID, source adapter.LogSource, catalog *registry.Catalog, startBlock, endBlock uint64, batchSize uint64) (*ScanResult, error) {
	result := &ScanResult{}

	if batchSize == 0 {
		batchSize = 1
	}

	topics := catalog.Topics()

	for from := startBlock; from <= endBlock; {
		to := from + batchSize - 1
		if to > endBlock || to < from {
			to = endBlock
		}

		logs, err := source.GetLogs(ctx, from, to, topics)
		if err != nil {
			return result, errors.NewProviderError(chain, "GetLogs", err)
		}

		s.applyBatch(ctx, chain, catalog, logs, result)

		if err := s.cursors.UpdateLatestScannedBlock(ctx, chain, to); err != nil {
			return result, errors.NewDatabaseError("UpdateLatestScannedBlock", err)
		}
		result.BlocksScanned += to - from + 1

		s.logger.WithFields(map[string]interface{}{
			"chain":     string(chain),
			"fromBlock": from,
			"toBlock":   to,
			"logs":      len(logs),
		}).Debug("Committed batch")

		if to == endBlock {
			break
		}
		from = to + 1
	}

	return result, nil
}

// applyBatch decodes and dispatches every log of one batch. Unknown topics
// are skipped; per-log failures are counted and do not block later logs.
func (s *Scanner) applyBatch(ctx context.Context, chain types.ChainID, catalog *registry.Catalog, logs []models.EventLog, result *ScanResult) {
	archived := make([]*models.ArchivedEvent, 0, len(logs))

	for i := range logs {
		log := &logs[i]

		topic, ok := catalog.Lookup(log.Topic0())
		if !ok {
			continue
		}

		event := decoder.Decode(topic, log)

		ec := &reducer.Context{
			Chain:           chain,
			ContractAddress: log.Address,
			BlockNumber:     log.BlockNumber,
			TxHash:          log.TxHash,
			LogIndex:        log.LogIndex,
			EventName:       event.EventName,
			Params:          event.Params,
		}

		if err := s.reducer.ProcessEvent(ctx, ec); err != nil {
			result.Errors++
			if len(result.ErrorMessages) < maxErrorMessages {
				result.ErrorMessages = append(result.ErrorMessages,
					fmt.Sprintf("%s block %d log %d: %v", event.EventName, log.BlockNumber, log.LogIndex, err))
			}
			s.logger.WithFields(map[string]interface{}{
				"chain":       string(chain),
				"event":       event.EventName,
				"blockNumber": log.BlockNumber,
				"txHash":      log.TxHash,
			}).WithError(err).Warn("Event handler failed")
			continue
		}

		result.Processed++
		archived = append(archived, archiveRow(chain, log, &event))
	}

	s.archiveEvents(ctx, chain, archived)
}

// archiveEvents ships decoded events to the archive, logging failures
// without affecting the scan
func (s *Scanner) archiveEvents(ctx context.Context, chain types.ChainID, events []*models.ArchivedEvent) {
	if s.archive == nil || len(events) == 0 {
		return
	}
	if err := s.archive.BatchInsert(ctx, events); err != nil {
		s.logger.WithField("chain", string(chain)).WithError(err).Warn("Failed to archive decoded events")
	}
}

func archiveRow(chain types.ChainID, log *models.EventLog, event *models.DecodedEvent) *models.ArchivedEvent {
	params := "{}"
	if len(event.Params) > 0 {
		if raw, err := json.Marshal(event.Params); err == nil {
			params = string(raw)
		}
	}
	return &models.ArchivedEvent{
		Chain:       chain,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Contract:    log.Address,
		EventName:   event.EventName,
		Params:      params,
		IndexedAt:   time.Now().UTC(),
	}
}
