package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/auction-indexer/internal/adapter"
	"github.com/auction-indexer/internal/config"
	"github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/registry"
	"github.com/auction-indexer/internal/types"
)

// PriceFetcher refreshes the USD price sample. Best effort: a refresh
// failure never aborts the scan run.
type PriceFetcher interface {
	Refresh(ctx context.Context) error
}

// RunSummary is the structured result of one triggered scan run. The
// trigger endpoint returns it verbatim; it never throws to its caller.
type RunSummary struct {
	ChainsProcessed      int      `json:"chainsProcessed"`
	TotalBlocksScanned   uint64   `json:"totalBlocksScanned"`
	TotalEventsProcessed int      `json:"totalEventsProcessed"`
	TotalErrors          int      `json:"totalErrors"`
	TimedOut             bool     `json:"timedOut"`
	Errors               []string `json:"errors,omitempty"`
	DurationMs           int64    `json:"durationMs"`
}

// Runner executes one scan run across all enabled chains
type Runner struct {
	scanner  *Scanner
	registry *registry.Registry
	cursors  CursorStore
	sources  map[types.ChainID]adapter.LogSource
	chains   config.ChainsConfig
	scanCfg  config.ScanConfig
	prices   PriceFetcher
	logger   *logging.Logger
}

// NewRunner creates a runner. prices may be nil.
func NewRunner(s *Scanner, reg *registry.Registry, cursors CursorStore, sources map[types.ChainID]adapter.LogSource, chains config.ChainsConfig, scanCfg config.ScanConfig, prices PriceFetcher) *Runner {
	return &Runner{
		scanner:  s,
		registry: reg,
		cursors:  cursors,
		sources:  sources,
		chains:   chains,
		scanCfg:  scanCfg,
		prices:   prices,
		logger:   logging.GetGlobalLogger().WithField("component", "runner"),
	}
}

// Run scans every enabled chain sequentially within the configured
// wall-clock budget. Chains are independent: one chain's failure is recorded
// and the remaining chains still run. An error is returned only when the
// run fails before any chain is processed.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}

	r.refreshPrice(ctx)

	catalog, err := r.registry.Load(ctx)
	if err != nil {
		summary.DurationMs = time.Since(start).Milliseconds()
		return summary, fmt.Errorf("failed to load event topic catalog: %w", err)
	}

	for _, chainName := range r.chains.Enabled {
		if r.scanCfg.RunBudget > 0 && time.Since(start) >= r.scanCfg.RunBudget {
			summary.TimedOut = true
			r.logger.WithField("budget", r.scanCfg.RunBudget.String()).Warn("Run budget exceeded, stopping before remaining chains")
			break
		}

		chain := types.ChainID(chainName)
		r.scanChain(ctx, chain, catalog, summary)
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	return summary, nil
}

// scanChain scans one chain's pending block range into the summary
func (r *Runner) scanChain(ctx context.Context, chain types.ChainID, catalog *registry.Catalog, summary *RunSummary) {
	logger := r.logger.WithField("chain", string(chain))

	source, ok := r.sources[chain]
	if !ok {
		logger.Warn("No log source configured, skipping chain")
		return
	}

	startBlock, ok, err := r.resolveStartBlock(ctx, chain)
	if err != nil {
		r.recordChainError(summary, chain, err)
		return
	}
	if !ok {
		logger.Debug("No cursor and no default start block, skipping chain")
		return
	}

	latest, err := source.GetLatestBlockNumber(ctx)
	if err != nil {
		r.recordChainError(summary, chain, err)
		return
	}

	summary.ChainsProcessed++

	if startBlock > latest {
		logger.WithFields(map[string]interface{}{
			"startBlock": startBlock,
			"latest":     latest,
		}).Debug("Cursor at chain head, nothing to scan")
		return
	}

	endBlock := latest
	if r.scanCfg.MaxBlocksPerRun > 0 && endBlock-startBlock+1 > r.scanCfg.MaxBlocksPerRun {
		endBlock = startBlock + r.scanCfg.MaxBlocksPerRun - 1
	}

	result, err := r.scanner.ScanBlocks(ctx, chain, source, catalog, startBlock, endBlock, r.scanCfg.BatchSize)
	summary.TotalBlocksScanned += result.BlocksScanned
	summary.TotalEventsProcessed += result.Processed
	summary.TotalErrors += result.Errors
	summary.Errors = append(summary.Errors, result.ErrorMessages...)
	if err != nil {
		r.recordChainError(summary, chain, err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"startBlock": startBlock,
		"endBlock":   endBlock,
		"processed":  result.Processed,
		"errors":     result.Errors,
	}).Info("Chain scan complete")
}

// resolveStartBlock picks the next scan start: the committed cursor when one
// exists (re-scanning the cursor block for reorg safety), else the chain's
// configured default start block. ok is false when neither exists.
func (r *Runner) resolveStartBlock(ctx context.Context, chain types.ChainID) (uint64, bool, error) {
	cursor, found, err := r.cursors.GetLatestScannedBlock(ctx, chain)
	if err != nil {
		return 0, false, err
	}
	if found {
		return cursor, true, nil
	}

	cfg, ok := r.chains.Chains[string(chain)]
	if !ok || cfg.StartBlock == nil {
		return 0, false, nil
	}
	return *cfg.StartBlock, true, nil
}

func (r *Runner) recordChainError(summary *RunSummary, chain types.ChainID, err error) {
	summary.TotalErrors++
	if len(summary.Errors) < maxErrorMessages {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", chain, err))
	}

	logger := r.logger.WithField("chain", string(chain)).WithError(err)
	switch {
	case errors.IsProviderError(err):
		// Transient upstream failure; the cursor is intact and the next
		// run picks up where this one committed.
		logger.Warn("Provider failed, chain iteration aborted")
	case errors.IsRetryable(err):
		logger.Warn("Chain iteration failed, will retry next run")
	default:
		logger.Error("Chain iteration failed")
	}
}

// refreshPrice updates the USD price sample before scanning, best effort
func (r *Runner) refreshPrice(ctx context.Context) {
	if r.prices == nil {
		return
	}
	if err := r.prices.Refresh(ctx); err != nil {
		r.logger.WithError(err).Warn("Price refresh failed, continuing without fresh sample")
	}
}
