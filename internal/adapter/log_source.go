package adapter

import (
	"context"
	"fmt"

	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
)

// LogSource defines the interface for chain log providers
type LogSource interface {
	// GetLatestBlockNumber returns the chain head block number
	// Returns error if provider request fails
	GetLatestBlockNumber(ctx context.Context) (uint64, error)

	// GetLogs retrieves logs emitted in [fromBlock, toBlock] inclusive,
	// in ascending (blockNumber, logIndex) order. topics filters on topic0;
	// empty means all logs.
	// Returns error if provider request fails
	GetLogs(ctx context.Context, fromBlock, toBlock uint64, topics []string) ([]models.EventLog, error)

	// GetChainID returns the chain identifier
	GetChainID() types.ChainID

	// Close releases the underlying connection
	Close()
}

// Common error types for log sources

var (
	// ErrProviderUnavailable indicates the data provider is unavailable
	ErrProviderUnavailable = fmt.Errorf("data provider unavailable")

	// ErrProviderRateLimit indicates the provider rate limit was exceeded
	ErrProviderRateLimit = fmt.Errorf("provider rate limit exceeded")

	// ErrProviderTimeout indicates the provider request timed out
	ErrProviderTimeout = fmt.Errorf("provider request timeout")

	// ErrInvalidBlockRange indicates an invalid block range was specified
	ErrInvalidBlockRange = fmt.Errorf("invalid block range")
)

// AdapterError wraps errors with additional context
type AdapterError struct {
	Chain   types.ChainID
	Op      string // Operation that failed (e.g., "GetLogs", "GetLatestBlockNumber")
	Err     error
	Details map[string]interface{}
}

func (e *AdapterError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("log source error [%s:%s]: %v (details: %+v)", e.Chain, e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("log source error [%s:%s]: %v", e.Chain, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(chain types.ChainID, op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Chain:   chain,
		Op:      op,
		Err:     err,
		Details: details,
	}
}
