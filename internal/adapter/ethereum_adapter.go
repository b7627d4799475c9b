package adapter

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/auction-indexer/internal/circuitbreaker"
	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/retry"
	"github.com/auction-indexer/internal/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// EthereumAdapter implements LogSource for Ethereum and EVM-compatible chains
type EthereumAdapter struct {
	chainID  types.ChainID
	provider DataProvider
	limiter  *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	logger   *logging.Logger

	mu     sync.Mutex
	client *ethclient.Client
}

// EthereumAdapterConfig holds configuration for creating an EthereumAdapter
type EthereumAdapterConfig struct {
	// ChainID is the chain identifier. Required.
	ChainID types.ChainID

	// Provider selects the RPC endpoint and tracks health. Required.
	Provider DataProvider

	// RequestsPerSecond throttles RPC calls. Zero disables throttling.
	RequestsPerSecond float64
}

// NewEthereumAdapter creates a new Ethereum log source
func NewEthereumAdapter(cfg *EthereumAdapterConfig) (*EthereumAdapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	rpcURL, err := cfg.Provider.GetPrimaryURL()
	if err != nil {
		return nil, fmt.Errorf("failed to get primary RPC URL: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, NewAdapterError(cfg.ChainID, "NewEthereumAdapter", err, map[string]interface{}{
			"rpcURL": rpcURL,
		})
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &EthereumAdapter{
		chainID:  cfg.ChainID,
		provider: cfg.Provider,
		limiter:  limiter,
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(fmt.Sprintf("rpc-%s", cfg.ChainID))),
		logger:   logging.GetGlobalLogger().WithField("chain", string(cfg.ChainID)),
		client:   client,
	}, nil
}

// GetChainID returns the chain identifier
func (a *EthereumAdapter) GetChainID() types.ChainID {
	return a.chainID
}

// GetLatestBlockNumber returns the chain head block number
func (a *EthereumAdapter) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	var blockNum uint64

	err := a.execute(ctx, "GetLatestBlockNumber", func(client *ethclient.Client) error {
		var err error
		blockNum, err = client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, NewAdapterError(a.chainID, "GetLatestBlockNumber", err, nil)
	}

	return blockNum, nil
}

// GetLogs retrieves logs emitted in [fromBlock, toBlock] inclusive, ordered
// by ascending block number and log index.
func (a *EthereumAdapter) GetLogs(ctx context.Context, fromBlock, toBlock uint64, topics []string) ([]models.EventLog, error) {
	if fromBlock > toBlock {
		return nil, NewAdapterError(a.chainID, "GetLogs", ErrInvalidBlockRange, map[string]interface{}{
			"fromBlock": fromBlock,
			"toBlock":   toBlock,
		})
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
	}

	if len(topics) > 0 {
		topic0 := make([]common.Hash, 0, len(topics))
		for _, t := range topics {
			topic0 = append(topic0, common.HexToHash(t))
		}
		query.Topics = [][]common.Hash{topic0}
	}

	var rawLogs []ethtypes.Log
	err := a.execute(ctx, "GetLogs", func(client *ethclient.Client) error {
		var err error
		rawLogs, err = client.FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, NewAdapterError(a.chainID, "GetLogs", err, map[string]interface{}{
			"fromBlock": fromBlock,
			"toBlock":   toBlock,
		})
	}

	logs := make([]models.EventLog, 0, len(rawLogs))
	for _, l := range rawLogs {
		if l.Removed {
			continue
		}
		logs = append(logs, normalizeLog(l))
	}

	// FilterLogs returns ascending order; keep the guarantee explicit
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].LogIndex < logs[j].LogIndex
	})

	return logs, nil
}

// normalizeLog converts a go-ethereum log entry to the common format
func normalizeLog(l ethtypes.Log) models.EventLog {
	topics := make([]string, 0, len(l.Topics))
	for _, t := range l.Topics {
		topics = append(topics, strings.ToLower(t.Hex()))
	}

	return models.EventLog{
		Address:     strings.ToLower(l.Address.Hex()),
		Topics:      topics,
		Data:        hexutil.Encode(l.Data),
		BlockNumber: l.BlockNumber,
		TxHash:      strings.ToLower(l.TxHash.Hex()),
		LogIndex:    l.Index,
	}
}

// execute runs an RPC call through the rate limiter, circuit breaker and
// retry policy, failing over to the secondary endpoint when the primary
// looks unreachable.
func (a *EthereumAdapter) execute(ctx context.Context, op string, fn func(client *ethclient.Client) error) error {
	return retry.WithRetry(ctx, func(ctx context.Context, attempt int) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		err := a.breaker.Execute(ctx, func() error {
			return fn(a.currentClient())
		})
		if err == nil {
			a.provider.RecordSuccess(time.Since(start))
			return nil
		}

		a.provider.RecordFailure(err)

		if sentinel := classifyProviderError(err); sentinel != nil {
			if failErr := a.failover(); failErr != nil {
				a.logger.WithError(failErr).Warnf("Failover unavailable for %s", op)
			} else {
				a.logger.Warnf("Failed over to secondary RPC endpoint for %s", op)
			}
			err = fmt.Errorf("%w: %v", sentinel, err)
		}

		return err
	})
}

func (a *EthereumAdapter) currentClient() *ethclient.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// failover switches the provider endpoint and redials the client
func (a *EthereumAdapter) failover() error {
	if err := a.provider.Failover(); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	rpcURL, err := a.provider.GetCurrentURL()
	if err != nil {
		return err
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return fmt.Errorf("failed to dial failover endpoint: %w", err)
	}

	a.mu.Lock()
	old := a.client
	a.client = client
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}

	return nil
}

// classifyProviderError maps an RPC error to the matching provider sentinel,
// or nil when the error does not warrant switching providers. RPC clients
// surface these conditions as message text only, so classification is by
// substring.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") {
		return ErrProviderRateLimit
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return ErrProviderTimeout
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") {
		return ErrProviderUnavailable
	}

	return nil
}

// Close closes the underlying client connection
func (a *EthereumAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		a.client.Close()
	}
}
