// Package main provides the API server entry point for the auction indexer service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/auction-indexer/internal/adapter"
	"github.com/auction-indexer/internal/api"
	"github.com/auction-indexer/internal/config"
	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/pricefeed"
	"github.com/auction-indexer/internal/reducer"
	"github.com/auction-indexer/internal/registry"
	"github.com/auction-indexer/internal/scanner"
	"github.com/auction-indexer/internal/storage"
	"github.com/auction-indexer/internal/types"
)

func main() {
	fmt.Println("Auction Indexer API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	// Connect to Postgres
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Connect to ClickHouse
	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	// Connect to Redis
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize log sources
	logger.Info("Initializing chain log sources...")
	sources := make(map[types.ChainID]adapter.LogSource)

	for _, chainName := range cfg.Chains.Enabled {
		chainCfg, ok := cfg.Chains.Chains[chainName]
		if !ok || chainCfg.RPCPrimary == "" {
			logger.WithField("chain", chainName).Warn("Skipping chain: no RPC endpoint configured")
			continue
		}

		chainID, ok := resolveChainID(chainName)
		if !ok {
			logger.WithField("chain", chainName).Warn("Skipping unknown chain")
			continue
		}

		// Create data provider with failover
		provider, err := adapter.NewRPCProvider(chainCfg.RPCPrimary, chainCfg.RPCSecondary)
		if err != nil {
			logger.WithError(err).WithField("chain", chainName).Warn("Failed to create provider for chain")
			continue
		}

		source, err := adapter.NewEthereumAdapter(&adapter.EthereumAdapterConfig{
			ChainID:           chainID,
			Provider:          provider,
			RequestsPerSecond: chainCfg.RequestsPerSecond,
		})
		if err != nil {
			logger.WithError(err).WithField("chain", chainName).Warn("Failed to create log source for chain")
			continue
		}

		sources[chainID] = source
		logger.WithFields(map[string]interface{}{
			"chain": chainName,
			"rpc":   chainCfg.RPCPrimary,
		}).Info("Chain log source initialized")
	}

	if len(sources) == 0 {
		logger.Warn("No chain log sources initialized - scan runs will process nothing")
	}

	// Initialize repositories
	topicRepo := storage.NewEventTopicRepository(postgres)
	cursorRepo := storage.NewCursorRepository(postgres)
	priceRepo := storage.NewPriceRepository(postgres)
	archiveRepo := storage.NewEventArchiveRepository(clickhouse)
	ledger := storage.NewLedger(postgres)

	// Initialize the indexing pipeline
	logger.Info("Initializing indexing pipeline...")

	topicRegistry := registry.NewRegistry(topicRepo, redis, cfg.Registry.CacheTTL)

	var priceClient *pricefeed.Client
	var prices reducer.PriceSource
	var fetcher scanner.PriceFetcher
	if cfg.PriceFeed.Enabled {
		priceClient = pricefeed.NewClient(cfg.PriceFeed.URL, priceRepo, redis)
		prices = priceClient
		fetcher = priceClient
	}

	eventReducer := reducer.NewReducer(ledger, prices)
	blockScanner := scanner.NewScanner(eventReducer, cursorRepo, archiveRepo)
	runner := scanner.NewRunner(blockScanner, topicRegistry, cursorRepo, sources, cfg.Chains, cfg.Scan, fetcher)

	logger.Info("Indexing pipeline initialized")

	// Create server configuration
	serverConfig := api.DefaultServerConfig(&cfg.Server)

	server := api.NewServer(serverConfig, runner, postgres, redis, cfg.Trigger.SharedSecret)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	for _, source := range sources {
		source.Close()
	}

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func resolveChainID(name string) (types.ChainID, bool) {
	switch name {
	case "ethereum":
		return types.ChainEthereum, true
	case "polygon":
		return types.ChainPolygon, true
	case "arbitrum":
		return types.ChainArbitrum, true
	case "optimism":
		return types.ChainOptimism, true
	case "base":
		return types.ChainBase, true
	case "bnb":
		return types.ChainBNB, true
	default:
		return "", false
	}
}
