// Package config provides configuration management for the auction indexer.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Chains    ChainsConfig
	Scan      ScanConfig
	Registry  RegistryConfig
	PriceFeed PriceFeedConfig
	Trigger   TriggerConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration for the event archive
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainsConfig holds chain configuration
type ChainsConfig struct {
	Enabled []string
	Chains  map[string]ChainConfig
}

// ChainConfig holds configuration for a specific chain.
// StartBlock is the deployment block of the auction contracts; a chain with
// no cursor and no start block is skipped, not failed.
type ChainConfig struct {
	RPCPrimary        string
	RPCSecondary      string
	StartBlock        *uint64
	RequestsPerSecond float64
}

// ScanConfig holds scan run configuration
type ScanConfig struct {
	BatchSize       uint64        // max blocks per eth_getLogs batch
	MaxBlocksPerRun uint64        // max block range per chain per run
	RunBudget       time.Duration // wall-clock budget of one triggered run
}

// RegistryConfig holds event topic registry configuration
type RegistryConfig struct {
	CacheTTL time.Duration
}

// PriceFeedConfig holds the best-effort USD price feed configuration
type PriceFeedConfig struct {
	URL     string
	Enabled bool
}

// TriggerConfig holds the scan trigger endpoint configuration
type TriggerConfig struct {
	SharedSecret string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "auction_indexer"),
				User:           getEnv("POSTGRES_USER", "indexer"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "auction_indexer"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Scan: ScanConfig{
			BatchSize:       getEnvAsUint("SCAN_BATCH_SIZE", 2000),
			MaxBlocksPerRun: getEnvAsUint("SCAN_MAX_BLOCKS_PER_RUN", 50000),
			RunBudget:       getEnvAsDuration("SCAN_RUN_BUDGET", 50*time.Second),
		},
		Registry: RegistryConfig{
			CacheTTL: getEnvAsDuration("REGISTRY_CACHE_TTL", 10*time.Minute),
		},
		PriceFeed: PriceFeedConfig{
			URL:     getEnv("PRICE_FEED_URL", ""),
			Enabled: getEnv("PRICE_FEED_URL", "") != "",
		},
		Trigger: TriggerConfig{
			SharedSecret: getEnv("SCAN_SHARED_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Load chain configurations
	config.Chains = loadChainConfigs()

	return config, nil
}

// loadChainConfigs loads chain-specific configurations
func loadChainConfigs() ChainsConfig {
	var enabledChains []string
	for _, chain := range strings.Split(getEnv("ENABLED_CHAINS", "ethereum,base"), ",") {
		chain = strings.TrimSpace(chain)
		if chain == "" {
			continue
		}
		enabledChains = append(enabledChains, chain)
	}

	chains := make(map[string]ChainConfig)
	for _, chain := range enabledChains {

		prefix := strings.ToUpper(chain)
		cfg := ChainConfig{
			RPCPrimary:        getEnv(prefix+"_RPC_PRIMARY", ""),
			RPCSecondary:      getEnv(prefix+"_RPC_SECONDARY", ""),
			RequestsPerSecond: getEnvAsFloat(prefix+"_RPS", 10),
		}
		if raw := getEnv(prefix+"_START_BLOCK", ""); raw != "" {
			if start, err := strconv.ParseUint(raw, 10, 64); err == nil {
				cfg.StartBlock = &start
			}
		}
		chains[chain] = cfg
	}

	return ChainsConfig{
		Enabled: enabledChains,
		Chains:  chains,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsUint gets an environment variable as a uint64 with a default value
func getEnvAsUint(key string, defaultValue uint64) uint64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float64 with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
