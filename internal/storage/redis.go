package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auction-indexer/internal/config"
	"github.com/auction-indexer/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	eventTopicsCacheKey = "catalog:event_topics"
	latestEthPriceKey   = "price:eth_usd:latest"
)

// RedisCache wraps the Redis client. It fronts the event topic catalog and
// the latest ETH price sample; accessors are best-effort and callers fall
// through to Postgres on a miss or error.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient wraps an existing client; used by tests with
// miniredis.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetEventTopics returns the cached event topic catalog, or (nil, false) on
// a miss.
func (r *RedisCache) GetEventTopics(ctx context.Context) ([]*models.EventTopic, bool) {
	raw, err := r.client.Get(ctx, eventTopicsCacheKey).Result()
	if err != nil {
		return nil, false
	}

	var topics []*models.EventTopic
	if err := json.Unmarshal([]byte(raw), &topics); err != nil {
		return nil, false
	}
	return topics, true
}

// SetEventTopics caches the event topic catalog with a TTL
func (r *RedisCache) SetEventTopics(ctx context.Context, topics []*models.EventTopic, ttl time.Duration) error {
	raw, err := json.Marshal(topics)
	if err != nil {
		return fmt.Errorf("failed to marshal event topics: %w", err)
	}
	return r.client.Set(ctx, eventTopicsCacheKey, raw, ttl).Err()
}

// InvalidateEventTopics drops the cached catalog
func (r *RedisCache) InvalidateEventTopics(ctx context.Context) error {
	return r.client.Del(ctx, eventTopicsCacheKey).Err()
}

// GetLatestEthPrice returns the cached latest USD price, or ("", false) on a
// miss.
func (r *RedisCache) GetLatestEthPrice(ctx context.Context) (string, bool) {
	price, err := r.client.Get(ctx, latestEthPriceKey).Result()
	if err != nil {
		return "", false
	}
	return price, true
}

// SetLatestEthPrice caches the latest USD price sample
func (r *RedisCache) SetLatestEthPrice(ctx context.Context, price string, ttl time.Duration) error {
	return r.client.Set(ctx, latestEthPriceKey, price, ttl).Err()
}
