// Package pricefeed fetches the current ETH/USD price and records samples
// for USD-denominated bid fields. The feed is best effort: a failed fetch is
// logged and the pipeline continues with the last known sample.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/storage"
	"github.com/shopspring/decimal"
)

const latestPriceCacheTTL = 5 * time.Minute

// SampleStore persists price samples
type SampleStore interface {
	Insert(ctx context.Context, sample *models.EthPriceSample) error
	Latest(ctx context.Context) (*models.EthPriceSample, error)
}

// Client fetches USD prices from an HTTP feed
type Client struct {
	feedURL string
	store   SampleStore
	cache   *storage.RedisCache
	http    *http.Client
	logger  *logging.Logger
}

// NewClient creates a price feed client. cache may be nil.
func NewClient(feedURL string, store SampleStore, cache *storage.RedisCache) *Client {
	return &Client{
		feedURL: feedURL,
		store:   store,
		cache:   cache,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logging.GetGlobalLogger().WithField("component", "pricefeed"),
	}
}

// feedResponse matches the Coingecko simple-price payload shape
type feedResponse struct {
	Ethereum struct {
		USD float64 `json:"usd"`
	} `json:"ethereum"`
}

// Refresh fetches the current price, appends a sample and updates the cache
func (c *Client) Refresh(ctx context.Context) error {
	price, err := c.fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}

	sample := &models.EthPriceSample{
		Timestamp: time.Now().UTC(),
		Price:     price,
	}
	if err := c.store.Insert(ctx, sample); err != nil {
		return fmt.Errorf("failed to store price sample: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.SetLatestEthPrice(ctx, price, latestPriceCacheTTL); err != nil {
			c.logger.WithError(err).Warn("Failed to cache latest price")
		}
	}

	c.logger.WithField("price", price).Debug("Recorded price sample")
	return nil
}

// LatestUSD returns the most recent known price, consulting the cache before
// the sample store. ok is false when no sample exists yet.
func (c *Client) LatestUSD(ctx context.Context) (string, bool) {
	if c.cache != nil {
		if price, ok := c.cache.GetLatestEthPrice(ctx); ok {
			return price, true
		}
	}

	sample, err := c.store.Latest(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read latest price sample")
		return "", false
	}
	if sample == nil {
		return "", false
	}
	return sample.Price, true
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed feedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Ethereum.USD <= 0 {
		return "", fmt.Errorf("feed returned non-positive price %v", parsed.Ethereum.USD)
	}

	return decimal.NewFromFloat(parsed.Ethereum.USD).String(), nil
}
