// Package registry serves the event topic catalog that drives decoding.
// The catalog is reference data: it is loaded once at the start of a scan
// run and held for the whole run, so a mid-run seed change never produces a
// partially decoded batch.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/models"
)

// TopicStore loads the full topic catalog from persistent storage
type TopicStore interface {
	ListAll(ctx context.Context) ([]*models.EventTopic, error)
}

// TopicCache fronts the store with a shared cache. Implementations are
// best-effort; a miss or error falls through to the store.
type TopicCache interface {
	GetEventTopics(ctx context.Context) ([]*models.EventTopic, bool)
	SetEventTopics(ctx context.Context, topics []*models.EventTopic, ttl time.Duration) error
}

// Registry loads topic catalogs
type Registry struct {
	store    TopicStore
	cache    TopicCache
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewRegistry creates a registry backed by the given store. cache may be nil.
func NewRegistry(store TopicStore, cache TopicCache, cacheTTL time.Duration) *Registry {
	return &Registry{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logging.GetGlobalLogger().WithField("component", "registry"),
	}
}

// Load returns a catalog snapshot for one scan run
func (r *Registry) Load(ctx context.Context) (*Catalog, error) {
	if r.cache != nil {
		if topics, ok := r.cache.GetEventTopics(ctx); ok {
			return newCatalog(topics), nil
		}
	}

	topics, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetEventTopics(ctx, topics, r.cacheTTL); err != nil {
			r.logger.WithError(err).Warn("Failed to cache event topic catalog")
		}
	}

	return newCatalog(topics), nil
}

// Catalog is an immutable topic0 lookup table
type Catalog struct {
	byTopic map[string]*models.EventTopic
}

func newCatalog(topics []*models.EventTopic) *Catalog {
	byTopic := make(map[string]*models.EventTopic, len(topics))
	for _, t := range topics {
		byTopic[strings.ToLower(t.Topic0)] = t
	}
	return &Catalog{byTopic: byTopic}
}

// Lookup returns the topic entry for a topic0 hash, comparing
// case-insensitively. Returns (nil, false) for unknown topics.
func (c *Catalog) Lookup(topic0 string) (*models.EventTopic, bool) {
	t, ok := c.byTopic[strings.ToLower(topic0)]
	return t, ok
}

// Size returns the number of catalog entries
func (c *Catalog) Size() int {
	return len(c.byTopic)
}

// Topics returns the topic0 hashes of every catalog entry, lower-cased,
// for use as a log filter
func (c *Catalog) Topics() []string {
	topics := make([]string, 0, len(c.byTopic))
	for t := range c.byTopic {
		topics = append(topics, t)
	}
	return topics
}
