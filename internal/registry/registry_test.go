package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTopicStore struct {
	topics []*models.EventTopic
	err    error
	calls  int
}

func (s *fakeTopicStore) ListAll(ctx context.Context) ([]*models.EventTopic, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.topics, nil
}

func testTopics() []*models.EventTopic {
	return []*models.EventTopic{
		{
			ID:        "11111111-1111-1111-1111-111111111111",
			EventName: "AuctionCreated",
			Topic0:    "0x8E2A86BD81780BCD0CD6DC46E79A52CD67A25D1BC69AB4DBDFA6D56D78C6A6F4",
			Signature: "AuctionCreated(address indexed auction, address indexed token)",
		},
		{
			ID:        "22222222-2222-2222-2222-222222222222",
			EventName: "BidSubmitted",
			Topic0:    "0x3b1e5fc4a9f0b840cdfe9a16f85a52d87a90cf76074242f1d56b2a68dc22b7c1",
			Signature: "BidSubmitted(uint256 indexed id, address indexed owner, uint256 price, uint128 amount)",
		},
	}
}

func TestCatalog_LookupIsCaseInsensitive(t *testing.T) {
	store := &fakeTopicStore{topics: testTopics()}
	reg := NewRegistry(store, nil, time.Minute)

	catalog, err := reg.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Size())

	// Stored uppercase, queried lowercase
	entry, ok := catalog.Lookup("0x8e2a86bd81780bcd0cd6dc46e79a52cd67a25d1bc69ab4dbdfa6d56d78c6a6f4")
	require.True(t, ok)
	assert.Equal(t, "AuctionCreated", entry.EventName)

	// Stored lowercase, queried uppercase
	entry, ok = catalog.Lookup("0x3B1E5FC4A9F0B840CDFE9A16F85A52D87A90CF76074242F1D56B2A68DC22B7C1")
	require.True(t, ok)
	assert.Equal(t, "BidSubmitted", entry.EventName)

	_, ok = catalog.Lookup("0xdeadbeef")
	assert.False(t, ok)
}

func TestRegistry_LoadWithoutCacheHitsStore(t *testing.T) {
	store := &fakeTopicStore{topics: testTopics()}
	reg := NewRegistry(store, nil, time.Minute)

	_, err := reg.Load(context.Background())
	require.NoError(t, err)
	_, err = reg.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls, "each run loads a fresh snapshot when no cache is configured")
}

func TestRegistry_LoadUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := storage.NewRedisCacheWithClient(client)

	store := &fakeTopicStore{topics: testTopics()}
	reg := NewRegistry(store, cache, 10*time.Minute)

	catalog, err := reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Size())
	assert.Equal(t, 1, store.calls)

	// Second load is served from the cache
	catalog, err = reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Size())
	assert.Equal(t, 1, store.calls)

	// After TTL expiry the store is consulted again
	mr.FastForward(11 * time.Minute)
	_, err = reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestRegistry_LoadPropagatesStoreError(t *testing.T) {
	store := &fakeTopicStore{err: errors.New("connection refused")}
	reg := NewRegistry(store, nil, time.Minute)

	_, err := reg.Load(context.Background())
	assert.Error(t, err)
}
