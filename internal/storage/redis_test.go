package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/auction-indexer/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheWithClient(client), mr
}

func TestEventTopicsCache_RoundTrip(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	_, ok := cache.GetEventTopics(ctx)
	assert.False(t, ok, "empty cache should report a miss")

	topics := []*models.EventTopic{
		{
			ID:        "11111111-1111-1111-1111-111111111111",
			EventName: "AuctionCreated",
			Topic0:    "0x8e2a86bd81780bcd0cd6dc46e79a52cd67a25d1bc69ab4dbdfa6d56d78c6a6f4",
			Signature: "AuctionCreated(address indexed auction, address indexed token)",
		},
		{
			ID:        "22222222-2222-2222-2222-222222222222",
			EventName: "BidSubmitted",
			Topic0:    "0x3b1e5fc4a9f0b840cdfe9a16f85a52d87a90cf76074242f1d56b2a68dc22b7c1",
			Signature: "BidSubmitted(uint256 indexed id, address indexed owner, uint256 price, uint128 amount)",
		},
	}

	require.NoError(t, cache.SetEventTopics(ctx, topics, time.Minute))

	got, ok := cache.GetEventTopics(ctx)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "AuctionCreated", got[0].EventName)
	assert.Equal(t, topics[1].Topic0, got[1].Topic0)
}

func TestEventTopicsCache_TTLExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	topics := []*models.EventTopic{{ID: "33333333-3333-3333-3333-333333333333", EventName: "AuctionCreated", Topic0: "0xabc"}}
	require.NoError(t, cache.SetEventTopics(ctx, topics, 10*time.Minute))

	mr.FastForward(11 * time.Minute)

	_, ok := cache.GetEventTopics(ctx)
	assert.False(t, ok, "expired cache entry should report a miss")
}

func TestEventTopicsCache_Invalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	topics := []*models.EventTopic{{ID: "44444444-4444-4444-4444-444444444444", EventName: "BidExited", Topic0: "0xdef"}}
	require.NoError(t, cache.SetEventTopics(ctx, topics, time.Minute))
	require.NoError(t, cache.InvalidateEventTopics(ctx))

	_, ok := cache.GetEventTopics(ctx)
	assert.False(t, ok)
}

func TestLatestEthPriceCache(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	_, ok := cache.GetLatestEthPrice(ctx)
	assert.False(t, ok)

	require.NoError(t, cache.SetLatestEthPrice(ctx, "3412.57", 30*time.Second))

	price, ok := cache.GetLatestEthPrice(ctx)
	require.True(t, ok)
	assert.Equal(t, "3412.57", price)
}
