package reducer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory LedgerStore for handler tests
type memoryStore struct {
	auctions map[string]*models.Auction
	bids     map[string]*models.Bid
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		auctions: make(map[string]*models.Auction),
		bids:     make(map[string]*models.Bid),
	}
}

func auctionKey(chain types.ChainID, address string) string {
	return fmt.Sprintf("%s:%s", chain, strings.ToLower(address))
}

func bidKey(auctionID, bidID string) string {
	return fmt.Sprintf("%s:%s", auctionID, bidID)
}

func (s *memoryStore) InsertAuctionIfAbsent(ctx context.Context, auction *models.Auction) (bool, error) {
	key := auctionKey(auction.Chain, auction.Address)
	if _, exists := s.auctions[key]; exists {
		return false, nil
	}
	copied := *auction
	if copied.ID == "" {
		copied.ID = "auction-" + copied.Address
	}
	s.auctions[key] = &copied
	return true, nil
}

func (s *memoryStore) GetAuction(ctx context.Context, chain types.ChainID, address string) (*models.Auction, error) {
	a, ok := s.auctions[auctionKey(chain, address)]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (s *memoryStore) UpdateAuctionStatusIf(ctx context.Context, chain types.ChainID, address string, expected, next types.AuctionStatus) (bool, error) {
	a, ok := s.auctions[auctionKey(chain, address)]
	if !ok || a.Status != expected {
		return false, nil
	}
	a.Status = next
	return true, nil
}

func (s *memoryStore) UpdateAuctionPricing(ctx context.Context, chain types.ChainID, address, clearingPrice, collectedAmount string) (bool, error) {
	a, ok := s.auctions[auctionKey(chain, address)]
	if !ok {
		return false, nil
	}
	a.CurrentClearingPrice = clearingPrice
	a.CollectedAmount = collectedAmount
	return true, nil
}

func (s *memoryStore) InsertBidIfAbsent(ctx context.Context, bid *models.Bid) (bool, error) {
	key := bidKey(bid.AuctionID, bid.BidID)
	if _, exists := s.bids[key]; exists {
		return false, nil
	}
	copied := *bid
	s.bids[key] = &copied
	return true, nil
}

func (s *memoryStore) GetBid(ctx context.Context, auctionID, bidID string) (*models.Bid, error) {
	b, ok := s.bids[bidKey(auctionID, bidID)]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (s *memoryStore) UpdateBidSettlement(ctx context.Context, auctionID, bidID, filledAmount, exitedAmount string, status types.BidStatus) (bool, error) {
	b, ok := s.bids[bidKey(auctionID, bidID)]
	if !ok {
		return false, nil
	}
	b.FilledAmount = filledAmount
	b.ExitedAmount = exitedAmount
	b.Status = status
	return true, nil
}

type staticPrice struct {
	price string
}

func (p *staticPrice) LatestUSD(ctx context.Context) (string, bool) {
	if p.price == "" {
		return "", false
	}
	return p.price, true
}

const (
	testAuctionAddr = "0x1111111111111111111111111111111111111111"
	testTokenAddr   = "0x2222222222222222222222222222222222222222"
	testOwnerAddr   = "0x742d35cc6634c0532925a3b844bc9e7595f0beb1"
)

func seedAuction(t *testing.T, store *memoryStore, status types.AuctionStatus) {
	t.Helper()
	_, err := store.InsertAuctionIfAbsent(context.Background(), &models.Auction{
		Chain:            types.ChainEthereum,
		Address:          testAuctionAddr,
		Status:           status,
		CurrencyDecimals: 6,
		Token:            models.TokenInfo{Decimals: 18},
	})
	require.NoError(t, err)
}

func auctionCreatedCtx() *Context {
	return &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: "0x9999999999999999999999999999999999999999",
		EventName:       "AuctionCreated",
		Params: map[string]string{
			"auction": testAuctionAddr,
			"token":   testTokenAddr,
		},
	}
}

func bidSubmittedCtx(params map[string]string) *Context {
	return &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "BidSubmitted",
		Params:          params,
	}
}

func TestHandleAuctionCreated_Idempotent(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()

	require.NoError(t, r.HandleAuctionCreated(ctx, auctionCreatedCtx()))
	require.NoError(t, r.HandleAuctionCreated(ctx, auctionCreatedCtx()))

	assert.Len(t, store.auctions, 1)

	a, err := store.GetAuction(ctx, types.ChainEthereum, testAuctionAddr)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, types.AuctionCreated, a.Status)
	assert.Equal(t, testTokenAddr, a.TokenAddress)
}

func TestHandleAuctionCreated_MissingParams(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)

	ec := auctionCreatedCtx()
	ec.Params = map[string]string{}

	err := r.HandleAuctionCreated(context.Background(), ec)
	assert.True(t, errors.IsMissingParam(err))
	assert.Empty(t, store.auctions, "a failed handler must not create rows")
}

func TestHandleTokensReceived_Transitions(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionCreated)

	ec := &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "TokensReceived",
	}

	require.NoError(t, r.HandleTokensReceived(ctx, ec))

	a, err := store.GetAuction(ctx, types.ChainEthereum, testAuctionAddr)
	require.NoError(t, err)
	assert.Equal(t, types.AuctionPlanned, a.Status)

	// Redelivery is a no-op once past created
	require.NoError(t, r.HandleTokensReceived(ctx, ec))
	a, err = store.GetAuction(ctx, types.ChainEthereum, testAuctionAddr)
	require.NoError(t, err)
	assert.Equal(t, types.AuctionPlanned, a.Status)
}

func TestHandleTokensReceived_AbsentAuctionIsNoop(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)

	err := r.HandleTokensReceived(context.Background(), &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "TokensReceived",
	})
	require.NoError(t, err)
	assert.Empty(t, store.auctions)
}

func TestHandleBidSubmitted_NamedParams(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	ec := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "256607984",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, ec))

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	require.NotNil(t, bid)
	assert.Equal(t, testOwnerAddr, bid.Address)
	assert.Equal(t, "256.607984", bid.Amount)
	assert.Equal(t, types.BidOpen, bid.Status)

	// Price is display-ready, pre-adjusted for the 18/6 decimal gap
	assert.InDelta(t, 0.101, mustFloat(t, bid.MaxPrice), 0.01)
}

func TestHandleBidSubmitted_PositionalParams(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	ec := bidSubmittedCtx(map[string]string{
		"0": "8",
		"1": testOwnerAddr,
		"2": "8081272576454928",
		"3": "3740779",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, ec))

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "8")
	require.NoError(t, err)
	require.NotNil(t, bid)
	assert.Equal(t, "3.740779", bid.Amount)
	assert.InDelta(t, 0.102, mustFloat(t, bid.MaxPrice), 0.01)
}

func TestHandleBidSubmitted_Idempotent(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	ec := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "41900000",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, ec))
	require.NoError(t, r.HandleBidSubmitted(ctx, ec))

	assert.Len(t, store.bids, 1)

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "41.9", bid.Amount)
}

func TestHandleBidSubmitted_MissingParam(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)

	ec := bidSubmittedCtx(map[string]string{
		"id":    "7",
		"owner": testOwnerAddr,
		// price and amount absent
	})
	err := r.HandleBidSubmitted(context.Background(), ec)
	assert.True(t, errors.IsMissingParam(err))
	assert.Empty(t, store.bids)
}

func TestHandleBidSubmitted_UnknownAuctionDefaultsDecimals(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()

	ec := bidSubmittedCtx(map[string]string{
		"id":     "1",
		"owner":  testOwnerAddr,
		"price":  "79228162514264337593543950336", // 2^96, display 1.0
		"amount": "1500000000000000000",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, ec))

	bid, err := store.GetBid(ctx, testAuctionAddr, "1")
	require.NoError(t, err)
	require.NotNil(t, bid)
	assert.Equal(t, "1.5", bid.Amount, "unknown auctions default to 18 decimals")
	assert.Equal(t, "1", bid.MaxPrice)
}

func TestHandleBidSubmitted_DerivesUSDAmount(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, &staticPrice{price: "2000"})
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	ec := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "3740779",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, ec))

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	require.NotNil(t, bid.AmountUsd)
	assert.Equal(t, "7481.56", *bid.AmountUsd)
}

func TestHandleBidExited_AbsoluteValues(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	submit := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "256607984",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, submit))

	exit := &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "BidExited",
		Params: map[string]string{
			"id":     "7",
			"owner":  testOwnerAddr,
			"amount": "100000000",
		},
	}
	require.NoError(t, r.HandleBidExited(ctx, exit))

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "100", bid.ExitedAmount)
	assert.Equal(t, types.BidExited, bid.Status)

	// Redelivery stores the same absolute value, never a doubled one
	require.NoError(t, r.HandleBidExited(ctx, exit))
	bid, err = store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "100", bid.ExitedAmount)
}

func TestHandleBidExited_AbsentBidIsNoop(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	seedAuction(t, store, types.AuctionActive)

	err := r.HandleBidExited(context.Background(), &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "BidExited",
		Params: map[string]string{
			"id":     "999",
			"amount": "100000000",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, store.bids)
}

func TestHandleTokensClaimed_AbsoluteValues(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	submit := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "256607984",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, submit))

	claim := &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "TokensClaimed",
		Params: map[string]string{
			"id":     "7",
			"owner":  testOwnerAddr,
			"amount": "256607984",
		},
	}
	require.NoError(t, r.HandleTokensClaimed(ctx, claim))
	require.NoError(t, r.HandleTokensClaimed(ctx, claim))

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "256.607984", bid.FilledAmount)
	assert.Equal(t, types.BidFilled, bid.Status)
}

func TestHandleTokensClaimed_PartialFill(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	submit := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "256607984",
	})
	require.NoError(t, r.HandleBidSubmitted(ctx, submit))

	claim := &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "TokensClaimed",
		Params: map[string]string{
			"id":     "7",
			"owner":  testOwnerAddr,
			"amount": "1000000",
		},
	}
	require.NoError(t, r.HandleTokensClaimed(ctx, claim))

	bid, err := store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "1", bid.FilledAmount)
	assert.Equal(t, types.BidPartiallyFilled, bid.Status)

	// Redelivery keeps the same partial state
	require.NoError(t, r.HandleTokensClaimed(ctx, claim))
	bid, err = store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "1", bid.FilledAmount)
	assert.Equal(t, types.BidPartiallyFilled, bid.Status)

	// A later claim covering the whole bid flips the status to filled
	claim.Params["amount"] = "256607984"
	require.NoError(t, r.HandleTokensClaimed(ctx, claim))
	bid, err = store.GetBid(ctx, "auction-"+testAuctionAddr, "7")
	require.NoError(t, err)
	assert.Equal(t, "256.607984", bid.FilledAmount)
	assert.Equal(t, types.BidFilled, bid.Status)
}

func TestFillStatus(t *testing.T) {
	tests := []struct {
		name   string
		filled string
		total  string
		want   types.BidStatus
	}{
		{"below total", "1", "256.607984", types.BidPartiallyFilled},
		{"equal", "256.607984", "256.607984", types.BidFilled},
		{"above total", "300", "256.607984", types.BidFilled},
		{"unparsable filled", "??", "256.607984", types.BidFilled},
		{"unparsable total", "1", "??", types.BidFilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fillStatus(tt.filled, tt.total))
		})
	}
}

// conflictStore simulates a unique violation that escaped the insert's
// ON CONFLICT target.
type conflictStore struct {
	*memoryStore
}

func (s *conflictStore) InsertAuctionIfAbsent(ctx context.Context, auction *models.Auction) (bool, error) {
	return false, errors.NewPersistenceConflict("auction", auctionKey(auction.Chain, auction.Address))
}

func (s *conflictStore) InsertBidIfAbsent(ctx context.Context, bid *models.Bid) (bool, error) {
	return false, errors.NewPersistenceConflict("bid", bidKey(bid.AuctionID, bid.BidID))
}

func TestHandleAuctionCreated_ConflictIsNoop(t *testing.T) {
	store := &conflictStore{memoryStore: newMemoryStore()}
	r := NewReducer(store, nil)

	require.NoError(t, r.HandleAuctionCreated(context.Background(), auctionCreatedCtx()))
	assert.Empty(t, store.auctions)
}

func TestHandleBidSubmitted_ConflictIsNoop(t *testing.T) {
	store := &conflictStore{memoryStore: newMemoryStore()}
	r := NewReducer(store, nil)
	seedAuction(t, store.memoryStore, types.AuctionActive)

	ec := bidSubmittedCtx(map[string]string{
		"id":     "7",
		"owner":  testOwnerAddr,
		"price":  "8002044413940664",
		"amount": "41900000",
	})
	require.NoError(t, r.HandleBidSubmitted(context.Background(), ec))
	assert.Empty(t, store.bids)
}

func TestHandleAuctionPriceUpdated(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)
	ctx := context.Background()
	seedAuction(t, store, types.AuctionActive)

	ec := &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "AuctionPriceUpdated",
		Params: map[string]string{
			"clearingPrice":   "8081272576454928",
			"collectedAmount": "256607984",
		},
	}
	require.NoError(t, r.HandleAuctionPriceUpdated(ctx, ec))

	a, err := store.GetAuction(ctx, types.ChainEthereum, testAuctionAddr)
	require.NoError(t, err)
	assert.Equal(t, "256.607984", a.CollectedAmount)
	assert.InDelta(t, 0.102, mustFloat(t, a.CurrentClearingPrice), 0.01)
}

func TestProcessEvent_UnknownEventIsIgnored(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)

	err := r.ProcessEvent(context.Background(), &Context{
		Chain:           types.ChainEthereum,
		ContractAddress: testAuctionAddr,
		EventName:       "SomethingNobodyRegistered",
		Params:          map[string]string{"anything": "goes"},
	})
	require.NoError(t, err)
	assert.Empty(t, store.auctions)
	assert.Empty(t, store.bids)
}

func TestProcessEvent_DispatchesToHandler(t *testing.T) {
	store := newMemoryStore()
	r := NewReducer(store, nil)

	err := r.ProcessEvent(context.Background(), auctionCreatedCtx())
	require.NoError(t, err)
	assert.Len(t, store.auctions, 1)
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	require.NoError(t, err)
	return f
}
