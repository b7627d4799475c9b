// Package reducer applies decoded events as idempotent state transitions on
// the auction and bid read models. Every handler is safe under at-least-once
// delivery: inserts are keyed and replays are no-ops, and settlement updates
// store absolute resulting values rather than cumulative increments.
package reducer

import (
	"context"
	"strings"

	"github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/logging"
	"github.com/auction-indexer/internal/models"
	"github.com/auction-indexer/internal/types"
	"github.com/shopspring/decimal"
)

// PriceSource serves the latest known USD price of the bidding currency.
// Best effort: a miss means derived USD fields are left unset.
type PriceSource interface {
	LatestUSD(ctx context.Context) (string, bool)
}

// Handler applies one decoded event
type Handler func(ctx context.Context, ec *Context) error

// Reducer dispatches decoded events to their handlers
type Reducer struct {
	store    LedgerStore
	prices   PriceSource
	handlers map[string]Handler
	logger   *logging.Logger
}

// NewReducer creates a reducer over the given store. prices may be nil.
func NewReducer(store LedgerStore, prices PriceSource) *Reducer {
	r := &Reducer{
		store:  store,
		prices: prices,
		logger: logging.GetGlobalLogger().WithField("component", "reducer"),
	}

	r.handlers = map[string]Handler{
		"AuctionCreated":      r.HandleAuctionCreated,
		"TokensReceived":      r.HandleTokensReceived,
		"BidSubmitted":        r.HandleBidSubmitted,
		"BidExited":           r.HandleBidExited,
		"TokensClaimed":       r.HandleTokensClaimed,
		"AuctionPriceUpdated": r.HandleAuctionPriceUpdated,
	}

	return r
}

// ProcessEvent dispatches an event to its handler. Events with no registered
// handler are silently ignored.
func (r *Reducer) ProcessEvent(ctx context.Context, ec *Context) error {
	handler, ok := r.handlers[ec.EventName]
	if !ok {
		return nil
	}
	return handler(ctx, ec)
}

// HandleAuctionCreated inserts a new Auction in status created. Replaying
// the same event is a no-op.
func (r *Reducer) HandleAuctionCreated(ctx context.Context, ec *Context) error {
	auctionAddr := ec.Param("auction")
	if auctionAddr == "" {
		auctionAddr = ec.Param("0")
	}
	tokenAddr := ec.Param("token")
	if tokenAddr == "" {
		tokenAddr = ec.Param("1")
	}

	if auctionAddr == "" {
		return errors.NewMissingRequiredParam(ec.EventName, "auction")
	}
	if tokenAddr == "" {
		return errors.NewMissingRequiredParam(ec.EventName, "token")
	}

	auction := &models.Auction{
		Chain:        ec.Chain,
		Address:      strings.ToLower(auctionAddr),
		Status:       types.AuctionCreated,
		TokenAddress: strings.ToLower(tokenAddr),
	}

	inserted, err := r.store.InsertAuctionIfAbsent(ctx, auction)
	if errors.IsConflict(err) {
		inserted, err = false, nil
	}
	if err != nil {
		return err
	}
	if !inserted {
		r.logger.WithFields(map[string]interface{}{
			"chain":   string(ec.Chain),
			"address": auction.Address,
		}).Debug("Auction already exists, skipping insert")
	}
	return nil
}

// HandleTokensReceived moves an Auction from created to planned. Absent
// auctions and auctions already past created are no-ops.
func (r *Reducer) HandleTokensReceived(ctx context.Context, ec *Context) error {
	_, err := r.store.UpdateAuctionStatusIf(ctx, ec.Chain, strings.ToLower(ec.ContractAddress),
		types.AuctionCreated, types.AuctionPlanned)
	return err
}

// HandleBidSubmitted inserts a new Bid with normalized amount and price.
// Replaying the same event is a no-op.
func (r *Reducer) HandleBidSubmitted(ctx context.Context, ec *Context) error {
	p, err := canonicalizeBidParams(ec)
	if err != nil {
		return err
	}

	auction, err := r.store.GetAuction(ctx, ec.Chain, strings.ToLower(ec.ContractAddress))
	if err != nil {
		return err
	}

	auctionID, currencyDecimals, tokenDecimals := auctionProjection(auction, ec.ContractAddress)

	amount, err := NormalizeAmount(p.Amount, currencyDecimals)
	if err != nil {
		return errors.NewDecodeFailure(ec.EventName, err)
	}

	price, err := NormalizePrice(p.Price, tokenDecimals, currencyDecimals)
	if err != nil {
		return errors.NewDecodeFailure(ec.EventName, err)
	}

	bid := &models.Bid{
		AuctionID:    auctionID,
		BidID:        p.ID,
		Address:      strings.ToLower(p.Owner),
		MaxPrice:     price,
		Amount:       amount,
		FilledAmount: "0",
		ExitedAmount: "0",
		Status:       types.BidOpen,
	}

	if usd, ok := r.deriveUSD(ctx, amount); ok {
		bid.AmountUsd = &usd
	}

	if _, err = r.store.InsertBidIfAbsent(ctx, bid); errors.IsConflict(err) {
		return nil
	}
	return err
}

// HandleBidExited records the absolute exited amount of a Bid and marks it
// exited. Absent bids are no-ops, and redelivery never double-applies.
func (r *Reducer) HandleBidExited(ctx context.Context, ec *Context) error {
	return r.settle(ctx, ec, func(bid *models.Bid, amount string) (filled, exited string, status types.BidStatus) {
		return bid.FilledAmount, amount, types.BidExited
	})
}

// HandleTokensClaimed records the absolute filled amount of a Bid. The bid
// becomes partially_filled while the claimed amount is below the bid amount
// and filled once it covers it. Absent bids are no-ops, and redelivery never
// double-applies.
func (r *Reducer) HandleTokensClaimed(ctx context.Context, ec *Context) error {
	return r.settle(ctx, ec, func(bid *models.Bid, amount string) (filled, exited string, status types.BidStatus) {
		return amount, bid.ExitedAmount, fillStatus(amount, bid.Amount)
	})
}

// fillStatus derives the bid status from the absolute filled amount. Both
// values are normalized decimal strings; an unparsable value falls back to
// filled rather than blocking the settlement.
func fillStatus(filled, total string) types.BidStatus {
	f, err := decimal.NewFromString(filled)
	if err != nil {
		return types.BidFilled
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return types.BidFilled
	}
	if f.LessThan(t) {
		return types.BidPartiallyFilled
	}
	return types.BidFilled
}

// settle applies an absolute settlement value to an existing Bid
func (r *Reducer) settle(ctx context.Context, ec *Context, apply func(bid *models.Bid, amount string) (string, string, types.BidStatus)) error {
	p, err := canonicalizeSettlementParams(ec)
	if err != nil {
		return err
	}

	auction, err := r.store.GetAuction(ctx, ec.Chain, strings.ToLower(ec.ContractAddress))
	if err != nil {
		return err
	}
	auctionID, currencyDecimals, _ := auctionProjection(auction, ec.ContractAddress)

	bid, err := r.store.GetBid(ctx, auctionID, p.ID)
	if err != nil {
		return err
	}
	if bid == nil {
		return nil
	}

	amount, err := NormalizeAmount(p.Amount, currencyDecimals)
	if err != nil {
		return errors.NewDecodeFailure(ec.EventName, err)
	}

	filled, exited, status := apply(bid, amount)
	_, err = r.store.UpdateBidSettlement(ctx, auctionID, p.ID, filled, exited, status)
	return err
}

// HandleAuctionPriceUpdated updates an Auction's clearing price and
// collected amount with absolute values
func (r *Reducer) HandleAuctionPriceUpdated(ctx context.Context, ec *Context) error {
	rawPrice := ec.Param("clearingPrice")
	if rawPrice == "" {
		rawPrice = ec.Param("price")
	}
	if rawPrice == "" {
		rawPrice = ec.Param("0")
	}
	rawCollected := ec.Param("collectedAmount")
	if rawCollected == "" {
		rawCollected = ec.Param("collected")
	}
	if rawCollected == "" {
		rawCollected = ec.Param("1")
	}

	if rawPrice == "" {
		return errors.NewMissingRequiredParam(ec.EventName, "clearingPrice")
	}
	if rawCollected == "" {
		return errors.NewMissingRequiredParam(ec.EventName, "collectedAmount")
	}

	address := strings.ToLower(ec.ContractAddress)
	auction, err := r.store.GetAuction(ctx, ec.Chain, address)
	if err != nil {
		return err
	}
	if auction == nil {
		return nil
	}
	_, currencyDecimals, tokenDecimals := auctionProjection(auction, ec.ContractAddress)

	price, err := NormalizePrice(rawPrice, tokenDecimals, currencyDecimals)
	if err != nil {
		return errors.NewDecodeFailure(ec.EventName, err)
	}
	collected, err := NormalizeAmount(rawCollected, currencyDecimals)
	if err != nil {
		return errors.NewDecodeFailure(ec.EventName, err)
	}

	_, err = r.store.UpdateAuctionPricing(ctx, ec.Chain, address, price, collected)
	return err
}

// auctionProjection extracts the decimals and bid key of an auction,
// defaulting when the auction is unknown
func auctionProjection(auction *models.Auction, contractAddress string) (auctionID string, currencyDecimals, tokenDecimals int) {
	auctionID = strings.ToLower(contractAddress)
	currencyDecimals = DefaultDecimals
	tokenDecimals = DefaultDecimals

	if auction == nil {
		return auctionID, currencyDecimals, tokenDecimals
	}

	if auction.ID != "" {
		auctionID = auction.ID
	}
	if auction.CurrencyDecimals > 0 {
		currencyDecimals = auction.CurrencyDecimals
	}
	if auction.Token.Decimals > 0 {
		tokenDecimals = auction.Token.Decimals
	}
	return auctionID, currencyDecimals, tokenDecimals
}

// deriveUSD converts a normalized currency amount to USD using the latest
// price sample
func (r *Reducer) deriveUSD(ctx context.Context, amount string) (string, bool) {
	if r.prices == nil {
		return "", false
	}
	price, ok := r.prices.LatestUSD(ctx)
	if !ok {
		return "", false
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return "", false
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return "", false
	}

	return amt.Mul(p).Round(2).String(), true
}
