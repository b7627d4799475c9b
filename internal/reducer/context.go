package reducer

import (
	"github.com/auction-indexer/internal/errors"
	"github.com/auction-indexer/internal/types"
)

// Context carries one decoded event into a handler
type Context struct {
	Chain           types.ChainID
	ContractAddress string
	BlockNumber     uint64
	TxHash          string
	LogIndex        uint
	EventName       string
	Params          map[string]string
}

// Param returns a named parameter, or "" when absent
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// bidParams is the canonical shape of a BidSubmitted event's fields
type bidParams struct {
	ID     string
	Owner  string
	Price  string
	Amount string
}

// canonicalizeBidParams accepts both parameter shapes a BidSubmitted log can
// decode to: named fields when the signature carries names, or positional
// indices when it does not. Field order is (id, owner, price, amount).
func canonicalizeBidParams(ctx *Context) (*bidParams, error) {
	p := &bidParams{
		ID:     ctx.Param("id"),
		Owner:  ctx.Param("owner"),
		Price:  ctx.Param("price"),
		Amount: ctx.Param("amount"),
	}

	if p.ID == "" {
		p.ID = ctx.Param("0")
	}
	if p.Owner == "" {
		p.Owner = ctx.Param("1")
	}
	if p.Price == "" {
		p.Price = ctx.Param("2")
	}
	if p.Amount == "" {
		p.Amount = ctx.Param("3")
	}

	switch {
	case p.ID == "":
		return nil, errors.NewMissingRequiredParam(ctx.EventName, "id")
	case p.Owner == "":
		return nil, errors.NewMissingRequiredParam(ctx.EventName, "owner")
	case p.Price == "":
		return nil, errors.NewMissingRequiredParam(ctx.EventName, "price")
	case p.Amount == "":
		return nil, errors.NewMissingRequiredParam(ctx.EventName, "amount")
	}

	return p, nil
}

// settlementParams is the canonical shape of BidExited and TokensClaimed
// event fields
type settlementParams struct {
	ID     string
	Owner  string
	Amount string
}

func canonicalizeSettlementParams(ctx *Context) (*settlementParams, error) {
	p := &settlementParams{
		ID:     ctx.Param("id"),
		Owner:  ctx.Param("owner"),
		Amount: ctx.Param("amount"),
	}

	if p.ID == "" {
		p.ID = ctx.Param("0")
	}
	if p.Owner == "" {
		p.Owner = ctx.Param("1")
	}
	if p.Amount == "" {
		p.Amount = ctx.Param("2")
	}

	switch {
	case p.ID == "":
		return nil, errors.NewMissingRequiredParam(ctx.EventName, "id")
	case p.Amount == "":
		return nil, errors.NewMissingRequiredParam(ctx.EventName, "amount")
	}

	return p, nil
}
