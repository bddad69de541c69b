package market

import (
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/types"
)

// BuyResult reports the outcome of a buy-up-to order to its actor.
type BuyResult struct {
	Good                types.GoodIndex
	QuantityBought      fixed.Point
	MoneySpentTotal     fixed.Point
	MoneySpentOnImports fixed.Point
}

// NoPurchaseResult is the outcome delivered when an order was rejected or
// nothing traded.
func NoPurchaseResult(good types.GoodIndex) BuyResult {
	return BuyResult{Good: good}
}

// SellResult reports the outcome of a market-sell order to its actor.
type SellResult struct {
	Good         types.GoodIndex
	QuantitySold fixed.Point
	MoneyGained  fixed.Point
}

// BuyCallback fires synchronously during clearing, once per buy order. The
// actor is the opaque pointer supplied with the order.
type BuyCallback func(actor any, result BuyResult)

// SellCallback fires synchronously during clearing, once per sell order. The
// scratch vector is scheduler-owned reusable memory the callee may use and
// must not retain.
type SellCallback func(actor any, result SellResult, scratch []fixed.Point)

// BuyUpToOrder asks for up to MaxQuantity of a good, spending at most
// MoneyToSpend.
type BuyUpToOrder struct {
	Good         types.GoodIndex
	Country      types.CountryIndex // NoCountry for stateless actors
	MaxQuantity  fixed.Point
	MoneyToSpend fixed.Point
	Actor        any
	AfterTrade   BuyCallback
}

// AffordablePrice returns the highest unit price at which the buyer can
// still afford the full desired quantity.
func (o *BuyUpToOrder) AffordablePrice() fixed.Point {
	return o.MoneyToSpend.Div(o.MaxQuantity)
}

// MarketSellOrder offers a quantity of a good at whatever the clearing
// price turns out to be.
type MarketSellOrder struct {
	Good       types.GoodIndex
	Country    types.CountryIndex
	Quantity   fixed.Point
	Actor      any
	AfterTrade SellCallback
}
