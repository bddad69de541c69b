package market

import (
	"log/slog"
	"sync"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/types"
)

// PriceSample is one point of a good's sparse price history.
type PriceSample struct {
	Date  types.Date
	Price fixed.Point
}

// GoodInstance is the per-good runtime market state: today's order buffers
// and yesterday's clearing results.
//
// Order submission is mutex-guarded so producers and pops could submit from
// several goroutines; clearing itself runs on the scheduler goroutine only.
type GoodInstance struct {
	def *GoodDefinition

	exponentialPriceChanges bool

	price                   fixed.Point
	priceInverse            fixed.Point
	priceChangeYesterday    fixed.Point
	maxNextPrice            fixed.Point
	minNextPrice            fixed.Point
	available               bool
	totalDemandYesterday    fixed.Point
	totalSupplyYesterday    fixed.Point
	quantityTradedYesterday fixed.Point

	buyMu      sync.Mutex
	sellMu     sync.Mutex
	buyOrders  []BuyUpToOrder
	sellOrders []MarketSellOrder

	// Scratch reused across clearings: per-order fills, and supply per
	// seller country for import apportioning.
	fills           []fixed.Point
	supplyByCountry map[types.CountryIndex]fixed.Point

	history []PriceSample
}

func newGoodInstance(def *GoodDefinition, exponential bool) *GoodInstance {
	g := &GoodInstance{
		def:                     def,
		exponentialPriceChanges: exponential,
		price:                   def.BasePrice,
		available:               def.AvailableFromStart,
		supplyByCountry:         make(map[types.CountryIndex]fixed.Point),
	}
	g.updateNextPriceLimits()
	return g
}

// Definition returns the static good definition.
func (g *GoodInstance) Definition() *GoodDefinition { return g.def }

// Price returns the current market price.
func (g *GoodInstance) Price() fixed.Point { return g.price }

// PriceInverse returns 1/price, the weight needs allocation uses.
func (g *GoodInstance) PriceInverse() fixed.Point { return g.priceInverse }

// PriceChangeYesterday returns the price delta applied by the last clearing.
func (g *GoodInstance) PriceChangeYesterday() fixed.Point { return g.priceChangeYesterday }

// MaxNextPrice and MinNextPrice bound the next clearing's price.
func (g *GoodInstance) MaxNextPrice() fixed.Point { return g.maxNextPrice }
func (g *GoodInstance) MinNextPrice() fixed.Point { return g.minNextPrice }

// IsAvailable reports whether the good currently trades.
func (g *GoodInstance) IsAvailable() bool { return g.available }

// IsTradingGood reports whether the good should appear in trade: available
// and not the money good. Tradeable has no bearing on this.
func (g *GoodInstance) IsTradingGood() bool { return g.available && !g.def.IsMoney }

// TotalDemandYesterday, TotalSupplyYesterday and QuantityTradedYesterday
// report the last clearing's aggregates.
func (g *GoodInstance) TotalDemandYesterday() fixed.Point    { return g.totalDemandYesterday }
func (g *GoodInstance) TotalSupplyYesterday() fixed.Point    { return g.totalSupplyYesterday }
func (g *GoodInstance) QuantityTradedYesterday() fixed.Point { return g.quantityTradedYesterday }

// History exposes the recorded price series.
func (g *GoodInstance) History() []PriceSample { return g.history }

// Enable marks the good available for trading.
func (g *GoodInstance) Enable() { g.available = true }

func (g *GoodInstance) setExponentialPriceChanges(on bool) {
	g.exponentialPriceChanges = on
	g.updateNextPriceLimits()
}

// updateNextPriceLimits recomputes the clearing price bounds. Exponential
// mode moves by price/64 per day; the legacy rule moves by at most 0.01
// within [0.22, 5] x base price.
func (g *GoodInstance) updateNextPriceLimits() {
	if g.exponentialPriceChanges {
		maxChange := g.price >> 6
		if maxChange == 0 {
			// The exponential step underflowed: the price sits at the
			// resolution floor, so the band collapses to [epsilon, price+epsilon].
			g.maxNextPrice = fixed.Min(fixed.UsableMax, g.price+fixed.Epsilon)
			g.minNextPrice = fixed.Epsilon
		} else {
			g.maxNextPrice = fixed.Min(fixed.UsableMax, g.price+maxChange)
			g.minNextPrice = fixed.Max(fixed.Epsilon, g.price-maxChange)
		}
	} else {
		cent := fixed.One / 100
		g.maxNextPrice = fixed.Min(
			fixed.Min(g.def.BasePrice.Mul(fixed.FromInt(5)), fixed.UsableMax),
			g.price+cent,
		)
		g.minNextPrice = fixed.Max(
			fixed.Max(fixed.MulDiv(g.def.BasePrice, 22<<fixed.FracBits, 100<<fixed.FracBits), fixed.Epsilon),
			g.price-cent,
		)
	}
	g.priceInverse = fixed.One.Div(g.price)
}

// AddBuyUpToOrder buffers a buy order for the next clearing. Unavailable
// goods and non-positive quantities reject with an immediate
// no-purchase callback.
func (g *GoodInstance) AddBuyUpToOrder(order BuyUpToOrder) {
	if !g.available || order.MaxQuantity <= 0 || order.MoneyToSpend < 0 {
		if order.MaxQuantity <= 0 {
			slog.Error("buy order with non-positive quantity", "good", g.def.Identifier, "quantity", order.MaxQuantity)
		}
		if order.AfterTrade != nil {
			order.AfterTrade(order.Actor, NoPurchaseResult(g.def.Index))
		}
		return
	}
	g.buyMu.Lock()
	g.buyOrders = append(g.buyOrders, order)
	g.buyMu.Unlock()
}

// AddMarketSellOrder buffers a sell order for the next clearing. Rejected
// orders get an immediate zero-result callback.
func (g *GoodInstance) AddMarketSellOrder(order MarketSellOrder, scratch []fixed.Point) {
	if !g.available || order.Quantity <= 0 {
		if order.Quantity <= 0 {
			slog.Error("sell order with non-positive quantity", "good", g.def.Identifier, "quantity", order.Quantity)
		}
		if order.AfterTrade != nil {
			order.AfterTrade(order.Actor, SellResult{Good: g.def.Index}, scratch)
		}
		return
	}
	g.sellMu.Lock()
	g.sellOrders = append(g.sellOrders, order)
	g.sellMu.Unlock()
}

// ExecuteOrders clears the day's orders: it sets the new price from the
// demand/supply imbalance, fills every order pro rata, fires the callbacks
// in submission order, and resets the buffers. Not safe to call while
// orders are still being submitted.
func (g *GoodInstance) ExecuteOrders(scratch []fixed.Point) {
	var demand fixed.Point
	for i := range g.buyOrders {
		demand += g.buyOrders[i].MaxQuantity
	}
	var supply fixed.Point
	for i := range g.sellOrders {
		supply += g.sellOrders[i].Quantity
	}

	if demand == 0 || supply == 0 {
		// One-sided day: nothing trades, the price holds, no callbacks.
		g.quantityTradedYesterday = 0
		g.priceChangeYesterday = 0
		g.totalDemandYesterday = demand
		g.totalSupplyYesterday = supply
		g.buyOrders = g.buyOrders[:0]
		g.sellOrders = g.sellOrders[:0]
		return
	}

	var newPrice fixed.Point
	switch {
	case demand > supply:
		newPrice = g.maxNextPrice
		g.quantityTradedYesterday = supply
	case demand < supply:
		newPrice = g.minNextPrice
		g.quantityTradedYesterday = demand
	default:
		newPrice = g.price
		g.quantityTradedYesterday = demand
	}
	traded := g.quantityTradedYesterday

	// Supply split by seller country, for classifying each buyer's import
	// share. Apportioning is by sold-supply weight.
	clear(g.supplyByCountry)
	for i := range g.sellOrders {
		g.supplyByCountry[g.sellOrders[i].Country] += g.sellOrders[i].Quantity
	}

	// First pass: pro-rata fill per buy, capped at what the buyer's money
	// affords at the clearing price. The unaffordable remainder goes
	// unbought and unspent.
	g.fills = g.fills[:0]
	var totalBought fixed.Point
	for i := range g.buyOrders {
		order := &g.buyOrders[i]
		quantityBought := fixed.MulDiv(order.MaxQuantity, traded, demand)
		affordable := order.MoneyToSpend.Div(newPrice)
		if quantityBought > affordable {
			quantityBought = affordable
		}
		g.fills = append(g.fills, quantityBought)
		totalBought += quantityBought
	}

	for i := range g.buyOrders {
		order := &g.buyOrders[i]
		quantityBought := g.fills[i]
		moneySpent := fixed.Min(quantityBought.Mul(newPrice), order.MoneyToSpend)
		var imports fixed.Point
		if order.Country != types.NoCountry {
			foreignSupply := supply - g.supplyByCountry[order.Country]
			if foreignSupply > 0 {
				imports = fixed.MulDiv(moneySpent, foreignSupply, supply)
			}
		}
		if order.AfterTrade != nil {
			order.AfterTrade(order.Actor, BuyResult{
				Good:                g.def.Index,
				QuantityBought:      quantityBought,
				MoneySpentTotal:     moneySpent,
				MoneySpentOnImports: imports,
			})
		}
	}

	// Sellers move what the buyers actually bought, pro rata over offered
	// supply, so money gained balances money spent.
	for i := range g.sellOrders {
		order := &g.sellOrders[i]
		quantitySold := fixed.MulDiv(order.Quantity, totalBought, supply)
		if order.AfterTrade != nil {
			order.AfterTrade(order.Actor, SellResult{
				Good:         g.def.Index,
				QuantitySold: quantitySold,
				MoneyGained:  quantitySold.Mul(newPrice),
			}, scratch)
		}
	}

	g.priceChangeYesterday = newPrice - g.price
	g.totalDemandYesterday = demand
	g.totalSupplyYesterday = supply
	g.buyOrders = g.buyOrders[:0]
	g.sellOrders = g.sellOrders[:0]
	if newPrice != g.price {
		g.price = newPrice
		g.updateNextPriceLimits()
	}
}

// RecordPriceHistory appends today's price sample. Unavailable goods record
// nothing.
func (g *GoodInstance) RecordPriceHistory(date types.Date) {
	if !g.available {
		return
	}
	g.history = append(g.history, PriceSample{Date: date, Price: g.price})
}
