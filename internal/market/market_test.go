package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/types"
)

func newTestMarket(t *testing.T, exponential bool) (*Manager, types.GoodIndex) {
	t.Helper()
	cat := NewCatalogue()
	idx, err := cat.Register(GoodDefinition{
		Identifier:         "grain",
		Category:           "consumer_goods",
		BasePrice:          fixed.FromInt(2),
		AvailableFromStart: true,
		Tradeable:          true,
	})
	require.NoError(t, err)
	cat.Lock()
	return NewManager(cat, exponential), idx
}

type buyRecorder struct {
	results []BuyResult
}

func (r *buyRecorder) callback() BuyCallback {
	return func(actor any, result BuyResult) {
		rec := actor.(*buyRecorder)
		rec.results = append(rec.results, result)
	}
}

type sellRecorder struct {
	results []SellResult
}

func (r *sellRecorder) callback() SellCallback {
	return func(actor any, result SellResult, scratch []fixed.Point) {
		rec := actor.(*sellRecorder)
		rec.results = append(rec.results, result)
	}
}

// Matched orders clear at the standing price: one buy of
// 10 against one sell of 10 at base price 2.
func TestClearingMatchedOrders(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)

	buyer := &buyRecorder{}
	seller := &sellRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: grain, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(10), MoneyToSpend: fixed.FromInt(30),
		Actor: buyer, AfterTrade: buyer.callback(),
	})
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: grain, Country: types.NoCountry,
		Quantity: fixed.FromInt(10),
		Actor:    seller, AfterTrade: seller.callback(),
	}, nil)

	m.ExecuteAll(nil)

	require.Len(t, buyer.results, 1)
	require.Len(t, seller.results, 1)
	assert.Equal(t, fixed.FromInt(2), g.Price())
	assert.Equal(t, fixed.Point(0), g.PriceChangeYesterday())
	assert.Equal(t, fixed.FromInt(10), g.QuantityTradedYesterday())

	buy := buyer.results[0]
	assert.Equal(t, fixed.FromInt(10), buy.QuantityBought)
	assert.Equal(t, fixed.FromInt(20), buy.MoneySpentTotal)
	assert.Equal(t, fixed.Point(0), buy.MoneySpentOnImports)

	sell := seller.results[0]
	assert.Equal(t, fixed.FromInt(10), sell.QuantitySold)
	assert.Equal(t, fixed.FromInt(20), sell.MoneyGained)
}

// Demand above supply moves the price to max_next_price and fills buyers
// pro rata: buys of 10 and 5 against supply 6.
func TestClearingDemandExceedsSupply(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)

	b1 := &buyRecorder{}
	b2 := &buyRecorder{}
	s := &sellRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: grain, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(10), MoneyToSpend: fixed.FromInt(30),
		Actor: b1, AfterTrade: b1.callback(),
	})
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: grain, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(5), MoneyToSpend: fixed.FromInt(20),
		Actor: b2, AfterTrade: b2.callback(),
	})
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: grain, Country: types.NoCountry,
		Quantity: fixed.FromInt(6),
		Actor:    s, AfterTrade: s.callback(),
	}, nil)

	m.ExecuteAll(nil)

	wantPrice := fixed.FromInt(2) + fixed.One/100
	assert.Equal(t, wantPrice, g.Price())
	assert.Equal(t, fixed.FromInt(6), g.QuantityTradedYesterday())
	assert.Equal(t, fixed.FromInt(15), g.TotalDemandYesterday())
	assert.Equal(t, fixed.FromInt(6), g.TotalSupplyYesterday())

	require.Len(t, b1.results, 1)
	require.Len(t, b2.results, 1)
	assert.Equal(t, fixed.FromInt(4), b1.results[0].QuantityBought)
	assert.Equal(t, fixed.FromInt(4).Mul(wantPrice), b1.results[0].MoneySpentTotal)
	assert.Equal(t, fixed.FromInt(2), b2.results[0].QuantityBought)
	assert.Equal(t, fixed.FromInt(2).Mul(wantPrice), b2.results[0].MoneySpentTotal)

	require.Len(t, s.results, 1)
	assert.Equal(t, fixed.FromInt(6), s.results[0].QuantitySold)
	assert.Equal(t, fixed.FromInt(6).Mul(wantPrice), s.results[0].MoneyGained)
}

func TestClearingSupplyExceedsDemandMovesToFloor(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)
	floor := g.MinNextPrice()

	b := &buyRecorder{}
	s := &sellRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: grain, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(2), MoneyToSpend: fixed.FromInt(10),
		Actor: b, AfterTrade: b.callback(),
	})
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: grain, Country: types.NoCountry,
		Quantity: fixed.FromInt(8),
		Actor:    s, AfterTrade: s.callback(),
	}, nil)

	m.ExecuteAll(nil)

	assert.Equal(t, floor, g.Price())
	assert.Equal(t, fixed.FromInt(2), g.QuantityTradedYesterday())
	require.Len(t, s.results, 1)
	assert.Equal(t, fixed.FromInt(2), s.results[0].QuantitySold)
}

func TestEmptySideNoCallbacksPriceUnchanged(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)
	before := g.Price()

	s := &sellRecorder{}
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: grain, Country: types.NoCountry,
		Quantity: fixed.FromInt(8),
		Actor:    s, AfterTrade: s.callback(),
	}, nil)
	m.ExecuteAll(nil)

	assert.Empty(t, s.results)
	assert.Equal(t, before, g.Price())
	assert.Equal(t, fixed.Point(0), g.QuantityTradedYesterday())

	b := &buyRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: grain, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(3), MoneyToSpend: fixed.FromInt(9),
		Actor: b, AfterTrade: b.callback(),
	})
	m.ExecuteAll(nil)

	assert.Empty(t, b.results)
	assert.Equal(t, before, g.Price())
}

func TestUnavailableGoodRejectsOrders(t *testing.T) {
	cat := NewCatalogue()
	idx, err := cat.Register(GoodDefinition{
		Identifier: "luxury_clothes",
		BasePrice:  fixed.FromInt(10),
		// Not available from start.
	})
	require.NoError(t, err)
	cat.Lock()
	m := NewManager(cat, false)

	b := &buyRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: idx, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(1), MoneyToSpend: fixed.FromInt(10),
		Actor: b, AfterTrade: b.callback(),
	})
	require.Len(t, b.results, 1)
	assert.Equal(t, NoPurchaseResult(idx), b.results[0])

	m.EnableGood(idx)
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: idx, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(1), MoneyToSpend: fixed.FromInt(10),
		Actor: b, AfterTrade: b.callback(),
	})
	assert.Len(t, b.results, 1, "enabled good buffers instead of rejecting")
}

func TestMoneyConservation(t *testing.T) {
	m, grain := newTestMarket(t, false)

	buyers := make([]*buyRecorder, 7)
	var spent fixed.Point
	for i := range buyers {
		buyers[i] = &buyRecorder{}
		m.PlaceBuyUpToOrder(BuyUpToOrder{
			Good: grain, Country: types.NoCountry,
			MaxQuantity:  fixed.FromInt(int64(i + 1)),
			MoneyToSpend: fixed.FromInt(100),
			Actor:        buyers[i], AfterTrade: buyers[i].callback(),
		})
	}
	sellers := make([]*sellRecorder, 3)
	for i := range sellers {
		sellers[i] = &sellRecorder{}
		m.PlaceMarketSellOrder(MarketSellOrder{
			Good: grain, Country: types.NoCountry,
			Quantity: fixed.FromInt(int64(3 * (i + 1))),
			Actor:    sellers[i], AfterTrade: sellers[i].callback(),
		}, nil)
	}
	m.ExecuteAll(nil)

	var gained fixed.Point
	for _, b := range buyers {
		for _, r := range b.results {
			spent += r.MoneySpentTotal
		}
	}
	for _, s := range sellers {
		for _, r := range s.results {
			gained += r.MoneyGained
		}
	}
	assert.LessOrEqual(t, int64(gained), int64(spent)+int64(fixed.Epsilon)*3,
		"sellers never gain more than buyers spent beyond per-order rounding")
	diff := (spent - gained).Abs()
	assert.LessOrEqual(t, int64(diff), int64(fixed.Epsilon)*int64(len(buyers)+len(sellers))*3,
		"residual bounded by rounding per order")
}

func TestImportApportioning(t *testing.T) {
	m, grain := newTestMarket(t, false)

	home := types.CountryIndex(0)
	abroad := types.CountryIndex(1)

	b := &buyRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: grain, Country: home,
		MaxQuantity: fixed.FromInt(10), MoneyToSpend: fixed.FromInt(100),
		Actor: b, AfterTrade: b.callback(),
	})
	// 6 units domestic, 4 units foreign: 40% of spend counts as imports.
	s1 := &sellRecorder{}
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: grain, Country: home, Quantity: fixed.FromInt(6),
		Actor: s1, AfterTrade: s1.callback(),
	}, nil)
	s2 := &sellRecorder{}
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: grain, Country: abroad, Quantity: fixed.FromInt(4),
		Actor: s2, AfterTrade: s2.callback(),
	}, nil)

	m.ExecuteAll(nil)

	require.Len(t, b.results, 1)
	r := b.results[0]
	wantImports := fixed.MulDiv(r.MoneySpentTotal, fixed.FromInt(4), fixed.FromInt(10))
	assert.Equal(t, wantImports, r.MoneySpentOnImports)
	assert.LessOrEqual(t, int64(r.MoneySpentOnImports), int64(r.MoneySpentTotal))
}

// Exponential mode: a tiny price cannot drop below epsilon.
func TestExponentialPriceFloor(t *testing.T) {
	cat := NewCatalogue()
	idx, err := cat.Register(GoodDefinition{
		Identifier:         "scrap",
		BasePrice:          fixed.Epsilon * 3, // ~0.00005
		AvailableFromStart: true,
	})
	require.NoError(t, err)
	cat.Lock()
	m := NewManager(cat, true)
	g := m.Good(idx)

	assert.Equal(t, fixed.Epsilon, g.MinNextPrice(), "price/64 underflows so the floor is epsilon")

	b := &buyRecorder{}
	s := &sellRecorder{}
	m.PlaceBuyUpToOrder(BuyUpToOrder{
		Good: idx, Country: types.NoCountry,
		MaxQuantity: fixed.FromInt(1), MoneyToSpend: fixed.FromInt(1),
		Actor: b, AfterTrade: b.callback(),
	})
	m.PlaceMarketSellOrder(MarketSellOrder{
		Good: idx, Country: types.NoCountry,
		Quantity: fixed.FromInt(5),
		Actor:    s, AfterTrade: s.callback(),
	}, nil)
	m.ExecuteAll(nil)

	assert.Equal(t, fixed.Epsilon, g.Price())
	assert.GreaterOrEqual(t, int64(g.Price()), int64(fixed.Epsilon))
	assert.LessOrEqual(t, int64(g.MinNextPrice()), int64(g.Price()))
	assert.GreaterOrEqual(t, int64(g.MaxNextPrice()), int64(g.Price()))
}

func TestPriceBoundsInvariant(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)

	for day := 0; day < 50; day++ {
		b := &buyRecorder{}
		s := &sellRecorder{}
		m.PlaceBuyUpToOrder(BuyUpToOrder{
			Good: grain, Country: types.NoCountry,
			MaxQuantity: fixed.FromInt(int64(1 + day%5)), MoneyToSpend: fixed.FromInt(100),
			Actor: b, AfterTrade: b.callback(),
		})
		m.PlaceMarketSellOrder(MarketSellOrder{
			Good: grain, Country: types.NoCountry,
			Quantity: fixed.FromInt(int64(1 + (day+2)%7)),
			Actor:    s, AfterTrade: s.callback(),
		}, nil)
		m.ExecuteAll(nil)

		require.GreaterOrEqual(t, int64(g.Price()), int64(g.MinNextPrice()))
		require.LessOrEqual(t, int64(g.Price()), int64(g.MaxNextPrice()))
		require.GreaterOrEqual(t, int64(g.Price()), int64(fixed.Epsilon))
	}
}

func TestPriceMonotonicityUnderImbalance(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)

	prev := g.Price()
	for day := 0; day < 5; day++ {
		b := &buyRecorder{}
		s := &sellRecorder{}
		m.PlaceBuyUpToOrder(BuyUpToOrder{
			Good: grain, Country: types.NoCountry,
			MaxQuantity: fixed.FromInt(20), MoneyToSpend: fixed.FromInt(500),
			Actor: b, AfterTrade: b.callback(),
		})
		m.PlaceMarketSellOrder(MarketSellOrder{
			Good: grain, Country: types.NoCountry,
			Quantity: fixed.FromInt(5),
			Actor:    s, AfterTrade: s.callback(),
		}, nil)
		m.ExecuteAll(nil)
		assert.GreaterOrEqual(t, int64(g.Price()), int64(prev), "excess demand never lowers the price")
		prev = g.Price()
	}
}

func TestAffordablePrice(t *testing.T) {
	o := BuyUpToOrder{MaxQuantity: fixed.FromInt(10), MoneyToSpend: fixed.FromInt(30)}
	assert.Equal(t, fixed.FromInt(3), o.AffordablePrice())
}

func TestPriceHistoryRecordedWhenAvailable(t *testing.T) {
	m, grain := newTestMarket(t, false)
	g := m.Good(grain)
	day := types.NewDate(1836, 1, 1)
	m.RecordPriceHistory(day)
	m.RecordPriceHistory(day.Next())
	require.Len(t, g.History(), 2)
	assert.Equal(t, day, g.History()[0].Date)
	assert.Equal(t, g.Price(), g.History()[1].Price)
}
