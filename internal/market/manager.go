package market

import (
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/types"
)

// Manager owns one GoodInstance per registered good and drives the daily
// clearing across all of them in good-index order.
type Manager struct {
	catalogue *Catalogue
	instances []*GoodInstance
}

// NewManager builds instances for every good in the locked catalogue.
func NewManager(catalogue *Catalogue, exponentialPriceChanges bool) *Manager {
	m := &Manager{catalogue: catalogue}
	defs := catalogue.Definitions()
	m.instances = make([]*GoodInstance, len(defs))
	for i := range defs {
		m.instances[i] = newGoodInstance(catalogue.At(types.GoodIndex(i)), exponentialPriceChanges)
	}
	return m
}

// Catalogue returns the good catalogue.
func (m *Manager) Catalogue() *Catalogue { return m.catalogue }

// Good returns the instance for a good index.
func (m *Manager) Good(i types.GoodIndex) *GoodInstance { return m.instances[i] }

// Len returns the number of goods.
func (m *Manager) Len() int { return len(m.instances) }

// IsAvailable reports whether the good currently trades.
func (m *Manager) IsAvailable(i types.GoodIndex) bool { return m.instances[i].IsAvailable() }

// EnableGood makes a good available for trading, e.g. after an invention.
func (m *Manager) EnableGood(i types.GoodIndex) { m.instances[i].Enable() }

// SetExponentialPriceChanges switches the price limit rule on every good.
func (m *Manager) SetExponentialPriceChanges(on bool) {
	for _, g := range m.instances {
		g.setExponentialPriceChanges(on)
	}
}

// PlaceBuyUpToOrder buffers a buy order on the named good.
func (m *Manager) PlaceBuyUpToOrder(order BuyUpToOrder) {
	m.instances[order.Good].AddBuyUpToOrder(order)
}

// PlaceMarketSellOrder buffers a sell order on the named good.
func (m *Manager) PlaceMarketSellOrder(order MarketSellOrder, scratch []fixed.Point) {
	m.instances[order.Good].AddMarketSellOrder(order, scratch)
}

// MaxMoneyToAllocate returns the money that guarantees quantity can be
// bought whatever price the next clearing lands on.
func (m *Manager) MaxMoneyToAllocate(good types.GoodIndex, quantity fixed.Point) fixed.Point {
	return quantity.Mul(m.instances[good].MaxNextPrice())
}

// ExecuteAll clears every good in ascending index order. Callbacks run
// synchronously on the caller's goroutine.
func (m *Manager) ExecuteAll(scratch []fixed.Point) {
	for _, g := range m.instances {
		g.ExecuteOrders(scratch)
	}
}

// RecordPriceHistory appends today's sample on every available good.
func (m *Manager) RecordPriceHistory(date types.Date) {
	for _, g := range m.instances {
		g.RecordPriceHistory(date)
	}
}
