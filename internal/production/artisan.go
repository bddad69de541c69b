package production

import (
	"log/slog"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// ArtisanHost is the slice of a pop an artisanal producer needs: how much
// cash the pop will let it commit to inputs today.
type ArtisanHost interface {
	LaborerSize() int64
	ArtisanalCashBudget() fixed.Point
	AllocateArtisanalCash(amount fixed.Point)
}

// NoGood marks an empty last-produced slot.
const NoGood types.GoodIndex = -1

// Selector maintains the set of artisanal recipes whose output good is
// currently available. Artisans advance their own round-robin cursor over
// it, so recipe choice is deterministic per pop.
type Selector struct {
	catalogue *Catalogue
	market    *market.Manager
	available []*Type
}

// NewSelector builds a selector and computes the initial available set.
func NewSelector(catalogue *Catalogue, m *market.Manager) *Selector {
	s := &Selector{catalogue: catalogue, market: m}
	s.Recalculate()
	return s
}

// Recalculate refreshes the available recipe list. Call whenever good
// availability changes.
func (s *Selector) Recalculate() {
	s.available = s.available[:0]
	for i := range s.catalogue.Types() {
		t := s.catalogue.At(types.ProductionIndex(i))
		if t.Kind != KindArtisan {
			continue
		}
		if !s.market.IsAvailable(t.OutputGood) {
			continue
		}
		s.available = append(s.available, t)
	}
}

// Available returns the current recipe list in catalogue order.
func (s *Selector) Available() []*Type { return s.available }

// Artisan is the producer owned by a single artisan pop. Its stockpile
// holds both bought inputs and unsold output; what the current recipe does
// not need is offered for sale through the owning pop.
type Artisan struct {
	ptype     *Type
	stockpile *types.SparsePoints[types.GoodIndex]

	// currentNeeds is today's desired input quantity per good, the cap for
	// stockpile refills from the pop's buy callbacks.
	currentNeeds *types.SparsePoints[types.GoodIndex]

	currentProduction fixed.Point
	lastProducedGood  types.GoodIndex
	costsOfProduction fixed.Point

	cursor int
}

// NewArtisan creates an idle artisanal producer.
func NewArtisan() *Artisan {
	return &Artisan{
		stockpile:        types.NewSparsePoints[types.GoodIndex](),
		currentNeeds:     types.NewSparsePoints[types.GoodIndex](),
		lastProducedGood: NoGood,
		cursor:           -1,
	}
}

// CurrentType returns the recipe the artisan is working, nil when idle.
func (a *Artisan) CurrentType() *Type { return a.ptype }

// LastProducedGood returns the output good of the recipe most recently
// worked, or NoGood. Revenue from selling this good is taxable artisanal
// income; anything else is not.
func (a *Artisan) LastProducedGood() types.GoodIndex { return a.lastProducedGood }

// CostsOfProduction returns the input cost of the last produced batch, the
// deductible when taxing artisanal revenue.
func (a *Artisan) CostsOfProduction() fixed.Point { return a.costsOfProduction }

// CurrentProduction returns the quantity produced by the last Tick.
func (a *Artisan) CurrentProduction() fixed.Point { return a.currentProduction }

// Stockpile exposes the input/output stockpile.
func (a *Artisan) Stockpile() *types.SparsePoints[types.GoodIndex] { return a.stockpile }

// Tick runs the artisanal day before the owning pop computes its needs:
// produce from the stockpile, advance to the next workable recipe, reserve
// pop cash for inputs, and register desired input purchases in the pop's
// shared per-good vectors. Output and stale stockpile goods are written to
// goodsToSell for the pop to consume from or sell.
func (a *Artisan) Tick(
	host ArtisanHost,
	m *market.Manager,
	mods Modifiers,
	this script.Scope,
	selector *Selector,
	maxQuantityPerGood []fixed.Point,
	moneyPerGood []fixed.Point,
	goodsToSell *types.SparsePoints[types.GoodIndex],
) {
	mods = mods.Normalise()
	a.currentProduction = 0

	a.produce(m, mods, this, host)
	a.pickRecipe(selector)
	a.planInputs(host, m, mods, maxQuantityPerGood, moneyPerGood)
	a.offerSurplus(goodsToSell)
}

// produce consumes stockpiled inputs of the current recipe and adds the
// output to the stockpile.
func (a *Artisan) produce(m *market.Manager, mods Modifiers, this script.Scope, host ArtisanHost) {
	if a.ptype == nil {
		return
	}
	t := a.ptype
	share := fixed.FromFraction(host.LaborerSize(), t.BaseWorkforceSize)
	if share <= 0 {
		return
	}
	ratio := share.Mul(mods.Input.Mul(mods.Throughput))
	for _, e := range t.InputGoods.Entries() {
		if e.Value <= 0 {
			continue
		}
		have := a.stockpile.Get(e.Key)
		if have <= 0 {
			return
		}
		r := have.Div(e.Value)
		if r < ratio {
			ratio = r
		}
	}
	if ratio <= 0 {
		return
	}

	var costs fixed.Point
	for _, e := range t.InputGoods.Entries() {
		if e.Value <= 0 {
			continue
		}
		consumed := e.Value.Mul(ratio)
		a.stockpile.Add(e.Key, -consumed)
		costs += consumed.Mul(m.Good(e.Key).Price())
	}

	produced := ratio.
		Mul(t.BaseOutputQuantity).
		Mul(mods.Output.Mul(mods.Throughput)).
		Mul(t.BonusMultiplier(this))
	if produced <= 0 {
		return
	}
	a.currentProduction = produced
	a.costsOfProduction = costs
	a.lastProducedGood = t.OutputGood
	a.stockpile.Add(t.OutputGood, produced)
}

// pickRecipe advances the round-robin cursor over the available set.
func (a *Artisan) pickRecipe(selector *Selector) {
	available := selector.Available()
	if len(available) == 0 {
		if a.ptype != nil {
			slog.Warn("no artisanal production types available")
		}
		a.ptype = nil
		return
	}
	a.cursor = (a.cursor + 1) % len(available)
	a.ptype = available[a.cursor]
}

// planInputs reserves pop cash and registers desired input purchases.
func (a *Artisan) planInputs(host ArtisanHost, m *market.Manager, mods Modifiers, maxQuantityPerGood, moneyPerGood []fixed.Point) {
	a.currentNeeds.Clear()
	if a.ptype == nil {
		return
	}
	share := fixed.FromFraction(host.LaborerSize(), a.ptype.BaseWorkforceSize)
	factor := mods.Input.Mul(mods.Throughput)

	var totalCost fixed.Point
	for _, e := range a.ptype.InputGoods.Entries() {
		if e.Value <= 0 || !m.IsAvailable(e.Key) {
			continue
		}
		desired := e.Value.Mul(share).Mul(factor)
		a.currentNeeds.Set(e.Key, desired)
		missing := desired - a.stockpile.Get(e.Key)
		if missing > 0 {
			totalCost += m.MaxMoneyToAllocate(e.Key, missing)
		}
	}
	if totalCost <= 0 {
		return
	}

	budget := fixed.Min(host.ArtisanalCashBudget(), totalCost)
	if budget <= 0 {
		return
	}
	host.AllocateArtisanalCash(budget)

	for _, e := range a.currentNeeds.Entries() {
		missing := e.Value - a.stockpile.Get(e.Key)
		if missing <= 0 {
			continue
		}
		cost := m.MaxMoneyToAllocate(e.Key, missing)
		money := fixed.MulDiv(budget, cost, totalCost)
		if money <= 0 {
			continue
		}
		maxQuantityPerGood[e.Key] += missing
		moneyPerGood[e.Key] += money
	}
}

// offerSurplus lists every stockpiled good the current recipe has no use
// for, so the pop can eat or sell it.
func (a *Artisan) offerSurplus(goodsToSell *types.SparsePoints[types.GoodIndex]) {
	for _, e := range a.stockpile.Entries() {
		if e.Value <= 0 {
			continue
		}
		if a.currentNeeds.Has(e.Key) {
			continue
		}
		goodsToSell.Add(e.Key, e.Value)
	}
}

// AddToStockpile accepts bought quantity up to what the current recipe
// still needs and returns how much was taken.
func (a *Artisan) AddToStockpile(good types.GoodIndex, quantity fixed.Point) fixed.Point {
	need := a.currentNeeds.Get(good)
	if need <= 0 {
		return 0
	}
	room := need - a.stockpile.Get(good)
	if room <= 0 {
		return 0
	}
	accepted := fixed.Min(room, quantity)
	a.stockpile.Add(good, accepted)
	return accepted
}

// SubtractFromStockpile removes sold or consumed quantity, clamping at zero
// with a logged bug on underflow.
func (a *Artisan) SubtractFromStockpile(good types.GoodIndex, quantity fixed.Point) {
	have := a.stockpile.Get(good)
	if quantity > have {
		slog.Error("artisan stockpile underflow", "good", good, "have", have, "subtract", quantity)
		quantity = have
	}
	a.stockpile.Add(good, -quantity)
}

// RestoreState rehydrates a saved artisan: the recipe being worked, the
// good last produced and its batch costs. Used by bookmark loading.
func (a *Artisan) RestoreState(ptype *Type, lastProduced types.GoodIndex, costs fixed.Point) {
	a.ptype = ptype
	a.lastProducedGood = lastProduced
	a.costsOfProduction = costs
}

// StockpileValue prices the stockpile at current market prices, used by the
// pop cash-conservation audit.
func (a *Artisan) StockpileValue(m *market.Manager) fixed.Point {
	var total fixed.Point
	for _, e := range a.stockpile.Entries() {
		if e.Value > 0 {
			total += e.Value.Mul(m.Good(e.Key).Price())
		}
	}
	return total
}
