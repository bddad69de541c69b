package pop

import (
	"log/slog"

	"github.com/talgya/grandsim/internal/entropy"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// TickContext bundles the scheduler-owned state a pop tick reads and the
// scratch memory it reuses. One context serves every pop of a province in
// sequence; nothing in it survives the day.
type TickContext struct {
	Market   *market.Manager
	Shared   *SharedValues
	Rng      *entropy.Source
	Economy  Economy // country to report to, nil in unowned provinces
	Selector *production.Selector
	Mods     production.Modifiers
	Scope    script.Scope

	// Reusable per-good vectors, sized |goods|, zeroed between pops.
	MaxQuantityPerGood []fixed.Point
	MoneyPerGood       []fixed.Point
	AllocationDraft    []fixed.Point
	SellScratch        []fixed.Point
}

// NewTickContext sizes the scratch vectors for the good set.
func NewTickContext(m *market.Manager, shared *SharedValues, rng *entropy.Source, selector *production.Selector) *TickContext {
	n := m.Len()
	return &TickContext{
		Market:             m,
		Shared:             shared,
		Rng:                rng,
		Selector:           selector,
		MaxQuantityPerGood: make([]fixed.Point, n),
		MoneyPerGood:       make([]fixed.Point, n),
		AllocationDraft:    make([]fixed.Point, 0, n),
		SellScratch:        make([]fixed.Point, 0, n),
	}
}

func (ctx *TickContext) resetScratch() {
	for i := range ctx.MaxQuantityPerGood {
		ctx.MaxQuantityPerGood[i] = 0
		ctx.MoneyPerGood[i] = 0
	}
	ctx.AllocationDraft = ctx.AllocationDraft[:0]
}

// Tick runs the daily needs/consumption pipeline for one pop: the artisan
// sub-tick, welfare requests, needs scaling, cash allocation, and order
// placement. Trade outcomes arrive later through the market callbacks when
// the clearing phase runs.
func (p *Pop) Tick(ctx *TickContext) {
	ctx.resetScratch()
	p.maxCostMultiplier = ctx.Shared.Defines.MaxCostMultiplier
	p.cashAllocatedForArtisanalSpending = 0
	p.goodsToSell.Clear()
	for c := range p.needs {
		p.needs[c].Clear()
		clear(p.needsFulfilled[c])
		p.priceInverseSum[c] = 0
	}

	// The artisan runs before needs so its own produce can cover them and
	// its input orders reserve cash first.
	if p.artisan != nil && ctx.Selector != nil {
		p.artisan.Tick(p, ctx.Market, ctx.Mods, ctx.Scope, ctx.Selector,
			ctx.MaxQuantityPerGood, ctx.MoneyPerGood, p.goodsToSell)
	}

	// Yesterday's accumulators close out after the artisan used them.
	p.rgoOwnerIncome = 0
	p.rgoWorkerIncome = 0
	p.factoryOwnerIncome = 0
	p.factoryWorkerIncome = 0
	p.artisanalRevenue = 0
	p.unemploymentSubsidies = 0
	p.pensions = 0
	p.administrationSalary = 0
	p.educationSalary = 0
	p.militarySalary = 0
	p.eventIncome = 0
	p.loanInterest = 0
	p.lifeNeedsExpense = 0
	p.everydayNeedsExpense = 0
	p.luxuryNeedsExpense = 0
	p.artisanInputsExpense = 0
	p.income = 0
	p.expenses = 0

	p.yesterdaysEmployed = p.employed
	p.employed = 0

	p.economy = ctx.Economy
	if p.economy != nil {
		// Salaries, pensions, unemployment subsidies and import subsidies
		// key off yesterday's employment and import value, so the request
		// follows the employment copy above and precedes the import reset.
		p.economy.RequestSalariesAndWelfare(p)
	}
	p.yesterdaysImportValue = 0

	p.fillNeeds(ctx)
	p.allocateCash(ctx)
	p.placeOrders(ctx)
}

// fillNeeds computes today's desired quantity per need good, consuming own
// artisanal produce before planning purchases.
func (p *Pop) fillNeeds(ctx *TickContext) {
	defines := ctx.Shared.Defines
	strataValues := &ctx.Shared.ByStrata[p.typ.Strata]
	baseNeedsScalar := fixed.One.
		Add(fixed.FromInt(2).Mul(p.consciousness).Div(defines.BaseCon)).
		Mul(fixed.FromInt(p.size))

	for c := NeedCategory(0); c < NumNeedCategories; c++ {
		p.acquired[c] = 0
		p.desired[c] = 0
		scalar := baseNeedsScalar.Mul(strataValues.Scalar(c))
		if scalar <= 0 {
			continue
		}
		for _, e := range p.typ.Needs[c].Entries() {
			good := e.Key
			if !ctx.Market.IsAvailable(good) {
				continue
			}
			maxQuantity := fixed.MulDiv(e.Value, scalar, defines.SizeDenominator)
			if maxQuantity == 0 {
				continue
			}
			if p.economy != nil {
				p.economy.ReportPopNeedDemand(p.typ.Index, good, maxQuantity)
			}
			p.desired[c] += maxQuantity

			// Own artisanal produce feeds the need before any purchase.
			if own := p.goodsToSell.Get(good); own > 0 {
				consumed := fixed.Min(own, maxQuantity)
				p.goodsToSell.Add(good, -consumed)
				if p.artisan != nil {
					p.artisan.SubtractFromStockpile(good, consumed)
				}
				maxQuantity -= consumed
				p.acquired[c] += consumed
				if p.economy != nil {
					p.economy.ReportPopNeedConsumption(p.typ.Index, good, consumed)
				}
			}
			if maxQuantity > 0 {
				p.priceInverseSum[c] += ctx.Market.Good(good).PriceInverse()
				p.needs[c].Add(good, maxQuantity)
				ctx.MaxQuantityPerGood[good] += maxQuantity
			}
		}
	}
}

// allocateCash splits the pop's spendable cash across the needs categories
// in priority order, life first.
func (p *Pop) allocateCash(ctx *TickContext) {
	cashLeft := p.cash.Div(ctx.Shared.Defines.MaxCostMultiplier) - p.cashAllocatedForArtisanalSpending
	for c := NeedCategory(0); c < NumNeedCategories; c++ {
		if cashLeft <= 0 {
			break
		}
		p.allocateForNeeds(ctx, c, &cashLeft)
	}
}

// allocateForNeeds distributes cash across one category's goods by inverse
// price weight, iteratively capping goods whose full cost is covered and
// redistributing the freed weight.
func (p *Pop) allocateForNeeds(ctx *TickContext, c NeedCategory, cashLeft *fixed.Point) {
	weightsSum := p.priceInverseSum[c]
	if weightsSum <= 0 {
		return
	}
	entries := p.needs[c].Entries()
	draft := ctx.AllocationDraft[:0]
	for range entries {
		draft = append(draft, 0)
	}
	cashDraft := *cashLeft

	redistribute := true
	for redistribute {
		redistribute = false
		for i, e := range entries {
			maxMoney := ctx.Market.MaxMoneyToAllocate(e.Key, e.Value)
			if draft[i] >= maxMoney {
				continue
			}
			good := ctx.Market.Good(e.Key)
			weight := good.PriceInverse()
			cashAvailable := fixed.MulDiv(cashDraft, weight, weightsSum)
			if cashAvailable >= maxMoney {
				// Fully funded: commit, drop its weight, redistribute the
				// remainder among the rest.
				cashDraft -= maxMoney
				draft[i] = maxMoney
				weightsSum -= weight
				redistribute = weightsSum > 0
				break
			}
			maxPossibleQuantity := cashAvailable.Div(good.MinNextPrice())
			if maxPossibleQuantity < fixed.Epsilon {
				draft[i] = 0
			} else {
				draft[i] = cashAvailable
			}
		}
	}

	for i, e := range entries {
		money := draft[i]
		if money <= 0 {
			continue
		}
		ctx.MoneyPerGood[e.Key] += money
		*cashLeft -= money
	}
	ctx.AllocationDraft = draft[:0]
}

// placeOrders submits the combined buy orders and the artisanal sell
// orders.
func (p *Pop) placeOrders(ctx *TickContext) {
	country := types.NoCountry
	if p.economy != nil {
		country = p.economy.EconomyCountryIndex()
	}
	for good := range ctx.MaxQuantityPerGood {
		maxQuantity := ctx.MaxQuantityPerGood[good]
		if maxQuantity <= 0 {
			continue
		}
		ctx.Market.PlaceBuyUpToOrder(market.BuyUpToOrder{
			Good:         types.GoodIndex(good),
			Country:      country,
			MaxQuantity:  maxQuantity,
			MoneyToSpend: ctx.MoneyPerGood[good],
			Actor:        p,
			AfterTrade:   popAfterBuy,
		})
	}
	for _, e := range p.goodsToSell.Entries() {
		if e.Value <= 0 {
			if e.Value < 0 {
				slog.Error("pop has negative quantity to sell", "good", e.Key, "quantity", e.Value)
			}
			continue
		}
		ctx.Market.PlaceMarketSellOrder(market.MarketSellOrder{
			Good:       e.Key,
			Country:    country,
			Quantity:   e.Value,
			Actor:      p,
			AfterTrade: popAfterSell,
		}, ctx.SellScratch)
	}
}

// popAfterBuy consumes a fill: tariff on the import share, artisan
// stockpile first, then the needs in life, everyday, luxury order.
func popAfterBuy(actor any, result market.BuyResult) {
	p := actor.(*Pop)
	quantityBought := result.QuantityBought
	if quantityBought == 0 {
		return
	}

	moneySpent := result.MoneySpentTotal
	p.yesterdaysImportValue += result.MoneySpentOnImports
	if p.economy != nil {
		moneySpent += p.economy.ApplyTariff(result.MoneySpentOnImports)
	}

	quantityLeft := quantityBought
	if p.artisan != nil {
		accepted := p.artisan.AddToStockpile(result.Good, quantityLeft)
		if accepted > 0 {
			quantityLeft -= accepted
			p.AddArtisanInputsExpense(fixed.MulDiv(moneySpent, accepted, quantityBought))
		}
	}

	for c := NeedCategory(0); c < NumNeedCategories; c++ {
		if quantityLeft <= 0 {
			return
		}
		desired := p.needs[c].Get(result.Good)
		if desired <= 0 {
			continue
		}
		var consumed fixed.Point
		if quantityLeft >= desired {
			consumed = desired
			p.needsFulfilled[c][result.Good] = true
		} else {
			consumed = quantityLeft
		}
		p.acquired[c] += consumed
		quantityLeft -= consumed
		if p.economy != nil {
			p.economy.ReportPopNeedConsumption(p.typ.Index, result.Good, consumed)
		}
		slot, kind := p.needExpenseSlot(c)
		p.addExpense(slot, fixed.MulDiv(moneySpent, consumed, quantityBought), kind)
	}
}

// popAfterSell classifies artisanal proceeds as taxable when the sold good
// matches the recipe last worked, then settles the stockpile.
func popAfterSell(actor any, result market.SellResult, scratch []fixed.Point) {
	p := actor.(*Pop)
	if result.MoneyGained <= 0 {
		return
	}
	if p.artisan == nil {
		slog.Error("pop sold artisanal goods without an artisan", "province", p.location)
		return
	}
	taxable := p.artisan.LastProducedGood() == result.Good
	p.AddArtisanalRevenue(result.MoneyGained, taxable)
	p.artisan.SubtractFromStockpile(result.Good, result.QuantitySold)
}
