package production

import (
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// profitHistoryDays is the length of the rolling profitability window.
const profitHistoryDays = 7

// Factory is a budgeted producer: sales and subsidies feed the budget, wages
// and input purchases drain it, and inputs persist in a stockpile across
// days.
type Factory struct {
	ptype          *Type
	country        types.CountryIndex
	sizeMultiplier fixed.Point

	owner      Laborer
	ownerShare fixed.Point
	employees  []Employment

	stockpile *types.SparsePoints[types.GoodIndex]
	budget    fixed.Point

	revenueYesterday             fixed.Point
	outputQuantityYesterday      fixed.Point
	unsoldQuantityYesterday      fixed.Point
	balanceYesterday             fixed.Point
	receivedInvestmentsYesterday fixed.Point
	marketSpendingsYesterday     fixed.Point
	paychecksYesterday           fixed.Point

	unprofitableDays uint32
	subsidisedDays   uint32
	daysWithoutInput uint32
	hiringPriority   uint8

	profitHistory        [profitHistoryDays]fixed.Point
	profitHistoryCurrent int
	profitHistoryPrimed  bool

	producedToday        fixed.Point
	soldToday            fixed.Point
	revenueToday         fixed.Point
	marketSpendingsToday fixed.Point
	paychecksToday       fixed.Point
	investmentsToday     fixed.Point
	subsidisedToday      bool
}

// NewFactory creates a factory with an initial budget.
func NewFactory(ptype *Type, country types.CountryIndex, sizeMultiplier, budget fixed.Point, owner Laborer, ownerShare fixed.Point) *Factory {
	return &Factory{
		ptype:                ptype,
		country:              country,
		sizeMultiplier:       sizeMultiplier,
		owner:                owner,
		ownerShare:           ownerShare,
		stockpile:            types.NewSparsePoints[types.GoodIndex](),
		budget:               budget,
		profitHistoryCurrent: -1,
	}
}

// Type returns the factory's recipe.
func (f *Factory) Type() *Type { return f.ptype }

// Budget returns the current cash on hand.
func (f *Factory) Budget() fixed.Point { return f.budget }

// Stockpile exposes the input stockpile.
func (f *Factory) Stockpile() *types.SparsePoints[types.GoodIndex] { return f.stockpile }

// BalanceYesterday returns revenue minus spendings of the last finished day.
func (f *Factory) BalanceYesterday() fixed.Point { return f.balanceYesterday }

// RevenueYesterday, OutputQuantityYesterday, UnsoldQuantityYesterday,
// MarketSpendingsYesterday and PaychecksYesterday report the last day.
func (f *Factory) RevenueYesterday() fixed.Point             { return f.revenueYesterday }
func (f *Factory) OutputQuantityYesterday() fixed.Point      { return f.outputQuantityYesterday }
func (f *Factory) UnsoldQuantityYesterday() fixed.Point      { return f.unsoldQuantityYesterday }
func (f *Factory) MarketSpendingsYesterday() fixed.Point     { return f.marketSpendingsYesterday }
func (f *Factory) PaychecksYesterday() fixed.Point           { return f.paychecksYesterday }
func (f *Factory) ReceivedInvestmentsYesterday() fixed.Point { return f.receivedInvestmentsYesterday }

// UnprofitableDays counts consecutive days with a negative balance. Closing
// a long-unprofitable factory is handled outside the core via an event.
func (f *Factory) UnprofitableDays() uint32 { return f.unprofitableDays }

// SubsidisedDays counts consecutive subsidised days.
func (f *Factory) SubsidisedDays() uint32 { return f.subsidisedDays }

// DaysWithoutInput counts consecutive days production stalled on an empty
// input.
func (f *Factory) DaysWithoutInput() uint32 { return f.daysWithoutInput }

// HiringPriority orders factories in the employment queue.
func (f *Factory) HiringPriority() uint8 { return f.hiringPriority }

// SetHiringPriority updates the employment queue ordering.
func (f *Factory) SetHiringPriority(p uint8) { f.hiringPriority = p }

// SetEmployees replaces the employment roster.
func (f *Factory) SetEmployees(employees []Employment) { f.employees = employees }

// Employees returns the employment roster.
func (f *Factory) Employees() []Employment { return f.employees }

// EmployedTotal sums the roster headcount.
func (f *Factory) EmployedTotal() int64 {
	var total int64
	for _, e := range f.employees {
		total += e.Size
	}
	return total
}

// ProfitabilityYesterday returns the most recent profit history entry.
func (f *Factory) ProfitabilityYesterday() fixed.Point {
	if f.profitHistoryCurrent < 0 {
		return 0
	}
	return f.profitHistory[f.profitHistoryCurrent]
}

// AverageProfitabilityLastSevenDays returns the mean over the populated
// prefix of the rolling window.
func (f *Factory) AverageProfitabilityLastSevenDays() fixed.Point {
	if f.profitHistoryCurrent < 0 {
		return 0
	}
	limit := f.profitHistoryCurrent
	if f.profitHistoryPrimed {
		limit = profitHistoryDays - 1
	}
	var sum fixed.Point
	for i := 0; i <= limit; i++ {
		sum += f.profitHistory[i]
	}
	return sum.Div(fixed.FromInt(int64(limit + 1)))
}

// AddSubsidy credits a government subsidy into the budget.
func (f *Factory) AddSubsidy(amount fixed.Point) {
	if amount <= 0 {
		return
	}
	f.budget += amount
	f.subsidisedToday = true
}

// AddInvestment credits a private investment into the budget.
func (f *Factory) AddInvestment(amount fixed.Point) {
	if amount <= 0 {
		return
	}
	f.budget += amount
	f.investmentsToday += amount
}

func (f *Factory) scaledWorkforceShare() fixed.Point {
	return fixed.MulDiv(
		fixed.FromInt(f.EmployedTotal()),
		f.sizeMultiplier,
		fixed.FromInt(f.ptype.BaseWorkforceSize),
	)
}

// Tick runs the factory's day: produce from the stockpile filled by
// yesterday's purchases, sell the output, pay wages from the budget, then
// order tomorrow's inputs with what remains.
func (f *Factory) Tick(m *market.Manager, mods Modifiers, this script.Scope, wagePerWorker fixed.Point, scratch []fixed.Point) {
	mods = mods.Normalise()
	f.producedToday = 0
	f.soldToday = 0
	f.revenueToday = 0
	f.marketSpendingsToday = 0
	f.paychecksToday = 0
	f.investmentsToday = 0
	f.subsidisedToday = false

	share := f.scaledWorkforceShare()

	f.produce(m, mods, this, share, scratch)
	f.payWages(wagePerWorker)
	f.orderInputs(m, mods, share)
}

// produce consumes stockpiled inputs and places the output sell order.
func (f *Factory) produce(m *market.Manager, mods Modifiers, this script.Scope, share fixed.Point, scratch []fixed.Point) {
	if share <= 0 {
		return
	}
	inputs := f.ptype.InputGoods
	ratio := share.Mul(mods.Input.Mul(mods.Throughput))
	if inputs.Len() > 0 {
		// The binding input determines how much of the recipe can run.
		for _, e := range inputs.Entries() {
			if e.Value <= 0 {
				continue
			}
			have := f.stockpile.Get(e.Key)
			if have <= 0 {
				f.daysWithoutInput++
				return
			}
			r := have.Div(e.Value)
			if r < ratio {
				ratio = r
			}
		}
		for _, e := range inputs.Entries() {
			if e.Value <= 0 {
				continue
			}
			f.stockpile.Add(e.Key, -e.Value.Mul(ratio))
		}
	}
	f.daysWithoutInput = 0

	produced := ratio.
		Mul(f.ptype.BaseOutputQuantity).
		Mul(mods.Output.Mul(mods.Throughput)).
		Mul(f.ptype.BonusMultiplier(this))
	if produced <= 0 {
		return
	}
	f.producedToday = produced
	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good:       f.ptype.OutputGood,
		Country:    f.country,
		Quantity:   produced,
		Actor:      f,
		AfterTrade: factoryAfterSell,
	}, scratch)
}

// payWages drains the budget into worker and owner income. Wages stop when
// the budget runs dry.
func (f *Factory) payWages(wagePerWorker fixed.Point) {
	if wagePerWorker <= 0 || f.budget <= 0 {
		return
	}
	for _, e := range f.employees {
		if e.Size <= 0 {
			continue
		}
		wage := fixed.Min(wagePerWorker.Mul(fixed.FromInt(e.Size)), f.budget)
		if wage <= 0 {
			break
		}
		e.Worker.AddFactoryWorkerIncome(wage)
		f.budget -= wage
		f.paychecksToday += wage
	}
}

// orderInputs spends the remaining budget on tomorrow's inputs, split
// proportionally to each good's worst-case cost.
func (f *Factory) orderInputs(m *market.Manager, mods Modifiers, share fixed.Point) {
	if f.budget <= 0 || f.ptype.InputGoods.Len() == 0 || share <= 0 {
		return
	}
	factor := mods.Input.Mul(mods.Throughput)
	var totalCost fixed.Point
	for _, e := range f.ptype.InputGoods.Entries() {
		desired := e.Value.Mul(share).Mul(factor)
		if desired > 0 {
			totalCost += m.MaxMoneyToAllocate(e.Key, desired)
		}
	}
	if totalCost <= 0 {
		return
	}
	available := fixed.Min(f.budget, totalCost)
	for _, e := range f.ptype.InputGoods.Entries() {
		desired := e.Value.Mul(share).Mul(factor)
		if desired <= 0 {
			continue
		}
		cost := m.MaxMoneyToAllocate(e.Key, desired)
		money := fixed.MulDiv(available, cost, totalCost)
		if money <= 0 {
			continue
		}
		m.PlaceBuyUpToOrder(market.BuyUpToOrder{
			Good:         e.Key,
			Country:      f.country,
			MaxQuantity:  desired,
			MoneyToSpend: money,
			Actor:        f,
			AfterTrade:   factoryAfterBuy,
		})
	}
}

// factoryAfterBuy stockpiles bought inputs and charges the budget.
func factoryAfterBuy(actor any, result market.BuyResult) {
	f := actor.(*Factory)
	if result.QuantityBought <= 0 {
		return
	}
	f.stockpile.Add(result.Good, result.QuantityBought)
	f.budget -= result.MoneySpentTotal
	f.marketSpendingsToday += result.MoneySpentTotal
}

// factoryAfterSell credits revenue to the budget and pays the owner's share.
func factoryAfterSell(actor any, result market.SellResult, scratch []fixed.Point) {
	f := actor.(*Factory)
	f.soldToday = result.QuantitySold
	f.revenueToday = result.MoneyGained
	if result.MoneyGained <= 0 {
		return
	}
	gain := result.MoneyGained
	if f.owner != nil && f.ownerShare > 0 {
		ownerIncome := gain.Mul(f.ownerShare)
		if ownerIncome > 0 {
			f.owner.AddFactoryOwnerIncome(ownerIncome)
			gain -= ownerIncome
		}
	}
	f.budget += gain
}

// FinishDay settles the day's accounts, advances the profit history ring,
// and reports employment. Runs in the gamestate phase.
func (f *Factory) FinishDay() {
	f.revenueYesterday = f.revenueToday
	f.outputQuantityYesterday = f.producedToday
	f.unsoldQuantityYesterday = f.producedToday - f.soldToday
	f.marketSpendingsYesterday = f.marketSpendingsToday
	f.paychecksYesterday = f.paychecksToday
	f.receivedInvestmentsYesterday = f.investmentsToday

	f.balanceYesterday = f.revenueToday - f.marketSpendingsToday - f.paychecksToday
	if f.balanceYesterday < 0 {
		f.unprofitableDays++
	} else {
		f.unprofitableDays = 0
	}
	if f.subsidisedToday {
		f.subsidisedDays++
	} else {
		f.subsidisedDays = 0
	}

	f.profitHistoryCurrent++
	if f.profitHistoryCurrent >= profitHistoryDays {
		f.profitHistoryCurrent = 0
		f.profitHistoryPrimed = true
	}
	f.profitHistory[f.profitHistoryCurrent] = f.balanceYesterday

	for _, e := range f.employees {
		if e.Size > 0 {
			e.Worker.Hire(e.Size)
		}
	}
}
