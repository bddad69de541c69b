package production

import (
	"log/slog"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// RGO is the resource-gathering operation of a province. It holds no budget
// and no stockpile: each day's output sells the same day and the revenue is
// paid straight out as owner and worker income.
type RGO struct {
	ptype          *Type
	country        types.CountryIndex
	sizeMultiplier fixed.Point

	owner      Laborer
	ownerShare fixed.Point
	employees  []Employment

	revenueYesterday        fixed.Point
	outputQuantityYesterday fixed.Point
	unsoldQuantityYesterday fixed.Point

	producedToday fixed.Point
	revenueToday  fixed.Point
	soldToday     fixed.Point
}

// NewRGO creates an RGO over a recipe. ownerShare is the employer-policy
// fraction of revenue paid to the owner pop.
func NewRGO(ptype *Type, country types.CountryIndex, sizeMultiplier fixed.Point, owner Laborer, ownerShare fixed.Point) *RGO {
	return &RGO{
		ptype:          ptype,
		country:        country,
		sizeMultiplier: sizeMultiplier,
		owner:          owner,
		ownerShare:     ownerShare,
	}
}

// Type returns the RGO's recipe.
func (r *RGO) Type() *Type { return r.ptype }

// SizeMultiplier returns the province-derived size scale.
func (r *RGO) SizeMultiplier() fixed.Point { return r.sizeMultiplier }

// RevenueYesterday, OutputQuantityYesterday and UnsoldQuantityYesterday
// report the last completed day.
func (r *RGO) RevenueYesterday() fixed.Point        { return r.revenueYesterday }
func (r *RGO) OutputQuantityYesterday() fixed.Point { return r.outputQuantityYesterday }
func (r *RGO) UnsoldQuantityYesterday() fixed.Point { return r.unsoldQuantityYesterday }

// SetEmployees replaces the employment roster.
func (r *RGO) SetEmployees(employees []Employment) { r.employees = employees }

// Employees returns the employment roster.
func (r *RGO) Employees() []Employment { return r.employees }

// EmployedTotal sums the roster headcount.
func (r *RGO) EmployedTotal() int64 {
	var total int64
	for _, e := range r.employees {
		total += e.Size
	}
	return total
}

// scaledWorkforceShare is employed / base_workforce * size_multiplier.
func (r *RGO) scaledWorkforceShare() fixed.Point {
	return fixed.MulDiv(
		fixed.FromInt(r.EmployedTotal()),
		r.sizeMultiplier,
		fixed.FromInt(r.ptype.BaseWorkforceSize),
	)
}

// Tick computes today's output and places its sell order. RGO recipes carry
// no inputs; one that does is a data bug and the inputs are treated as free.
func (r *RGO) Tick(m *market.Manager, mods Modifiers, this script.Scope, scratch []fixed.Point) {
	mods = mods.Normalise()
	r.producedToday = 0
	r.revenueToday = 0
	r.soldToday = 0

	if r.ptype.InputGoods.Len() > 0 {
		slog.Warn("rgo recipe lists input goods, ignored", "production_type", r.ptype.Identifier)
	}

	share := r.scaledWorkforceShare()
	if share <= 0 {
		return
	}
	produced := share.
		Mul(r.ptype.BaseOutputQuantity).
		Mul(mods.Output.Mul(mods.Throughput)).
		Mul(r.ptype.BonusMultiplier(this))
	if produced <= 0 {
		return
	}
	r.producedToday = produced

	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good:       r.ptype.OutputGood,
		Country:    r.country,
		Quantity:   produced,
		Actor:      r,
		AfterTrade: rgoAfterSell,
	}, scratch)
}

// rgoAfterSell distributes revenue: the owner's employer-policy share first,
// then the wage pool split by worker effect-multiplier weights.
func rgoAfterSell(actor any, result market.SellResult, scratch []fixed.Point) {
	r := actor.(*RGO)
	r.soldToday = result.QuantitySold
	r.revenueToday = result.MoneyGained
	if result.MoneyGained <= 0 {
		return
	}

	pool := result.MoneyGained
	if r.owner != nil && r.ownerShare > 0 {
		ownerIncome := pool.Mul(r.ownerShare)
		if ownerIncome > 0 {
			r.owner.AddRGOOwnerIncome(ownerIncome)
			pool -= ownerIncome
		}
	}
	if pool <= 0 || len(r.employees) == 0 {
		return
	}

	var weightSum fixed.Point
	weightOf := func(e Employment) fixed.Point {
		mult := fixed.One
		for _, job := range r.ptype.EmployeeJobs {
			if job.PopType == e.Worker.LaborerPopType() {
				mult = job.EffectMultiplier
				break
			}
		}
		return fixed.FromInt(e.Size).Mul(mult)
	}
	for _, e := range r.employees {
		weightSum += weightOf(e)
	}
	if weightSum <= 0 {
		return
	}
	for _, e := range r.employees {
		wage := fixed.MulDiv(pool, weightOf(e), weightSum)
		if wage > 0 {
			e.Worker.AddRGOWorkerIncome(wage)
		}
	}
}

// FinishDay rolls today's results into the yesterday fields and reports
// employment to the workers. Runs in the gamestate phase.
func (r *RGO) FinishDay() {
	r.revenueYesterday = r.revenueToday
	r.outputQuantityYesterday = r.producedToday
	r.unsoldQuantityYesterday = r.producedToday - r.soldToday
	for _, e := range r.employees {
		if e.Size > 0 {
			e.Worker.Hire(e.Size)
		}
	}
}
