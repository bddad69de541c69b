package engine

import (
	"github.com/talgya/grandsim/internal/country"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
	"github.com/talgya/grandsim/internal/world"
)

// Tick advances the date one day and runs the fixed phase sequence:
// modifier refresh, producers, pops, country transfers, market clearing,
// gamestate update, events, record keeping. Nothing suspends inside a tick;
// stop requests are only observed between ticks.
func (s *Simulation) Tick() Digest {
	s.Date = s.Date.Next()

	s.refreshModifiers()
	s.runProducers()
	s.runPops()
	s.runCountryTransfers()
	s.Market.ExecuteAll(s.sellScratch)
	s.updateGamestate()
	fired := s.runEvents()
	return s.recordKeeping(fired)
}

// refreshModifiers rebuilds the province and country caches. The two build
// orders are observably identical because contribution sums are additive;
// the configuration knob exists so tests can prove it.
func (s *Simulation) refreshModifiers() {
	rebuildProvinces := func() {
		for _, p := range s.Provinces {
			p.LocalModifiers.Rebuild()
		}
	}
	rebuildCountries := func() {
		for _, c := range s.Countries {
			c.Modifiers().Rebuild()
		}
	}
	if s.Rules.BuildOrder == CountriesThenProvinces {
		rebuildCountries()
		rebuildProvinces()
	} else {
		rebuildProvinces()
		rebuildCountries()
	}

	for _, c := range s.Countries {
		taxAdjustment := additiveEffect(c.Modifiers(), s.effects.taxEfficiency)
		tariffAdjustment := additiveEffect(c.Modifiers(), s.effects.tariffEfficiency)
		c.RecalculateRates(taxAdjustment, tariffAdjustment, -fixed.One, fixed.One)
	}
}

// additiveEffect reads an additive effect total, neutral when unregistered.
func additiveEffect(sum *modifier.Sum, e types.EffectIndex) fixed.Point {
	if e < 0 {
		return 0
	}
	return sum.Effective(e)
}

// combinedFactor multiplies the province and owner factors for one effect.
func (s *Simulation) combinedFactor(p *world.Province, owner *country.Instance, e types.EffectIndex) fixed.Point {
	if e < 0 {
		return fixed.One
	}
	factor := p.LocalModifiers.EffectiveFactor(e)
	if owner != nil {
		factor = factor.Mul(owner.Modifiers().EffectiveFactor(e))
	}
	return factor
}

func (s *Simulation) rgoModifiers(p *world.Province, owner *country.Instance) production.Modifiers {
	return production.Modifiers{
		Input:      fixed.One,
		Throughput: s.combinedFactor(p, owner, s.effects.rgoThroughput),
		Output:     s.combinedFactor(p, owner, s.effects.rgoOutput),
	}
}

func (s *Simulation) factoryModifiers(p *world.Province, owner *country.Instance) production.Modifiers {
	return production.Modifiers{
		Input:      s.combinedFactor(p, owner, s.effects.factoryInput),
		Throughput: s.combinedFactor(p, owner, s.effects.factoryThroughput),
		Output:     s.combinedFactor(p, owner, s.effects.factoryOutput),
	}
}

func (s *Simulation) artisanModifiers(p *world.Province, owner *country.Instance) production.Modifiers {
	return production.Modifiers{
		Input:      s.combinedFactor(p, owner, s.effects.artisanInput),
		Throughput: s.combinedFactor(p, owner, s.effects.artisanThroughput),
		Output:     s.combinedFactor(p, owner, s.effects.artisanOutput),
	}
}

// runProducers ticks every RGO and factory in province index order. Artisan
// producers run inside their pop's tick.
func (s *Simulation) runProducers() {
	s.Selector.Recalculate()
	for _, p := range s.Provinces {
		owner := s.Country(p.Owner)
		scope := script.ProvinceScope(p.Index)
		if p.RGO != nil {
			p.RGO.Tick(s.Market, s.rgoModifiers(p, owner), scope, s.sellScratch)
		}
		var wage fixed.Point
		if owner != nil {
			wage = owner.FactoryWage()
		}
		mods := s.factoryModifiers(p, owner)
		for _, f := range p.Factories {
			f.Tick(s.Market, mods, scope, wage, s.sellScratch)
		}
	}
}

// runPops refreshes each province's shared values and ticks its pops in
// list order.
func (s *Simulation) runPops() {
	ctx := s.tickCtx
	for _, p := range s.Provinces {
		owner := s.Country(p.Owner)
		s.updateSharedValues(p, owner)
		ctx.Shared = p.Shared
		if owner != nil {
			ctx.Economy = owner
		} else {
			ctx.Economy = nil
		}
		ctx.Mods = s.artisanModifiers(p, owner)
		ctx.Scope = script.ProvinceScope(p.Index)
		for _, pp := range p.Pops {
			pp.Tick(ctx)
		}
	}
}

// updateSharedValues derives the per-strata needs scalars from the
// province and owner modifier caches.
func (s *Simulation) updateSharedValues(p *world.Province, owner *country.Instance) {
	life := s.combinedFactor(p, owner, s.effects.lifeNeeds)
	everyday := s.combinedFactor(p, owner, s.effects.everydayNeeds)
	luxury := s.combinedFactor(p, owner, s.effects.luxuryNeeds)
	for i := range p.Shared.ByStrata {
		p.Shared.ByStrata[i] = pop.StrataValues{
			LifeNeedsScalar:     life,
			EverydayNeedsScalar: everyday,
			LuxuryNeedsScalar:   luxury,
		}
	}
}

// runCountryTransfers pays factory subsidies out of treasuries where the
// rule set allows it. Pop welfare transfers were already requested during
// the pop phase.
func (s *Simulation) runCountryTransfers() {
	for _, p := range s.Provinces {
		owner := s.Country(p.Owner)
		if owner == nil || !owner.Rules().Has(country.RuleCanSubsidise) {
			continue
		}
		for _, f := range p.Factories {
			loss := f.BalanceYesterday()
			if loss >= 0 {
				continue
			}
			granted := owner.Withdraw(-loss)
			if granted > 0 {
				f.AddSubsidy(granted)
			}
		}
	}
}

// updateGamestate settles producers, clamps pops, and rebuilds the
// province and country aggregates.
func (s *Simulation) updateGamestate() {
	for _, c := range s.Countries {
		c.ResetDailyAggregates()
	}
	for _, p := range s.Provinces {
		owner := s.Country(p.Owner)
		if p.RGO != nil {
			p.RGO.FinishDay()
		}
		for _, f := range p.Factories {
			f.FinishDay()
		}
		var judge pop.CultureJudge
		if owner != nil {
			judge = owner
		}
		for _, pp := range p.Pops {
			pp.UpdateGamestate(judge, s.Defines)
			if owner != nil {
				owner.AbsorbPop(pp)
			}
		}
		p.UpdateAggregates()
	}
	for _, c := range s.Countries {
		c.FinaliseAggregates()
	}
}

// runEvents offers each country's events a daily roll.
func (s *Simulation) runEvents() []string {
	var fired []string
	for _, c := range s.Countries {
		scope := script.CountryScope(c.Index())
		fired = append(fired, s.Events.RollScope(s.Rng, scope, scope, script.NoScope)...)
	}
	return fired
}

// recordKeeping samples price history and builds the daily digest.
func (s *Simulation) recordKeeping(fired []string) Digest {
	s.Market.RecordPriceHistory(s.Date)

	d := Digest{
		Date:        s.Date.String(),
		Day:         int64(s.Date),
		EventsFired: fired,
	}
	for i := 0; i < s.Market.Len(); i++ {
		g := s.Market.Good(types.GoodIndex(i))
		if g.PriceChangeYesterday() != 0 {
			d.PricesChanged = append(d.PricesChanged, GoodChange{
				Good:   g.Definition().Identifier,
				Price:  g.Price(),
				Change: g.PriceChangeYesterday(),
			})
		}
	}
	for _, c := range s.Countries {
		d.TotalPopulation += c.TotalPopulation()
		d.TreasuryTotal += c.Treasury()
		// The gamestate reset already rolled today's take into yesterday.
		d.TaxCollected += c.TaxCollectedYesterday()
	}
	s.publishDigest(d)
	return d
}
