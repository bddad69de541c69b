// Package country implements country definitions and instances: rules,
// reforms and party policies, tax and tariff handling, welfare transfers,
// and the daily demographic aggregation over owned provinces.
package country

import (
	"fmt"
	"log/slog"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/types"
)

// RuleSet is the bitset of gates country code consults before allowing an
// action. Union across sources is bitwise OR.
type RuleSet uint64

const (
	RuleBuildFactory RuleSet = 1 << iota
	RuleExpandFactory
	RuleDestroyFactory
	RuleFactoryPriority
	RuleCanSubsidise
	RulePopBuildFactory
	RulePopExpandFactory
	RuleDeleteFactoryIfNoInput
	RuleSlaveryAllowed
	RuleAllVoting
	RuleLargestShareVoting
	RuleRichOnlyVoting
	RuleStateVote
	RulePopulationVote
	RuleSameAsRulingParty
	RuleFullCitizenship
	RuleCulturalCitizenship
	RuleNoCitizenship
)

// Has reports whether every rule in q is set.
func (r RuleSet) Has(q RuleSet) bool { return r&q == q }

// Union merges rule sets per the OR contract.
func (r RuleSet) Union(q RuleSet) RuleSet { return r | q }

// RegimentCulturePolicy gates which culture statuses may man regiments.
type RegimentCulturePolicy uint8

const (
	RegimentsPrimaryCulture RegimentCulturePolicy = iota
	RegimentsAcceptedCulture
	RegimentsAnyCulture
	RegimentsNone
)

// Party is one entry of a country's ordered party roster.
type Party struct {
	Identifier string
	Index      types.PartyIndex
	Ideology   types.IdeologyIndex
	// Policies lists the party's platform, one issue per issue group.
	Policies  []types.IssueIndex
	StartDate types.Date
	EndDate   types.Date
}

// Definition is the static description of a country: tag, colour, culture
// set and party roster.
type Definition struct {
	Tag              string
	Colour           types.Colour
	Index            types.CountryIndex
	PrimaryCulture   types.CultureIndex
	AcceptedCultures []types.CultureIndex
	Parties          []Party
	GovernmentType   string
	NationalValue    string
}

// Catalogue is the locked registry of country definitions, keyed by tag.
type Catalogue struct {
	reg *registry.Registry[Definition]
}

// NewCatalogue creates an empty country catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{reg: registry.New("country", func(d *Definition) string { return d.Tag })}
}

// Register adds a country definition, assigning party ordinals.
func (c *Catalogue) Register(def Definition) (types.CountryIndex, error) {
	for i := range def.Parties {
		def.Parties[i].Index = types.PartyIndex(i)
	}
	idx, es := c.reg.Add(def, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register country %s: %s", def.Tag, es)
	}
	c.reg.At(idx).Index = types.CountryIndex(idx)
	return types.CountryIndex(idx), nil
}

// Lock freezes the catalogue.
func (c *Catalogue) Lock() { c.reg.Lock() }

// Len returns the number of countries.
func (c *Catalogue) Len() int { return c.reg.Len() }

// At returns the definition at an index.
func (c *Catalogue) At(i types.CountryIndex) *Definition { return c.reg.At(int32(i)) }

// Lookup resolves a tag.
func (c *Catalogue) Lookup(tag string) (types.CountryIndex, bool) {
	i, ok := c.reg.Lookup(tag)
	return types.CountryIndex(i), ok
}

// Definitions exposes all countries in registration order.
func (c *Catalogue) Definitions() []Definition { return c.reg.Items() }

// WelfarePolicy holds the per-day transfer rates the budget pays pops.
type WelfarePolicy struct {
	// UnemploymentSubsidyPerCapita pays per unemployed head of types that
	// can be unemployed.
	UnemploymentSubsidyPerCapita fixed.Point
	// PensionPerCapita pays per head regardless of employment.
	PensionPerCapita fixed.Point
	// ImportSubsidyRate refunds a fraction of yesterday's import value.
	ImportSubsidyRate fixed.Point
}

// Instance is the runtime state of one country.
type Instance struct {
	def   *Definition
	index types.CountryIndex

	ownedProvinces      []types.ProvinceIndex
	controlledProvinces []types.ProvinceIndex
	capital             types.ProvinceIndex

	rulingParty types.PartyIndex
	// reforms and partyPolicies map an issue group to the active issue.
	reforms       map[types.IssueGroupIndex]types.IssueIndex
	partyPolicies map[types.IssueGroupIndex]types.IssueIndex

	rules          RuleSet
	regimentPolicy RegimentCulturePolicy

	modifiers *modifier.Sum

	treasury    fixed.Point
	welfare     WelfarePolicy
	factoryWage fixed.Point

	// Tax sliders per strata and the modifier-adjusted effective rates.
	taxRateByStrata       [pop.NumStrata]fixed.Point
	effectiveTaxByStrata  [pop.NumStrata]fixed.Point
	tariffRate            fixed.Point
	effectiveTariffRate   fixed.Point
	taxCollectedToday     fixed.Point
	tariffCollectedToday  fixed.Point
	taxableIncomeToday    fixed.Point
	taxCollectedYesterday fixed.Point

	prestige  fixed.Point
	plurality fixed.Point

	leadershipPool fixed.Point
	researchPool   fixed.Point

	technologies map[string]bool
	inventions   map[string]bool
	decisions    map[string]bool
	flags        map[string]bool

	// Daily demographic aggregates rebuilt in the gamestate phase.
	popCountByType           types.IndexedPoints[types.PopTypeIndex]
	popCountByCulture        types.IndexedPoints[types.CultureIndex]
	popCountByReligion       types.IndexedPoints[types.ReligionIndex]
	popCountByIdeology       types.IndexedPoints[types.IdeologyIndex]
	totalPopulation          int64
	primaryCulturePopulation int64
	literacyWeightedSum      fixed.Point
	maxSupportedRegiments    int64

	needDemandToday      *types.SparsePoints[types.GoodIndex]
	needConsumptionToday *types.SparsePoints[types.GoodIndex]

	popTypes *pop.TypeCatalogue
}

// Sizes carries the registry cardinalities the per-country dense aggregates
// need.
type Sizes struct {
	PopTypes   int
	Cultures   int
	Religions  int
	Ideologies int
}

// NewInstance creates a country instance over its definition.
func NewInstance(def *Definition, popTypes *pop.TypeCatalogue, catalogue *modifier.Catalogue, sizes Sizes) *Instance {
	return &Instance{
		def:                  def,
		index:                def.Index,
		capital:              -1,
		rulingParty:          -1,
		reforms:              make(map[types.IssueGroupIndex]types.IssueIndex),
		partyPolicies:        make(map[types.IssueGroupIndex]types.IssueIndex),
		modifiers:            modifier.NewSum(catalogue),
		technologies:         make(map[string]bool),
		inventions:           make(map[string]bool),
		decisions:            make(map[string]bool),
		flags:                make(map[string]bool),
		popCountByType:       types.NewIndexedPoints[types.PopTypeIndex](sizes.PopTypes),
		popCountByCulture:    types.NewIndexedPoints[types.CultureIndex](sizes.Cultures),
		popCountByReligion:   types.NewIndexedPoints[types.ReligionIndex](sizes.Religions),
		popCountByIdeology:   types.NewIndexedPoints[types.IdeologyIndex](sizes.Ideologies),
		needDemandToday:      types.NewSparsePoints[types.GoodIndex](),
		needConsumptionToday: types.NewSparsePoints[types.GoodIndex](),
		popTypes:             popTypes,
	}
}

// Definition returns the static country definition.
func (c *Instance) Definition() *Definition { return c.def }

// Index returns the country's dense index.
func (c *Instance) Index() types.CountryIndex { return c.index }

// Tag returns the country's three-letter tag.
func (c *Instance) Tag() string { return c.def.Tag }

// Modifiers exposes the country modifier sum.
func (c *Instance) Modifiers() *modifier.Sum { return c.modifiers }

// Treasury returns the country's cash.
func (c *Instance) Treasury() fixed.Point { return c.treasury }

// SetTreasury sets the opening treasury at world construction.
func (c *Instance) SetTreasury(v fixed.Point) { c.treasury = v }

// SetWelfare configures the transfer policy.
func (c *Instance) SetWelfare(w WelfarePolicy) { c.welfare = w }

// Withdraw takes up to amount from the treasury and returns what was
// granted.
func (c *Instance) Withdraw(amount fixed.Point) fixed.Point {
	if amount <= 0 || c.treasury <= 0 {
		return 0
	}
	granted := fixed.Min(amount, c.treasury)
	c.treasury -= granted
	return granted
}

// FactoryWage returns the per-worker daily wage rate factories owned here
// pay.
func (c *Instance) FactoryWage() fixed.Point { return c.factoryWage }

// SetFactoryWage configures the factory wage rate.
func (c *Instance) SetFactoryWage(rate fixed.Point) { c.factoryWage = rate }

// Rules returns the active rule set.
func (c *Instance) Rules() RuleSet { return c.rules }

// AddRules ORs additional rules in.
func (c *Instance) AddRules(r RuleSet) { c.rules = c.rules.Union(r) }

// SetRegimentCulturePolicy configures recruit gating.
func (c *Instance) SetRegimentCulturePolicy(p RegimentCulturePolicy) { c.regimentPolicy = p }

// Owned and controlled province management.

func (c *Instance) OwnedProvinces() []types.ProvinceIndex      { return c.ownedProvinces }
func (c *Instance) ControlledProvinces() []types.ProvinceIndex { return c.controlledProvinces }

// AddOwnedProvince appends to the owned set.
func (c *Instance) AddOwnedProvince(p types.ProvinceIndex) {
	c.ownedProvinces = append(c.ownedProvinces, p)
}

// AddControlledProvince appends to the controlled set.
func (c *Instance) AddControlledProvince(p types.ProvinceIndex) {
	c.controlledProvinces = append(c.controlledProvinces, p)
}

// SetCapital sets the capital province.
func (c *Instance) SetCapital(p types.ProvinceIndex) { c.capital = p }

// Capital returns the capital province, -1 when unset.
func (c *Instance) Capital() types.ProvinceIndex { return c.capital }

// Party and issue state.

// SetRulingParty installs a party by roster ordinal.
func (c *Instance) SetRulingParty(p types.PartyIndex) {
	if int(p) < 0 || int(p) >= len(c.def.Parties) {
		slog.Error("ruling party out of roster range", "country", c.def.Tag, "party", p)
		return
	}
	c.rulingParty = p
}

// RulingParty returns the active party, nil when none is installed.
func (c *Instance) RulingParty() *Party {
	if c.rulingParty < 0 {
		return nil
	}
	return &c.def.Parties[c.rulingParty]
}

// SetReform activates a reform within its group.
func (c *Instance) SetReform(group types.IssueGroupIndex, issue types.IssueIndex) {
	c.reforms[group] = issue
}

// Reform returns the active reform of a group.
func (c *Instance) Reform(group types.IssueGroupIndex) (types.IssueIndex, bool) {
	i, ok := c.reforms[group]
	return i, ok
}

// SetPartyPolicy activates a party policy within its group.
func (c *Instance) SetPartyPolicy(group types.IssueGroupIndex, issue types.IssueIndex) {
	c.partyPolicies[group] = issue
}

// PartyPolicy returns the active policy of a group.
func (c *Instance) PartyPolicy(group types.IssueGroupIndex) (types.IssueIndex, bool) {
	i, ok := c.partyPolicies[group]
	return i, ok
}

// Flags, technologies, inventions and decisions.

func (c *Instance) SetFlag(name string)             { c.flags[name] = true }
func (c *Instance) ClearFlag(name string)           { delete(c.flags, name) }
func (c *Instance) HasFlag(name string) bool        { return c.flags[name] }
func (c *Instance) UnlockTechnology(id string)      { c.technologies[id] = true }
func (c *Instance) HasTechnology(id string) bool    { return c.technologies[id] }
func (c *Instance) UnlockInvention(id string)       { c.inventions[id] = true }
func (c *Instance) HasInvention(id string) bool     { return c.inventions[id] }
func (c *Instance) TakeDecision(id string)          { c.decisions[id] = true }
func (c *Instance) HasTakenDecision(id string) bool { return c.decisions[id] }

// Prestige and plurality.

func (c *Instance) Prestige() fixed.Point       { return c.prestige }
func (c *Instance) AddPrestige(d fixed.Point)   { c.prestige = c.prestige.Add(d) }
func (c *Instance) Plurality() fixed.Point      { return c.plurality }
func (c *Instance) SetPlurality(v fixed.Point)  { c.plurality = v }
func (c *Instance) ResearchPool() fixed.Point   { return c.researchPool }
func (c *Instance) LeadershipPool() fixed.Point { return c.leadershipPool }

// Tax and tariff configuration.

// SetTaxRate sets the slider for one strata.
func (c *Instance) SetTaxRate(s pop.Strata, rate fixed.Point) {
	c.taxRateByStrata[s] = fixed.Clamp(rate, 0, fixed.One)
}

// SetTariffRate sets the tariff slider.
func (c *Instance) SetTariffRate(rate fixed.Point) {
	c.tariffRate = fixed.Clamp(rate, -fixed.One, fixed.One)
}

// RecalculateRates folds modifier adjustments into the effective tax and
// tariff rates and clamps them into the allowed bounds. Runs after the
// modifier refresh phase.
func (c *Instance) RecalculateRates(taxAdjustment, tariffAdjustment, minTariff, maxTariff fixed.Point) {
	for s := range c.taxRateByStrata {
		c.effectiveTaxByStrata[s] = fixed.Clamp(c.taxRateByStrata[s].Add(taxAdjustment), 0, fixed.One)
	}
	c.effectiveTariffRate = fixed.Clamp(c.tariffRate.Add(tariffAdjustment), minTariff, maxTariff)
}

// pop.Economy implementation.

// EconomyCountryIndex implements pop.Economy.
func (c *Instance) EconomyCountryIndex() types.CountryIndex { return c.index }

// EffectiveTaxRate implements pop.Economy.
func (c *Instance) EffectiveTaxRate(s pop.Strata) fixed.Point {
	return c.effectiveTaxByStrata[s]
}

// ReportPopIncomeTax implements pop.Economy: the levy lands in the
// treasury.
func (c *Instance) ReportPopIncomeTax(_ types.PopTypeIndex, income, tax fixed.Point) {
	c.taxableIncomeToday += income
	c.taxCollectedToday += tax
	c.treasury += tax
}

// ReportPopNeedDemand implements pop.Economy.
func (c *Instance) ReportPopNeedDemand(_ types.PopTypeIndex, good types.GoodIndex, quantity fixed.Point) {
	c.needDemandToday.Add(good, quantity)
}

// ReportPopNeedConsumption implements pop.Economy.
func (c *Instance) ReportPopNeedConsumption(_ types.PopTypeIndex, good types.GoodIndex, quantity fixed.Point) {
	c.needConsumptionToday.Add(good, quantity)
}

// ApplyTariff implements pop.Economy: levies the effective tariff on import
// spending.
func (c *Instance) ApplyTariff(importsValue fixed.Point) fixed.Point {
	if importsValue <= 0 || c.effectiveTariffRate <= 0 {
		return 0
	}
	tariff := c.effectiveTariffRate.Mul(importsValue)
	c.tariffCollectedToday += tariff
	c.treasury += tariff
	return tariff
}

// RequestSalariesAndWelfare implements pop.Economy: unemployment subsidies
// keyed on yesterday's employment, pensions per head, and import subsidies
// on yesterday's import value. Transfers stop when the treasury runs dry.
func (c *Instance) RequestSalariesAndWelfare(p *pop.Pop) {
	pay := func(amount fixed.Point, credit func(fixed.Point)) {
		if amount <= 0 || c.treasury <= 0 {
			return
		}
		amount = fixed.Min(amount, c.treasury)
		c.treasury -= amount
		credit(amount)
	}
	if p.Type().CanBeUnemployed && c.welfare.UnemploymentSubsidyPerCapita > 0 {
		unemployed := p.Size() - p.YesterdaysEmployed()
		if unemployed > 0 {
			pay(c.welfare.UnemploymentSubsidyPerCapita.Mul(fixed.FromInt(unemployed)), p.AddUnemploymentSubsidies)
		}
	}
	if c.welfare.PensionPerCapita > 0 {
		pay(c.welfare.PensionPerCapita.Mul(fixed.FromInt(p.Size())), p.AddPensions)
	}
	if c.welfare.ImportSubsidyRate > 0 && p.YesterdaysImportValue() > 0 {
		pay(c.welfare.ImportSubsidyRate.Mul(p.YesterdaysImportValue()), p.AddImportSubsidies)
	}
}

// pop.CultureJudge implementation.

// IsPrimaryCulture implements pop.CultureJudge.
func (c *Instance) IsPrimaryCulture(culture types.CultureIndex) bool {
	return culture == c.def.PrimaryCulture
}

// IsAcceptedCulture implements pop.CultureJudge.
func (c *Instance) IsAcceptedCulture(culture types.CultureIndex) bool {
	for _, a := range c.def.AcceptedCultures {
		if a == culture {
			return true
		}
	}
	return false
}

// AllowsRegimentCulture implements pop.CultureJudge.
func (c *Instance) AllowsRegimentCulture(status pop.CultureStatus) bool {
	switch c.regimentPolicy {
	case RegimentsAnyCulture:
		return true
	case RegimentsAcceptedCulture:
		return status >= pop.CultureAccepted
	case RegimentsPrimaryCulture:
		return status == pop.CulturePrimary
	default:
		return false
	}
}

// Aggregation.

// ResetDailyAggregates zeroes the demographic sums before provinces
// contribute.
func (c *Instance) ResetDailyAggregates() {
	c.popCountByType.Clear()
	c.popCountByCulture.Clear()
	c.popCountByReligion.Clear()
	c.popCountByIdeology.Clear()
	c.totalPopulation = 0
	c.primaryCulturePopulation = 0
	c.literacyWeightedSum = 0
	c.maxSupportedRegiments = 0
	c.taxCollectedYesterday = c.taxCollectedToday
	c.taxCollectedToday = 0
	c.taxableIncomeToday = 0
	c.tariffCollectedToday = 0
	c.needDemandToday.Clear()
	c.needConsumptionToday.Clear()
}

// AbsorbPop folds one pop into the daily aggregates.
func (c *Instance) AbsorbPop(p *pop.Pop) {
	size := fixed.FromInt(p.Size())
	c.popCountByType.AddAt(p.Type().Index, size)
	c.popCountByCulture.AddAt(p.Culture(), size)
	c.popCountByReligion.AddAt(p.Religion(), size)
	c.popCountByIdeology.AddAssign(p.Ideology())
	c.totalPopulation += p.Size()
	if p.CultureStatus() == pop.CulturePrimary {
		c.primaryCulturePopulation += p.Size()
	}
	c.literacyWeightedSum += p.Literacy().Mul(size)
	c.maxSupportedRegiments += p.MaxSupportedRegiments()
}

// FinaliseAggregates derives research and leadership point generation from
// how close each pop type's population share sits to its optimum ratio.
func (c *Instance) FinaliseAggregates() {
	if c.totalPopulation == 0 {
		return
	}
	total := fixed.FromInt(c.totalPopulation)
	var research, leadership fixed.Point
	for _, t := range c.popTypes.Types() {
		count := c.popCountByType.At(t.Index)
		if count <= 0 {
			continue
		}
		share := count.Div(total)
		if t.ResearchPoints > 0 && t.ResearchOptimum > 0 {
			ratio := fixed.Min(fixed.One, share.Div(t.ResearchOptimum))
			research += t.ResearchPoints.Mul(ratio)
		}
		if t.LeadershipPoints > 0 && t.LeadershipOptimum > 0 {
			ratio := fixed.Min(fixed.One, share.Div(t.LeadershipOptimum))
			leadership += t.LeadershipPoints.Mul(ratio)
		}
	}
	c.researchPool += research
	c.leadershipPool += leadership
}

// Aggregate accessors.

func (c *Instance) TotalPopulation() int64                          { return c.totalPopulation }
func (c *Instance) PrimaryCulturePopulation() int64                 { return c.primaryCulturePopulation }
func (c *Instance) PopCountByType(i types.PopTypeIndex) fixed.Point { return c.popCountByType.At(i) }
func (c *Instance) PopCountByCulture(i types.CultureIndex) fixed.Point {
	return c.popCountByCulture.At(i)
}
func (c *Instance) PopCountByReligion(i types.ReligionIndex) fixed.Point {
	return c.popCountByReligion.At(i)
}
func (c *Instance) PopCountByIdeology(i types.IdeologyIndex) fixed.Point {
	return c.popCountByIdeology.At(i)
}
func (c *Instance) MaxSupportedRegiments() int64 { return c.maxSupportedRegiments }

// AverageLiteracy returns the population-weighted mean literacy.
func (c *Instance) AverageLiteracy() fixed.Point {
	if c.totalPopulation == 0 {
		return 0
	}
	return c.literacyWeightedSum.Div(fixed.FromInt(c.totalPopulation))
}

// TaxCollectedYesterday returns the last finished day's income tax take.
func (c *Instance) TaxCollectedYesterday() fixed.Point { return c.taxCollectedYesterday }

// TaxCollectedToday returns the running take of the current day.
func (c *Instance) TaxCollectedToday() fixed.Point { return c.taxCollectedToday }

// TariffCollectedToday returns the running tariff take.
func (c *Instance) TariffCollectedToday() fixed.Point { return c.tariffCollectedToday }

// NeedDemandToday exposes the per-good demand reported by pops.
func (c *Instance) NeedDemandToday() *types.SparsePoints[types.GoodIndex] { return c.needDemandToday }

// NeedConsumptionToday exposes the per-good consumption reported by pops.
func (c *Instance) NeedConsumptionToday() *types.SparsePoints[types.GoodIndex] {
	return c.needConsumptionToday
}
