package pop

import (
	"log/slog"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/types"
)

// CultureStatus relates a pop's culture to its owner country.
type CultureStatus uint8

const (
	CultureUnaccepted CultureStatus = iota
	CultureAccepted
	CulturePrimary
)

// Economy is the country-side contract a pop reports to: tax collection,
// demand/consumption bookkeeping, tariffs and welfare transfers. The engine
// wires the owning country in each day; a pop in an unowned province has
// none and skips all of it.
type Economy interface {
	EconomyCountryIndex() types.CountryIndex
	EffectiveTaxRate(s Strata) fixed.Point
	ReportPopIncomeTax(popType types.PopTypeIndex, income, tax fixed.Point)
	ReportPopNeedDemand(popType types.PopTypeIndex, good types.GoodIndex, quantity fixed.Point)
	ReportPopNeedConsumption(popType types.PopTypeIndex, good types.GoodIndex, quantity fixed.Point)
	// ApplyTariff charges the owner's tariff on import spending and returns
	// the amount levied.
	ApplyTariff(importsValue fixed.Point) fixed.Point
	// RequestSalariesAndWelfare lets the country queue salary, pension,
	// unemployment and import-subsidy transfers for this pop before its
	// needs run.
	RequestSalariesAndWelfare(p *Pop)
}

// CultureJudge is the owner-country contract for culture status and
// regiment policy.
type CultureJudge interface {
	IsPrimaryCulture(c types.CultureIndex) bool
	IsAcceptedCulture(c types.CultureIndex) bool
	AllowsRegimentCulture(status CultureStatus) bool
}

// NoRebelType marks a pop not attached to any rebel movement.
const NoRebelType types.RebelTypeIndex = -1

// Pop is one population cohort.
type Pop struct {
	typ      *PopType
	culture  types.CultureIndex
	religion types.ReligionIndex
	size     int64

	militancy     fixed.Point
	consciousness fixed.Point
	literacy      fixed.Point
	rebelType     types.RebelTypeIndex

	location     types.ProvinceIndex
	idInProvince int32

	cultureStatus CultureStatus

	// Demographic change bookkeeping, written by the scripted growth and
	// migration systems outside the daily tick.
	TotalChange         int64
	NumGrown            int64
	NumPromoted         int64
	NumDemoted          int64
	NumMigratedInternal int64
	NumMigratedExternal int64
	NumMigratedColonial int64

	ideology     types.IndexedPoints[types.IdeologyIndex]
	issueSupport *types.SparsePoints[types.IssueIndex]
	partyVotes   *types.SparsePoints[types.PartyIndex]

	cash     fixed.Point
	income   fixed.Point
	expenses fixed.Point
	savings  fixed.Point

	employed              int64
	yesterdaysEmployed    int64
	yesterdaysImportValue fixed.Point

	maxSupportedRegiments int64
	regimentCount         int64

	// Per-category needs state of the current day.
	needs           [NumNeedCategories]*types.SparsePoints[types.GoodIndex]
	needsFulfilled  [NumNeedCategories]map[types.GoodIndex]bool
	acquired        [NumNeedCategories]fixed.Point
	desired         [NumNeedCategories]fixed.Point
	priceInverseSum [NumNeedCategories]fixed.Point

	// Income accumulators.
	rgoOwnerIncome        fixed.Point
	rgoWorkerIncome       fixed.Point
	factoryOwnerIncome    fixed.Point
	factoryWorkerIncome   fixed.Point
	artisanalRevenue      fixed.Point
	unemploymentSubsidies fixed.Point
	pensions              fixed.Point
	administrationSalary  fixed.Point
	educationSalary       fixed.Point
	militarySalary        fixed.Point
	eventIncome           fixed.Point
	loanInterest          fixed.Point

	// Expense accumulators. Positive means spent.
	lifeNeedsExpense     fixed.Point
	everydayNeedsExpense fixed.Point
	luxuryNeedsExpense   fixed.Point
	artisanInputsExpense fixed.Point

	cashAllocatedForArtisanalSpending fixed.Point
	maxCostMultiplier                 fixed.Point

	artisan     *production.Artisan
	goodsToSell *types.SparsePoints[types.GoodIndex]

	economy Economy
}

// New creates a pop of the given type. ideologyCount sizes the dense
// ideology distribution.
func New(
	typ *PopType,
	culture types.CultureIndex,
	religion types.ReligionIndex,
	size int64,
	militancy, consciousness, literacy fixed.Point,
	location types.ProvinceIndex,
	idInProvince int32,
	ideologyCount int,
) *Pop {
	p := &Pop{
		typ:           typ,
		culture:       culture,
		religion:      religion,
		size:          size,
		militancy:     militancy,
		consciousness: consciousness,
		literacy:      literacy,
		rebelType:     NoRebelType,
		location:      location,
		idInProvince:  idInProvince,
		ideology:      types.NewIndexedPoints[types.IdeologyIndex](ideologyCount),
		issueSupport:  types.NewSparsePoints[types.IssueIndex](),
		partyVotes:    types.NewSparsePoints[types.PartyIndex](),
		goodsToSell:   types.NewSparsePoints[types.GoodIndex](),
	}
	for i := range p.needs {
		p.needs[i] = types.NewSparsePoints[types.GoodIndex]()
		p.needsFulfilled[i] = make(map[types.GoodIndex]bool)
	}
	if typ.IsArtisan {
		p.artisan = production.NewArtisan()
	}
	return p
}

// Type returns the pop's type definition.
func (p *Pop) Type() *PopType { return p.typ }

// Culture and Religion return the demographic references.
func (p *Pop) Culture() types.CultureIndex   { return p.culture }
func (p *Pop) Religion() types.ReligionIndex { return p.religion }

// Size returns the cohort headcount.
func (p *Pop) Size() int64 { return p.size }

// SetSize adjusts the cohort headcount; used by the scripted demographic
// systems, never by the daily tick.
func (p *Pop) SetSize(size int64) {
	if size < 0 {
		slog.Error("pop size set negative, clamped", "size", size)
		size = 0
	}
	p.size = size
}

// Militancy, Consciousness and Literacy return the clamped attributes.
func (p *Pop) Militancy() fixed.Point     { return p.militancy }
func (p *Pop) Consciousness() fixed.Point { return p.consciousness }
func (p *Pop) Literacy() fixed.Point      { return p.literacy }

// AddMilitancy and AddConsciousness shift attributes; the gamestate update
// clamps them.
func (p *Pop) AddMilitancy(d fixed.Point)     { p.militancy = p.militancy.Add(d) }
func (p *Pop) AddConsciousness(d fixed.Point) { p.consciousness = p.consciousness.Add(d) }
func (p *Pop) AddLiteracy(d fixed.Point)      { p.literacy = p.literacy.Add(d) }

// Location returns the owning province index.
func (p *Pop) Location() types.ProvinceIndex { return p.location }

// IDInProvince returns the pop's ordinal within its province.
func (p *Pop) IDInProvince() int32 { return p.idInProvince }

// CultureStatus returns the owner-relative culture standing.
func (p *Pop) CultureStatus() CultureStatus { return p.cultureStatus }

// Cash, Income, Expenses and Savings return the monetary state.
func (p *Pop) Cash() fixed.Point     { return p.cash }
func (p *Pop) Income() fixed.Point   { return p.income }
func (p *Pop) Expenses() fixed.Point { return p.expenses }
func (p *Pop) Savings() fixed.Point  { return p.savings }

// SetCash sets the opening cash balance at world construction.
func (p *Pop) SetCash(cash fixed.Point) { p.cash = cash }

// Employed returns today's employed headcount.
func (p *Pop) Employed() int64 { return p.employed }

// YesterdaysEmployed returns the employment the welfare transfers key off.
func (p *Pop) YesterdaysEmployed() int64 { return p.yesterdaysEmployed }

// YesterdaysImportValue returns the import spend the subsidy transfers key
// off.
func (p *Pop) YesterdaysImportValue() fixed.Point { return p.yesterdaysImportValue }

// Unemployed returns size minus employed, floored at zero.
func (p *Pop) Unemployed() int64 {
	if p.employed > p.size {
		return 0
	}
	return p.size - p.employed
}

// UnemploymentFraction returns unemployed/size for types that can be
// unemployed, zero otherwise.
func (p *Pop) UnemploymentFraction() fixed.Point {
	if !p.typ.CanBeUnemployed || p.size == 0 {
		return 0
	}
	return fixed.FromFraction(p.Unemployed(), p.size)
}

// Ideology exposes the dense ideology distribution; it sums to size.
func (p *Pop) Ideology() *types.IndexedPoints[types.IdeologyIndex] { return &p.ideology }

// IssueSupport exposes the sparse issue distribution.
func (p *Pop) IssueSupport() *types.SparsePoints[types.IssueIndex] { return p.issueSupport }

// PartyVotes exposes the sparse party distribution.
func (p *Pop) PartyVotes() *types.SparsePoints[types.PartyIndex] { return p.partyVotes }

// MaxSupportedRegiments and RegimentCount expose the military linkage.
func (p *Pop) MaxSupportedRegiments() int64 { return p.maxSupportedRegiments }
func (p *Pop) RegimentCount() int64         { return p.regimentCount }

// Artisan returns the pop-owned producer, nil for non-artisans.
func (p *Pop) Artisan() *production.Artisan { return p.artisan }

// SetEconomy wires the country the pop reports to this day.
func (p *Pop) SetEconomy(e Economy) { p.economy = e }

// NeedsFulfilledFraction returns acquired/desired for a category, 1 when
// nothing was desired.
func (p *Pop) NeedsFulfilledFraction(c NeedCategory) fixed.Point {
	if p.desired[c] == 0 {
		return fixed.One
	}
	return p.acquired[c].Div(p.desired[c])
}

// NeedSatisfied reports whether the full desired quantity of a good was
// covered today in a category.
func (p *Pop) NeedSatisfied(c NeedCategory, good types.GoodIndex) bool {
	return p.needsFulfilled[c][good]
}

// Income accessors for the aggregation and UI layers.
func (p *Pop) RGOOwnerIncome() fixed.Point        { return p.rgoOwnerIncome }
func (p *Pop) RGOWorkerIncome() fixed.Point       { return p.rgoWorkerIncome }
func (p *Pop) FactoryOwnerIncome() fixed.Point    { return p.factoryOwnerIncome }
func (p *Pop) FactoryWorkerIncome() fixed.Point   { return p.factoryWorkerIncome }
func (p *Pop) ArtisanalRevenue() fixed.Point      { return p.artisanalRevenue }
func (p *Pop) UnemploymentSubsidies() fixed.Point { return p.unemploymentSubsidies }
func (p *Pop) Pensions() fixed.Point              { return p.pensions }
func (p *Pop) AdministrationSalary() fixed.Point  { return p.administrationSalary }
func (p *Pop) EducationSalary() fixed.Point       { return p.educationSalary }
func (p *Pop) MilitarySalary() fixed.Point        { return p.militarySalary }
func (p *Pop) EventIncome() fixed.Point           { return p.eventIncome }
func (p *Pop) LoanInterest() fixed.Point          { return p.loanInterest }

// Expense accessors.
func (p *Pop) LifeNeedsExpense() fixed.Point     { return p.lifeNeedsExpense }
func (p *Pop) EverydayNeedsExpense() fixed.Point { return p.everydayNeedsExpense }
func (p *Pop) LuxuryNeedsExpense() fixed.Point   { return p.luxuryNeedsExpense }
func (p *Pop) ArtisanInputsExpense() fixed.Point { return p.artisanInputsExpense }

// payIncomeTax levies the owner's effective tax on an income amount and
// returns the post-tax remainder.
func (p *Pop) payIncomeTax(amount fixed.Point) fixed.Point {
	if p.economy == nil {
		return amount
	}
	tax := p.economy.EffectiveTaxRate(p.typ.Strata).Mul(amount)
	p.economy.ReportPopIncomeTax(p.typ.Index, amount, tax)
	return amount - tax
}

// addTaxedIncome is the shared path of every taxed income kind: guard,
// tax, accumulate, credit cash.
func (p *Pop) addTaxedIncome(slot *fixed.Point, amount fixed.Point, kind string) {
	if amount == 0 {
		slog.Warn("adding zero income to pop", "kind", kind, "province", p.location)
		return
	}
	if amount < 0 {
		slog.Error("adding negative income to pop", "kind", kind, "amount", amount, "province", p.location)
		return
	}
	net := p.payIncomeTax(amount)
	*slot += net
	p.income += net
	p.cash += net
}

// The income crediting helpers below are the callbacks producers and the
// country budget use. The RGO/factory four implement production.Laborer.

func (p *Pop) AddRGOOwnerIncome(a fixed.Point) { p.addTaxedIncome(&p.rgoOwnerIncome, a, "rgo_owner") }
func (p *Pop) AddRGOWorkerIncome(a fixed.Point) {
	p.addTaxedIncome(&p.rgoWorkerIncome, a, "rgo_worker")
}
func (p *Pop) AddFactoryOwnerIncome(a fixed.Point) {
	p.addTaxedIncome(&p.factoryOwnerIncome, a, "factory_owner")
}
func (p *Pop) AddFactoryWorkerIncome(a fixed.Point) {
	p.addTaxedIncome(&p.factoryWorkerIncome, a, "factory_worker")
}
func (p *Pop) AddUnemploymentSubsidies(a fixed.Point) {
	p.addTaxedIncome(&p.unemploymentSubsidies, a, "unemployment_subsidies")
}
func (p *Pop) AddPensions(a fixed.Point) { p.addTaxedIncome(&p.pensions, a, "pensions") }
func (p *Pop) AddAdministrationSalary(a fixed.Point) {
	p.addTaxedIncome(&p.administrationSalary, a, "administration_salary")
}
func (p *Pop) AddEducationSalary(a fixed.Point) {
	p.addTaxedIncome(&p.educationSalary, a, "education_salary")
}
func (p *Pop) AddMilitarySalary(a fixed.Point) {
	p.addTaxedIncome(&p.militarySalary, a, "military_salary")
}
func (p *Pop) AddEventIncome(a fixed.Point)  { p.addTaxedIncome(&p.eventIncome, a, "event_income") }
func (p *Pop) AddLoanInterest(a fixed.Point) { p.addTaxedIncome(&p.loanInterest, a, "loan_interest") }

// AddArtisanalRevenue credits artisan sale proceeds. Taxable revenue (the
// sold good matches the recipe last worked) is taxed on the margin over the
// batch's production costs.
func (p *Pop) AddArtisanalRevenue(amount fixed.Point, taxable bool) {
	if amount == 0 {
		slog.Warn("adding zero artisanal revenue to pop", "province", p.location)
		return
	}
	if amount < 0 {
		slog.Error("adding negative artisanal revenue to pop", "amount", amount, "province", p.location)
		return
	}
	var tax fixed.Point
	if taxable && p.economy != nil && p.artisan != nil {
		profit := fixed.Max(0, amount-p.artisan.CostsOfProduction())
		if profit > 0 {
			tax = p.economy.EffectiveTaxRate(p.typ.Strata).Mul(profit)
			p.economy.ReportPopIncomeTax(p.typ.Index, profit, tax)
		}
	}
	p.artisanalRevenue += amount
	net := amount - tax
	p.income += net
	p.cash += net
}

// AddImportSubsidies credits cash directly: not income (it would be taxed)
// and not a negative expense (expenses could go negative).
func (p *Pop) AddImportSubsidies(amount fixed.Point) {
	if amount <= 0 {
		return
	}
	p.cash += amount
}

// addExpense debits cash into an expense accumulator, clamping cash at zero
// with a logged bug on underflow.
func (p *Pop) addExpense(slot *fixed.Point, amount fixed.Point, kind string) {
	if amount == 0 {
		slog.Warn("adding zero expense to pop", "kind", kind, "province", p.location)
		return
	}
	*slot += amount
	p.expenses += amount
	if p.expenses < 0 {
		slog.Error("pop expenses went negative", "kind", kind, "expenses", p.expenses, "province", p.location)
	}
	p.cash -= amount
	if p.cash < 0 {
		slog.Error("pop cash went negative", "kind", kind, "cash", p.cash, "province", p.location)
		p.cash = 0
	}
}

// AddLifeNeedsExpense, siblings below, record daily spending.
func (p *Pop) AddLifeNeedsExpense(a fixed.Point) { p.addExpense(&p.lifeNeedsExpense, a, "life_needs") }
func (p *Pop) AddEverydayNeedsExpense(a fixed.Point) {
	p.addExpense(&p.everydayNeedsExpense, a, "everyday_needs")
}
func (p *Pop) AddLuxuryNeedsExpense(a fixed.Point) {
	p.addExpense(&p.luxuryNeedsExpense, a, "luxury_needs")
}
func (p *Pop) AddArtisanInputsExpense(a fixed.Point) {
	p.addExpense(&p.artisanInputsExpense, a, "artisan_inputs")
}

func (p *Pop) needExpenseSlot(c NeedCategory) (*fixed.Point, string) {
	switch c {
	case NeedLife:
		return &p.lifeNeedsExpense, "life_needs"
	case NeedEveryday:
		return &p.everydayNeedsExpense, "everyday_needs"
	default:
		return &p.luxuryNeedsExpense, "luxury_needs"
	}
}

// Laborer implementation.

// LaborerPopType implements production.Laborer.
func (p *Pop) LaborerPopType() types.PopTypeIndex { return p.typ.Index }

// LaborerSize implements production.Laborer.
func (p *Pop) LaborerSize() int64 { return p.size }

// Hire adds employment for today, clamping at size with a logged bug.
func (p *Pop) Hire(count int64) {
	if count <= 0 {
		slog.Warn("hiring non-positive pop count", "count", count, "province", p.location)
		return
	}
	p.employed += count
	if p.employed > p.size {
		slog.Error("employed exceeds pop size", "employed", p.employed, "size", p.size, "province", p.location)
		p.employed = p.size
	}
}

// ArtisanHost implementation.

// ArtisanalCashBudget returns the cash the pop will let its artisan commit
// today: the spending headroom minus what is already reserved.
func (p *Pop) ArtisanalCashBudget() fixed.Point {
	maxCost := p.maxCostMultiplier
	if maxCost <= 0 {
		maxCost = fixed.One
	}
	budget := p.cash.Div(maxCost) - p.cashAllocatedForArtisanalSpending
	return fixed.Max(0, budget)
}

// AllocateArtisanalCash reserves cash for artisanal input orders.
func (p *Pop) AllocateArtisanalCash(amount fixed.Point) {
	p.cashAllocatedForArtisanalSpending += amount
}

// ConvertToEquivalent switches the pop to its type's equivalent, used on
// emancipation. Returns false when no equivalent exists.
func (p *Pop) ConvertToEquivalent(catalogue *TypeCatalogue) bool {
	if p.typ.Equivalent == NoPopType {
		slog.Error("pop type has no equivalent", "type", p.typ.Identifier)
		return false
	}
	p.typ = catalogue.At(p.typ.Equivalent)
	return true
}

// TryRecruit raises the regiment count when support headroom remains.
func (p *Pop) TryRecruit() bool {
	if p.regimentCount >= p.maxSupportedRegiments {
		return false
	}
	p.regimentCount++
	return true
}

// TryRecruitUnderstrength allows one regiment beyond the support cap.
func (p *Pop) TryRecruitUnderstrength() bool {
	if p.regimentCount > p.maxSupportedRegiments {
		return false
	}
	p.regimentCount++
	return true
}

// UpdateGamestate clamps attributes, refreshes culture status against the
// owner, and derives regiment support. Runs in the gamestate phase after
// market clearing.
func (p *Pop) UpdateGamestate(judge CultureJudge, defines *Defines) {
	if judge != nil {
		switch {
		case judge.IsPrimaryCulture(p.culture):
			p.cultureStatus = CulturePrimary
		case judge.IsAcceptedCulture(p.culture):
			p.cultureStatus = CultureAccepted
		default:
			p.cultureStatus = CultureUnaccepted
		}
	} else {
		p.cultureStatus = CultureUnaccepted
	}

	p.militancy = fixed.Clamp(p.militancy, 0, fixed.FromInt(10))
	p.consciousness = fixed.Clamp(p.consciousness, 0, fixed.FromInt(10))
	p.literacy = fixed.Clamp(p.literacy, fixed.One/100, fixed.One)

	if p.size < defines.MinPopSizeForRegiment ||
		judge == nil ||
		!p.typ.CanBeRecruited ||
		!judge.AllowsRegimentCulture(p.cultureStatus) {
		p.maxSupportedRegiments = 0
		return
	}
	perRegiment := fixed.FromInt(defines.PopSizePerRegiment).Mul(defines.PopSizePerRegimentMultiplier)
	if perRegiment <= 0 {
		p.maxSupportedRegiments = 0
		return
	}
	p.maxSupportedRegiments = fixed.FromInt(p.size).Div(perRegiment).Floor() + 1
}
