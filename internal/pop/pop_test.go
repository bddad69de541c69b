package pop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/entropy"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/types"
)

// fakeEconomy implements Economy with a flat tax rate and tariff.
type fakeEconomy struct {
	country       types.CountryIndex
	taxRate       fixed.Point
	tariffRate    fixed.Point
	taxCollected  fixed.Point
	taxableIncome fixed.Point
	demand        map[types.GoodIndex]fixed.Point
	consumption   map[types.GoodIndex]fixed.Point
	welfarePaid   bool
}

func newFakeEconomy(taxRate fixed.Point) *fakeEconomy {
	return &fakeEconomy{
		country:     0,
		taxRate:     taxRate,
		demand:      make(map[types.GoodIndex]fixed.Point),
		consumption: make(map[types.GoodIndex]fixed.Point),
	}
}

func (e *fakeEconomy) EconomyCountryIndex() types.CountryIndex { return e.country }
func (e *fakeEconomy) EffectiveTaxRate(Strata) fixed.Point     { return e.taxRate }
func (e *fakeEconomy) ReportPopIncomeTax(_ types.PopTypeIndex, income, tax fixed.Point) {
	e.taxableIncome += income
	e.taxCollected += tax
}
func (e *fakeEconomy) ReportPopNeedDemand(_ types.PopTypeIndex, g types.GoodIndex, q fixed.Point) {
	e.demand[g] += q
}
func (e *fakeEconomy) ReportPopNeedConsumption(_ types.PopTypeIndex, g types.GoodIndex, q fixed.Point) {
	e.consumption[g] += q
}
func (e *fakeEconomy) ApplyTariff(importsValue fixed.Point) fixed.Point {
	return e.tariffRate.Mul(importsValue)
}
func (e *fakeEconomy) RequestSalariesAndWelfare(p *Pop) { e.welfarePaid = true }

func newPopWorld(t *testing.T) (*market.Manager, *TypeCatalogue, types.GoodIndex, types.GoodIndex) {
	t.Helper()
	cat := market.NewCatalogue()
	grain, err := cat.Register(market.GoodDefinition{
		Identifier: "grain", BasePrice: fixed.FromInt(2), AvailableFromStart: true,
	})
	require.NoError(t, err)
	cloth, err := cat.Register(market.GoodDefinition{
		Identifier: "cloth", BasePrice: fixed.FromInt(4), AvailableFromStart: true,
	})
	require.NoError(t, err)
	cat.Lock()
	m := market.NewManager(cat, false)

	popTypes := NewTypeCatalogue()
	lifeNeeds := types.NewSparsePoints[types.GoodIndex]()
	lifeNeeds.Set(grain, fixed.FromInt(10000))
	everydayNeeds := types.NewSparsePoints[types.GoodIndex]()
	everydayNeeds.Set(cloth, fixed.FromInt(5000))
	_, err = popTypes.Register(PopType{
		Identifier: "farmers",
		Strata:     StrataPoor,
		Needs: [NumNeedCategories]*types.SparsePoints[types.GoodIndex]{
			NeedLife: lifeNeeds, NeedEveryday: everydayNeeds,
		},
		CanBeRecruited:  true,
		CanBeUnemployed: true,
		Equivalent:      NoPopType,
	})
	require.NoError(t, err)
	_, err = popTypes.Register(PopType{
		Identifier: "artisans",
		Strata:     StrataMiddle,
		IsArtisan:  true,
		Equivalent: NoPopType,
	})
	require.NoError(t, err)
	popTypes.Lock()
	return m, popTypes, grain, cloth
}

func newTestContext(m *market.Manager) *TickContext {
	return NewTickContext(m, NewSharedValues(DefaultDefines()), entropy.NewSource(1), nil)
}

func TestTickPlacesNeedOrders(t *testing.T) {
	m, popTypes, grain, cloth := newPopWorld(t)
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 200000, 0, 0, fixed.One/2, 0, 0, 0)
	p.SetCash(fixed.FromInt(1000))

	econ := newFakeEconomy(0)
	ctx := newTestContext(m)
	ctx.Economy = econ
	p.Tick(ctx)

	// Consciousness 0, size 200000: desired grain = 10000 * 200000/200000... /200000
	// = 10000 * size / denominator = 10000.
	assert.True(t, econ.welfarePaid)
	assert.Equal(t, fixed.FromInt(10000), p.desired[NeedLife])
	assert.Equal(t, fixed.FromInt(5000), p.desired[NeedEveryday])
	assert.Equal(t, fixed.FromInt(10000), econ.demand[grain])
	assert.Equal(t, fixed.FromInt(5000), econ.demand[cloth])

	// Clearing against ample supply feeds the needs.
	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good: grain, Country: types.NoCountry, Quantity: fixed.FromInt(100000),
	}, nil)
	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good: cloth, Country: types.NoCountry, Quantity: fixed.FromInt(100000),
	}, nil)
	m.ExecuteAll(nil)

	assert.Greater(t, int64(p.acquired[NeedLife]), int64(0))
	assert.Greater(t, int64(p.Expenses()), int64(0))
	assert.GreaterOrEqual(t, int64(p.Cash()), int64(0))
}

func TestConsciousnessScalesNeeds(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	farmers, _ := popTypes.Lookup("farmers")

	calm := New(popTypes.At(farmers), 0, 0, 200000, 0, 0, fixed.One/2, 0, 0, 0)
	calm.SetCash(fixed.FromInt(1000))
	restless := New(popTypes.At(farmers), 0, 0, 200000, 0, fixed.FromInt(5), fixed.One/2, 0, 1, 0)
	restless.SetCash(fixed.FromInt(1000))

	ctx := newTestContext(m)
	calm.Tick(ctx)
	restless.Tick(ctx)

	// base scalar = (1 + 2*con/10): con 5 doubles desired needs.
	assert.Equal(t, calm.desired[NeedLife].Mul(fixed.FromInt(2)), restless.desired[NeedLife])
}

func TestCashNeverCommittedBeyondHeadroom(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 200000, 0, 0, fixed.One/2, 0, 0, 0)
	p.SetCash(fixed.FromInt(10))

	ctx := newTestContext(m)
	p.Tick(ctx)

	var committed fixed.Point
	for _, money := range ctx.MoneyPerGood {
		committed += money
	}
	// MaxCostMultiplier 2 halves the spendable cash.
	assert.LessOrEqual(t, int64(committed), int64(fixed.FromInt(5)))
}

func TestSizeUnchangedByTick(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 150000, 0, 0, fixed.One/2, 0, 0, 0)
	p.SetCash(fixed.FromInt(100))

	ctx := newTestContext(m)
	for day := 0; day < 5; day++ {
		p.Tick(ctx)
		m.ExecuteAll(nil)
		p.UpdateGamestate(nil, ctx.Shared.Defines)
		assert.Equal(t, int64(150000), p.Size())
		assert.GreaterOrEqual(t, int64(p.Cash()), int64(0))
	}
}

// Taxable artisanal revenue: sell 100 with production costs 60 at middle
// tax 0.1 collects 4 and nets the pop 96.
func TestArtisanalIncomeTax(t *testing.T) {
	m, popTypes, grain, _ := newPopWorld(t)
	_ = m
	artisans, _ := popTypes.Lookup("artisans")
	p := New(popTypes.At(artisans), 0, 0, 1000, 0, 0, fixed.One/2, 0, 0, 0)

	prodCat := production.NewCatalogue()
	_, err := prodCat.Register(production.Type{
		Identifier: "artisan_bread", Kind: production.KindArtisan,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.One,
		OutputGood: grain,
	})
	require.NoError(t, err)
	prodCat.Lock()

	p.Artisan().RestoreState(prodCat.At(0), grain, fixed.FromInt(60))
	p.Artisan().Stockpile().Set(grain, fixed.FromInt(50))

	econ := newFakeEconomy(fixed.ParseUnsafe(0.1))
	p.SetEconomy(econ)

	cashBefore := p.Cash()
	popAfterSell(p, market.SellResult{
		Good: grain, QuantitySold: fixed.FromInt(50), MoneyGained: fixed.FromInt(100),
	}, nil)

	assert.Equal(t, fixed.FromInt(100), p.ArtisanalRevenue())
	wantTax := fixed.ParseUnsafe(0.1).Mul(fixed.FromInt(40))
	assert.Equal(t, wantTax, econ.taxCollected)
	assert.Equal(t, fixed.FromInt(100)-wantTax, p.Cash()-cashBefore)
	assert.Equal(t, fixed.Point(0), p.Artisan().Stockpile().Get(grain))
}

func TestNonMatchingGoodRevenueUntaxed(t *testing.T) {
	m, popTypes, grain, cloth := newPopWorld(t)
	_ = m
	artisans, _ := popTypes.Lookup("artisans")
	p := New(popTypes.At(artisans), 0, 0, 1000, 0, 0, fixed.One/2, 0, 0, 0)

	prodCat := production.NewCatalogue()
	_, err := prodCat.Register(production.Type{
		Identifier: "artisan_bread", Kind: production.KindArtisan,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.One,
		OutputGood: grain,
	})
	require.NoError(t, err)
	prodCat.Lock()
	p.Artisan().RestoreState(prodCat.At(0), grain, fixed.FromInt(60))
	p.Artisan().Stockpile().Set(cloth, fixed.FromInt(10))

	econ := newFakeEconomy(fixed.ParseUnsafe(0.1))
	p.SetEconomy(econ)

	popAfterSell(p, market.SellResult{
		Good: cloth, QuantitySold: fixed.FromInt(10), MoneyGained: fixed.FromInt(30),
	}, nil)

	assert.Equal(t, fixed.Point(0), econ.taxCollected, "stale stockpile sales are not taxable")
	assert.Equal(t, fixed.FromInt(30), p.ArtisanalRevenue())
}

func TestTariffAddedToImportSpending(t *testing.T) {
	m, popTypes, grain, _ := newPopWorld(t)
	_ = m
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 200000, 0, 0, fixed.One/2, 0, 0, 0)
	p.SetCash(fixed.FromInt(1000))

	econ := newFakeEconomy(0)
	econ.tariffRate = fixed.ParseUnsafe(0.5)
	p.SetEconomy(econ)
	p.needs[NeedLife].Set(grain, fixed.FromInt(10))

	cashBefore := p.Cash()
	popAfterBuy(p, market.BuyResult{
		Good:                grain,
		QuantityBought:      fixed.FromInt(10),
		MoneySpentTotal:     fixed.FromInt(20),
		MoneySpentOnImports: fixed.FromInt(20),
	})

	// 20 spent + 10 tariff.
	assert.Equal(t, fixed.FromInt(30), cashBefore-p.Cash())
	assert.Equal(t, fixed.FromInt(20), p.YesterdaysImportValue())
	assert.True(t, p.NeedSatisfied(NeedLife, grain))
}

func TestIncomeTaxedAtSource(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	_ = m
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 1000, 0, 0, fixed.One/2, 0, 0, 0)

	econ := newFakeEconomy(fixed.ParseUnsafe(0.25))
	p.SetEconomy(econ)

	p.AddRGOWorkerIncome(fixed.FromInt(100))
	assert.Equal(t, fixed.FromInt(75), p.Cash())
	assert.Equal(t, fixed.FromInt(75), p.RGOWorkerIncome())
	assert.Equal(t, fixed.FromInt(25), econ.taxCollected)
}

func TestImportSubsidiesBypassIncome(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	_ = m
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 1000, 0, 0, fixed.One/2, 0, 0, 0)
	econ := newFakeEconomy(fixed.ParseUnsafe(0.25))
	p.SetEconomy(econ)

	p.AddImportSubsidies(fixed.FromInt(10))
	assert.Equal(t, fixed.FromInt(10), p.Cash())
	assert.Equal(t, fixed.Point(0), p.Income())
	assert.Equal(t, fixed.Point(0), econ.taxCollected)
}

func TestHireClampsAtSize(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	_ = m
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 100, 0, 0, fixed.One/2, 0, 0, 0)

	p.Hire(80)
	assert.Equal(t, int64(80), p.Employed())
	p.Hire(50)
	assert.Equal(t, int64(100), p.Employed(), "employment clamps at size")
	assert.Equal(t, int64(0), p.Unemployed())
}

type fakeJudge struct {
	primary, accepted bool
	allowStatus       bool
}

func (j *fakeJudge) IsPrimaryCulture(types.CultureIndex) bool  { return j.primary }
func (j *fakeJudge) IsAcceptedCulture(types.CultureIndex) bool { return j.accepted }
func (j *fakeJudge) AllowsRegimentCulture(CultureStatus) bool  { return j.allowStatus }

func TestUpdateGamestateClampsAndRegiments(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	_ = m
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 25000, fixed.FromInt(15), fixed.FromInt(-3), fixed.FromInt(2), 0, 0, 0)

	judge := &fakeJudge{primary: true, allowStatus: true}
	defines := DefaultDefines()
	p.UpdateGamestate(judge, defines)

	assert.Equal(t, fixed.FromInt(10), p.Militancy())
	assert.Equal(t, fixed.Point(0), p.Consciousness())
	assert.Equal(t, fixed.One, p.Literacy())
	assert.Equal(t, CulturePrimary, p.CultureStatus())
	// 25000 / 10000 floor + 1 = 3.
	assert.Equal(t, int64(3), p.MaxSupportedRegiments())

	assert.True(t, p.TryRecruit())
	assert.True(t, p.TryRecruit())
	assert.True(t, p.TryRecruit())
	assert.False(t, p.TryRecruit())
	assert.True(t, p.TryRecruitUnderstrength())
	assert.False(t, p.TryRecruitUnderstrength())
}

func TestNoOwnerMeansNoRegiments(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	_ = m
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 25000, 0, 0, fixed.One/2, 0, 0, 0)
	p.UpdateGamestate(nil, DefaultDefines())
	assert.Equal(t, int64(0), p.MaxSupportedRegiments())
	assert.Equal(t, CultureUnaccepted, p.CultureStatus())
}

func TestIncomeMatchesCashDelta(t *testing.T) {
	m, popTypes, _, _ := newPopWorld(t)
	farmers, _ := popTypes.Lookup("farmers")
	p := New(popTypes.At(farmers), 0, 0, 200000, 0, 0, fixed.One/2, 0, 0, 0)
	p.SetCash(fixed.FromInt(500))

	ctx := newTestContext(m)
	p.Tick(ctx)
	cashAfterReset := p.Cash()

	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good: 0, Country: types.NoCountry, Quantity: fixed.FromInt(100000),
	}, nil)
	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good: 1, Country: types.NoCountry, Quantity: fixed.FromInt(100000),
	}, nil)
	p.AddRGOWorkerIncome(fixed.FromInt(50))
	m.ExecuteAll(nil)

	delta := p.Cash() - cashAfterReset
	assert.Equal(t, p.Income()-p.Expenses(), delta,
		"income minus expenses equals the cash delta over the day")
}
