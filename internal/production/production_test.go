package production

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

type fakePop struct {
	popType       types.PopTypeIndex
	size          int64
	employed      int64
	rgoWorker     fixed.Point
	rgoOwner      fixed.Point
	factoryWorker fixed.Point
	factoryOwner  fixed.Point
	cashBudget    fixed.Point
	cashAllocated fixed.Point
}

func (p *fakePop) LaborerPopType() types.PopTypeIndex       { return p.popType }
func (p *fakePop) LaborerSize() int64                       { return p.size }
func (p *fakePop) Hire(count int64)                         { p.employed += count }
func (p *fakePop) AddRGOWorkerIncome(a fixed.Point)         { p.rgoWorker += a }
func (p *fakePop) AddRGOOwnerIncome(a fixed.Point)          { p.rgoOwner += a }
func (p *fakePop) AddFactoryWorkerIncome(a fixed.Point)     { p.factoryWorker += a }
func (p *fakePop) AddFactoryOwnerIncome(a fixed.Point)      { p.factoryOwner += a }
func (p *fakePop) ArtisanalCashBudget() fixed.Point         { return p.cashBudget }
func (p *fakePop) AllocateArtisanalCash(amount fixed.Point) { p.cashAllocated += amount }

func buyAll(m *market.Manager, good types.GoodIndex, quantity fixed.Point) {
	m.PlaceBuyUpToOrder(market.BuyUpToOrder{
		Good: good, Country: types.NoCountry,
		MaxQuantity: quantity, MoneyToSpend: fixed.UsableMax / 2,
	})
}

func sellAll(m *market.Manager, good types.GoodIndex, quantity fixed.Point) {
	m.PlaceMarketSellOrder(market.MarketSellOrder{
		Good: good, Country: types.NoCountry, Quantity: quantity,
	}, nil)
}

func newProductionWorld(t *testing.T) (*market.Manager, types.GoodIndex, types.GoodIndex, types.GoodIndex) {
	t.Helper()
	cat := market.NewCatalogue()
	grain, err := cat.Register(market.GoodDefinition{
		Identifier: "grain", BasePrice: fixed.FromInt(2), AvailableFromStart: true,
	})
	require.NoError(t, err)
	iron, err := cat.Register(market.GoodDefinition{
		Identifier: "iron", BasePrice: fixed.FromInt(4), AvailableFromStart: true,
	})
	require.NoError(t, err)
	tools, err := cat.Register(market.GoodDefinition{
		Identifier: "tools", BasePrice: fixed.FromInt(10), AvailableFromStart: true,
	})
	require.NoError(t, err)
	cat.Lock()
	return market.NewManager(cat, false), grain, iron, tools
}

func TestTypeValidation(t *testing.T) {
	owner := &Job{PopType: 0, EffectMultiplier: fixed.One}
	workers := []Job{{PopType: 1, EffectMultiplier: fixed.One}}

	artisanWithOwner := Type{
		Identifier: "bad_artisan", Kind: KindArtisan, OwnerJob: owner,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.One,
	}
	assert.Error(t, artisanWithOwner.Validate())

	rgoWithoutJobs := Type{
		Identifier: "bad_rgo", Kind: KindRGO,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.One,
	}
	assert.Error(t, rgoWithoutJobs.Validate())

	ok := Type{
		Identifier: "grain_farm", Kind: KindRGO, OwnerJob: owner, EmployeeJobs: workers,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.One, IsFarm: true,
	}
	assert.NoError(t, ok.Validate())
}

func TestRGORevenueDistribution(t *testing.T) {
	m, grain, _, _ := newProductionWorld(t)

	ptype := &Type{
		Identifier: "grain_farm", Kind: KindRGO,
		OwnerJob:           &Job{PopType: 0, EffectMultiplier: fixed.One},
		EmployeeJobs:       []Job{{PopType: 1, EffectMultiplier: fixed.One}},
		BaseWorkforceSize:  100,
		BaseOutputQuantity: fixed.FromInt(10),
		OutputGood:         grain,
		InputGoods:         types.NewSparsePoints[types.GoodIndex](),
	}
	owner := &fakePop{popType: 0, size: 10}
	worker := &fakePop{popType: 1, size: 100}

	rgo := NewRGO(ptype, 0, fixed.One, owner, fixed.ParseUnsafe(0.25))
	rgo.SetEmployees([]Employment{{Worker: worker, Size: 100}})

	rgo.Tick(m, Modifiers{}, script.NoScope, nil)
	// Full workforce at size multiplier 1 produces base output 10.
	buyAll(m, grain, fixed.FromInt(10))
	m.ExecuteAll(nil)

	revenue := fixed.FromInt(10).Mul(m.Good(grain).Price())
	assert.Equal(t, revenue.Mul(fixed.ParseUnsafe(0.25)), owner.rgoOwner)
	assert.Equal(t, revenue-owner.rgoOwner, worker.rgoWorker)

	rgo.FinishDay()
	assert.Equal(t, revenue, rgo.RevenueYesterday())
	assert.Equal(t, fixed.FromInt(10), rgo.OutputQuantityYesterday())
	assert.Equal(t, fixed.Point(0), rgo.UnsoldQuantityYesterday())
	assert.Equal(t, int64(100), worker.employed)
}

func TestRGOHalfWorkforceHalfOutput(t *testing.T) {
	m, grain, _, _ := newProductionWorld(t)
	ptype := &Type{
		Identifier: "grain_farm", Kind: KindRGO,
		OwnerJob:           &Job{PopType: 0, EffectMultiplier: fixed.One},
		EmployeeJobs:       []Job{{PopType: 1, EffectMultiplier: fixed.One}},
		BaseWorkforceSize:  100,
		BaseOutputQuantity: fixed.FromInt(10),
		OutputGood:         grain,
		InputGoods:         types.NewSparsePoints[types.GoodIndex](),
	}
	worker := &fakePop{popType: 1, size: 100}
	rgo := NewRGO(ptype, 0, fixed.One, nil, 0)
	rgo.SetEmployees([]Employment{{Worker: worker, Size: 50}})

	rgo.Tick(m, Modifiers{}, script.NoScope, nil)
	buyAll(m, grain, fixed.FromInt(10))
	m.ExecuteAll(nil)
	rgo.FinishDay()

	assert.Equal(t, fixed.FromInt(5), rgo.OutputQuantityYesterday())
}

func TestFactoryPipelineAndProfitHistory(t *testing.T) {
	m, _, iron, tools := newProductionWorld(t)

	inputs := types.NewSparsePoints[types.GoodIndex]()
	inputs.Set(iron, fixed.ParseUnsafe(0.5))
	ptype := &Type{
		Identifier: "tool_factory", Kind: KindFactory,
		OwnerJob:           &Job{PopType: 0, EffectMultiplier: fixed.One},
		EmployeeJobs:       []Job{{PopType: 1, EffectMultiplier: fixed.One}},
		BaseWorkforceSize:  1000,
		BaseOutputQuantity: fixed.FromInt(20),
		OutputGood:         tools,
		InputGoods:         inputs,
	}
	worker := &fakePop{popType: 1, size: 1000}
	f := NewFactory(ptype, 0, fixed.One, fixed.FromInt(1000), nil, 0)
	f.SetEmployees([]Employment{{Worker: worker, Size: 1000}})

	// Day 1: empty stockpile, no production, inputs get ordered.
	wage := fixed.ParseUnsafe(0.01)
	f.Tick(m, Modifiers{}, script.NoScope, wage, nil)
	assert.Equal(t, fixed.Point(0), f.ProfitabilityYesterday())
	sellAll(m, iron, fixed.FromInt(10))
	m.ExecuteAll(nil)
	f.FinishDay()

	assert.Greater(t, int64(f.Stockpile().Get(iron)), int64(0), "bought inputs stockpiled")
	assert.Greater(t, int64(f.MarketSpendingsYesterday()), int64(0))
	assert.Greater(t, int64(f.PaychecksYesterday()), int64(0))
	assert.Less(t, int64(f.BalanceYesterday()), int64(0), "no sales yet, day runs at a loss")
	assert.Equal(t, uint32(1), f.UnprofitableDays())

	// Day 2: stockpiled iron produces tools which sell.
	f.Tick(m, Modifiers{}, script.NoScope, wage, nil)
	buyAll(m, tools, fixed.FromInt(100))
	sellAll(m, iron, fixed.FromInt(10))
	m.ExecuteAll(nil)
	f.FinishDay()

	assert.Greater(t, int64(f.RevenueYesterday()), int64(0))
	assert.Greater(t, int64(f.OutputQuantityYesterday()), int64(0))
	assert.Equal(t, f.BalanceYesterday(), f.ProfitabilityYesterday())

	assert.NotZero(t, f.AverageProfitabilityLastSevenDays())
}

func TestFactoryDaysWithoutInput(t *testing.T) {
	m, _, iron, tools := newProductionWorld(t)
	inputs := types.NewSparsePoints[types.GoodIndex]()
	inputs.Set(iron, fixed.One)
	ptype := &Type{
		Identifier: "tool_factory", Kind: KindFactory,
		OwnerJob:           &Job{PopType: 0, EffectMultiplier: fixed.One},
		EmployeeJobs:       []Job{{PopType: 1, EffectMultiplier: fixed.One}},
		BaseWorkforceSize:  100,
		BaseOutputQuantity: fixed.FromInt(5),
		OutputGood:         tools,
		InputGoods:         inputs,
	}
	worker := &fakePop{popType: 1, size: 100}
	f := NewFactory(ptype, 0, fixed.One, 0, nil, 0) // no budget, can never buy
	f.SetEmployees([]Employment{{Worker: worker, Size: 100}})

	for day := 0; day < 3; day++ {
		f.Tick(m, Modifiers{}, script.NoScope, 0, nil)
		m.ExecuteAll(nil)
		f.FinishDay()
	}
	assert.Equal(t, uint32(3), f.DaysWithoutInput())
	assert.Equal(t, fixed.Point(0), f.OutputQuantityYesterday())
}

func TestFactorySubsidyCountsDays(t *testing.T) {
	m, _, _, tools := newProductionWorld(t)
	ptype := &Type{
		Identifier: "tool_factory", Kind: KindFactory,
		OwnerJob:           &Job{PopType: 0, EffectMultiplier: fixed.One},
		EmployeeJobs:       []Job{{PopType: 1, EffectMultiplier: fixed.One}},
		BaseWorkforceSize:  100,
		BaseOutputQuantity: fixed.One,
		OutputGood:         tools,
		InputGoods:         types.NewSparsePoints[types.GoodIndex](),
	}
	f := NewFactory(ptype, 0, fixed.One, 0, nil, 0)

	f.Tick(m, Modifiers{}, script.NoScope, 0, nil)
	f.AddSubsidy(fixed.FromInt(10))
	m.ExecuteAll(nil)
	f.FinishDay()
	assert.Equal(t, uint32(1), f.SubsidisedDays())
	assert.Equal(t, fixed.FromInt(10), f.Budget())

	f.Tick(m, Modifiers{}, script.NoScope, 0, nil)
	m.ExecuteAll(nil)
	f.FinishDay()
	assert.Equal(t, uint32(0), f.SubsidisedDays())
}

func TestProfitHistoryWindowMean(t *testing.T) {
	m, _, _, tools := newProductionWorld(t)
	ptype := &Type{
		Identifier: "tool_factory", Kind: KindFactory,
		OwnerJob:           &Job{PopType: 0, EffectMultiplier: fixed.One},
		EmployeeJobs:       []Job{{PopType: 1, EffectMultiplier: fixed.One}},
		BaseWorkforceSize:  100,
		BaseOutputQuantity: fixed.One,
		OutputGood:         tools,
		InputGoods:         types.NewSparsePoints[types.GoodIndex](),
	}
	f := NewFactory(ptype, 0, fixed.One, 0, nil, 0)

	// Nine idle days exercise the ring wrap; every balance is zero.
	for day := 0; day < 9; day++ {
		f.Tick(m, Modifiers{}, script.NoScope, 0, nil)
		m.ExecuteAll(nil)
		f.FinishDay()
	}
	assert.Equal(t, fixed.Point(0), f.ProfitabilityYesterday())
	assert.Equal(t, fixed.Point(0), f.AverageProfitabilityLastSevenDays())
}

func newArtisanWorld(t *testing.T) (*market.Manager, *Catalogue, types.GoodIndex, types.GoodIndex, types.GoodIndex, types.GoodIndex) {
	t.Helper()
	cat := market.NewCatalogue()
	grain, _ := cat.Register(market.GoodDefinition{Identifier: "grain", BasePrice: fixed.FromInt(2), AvailableFromStart: true})
	iron, _ := cat.Register(market.GoodDefinition{Identifier: "iron", BasePrice: fixed.FromInt(4), AvailableFromStart: true})
	tools, _ := cat.Register(market.GoodDefinition{Identifier: "tools", BasePrice: fixed.FromInt(10), AvailableFromStart: true})
	wine, _ := cat.Register(market.GoodDefinition{Identifier: "wine", BasePrice: fixed.FromInt(8)}) // unavailable
	cat.Lock()
	m := market.NewManager(cat, false)

	prod := NewCatalogue()
	toolInputs := types.NewSparsePoints[types.GoodIndex]()
	toolInputs.Set(iron, fixed.ParseUnsafe(0.5))
	_, err := prod.Register(Type{
		Identifier: "artisan_tools", Kind: KindArtisan,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.FromInt(4),
		OutputGood: tools, InputGoods: toolInputs,
	})
	require.NoError(t, err)
	grainInputs := types.NewSparsePoints[types.GoodIndex]()
	grainInputs.Set(grain, fixed.ParseUnsafe(0.25))
	_, err = prod.Register(Type{
		Identifier: "artisan_bread", Kind: KindArtisan,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.FromInt(2),
		OutputGood: grain, InputGoods: grainInputs,
	})
	require.NoError(t, err)
	wineInputs := types.NewSparsePoints[types.GoodIndex]()
	wineInputs.Set(grain, fixed.One)
	_, err = prod.Register(Type{
		Identifier: "artisan_wine", Kind: KindArtisan,
		BaseWorkforceSize: 100, BaseOutputQuantity: fixed.One,
		OutputGood: wine, InputGoods: wineInputs,
	})
	require.NoError(t, err)
	prod.Lock()
	return m, prod, grain, iron, tools, wine
}

// Recipe selection cycles round-robin over recipes with available output;
// the recipe with the unavailable output good is never chosen.
func TestArtisanRoundRobinSkipsUnavailable(t *testing.T) {
	m, prod, _, _, tools, _ := newArtisanWorld(t)
	sel := NewSelector(prod, m)
	require.Len(t, sel.Available(), 2)

	host := &fakePop{size: 100, cashBudget: fixed.FromInt(50)}
	a := NewArtisan()
	maxQty := make([]fixed.Point, m.Len())
	money := make([]fixed.Point, m.Len())
	goodsToSell := types.NewSparsePoints[types.GoodIndex]()

	var picked []string
	for day := 0; day < 3; day++ {
		for i := range maxQty {
			maxQty[i], money[i] = 0, 0
		}
		goodsToSell.Clear()
		a.Tick(host, m, Modifiers{}, script.NoScope, sel, maxQty, money, goodsToSell)
		require.NotNil(t, a.CurrentType())
		picked = append(picked, a.CurrentType().Identifier)
	}
	assert.Equal(t, []string{"artisan_tools", "artisan_bread", "artisan_tools"}, picked)
	assert.Equal(t, tools, prod.At(0).OutputGood)
}

func TestArtisanProducesFromStockpile(t *testing.T) {
	m, prod, _, iron, tools, _ := newArtisanWorld(t)
	sel := NewSelector(prod, m)
	host := &fakePop{size: 100, cashBudget: fixed.FromInt(100)}
	a := NewArtisan()
	maxQty := make([]fixed.Point, m.Len())
	money := make([]fixed.Point, m.Len())
	goodsToSell := types.NewSparsePoints[types.GoodIndex]()

	// Day 1: picks artisan_tools, requests iron.
	a.Tick(host, m, Modifiers{}, script.NoScope, sel, maxQty, money, goodsToSell)
	require.Greater(t, int64(maxQty[iron]), int64(0))
	require.Greater(t, int64(host.cashAllocated), int64(0))

	// Simulate the buy callback filling the stockpile.
	accepted := a.AddToStockpile(iron, maxQty[iron])
	assert.Equal(t, maxQty[iron], accepted)

	// Hold the same recipe by rolling the cursor back, then produce.
	a.cursor-- // next Tick picks artisan_tools again
	for i := range maxQty {
		maxQty[i], money[i] = 0, 0
	}
	goodsToSell.Clear()
	a.Tick(host, m, Modifiers{}, script.NoScope, sel, maxQty, money, goodsToSell)

	assert.Greater(t, int64(a.CurrentProduction()), int64(0))
	assert.Equal(t, tools, a.LastProducedGood())
	assert.Greater(t, int64(a.CostsOfProduction()), int64(0))
	assert.Greater(t, int64(goodsToSell.Get(tools)), int64(0), "output offered for sale")
}

func TestArtisanStockpileCaps(t *testing.T) {
	m, prod, _, iron, _, _ := newArtisanWorld(t)
	sel := NewSelector(prod, m)
	host := &fakePop{size: 100, cashBudget: fixed.FromInt(100)}
	a := NewArtisan()
	maxQty := make([]fixed.Point, m.Len())
	money := make([]fixed.Point, m.Len())
	goodsToSell := types.NewSparsePoints[types.GoodIndex]()

	a.Tick(host, m, Modifiers{}, script.NoScope, sel, maxQty, money, goodsToSell)
	need := a.currentNeeds.Get(iron)
	require.Greater(t, int64(need), int64(0))

	accepted := a.AddToStockpile(iron, need.Mul(fixed.FromInt(3)))
	assert.Equal(t, need, accepted, "stockpile refuses more than the recipe needs")
	assert.Equal(t, fixed.Point(0), a.AddToStockpile(iron, fixed.One))
}
