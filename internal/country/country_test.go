package country

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/types"
)

func newTestCountry(t *testing.T) (*Instance, *pop.TypeCatalogue) {
	t.Helper()
	popTypes := pop.NewTypeCatalogue()
	_, err := popTypes.Register(pop.PopType{
		Identifier: "clerks", Strata: pop.StrataMiddle,
		ResearchPoints: fixed.FromInt(2), ResearchOptimum: fixed.ParseUnsafe(0.25),
		Equivalent: pop.NoPopType,
	})
	require.NoError(t, err)
	_, err = popTypes.Register(pop.PopType{
		Identifier: "farmers", Strata: pop.StrataPoor,
		CanBeUnemployed: true,
		Equivalent:      pop.NoPopType,
	})
	require.NoError(t, err)
	popTypes.Lock()

	catalogue := modifier.NewCatalogue()
	catalogue.Lock()

	defs := NewCatalogue()
	idx, err := defs.Register(Definition{
		Tag:              "ENG",
		PrimaryCulture:   0,
		AcceptedCultures: []types.CultureIndex{1},
		Parties: []Party{
			{Identifier: "whigs"},
			{Identifier: "tories"},
		},
	})
	require.NoError(t, err)
	defs.Lock()

	inst := NewInstance(defs.At(idx), popTypes, catalogue, Sizes{
		PopTypes: popTypes.Len(), Cultures: 3, Religions: 2, Ideologies: 2,
	})
	return inst, popTypes
}

func TestRuleSetUnion(t *testing.T) {
	a := RuleSet(RuleBuildFactory | RuleCanSubsidise)
	b := RuleSet(RuleExpandFactory)
	u := a.Union(b)
	assert.True(t, u.Has(RuleBuildFactory))
	assert.True(t, u.Has(RuleExpandFactory))
	assert.False(t, u.Has(RuleSlaveryAllowed))
}

func TestPartyRosterOrdinals(t *testing.T) {
	c, _ := newTestCountry(t)
	require.Len(t, c.Definition().Parties, 2)
	assert.Equal(t, types.PartyIndex(0), c.Definition().Parties[0].Index)
	assert.Equal(t, types.PartyIndex(1), c.Definition().Parties[1].Index)

	assert.Nil(t, c.RulingParty())
	c.SetRulingParty(1)
	require.NotNil(t, c.RulingParty())
	assert.Equal(t, "tories", c.RulingParty().Identifier)
}

func TestEffectiveTaxClamped(t *testing.T) {
	c, _ := newTestCountry(t)
	c.SetTaxRate(pop.StrataMiddle, fixed.ParseUnsafe(0.9))
	c.RecalculateRates(fixed.ParseUnsafe(0.5), 0, 0, fixed.One)
	assert.Equal(t, fixed.One, c.EffectiveTaxRate(pop.StrataMiddle), "tax clamps at 100%")

	c.SetTaxRate(pop.StrataPoor, fixed.ParseUnsafe(0.25))
	c.RecalculateRates(0, 0, 0, fixed.One)
	assert.Equal(t, fixed.ParseUnsafe(0.25), c.EffectiveTaxRate(pop.StrataPoor))
}

func TestTariffClampedToBounds(t *testing.T) {
	c, _ := newTestCountry(t)
	c.SetTariffRate(fixed.ParseUnsafe(0.8))
	c.RecalculateRates(0, 0, 0, fixed.ParseUnsafe(0.5))
	tariff := c.ApplyTariff(fixed.FromInt(100))
	assert.Equal(t, fixed.ParseUnsafe(0.5).Mul(fixed.FromInt(100)), tariff)
	assert.Equal(t, tariff, c.Treasury(), "tariff lands in the treasury")
}

func TestIncomeTaxLandsInTreasury(t *testing.T) {
	c, _ := newTestCountry(t)
	c.ReportPopIncomeTax(0, fixed.FromInt(100), fixed.FromInt(10))
	assert.Equal(t, fixed.FromInt(10), c.Treasury())
	assert.Equal(t, fixed.FromInt(10), c.TaxCollectedToday())
}

func TestWelfareStopsAtEmptyTreasury(t *testing.T) {
	c, popTypes := newTestCountry(t)
	farmers, _ := popTypes.Lookup("farmers")
	p := pop.New(popTypes.At(farmers), 0, 0, 1000, 0, 0, fixed.One/2, 0, 0, 2)

	c.SetWelfare(WelfarePolicy{UnemploymentSubsidyPerCapita: fixed.ParseUnsafe(0.01)})
	c.SetTreasury(fixed.FromInt(3))
	c.RequestSalariesAndWelfare(p)

	// 1000 unemployed x 0.01 = 10 wanted, but only 3 in the treasury.
	assert.Equal(t, fixed.Point(0), c.Treasury())
	assert.Equal(t, fixed.FromInt(3), p.Cash())
}

func TestCultureJudgement(t *testing.T) {
	c, _ := newTestCountry(t)
	assert.True(t, c.IsPrimaryCulture(0))
	assert.True(t, c.IsAcceptedCulture(1))
	assert.False(t, c.IsAcceptedCulture(2))

	c.SetRegimentCulturePolicy(RegimentsAcceptedCulture)
	assert.True(t, c.AllowsRegimentCulture(pop.CulturePrimary))
	assert.True(t, c.AllowsRegimentCulture(pop.CultureAccepted))
	assert.False(t, c.AllowsRegimentCulture(pop.CultureUnaccepted))

	c.SetRegimentCulturePolicy(RegimentsNone)
	assert.False(t, c.AllowsRegimentCulture(pop.CulturePrimary))
}

// Aggregation: two provinces of two clerk pops each sum into the country's
// per-type count.
func TestAggregationAcrossProvinces(t *testing.T) {
	c, popTypes := newTestCountry(t)
	clerks, _ := popTypes.Lookup("clerks")

	c.ResetDailyAggregates()
	sizes := []int64{1000, 500, 1000, 500}
	for i, size := range sizes {
		p := pop.New(popTypes.At(clerks), 0, 0, size, 0, 0, fixed.One/2, types.ProvinceIndex(i/2), int32(i%2), 2)
		p.UpdateGamestate(c, pop.DefaultDefines())
		c.AbsorbPop(p)
	}
	c.FinaliseAggregates()

	assert.Equal(t, fixed.FromInt(3000), c.PopCountByType(clerks))
	assert.Equal(t, int64(3000), c.TotalPopulation())
	assert.Equal(t, int64(3000), c.PrimaryCulturePopulation(), "culture 0 is primary")
	assert.Greater(t, int64(c.ResearchPool()), int64(0), "clerks generate research")
}

func TestFlagsAndUnlocks(t *testing.T) {
	c, _ := newTestCountry(t)
	assert.False(t, c.HasFlag("liberal_revolution"))
	c.SetFlag("liberal_revolution")
	assert.True(t, c.HasFlag("liberal_revolution"))
	c.ClearFlag("liberal_revolution")
	assert.False(t, c.HasFlag("liberal_revolution"))

	c.UnlockTechnology("iron_steamers")
	assert.True(t, c.HasTechnology("iron_steamers"))
	c.UnlockInvention("sharp_shooters")
	assert.True(t, c.HasInvention("sharp_shooters"))
}
