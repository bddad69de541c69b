package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/types"
)

func newTestProvince(t *testing.T) (*Province, *pop.TypeCatalogue) {
	t.Helper()
	popTypes := pop.NewTypeCatalogue()
	_, err := popTypes.Register(pop.PopType{Identifier: "farmers", Equivalent: pop.NoPopType})
	require.NoError(t, err)
	_, err = popTypes.Register(pop.PopType{Identifier: "clerks", Equivalent: pop.NoPopType})
	require.NoError(t, err)
	popTypes.Lock()

	catalogue := modifier.NewCatalogue()
	catalogue.Lock()

	p := NewProvince("prov_1", 0, false, catalogue, pop.DefaultDefines(), Sizes{
		PopTypes: popTypes.Len(), Cultures: 2, Religions: 2, Ideologies: 2,
	})
	return p, popTypes
}

func TestProvinceStartsUnowned(t *testing.T) {
	p, _ := newTestProvince(t)
	assert.False(t, p.HasOwner())
	assert.Equal(t, types.NoCountry, p.Owner)
	assert.Equal(t, types.NoCountry, p.Controller)
}

func TestCoresDeduplicate(t *testing.T) {
	p, _ := newTestProvince(t)
	p.AddCore(2)
	p.AddCore(2)
	p.AddCore(5)
	assert.Len(t, p.Cores, 2)
	assert.True(t, p.HasCore(2))
	assert.False(t, p.HasCore(3))
}

func TestUpdateAggregates(t *testing.T) {
	p, popTypes := newTestProvince(t)
	farmers, _ := popTypes.Lookup("farmers")
	clerks, _ := popTypes.Lookup("clerks")

	a := pop.New(popTypes.At(farmers), 0, 0, 1000, 0, 0, fixed.One/2, p.Index, 0, 2)
	a.Ideology().Set(0, fixed.FromInt(600))
	a.Ideology().Set(1, fixed.FromInt(400))
	b := pop.New(popTypes.At(clerks), 1, 1, 500, 0, 0, fixed.One/2, p.Index, 1, 2)
	b.Ideology().Set(0, fixed.FromInt(500))
	p.AddPop(a)
	p.AddPop(b)

	p.UpdateAggregates()

	assert.Equal(t, int64(1500), p.TotalPopulation())
	assert.Equal(t, fixed.FromInt(1000), p.PopCountByType(farmers))
	assert.Equal(t, fixed.FromInt(500), p.PopCountByType(clerks))
	assert.Equal(t, fixed.FromInt(1000), p.PopCountByCulture(0))
	assert.Equal(t, fixed.FromInt(1100), p.PopCountByIdeology(0))
	assert.Equal(t, fixed.FromInt(400), p.PopCountByIdeology(1))
}

func TestAdjacencyGraph(t *testing.T) {
	p, _ := newTestProvince(t)
	p.AddAdjacency(1, fixed.FromInt(10), 0)
	p.AddAdjacency(2, fixed.FromInt(25), AdjacencyCoastal|AdjacencyStrait)
	require.Len(t, p.Adjacencies, 2)
	assert.Equal(t, types.ProvinceIndex(2), p.Adjacencies[1].To)
	assert.NotZero(t, p.Adjacencies[1].Flags&AdjacencyStrait)
}
