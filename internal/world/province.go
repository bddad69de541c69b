// Package world holds the map state: provinces with their pops and
// producers, regions, terrain, and the adjacency graph.
package world

import (
	"fmt"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/types"
)

// Terrain is a static terrain class.
type Terrain struct {
	Identifier string
	Index      types.TerrainIndex
	IsWater    bool
	Colour     types.Colour
}

// TerrainCatalogue is the locked terrain registry.
type TerrainCatalogue struct {
	reg *registry.Registry[Terrain]
}

func NewTerrainCatalogue() *TerrainCatalogue {
	return &TerrainCatalogue{reg: registry.New("terrain", func(t *Terrain) string { return t.Identifier })}
}

func (c *TerrainCatalogue) Register(t Terrain) (types.TerrainIndex, error) {
	idx, es := c.reg.Add(t, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register terrain %s: %s", t.Identifier, es)
	}
	c.reg.At(idx).Index = types.TerrainIndex(idx)
	return types.TerrainIndex(idx), nil
}

func (c *TerrainCatalogue) Lock()                            { c.reg.Lock() }
func (c *TerrainCatalogue) Len() int                         { return c.reg.Len() }
func (c *TerrainCatalogue) At(i types.TerrainIndex) *Terrain { return c.reg.At(int32(i)) }
func (c *TerrainCatalogue) Lookup(id string) (types.TerrainIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.TerrainIndex(i), ok
}

// Region groups provinces.
type Region struct {
	Identifier string
	Index      types.RegionIndex
	Provinces  []types.ProvinceIndex
}

// RegionCatalogue is the locked region registry.
type RegionCatalogue struct {
	reg *registry.Registry[Region]
}

func NewRegionCatalogue() *RegionCatalogue {
	return &RegionCatalogue{reg: registry.New("region", func(r *Region) string { return r.Identifier })}
}

func (c *RegionCatalogue) Register(r Region) (types.RegionIndex, error) {
	idx, es := c.reg.Add(r, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register region %s: %s", r.Identifier, es)
	}
	c.reg.At(idx).Index = types.RegionIndex(idx)
	return types.RegionIndex(idx), nil
}

func (c *RegionCatalogue) Lock()                          { c.reg.Lock() }
func (c *RegionCatalogue) Len() int                       { return c.reg.Len() }
func (c *RegionCatalogue) At(i types.RegionIndex) *Region { return c.reg.At(int32(i)) }
func (c *RegionCatalogue) Lookup(id string) (types.RegionIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.RegionIndex(i), ok
}

// AdjacencyFlags annotate an edge of the province graph.
type AdjacencyFlags uint8

const (
	AdjacencyCoastal AdjacencyFlags = 1 << iota
	AdjacencyImpassable
	AdjacencyStrait
	AdjacencyCanal
)

// Adjacency is one directed edge to a neighbouring province.
type Adjacency struct {
	To       types.ProvinceIndex
	Distance fixed.Point
	Flags    AdjacencyFlags
}

// Building is a constructed province improvement.
type Building struct {
	Identifier string
	Level      int
}

// Province is one map cell: at most one owner, pops, an RGO for land
// provinces, factories, and one modifier cache for its own contributions.
type Province struct {
	Identifier string
	Index      types.ProvinceIndex
	Region     types.RegionIndex
	Owner      types.CountryIndex
	Controller types.CountryIndex
	Cores      []types.CountryIndex
	Water      bool
	Terrain    types.TerrainIndex

	RGO       *production.RGO
	Factories []*production.Factory
	Buildings []Building

	Pops []*pop.Pop

	Adjacencies []Adjacency

	// LocalModifiers carries the province's own contributions only. The
	// owner country's contributions are not copied in; the engine multiplies
	// this cache's factor by the owner's factor when it reads an effect.
	LocalModifiers *modifier.Sum

	// Shared is the per-province pop tick bundle, refreshed daily from the
	// modifier caches.
	Shared *pop.SharedValues

	totalPopulation    int64
	popCountByType     types.IndexedPoints[types.PopTypeIndex]
	popCountByCulture  types.IndexedPoints[types.CultureIndex]
	popCountByReligion types.IndexedPoints[types.ReligionIndex]
	popCountByIdeology types.IndexedPoints[types.IdeologyIndex]
}

// Sizes carries registry cardinalities for the dense distributions.
type Sizes struct {
	PopTypes   int
	Cultures   int
	Religions  int
	Ideologies int
}

// NewProvince creates an unowned province.
func NewProvince(identifier string, index types.ProvinceIndex, water bool, catalogue *modifier.Catalogue, defines *pop.Defines, sizes Sizes) *Province {
	return &Province{
		Identifier:         identifier,
		Index:              index,
		Region:             -1,
		Owner:              types.NoCountry,
		Controller:         types.NoCountry,
		Water:              water,
		LocalModifiers:     modifier.NewSum(catalogue),
		Shared:             pop.NewSharedValues(defines),
		popCountByType:     types.NewIndexedPoints[types.PopTypeIndex](sizes.PopTypes),
		popCountByCulture:  types.NewIndexedPoints[types.CultureIndex](sizes.Cultures),
		popCountByReligion: types.NewIndexedPoints[types.ReligionIndex](sizes.Religions),
		popCountByIdeology: types.NewIndexedPoints[types.IdeologyIndex](sizes.Ideologies),
	}
}

// HasOwner reports whether the province belongs to a country.
func (p *Province) HasOwner() bool { return p.Owner != types.NoCountry }

// AddPop appends a pop to the province list.
func (p *Province) AddPop(pp *pop.Pop) { p.Pops = append(p.Pops, pp) }

// AddCore appends a core claim if not already present.
func (p *Province) AddCore(c types.CountryIndex) {
	for _, existing := range p.Cores {
		if existing == c {
			return
		}
	}
	p.Cores = append(p.Cores, c)
}

// HasCore reports whether a country holds a core on the province.
func (p *Province) HasCore(c types.CountryIndex) bool {
	for _, existing := range p.Cores {
		if existing == c {
			return true
		}
	}
	return false
}

// AddAdjacency links the province to a neighbour.
func (p *Province) AddAdjacency(to types.ProvinceIndex, distance fixed.Point, flags AdjacencyFlags) {
	p.Adjacencies = append(p.Adjacencies, Adjacency{To: to, Distance: distance, Flags: flags})
}

// TotalPopulation returns the pop size sum of the last aggregate update.
func (p *Province) TotalPopulation() int64 { return p.totalPopulation }

// PopCountByType and siblings expose the distributions.
func (p *Province) PopCountByType(i types.PopTypeIndex) fixed.Point { return p.popCountByType.At(i) }
func (p *Province) PopCountByCulture(i types.CultureIndex) fixed.Point {
	return p.popCountByCulture.At(i)
}
func (p *Province) PopCountByReligion(i types.ReligionIndex) fixed.Point {
	return p.popCountByReligion.At(i)
}
func (p *Province) PopCountByIdeology(i types.IdeologyIndex) fixed.Point {
	return p.popCountByIdeology.At(i)
}

// UpdateAggregates rebuilds the four distributions and the population
// total from the pop list. Runs in the gamestate phase after every pop
// ticked.
func (p *Province) UpdateAggregates() {
	p.totalPopulation = 0
	p.popCountByType.Clear()
	p.popCountByCulture.Clear()
	p.popCountByReligion.Clear()
	p.popCountByIdeology.Clear()
	for _, pp := range p.Pops {
		size := fixed.FromInt(pp.Size())
		p.totalPopulation += pp.Size()
		p.popCountByType.AddAt(pp.Type().Index, size)
		p.popCountByCulture.AddAt(pp.Culture(), size)
		p.popCountByReligion.AddAt(pp.Religion(), size)
		p.popCountByIdeology.AddAssign(pp.Ideology())
	}
}
