// Package pop implements population cohorts: their static type definitions,
// the per-day needs/consumption/income tick, and the gamestate update that
// clamps attributes and derives regiment support.
package pop

import (
	"fmt"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/types"
)

// Strata classifies pop types into tax and voting tiers.
type Strata uint8

const (
	StrataPoor Strata = iota
	StrataMiddle
	StrataRich
	NumStrata
)

// String returns the lowercase strata name.
func (s Strata) String() string {
	switch s {
	case StrataPoor:
		return "poor"
	case StrataMiddle:
		return "middle"
	case StrataRich:
		return "rich"
	}
	return "unknown"
}

// ParseStrata reads a strata name.
func ParseStrata(s string) (Strata, error) {
	switch s {
	case "poor":
		return StrataPoor, nil
	case "middle":
		return StrataMiddle, nil
	case "rich":
		return StrataRich, nil
	}
	return 0, fmt.Errorf("unknown strata %q", s)
}

// NeedCategory indexes the three needs tiers.
type NeedCategory uint8

const (
	NeedLife NeedCategory = iota
	NeedEveryday
	NeedLuxury
	NumNeedCategories
)

// String returns the lowercase category name.
func (c NeedCategory) String() string {
	switch c {
	case NeedLife:
		return "life"
	case NeedEveryday:
		return "everyday"
	case NeedLuxury:
		return "luxury"
	}
	return "unknown"
}

// NoPopType marks an absent pop type reference.
const NoPopType types.PopTypeIndex = -1

// PopType is the static definition of a pop occupation. Immutable after the
// catalogue locks.
type PopType struct {
	Identifier        string
	Index             types.PopTypeIndex
	Strata            Strata
	Colour            types.Colour
	IsArtisan         bool
	IsSlave           bool
	CanBeUnemployed   bool
	CanBeRecruited    bool
	Needs             [NumNeedCategories]*types.SparsePoints[types.GoodIndex]
	ResearchOptimum   fixed.Point
	LeadershipOptimum fixed.Point
	ResearchPoints    fixed.Point
	LeadershipPoints  fixed.Point
	// Equivalent is the pop type slaves convert to on emancipation, or
	// NoPopType.
	Equivalent types.PopTypeIndex
}

// TypeCatalogue is the locked registry of pop types.
type TypeCatalogue struct {
	reg *registry.Registry[PopType]
}

// NewTypeCatalogue creates an empty pop type catalogue.
func NewTypeCatalogue() *TypeCatalogue {
	return &TypeCatalogue{reg: registry.New("pop_type", func(p *PopType) string { return p.Identifier })}
}

// Register adds a pop type, filling empty needs maps.
func (c *TypeCatalogue) Register(t PopType) (types.PopTypeIndex, error) {
	for i := range t.Needs {
		if t.Needs[i] == nil {
			t.Needs[i] = types.NewSparsePoints[types.GoodIndex]()
		}
	}
	idx, es := c.reg.Add(t, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register pop type %s: %s", t.Identifier, es)
	}
	c.reg.At(idx).Index = types.PopTypeIndex(idx)
	return types.PopTypeIndex(idx), nil
}

// Lock freezes the catalogue.
func (c *TypeCatalogue) Lock() { c.reg.Lock() }

// Len returns the number of pop types.
func (c *TypeCatalogue) Len() int { return c.reg.Len() }

// At returns the pop type at an index.
func (c *TypeCatalogue) At(i types.PopTypeIndex) *PopType { return c.reg.At(int32(i)) }

// Lookup resolves an identifier.
func (c *TypeCatalogue) Lookup(id string) (types.PopTypeIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.PopTypeIndex(i), ok
}

// Types exposes all pop types in registration order.
func (c *TypeCatalogue) Types() []PopType { return c.reg.Items() }

// Culture is a static culture definition.
type Culture struct {
	Identifier string
	Group      string
	Colour     types.Colour
	Index      types.CultureIndex
}

// Religion is a static religion definition.
type Religion struct {
	Identifier string
	Group      string
	Colour     types.Colour
	Index      types.ReligionIndex
}

// CultureCatalogue and ReligionCatalogue are the locked demographic
// registries.
type CultureCatalogue struct {
	reg *registry.Registry[Culture]
}

func NewCultureCatalogue() *CultureCatalogue {
	return &CultureCatalogue{reg: registry.New("culture", func(c *Culture) string { return c.Identifier })}
}

func (c *CultureCatalogue) Register(item Culture) (types.CultureIndex, error) {
	idx, es := c.reg.Add(item, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register culture %s: %s", item.Identifier, es)
	}
	c.reg.At(idx).Index = types.CultureIndex(idx)
	return types.CultureIndex(idx), nil
}

func (c *CultureCatalogue) Lock()                            { c.reg.Lock() }
func (c *CultureCatalogue) Len() int                         { return c.reg.Len() }
func (c *CultureCatalogue) At(i types.CultureIndex) *Culture { return c.reg.At(int32(i)) }
func (c *CultureCatalogue) Lookup(id string) (types.CultureIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.CultureIndex(i), ok
}

type ReligionCatalogue struct {
	reg *registry.Registry[Religion]
}

func NewReligionCatalogue() *ReligionCatalogue {
	return &ReligionCatalogue{reg: registry.New("religion", func(r *Religion) string { return r.Identifier })}
}

func (c *ReligionCatalogue) Register(item Religion) (types.ReligionIndex, error) {
	idx, es := c.reg.Add(item, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register religion %s: %s", item.Identifier, es)
	}
	c.reg.At(idx).Index = types.ReligionIndex(idx)
	return types.ReligionIndex(idx), nil
}

func (c *ReligionCatalogue) Lock()                              { c.reg.Lock() }
func (c *ReligionCatalogue) Len() int                           { return c.reg.Len() }
func (c *ReligionCatalogue) At(i types.ReligionIndex) *Religion { return c.reg.At(int32(i)) }
func (c *ReligionCatalogue) Lookup(id string) (types.ReligionIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.ReligionIndex(i), ok
}

// Defines carries the tuning constants the pop tick reads. Values mirror the
// game's pops and military defines.
type Defines struct {
	// BaseCon scales how consciousness inflates needs.
	BaseCon fixed.Point
	// SizeDenominator divides base need amounts; needs are defined per
	// 200000 pop.
	SizeDenominator fixed.Point
	// MaxCostMultiplier reserves headroom so a pop never commits all cash in
	// one day.
	MaxCostMultiplier            fixed.Point
	MinPopSizeForRegiment        int64
	PopSizePerRegiment           int64
	PopSizePerRegimentMultiplier fixed.Point
}

// DefaultDefines returns the stock tuning values.
func DefaultDefines() *Defines {
	return &Defines{
		BaseCon:                      fixed.FromInt(10),
		SizeDenominator:              fixed.FromInt(200000),
		MaxCostMultiplier:            fixed.FromInt(2),
		MinPopSizeForRegiment:        1000,
		PopSizePerRegiment:           10000,
		PopSizePerRegimentMultiplier: fixed.One,
	}
}

// StrataValues are the per-strata needs scalars a province derives from its
// modifiers each day.
type StrataValues struct {
	LifeNeedsScalar     fixed.Point
	EverydayNeedsScalar fixed.Point
	LuxuryNeedsScalar   fixed.Point
}

// Scalar returns the scalar for a category.
func (v *StrataValues) Scalar(c NeedCategory) fixed.Point {
	switch c {
	case NeedLife:
		return v.LifeNeedsScalar
	case NeedEveryday:
		return v.EverydayNeedsScalar
	default:
		return v.LuxuryNeedsScalar
	}
}

// SharedValues is the per-province bundle every pop tick in that province
// reads: defines plus the strata scalars of the day.
type SharedValues struct {
	Defines  *Defines
	ByStrata [NumStrata]StrataValues
}

// NewSharedValues builds shared values with neutral scalars.
func NewSharedValues(defines *Defines) *SharedValues {
	v := &SharedValues{Defines: defines}
	for i := range v.ByStrata {
		v.ByStrata[i] = StrataValues{
			LifeNeedsScalar:     fixed.One,
			EverydayNeedsScalar: fixed.One,
			LuxuryNeedsScalar:   fixed.One,
		}
	}
	return v
}
