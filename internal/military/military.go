// Package military holds the military content registries: unit types,
// wargoals and leaders. The daily economic core only touches these through
// pop regiment support; combat resolution is a host concern.
package military

import (
	"fmt"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// UnitBranch separates land and naval unit types.
type UnitBranch uint8

const (
	BranchLand UnitBranch = iota
	BranchNaval
)

// UnitType is a static unit definition.
type UnitType struct {
	Identifier          string
	Index               types.UnitTypeIndex
	Branch              UnitBranch
	Icon                int
	Sprite              string
	Active              bool
	Priority            int
	MaxStrength         fixed.Point
	DefaultOrganisation fixed.Point
	MaximumSpeed        fixed.Point
	WeightedValue       fixed.Point
	BuildTimeDays       int
	BuildCost           *types.SparsePoints[types.GoodIndex]
	SupplyCost          *types.SparsePoints[types.GoodIndex]
	SupplyConsumption   fixed.Point
	Attack              fixed.Point
	Defence             fixed.Point
	Discipline          fixed.Point
}

// UnitCatalogue is the locked unit type registry.
type UnitCatalogue struct {
	reg *registry.Registry[UnitType]
}

func NewUnitCatalogue() *UnitCatalogue {
	return &UnitCatalogue{reg: registry.New("unit_type", func(u *UnitType) string { return u.Identifier })}
}

func (c *UnitCatalogue) Register(u UnitType) (types.UnitTypeIndex, error) {
	if u.BuildCost == nil {
		u.BuildCost = types.NewSparsePoints[types.GoodIndex]()
	}
	if u.SupplyCost == nil {
		u.SupplyCost = types.NewSparsePoints[types.GoodIndex]()
	}
	idx, es := c.reg.Add(u, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register unit type %s: %s", u.Identifier, es)
	}
	c.reg.At(idx).Index = types.UnitTypeIndex(idx)
	return types.UnitTypeIndex(idx), nil
}

func (c *UnitCatalogue) Lock()                              { c.reg.Lock() }
func (c *UnitCatalogue) Len() int                           { return c.reg.Len() }
func (c *UnitCatalogue) At(i types.UnitTypeIndex) *UnitType { return c.reg.At(int32(i)) }
func (c *UnitCatalogue) Lookup(id string) (types.UnitTypeIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.UnitTypeIndex(i), ok
}

// PeaceOptions flag what a wargoal demands at peace.
type PeaceOptions uint32

const (
	PeaceAnnex PeaceOptions = 1 << iota
	PeaceDemandState
	PeaceReleasePuppet
	PeaceReparations
	PeacePrestige
	PeaceInstallGovernment
)

// Wargoal is a declarable war objective.
type Wargoal struct {
	Identifier         string
	Index              types.WargoalIndex
	Sprite             int
	WarScoreCost       fixed.Point
	PrestigeCost       fixed.Point
	MilitancyOnSuccess fixed.Point
	InfamyCost         fixed.Point
	AlwaysAvailable    bool
	Options            PeaceOptions
	CanUse             script.Condition
	OnCompletion       script.Effect
}

// WargoalCatalogue is the locked wargoal registry.
type WargoalCatalogue struct {
	reg *registry.Registry[Wargoal]
}

func NewWargoalCatalogue() *WargoalCatalogue {
	return &WargoalCatalogue{reg: registry.New("wargoal", func(w *Wargoal) string { return w.Identifier })}
}

func (c *WargoalCatalogue) Register(w Wargoal) (types.WargoalIndex, error) {
	idx, es := c.reg.Add(w, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register wargoal %s: %s", w.Identifier, es)
	}
	c.reg.At(idx).Index = types.WargoalIndex(idx)
	return types.WargoalIndex(idx), nil
}

func (c *WargoalCatalogue) Lock()                            { c.reg.Lock() }
func (c *WargoalCatalogue) Len() int                         { return c.reg.Len() }
func (c *WargoalCatalogue) At(i types.WargoalIndex) *Wargoal { return c.reg.At(int32(i)) }

// LeaderRole separates generals and admirals.
type LeaderRole uint8

const (
	RoleGeneral LeaderRole = iota
	RoleAdmiral
)

// Leader is a named commander attached to a country.
type Leader struct {
	Name         string
	Role         LeaderRole
	Country      types.CountryIndex
	Prestige     fixed.Point
	Background   string
	Personality  string
	PictureIndex int
}
