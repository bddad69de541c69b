// Package production implements the three producer variants: the per-province
// resource-gathering operation, the budgeted factory, and the pop-owned
// artisan. All of them buy inputs and sell output through the market and are
// modulated by the input/throughput/output modifier triple.
package production

import (
	"fmt"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// Kind distinguishes the producer variants.
type Kind uint8

const (
	KindFactory Kind = iota
	KindRGO
	KindArtisan
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindFactory:
		return "factory"
	case KindRGO:
		return "rgo"
	case KindArtisan:
		return "artisan"
	}
	return "unknown"
}

// Job names a pop type slot in a production recipe and its wage weight.
type Job struct {
	PopType          types.PopTypeIndex
	EffectMultiplier fixed.Point
}

// Bonus is a condition-gated output multiplier.
type Bonus struct {
	Condition script.Condition
	Value     fixed.Point
}

// Type is a production recipe. Static after the catalogue locks.
type Type struct {
	Identifier         string
	Index              types.ProductionIndex
	Kind               Kind
	OwnerJob           *Job
	EmployeeJobs       []Job
	BaseWorkforceSize  int64
	InputGoods         *types.SparsePoints[types.GoodIndex]
	OutputGood         types.GoodIndex
	BaseOutputQuantity fixed.Point
	Maintenance        *types.SparsePoints[types.GoodIndex]
	Bonuses            []Bonus
	IsFarm             bool
	IsMine             bool
	IsCoastal          bool
}

// Validate checks the per-kind structural invariants.
func (t *Type) Validate() error {
	if t.BaseWorkforceSize <= 0 {
		return fmt.Errorf("production type %s: base workforce must be positive", t.Identifier)
	}
	if t.BaseOutputQuantity <= 0 {
		return fmt.Errorf("production type %s: base output must be positive", t.Identifier)
	}
	switch t.Kind {
	case KindArtisan:
		if t.OwnerJob != nil || len(t.EmployeeJobs) > 0 {
			return fmt.Errorf("production type %s: artisan recipes have no owner or employees", t.Identifier)
		}
	case KindFactory, KindRGO:
		if t.OwnerJob == nil || len(t.EmployeeJobs) == 0 {
			return fmt.Errorf("production type %s: %s recipes require an owner and employees", t.Identifier, t.Kind)
		}
	}
	return nil
}

// BonusMultiplier evaluates all bonuses in the producer's scope and returns
// 1 plus the sum of matched values.
func (t *Type) BonusMultiplier(this script.Scope) fixed.Point {
	result := fixed.One
	for _, b := range t.Bonuses {
		if b.Condition != nil && b.Condition.Evaluate(this, this, script.NoScope) {
			result = result.Add(b.Value)
		}
	}
	return result
}

// Catalogue is the locked registry of production types.
type Catalogue struct {
	reg *registry.Registry[Type]
}

// NewCatalogue creates an empty production type catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{reg: registry.New("production_type", func(t *Type) string { return t.Identifier })}
}

// Register validates and adds a recipe.
func (c *Catalogue) Register(t Type) (types.ProductionIndex, error) {
	if err := t.Validate(); err != nil {
		return -1, err
	}
	if t.InputGoods == nil {
		t.InputGoods = types.NewSparsePoints[types.GoodIndex]()
	}
	if t.Maintenance == nil {
		t.Maintenance = types.NewSparsePoints[types.GoodIndex]()
	}
	idx, es := c.reg.Add(t, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register production type %s: %s", t.Identifier, es)
	}
	c.reg.At(idx).Index = types.ProductionIndex(idx)
	return types.ProductionIndex(idx), nil
}

// Lock freezes the catalogue.
func (c *Catalogue) Lock() { c.reg.Lock() }

// Len returns the number of recipes.
func (c *Catalogue) Len() int { return c.reg.Len() }

// At returns the recipe at an index.
func (c *Catalogue) At(i types.ProductionIndex) *Type { return c.reg.At(int32(i)) }

// Lookup resolves an identifier.
func (c *Catalogue) Lookup(id string) (types.ProductionIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.ProductionIndex(i), ok
}

// Types exposes all recipes in registration order.
func (c *Catalogue) Types() []Type { return c.reg.Items() }

// Modifiers is the input/throughput/output triple a producer reads from its
// province and owner modifier caches. Zero values mean "absent"; Normalise
// maps them to the neutral 1.
type Modifiers struct {
	Input      fixed.Point
	Throughput fixed.Point
	Output     fixed.Point
}

// Normalise replaces unset entries with 1.
func (m Modifiers) Normalise() Modifiers {
	if m.Input == 0 {
		m.Input = fixed.One
	}
	if m.Throughput == 0 {
		m.Throughput = fixed.One
	}
	if m.Output == 0 {
		m.Output = fixed.One
	}
	return m
}

// Laborer is the slice of a pop a producer interacts with: employment
// reporting and income crediting. Implemented by the pop package.
type Laborer interface {
	LaborerPopType() types.PopTypeIndex
	LaborerSize() int64
	Hire(count int64)
	AddRGOWorkerIncome(amount fixed.Point)
	AddRGOOwnerIncome(amount fixed.Point)
	AddFactoryWorkerIncome(amount fixed.Point)
	AddFactoryOwnerIncome(amount fixed.Point)
}

// Employment binds a laborer to a producer with an employed headcount.
type Employment struct {
	Worker Laborer
	Size   int64
}
