// Package market implements the per-good daily clearing market: buy-up-to
// and market-sell order buffers, the price limit rules, and the pro-rata
// clearing that feeds trade outcomes back to producers and pops.
package market

import (
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/types"
)

// GoodDefinition is the static description of a tradeable good. Immutable
// after the catalogue locks.
type GoodDefinition struct {
	Identifier         string
	Category           string
	Colour             types.Colour
	Index              types.GoodIndex
	BasePrice          fixed.Point
	AvailableFromStart bool
	Tradeable          bool
	IsMoney            bool
	OverseasPenalty    fixed.Point
}

// Catalogue is the locked registry of good definitions.
type Catalogue struct {
	reg *registry.Registry[GoodDefinition]
}

// NewCatalogue creates an empty good catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{reg: registry.New("good", func(g *GoodDefinition) string { return g.Identifier })}
}

// Register adds a good definition, assigning its dense index.
func (c *Catalogue) Register(def GoodDefinition) (types.GoodIndex, error) {
	idx, es := c.reg.Add(def, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, &registryError{kind: "good", id: def.Identifier, errors: es.String()}
	}
	c.reg.At(idx).Index = types.GoodIndex(idx)
	return types.GoodIndex(idx), nil
}

type registryError struct {
	kind, id, errors string
}

func (e *registryError) Error() string {
	return "register " + e.kind + " " + e.id + ": " + e.errors
}

// Lock freezes the catalogue.
func (c *Catalogue) Lock() { c.reg.Lock() }

// Len returns the number of registered goods.
func (c *Catalogue) Len() int { return c.reg.Len() }

// At returns the definition at the given index.
func (c *Catalogue) At(i types.GoodIndex) *GoodDefinition { return c.reg.At(int32(i)) }

// Lookup resolves an identifier to a good index.
func (c *Catalogue) Lookup(id string) (types.GoodIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.GoodIndex(i), ok
}

// Definitions exposes all goods in registration order.
func (c *Catalogue) Definitions() []GoodDefinition { return c.reg.Items() }
