// Package modifier implements named numeric effects and the cached
// contribution sums that countries and provinces consult for every gameplay
// number.
package modifier

import (
	"log/slog"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/types"
)

// Format describes how an effect value is presented. It carries no gameplay
// meaning beyond the multiplicative/neutral metadata below.
type Format uint8

const (
	FormatAbsolute Format = iota
	FormatPercent
	FormatDays
)

// Effect is one registered named effect, e.g. "rgo_throughput" or
// "tax_efficiency".
type Effect struct {
	Identifier string
	Index      types.EffectIndex
	Format     Format
	// Multiplicative effects have neutral element 1; additive ones 0.
	Multiplicative bool
	// NoEffect marks purely cosmetic effects: accumulated for display but
	// elided when gameplay math consults the cache.
	NoEffect bool
}

// Neutral returns the effect's neutral element.
func (e *Effect) Neutral() fixed.Point {
	if e.Multiplicative {
		return fixed.One
	}
	return 0
}

// Catalogue is the locked registry of all known effects.
type Catalogue struct {
	reg *registry.Registry[Effect]
}

// NewCatalogue creates an empty effect catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{reg: registry.New("modifier_effect", func(e *Effect) string { return e.Identifier })}
}

// Register adds an effect and assigns its index.
func (c *Catalogue) Register(e Effect) (types.EffectIndex, error) {
	idx, es := c.reg.Add(e, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, &RegisterError{Identifier: e.Identifier, Errors: es.String()}
	}
	c.reg.At(idx).Index = types.EffectIndex(idx)
	return types.EffectIndex(idx), nil
}

// RegisterError reports a failed effect registration.
type RegisterError struct {
	Identifier string
	Errors     string
}

func (e *RegisterError) Error() string {
	return "register modifier effect " + e.Identifier + ": " + e.Errors
}

// Lock freezes the catalogue.
func (c *Catalogue) Lock() { c.reg.Lock() }

// Len returns the number of registered effects.
func (c *Catalogue) Len() int { return c.reg.Len() }

// Lookup resolves an effect identifier to its index.
func (c *Catalogue) Lookup(id string) (types.EffectIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.EffectIndex(i), ok
}

// At returns the effect at an index.
func (c *Catalogue) At(i types.EffectIndex) *Effect { return c.reg.At(int32(i)) }

// Modifier is a named collection of effect values, e.g. a reform's payload
// or a national value.
type Modifier struct {
	Identifier string
	Values     []EffectValue
}

// EffectValue pairs an effect with its contribution value.
type EffectValue struct {
	Effect types.EffectIndex
	Value  fixed.Point
}

// Contribution is one (source, effect, value) entry of a Sum, scaled by the
// source's multiplier when cached.
type Contribution struct {
	Source     string
	Effect     types.EffectIndex
	Value      fixed.Point
	Multiplier fixed.Point
}

// Sum collects contributions from many sources and caches per-effect totals.
// One Sum exists per country and one per province (its own contributions).
type Sum struct {
	catalogue     *Catalogue
	contributions []Contribution
	cache         types.IndexedPoints[types.EffectIndex]
	present       []bool
}

// NewSum creates an empty sum over the catalogue's effects.
func NewSum(catalogue *Catalogue) *Sum {
	return &Sum{
		catalogue: catalogue,
		cache:     types.NewIndexedPoints[types.EffectIndex](catalogue.Len()),
		present:   make([]bool, catalogue.Len()),
	}
}

// AddContribution records a single contribution and folds it into the cache.
// An out-of-catalogue effect is a bug: logged and dropped.
func (s *Sum) AddContribution(source string, effect types.EffectIndex, value, multiplier fixed.Point) {
	if int(effect) < 0 || int(effect) >= s.catalogue.Len() {
		slog.Error("contribution names unregistered modifier effect", "source", source, "effect", effect)
		return
	}
	s.contributions = append(s.contributions, Contribution{
		Source:     source,
		Effect:     effect,
		Value:      value,
		Multiplier: multiplier,
	})
	s.cache.AddAt(effect, value.Mul(multiplier))
	s.present[effect] = true
}

// AddModifier records every effect value of mod under one source.
func (s *Sum) AddModifier(source string, mod *Modifier, multiplier fixed.Point) {
	for _, ev := range mod.Values {
		s.AddContribution(source, ev.Effect, ev.Value, multiplier)
	}
}

// RemoveSource drops all contributions from one source and rebuilds the
// cache. Removing a source that was never added is a no-op.
func (s *Sum) RemoveSource(source string) {
	kept := s.contributions[:0]
	for _, c := range s.contributions {
		if c.Source != source {
			kept = append(kept, c)
		}
	}
	s.contributions = kept
	s.Rebuild()
}

// Clear drops every contribution.
func (s *Sum) Clear() {
	s.contributions = s.contributions[:0]
	s.cache.Clear()
	for i := range s.present {
		s.present[i] = false
	}
}

// Rebuild recomputes the cache from the contribution list. The cache is a
// plain sum per effect, so any rebuild order yields identical values.
func (s *Sum) Rebuild() {
	s.cache.Clear()
	for i := range s.present {
		s.present[i] = false
	}
	for _, c := range s.contributions {
		s.cache.AddAt(c.Effect, c.Value.Mul(c.Multiplier))
		s.present[c.Effect] = true
	}
}

// AbsorbSum folds every contribution of other into s. The engine's modifier
// refresh does not call it: province sums never take in owner contributions.
func (s *Sum) AbsorbSum(other *Sum) {
	for _, c := range other.contributions {
		s.AddContribution(c.Source, c.Effect, c.Value, c.Multiplier)
	}
}

// Total returns the raw cached total for an effect, including no-effect
// entries. Intended for display.
func (s *Sum) Total(effect types.EffectIndex) fixed.Point {
	return s.cache.At(effect)
}

// Effective returns the value gameplay math must use: the cached total, or
// the effect's neutral element when nothing contributed or the effect is
// flagged no-effect.
func (s *Sum) Effective(effect types.EffectIndex) fixed.Point {
	if int(effect) < 0 || int(effect) >= s.catalogue.Len() {
		slog.Error("lookup of unregistered modifier effect", "effect", effect)
		return 0
	}
	def := s.catalogue.At(effect)
	if def.NoEffect || !s.present[effect] {
		return def.Neutral()
	}
	return s.cache.At(effect)
}

// EffectiveFactor returns 1 + total, the form production math consumes
// throughput/input/output bonuses in. Empty and no-effect slots return 1.
func (s *Sum) EffectiveFactor(effect types.EffectIndex) fixed.Point {
	if int(effect) < 0 || int(effect) >= s.catalogue.Len() {
		return fixed.One
	}
	def := s.catalogue.At(effect)
	if def.NoEffect || !s.present[effect] {
		return fixed.One
	}
	return fixed.One.Add(s.cache.At(effect))
}

// Contributions exposes the current contribution list, for serialisation and
// tests.
func (s *Sum) Contributions() []Contribution { return s.contributions }
