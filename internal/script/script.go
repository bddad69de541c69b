// Package script defines the contracts the core exposes to the scripting
// collaborator: boolean condition trees, state-mutating effect trees, and
// condition-weighted values. The core never inspects a script's structure,
// only evaluates it over scoped contexts.
package script

import (
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/types"
)

// ScopeKind tags what a Scope refers to.
type ScopeKind uint8

const (
	ScopeNone ScopeKind = iota
	ScopeCountry
	ScopeState
	ScopeProvince
	ScopePop
)

// Scope is the tagged union handed to condition and effect evaluation. Only
// the fields matching Kind are meaningful; Subject carries the pop or other
// entity the indices cannot name.
type Scope struct {
	Kind     ScopeKind
	Country  types.CountryIndex
	Province types.ProvinceIndex
	Subject  any
}

// NoScope is the empty scope.
var NoScope = Scope{Kind: ScopeNone}

// CountryScope builds a country-tagged scope.
func CountryScope(c types.CountryIndex) Scope {
	return Scope{Kind: ScopeCountry, Country: c}
}

// ProvinceScope builds a province-tagged scope.
func ProvinceScope(p types.ProvinceIndex) Scope {
	return Scope{Kind: ScopeProvince, Province: p}
}

// PopScope builds a pop-tagged scope around an opaque pop reference.
func PopScope(pop any, province types.ProvinceIndex) Scope {
	return Scope{Kind: ScopePop, Province: province, Subject: pop}
}

// Condition is a parsed boolean predicate. A well-formed tree always
// evaluates; there is no runtime failure path.
type Condition interface {
	Evaluate(initial, this, from Scope) bool
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(initial, this, from Scope) bool

// Evaluate implements Condition.
func (f ConditionFunc) Evaluate(initial, this, from Scope) bool {
	return f(initial, this, from)
}

// Always is the condition that holds in every scope.
var Always Condition = ConditionFunc(func(_, _, _ Scope) bool { return true })

// Never is the condition that never holds.
var Never Condition = ConditionFunc(func(_, _, _ Scope) bool { return false })

// Effect is a parsed state mutation. Effects only touch state through the
// helper APIs the engine exposes (add contribution, set flag, ...).
type Effect interface {
	Apply(initial, this, from Scope)
}

// EffectFunc adapts a function to Effect.
type EffectFunc func(initial, this, from Scope)

// Apply implements Effect.
func (f EffectFunc) Apply(initial, this, from Scope) {
	f(initial, this, from)
}

// WeightMode selects how a ConditionalWeight folds its matched modifiers.
type WeightMode uint8

const (
	// WeightBase returns the base value scaled by no modifiers; matched
	// modifiers are ignored.
	WeightBase WeightMode = iota
	// WeightFactorMul multiplies the base by every matched modifier factor.
	WeightFactorMul
	// WeightFactorAdd adds every matched modifier factor to the base.
	WeightFactorAdd
	// WeightTime treats the base as a day count (mean time to happen).
	WeightTime
)

// WeightItem is one (factor, condition) pair of a ConditionalWeight.
type WeightItem struct {
	Factor    fixed.Point
	Condition Condition
}

// ConditionalWeight is a base value adjusted by condition-gated modifiers,
// the shape scripted chances and mean-times use.
type ConditionalWeight struct {
	Mode  WeightMode
	Base  fixed.Point
	Items []WeightItem
}

// Evaluate folds the weight over the given scopes.
func (w *ConditionalWeight) Evaluate(initial, this, from Scope) fixed.Point {
	result := w.Base
	switch w.Mode {
	case WeightFactorMul:
		for _, item := range w.Items {
			if item.Condition.Evaluate(initial, this, from) {
				result = result.Mul(item.Factor)
			}
		}
	case WeightFactorAdd:
		for _, item := range w.Items {
			if item.Condition.Evaluate(initial, this, from) {
				result = result.Add(item.Factor)
			}
		}
	case WeightBase, WeightTime:
		// Base value only; Time bases are day counts.
	}
	return result
}
