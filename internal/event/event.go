// Package event implements scripted events and national foci. The event
// phase offers each country-scoped event a daily roll against its mean time
// to happen; events that fire apply their effect scripts.
package event

import (
	"fmt"

	"github.com/talgya/grandsim/internal/entropy"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// Event is one scripted occurrence.
type Event struct {
	Identifier string
	Index      types.EventIndex
	Title      string
	// Trigger must hold for the event to be considered.
	Trigger script.Condition
	// MeanTimeToHappen is a TIME conditional weight in days; the daily fire
	// chance is its reciprocal.
	MeanTimeToHappen script.ConditionalWeight
	// Immediate applies when the event fires.
	Immediate script.Effect
	// FireOnlyOnce retires the event after its first firing.
	FireOnlyOnce bool
	News         bool
}

// NationalFocus is a country-assignable focus with a modifier-like payload
// applied through its effect script.
type NationalFocus struct {
	Identifier string
	Group      string
	Icon       int
	Limit      script.Condition
	OnApply    script.Effect
	OnRemove   script.Effect
}

// Catalogue registers events and foci.
type Catalogue struct {
	events *registry.Registry[Event]
	foci   *registry.Registry[NationalFocus]
}

// NewCatalogue creates an empty event catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		events: registry.New("event", func(e *Event) string { return e.Identifier }),
		foci:   registry.New("national_focus", func(f *NationalFocus) string { return f.Identifier }),
	}
}

// RegisterEvent adds an event.
func (c *Catalogue) RegisterEvent(e Event) (types.EventIndex, error) {
	idx, es := c.events.Add(e, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register event %s: %s", e.Identifier, es)
	}
	c.events.At(idx).Index = types.EventIndex(idx)
	return types.EventIndex(idx), nil
}

// RegisterFocus adds a national focus.
func (c *Catalogue) RegisterFocus(f NationalFocus) error {
	_, es := c.foci.Add(f, registry.DuplicateFail)
	if !es.IsOK() {
		return fmt.Errorf("register national focus %s: %s", f.Identifier, es)
	}
	return nil
}

// Lock freezes both registries.
func (c *Catalogue) Lock() {
	c.events.Lock()
	c.foci.Lock()
}

// Events exposes the event list.
func (c *Catalogue) Events() []Event { return c.events.Items() }

// Foci exposes the national focus list.
func (c *Catalogue) Foci() []NationalFocus { return c.foci.Items() }

// Runner tracks per-run event state: which fire-only-once events already
// fired.
type Runner struct {
	catalogue *Catalogue
	fired     map[types.EventIndex]bool
}

// NewRunner creates a runner over a locked catalogue.
func NewRunner(catalogue *Catalogue) *Runner {
	return &Runner{catalogue: catalogue, fired: make(map[types.EventIndex]bool)}
}

// RollScope offers every event a roll in one scope. Fired events apply
// their immediate effects synchronously. Returns the identifiers fired, in
// catalogue order.
func (r *Runner) RollScope(rng *entropy.Source, initial, this, from script.Scope) []string {
	var fired []string
	for i := range r.catalogue.Events() {
		e := r.catalogue.events.At(int32(i))
		if e.FireOnlyOnce && r.fired[e.Index] {
			continue
		}
		if e.Trigger != nil && !e.Trigger.Evaluate(initial, this, from) {
			continue
		}
		mtth := e.MeanTimeToHappen.Evaluate(initial, this, from)
		if mtth <= 0 {
			continue
		}
		// Daily chance is 1/mtth days.
		if !rng.Chance(fixed.One.Div(mtth)) {
			continue
		}
		if e.Immediate != nil {
			e.Immediate.Apply(initial, this, from)
		}
		r.fired[e.Index] = true
		fired = append(fired, e.Identifier)
	}
	return fired
}
