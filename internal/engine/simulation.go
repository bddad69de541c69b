// Package engine ties the world state together and drives the strict
// eight-phase day tick. One Simulation owns everything mutable; only the
// scheduler goroutine may touch it while ticking.
package engine

import (
	"sync"

	"github.com/talgya/grandsim/internal/country"
	"github.com/talgya/grandsim/internal/entropy"
	"github.com/talgya/grandsim/internal/event"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/market"
	"github.com/talgya/grandsim/internal/military"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/politics"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/types"
	"github.com/talgya/grandsim/internal/world"
)

// BuildOrder selects which modifier caches rebuild first. Both orders must
// produce identical results; the knob exists to validate that.
type BuildOrder uint8

const (
	CountriesThenProvinces BuildOrder = iota
	ProvincesThenCountries
)

// GameRules are the global toggles read throughout a run.
type GameRules struct {
	UseExponentialPriceChanges bool
	BuildOrder                 BuildOrder
}

// Registries bundles every locked content catalogue.
type Registries struct {
	Goods          *market.Catalogue
	PopTypes       *pop.TypeCatalogue
	Cultures       *pop.CultureCatalogue
	Religions      *pop.ReligionCatalogue
	Ideologies     *politics.IdeologyCatalogue
	Issues         *politics.IssueCatalogue
	NationalValues *politics.NationalValueCatalogue
	Rebels         *politics.RebelCatalogue
	Units          *military.UnitCatalogue
	Wargoals       *military.WargoalCatalogue
	Productions    *production.Catalogue
	Effects        *modifier.Catalogue
	Countries      *country.Catalogue
	Terrains       *world.TerrainCatalogue
	Regions        *world.RegionCatalogue
	Events         *event.Catalogue
}

// effectRefs resolves the well-known modifier effects the tick consults.
// Unregistered effects resolve to -1, which reads as neutral.
type effectRefs struct {
	rgoThroughput     types.EffectIndex
	rgoOutput         types.EffectIndex
	factoryInput      types.EffectIndex
	factoryThroughput types.EffectIndex
	factoryOutput     types.EffectIndex
	artisanInput      types.EffectIndex
	artisanThroughput types.EffectIndex
	artisanOutput     types.EffectIndex
	lifeNeeds         types.EffectIndex
	everydayNeeds     types.EffectIndex
	luxuryNeeds       types.EffectIndex
	taxEfficiency     types.EffectIndex
	tariffEfficiency  types.EffectIndex
}

func resolveEffectRefs(c *modifier.Catalogue) effectRefs {
	lookup := func(id string) types.EffectIndex {
		if idx, ok := c.Lookup(id); ok {
			return idx
		}
		return -1
	}
	return effectRefs{
		rgoThroughput:     lookup("rgo_throughput"),
		rgoOutput:         lookup("rgo_output"),
		factoryInput:      lookup("factory_input"),
		factoryThroughput: lookup("factory_throughput"),
		factoryOutput:     lookup("factory_output"),
		artisanInput:      lookup("artisan_input"),
		artisanThroughput: lookup("artisan_throughput"),
		artisanOutput:     lookup("artisan_output"),
		lifeNeeds:         lookup("life_needs"),
		everydayNeeds:     lookup("everyday_needs"),
		luxuryNeeds:       lookup("luxury_needs"),
		taxEfficiency:     lookup("tax_efficiency"),
		tariffEfficiency:  lookup("tariff_efficiency"),
	}
}

// GoodChange is one price movement in a daily digest.
type GoodChange struct {
	Good   string      `json:"good"`
	Price  fixed.Point `json:"price"`
	Change fixed.Point `json:"change"`
}

// Digest summarises what one tick changed: the host's view of "which parts
// of the state moved today".
type Digest struct {
	Date            string       `json:"date"`
	Day             int64        `json:"day"`
	PricesChanged   []GoodChange `json:"prices_changed"`
	TotalPopulation int64        `json:"total_population"`
	TreasuryTotal   fixed.Point  `json:"treasury_total"`
	TaxCollected    fixed.Point  `json:"tax_collected"`
	EventsFired     []string     `json:"events_fired,omitempty"`
}

// Simulation is the instance arena: registries, market, countries,
// provinces and the per-tick scratch state.
type Simulation struct {
	Registries *Registries
	Rules      GameRules
	Defines    *pop.Defines

	Date      types.Date
	Market    *market.Manager
	Countries []*country.Instance
	Provinces []*world.Province
	Selector  *production.Selector
	Events    *event.Runner
	Rng       *entropy.Source

	effects     effectRefs
	tickCtx     *pop.TickContext
	sellScratch []fixed.Point

	stopRequested bool

	digestMu   sync.RWMutex
	lastDigest Digest
	subMu      sync.Mutex
	subs       map[int]chan Digest
	nextSubID  int
}

// New builds a simulation over locked registries. The bookmark loader
// populates countries and provinces afterwards.
func New(reg *Registries, rules GameRules, defines *pop.Defines, startDate types.Date, seed uint64) *Simulation {
	m := market.NewManager(reg.Goods, rules.UseExponentialPriceChanges)
	rng := entropy.NewSource(seed)
	selector := production.NewSelector(reg.Productions, m)
	s := &Simulation{
		Registries:  reg,
		Rules:       rules,
		Defines:     defines,
		Date:        startDate,
		Market:      m,
		Selector:    selector,
		Events:      event.NewRunner(reg.Events),
		Rng:         rng,
		effects:     resolveEffectRefs(reg.Effects),
		sellScratch: make([]fixed.Point, 0, reg.Goods.Len()),
		subs:        make(map[int]chan Digest),
	}
	s.tickCtx = pop.NewTickContext(m, pop.NewSharedValues(defines), rng, selector)
	return s
}

// AddCountry appends a country instance; its index must match its
// definition's.
func (s *Simulation) AddCountry(c *country.Instance) { s.Countries = append(s.Countries, c) }

// AddProvince appends a province; indices must be dense and ordered.
func (s *Simulation) AddProvince(p *world.Province) { s.Provinces = append(s.Provinces, p) }

// Country returns the instance at an index, nil for NoCountry.
func (s *Simulation) Country(i types.CountryIndex) *country.Instance {
	if i == types.NoCountry || int(i) >= len(s.Countries) {
		return nil
	}
	return s.Countries[i]
}

// Province returns the province at an index.
func (s *Simulation) Province(i types.ProvinceIndex) *world.Province {
	return s.Provinces[i]
}

// RequestStop asks the scheduler to stop before the next tick. Observed
// only between ticks, never within one.
func (s *Simulation) RequestStop() { s.stopRequested = true }

// StopRequested reports whether a stop was requested.
func (s *Simulation) StopRequested() bool { return s.stopRequested }

// Subscribe returns a subscriber id and a buffered digest channel.
func (s *Simulation) Subscribe() (int, chan Digest) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Digest, 16)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// LastDigest returns the most recent tick summary.
func (s *Simulation) LastDigest() Digest {
	s.digestMu.RLock()
	defer s.digestMu.RUnlock()
	return s.lastDigest
}

func (s *Simulation) publishDigest(d Digest) {
	s.digestMu.Lock()
	s.lastDigest = d
	s.digestMu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- d:
		default:
			// Slow consumers drop digests rather than stall the scheduler.
		}
	}
}
