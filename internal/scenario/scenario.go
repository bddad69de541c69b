// Package scenario loads already-parsed declarative data into the content
// registries and builds a runnable world from a starting bookmark. The
// on-disk form is YAML; the mod's original text format is a host concern.
package scenario

import (
	"fmt"

	"github.com/talgya/grandsim/internal/country"
	"github.com/talgya/grandsim/internal/engine"
	"github.com/talgya/grandsim/internal/errs"
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

// Scenario is the declarative root document.
type Scenario struct {
	Name        string          `yaml:"name"`
	StartDate   string          `yaml:"start_date"`
	Seed        uint64          `yaml:"seed"`
	Rules       RulesDoc        `yaml:"rules"`
	Defines     *DefinesDoc     `yaml:"defines"`
	Effects     []EffectDoc     `yaml:"modifier_effects"`
	Goods       []GoodDoc       `yaml:"goods"`
	PopTypes    []PopTypeDoc    `yaml:"pop_types"`
	Cultures    []CultureDoc    `yaml:"cultures"`
	Religions   []CultureDoc    `yaml:"religions"`
	Ideologies  []CultureDoc    `yaml:"ideologies"`
	Terrains    []TerrainDoc    `yaml:"terrains"`
	Productions []ProductionDoc `yaml:"production_types"`
	Countries   []CountryDoc    `yaml:"countries"`
	Provinces   []ProvinceDoc   `yaml:"provinces"`
	Bookmark    BookmarkDoc     `yaml:"bookmark"`
}

// RulesDoc mirrors engine.GameRules.
type RulesDoc struct {
	ExponentialPriceChanges bool   `yaml:"exponential_price_changes"`
	BuildOrder              string `yaml:"build_order"`
}

// DefinesDoc overrides pop defines; zero fields keep defaults.
type DefinesDoc struct {
	BaseCon               string `yaml:"base_con"`
	MaxCostMultiplier     string `yaml:"max_cost_multiplier"`
	MinPopSizeForRegiment int64  `yaml:"min_pop_size_for_regiment"`
	PopSizePerRegiment    int64  `yaml:"pop_size_per_regiment"`
}

// EffectDoc declares a modifier effect.
type EffectDoc struct {
	ID             string `yaml:"id"`
	Multiplicative bool   `yaml:"multiplicative"`
	NoEffect       bool   `yaml:"no_effect"`
	Format         string `yaml:"format"`
}

// GoodDoc declares a good.
type GoodDoc struct {
	ID              string `yaml:"id"`
	Category        string `yaml:"category"`
	Colour          string `yaml:"colour"`
	BasePrice       string `yaml:"base_price"`
	Available       bool   `yaml:"available"`
	Tradeable       bool   `yaml:"tradeable"`
	Money           bool   `yaml:"money"`
	OverseasPenalty string `yaml:"overseas_penalty"`
}

// PopTypeDoc declares a pop type.
type PopTypeDoc struct {
	ID                string            `yaml:"id"`
	Strata            string            `yaml:"strata"`
	Artisan           bool              `yaml:"artisan"`
	Slave             bool              `yaml:"slave"`
	CanBeUnemployed   bool              `yaml:"can_be_unemployed"`
	CanBeRecruited    bool              `yaml:"can_be_recruited"`
	LifeNeeds         map[string]string `yaml:"life_needs"`
	EverydayNeeds     map[string]string `yaml:"everyday_needs"`
	LuxuryNeeds       map[string]string `yaml:"luxury_needs"`
	ResearchPoints    string            `yaml:"research_points"`
	ResearchOptimum   string            `yaml:"research_optimum"`
	LeadershipPoints  string            `yaml:"leadership_points"`
	LeadershipOptimum string            `yaml:"leadership_optimum"`
	Equivalent        string            `yaml:"equivalent"`
}

// CultureDoc declares a culture, religion or ideology.
type CultureDoc struct {
	ID     string `yaml:"id"`
	Group  string `yaml:"group"`
	Colour string `yaml:"colour"`
}

// TerrainDoc declares a terrain class.
type TerrainDoc struct {
	ID    string `yaml:"id"`
	Water bool   `yaml:"water"`
}

// JobDoc declares an owner or employee job slot.
type JobDoc struct {
	PopType    string `yaml:"pop_type"`
	Multiplier string `yaml:"multiplier"`
}

// ProductionDoc declares a production type.
type ProductionDoc struct {
	ID             string            `yaml:"id"`
	Kind           string            `yaml:"kind"`
	Owner          *JobDoc           `yaml:"owner"`
	Employees      []JobDoc          `yaml:"employees"`
	Workforce      int64             `yaml:"workforce"`
	Inputs         map[string]string `yaml:"inputs"`
	Output         string            `yaml:"output"`
	OutputQuantity string            `yaml:"output_quantity"`
	IsFarm         bool              `yaml:"farm"`
	IsMine         bool              `yaml:"mine"`
	IsCoastal      bool              `yaml:"coastal"`
}

// PartyDoc declares a country party.
type PartyDoc struct {
	ID       string `yaml:"id"`
	Ideology string `yaml:"ideology"`
}

// CountryDoc declares a country definition.
type CountryDoc struct {
	Tag              string     `yaml:"tag"`
	Colour           string     `yaml:"colour"`
	PrimaryCulture   string     `yaml:"primary_culture"`
	AcceptedCultures []string   `yaml:"accepted_cultures"`
	Parties          []PartyDoc `yaml:"parties"`
	GovernmentType   string     `yaml:"government_type"`
}

// RGODoc declares a province's resource-gathering operation.
type RGODoc struct {
	ProductionType string `yaml:"production_type"`
	SizeMultiplier string `yaml:"size_multiplier"`
	OwnerShare     string `yaml:"owner_share"`
}

// AdjacencyDoc declares one edge of the province graph.
type AdjacencyDoc struct {
	To         string `yaml:"to"`
	Distance   string `yaml:"distance"`
	Coastal    bool   `yaml:"coastal"`
	Impassable bool   `yaml:"impassable"`
	Strait     bool   `yaml:"strait"`
}

// ProvinceDoc declares a province.
type ProvinceDoc struct {
	ID          string         `yaml:"id"`
	Terrain     string         `yaml:"terrain"`
	Water       bool           `yaml:"water"`
	Owner       string         `yaml:"owner"`
	Controller  string         `yaml:"controller"`
	Cores       []string       `yaml:"cores"`
	RGO         *RGODoc        `yaml:"rgo"`
	Adjacencies []AdjacencyDoc `yaml:"adjacencies"`
}

// BookmarkDoc is the starting world state.
type BookmarkDoc struct {
	Countries []BookmarkCountryDoc `yaml:"countries"`
	Pops      []BookmarkPopDoc     `yaml:"pops"`
}

// BookmarkCountryDoc sets a country's starting state.
type BookmarkCountryDoc struct {
	Tag                 string            `yaml:"tag"`
	Treasury            string            `yaml:"treasury"`
	TaxRates            map[string]string `yaml:"tax_rates"`
	TariffRate          string            `yaml:"tariff_rate"`
	FactoryWage         string            `yaml:"factory_wage"`
	RulingParty         string            `yaml:"ruling_party"`
	Rules               []string          `yaml:"rules"`
	RegimentCultures    string            `yaml:"regiment_cultures"`
	UnemploymentSubsidy string            `yaml:"unemployment_subsidy"`
	Pension             string            `yaml:"pension"`
	ImportSubsidyRate   string            `yaml:"import_subsidy_rate"`
}

// BookmarkPopDoc seeds one pop.
type BookmarkPopDoc struct {
	Province      string            `yaml:"province"`
	Type          string            `yaml:"type"`
	Culture       string            `yaml:"culture"`
	Religion      string            `yaml:"religion"`
	Size          int64             `yaml:"size"`
	Cash          string            `yaml:"cash"`
	Militancy     string            `yaml:"militancy"`
	Consciousness string            `yaml:"consciousness"`
	Literacy      string            `yaml:"literacy"`
	Ideology      map[string]string `yaml:"ideology"`
}

func parsePoint(s string, fallback fixed.Point) (fixed.Point, error) {
	if s == "" {
		return fallback, nil
	}
	return fixed.Parse(s)
}

var ruleNames = map[string]country.RuleSet{
	"build_factory":        country.RuleBuildFactory,
	"expand_factory":       country.RuleExpandFactory,
	"destroy_factory":      country.RuleDestroyFactory,
	"factory_priority":     country.RuleFactoryPriority,
	"can_subsidise":        country.RuleCanSubsidise,
	"pop_build_factory":    country.RulePopBuildFactory,
	"pop_expand_factory":   country.RulePopExpandFactory,
	"slavery_allowed":      country.RuleSlaveryAllowed,
	"all_voting":           country.RuleAllVoting,
	"largest_share":        country.RuleLargestShareVoting,
	"rich_only":            country.RuleRichOnlyVoting,
	"state_vote":           country.RuleStateVote,
	"population_vote":      country.RulePopulationVote,
	"same_as_ruling_party": country.RuleSameAsRulingParty,
}

// Build constructs a simulation from the scenario. All registries lock
// before the bookmark applies; any failure aggregates into the error set.
func (sc *Scenario) Build() (*engine.Simulation, errs.Set, error) {
	var es errs.Set
	fail := func(code errs.Code, err error) (*engine.Simulation, errs.Set, error) {
		return nil, es.With(code), err
	}

	startDate := types.NewDate(1836, 1, 1)
	if sc.StartDate != "" {
		var err error
		startDate, err = types.ParseDate(sc.StartDate)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("start date: %w", err))
		}
	}

	effects := modifier.NewCatalogue()
	for _, doc := range sc.Effects {
		_, err := effects.Register(modifier.Effect{
			Identifier:     doc.ID,
			Multiplicative: doc.Multiplicative,
			NoEffect:       doc.NoEffect,
		})
		if err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	effects.Lock()

	goods := market.NewCatalogue()
	for _, doc := range sc.Goods {
		basePrice, err := parsePoint(doc.BasePrice, fixed.One)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("good %s base price: %w", doc.ID, err))
		}
		overseas, err := parsePoint(doc.OverseasPenalty, 0)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("good %s overseas penalty: %w", doc.ID, err))
		}
		colour := types.Colour{}
		if doc.Colour != "" {
			colour, err = types.ParseColour(doc.Colour)
			if err != nil {
				return fail(errs.InvalidData, err)
			}
		}
		_, err = goods.Register(market.GoodDefinition{
			Identifier:         doc.ID,
			Category:           doc.Category,
			Colour:             colour,
			BasePrice:          basePrice,
			AvailableFromStart: doc.Available,
			Tradeable:          doc.Tradeable,
			IsMoney:            doc.Money,
			OverseasPenalty:    overseas,
		})
		if err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	goods.Lock()

	goodRef := func(id string) (types.GoodIndex, error) {
		if idx, ok := goods.Lookup(id); ok {
			return idx, nil
		}
		return -1, fmt.Errorf("good %q does not exist", id)
	}
	parseNeeds := func(doc map[string]string) (*types.SparsePoints[types.GoodIndex], error) {
		needs := types.NewSparsePoints[types.GoodIndex]()
		for id, amount := range doc {
			idx, err := goodRef(id)
			if err != nil {
				return nil, err
			}
			v, err := fixed.Parse(amount)
			if err != nil {
				return nil, fmt.Errorf("need amount for %s: %w", id, err)
			}
			needs.Set(idx, v)
		}
		return needs, nil
	}

	cultures := pop.NewCultureCatalogue()
	for _, doc := range sc.Cultures {
		if _, err := cultures.Register(pop.Culture{Identifier: doc.ID, Group: doc.Group}); err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	cultures.Lock()

	religions := pop.NewReligionCatalogue()
	for _, doc := range sc.Religions {
		if _, err := religions.Register(pop.Religion{Identifier: doc.ID, Group: doc.Group}); err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	religions.Lock()

	ideologies := politics.NewIdeologyCatalogue()
	for _, doc := range sc.Ideologies {
		if _, err := ideologies.Register(politics.Ideology{Identifier: doc.ID, Group: doc.Group}); err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	ideologies.Lock()

	popTypes := pop.NewTypeCatalogue()
	for _, doc := range sc.PopTypes {
		strata := pop.StrataPoor
		if doc.Strata != "" {
			var err error
			strata, err = pop.ParseStrata(doc.Strata)
			if err != nil {
				return fail(errs.InvalidData, fmt.Errorf("pop type %s: %w", doc.ID, err))
			}
		}
		life, err := parseNeeds(doc.LifeNeeds)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("pop type %s: %w", doc.ID, err))
		}
		everyday, err := parseNeeds(doc.EverydayNeeds)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("pop type %s: %w", doc.ID, err))
		}
		luxury, err := parseNeeds(doc.LuxuryNeeds)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("pop type %s: %w", doc.ID, err))
		}
		research, err := parsePoint(doc.ResearchPoints, 0)
		if err != nil {
			return fail(errs.InvalidData, err)
		}
		researchOpt, err := parsePoint(doc.ResearchOptimum, 0)
		if err != nil {
			return fail(errs.InvalidData, err)
		}
		leadership, err := parsePoint(doc.LeadershipPoints, 0)
		if err != nil {
			return fail(errs.InvalidData, err)
		}
		leadershipOpt, err := parsePoint(doc.LeadershipOptimum, 0)
		if err != nil {
			return fail(errs.InvalidData, err)
		}
		_, err = popTypes.Register(pop.PopType{
			Identifier:      doc.ID,
			Strata:          strata,
			IsArtisan:       doc.Artisan,
			IsSlave:         doc.Slave,
			CanBeUnemployed: doc.CanBeUnemployed,
			CanBeRecruited:  doc.CanBeRecruited,
			Needs: [pop.NumNeedCategories]*types.SparsePoints[types.GoodIndex]{
				pop.NeedLife: life, pop.NeedEveryday: everyday, pop.NeedLuxury: luxury,
			},
			ResearchPoints:    research,
			ResearchOptimum:   researchOpt,
			LeadershipPoints:  leadership,
			LeadershipOptimum: leadershipOpt,
			Equivalent:        pop.NoPopType,
		})
		if err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	// Equivalent references resolve after every type registered.
	for _, doc := range sc.PopTypes {
		if doc.Equivalent == "" {
			continue
		}
		self, _ := popTypes.Lookup(doc.ID)
		equivalent, ok := popTypes.Lookup(doc.Equivalent)
		if !ok {
			return fail(errs.DoesNotExist, fmt.Errorf("pop type %s: equivalent %q does not exist", doc.ID, doc.Equivalent))
		}
		popTypes.At(self).Equivalent = equivalent
	}
	popTypes.Lock()

	terrains := world.NewTerrainCatalogue()
	for _, doc := range sc.Terrains {
		if _, err := terrains.Register(world.Terrain{Identifier: doc.ID, IsWater: doc.Water}); err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	terrains.Lock()

	productions := production.NewCatalogue()
	for _, doc := range sc.Productions {
		var kind production.Kind
		switch doc.Kind {
		case "factory":
			kind = production.KindFactory
		case "rgo":
			kind = production.KindRGO
		case "artisan":
			kind = production.KindArtisan
		default:
			return fail(errs.InvalidData, fmt.Errorf("production type %s: unknown kind %q", doc.ID, doc.Kind))
		}
		parseJob := func(jd *JobDoc) (*production.Job, error) {
			if jd == nil {
				return nil, nil
			}
			idx, ok := popTypes.Lookup(jd.PopType)
			if !ok {
				return nil, fmt.Errorf("pop type %q does not exist", jd.PopType)
			}
			mult, err := parsePoint(jd.Multiplier, fixed.One)
			if err != nil {
				return nil, err
			}
			return &production.Job{PopType: idx, EffectMultiplier: mult}, nil
		}
		ownerJob, err := parseJob(doc.Owner)
		if err != nil {
			return fail(errs.InvalidData, fmt.Errorf("production type %s: %w", doc.ID, err))
		}
		var employeeJobs []production.Job
		for i := range doc.Employees {
			job, err := parseJob(&doc.Employees[i])
			if err != nil {
				return fail(errs.InvalidData, fmt.Errorf("production type %s: %w", doc.ID, err))
			}
			employeeJobs = append(employeeJobs, *job)
		}
		inputs := types.NewSparsePoints[types.GoodIndex]()
		for id, amount := range doc.Inputs {
			idx, err := goodRef(id)
			if err != nil {
				return fail(errs.DoesNotExist, fmt.Errorf("production type %s: %w", doc.ID, err))
			}
			v, err := fixed.Parse(amount)
			if err != nil {
				return fail(errs.InvalidData, err)
			}
			inputs.Set(idx, v)
		}
		output, err := goodRef(doc.Output)
		if err != nil {
			return fail(errs.DoesNotExist, fmt.Errorf("production type %s: %w", doc.ID, err))
		}
		outputQuantity, err := parsePoint(doc.OutputQuantity, fixed.One)
		if err != nil {
			return fail(errs.InvalidData, err)
		}
		_, err = productions.Register(production.Type{
			Identifier:         doc.ID,
			Kind:               kind,
			OwnerJob:           ownerJob,
			EmployeeJobs:       employeeJobs,
			BaseWorkforceSize:  doc.Workforce,
			InputGoods:         inputs,
			OutputGood:         output,
			BaseOutputQuantity: outputQuantity,
			IsFarm:             doc.IsFarm,
			IsMine:             doc.IsMine,
			IsCoastal:          doc.IsCoastal,
		})
		if err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	productions.Lock()

	countries := country.NewCatalogue()
	for _, doc := range sc.Countries {
		primary, ok := cultures.Lookup(doc.PrimaryCulture)
		if !ok {
			return fail(errs.DoesNotExist, fmt.Errorf("country %s: primary culture %q does not exist", doc.Tag, doc.PrimaryCulture))
		}
		var accepted []types.CultureIndex
		for _, id := range doc.AcceptedCultures {
			idx, ok := cultures.Lookup(id)
			if !ok {
				return fail(errs.DoesNotExist, fmt.Errorf("country %s: accepted culture %q does not exist", doc.Tag, id))
			}
			accepted = append(accepted, idx)
		}
		var parties []country.Party
		for _, pd := range doc.Parties {
			ideology := types.IdeologyIndex(-1)
			if pd.Ideology != "" {
				idx, ok := ideologies.Lookup(pd.Ideology)
				if !ok {
					return fail(errs.DoesNotExist, fmt.Errorf("country %s: ideology %q does not exist", doc.Tag, pd.Ideology))
				}
				ideology = idx
			}
			parties = append(parties, country.Party{Identifier: pd.ID, Ideology: ideology})
		}
		colour := types.Colour{}
		if doc.Colour != "" {
			var err error
			colour, err = types.ParseColour(doc.Colour)
			if err != nil {
				return fail(errs.InvalidData, err)
			}
		}
		_, err := countries.Register(country.Definition{
			Tag:              doc.Tag,
			Colour:           colour,
			PrimaryCulture:   primary,
			AcceptedCultures: accepted,
			Parties:          parties,
			GovernmentType:   doc.GovernmentType,
		})
		if err != nil {
			return fail(errs.InvalidData, err)
		}
	}
	countries.Lock()

	defines := pop.DefaultDefines()
	if sc.Defines != nil {
		var err error
		if defines.BaseCon, err = parsePoint(sc.Defines.BaseCon, defines.BaseCon); err != nil {
			return fail(errs.InvalidData, err)
		}
		if defines.MaxCostMultiplier, err = parsePoint(sc.Defines.MaxCostMultiplier, defines.MaxCostMultiplier); err != nil {
			return fail(errs.InvalidData, err)
		}
		if sc.Defines.MinPopSizeForRegiment > 0 {
			defines.MinPopSizeForRegiment = sc.Defines.MinPopSizeForRegiment
		}
		if sc.Defines.PopSizePerRegiment > 0 {
			defines.PopSizePerRegiment = sc.Defines.PopSizePerRegiment
		}
	}

	rules := engine.GameRules{
		UseExponentialPriceChanges: sc.Rules.ExponentialPriceChanges,
	}
	if sc.Rules.BuildOrder == "provinces_first" {
		rules.BuildOrder = engine.ProvincesThenCountries
	}

	reg := &engine.Registries{
		Goods:          goods,
		PopTypes:       popTypes,
		Cultures:       cultures,
		Religions:      religions,
		Ideologies:     ideologies,
		Issues:         politics.NewIssueCatalogue(),
		NationalValues: politics.NewNationalValueCatalogue(),
		Rebels:         politics.NewRebelCatalogue(),
		Units:          military.NewUnitCatalogue(),
		Wargoals:       military.NewWargoalCatalogue(),
		Productions:    productions,
		Effects:        effects,
		Countries:      countries,
		Terrains:       terrains,
		Regions:        world.NewRegionCatalogue(),
		Events:         newEmptyEventCatalogue(),
	}
	reg.Issues.Lock()
	reg.NationalValues.Lock()
	reg.Rebels.Lock()
	reg.Units.Lock()
	reg.Wargoals.Lock()
	reg.Regions.Lock()

	sim := engine.New(reg, rules, defines, startDate, sc.Seed)
	if err := sc.applyBookmark(sim, reg); err != nil {
		return fail(errs.InvalidData, err)
	}
	return sim, es, nil
}
