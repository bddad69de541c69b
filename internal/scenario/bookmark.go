package scenario

import (
	"fmt"

	"github.com/talgya/grandsim/internal/country"
	"github.com/talgya/grandsim/internal/engine"
	"github.com/talgya/grandsim/internal/event"
	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/pop"
	"github.com/talgya/grandsim/internal/production"
	"github.com/talgya/grandsim/internal/types"
	"github.com/talgya/grandsim/internal/world"
)

func newEmptyEventCatalogue() *event.Catalogue {
	c := event.NewCatalogue()
	c.Lock()
	return c
}

// applyBookmark instantiates countries, provinces and pops from the
// bookmark section and wires RGO employment.
func (sc *Scenario) applyBookmark(sim *engine.Simulation, reg *engine.Registries) error {
	sizes := country.Sizes{
		PopTypes:   reg.PopTypes.Len(),
		Cultures:   reg.Cultures.Len(),
		Religions:  reg.Religions.Len(),
		Ideologies: reg.Ideologies.Len(),
	}
	worldSizes := world.Sizes{
		PopTypes:   reg.PopTypes.Len(),
		Cultures:   reg.Cultures.Len(),
		Religions:  reg.Religions.Len(),
		Ideologies: reg.Ideologies.Len(),
	}

	for i := 0; i < reg.Countries.Len(); i++ {
		sim.AddCountry(country.NewInstance(reg.Countries.At(types.CountryIndex(i)), reg.PopTypes, reg.Effects, sizes))
	}

	countryRef := func(tag string) (types.CountryIndex, error) {
		if tag == "" {
			return types.NoCountry, nil
		}
		if idx, ok := reg.Countries.Lookup(tag); ok {
			return idx, nil
		}
		return types.NoCountry, fmt.Errorf("country %q does not exist", tag)
	}

	type pendingRGO struct {
		province types.ProvinceIndex
		doc      *RGODoc
	}
	var rgos []pendingRGO

	for i, doc := range sc.Provinces {
		index := types.ProvinceIndex(i)
		prov := world.NewProvince(doc.ID, index, doc.Water, reg.Effects, sim.Defines, worldSizes)
		if doc.Terrain != "" {
			terrain, ok := reg.Terrains.Lookup(doc.Terrain)
			if !ok {
				return fmt.Errorf("province %s: terrain %q does not exist", doc.ID, doc.Terrain)
			}
			prov.Terrain = terrain
		}
		owner, err := countryRef(doc.Owner)
		if err != nil {
			return fmt.Errorf("province %s: %w", doc.ID, err)
		}
		prov.Owner = owner
		controller := owner
		if doc.Controller != "" {
			controller, err = countryRef(doc.Controller)
			if err != nil {
				return fmt.Errorf("province %s: %w", doc.ID, err)
			}
		}
		prov.Controller = controller
		for _, coreTag := range doc.Cores {
			core, err := countryRef(coreTag)
			if err != nil {
				return fmt.Errorf("province %s: %w", doc.ID, err)
			}
			prov.AddCore(core)
		}
		if owner != types.NoCountry {
			sim.Countries[owner].AddOwnedProvince(index)
		}
		if controller != types.NoCountry {
			sim.Countries[controller].AddControlledProvince(index)
		}
		if doc.RGO != nil {
			rgos = append(rgos, pendingRGO{province: index, doc: doc.RGO})
		}
		sim.AddProvince(prov)
	}

	// Adjacencies resolve once every province has its index.
	provinceRef := func(id string) (types.ProvinceIndex, error) {
		for i := range sc.Provinces {
			if sc.Provinces[i].ID == id {
				return types.ProvinceIndex(i), nil
			}
		}
		return -1, fmt.Errorf("province %q does not exist", id)
	}
	for i, doc := range sc.Provinces {
		for _, adj := range doc.Adjacencies {
			to, err := provinceRef(adj.To)
			if err != nil {
				return fmt.Errorf("province %s adjacency: %w", doc.ID, err)
			}
			distance, err := parsePoint(adj.Distance, fixed.One)
			if err != nil {
				return fmt.Errorf("province %s adjacency distance: %w", doc.ID, err)
			}
			var flags world.AdjacencyFlags
			if adj.Coastal {
				flags |= world.AdjacencyCoastal
			}
			if adj.Impassable {
				flags |= world.AdjacencyImpassable
			}
			if adj.Strait {
				flags |= world.AdjacencyStrait
			}
			sim.Provinces[i].AddAdjacency(to, distance, flags)
		}
	}

	for _, doc := range sc.Bookmark.Countries {
		idx, err := countryRef(doc.Tag)
		if err != nil {
			return fmt.Errorf("bookmark: %w", err)
		}
		inst := sim.Countries[idx]
		treasury, err := parsePoint(doc.Treasury, 0)
		if err != nil {
			return fmt.Errorf("bookmark country %s treasury: %w", doc.Tag, err)
		}
		inst.SetTreasury(treasury)
		for name, rate := range doc.TaxRates {
			strata, err := pop.ParseStrata(name)
			if err != nil {
				return fmt.Errorf("bookmark country %s: %w", doc.Tag, err)
			}
			v, err := fixed.Parse(rate)
			if err != nil {
				return fmt.Errorf("bookmark country %s tax rate: %w", doc.Tag, err)
			}
			inst.SetTaxRate(strata, v)
		}
		tariff, err := parsePoint(doc.TariffRate, 0)
		if err != nil {
			return fmt.Errorf("bookmark country %s tariff: %w", doc.Tag, err)
		}
		inst.SetTariffRate(tariff)
		wage, err := parsePoint(doc.FactoryWage, 0)
		if err != nil {
			return fmt.Errorf("bookmark country %s factory wage: %w", doc.Tag, err)
		}
		inst.SetFactoryWage(wage)
		for _, rule := range doc.Rules {
			bits, ok := ruleNames[rule]
			if !ok {
				return fmt.Errorf("bookmark country %s: unknown rule %q", doc.Tag, rule)
			}
			inst.AddRules(bits)
		}
		switch doc.RegimentCultures {
		case "", "primary":
			inst.SetRegimentCulturePolicy(country.RegimentsPrimaryCulture)
		case "accepted":
			inst.SetRegimentCulturePolicy(country.RegimentsAcceptedCulture)
		case "any":
			inst.SetRegimentCulturePolicy(country.RegimentsAnyCulture)
		case "none":
			inst.SetRegimentCulturePolicy(country.RegimentsNone)
		default:
			return fmt.Errorf("bookmark country %s: unknown regiment culture policy %q", doc.Tag, doc.RegimentCultures)
		}
		var welfare country.WelfarePolicy
		if welfare.UnemploymentSubsidyPerCapita, err = parsePoint(doc.UnemploymentSubsidy, 0); err != nil {
			return fmt.Errorf("bookmark country %s: %w", doc.Tag, err)
		}
		if welfare.PensionPerCapita, err = parsePoint(doc.Pension, 0); err != nil {
			return fmt.Errorf("bookmark country %s: %w", doc.Tag, err)
		}
		if welfare.ImportSubsidyRate, err = parsePoint(doc.ImportSubsidyRate, 0); err != nil {
			return fmt.Errorf("bookmark country %s: %w", doc.Tag, err)
		}
		inst.SetWelfare(welfare)
		if doc.RulingParty != "" {
			def := inst.Definition()
			found := false
			for _, party := range def.Parties {
				if party.Identifier == doc.RulingParty {
					inst.SetRulingParty(party.Index)
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("bookmark country %s: party %q not in roster", doc.Tag, doc.RulingParty)
			}
		}
	}

	for _, doc := range sc.Bookmark.Pops {
		provIdx, err := provinceRef(doc.Province)
		if err != nil {
			return fmt.Errorf("bookmark pop: %w", err)
		}
		typeIdx, ok := reg.PopTypes.Lookup(doc.Type)
		if !ok {
			return fmt.Errorf("bookmark pop: type %q does not exist", doc.Type)
		}
		cultureIdx, ok := reg.Cultures.Lookup(doc.Culture)
		if !ok {
			return fmt.Errorf("bookmark pop: culture %q does not exist", doc.Culture)
		}
		religionIdx, ok := reg.Religions.Lookup(doc.Religion)
		if !ok {
			return fmt.Errorf("bookmark pop: religion %q does not exist", doc.Religion)
		}
		militancy, err := parsePoint(doc.Militancy, 0)
		if err != nil {
			return err
		}
		consciousness, err := parsePoint(doc.Consciousness, 0)
		if err != nil {
			return err
		}
		literacy, err := parsePoint(doc.Literacy, fixed.One/10)
		if err != nil {
			return err
		}
		cash, err := parsePoint(doc.Cash, 0)
		if err != nil {
			return err
		}
		prov := sim.Provinces[provIdx]
		p := pop.New(
			reg.PopTypes.At(typeIdx), cultureIdx, religionIdx, doc.Size,
			militancy, consciousness, literacy,
			provIdx, int32(len(prov.Pops)), reg.Ideologies.Len(),
		)
		p.SetCash(cash)
		for id, weight := range doc.Ideology {
			ideologyIdx, ok := reg.Ideologies.Lookup(id)
			if !ok {
				return fmt.Errorf("bookmark pop: ideology %q does not exist", id)
			}
			v, err := fixed.Parse(weight)
			if err != nil {
				return err
			}
			p.Ideology().Set(ideologyIdx, v)
		}
		p.Ideology().Rescale(fixed.FromInt(doc.Size))
		prov.AddPop(p)
	}

	// RGOs build after pops so employment can bind province residents.
	for _, pending := range rgos {
		prov := sim.Provinces[pending.province]
		prodIdx, ok := reg.Productions.Lookup(pending.doc.ProductionType)
		if !ok {
			return fmt.Errorf("province %s: production type %q does not exist", prov.Identifier, pending.doc.ProductionType)
		}
		ptype := reg.Productions.At(prodIdx)
		if ptype.Kind != production.KindRGO {
			return fmt.Errorf("province %s: production type %q is not an rgo", prov.Identifier, pending.doc.ProductionType)
		}
		sizeMultiplier, err := parsePoint(pending.doc.SizeMultiplier, fixed.One)
		if err != nil {
			return err
		}
		ownerShare, err := parsePoint(pending.doc.OwnerShare, 0)
		if err != nil {
			return err
		}

		var ownerPop production.Laborer
		var employments []production.Employment
		remaining := ptype.BaseWorkforceSize
		for _, pp := range prov.Pops {
			if ptype.OwnerJob != nil && pp.Type().Index == ptype.OwnerJob.PopType && ownerPop == nil {
				ownerPop = pp
				continue
			}
			for _, job := range ptype.EmployeeJobs {
				if pp.Type().Index == job.PopType && remaining > 0 {
					count := pp.Size()
					if count > remaining {
						count = remaining
					}
					employments = append(employments, production.Employment{Worker: pp, Size: count})
					remaining -= count
					break
				}
			}
		}
		rgo := production.NewRGO(ptype, prov.Owner, sizeMultiplier, ownerPop, ownerShare)
		rgo.SetEmployees(employments)
		prov.RGO = rgo
	}
	return nil
}
