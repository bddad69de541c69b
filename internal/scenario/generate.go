// Synthetic scenario generation using layered simplex noise. The noise
// fields shape a province grid: elevation picks terrain and water, fertility
// picks RGO recipes and size multipliers. Output is a plain Scenario that
// round-trips through the loader like hand-written content.
package scenario

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds scenario generation parameters.
type GenConfig struct {
	Seed uint64
	// Width and Height span the province grid.
	Width  int
	Height int
	// SeaLevel is the elevation threshold for water provinces (0.0-1.0).
	SeaLevel float64
	// Countries is the number of synthetic nations carved from the land.
	Countries int
}

// DefaultGenConfig returns a small world good for smoke runs.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      1836,
		Width:     8,
		Height:    6,
		SeaLevel:  0.3,
		Countries: 3,
	}
}

var generatedTags = []string{"ALB", "BRN", "CRD", "DSK", "ELT", "FRG", "GRN", "HLD"}

// Generate builds a complete synthetic scenario: goods, pop types, recipes,
// countries, a noise-shaped province grid and a bookmark.
func Generate(cfg GenConfig) *Scenario {
	if cfg.Countries > len(generatedTags) {
		cfg.Countries = len(generatedTags)
	}
	if cfg.Countries < 1 {
		cfg.Countries = 1
	}

	elevNoise := opensimplex.NewNormalized(int64(cfg.Seed))
	fertNoise := opensimplex.NewNormalized(int64(cfg.Seed) + 1)

	sc := &Scenario{
		Name:      fmt.Sprintf("generated_%d", cfg.Seed),
		StartDate: "1836.1.1",
		Seed:      cfg.Seed,
		Effects: []EffectDoc{
			{ID: "rgo_throughput", Multiplicative: true},
			{ID: "rgo_output", Multiplicative: true},
			{ID: "factory_input", Multiplicative: true},
			{ID: "factory_throughput", Multiplicative: true},
			{ID: "factory_output", Multiplicative: true},
			{ID: "artisan_input", Multiplicative: true},
			{ID: "artisan_throughput", Multiplicative: true},
			{ID: "artisan_output", Multiplicative: true},
			{ID: "life_needs", Multiplicative: true},
			{ID: "everyday_needs", Multiplicative: true},
			{ID: "luxury_needs", Multiplicative: true},
			{ID: "tax_efficiency"},
			{ID: "tariff_efficiency"},
		},
		Goods: []GoodDoc{
			{ID: "grain", Category: "consumer", BasePrice: "2.2", Available: true, Tradeable: true},
			{ID: "timber", Category: "raw", BasePrice: "0.9", Available: true, Tradeable: true},
			{ID: "coal", Category: "raw", BasePrice: "2.3", Available: true, Tradeable: true},
			{ID: "iron", Category: "raw", BasePrice: "3.5", Available: true, Tradeable: true},
			{ID: "fabric", Category: "industrial", BasePrice: "1.8", Available: true, Tradeable: true},
			{ID: "clothes", Category: "consumer", BasePrice: "9.7", Available: true, Tradeable: true},
			{ID: "furniture", Category: "consumer", BasePrice: "4.9", Available: true, Tradeable: true},
			{ID: "luxury_clothes", Category: "consumer", BasePrice: "65", Tradeable: true},
			{ID: "precious_metal", Category: "raw", BasePrice: "8", Available: true, Money: true},
		},
		Cultures: []CultureDoc{
			{ID: "northfolk", Group: "north"},
			{ID: "southfolk", Group: "south"},
			{ID: "eastfolk", Group: "east"},
		},
		Religions: []CultureDoc{
			{ID: "orthodox_rite", Group: "rite"},
			{ID: "reformed_rite", Group: "rite"},
		},
		Ideologies: []CultureDoc{
			{ID: "conservative", Group: "establishment"},
			{ID: "liberal", Group: "opposition"},
			{ID: "reactionary", Group: "establishment"},
		},
		Terrains: []TerrainDoc{
			{ID: "ocean", Water: true},
			{ID: "plains"},
			{ID: "hills"},
			{ID: "mountains"},
		},
		PopTypes: []PopTypeDoc{
			{
				ID: "aristocrats", Strata: "rich",
				LifeNeeds:     map[string]string{"grain": "9000"},
				EverydayNeeds: map[string]string{"clothes": "1200", "furniture": "900"},
				LuxuryNeeds:   map[string]string{"luxury_clothes": "300"},
			},
			{
				ID: "farmers", Strata: "poor", CanBeUnemployed: true, CanBeRecruited: true,
				LifeNeeds:     map[string]string{"grain": "9000"},
				EverydayNeeds: map[string]string{"fabric": "800"},
			},
			{
				ID: "labourers", Strata: "poor", CanBeUnemployed: true, CanBeRecruited: true,
				LifeNeeds:     map[string]string{"grain": "8000"},
				EverydayNeeds: map[string]string{"fabric": "700"},
			},
			{
				ID: "artisans", Strata: "middle", Artisan: true,
				LifeNeeds:     map[string]string{"grain": "9500"},
				EverydayNeeds: map[string]string{"fabric": "1100", "coal": "450"},
			},
			{
				ID: "clerks", Strata: "middle",
				ResearchPoints: "2", ResearchOptimum: "0.02",
				LifeNeeds:     map[string]string{"grain": "9500"},
				EverydayNeeds: map[string]string{"clothes": "900", "furniture": "600"},
			},
		},
		Productions: []ProductionDoc{
			{
				ID: "grain_farm", Kind: "rgo", IsFarm: true,
				Owner:     &JobDoc{PopType: "aristocrats", Multiplier: "2"},
				Employees: []JobDoc{{PopType: "farmers", Multiplier: "1"}},
				Workforce: 40000, Output: "grain", OutputQuantity: "45",
			},
			{
				ID: "coal_mine", Kind: "rgo", IsMine: true,
				Owner:     &JobDoc{PopType: "aristocrats", Multiplier: "2"},
				Employees: []JobDoc{{PopType: "labourers", Multiplier: "1"}},
				Workforce: 35000, Output: "coal", OutputQuantity: "30",
			},
			{
				ID: "iron_mine", Kind: "rgo", IsMine: true,
				Owner:     &JobDoc{PopType: "aristocrats", Multiplier: "2"},
				Employees: []JobDoc{{PopType: "labourers", Multiplier: "1"}},
				Workforce: 35000, Output: "iron", OutputQuantity: "24",
			},
			{
				ID: "timber_lodge", Kind: "rgo", IsFarm: true,
				Owner:     &JobDoc{PopType: "aristocrats", Multiplier: "2"},
				Employees: []JobDoc{{PopType: "labourers", Multiplier: "1"}},
				Workforce: 30000, Output: "timber", OutputQuantity: "40",
			},
			{
				ID: "artisan_clothes", Kind: "artisan",
				Workforce: 10000, Output: "clothes", OutputQuantity: "6",
				Inputs: map[string]string{"fabric": "1.2"},
			},
			{
				ID: "artisan_furniture", Kind: "artisan",
				Workforce: 10000, Output: "furniture", OutputQuantity: "8",
				Inputs: map[string]string{"timber": "2"},
			},
			{
				ID: "artisan_fabric", Kind: "artisan",
				Workforce: 10000, Output: "fabric", OutputQuantity: "10",
				Inputs: map[string]string{"timber": "0.5"},
			},
		},
	}

	for i := 0; i < cfg.Countries; i++ {
		culture := sc.Cultures[i%len(sc.Cultures)].ID
		sc.Countries = append(sc.Countries, CountryDoc{
			Tag:            generatedTags[i],
			PrimaryCulture: culture,
			Parties: []PartyDoc{
				{ID: "conservative_party", Ideology: "conservative"},
				{ID: "liberal_party", Ideology: "liberal"},
			},
		})
		sc.Bookmark.Countries = append(sc.Bookmark.Countries, BookmarkCountryDoc{
			Tag:      generatedTags[i],
			Treasury: "100000",
			TaxRates: map[string]string{
				"poor": "0.25", "middle": "0.2", "rich": "0.1",
			},
			TariffRate:       "0.05",
			FactoryWage:      "0.02",
			RulingParty:      "conservative_party",
			Rules:            []string{"build_factory", "can_subsidise"},
			RegimentCultures: "primary",
		})
	}

	rgoForLand := func(fertility, elevation float64) string {
		switch {
		case elevation > 0.75:
			return "iron_mine"
		case elevation > 0.6:
			return "coal_mine"
		case fertility > 0.5:
			return "grain_farm"
		default:
			return "timber_lodge"
		}
	}

	landCount := 0
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x)*0.35, float64(y)*0.35
			elev := elevNoise.Eval2(fx, fy)
			fert := fertNoise.Eval2(fx, fy)

			// Edge falloff pushes the map border under water.
			cx := float64(x)/float64(cfg.Width-1)*2 - 1
			cy := float64(y)/float64(cfg.Height-1)*2 - 1
			elev *= 1 - math.Pow(math.Sqrt(cx*cx+cy*cy)/math.Sqrt2, 3)

			id := fmt.Sprintf("prov_%d_%d", x, y)
			if elev < cfg.SeaLevel {
				sc.Provinces = append(sc.Provinces, ProvinceDoc{ID: id, Terrain: "ocean", Water: true})
				continue
			}

			terrain := "plains"
			if elev > 0.75 {
				terrain = "mountains"
			} else if elev > 0.6 {
				terrain = "hills"
			}
			owner := generatedTags[landCount%cfg.Countries]
			rgoType := rgoForLand(fert, elev)
			sizeMultiplier := fmt.Sprintf("%.2f", 0.5+fert)

			sc.Provinces = append(sc.Provinces, ProvinceDoc{
				ID: id, Terrain: terrain, Owner: owner, Cores: []string{owner},
				RGO: &RGODoc{ProductionType: rgoType, SizeMultiplier: sizeMultiplier, OwnerShare: "0.25"},
			})

			culture := sc.Countries[landCount%cfg.Countries].PrimaryCulture
			religion := sc.Religions[landCount%len(sc.Religions)].ID
			worker := "farmers"
			if rgoType != "grain_farm" {
				worker = "labourers"
			}
			base := 18000 + int64(fert*24000)
			sc.Bookmark.Pops = append(sc.Bookmark.Pops,
				BookmarkPopDoc{
					Province: id, Type: "aristocrats", Culture: culture, Religion: religion,
					Size: 1200 + base/40, Cash: "800", Literacy: "0.7",
					Ideology: map[string]string{"conservative": "3", "reactionary": "1"},
				},
				BookmarkPopDoc{
					Province: id, Type: worker, Culture: culture, Religion: religion,
					Size: base, Cash: "120", Literacy: "0.15",
					Ideology: map[string]string{"conservative": "2", "liberal": "1"},
				},
				BookmarkPopDoc{
					Province: id, Type: "artisans", Culture: culture, Religion: religion,
					Size: base / 6, Cash: "300", Literacy: "0.4",
					Ideology: map[string]string{"conservative": "1", "liberal": "1"},
				},
				BookmarkPopDoc{
					Province: id, Type: "clerks", Culture: culture, Religion: religion,
					Size: base / 12, Cash: "400", Literacy: "0.8",
					Ideology: map[string]string{"liberal": "2", "conservative": "1"},
				},
			)
			landCount++
		}
	}

	// Grid adjacencies between neighbouring cells, east and south edges
	// only, so each pair gets a single edge directed from its west or north
	// cell.
	provinceAt := func(x, y int) string { return fmt.Sprintf("prov_%d_%d", x, y) }
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			i := y*cfg.Width + x
			if x+1 < cfg.Width {
				sc.Provinces[i].Adjacencies = append(sc.Provinces[i].Adjacencies,
					AdjacencyDoc{To: provinceAt(x+1, y), Distance: "1"})
			}
			if y+1 < cfg.Height {
				sc.Provinces[i].Adjacencies = append(sc.Provinces[i].Adjacencies,
					AdjacencyDoc{To: provinceAt(x, y+1), Distance: "1"})
			}
		}
	}
	return sc
}
