package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Load reads a scenario from a single YAML file, or from a directory of
// YAML fragments that each carry any subset of the document. Fragments are
// merged in filename order so content files can be split by concern the way
// mods split theirs.
func Load(path string) (*Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat scenario: %w", err)
	}
	if !info.IsDir() {
		return loadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("scenario dir %s holds no yaml files", path)
	}
	sort.Strings(names)

	// Fragments parse concurrently; merging stays in filename order. Each
	// goroutine writes its own slot, so no lock is needed.
	fragments := make([]*Scenario, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			frag, err := loadFile(filepath.Join(path, name))
			if err != nil {
				return err
			}
			fragments[i] = frag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Scenario{}
	for _, frag := range fragments {
		merged.merge(frag)
	}
	return merged, nil
}

func loadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &sc, nil
}

// merge folds a fragment into the receiver: scalars override when set,
// lists append.
func (sc *Scenario) merge(frag *Scenario) {
	if frag.Name != "" {
		sc.Name = frag.Name
	}
	if frag.StartDate != "" {
		sc.StartDate = frag.StartDate
	}
	if frag.Seed != 0 {
		sc.Seed = frag.Seed
	}
	if frag.Rules.ExponentialPriceChanges {
		sc.Rules.ExponentialPriceChanges = true
	}
	if frag.Rules.BuildOrder != "" {
		sc.Rules.BuildOrder = frag.Rules.BuildOrder
	}
	if frag.Defines != nil {
		sc.Defines = frag.Defines
	}
	sc.Effects = append(sc.Effects, frag.Effects...)
	sc.Goods = append(sc.Goods, frag.Goods...)
	sc.PopTypes = append(sc.PopTypes, frag.PopTypes...)
	sc.Cultures = append(sc.Cultures, frag.Cultures...)
	sc.Religions = append(sc.Religions, frag.Religions...)
	sc.Ideologies = append(sc.Ideologies, frag.Ideologies...)
	sc.Terrains = append(sc.Terrains, frag.Terrains...)
	sc.Productions = append(sc.Productions, frag.Productions...)
	sc.Countries = append(sc.Countries, frag.Countries...)
	sc.Provinces = append(sc.Provinces, frag.Provinces...)
	sc.Bookmark.Countries = append(sc.Bookmark.Countries, frag.Bookmark.Countries...)
	sc.Bookmark.Pops = append(sc.Bookmark.Pops, frag.Bookmark.Pops...)
}

// Save writes the scenario as YAML.
func (sc *Scenario) Save(path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}
