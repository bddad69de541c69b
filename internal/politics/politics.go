// Package politics holds the political content registries: ideologies,
// issue groups with their party-policy and reform variants, national values
// and rebel types.
package politics

import (
	"fmt"

	"github.com/talgya/grandsim/internal/fixed"
	"github.com/talgya/grandsim/internal/modifier"
	"github.com/talgya/grandsim/internal/registry"
	"github.com/talgya/grandsim/internal/script"
	"github.com/talgya/grandsim/internal/types"
)

// Ideology is a static ideology definition.
type Ideology struct {
	Identifier         string
	Index              types.IdeologyIndex
	Group              string
	Colour             types.Colour
	Uncivilised        bool
	CanReduceMilitancy bool
	SpawnDate          types.Date
	// AddPoliticalReform and friends weight how pops of this ideology react
	// to reform directions.
	AddPoliticalReform    script.ConditionalWeight
	RemovePoliticalReform script.ConditionalWeight
	AddSocialReform       script.ConditionalWeight
	RemoveSocialReform    script.ConditionalWeight
}

// IdeologyCatalogue is the locked ideology registry.
type IdeologyCatalogue struct {
	reg *registry.Registry[Ideology]
}

func NewIdeologyCatalogue() *IdeologyCatalogue {
	return &IdeologyCatalogue{reg: registry.New("ideology", func(i *Ideology) string { return i.Identifier })}
}

func (c *IdeologyCatalogue) Register(item Ideology) (types.IdeologyIndex, error) {
	idx, es := c.reg.Add(item, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register ideology %s: %s", item.Identifier, es)
	}
	c.reg.At(idx).Index = types.IdeologyIndex(idx)
	return types.IdeologyIndex(idx), nil
}

func (c *IdeologyCatalogue) Lock()                              { c.reg.Lock() }
func (c *IdeologyCatalogue) Len() int                           { return c.reg.Len() }
func (c *IdeologyCatalogue) At(i types.IdeologyIndex) *Ideology { return c.reg.At(int32(i)) }
func (c *IdeologyCatalogue) Lookup(id string) (types.IdeologyIndex, bool) {
	i, ok := c.reg.Lookup(id)
	return types.IdeologyIndex(i), ok
}

// IssueKind distinguishes the two issue variants.
type IssueKind uint8

const (
	// KindPartyPolicy issues shape party platforms.
	KindPartyPolicy IssueKind = iota
	// KindReform issues shape government capability.
	KindReform
)

// IssueGroup is a mutually exclusive set of issues; exactly one member is
// active per country.
type IssueGroup struct {
	Identifier string
	Index      types.IssueGroupIndex
	Kind       IssueKind
	// Ordered administrative direction: next reforms move up or down this
	// list.
	Issues []types.IssueIndex
	// Uncivilised groups only apply to unrecognised countries.
	Uncivilised    bool
	NextStepOnly   bool
	Administrative bool
}

// PolicyData carries the party-policy variant payload.
type PolicyData struct {
	// CanAppearInElection gates scripted election events.
	CanAppearInElection bool
}

// ReformData carries the reform variant payload.
type ReformData struct {
	// Ordinal is the position within the group's progression.
	Ordinal int
	// TechnologyCost is the research-point price of enacting the reform.
	TechnologyCost fixed.Point
	Allow          script.Condition
	OnExecute      script.Effect
}

// Issue is the tagged variant over party policies and reforms. The shared
// fields live here once; the variant payload in exactly one of the two data
// pointers.
type Issue struct {
	Identifier string
	Index      types.IssueIndex
	Group      types.IssueGroupIndex
	Kind       IssueKind
	// Payload of named modifier effects the issue contributes while active.
	Modifier *modifier.Modifier

	Policy *PolicyData
	Reform *ReformData
}

// Validate checks the variant payload matches the kind.
func (i *Issue) Validate() error {
	switch i.Kind {
	case KindPartyPolicy:
		if i.Reform != nil {
			return fmt.Errorf("issue %s: party policy carries reform data", i.Identifier)
		}
	case KindReform:
		if i.Policy != nil {
			return fmt.Errorf("issue %s: reform carries policy data", i.Identifier)
		}
		if i.Reform == nil {
			return fmt.Errorf("issue %s: reform missing reform data", i.Identifier)
		}
	}
	return nil
}

// IssueCatalogue registers groups and issues together so group membership
// stays consistent.
type IssueCatalogue struct {
	groups *registry.Registry[IssueGroup]
	issues *registry.Registry[Issue]
}

func NewIssueCatalogue() *IssueCatalogue {
	return &IssueCatalogue{
		groups: registry.New("issue_group", func(g *IssueGroup) string { return g.Identifier }),
		issues: registry.New("issue", func(i *Issue) string { return i.Identifier }),
	}
}

// RegisterGroup adds an issue group.
func (c *IssueCatalogue) RegisterGroup(g IssueGroup) (types.IssueGroupIndex, error) {
	idx, es := c.groups.Add(g, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register issue group %s: %s", g.Identifier, es)
	}
	c.groups.At(idx).Index = types.IssueGroupIndex(idx)
	return types.IssueGroupIndex(idx), nil
}

// RegisterIssue validates and adds an issue, linking it into its group.
func (c *IssueCatalogue) RegisterIssue(i Issue) (types.IssueIndex, error) {
	if err := i.Validate(); err != nil {
		return -1, err
	}
	if int(i.Group) < 0 || int(i.Group) >= c.groups.Len() {
		return -1, fmt.Errorf("issue %s: unknown group %d", i.Identifier, i.Group)
	}
	group := c.groups.At(int32(i.Group))
	if group.Kind != i.Kind {
		return -1, fmt.Errorf("issue %s: kind mismatch with group %s", i.Identifier, group.Identifier)
	}
	idx, es := c.issues.Add(i, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register issue %s: %s", i.Identifier, es)
	}
	c.issues.At(idx).Index = types.IssueIndex(idx)
	group.Issues = append(group.Issues, types.IssueIndex(idx))
	return types.IssueIndex(idx), nil
}

// Lock freezes both registries.
func (c *IssueCatalogue) Lock() {
	c.groups.Lock()
	c.issues.Lock()
}

func (c *IssueCatalogue) Groups() []IssueGroup                        { return c.groups.Items() }
func (c *IssueCatalogue) Issues() []Issue                             { return c.issues.Items() }
func (c *IssueCatalogue) GroupAt(i types.IssueGroupIndex) *IssueGroup { return c.groups.At(int32(i)) }
func (c *IssueCatalogue) IssueAt(i types.IssueIndex) *Issue           { return c.issues.At(int32(i)) }
func (c *IssueCatalogue) LookupGroup(id string) (types.IssueGroupIndex, bool) {
	i, ok := c.groups.Lookup(id)
	return types.IssueGroupIndex(i), ok
}
func (c *IssueCatalogue) LookupIssue(id string) (types.IssueIndex, bool) {
	i, ok := c.issues.Lookup(id)
	return types.IssueIndex(i), ok
}

// NationalValue names a country's guiding value and its modifier payload.
type NationalValue struct {
	Identifier string
	Modifier   *modifier.Modifier
}

// NationalValueCatalogue is the locked national value registry.
type NationalValueCatalogue struct {
	reg *registry.Registry[NationalValue]
}

func NewNationalValueCatalogue() *NationalValueCatalogue {
	return &NationalValueCatalogue{reg: registry.New("national_value", func(v *NationalValue) string { return v.Identifier })}
}

func (c *NationalValueCatalogue) Register(v NationalValue) error {
	_, es := c.reg.Add(v, registry.DuplicateFail)
	if !es.IsOK() {
		return fmt.Errorf("register national value %s: %s", v.Identifier, es)
	}
	return nil
}

func (c *NationalValueCatalogue) Lock()                                { c.reg.Lock() }
func (c *NationalValueCatalogue) Get(id string) (*NationalValue, bool) { return c.reg.Get(id) }

// RebelType defines a rebel movement archetype.
type RebelType struct {
	Identifier     string
	Index          types.RebelTypeIndex
	Icon           int
	BreakAlliances bool
	Ideology       types.IdeologyIndex
	// SpawnChance weights daily rebel unit spawning.
	SpawnChance script.ConditionalWeight
	// WillRise weights whether brewing rebels rise up.
	WillRise             script.ConditionalWeight
	OccupationMultiplier fixed.Point
}

// RebelCatalogue is the locked rebel type registry.
type RebelCatalogue struct {
	reg *registry.Registry[RebelType]
}

func NewRebelCatalogue() *RebelCatalogue {
	return &RebelCatalogue{reg: registry.New("rebel_type", func(r *RebelType) string { return r.Identifier })}
}

func (c *RebelCatalogue) Register(r RebelType) (types.RebelTypeIndex, error) {
	idx, es := c.reg.Add(r, registry.DuplicateFail)
	if !es.IsOK() {
		return -1, fmt.Errorf("register rebel type %s: %s", r.Identifier, es)
	}
	c.reg.At(idx).Index = types.RebelTypeIndex(idx)
	return types.RebelTypeIndex(idx), nil
}

func (c *RebelCatalogue) Lock()                                { c.reg.Lock() }
func (c *RebelCatalogue) Len() int                             { return c.reg.Len() }
func (c *RebelCatalogue) At(i types.RebelTypeIndex) *RebelType { return c.reg.At(int32(i)) }
