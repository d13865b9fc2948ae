package query

// FacetGroupsRule is a sealed interface for the per-reference facet relation
// directives. Rules are independent and additive; they are validated but
// never merged.
type FacetGroupsRule interface {
	Container

	// Relation is the boolean relation the rule applies.
	Relation() FacetRelationType
	// Reference is the faceted reference name.
	Reference() string
	// Level says whether the rule relates facets within a group or groups
	// to each other.
	Level() FacetGroupRelationLevel
	// Filter selects the facet groups the rule applies to. Nil means all
	// groups of the reference.
	Filter() *FilterBy

	facetGroupsRule()
}

// facetGroups holds the state shared by the four rule directives.
type facetGroups struct {
	requireKind
	reference string
	level     FacetGroupRelationLevel
	filter    *FilterBy
}

func (f *facetGroups) Reference() string              { return f.reference }
func (f *facetGroups) Level() FacetGroupRelationLevel { return f.level }
func (f *facetGroups) Filter() *FilterBy              { return f.filter }
func (*facetGroups) Children() []Node                 { return nil }
func (f *facetGroups) AdditionalChildren() []Node     { return appendNode(nil, f.filter) }
func (*facetGroups) IsApplicable() bool               { return true }
func (*facetGroups) facetGroupsRule()                 {}

func (f *facetGroups) Arguments() []Value {
	return []Value{String(f.reference), f.level}
}

func newFacetGroups(name, reference string, level FacetGroupRelationLevel, filter *FilterBy) (facetGroups, error) {
	r := newArgReader(name, []Value{String(reference), level})
	ref := r.string("reference name")
	lvl := requiredEnum(r, "relation level", ParseFacetGroupRelationLevel)
	if err := r.done(); err != nil {
		return facetGroups{}, err
	}
	return facetGroups{reference: ref, level: lvl, filter: filter}, nil
}

// FacetGroupsConjunction combines the selected facets with logical AND.
type FacetGroupsConjunction struct{ facetGroups }

// NewFacetGroupsConjunction creates a conjunction rule. filter may be nil.
func NewFacetGroupsConjunction(reference string, level FacetGroupRelationLevel, filter *FilterBy) (*FacetGroupsConjunction, error) {
	fg, err := newFacetGroups("facetGroupsConjunction", reference, level, filter)
	if err != nil {
		return nil, err
	}
	return &FacetGroupsConjunction{fg}, nil
}

func (*FacetGroupsConjunction) Name() string                { return "facetGroupsConjunction" }
func (*FacetGroupsConjunction) Relation() FacetRelationType { return FacetConjunction }

// FacetGroupsDisjunction combines the selected facets with logical OR.
type FacetGroupsDisjunction struct{ facetGroups }

// NewFacetGroupsDisjunction creates a disjunction rule. filter may be nil.
func NewFacetGroupsDisjunction(reference string, level FacetGroupRelationLevel, filter *FilterBy) (*FacetGroupsDisjunction, error) {
	fg, err := newFacetGroups("facetGroupsDisjunction", reference, level, filter)
	if err != nil {
		return nil, err
	}
	return &FacetGroupsDisjunction{fg}, nil
}

func (*FacetGroupsDisjunction) Name() string                { return "facetGroupsDisjunction" }
func (*FacetGroupsDisjunction) Relation() FacetRelationType { return FacetDisjunction }

// FacetGroupsExclusivity makes the selected facets mutually exclusive.
type FacetGroupsExclusivity struct{ facetGroups }

// NewFacetGroupsExclusivity creates an exclusivity rule. filter may be nil.
func NewFacetGroupsExclusivity(reference string, level FacetGroupRelationLevel, filter *FilterBy) (*FacetGroupsExclusivity, error) {
	fg, err := newFacetGroups("facetGroupsExclusivity", reference, level, filter)
	if err != nil {
		return nil, err
	}
	return &FacetGroupsExclusivity{fg}, nil
}

func (*FacetGroupsExclusivity) Name() string                { return "facetGroupsExclusivity" }
func (*FacetGroupsExclusivity) Relation() FacetRelationType { return FacetExclusivity }

// FacetGroupsNegation inverts the meaning of the selected facets.
type FacetGroupsNegation struct{ facetGroups }

// NewFacetGroupsNegation creates a negation rule. filter may be nil.
func NewFacetGroupsNegation(reference string, level FacetGroupRelationLevel, filter *FilterBy) (*FacetGroupsNegation, error) {
	fg, err := newFacetGroups("facetGroupsNegation", reference, level, filter)
	if err != nil {
		return nil, err
	}
	return &FacetGroupsNegation{fg}, nil
}

func (*FacetGroupsNegation) Name() string                { return "facetGroupsNegation" }
func (*FacetGroupsNegation) Relation() FacetRelationType { return FacetNegation }

// FacetCalculationRules sets the default relations used when no explicit
// facetGroups rule covers a facet.
type FacetCalculationRules struct {
	requireKind
	sameGroup       FacetRelationType
	differentGroups FacetRelationType
}

var defaultFacetCalculationRules = &FacetCalculationRules{
	sameGroup:       FacetDisjunction,
	differentGroups: FacetConjunction,
}

// DefaultFacetCalculationRules returns the rules in effect when the query
// sets none: disjunction within a group and conjunction across groups.
func DefaultFacetCalculationRules() *FacetCalculationRules { return defaultFacetCalculationRules }

// NewFacetCalculationRules creates calculation rules.
func NewFacetCalculationRules(sameGroup, differentGroups FacetRelationType) (*FacetCalculationRules, error) {
	for _, t := range []FacetRelationType{sameGroup, differentGroups} {
		if _, ok := ParseFacetRelationType(t.String()); !ok {
			return nil, structureError("facetCalculationRules", "invalid relation type %d", int(t))
		}
	}
	return &FacetCalculationRules{sameGroup: sameGroup, differentGroups: differentGroups}, nil
}

func (*FacetCalculationRules) Name() string { return "facetCalculationRules" }
func (f *FacetCalculationRules) Arguments() []Value {
	return []Value{f.sameGroup, f.differentGroups}
}
func (*FacetCalculationRules) IsApplicable() bool { return true }

// SameGroup returns the relation between facets of one group.
func (f *FacetCalculationRules) SameGroup() FacetRelationType { return f.sameGroup }

// DifferentGroups returns the relation between facet groups.
func (f *FacetCalculationRules) DifferentGroups() FacetRelationType { return f.differentGroups }

// ForLevel returns the default relation for level.
func (f *FacetCalculationRules) ForLevel(level FacetGroupRelationLevel) FacetRelationType {
	if level == WithDifferentFacetsInGroup {
		return f.sameGroup
	}
	return f.differentGroups
}

func registerFacets() {
	type facetCtor func(ref string, level FacetGroupRelationLevel, filter *FilterBy) (Node, error)
	rules := map[string]facetCtor{
		"facetGroupsConjunction": func(ref string, level FacetGroupRelationLevel, filter *FilterBy) (Node, error) {
			return NewFacetGroupsConjunction(ref, level, filter)
		},
		"facetGroupsDisjunction": func(ref string, level FacetGroupRelationLevel, filter *FilterBy) (Node, error) {
			return NewFacetGroupsDisjunction(ref, level, filter)
		},
		"facetGroupsExclusivity": func(ref string, level FacetGroupRelationLevel, filter *FilterBy) (Node, error) {
			return NewFacetGroupsExclusivity(ref, level, filter)
		},
		"facetGroupsNegation": func(ref string, level FacetGroupRelationLevel, filter *FilterBy) (Node, error) {
			return NewFacetGroupsNegation(ref, level, filter)
		},
	}
	for name, ctor := range rules {
		name, ctor := name, ctor
		register(name, CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
			if len(children) > 0 {
				return nil, structureError(name, "unexpected child %s", Format(children[0]))
			}
			r := newArgReader(name, args)
			ref := r.string("reference name")
			level := optionalEnum(r, ParseFacetGroupRelationLevel, WithDifferentGroups)
			if err := r.done(); err != nil {
				return nil, err
			}
			var filter *FilterBy
			for _, a := range additional {
				f, ok := a.(*FilterBy)
				if !ok {
					return nil, structureError(name, "attached %s is not a filter", Format(a))
				}
				if filter != nil {
					return nil, structureError(name, "at most one filterBy is allowed")
				}
				filter = f
			}
			return ctor(ref, level, filter)
		})
	}
	register("facetCalculationRules", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("facetCalculationRules", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("facetCalculationRules", args)
		same := optionalEnum(r, ParseFacetRelationType, FacetDisjunction)
		different := optionalEnum(r, ParseFacetRelationType, FacetConjunction)
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewFacetCalculationRules(same, different)
	})
}
