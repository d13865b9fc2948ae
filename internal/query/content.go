package query

import (
	"slices"

	"golang.org/x/text/language"
)

// ContentRequirement is a sealed interface for fetch directives that take
// part in the merge algebra: the entity content kinds plus entityFetch and
// entityGroupFetch.
type ContentRequirement interface {
	Node
	contentRequirement()
}

// EntityContent is a sealed interface for the directives allowed inside
// entityFetch and entityGroupFetch.
type EntityContent interface {
	ContentRequirement
	entityContent()
}

// nameSet is the shared state of the name-set kinds. An empty set means
// everything of that kind is requested.
type nameSet []string

func (s nameSet) all() bool { return len(s) == 0 }

// union returns s extended by the names of o not yet present, preserving
// first-seen order. The second result is false when nothing was added.
func (s nameSet) union(o nameSet) (nameSet, bool) {
	out := s
	added := false
	for _, n := range o {
		if !slices.Contains(out, n) {
			if !added {
				out = slices.Clone(s)
				added = true
			}
			out = append(out, n)
		}
	}
	return out, added
}

func (s nameSet) containedIn(o nameSet) bool {
	if o.all() {
		return true
	}
	if s.all() {
		return false
	}
	for _, n := range s {
		if !slices.Contains(o, n) {
			return false
		}
	}
	return true
}

func (s nameSet) sameAs(o nameSet) bool {
	return len(s) == len(o) && s.containedIn(o) && o.containedIn(s)
}

func readNameSet(name, what string, args []Value) (nameSet, error) {
	r := newArgReader(name, args)
	names := r.strings(what)
	if err := r.done(); err != nil {
		return nil, err
	}
	if err := uniqueStrings(name, what, names); err != nil {
		return nil, err
	}
	return nameSet(names), nil
}

// AttributeContent requests entity attributes. Without names it requests all
// attributes.
type AttributeContent struct {
	requireKind
	names nameSet
}

var attributeContentAll = &AttributeContent{}

// AttributeContentAll returns the shared all-attributes directive.
func AttributeContentAll() *AttributeContent { return attributeContentAll }

// NewAttributeContent creates an attribute requirement. Duplicate or blank
// names are rejected.
func NewAttributeContent(names ...string) (*AttributeContent, error) {
	set, err := readNameSet("attributeContent", "attribute name", Strings(names...))
	if err != nil {
		return nil, err
	}
	if set.all() {
		return attributeContentAll, nil
	}
	return &AttributeContent{names: set}, nil
}

func (*AttributeContent) Name() string         { return "attributeContent" }
func (a *AttributeContent) Arguments() []Value { return Strings(a.names...) }
func (*AttributeContent) IsApplicable() bool   { return true }
func (*AttributeContent) contentRequirement()  {}
func (*AttributeContent) entityContent()       {}

// AllRequested reports whether every attribute is requested.
func (a *AttributeContent) AllRequested() bool { return a.names.all() }

// Names returns the requested attribute names in first-seen order.
func (a *AttributeContent) Names() []string { return slices.Clone(a.names) }

// CombineWith returns the union of both requirements. When o adds nothing, a
// itself is returned.
func (a *AttributeContent) CombineWith(o *AttributeContent) *AttributeContent {
	if a.AllRequested() {
		return a
	}
	if o.AllRequested() {
		return o
	}
	union, added := a.names.union(o.names)
	if !added {
		return a
	}
	return &AttributeContent{names: union}
}

// ContainedWithin reports whether o already requests every attribute of a.
func (a *AttributeContent) ContainedWithin(o *AttributeContent) bool {
	return a.names.containedIn(o.names)
}

// AssociatedDataContent requests associated data. Without names it requests
// all associated data.
type AssociatedDataContent struct {
	requireKind
	names nameSet
}

var associatedDataContentAll = &AssociatedDataContent{}

// AssociatedDataContentAll returns the shared all-associated-data directive.
func AssociatedDataContentAll() *AssociatedDataContent { return associatedDataContentAll }

// NewAssociatedDataContent creates an associated data requirement.
func NewAssociatedDataContent(names ...string) (*AssociatedDataContent, error) {
	set, err := readNameSet("associatedDataContent", "associated data name", Strings(names...))
	if err != nil {
		return nil, err
	}
	if set.all() {
		return associatedDataContentAll, nil
	}
	return &AssociatedDataContent{names: set}, nil
}

func (*AssociatedDataContent) Name() string         { return "associatedDataContent" }
func (a *AssociatedDataContent) Arguments() []Value { return Strings(a.names...) }
func (*AssociatedDataContent) IsApplicable() bool   { return true }
func (*AssociatedDataContent) contentRequirement()  {}
func (*AssociatedDataContent) entityContent()       {}

// AllRequested reports whether all associated data is requested.
func (a *AssociatedDataContent) AllRequested() bool { return a.names.all() }

// Names returns the requested names in first-seen order.
func (a *AssociatedDataContent) Names() []string { return slices.Clone(a.names) }

// CombineWith returns the union of both requirements.
func (a *AssociatedDataContent) CombineWith(o *AssociatedDataContent) *AssociatedDataContent {
	if a.AllRequested() {
		return a
	}
	if o.AllRequested() {
		return o
	}
	union, added := a.names.union(o.names)
	if !added {
		return a
	}
	return &AssociatedDataContent{names: union}
}

// ContainedWithin reports whether o already requests everything a does.
func (a *AssociatedDataContent) ContainedWithin(o *AssociatedDataContent) bool {
	return a.names.containedIn(o.names)
}

// DataInLocales selects the locales localized data is fetched in. Without
// locales it fetches all of them.
type DataInLocales struct {
	requireKind
	locales []language.Tag
}

var dataInLocalesAll = &DataInLocales{}

// DataInLocalesAll returns the shared all-locales directive.
func DataInLocalesAll() *DataInLocales { return dataInLocalesAll }

// NewDataInLocales creates a locale requirement. Undefined and duplicate
// locales are rejected.
func NewDataInLocales(locales ...language.Tag) (*DataInLocales, error) {
	seen := make(map[string]bool, len(locales))
	for _, l := range locales {
		if l == language.Und {
			return nil, structureError("dataInLocales", "locale must not be undefined")
		}
		if seen[l.String()] {
			return nil, structureError("dataInLocales", "duplicate locale %q", l.String())
		}
		seen[l.String()] = true
	}
	if len(locales) == 0 {
		return dataInLocalesAll, nil
	}
	return &DataInLocales{locales: slices.Clone(locales)}, nil
}

func (*DataInLocales) Name() string { return "dataInLocales" }
func (d *DataInLocales) Arguments() []Value {
	out := make([]Value, len(d.locales))
	for i, l := range d.locales {
		out[i] = Locale{Tag: l}
	}
	return out
}
func (*DataInLocales) IsApplicable() bool  { return true }
func (*DataInLocales) contentRequirement() {}
func (*DataInLocales) entityContent()      {}

// AllRequested reports whether all locales are requested.
func (d *DataInLocales) AllRequested() bool { return len(d.locales) == 0 }

// Locales returns the requested locales in first-seen order.
func (d *DataInLocales) Locales() []language.Tag { return slices.Clone(d.locales) }

func (d *DataInLocales) keys() nameSet {
	out := make(nameSet, len(d.locales))
	for i, l := range d.locales {
		out[i] = l.String()
	}
	return out
}

// CombineWith returns the union of both locale sets.
func (d *DataInLocales) CombineWith(o *DataInLocales) *DataInLocales {
	if d.AllRequested() {
		return d
	}
	if o.AllRequested() {
		return o
	}
	have := d.keys()
	var out []language.Tag
	for _, l := range o.locales {
		if !slices.Contains(have, l.String()) {
			if out == nil {
				out = slices.Clone(d.locales)
			}
			out = append(out, l)
			have = append(have, l.String())
		}
	}
	if out == nil {
		return d
	}
	return &DataInLocales{locales: out}
}

// ContainedWithin reports whether o already requests every locale of d.
func (d *DataInLocales) ContainedWithin(o *DataInLocales) bool {
	return d.keys().containedIn(o.keys())
}

// PriceContent selects which prices are fetched. Additional price lists are
// fetched on top of those selected by the mode.
type PriceContent struct {
	requireKind
	mode       PriceContentMode
	priceLists nameSet
}

var priceContentAll = &PriceContent{mode: PriceModeAll}

// PriceContentAll returns the shared all-prices directive.
func PriceContentAll() *PriceContent { return priceContentAll }

// NewPriceContent creates a price requirement.
func NewPriceContent(mode PriceContentMode, priceLists ...string) (*PriceContent, error) {
	if mode < PriceModeNone || mode > PriceModeAll {
		return nil, structureError("priceContent", "invalid mode %d", int(mode))
	}
	set, err := readNameSet("priceContent", "price list", Strings(priceLists...))
	if err != nil {
		return nil, err
	}
	if mode == PriceModeAll && set.all() {
		return priceContentAll, nil
	}
	return &PriceContent{mode: mode, priceLists: set}, nil
}

func (*PriceContent) Name() string { return "priceContent" }
func (p *PriceContent) Arguments() []Value {
	return append([]Value{p.mode}, Strings(p.priceLists...)...)
}
func (*PriceContent) IsApplicable() bool  { return true }
func (*PriceContent) contentRequirement() {}
func (*PriceContent) entityContent()      {}

// Mode returns the fetch mode.
func (p *PriceContent) Mode() PriceContentMode { return p.mode }

// AdditionalPriceLists returns price lists fetched regardless of the filter.
func (p *PriceContent) AdditionalPriceLists() []string { return slices.Clone(p.priceLists) }

// CombineWith takes the higher mode and the union of additional price lists.
// A side that already has the higher mode and every price list is returned
// unchanged.
func (p *PriceContent) CombineWith(o *PriceContent) *PriceContent {
	mode := max(p.mode, o.mode)
	if p.mode == mode && o.priceLists.containedInList(p.priceLists) {
		return p
	}
	if o.mode == mode && p.priceLists.containedInList(o.priceLists) {
		return o
	}
	union, _ := p.priceLists.union(o.priceLists)
	return &PriceContent{mode: mode, priceLists: union}
}

// ContainedWithin reports whether o fetches at least the prices p does.
func (p *PriceContent) ContainedWithin(o *PriceContent) bool {
	return o.mode >= p.mode && p.priceLists.containedInList(o.priceLists)
}

// containedInList is plain subset: for price lists an empty set means none,
// not all.
func (s nameSet) containedInList(o nameSet) bool {
	for _, n := range s {
		if !slices.Contains(o, n) {
			return false
		}
	}
	return true
}

func registerContent() {
	register("attributeContent", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("attributeContent", children, additional); err != nil {
			return nil, err
		}
		set, err := readNameSet("attributeContent", "attribute name", args)
		if err != nil {
			return nil, err
		}
		return NewAttributeContent(set...)
	})
	register("associatedDataContent", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("associatedDataContent", children, additional); err != nil {
			return nil, err
		}
		set, err := readNameSet("associatedDataContent", "associated data name", args)
		if err != nil {
			return nil, err
		}
		return NewAssociatedDataContent(set...)
	})
	register("dataInLocales", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("dataInLocales", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("dataInLocales", args)
		tags := r.locales("locale")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewDataInLocales(tags...)
	})
	register("priceContent", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("priceContent", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("priceContent", args)
		mode := optionalEnum(r, ParsePriceContentMode, PriceModeRespectingFilter)
		lists := r.strings("price list")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPriceContent(mode, lists...)
	})
	registerHierarchyContent()
	registerReferenceContent()
	registerFetch()
}
