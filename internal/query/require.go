package query

import (
	"fmt"
	"slices"
)

// Require is the root container of requirements.
type Require struct {
	requireKind
	children []Node
}

// NewRequire creates the requirement root. At most one entityFetch, one
// paging directive (page or strip), one priceHistogram, one facetSummary,
// one facetCalculationRules and one hierarchyOfSelf are allowed.
// facetSummaryOfReference and attributeHistogram are unique per reference or
// attribute respectively.
func NewRequire(children ...Node) (*Require, error) {
	if err := requireCategory("require", CategoryRequire, children); err != nil {
		return nil, err
	}
	singletons := map[string]bool{}
	once := func(key, what string) error {
		if singletons[key] {
			return structureError("require", "at most one %s is allowed", what)
		}
		singletons[key] = true
		return nil
	}
	for _, c := range children {
		var err error
		switch x := c.(type) {
		case *EntityFetch:
			err = once("entityFetch", "entityFetch")
		case *Page, *Strip:
			err = once("paging", "page or strip")
		case *PriceHistogram:
			err = once("priceHistogram", "priceHistogram")
		case *FacetSummary:
			err = once("facetSummary", "facetSummary")
		case *FacetCalculationRules:
			err = once("facetCalculationRules", "facetCalculationRules")
		case *HierarchyOfSelf:
			err = once("hierarchyOfSelf", "hierarchyOfSelf")
		case *FacetSummaryOfReference:
			err = once("facetSummaryOfReference:"+x.reference, fmt.Sprintf("facetSummaryOfReference for %q", x.reference))
		case *AttributeHistogram, *HierarchyOfReference, FacetGroupsRule:
		default:
			err = structureError("require", "%s is not allowed at the top level", Format(c))
		}
		if err != nil {
			return nil, err
		}
	}
	return &Require{children: slices.Clone(children)}, nil
}

func (*Require) Name() string               { return "require" }
func (*Require) Arguments() []Value         { return nil }
func (r *Require) Children() []Node         { return slices.Clone(r.children) }
func (*Require) AdditionalChildren() []Node { return nil }
func (r *Require) IsApplicable() bool       { return len(r.children) > 0 }

// EntityFetch returns the entity fetch, or nil.
func (r *Require) EntityFetch() *EntityFetch {
	f, _ := Find[*EntityFetch](r)
	return f
}

// WithEntityFetch returns a copy of r whose entity fetch is replaced by f,
// or added when r has none. A nil f removes it.
func (r *Require) WithEntityFetch(f *EntityFetch) (*Require, error) {
	var children []Node
	replaced := false
	for _, c := range r.children {
		if _, ok := c.(*EntityFetch); ok {
			replaced = true
			children = appendNode(children, f)
			continue
		}
		children = append(children, c)
	}
	if !replaced {
		children = appendNode(children, f)
	}
	return NewRequire(children...)
}

// Find returns the first direct child of type T.
func Find[T Node](c Container) (T, bool) {
	for _, n := range c.Children() {
		if t, ok := n.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// FindAll returns every direct child of type T.
func FindAll[T Node](c Container) []T {
	var out []T
	for _, n := range c.Children() {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Page requests one page of results. Page numbers start at 1.
type Page struct {
	requireKind
	number int
	size   int
}

// NewPage creates a page request.
func NewPage(number, size int) (*Page, error) {
	if number < 1 {
		return nil, structureError("page", "page number must be at least 1, got %d", number)
	}
	if size < 0 {
		return nil, structureError("page", "page size must not be negative, got %d", size)
	}
	return &Page{number: number, size: size}, nil
}

func (*Page) Name() string         { return "page" }
func (p *Page) Arguments() []Value { return []Value{Int(p.number), Int(p.size)} }
func (*Page) IsApplicable() bool   { return true }

// Number returns the page number.
func (p *Page) Number() int { return p.number }

// Size returns the page size.
func (p *Page) Size() int { return p.size }

// Strip requests a window of results by offset and limit.
type Strip struct {
	requireKind
	offset int
	limit  int
}

// NewStrip creates a strip request.
func NewStrip(offset, limit int) (*Strip, error) {
	if offset < 0 {
		return nil, structureError("strip", "offset must not be negative, got %d", offset)
	}
	if limit < 0 {
		return nil, structureError("strip", "limit must not be negative, got %d", limit)
	}
	return &Strip{offset: offset, limit: limit}, nil
}

func (*Strip) Name() string         { return "strip" }
func (s *Strip) Arguments() []Value { return []Value{Int(s.offset), Int(s.limit)} }
func (*Strip) IsApplicable() bool   { return true }

// Offset returns the index of the first returned record.
func (s *Strip) Offset() int { return s.offset }

// Limit returns the maximum number of returned records.
func (s *Strip) Limit() int { return s.limit }

// AttributeHistogram requests value histograms of numeric attributes.
type AttributeHistogram struct {
	requireKind
	buckets    int
	attributes []string
}

// NewAttributeHistogram creates an attribute histogram request.
func NewAttributeHistogram(buckets int, attributes ...string) (*AttributeHistogram, error) {
	if buckets <= 0 {
		return nil, structureError("attributeHistogram", "bucket count must be greater than zero, got %d", buckets)
	}
	set, err := readNameSet("attributeHistogram", "attribute name", Strings(attributes...))
	if err != nil {
		return nil, err
	}
	if set.all() {
		return nil, structureError("attributeHistogram", "at least one attribute name is required")
	}
	return &AttributeHistogram{buckets: buckets, attributes: set}, nil
}

func (*AttributeHistogram) Name() string { return "attributeHistogram" }
func (a *AttributeHistogram) Arguments() []Value {
	return append([]Value{Int(a.buckets)}, Strings(a.attributes...)...)
}
func (*AttributeHistogram) IsApplicable() bool { return true }

// Buckets returns the requested bucket count.
func (a *AttributeHistogram) Buckets() int { return a.buckets }

// Attributes returns the attribute names.
func (a *AttributeHistogram) Attributes() []string { return slices.Clone(a.attributes) }

// PriceHistogram requests a histogram of selling prices.
type PriceHistogram struct {
	requireKind
	buckets int
}

// NewPriceHistogram creates a price histogram request.
func NewPriceHistogram(buckets int) (*PriceHistogram, error) {
	if buckets <= 0 {
		return nil, structureError("priceHistogram", "bucket count must be greater than zero, got %d", buckets)
	}
	return &PriceHistogram{buckets: buckets}, nil
}

func (*PriceHistogram) Name() string         { return "priceHistogram" }
func (p *PriceHistogram) Arguments() []Value { return []Value{Int(p.buckets)} }
func (*PriceHistogram) IsApplicable() bool   { return true }

// Buckets returns the requested bucket count.
func (p *PriceHistogram) Buckets() int { return p.buckets }

// facetFetches sorts facet summary children into their slots.
func facetFetches(name string, children []Node) (*EntityFetch, *EntityGroupFetch, error) {
	var fetch *EntityFetch
	var group *EntityGroupFetch
	for _, c := range children {
		switch x := c.(type) {
		case *EntityFetch:
			if fetch != nil {
				return nil, nil, structureError(name, "at most one entityFetch is allowed")
			}
			fetch = x
		case *EntityGroupFetch:
			if group != nil {
				return nil, nil, structureError(name, "at most one entityGroupFetch is allowed")
			}
			group = x
		default:
			return nil, nil, structureError(name, "%s is not allowed here", Format(c))
		}
	}
	return fetch, group, nil
}

// FacetSummary requests facet statistics for every faceted reference.
type FacetSummary struct {
	requireKind
	depth       FacetStatisticsDepth
	entityFetch *EntityFetch
	groupFetch  *EntityGroupFetch
}

// NewFacetSummary creates a facet summary request. Fetches may be nil.
func NewFacetSummary(depth FacetStatisticsDepth, entityFetch *EntityFetch, groupFetch *EntityGroupFetch) (*FacetSummary, error) {
	if _, ok := ParseFacetStatisticsDepth(depth.String()); !ok {
		return nil, structureError("facetSummary", "invalid depth %d", int(depth))
	}
	return &FacetSummary{depth: depth, entityFetch: entityFetch, groupFetch: groupFetch}, nil
}

func (*FacetSummary) Name() string         { return "facetSummary" }
func (f *FacetSummary) Arguments() []Value { return []Value{f.depth} }
func (f *FacetSummary) Children() []Node {
	return appendNode(appendNode(nil, f.entityFetch), f.groupFetch)
}
func (*FacetSummary) AdditionalChildren() []Node { return nil }
func (*FacetSummary) IsApplicable() bool         { return true }

// Depth returns the statistics depth.
func (f *FacetSummary) Depth() FacetStatisticsDepth { return f.depth }

// EntityFetch returns the fetch for facet entities, or nil.
func (f *FacetSummary) EntityFetch() *EntityFetch { return f.entityFetch }

// GroupFetch returns the fetch for facet group entities, or nil.
func (f *FacetSummary) GroupFetch() *EntityGroupFetch { return f.groupFetch }

// FacetSummaryOfReference requests facet statistics for one reference,
// optionally filtering and ordering the reported facets.
type FacetSummaryOfReference struct {
	requireKind
	reference   string
	depth       FacetStatisticsDepth
	entityFetch *EntityFetch
	groupFetch  *EntityGroupFetch
	filterBy    *FilterBy
	orderBy     *OrderBy
}

// FacetSummaryOfReferenceOptions configures NewFacetSummaryOfReference.
type FacetSummaryOfReferenceOptions struct {
	Depth       FacetStatisticsDepth
	EntityFetch *EntityFetch
	GroupFetch  *EntityGroupFetch
	FilterBy    *FilterBy
	OrderBy     *OrderBy
}

// NewFacetSummaryOfReference creates a per-reference facet summary request.
func NewFacetSummaryOfReference(reference string, opts FacetSummaryOfReferenceOptions) (*FacetSummaryOfReference, error) {
	r := newArgReader("facetSummaryOfReference", []Value{String(reference), opts.Depth})
	ref := r.string("reference name")
	depth := requiredEnum(r, "depth", ParseFacetStatisticsDepth)
	if err := r.done(); err != nil {
		return nil, err
	}
	return &FacetSummaryOfReference{
		reference:   ref,
		depth:       depth,
		entityFetch: opts.EntityFetch,
		groupFetch:  opts.GroupFetch,
		filterBy:    opts.FilterBy,
		orderBy:     opts.OrderBy,
	}, nil
}

func (*FacetSummaryOfReference) Name() string { return "facetSummaryOfReference" }
func (f *FacetSummaryOfReference) Arguments() []Value {
	return []Value{String(f.reference), f.depth}
}
func (f *FacetSummaryOfReference) Children() []Node {
	return appendNode(appendNode(nil, f.entityFetch), f.groupFetch)
}
func (f *FacetSummaryOfReference) AdditionalChildren() []Node {
	return appendNode(appendNode(nil, f.filterBy), f.orderBy)
}
func (*FacetSummaryOfReference) IsApplicable() bool { return true }

// Reference returns the reference name.
func (f *FacetSummaryOfReference) Reference() string { return f.reference }

// Depth returns the statistics depth.
func (f *FacetSummaryOfReference) Depth() FacetStatisticsDepth { return f.depth }

// FilterBy returns the facet filter, or nil.
func (f *FacetSummaryOfReference) FilterBy() *FilterBy { return f.filterBy }

// OrderBy returns the facet ordering, or nil.
func (f *FacetSummaryOfReference) OrderBy() *OrderBy { return f.orderBy }

// EntityFetch returns the fetch for facet entities, or nil.
func (f *FacetSummaryOfReference) EntityFetch() *EntityFetch { return f.entityFetch }

// GroupFetch returns the fetch for facet group entities, or nil.
func (f *FacetSummaryOfReference) GroupFetch() *EntityGroupFetch { return f.groupFetch }

func registerRequires() {
	register("require", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("require", args, additional); err != nil {
			return nil, err
		}
		return NewRequire(children...)
	})
	register("page", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("page", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("page", args)
		number := r.int("page number")
		size := r.int("page size")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPage(int(number), int(size))
	})
	register("strip", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("strip", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("strip", args)
		offset := r.int("offset")
		limit := r.int("limit")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewStrip(int(offset), int(limit))
	})
	register("attributeHistogram", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("attributeHistogram", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("attributeHistogram", args)
		buckets := r.int("bucket count")
		names := r.strings("attribute name")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewAttributeHistogram(int(buckets), names...)
	})
	register("priceHistogram", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("priceHistogram", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("priceHistogram", args)
		buckets := r.int("bucket count")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPriceHistogram(int(buckets))
	})
	register("facetSummary", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if len(additional) > 0 {
			return nil, structureError("facetSummary", "unexpected additional child %s", Format(additional[0]))
		}
		r := newArgReader("facetSummary", args)
		depth := optionalEnum(r, ParseFacetStatisticsDepth, DepthCounts)
		if err := r.done(); err != nil {
			return nil, err
		}
		fetch, group, err := facetFetches("facetSummary", children)
		if err != nil {
			return nil, err
		}
		return NewFacetSummary(depth, fetch, group)
	})
	register("facetSummaryOfReference", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		r := newArgReader("facetSummaryOfReference", args)
		ref := r.string("reference name")
		opts := FacetSummaryOfReferenceOptions{
			Depth: optionalEnum(r, ParseFacetStatisticsDepth, DepthCounts),
		}
		if err := r.done(); err != nil {
			return nil, err
		}
		var err error
		if opts.EntityFetch, opts.GroupFetch, err = facetFetches("facetSummaryOfReference", children); err != nil {
			return nil, err
		}
		for _, a := range additional {
			switch x := a.(type) {
			case *FilterBy:
				if opts.FilterBy != nil {
					return nil, structureError("facetSummaryOfReference", "at most one filterBy is allowed")
				}
				opts.FilterBy = x
			case *OrderBy:
				if opts.OrderBy != nil {
					return nil, structureError("facetSummaryOfReference", "at most one orderBy is allowed")
				}
				opts.OrderBy = x
			default:
				return nil, structureError("facetSummaryOfReference", "%s is not allowed as additional child", Format(a))
			}
		}
		return NewFacetSummaryOfReference(ref, opts)
	})
}
