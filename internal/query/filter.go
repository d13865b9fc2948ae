package query

import (
	"slices"
	"time"

	"github.com/expr-lang/expr"
	"golang.org/x/text/language"
)

// FilterBy is the root filter container. It is also attached as an
// additional child to require directives that filter their own output.
type FilterBy struct {
	filterKind
	children []Node
}

// NewFilterBy creates a filterBy with the given filter children.
func NewFilterBy(children ...Node) (*FilterBy, error) {
	if err := requireCategory("filterBy", CategoryFilter, children); err != nil {
		return nil, err
	}
	return &FilterBy{children: slices.Clone(children)}, nil
}

func (*FilterBy) Name() string               { return "filterBy" }
func (*FilterBy) Arguments() []Value         { return nil }
func (f *FilterBy) Children() []Node         { return slices.Clone(f.children) }
func (*FilterBy) AdditionalChildren() []Node { return nil }
func (f *FilterBy) IsApplicable() bool       { return len(f.children) > 0 }

// And requires all children to match.
type And struct {
	filterKind
	children []Node
}

// NewAnd creates a conjunction.
func NewAnd(children ...Node) (*And, error) {
	if err := requireCategory("and", CategoryFilter, children); err != nil {
		return nil, err
	}
	return &And{children: slices.Clone(children)}, nil
}

func (*And) Name() string               { return "and" }
func (*And) Arguments() []Value         { return nil }
func (a *And) Children() []Node         { return slices.Clone(a.children) }
func (*And) AdditionalChildren() []Node { return nil }
func (a *And) IsApplicable() bool       { return len(a.children) > 0 }

// Or requires at least one child to match.
type Or struct {
	filterKind
	children []Node
}

// NewOr creates a disjunction.
func NewOr(children ...Node) (*Or, error) {
	if err := requireCategory("or", CategoryFilter, children); err != nil {
		return nil, err
	}
	return &Or{children: slices.Clone(children)}, nil
}

func (*Or) Name() string               { return "or" }
func (*Or) Arguments() []Value         { return nil }
func (o *Or) Children() []Node         { return slices.Clone(o.children) }
func (*Or) AdditionalChildren() []Node { return nil }
func (o *Or) IsApplicable() bool       { return len(o.children) > 0 }

// Not negates exactly one child.
type Not struct {
	filterKind
	child Node
}

// NewNot creates a negation.
func NewNot(child Node) (*Not, error) {
	if isNil(child) {
		return nil, structureError("not", "exactly one child is required")
	}
	if err := requireCategory("not", CategoryFilter, []Node{child}); err != nil {
		return nil, err
	}
	return &Not{child: child}, nil
}

func (*Not) Name() string               { return "not" }
func (*Not) Arguments() []Value         { return nil }
func (n *Not) Children() []Node         { return []Node{n.child} }
func (*Not) AdditionalChildren() []Node { return nil }
func (*Not) IsApplicable() bool         { return true }

// Child returns the negated filter.
func (n *Not) Child() Node { return n.child }

// AttributeEquals matches entities whose attribute equals a value.
type AttributeEquals struct {
	filterKind
	attribute string
	value     Value
}

// NewAttributeEquals creates an attribute equality filter.
func NewAttributeEquals(attribute string, value Value) (*AttributeEquals, error) {
	r := newArgReader("attributeEquals", []Value{String(attribute), value})
	name := r.string("attribute name")
	v := r.any("value")
	if err := r.done(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, structureError("attributeEquals", "value is required")
	}
	return &AttributeEquals{attribute: name, value: v}, nil
}

func (*AttributeEquals) Name() string         { return "attributeEquals" }
func (a *AttributeEquals) Arguments() []Value { return []Value{String(a.attribute), a.value} }
func (*AttributeEquals) IsApplicable() bool   { return true }

// Attribute returns the compared attribute name.
func (a *AttributeEquals) Attribute() string { return a.attribute }

// AttributeInSet matches entities whose attribute is one of the values.
type AttributeInSet struct {
	filterKind
	attribute string
	values    []Value
}

// NewAttributeInSet creates an attribute membership filter.
func NewAttributeInSet(attribute string, values ...Value) (*AttributeInSet, error) {
	args := append([]Value{String(attribute)}, values...)
	r := newArgReader("attributeInSet", args)
	name := r.string("attribute name")
	rest := r.rest()
	if err := r.done(); err != nil {
		return nil, err
	}
	return &AttributeInSet{attribute: name, values: rest}, nil
}

func (*AttributeInSet) Name() string { return "attributeInSet" }
func (a *AttributeInSet) Arguments() []Value {
	return append([]Value{String(a.attribute)}, a.values...)
}
func (*AttributeInSet) IsApplicable() bool { return true }

// Attribute returns the compared attribute name.
func (a *AttributeInSet) Attribute() string { return a.attribute }

// EntityPrimaryKeyInSet matches entities by primary key.
type EntityPrimaryKeyInSet struct {
	filterKind
	keys []int64
}

// NewEntityPrimaryKeyInSet creates a primary key filter.
func NewEntityPrimaryKeyInSet(keys ...int64) (*EntityPrimaryKeyInSet, error) {
	return &EntityPrimaryKeyInSet{keys: slices.Clone(keys)}, nil
}

func (*EntityPrimaryKeyInSet) Name() string { return "entityPrimaryKeyInSet" }
func (e *EntityPrimaryKeyInSet) Arguments() []Value {
	out := make([]Value, len(e.keys))
	for i, k := range e.keys {
		out[i] = Int(k)
	}
	return out
}
func (*EntityPrimaryKeyInSet) IsApplicable() bool { return true }

// Keys returns the primary keys.
func (e *EntityPrimaryKeyInSet) Keys() []int64 { return slices.Clone(e.keys) }

// EntityLocaleEquals selects the locale entities are queried in.
type EntityLocaleEquals struct {
	filterKind
	locale language.Tag
}

// NewEntityLocaleEquals creates a locale filter.
func NewEntityLocaleEquals(locale language.Tag) (*EntityLocaleEquals, error) {
	if locale == language.Und {
		return nil, structureError("entityLocaleEquals", "locale must not be undefined")
	}
	return &EntityLocaleEquals{locale: locale}, nil
}

func (*EntityLocaleEquals) Name() string         { return "entityLocaleEquals" }
func (e *EntityLocaleEquals) Arguments() []Value { return []Value{Locale{Tag: e.locale}} }
func (*EntityLocaleEquals) IsApplicable() bool   { return true }

// Locale returns the requested locale.
func (e *EntityLocaleEquals) Locale() language.Tag { return e.locale }

// PriceInPriceLists restricts prices to the listed price lists, in priority order.
type PriceInPriceLists struct {
	filterKind
	priceLists []string
}

// NewPriceInPriceLists creates a price list filter.
func NewPriceInPriceLists(priceLists ...string) (*PriceInPriceLists, error) {
	r := newArgReader("priceInPriceLists", Strings(priceLists...))
	lists := r.strings("price list")
	if err := r.done(); err != nil {
		return nil, err
	}
	return &PriceInPriceLists{priceLists: lists}, nil
}

func (*PriceInPriceLists) Name() string         { return "priceInPriceLists" }
func (p *PriceInPriceLists) Arguments() []Value { return Strings(p.priceLists...) }
func (p *PriceInPriceLists) IsApplicable() bool { return len(p.priceLists) > 0 }

// PriceLists returns the price lists in priority order.
func (p *PriceInPriceLists) PriceLists() []string { return slices.Clone(p.priceLists) }

// PriceInCurrency restricts prices to one currency.
type PriceInCurrency struct {
	filterKind
	currency string
}

// NewPriceInCurrency creates a currency filter.
func NewPriceInCurrency(currency string) (*PriceInCurrency, error) {
	r := newArgReader("priceInCurrency", []Value{String(currency)})
	c := r.string("currency")
	if err := r.done(); err != nil {
		return nil, err
	}
	return &PriceInCurrency{currency: c}, nil
}

func (*PriceInCurrency) Name() string         { return "priceInCurrency" }
func (p *PriceInCurrency) Arguments() []Value { return []Value{String(p.currency)} }
func (*PriceInCurrency) IsApplicable() bool   { return true }

// Currency returns the currency code.
func (p *PriceInCurrency) Currency() string { return p.currency }

// PriceValidIn restricts prices to those valid at a moment.
type PriceValidIn struct {
	filterKind
	moment time.Time
}

// NewPriceValidIn creates a price validity filter.
func NewPriceValidIn(moment time.Time) (*PriceValidIn, error) {
	if moment.IsZero() {
		return nil, structureError("priceValidIn", "moment is required")
	}
	return &PriceValidIn{moment: moment}, nil
}

func (*PriceValidIn) Name() string         { return "priceValidIn" }
func (p *PriceValidIn) Arguments() []Value { return []Value{Time{Time: p.moment}} }
func (*PriceValidIn) IsApplicable() bool   { return true }

// Moment returns the validity moment.
func (p *PriceValidIn) Moment() time.Time { return p.moment }

// ReferenceHaving matches entities having a reference that satisfies the
// nested filter. The nested filter targets reference attributes.
type ReferenceHaving struct {
	filterKind
	reference string
	children  []Node
}

// NewReferenceHaving creates a reference filter.
func NewReferenceHaving(reference string, children ...Node) (*ReferenceHaving, error) {
	r := newArgReader("referenceHaving", []Value{String(reference)})
	ref := r.string("reference name")
	if err := r.done(); err != nil {
		return nil, err
	}
	if err := requireCategory("referenceHaving", CategoryFilter, children); err != nil {
		return nil, err
	}
	return &ReferenceHaving{reference: ref, children: slices.Clone(children)}, nil
}

func (*ReferenceHaving) Name() string               { return "referenceHaving" }
func (r *ReferenceHaving) Arguments() []Value       { return []Value{String(r.reference)} }
func (r *ReferenceHaving) Children() []Node         { return slices.Clone(r.children) }
func (*ReferenceHaving) AdditionalChildren() []Node { return nil }
func (*ReferenceHaving) IsApplicable() bool         { return true }

// Reference returns the reference name.
func (r *ReferenceHaving) Reference() string { return r.reference }

// FacetHaving matches entities referencing the selected facets.
type FacetHaving struct {
	filterKind
	reference string
	children  []Node
}

// NewFacetHaving creates a facet filter.
func NewFacetHaving(reference string, children ...Node) (*FacetHaving, error) {
	r := newArgReader("facetHaving", []Value{String(reference)})
	ref := r.string("reference name")
	if err := r.done(); err != nil {
		return nil, err
	}
	if err := requireCategory("facetHaving", CategoryFilter, children); err != nil {
		return nil, err
	}
	return &FacetHaving{reference: ref, children: slices.Clone(children)}, nil
}

func (*FacetHaving) Name() string               { return "facetHaving" }
func (f *FacetHaving) Arguments() []Value       { return []Value{String(f.reference)} }
func (f *FacetHaving) Children() []Node         { return slices.Clone(f.children) }
func (*FacetHaving) AdditionalChildren() []Node { return nil }
func (f *FacetHaving) IsApplicable() bool       { return len(f.children) > 0 }

// Reference returns the reference name.
func (f *FacetHaving) Reference() string { return f.reference }

// Expression is a boolean expression over entity attributes, e.g.
// `price > 100 && brand == "acme"`. Identifiers name attributes.
type Expression struct {
	filterKind
	source string
}

// NewExpression compiles source and rejects it unless it is a valid boolean
// expression.
func NewExpression(source string) (*Expression, error) {
	r := newArgReader("expression", []Value{String(source)})
	src := r.string("expression")
	if err := r.done(); err != nil {
		return nil, err
	}
	if _, err := expr.Compile(src, expr.AsBool()); err != nil {
		return nil, structureError("expression", "invalid expression %q: %v", src, err)
	}
	return &Expression{source: src}, nil
}

func (*Expression) Name() string         { return "expression" }
func (e *Expression) Arguments() []Value { return []Value{String(e.source)} }
func (*Expression) IsApplicable() bool   { return true }

// Source returns the expression text.
func (e *Expression) Source() string { return e.source }

func registerFilters() {
	register("filterBy", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("filterBy", args, additional); err != nil {
			return nil, err
		}
		return NewFilterBy(children...)
	})
	register("and", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("and", args, additional); err != nil {
			return nil, err
		}
		return NewAnd(children...)
	})
	register("or", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("or", args, additional); err != nil {
			return nil, err
		}
		return NewOr(children...)
	})
	register("not", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("not", args, additional); err != nil {
			return nil, err
		}
		if len(children) != 1 {
			return nil, structureError("not", "exactly one child is required, got %d", len(children))
		}
		return NewNot(children[0])
	})
	register("attributeEquals", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("attributeEquals", children, additional); err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, structureError("attributeEquals", "expected 2 arguments, got %d", len(args))
		}
		name, ok := args[0].(String)
		if !ok {
			return nil, structureError("attributeEquals", "attribute name must be a string")
		}
		return NewAttributeEquals(string(name), args[1])
	})
	register("attributeInSet", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("attributeInSet", children, additional); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, structureError("attributeInSet", "missing attribute name argument")
		}
		name, ok := args[0].(String)
		if !ok {
			return nil, structureError("attributeInSet", "attribute name must be a string")
		}
		return NewAttributeInSet(string(name), args[1:]...)
	})
	register("entityPrimaryKeyInSet", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("entityPrimaryKeyInSet", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("entityPrimaryKeyInSet", args)
		keys := r.ints("primary key")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewEntityPrimaryKeyInSet(keys...)
	})
	register("entityLocaleEquals", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("entityLocaleEquals", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("entityLocaleEquals", args)
		tag := r.locale("locale")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewEntityLocaleEquals(tag)
	})
	register("priceInPriceLists", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("priceInPriceLists", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("priceInPriceLists", args)
		lists := r.strings("price list")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPriceInPriceLists(lists...)
	})
	register("priceInCurrency", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("priceInCurrency", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("priceInCurrency", args)
		c := r.string("currency")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPriceInCurrency(c)
	})
	register("priceValidIn", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("priceValidIn", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("priceValidIn", args)
		t := r.time("moment")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPriceValidIn(t)
	})
	register("referenceHaving", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("referenceHaving", nil, additional); err != nil {
			return nil, err
		}
		r := newArgReader("referenceHaving", args)
		ref := r.string("reference name")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewReferenceHaving(ref, children...)
	})
	register("facetHaving", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("facetHaving", nil, additional); err != nil {
			return nil, err
		}
		r := newArgReader("facetHaving", args)
		ref := r.string("reference name")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewFacetHaving(ref, children...)
	})
	register("expression", CategoryFilter, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("expression", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("expression", args)
		src := r.string("expression")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewExpression(src)
	})
}

// containerShape rejects arguments and additional children on containers
// that accept neither.
func containerShape(name string, args []Value, additional []Node) error {
	if len(args) > 0 {
		return structureError(name, "unexpected argument %s", FormatValue(args[0]))
	}
	if len(additional) > 0 {
		return structureError(name, "unexpected additional child %s", Format(additional[0]))
	}
	return nil
}
