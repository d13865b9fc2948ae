package query

import "slices"

// OrderBy is the root ordering container. Children apply in sequence; later
// children break ties left by earlier ones.
type OrderBy struct {
	orderKind
	children []Node
}

// NewOrderBy creates an orderBy with the given ordering children.
func NewOrderBy(children ...Node) (*OrderBy, error) {
	if err := requireCategory("orderBy", CategoryOrder, children); err != nil {
		return nil, err
	}
	return &OrderBy{children: slices.Clone(children)}, nil
}

func (*OrderBy) Name() string               { return "orderBy" }
func (*OrderBy) Arguments() []Value         { return nil }
func (o *OrderBy) Children() []Node         { return slices.Clone(o.children) }
func (*OrderBy) AdditionalChildren() []Node { return nil }
func (o *OrderBy) IsApplicable() bool       { return len(o.children) > 0 }

// AttributeNatural orders by the natural order of an attribute.
type AttributeNatural struct {
	orderKind
	attribute string
	direction OrderDirection
}

// NewAttributeNatural creates an attribute ordering.
func NewAttributeNatural(attribute string, direction OrderDirection) (*AttributeNatural, error) {
	r := newArgReader("attributeNatural", []Value{String(attribute), direction})
	name := r.string("attribute name")
	dir := requiredEnum(r, "direction", ParseOrderDirection)
	if err := r.done(); err != nil {
		return nil, err
	}
	return &AttributeNatural{attribute: name, direction: dir}, nil
}

func (*AttributeNatural) Name() string { return "attributeNatural" }
func (a *AttributeNatural) Arguments() []Value {
	return []Value{String(a.attribute), a.direction}
}
func (*AttributeNatural) IsApplicable() bool { return true }

// Attribute returns the ordered attribute name.
func (a *AttributeNatural) Attribute() string { return a.attribute }

// Direction returns the sort direction.
func (a *AttributeNatural) Direction() OrderDirection { return a.direction }

// PriceNatural orders by the selling price.
type PriceNatural struct {
	orderKind
	direction OrderDirection
}

// NewPriceNatural creates a price ordering.
func NewPriceNatural(direction OrderDirection) (*PriceNatural, error) {
	if _, ok := ParseOrderDirection(direction.String()); !ok {
		return nil, structureError("priceNatural", "invalid direction %d", int(direction))
	}
	return &PriceNatural{direction: direction}, nil
}

func (*PriceNatural) Name() string         { return "priceNatural" }
func (p *PriceNatural) Arguments() []Value { return []Value{p.direction} }
func (*PriceNatural) IsApplicable() bool   { return true }

// Direction returns the sort direction.
func (p *PriceNatural) Direction() OrderDirection { return p.direction }

// Random orders entities randomly.
type Random struct {
	orderKind
}

// NewRandom creates a random ordering.
func NewRandom() *Random { return &Random{} }

func (*Random) Name() string       { return "random" }
func (*Random) Arguments() []Value { return nil }
func (*Random) IsApplicable() bool { return true }

func registerOrders() {
	register("orderBy", CategoryOrder, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("orderBy", args, additional); err != nil {
			return nil, err
		}
		return NewOrderBy(children...)
	})
	register("attributeNatural", CategoryOrder, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("attributeNatural", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("attributeNatural", args)
		name := r.string("attribute name")
		dir := optionalEnum(r, ParseOrderDirection, Asc)
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewAttributeNatural(name, dir)
	})
	register("priceNatural", CategoryOrder, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("priceNatural", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("priceNatural", args)
		dir := optionalEnum(r, ParseOrderDirection, Asc)
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewPriceNatural(dir)
	})
	register("random", CategoryOrder, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("random", children, additional); err != nil {
			return nil, err
		}
		if len(args) > 0 {
			return nil, structureError("random", "unexpected argument %s", FormatValue(args[0]))
		}
		return NewRandom(), nil
	})
}
