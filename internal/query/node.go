package query

import "reflect"

// Category is the constraint category of a directive.
type Category int

const (
	CategoryFilter Category = iota
	CategoryOrder
	CategoryRequire
)

func (c Category) String() string {
	switch c {
	case CategoryFilter:
		return "filter"
	case CategoryOrder:
		return "order"
	case CategoryRequire:
		return "require"
	default:
		return "unknown"
	}
}

// Node is a sealed interface implemented by every directive in this package.
type Node interface {
	// Name is the stable classifier, e.g. "attributeContent".
	Name() string

	// Category is the constraint category the directive belongs to.
	Category() Category

	// Arguments returns the scalar arguments in canonical order. Passing them
	// back to Build reconstructs an equal node.
	Arguments() []Value

	// IsApplicable reports whether the directive is non-degenerate. Empty
	// containers are not applicable and are removed by Prune.
	IsApplicable() bool

	node() // Marker method - seals interface to this package
}

// Container is a Node that nests other directives.
type Container interface {
	Node

	// Children returns nested directives of the same category.
	Children() []Node

	// AdditionalChildren returns nested directives of other categories.
	AdditionalChildren() []Node
}

// Embedded markers fix the category of a concrete directive.

type filterKind struct{}

func (filterKind) Category() Category { return CategoryFilter }
func (filterKind) node()              {}

type orderKind struct{}

func (orderKind) Category() Category { return CategoryOrder }
func (orderKind) node()              {}

type requireKind struct{}

func (requireKind) Category() Category { return CategoryRequire }
func (requireKind) node()              {}

// ChildrenOf returns the primary children of n, or nil for leaves.
func ChildrenOf(n Node) []Node {
	if c, ok := n.(Container); ok {
		return c.Children()
	}
	return nil
}

// AdditionalChildrenOf returns the additional children of n, or nil for leaves.
func AdditionalChildrenOf(n Node) []Node {
	if c, ok := n.(Container); ok {
		return c.AdditionalChildren()
	}
	return nil
}

// Walk visits n and its descendants depth first. Primary children are visited
// before additional children. Returning false from fn skips the subtree.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range ChildrenOf(n) {
		Walk(c, fn)
	}
	for _, c := range AdditionalChildrenOf(n) {
		Walk(c, fn)
	}
}

// Equal reports whether a and b are structurally identical: same classifier,
// equal arguments and equal children on both axes.
func Equal(a, b Node) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if a.Name() != b.Name() {
		return false
	}
	if !valuesEqual(a.Arguments(), b.Arguments()) {
		return false
	}
	return nodesEqual(ChildrenOf(a), ChildrenOf(b)) &&
		nodesEqual(AdditionalChildrenOf(a), AdditionalChildrenOf(b))
}

func nodesEqual(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// isNil treats typed nil pointers stored in a Node as absent.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// appendNode appends n when it is present.
func appendNode(out []Node, n Node) []Node {
	if isNil(n) {
		return out
	}
	return append(out, n)
}
