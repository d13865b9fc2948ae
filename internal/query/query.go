package query

import "strings"

// Query is a complete query: the target collection plus the three optional
// directive trees. It is an aggregate, not a Node.
type Query struct {
	Collection string
	FilterBy   *FilterBy
	OrderBy    *OrderBy
	Require    *Require
}

// NewQuery creates a query. Any of the trees may be nil.
func NewQuery(collection string, filterBy *FilterBy, orderBy *OrderBy, require *Require) (*Query, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, structureError("query", "collection must not be blank")
	}
	return &Query{Collection: collection, FilterBy: filterBy, OrderBy: orderBy, Require: require}, nil
}

// String renders the query in query-language notation.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("query(collection(")
	b.WriteString(quote(q.Collection))
	b.WriteByte(')')
	for _, n := range q.Roots() {
		b.WriteByte(',')
		writeNode(&b, n)
	}
	b.WriteByte(')')
	return b.String()
}

// Roots returns the present directive trees in filter, order, require order.
func (q *Query) Roots() []Node {
	out := appendNode(nil, q.FilterBy)
	out = appendNode(out, q.OrderBy)
	return appendNode(out, q.Require)
}

// Prune returns a copy of q with inapplicable directives removed. A tree that
// becomes empty is dropped.
func (q *Query) Prune() (*Query, error) {
	out := &Query{Collection: q.Collection}
	if q.FilterBy != nil {
		n, err := Prune(q.FilterBy)
		if err != nil {
			return nil, err
		}
		out.FilterBy, _ = n.(*FilterBy)
	}
	if q.OrderBy != nil {
		n, err := Prune(q.OrderBy)
		if err != nil {
			return nil, err
		}
		out.OrderBy, _ = n.(*OrderBy)
	}
	if q.Require != nil {
		n, err := Prune(q.Require)
		if err != nil {
			return nil, err
		}
		out.Require, _ = n.(*Require)
	}
	return out, nil
}

// Prune removes inapplicable directives from the tree rooted at n, bottom up.
// It returns nil when n itself is inapplicable. A container that is no longer
// valid once its inapplicable children are gone, such as not() or stopAt(),
// is dropped as well.
func Prune(n Node) (Node, error) {
	if isNil(n) {
		return nil, nil
	}
	c, ok := n.(Container)
	if !ok {
		if !n.IsApplicable() {
			return nil, nil
		}
		return n, nil
	}

	children, changedChildren, err := pruneAll(c.Children())
	if err != nil {
		return nil, err
	}
	additional, changedAdditional, err := pruneAll(c.AdditionalChildren())
	if err != nil {
		return nil, err
	}

	if changedChildren || changedAdditional {
		rebuilt, err := WithChildren(n, children, additional)
		if err != nil {
			if IsStructureError(err) {
				return nil, nil
			}
			return nil, err
		}
		n = rebuilt
	}
	if !n.IsApplicable() {
		return nil, nil
	}
	return n, nil
}

func pruneAll(nodes []Node) ([]Node, bool, error) {
	changed := false
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		p, err := Prune(n)
		if err != nil {
			return nil, false, err
		}
		if p != n {
			changed = true
		}
		out = appendNode(out, p)
	}
	return out, changed, nil
}
