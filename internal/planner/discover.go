package planner

import (
	"fmt"
	"slices"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/roach88/requery/internal/query"
)

// Discover returns the entity content that evaluating the filterBy and
// orderBy trees of q needs, in tree order:
//
//   - attribute filters and attribute ordering need attributeContent(name)
//   - entityLocaleEquals needs dataInLocales(locale)
//   - price filters and price ordering need priceContent(RESPECTING_FILTER)
//   - referenceHaving and facetHaving need referenceContent(name)
//   - expression needs attributeContent for every identifier it reads
//
// Constraints nested under referenceHaving and facetHaving address reference
// attributes, not entity attributes, so those subtrees are not descended.
// The result may contain combinable duplicates; the collector folds them.
func Discover(q *query.Query) ([]query.EntityContent, error) {
	d := &discovery{}
	if q.FilterBy != nil {
		query.Walk(q.FilterBy, d.visit)
	}
	if q.OrderBy != nil {
		query.Walk(q.OrderBy, d.visit)
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.found, nil
}

type discovery struct {
	found []query.EntityContent
	err   error
}

func (d *discovery) visit(n query.Node) bool {
	if d.err != nil {
		return false
	}
	switch x := n.(type) {
	case *query.AttributeEquals:
		d.attributes(x.Attribute())
	case *query.AttributeInSet:
		d.attributes(x.Attribute())
	case *query.AttributeNatural:
		d.attributes(x.Attribute())
	case *query.EntityLocaleEquals:
		d.add(query.NewDataInLocales(x.Locale()))
	case *query.PriceInPriceLists, *query.PriceInCurrency, *query.PriceValidIn, *query.PriceNatural:
		d.add(query.NewPriceContent(query.PriceModeRespectingFilter))
	case *query.ReferenceHaving:
		d.reference(x.Reference())
		return false
	case *query.FacetHaving:
		d.reference(x.Reference())
		return false
	case *query.Expression:
		names, err := ExpressionAttributes(x.Source())
		if err != nil {
			d.err = err
			return false
		}
		if len(names) > 0 {
			d.attributes(names...)
		}
	}
	return true
}

func (d *discovery) attributes(names ...string) {
	d.add(query.NewAttributeContent(names...))
}

func (d *discovery) reference(name string) {
	d.add(query.NewReferenceContent(query.ReferenceContentOptions{Names: []string{name}}))
}

func (d *discovery) add(c query.EntityContent, err error) {
	if err != nil {
		d.err = err
		return
	}
	d.found = append(d.found, c)
}

// ExpressionAttributes parses source and returns the attribute names it
// reads, in first-seen order. Function names and let-bound variables are not
// attributes.
func ExpressionAttributes(source string) ([]string, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", source, err)
	}
	v := &identifierCollector{}
	ast.Walk(&tree.Node, v)

	out := make([]string, 0, len(v.identifiers))
	for _, id := range v.identifiers {
		if slices.Contains(v.callees, id) || slices.Contains(v.variables, id) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

type identifierCollector struct {
	identifiers []string
	callees     []string
	variables   []string
}

func (c *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !slices.Contains(c.identifiers, n.Value) {
			c.identifiers = append(c.identifiers, n.Value)
		}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees = append(c.callees, id.Value)
		}
	case *ast.VariableDeclaratorNode:
		c.variables = append(c.variables, n.Name)
	}
}
