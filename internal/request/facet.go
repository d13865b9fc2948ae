package request

import (
	"fmt"
	"slices"

	"github.com/roach88/requery/internal/query"
)

// GroupMatcher decides whether a facet group belongs to the groups selected
// by a facet rule's filter. The execution engine supplies one backed by its
// indexes.
type GroupMatcher interface {
	MatchGroup(reference string, filter *query.FilterBy, groupID int64) (bool, error)
}

// GroupMatcherFunc adapts a function to GroupMatcher.
type GroupMatcherFunc func(reference string, filter *query.FilterBy, groupID int64) (bool, error)

// MatchGroup calls f.
func (f GroupMatcherFunc) MatchGroup(reference string, filter *query.FilterBy, groupID int64) (bool, error) {
	return f(reference, filter, groupID)
}

type facetRules struct {
	byReference map[string][]query.FacetGroupsRule
	defaults    *query.FacetCalculationRules
}

func newFacetRules(req *query.Require) *facetRules {
	f := &facetRules{
		byReference: make(map[string][]query.FacetGroupsRule),
		defaults:    query.DefaultFacetCalculationRules(),
	}
	if req == nil {
		return f
	}
	if rules, ok := query.Find[*query.FacetCalculationRules](req); ok {
		f.defaults = rules
	}
	for _, rule := range query.FindAll[query.FacetGroupsRule](req) {
		f.byReference[rule.Reference()] = append(f.byReference[rule.Reference()], rule)
	}
	return f
}

// FacetCalculationRules returns the rules in effect for facets without an
// explicit facetGroups rule.
func (r *Request) FacetCalculationRules() *query.FacetCalculationRules { return r.facets.defaults }

// FacetGroupsRules returns the explicit rules for reference in require order.
func (r *Request) FacetGroupsRules(reference string) []query.FacetGroupsRule {
	return append([]query.FacetGroupsRule(nil), r.facets.byReference[reference]...)
}

// FacetRelation resolves how facets of group groupID in reference relate at
// level. The first explicit rule for the reference and level whose filter
// selects the group wins; a rule without a filter selects every group.
// Without a matching rule the calculation rules decide.
//
// matcher may be nil when no rule carries a filter.
func (r *Request) FacetRelation(reference string, groupID int64, level query.FacetGroupRelationLevel, matcher GroupMatcher) (query.FacetRelationType, error) {
	for _, rule := range r.facets.byReference[reference] {
		if rule.Level() != level {
			continue
		}
		if rule.Filter() == nil {
			return rule.Relation(), nil
		}
		if matcher == nil {
			return 0, fmt.Errorf("facet relation %s: %s has a group filter but no group matcher was given", reference, rule.Name())
		}
		ok, err := matcher.MatchGroup(reference, rule.Filter(), groupID)
		if err != nil {
			return 0, fmt.Errorf("facet relation %s: %w", reference, err)
		}
		if ok {
			return rule.Relation(), nil
		}
	}
	return r.facets.defaults.ForLevel(level), nil
}

// PrimaryKeyMatcher matches groups by evaluating the group filter against
// the group primary key. It understands entityPrimaryKeyInSet combined with
// and, or and not; any other constraint is an error.
var PrimaryKeyMatcher GroupMatcher = GroupMatcherFunc(func(_ string, filter *query.FilterBy, groupID int64) (bool, error) {
	return matchAll(filter.Children(), groupID)
})

func matchAll(nodes []query.Node, groupID int64) (bool, error) {
	for _, n := range nodes {
		ok, err := matchPrimaryKey(n, groupID)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchPrimaryKey(n query.Node, groupID int64) (bool, error) {
	switch x := n.(type) {
	case *query.EntityPrimaryKeyInSet:
		return slices.Contains(x.Keys(), groupID), nil
	case *query.And:
		return matchAll(x.Children(), groupID)
	case *query.Or:
		for _, c := range x.Children() {
			ok, err := matchPrimaryKey(c, groupID)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case *query.Not:
		ok, err := matchPrimaryKey(x.Child(), groupID)
		return !ok && err == nil, err
	default:
		return false, fmt.Errorf("group filter constraint %s is not supported", query.Format(n))
	}
}
