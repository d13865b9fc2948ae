package request

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/requery/internal/query"
)

func groupFilter(t *testing.T, keys ...int64) *query.FilterBy {
	return must(query.NewFilterBy(must(query.NewEntityPrimaryKeyInSet(keys...))))
}

func TestFacetRelationDefaults(t *testing.T) {
	r := newRequest(t, nil, nil)

	rel, err := r.FacetRelation("parameter", 1, query.WithDifferentFacetsInGroup, nil)
	require.NoError(t, err)
	assert.Equal(t, query.FacetDisjunction, rel)

	rel, err = r.FacetRelation("parameter", 1, query.WithDifferentGroups, nil)
	require.NoError(t, err)
	assert.Equal(t, query.FacetConjunction, rel)

	assert.Same(t, query.DefaultFacetCalculationRules(), r.FacetCalculationRules())
}

func TestFacetRelationCalculationRules(t *testing.T) {
	rules := must(query.NewFacetCalculationRules(query.FacetConjunction, query.FacetExclusivity))
	r := newRequest(t, nil, must(query.NewRequire(rules)))

	rel, err := r.FacetRelation("parameter", 1, query.WithDifferentFacetsInGroup, nil)
	require.NoError(t, err)
	assert.Equal(t, query.FacetConjunction, rel)

	rel, err = r.FacetRelation("parameter", 1, query.WithDifferentGroups, nil)
	require.NoError(t, err)
	assert.Equal(t, query.FacetExclusivity, rel)
}

func TestFacetRelationExplicitRules(t *testing.T) {
	negation := must(query.NewFacetGroupsNegation("parameter", query.WithDifferentFacetsInGroup, groupFilter(t, 5)))
	conjunction := must(query.NewFacetGroupsConjunction("parameter", query.WithDifferentFacetsInGroup, nil))
	disjunction := must(query.NewFacetGroupsDisjunction("parameter", query.WithDifferentGroups, groupFilter(t, 1, 2)))
	brand := must(query.NewFacetGroupsExclusivity("brand", query.WithDifferentGroups, nil))
	r := newRequest(t, nil, must(query.NewRequire(negation, conjunction, disjunction, brand)))

	tests := []struct {
		name      string
		reference string
		group     int64
		level     query.FacetGroupRelationLevel
		expected  query.FacetRelationType
	}{
		{name: "filtered rule selects group", reference: "parameter", group: 5, level: query.WithDifferentFacetsInGroup, expected: query.FacetNegation},
		{name: "unfiltered rule covers the rest", reference: "parameter", group: 6, level: query.WithDifferentFacetsInGroup, expected: query.FacetConjunction},
		{name: "groups level rule", reference: "parameter", group: 2, level: query.WithDifferentGroups, expected: query.FacetDisjunction},
		{name: "groups level default", reference: "parameter", group: 3, level: query.WithDifferentGroups, expected: query.FacetConjunction},
		{name: "other reference", reference: "brand", group: 3, level: query.WithDifferentGroups, expected: query.FacetExclusivity},
		{name: "reference without rules", reference: "tag", group: 3, level: query.WithDifferentFacetsInGroup, expected: query.FacetDisjunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := r.FacetRelation(tt.reference, tt.group, tt.level, PrimaryKeyMatcher)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rel)
		})
	}

	assert.Len(t, r.FacetGroupsRules("parameter"), 3)
	assert.Empty(t, r.FacetGroupsRules("tag"))
}

func TestFacetRelationMatcherErrors(t *testing.T) {
	rule := must(query.NewFacetGroupsNegation("parameter", query.WithDifferentGroups, groupFilter(t, 5)))
	r := newRequest(t, nil, must(query.NewRequire(rule)))

	_, err := r.FacetRelation("parameter", 5, query.WithDifferentGroups, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no group matcher")

	boom := errors.New("index unavailable")
	failing := GroupMatcherFunc(func(string, *query.FilterBy, int64) (bool, error) { return false, boom })
	_, err = r.FacetRelation("parameter", 5, query.WithDifferentGroups, failing)
	require.ErrorIs(t, err, boom)
}

func TestPrimaryKeyMatcher(t *testing.T) {
	pk := func(keys ...int64) query.Node { return must(query.NewEntityPrimaryKeyInSet(keys...)) }

	tests := []struct {
		name     string
		filter   func(t *testing.T) *query.FilterBy
		group    int64
		expected bool
		wantErr  bool
	}{
		{
			name:     "in set",
			filter:   func(t *testing.T) *query.FilterBy { return groupFilter(t, 1, 2) },
			group:    2,
			expected: true,
		},
		{
			name:   "not in set",
			filter: func(t *testing.T) *query.FilterBy { return groupFilter(t, 1, 2) },
			group:  3,
		},
		{
			name: "or",
			filter: func(t *testing.T) *query.FilterBy {
				return must(query.NewFilterBy(must(query.NewOr(pk(1), pk(7)))))
			},
			group:    7,
			expected: true,
		},
		{
			name: "and with not",
			filter: func(t *testing.T) *query.FilterBy {
				return must(query.NewFilterBy(must(query.NewAnd(pk(1, 2, 3), must(query.NewNot(pk(2)))))))
			},
			group: 2,
		},
		{
			name: "unsupported constraint",
			filter: func(t *testing.T) *query.FilterBy {
				return must(query.NewFilterBy(must(query.NewAttributeEquals("code", query.String("x")))))
			},
			group:   1,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := PrimaryKeyMatcher.MatchGroup("parameter", tt.filter(t), tt.group)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}
