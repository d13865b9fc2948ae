package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/requery/internal/query"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidQuery(t *testing.T) {
	q := compileOne(t, `
query: ok: {
	collection: "product"
	filterBy: [
		{entityLocaleEquals: ["cs"]},
		{priceInCurrency: ["EUR"]},
	]
	orderBy: [{priceNatural: ["DESC"]}]
	require: [
		{facetSummary: []},
		{facetGroupsConjunction: ["parameter"]},
		{priceHistogram: [10]},
	]
}
`)
	assert.Empty(t, Validate(q))
	assert.Empty(t, Validate(*q))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected []string
		field    string
		message  string
	}{
		{
			name: "conflicting locales",
			src: `query: q: {collection: "p", filterBy: [
				{entityLocaleEquals: ["cs"]},
				{or: children: [{entityLocaleEquals: ["en"]}, {entityLocaleEquals: ["cs"]}]},
			]}`,
			expected: []string{ErrConflictingLocales},
			field:    "filterBy",
			message:  "cs, en",
		},
		{
			name: "locale inside reference filter is ignored",
			src: `query: q: {collection: "p", filterBy: [
				{entityLocaleEquals: ["cs"]},
				{referenceHaving: {args: ["brand"], children: [{entityLocaleEquals: ["en"]}]}},
			]}`,
		},
		{
			name:     "price ordering without price filter",
			src:      `query: q: {collection: "p", orderBy: [{priceNatural: ["ASC"]}]}`,
			expected: []string{ErrPriceWithoutFilter},
			field:    "orderBy",
			message:  "priceNatural",
		},
		{
			name:     "price histogram without price filter",
			src:      `query: q: {collection: "p", require: [{priceHistogram: [5]}]}`,
			expected: []string{ErrPriceWithoutFilter},
			field:    "require",
			message:  "priceHistogram",
		},
		{
			name:     "facet rule without summary",
			src:      `query: q: {collection: "p", require: [{facetGroupsNegation: ["parameter"]}]}`,
			expected: []string{ErrFacetRuleWithoutSummary},
			field:    "require.facetGroupsNegation[0]",
			message:  `"parameter"`,
		},
		{
			name: "facet rule covered by reference summary",
			src: `query: q: {collection: "p", require: [
				{facetSummaryOfReference: ["parameter"]},
				{facetGroupsNegation: ["parameter"]},
			]}`,
		},
		{
			name: "shadowed facet rule",
			src: `query: q: {collection: "p", require: [
				{facetSummary: []},
				{facetGroupsConjunction: ["parameter"]},
				{facetGroupsNegation: ["parameter"]},
			]}`,
			expected: []string{ErrShadowedFacetRule},
			field:    "require.facetGroupsNegation[1]",
			message:  "facetGroupsConjunction",
		},
		{
			name: "filtered rules do not shadow",
			src: `query: q: {collection: "p", require: [
				{facetSummary: []},
				{facetGroupsConjunction: {args: ["parameter"], additional: [{filterBy: children: [{entityPrimaryKeyInSet: [1]}]}]}},
				{facetGroupsNegation: ["parameter"]},
			]}`,
		},
		{
			name: "rules on different levels do not shadow",
			src: `query: q: {collection: "p", require: [
				{facetSummary: []},
				{facetGroupsConjunction: ["parameter", "WITH_DIFFERENT_FACETS_IN_GROUP"]},
				{facetGroupsNegation: ["parameter"]},
			]}`,
		},
		{
			name:     "inapplicable directive",
			src:      `query: q: {collection: "p", filterBy: [{attributeEquals: ["code", "A"]}, {and: []}]}`,
			expected: []string{ErrInapplicableDirective},
			field:    "filterBy",
			message:  "and()",
		},
		{
			name: "duplicate hierarchy reference",
			src: `query: q: {collection: "p", require: [
				{hierarchyOfReference: {args: ["category"], children: [{fromRoot: ["menu"]}]}},
				{hierarchyOfReference: {args: ["brand", "category"], children: [{fromRoot: ["tree"]}]}},
			]}`,
			expected: []string{ErrDuplicateHierarchyRef},
			field:    "require.hierarchyOfReference[1]",
			message:  `"category"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(compileOne(t, tt.src))
			if len(tt.expected) == 0 {
				assert.Empty(t, errs)
				return
			}
			require.Equal(t, tt.expected, codes(errs))
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Contains(t, errs[0].Message, tt.message)
		})
	}
}

func TestValidateBlankCollection(t *testing.T) {
	errs := Validate(&query.Query{Collection: " "})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrBlankCollection, errs[0].Code)
}

func TestValidateCompiledPrefixesFields(t *testing.T) {
	compiled, cerrs := CompileSource("test.cue", `query: menu: {collection: "p", orderBy: [{priceNatural: ["ASC"]}]}`)
	require.Empty(t, cerrs)
	require.Len(t, compiled, 1)

	errs := Validate(compiled[0])
	require.Len(t, errs, 1)
	assert.Equal(t, "query.menu.orderBy", errs[0].Field)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a query")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
	assert.Contains(t, errs[0].Message, "string")
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "orderBy", Message: "bad", Code: "E204"}
	assert.Equal(t, "[E204] orderBy: bad", err.Error())

	err.Line = 7
	assert.Equal(t, "[E204] line 7: orderBy: bad", err.Error())
}
