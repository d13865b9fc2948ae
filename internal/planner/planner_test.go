package planner

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/roach88/requery/internal/ir"
	"github.com/roach88/requery/internal/prefetch"
	"github.com/roach88/requery/internal/query"
	"github.com/roach88/requery/internal/testutil"
)

// must unwraps a constructor result in fixtures; construction errors there
// are bugs in the test itself.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func newQuery(t *testing.T, filter *query.FilterBy, order *query.OrderBy, req *query.Require) *query.Query {
	return must(query.NewQuery("product", filter, order, req))
}

func attrEq(t *testing.T, name, value string) *query.AttributeEquals {
	return must(query.NewAttributeEquals(name, query.String(value)))
}

func newPlanner() *Planner {
	return New(WithIDGenerator(testutil.NewSequenceIDGenerator("pass")))
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		query       func(t *testing.T) *query.Query
		wantRequire string
		wantFilter  string
		wantStats   prefetch.Stats
	}{
		{
			name: "discovered needs create the require tree",
			query: func(t *testing.T) *query.Query {
				return newQuery(t,
					must(query.NewFilterBy(
						attrEq(t, "code", "A"),
						must(query.NewEntityLocaleEquals(language.Czech)),
					)),
					must(query.NewOrderBy(must(query.NewPriceNatural(query.Desc)))),
					nil,
				)
			},
			wantRequire: "require(entityFetch(attributeContent('code'),dataInLocales('cs'),priceContent(RESPECTING_FILTER)))",
			wantFilter:  "filterBy(attributeEquals('code','A'),entityLocaleEquals('cs'))",
			wantStats:   prefetch.Stats{Registered: 3, Inserted: 3},
		},
		{
			name: "discovered needs merge into the explicit fetch",
			query: func(t *testing.T) *query.Query {
				return newQuery(t,
					must(query.NewFilterBy(must(query.NewAttributeInSet("code", query.String("a"), query.String("b"))))),
					must(query.NewOrderBy(must(query.NewAttributeNatural("name", query.Asc)))),
					must(query.NewRequire(
						must(query.NewEntityFetch(must(query.NewAttributeContent("name")))),
						must(query.NewPage(1, 20)),
					)),
				)
			},
			wantRequire: "require(entityFetch(attributeContent('name','code')),page(1,20))",
			wantFilter:  "filterBy(attributeInSet('code','a','b'))",
			wantStats:   prefetch.Stats{Registered: 2, Combined: 1, Discarded: 1},
		},
		{
			name: "reference constraints are not descended",
			query: func(t *testing.T) *query.Query {
				return newQuery(t,
					must(query.NewFilterBy(
						must(query.NewReferenceHaving("brand", attrEq(t, "visible", "yes"))),
						must(query.NewFacetHaving("parameter", must(query.NewEntityPrimaryKeyInSet(1, 2)))),
					)),
					nil,
					nil,
				)
			},
			wantRequire: "require(entityFetch(referenceContent('brand'),referenceContent('parameter')))",
			wantFilter:  "filterBy(referenceHaving('brand',attributeEquals('visible','yes')),facetHaving('parameter',entityPrimaryKeyInSet(1,2)))",
			wantStats:   prefetch.Stats{Registered: 2, Inserted: 2},
		},
		{
			name: "expression identifiers become attributes",
			query: func(t *testing.T) *query.Query {
				return newQuery(t,
					must(query.NewFilterBy(must(query.NewExpression(`stock > 0 && code == "A"`)))),
					nil,
					nil,
				)
			},
			wantRequire: "require(entityFetch(attributeContent('stock','code')))",
			wantFilter:  `filterBy(expression('stock > 0 && code == "A"'))`,
			wantStats:   prefetch.Stats{Registered: 1, Inserted: 1},
		},
		{
			name: "inapplicable filters are pruned",
			query: func(t *testing.T) *query.Query {
				return newQuery(t,
					must(query.NewFilterBy(attrEq(t, "code", "A"), must(query.NewAnd()))),
					nil,
					nil,
				)
			},
			wantRequire: "require(entityFetch(attributeContent('code')))",
			wantFilter:  "filterBy(attributeEquals('code','A'))",
			wantStats:   prefetch.Stats{Registered: 1, Inserted: 1},
		},
		{
			name: "nothing to fetch",
			query: func(t *testing.T) *query.Query {
				return newQuery(t,
					must(query.NewFilterBy(must(query.NewEntityPrimaryKeyInSet(7)))),
					nil,
					nil,
				)
			},
			wantFilter: "filterBy(entityPrimaryKeyInSet(7))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := newPlanner().Compile(context.Background(), tt.query(t))
			require.NoError(t, err)

			assert.Equal(t, "pass-0001", plan.ID)
			assert.Equal(t, tt.wantFilter, query.Format(plan.Query.FilterBy))
			assert.Equal(t, tt.wantRequire, query.Format(plan.Query.Require))
			assert.Equal(t, tt.wantStats, plan.Stats)
			assert.Len(t, plan.Hash, 64)
		})
	}
}

func TestCompileLeavesInputUntouched(t *testing.T) {
	req := must(query.NewRequire(must(query.NewEntityFetch(must(query.NewAttributeContent("name"))))))
	q := newQuery(t, must(query.NewFilterBy(attrEq(t, "code", "A"))), nil, req)
	before := q.String()

	plan, err := newPlanner().Compile(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, before, q.String())
	assert.Same(t, req, q.Require)
	assert.NotEqual(t, before, plan.Query.String())
	assert.Equal(t, "entityFetch(attributeContent('name','code'))", query.Format(plan.Prefetch))
}

func TestCompileKeepsRequireWhenNothingChanges(t *testing.T) {
	req := must(query.NewRequire(
		must(query.NewEntityFetch(must(query.NewAttributeContent("code")))),
		must(query.NewPage(2, 10)),
	))
	q := newQuery(t, must(query.NewFilterBy(attrEq(t, "code", "A"))), nil, req)

	plan, err := newPlanner().Compile(context.Background(), q)
	require.NoError(t, err)
	assert.Same(t, req, plan.Query.Require)
	assert.Equal(t, prefetch.Stats{Registered: 1, Discarded: 1}, plan.Stats)
}

func TestCompileHashIsStable(t *testing.T) {
	build := func() *query.Query {
		return newQuery(t,
			must(query.NewFilterBy(attrEq(t, "code", "A"))),
			nil,
			must(query.NewRequire(must(query.NewPage(1, 20)))),
		)
	}
	p := newPlanner()

	first, err := p.Compile(context.Background(), build())
	require.NoError(t, err)
	second, err := p.Compile(context.Background(), build())
	require.NoError(t, err)

	assert.Equal(t, "pass-0001", first.ID)
	assert.Equal(t, "pass-0002", second.ID)
	assert.Equal(t, first.Hash, second.Hash)

	expected, err := ir.Hash(ir.DomainPlan, first.Query.Encode())
	require.NoError(t, err)
	assert.Equal(t, expected, first.Hash)

	constraintHash, err := first.Query.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, constraintHash, first.Hash)

	sourceHash, err := build().Hash()
	require.NoError(t, err)
	assert.Equal(t, sourceHash, first.SourceHash)
	assert.Equal(t, first.SourceHash, second.SourceHash)
}

func TestCompileEquivalentFiltersShareFetch(t *testing.T) {
	a := newQuery(t, must(query.NewFilterBy(attrEq(t, "code", "A"), attrEq(t, "name", "B"))), nil, nil)
	b := newQuery(t, must(query.NewFilterBy(must(query.NewExpression(`code == "A" && name == "B"`)))), nil, nil)

	pa, err := newPlanner().Compile(context.Background(), a)
	require.NoError(t, err)
	pb, err := newPlanner().Compile(context.Background(), b)
	require.NoError(t, err)

	assert.True(t, query.Equivalent(pa.Prefetch, pb.Prefetch))
	assert.NotEqual(t, pa.Hash, pb.Hash)
}

func TestCompileErrors(t *testing.T) {
	t.Run("nil query", func(t *testing.T) {
		_, err := newPlanner().Compile(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newPlanner().Compile(ctx, newQuery(t, nil, nil, nil))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCompileLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := New(WithLogger(logger), WithIDGenerator(testutil.NewSequenceIDGenerator("log")))

	_, err := p.Compile(context.Background(), newQuery(t, must(query.NewFilterBy(attrEq(t, "code", "A"))), nil, nil))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "plan compiled")
	assert.Contains(t, out, "plan_id=log-0001")
	assert.Contains(t, out, "prefetch requirement registered")
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14])
}
