package prefetch

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/requery/internal/query"
)

// must unwraps a constructor result in fixtures; construction errors there
// are bugs in the test itself.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func attrs(t *testing.T, names ...string) *query.AttributeContent {
	return must(query.NewAttributeContent(names...))
}

func snapshot(t *testing.T, c *Collector) string {
	t.Helper()
	f, err := c.Snapshot()
	require.NoError(t, err)
	return query.Format(f)
}

func TestCollectorScenarios(t *testing.T) {
	tests := []struct {
		name     string
		register func(t *testing.T) []query.EntityContent
		expected string
	}{
		{
			name: "superset replaces subset",
			register: func(t *testing.T) []query.EntityContent {
				return []query.EntityContent{attrs(t, "code"), attrs(t, "code", "name")}
			},
			expected: "entityFetch(attributeContent('code','name'))",
		},
		{
			name: "all requested is retained",
			register: func(t *testing.T) []query.EntityContent {
				return []query.EntityContent{attrs(t), attrs(t, "code")}
			},
			expected: "entityFetch(attributeContent())",
		},
		{
			name: "higher price mode with lists",
			register: func(t *testing.T) []query.EntityContent {
				return []query.EntityContent{
					must(query.NewPriceContent(query.PriceModeNone)),
					must(query.NewPriceContent(query.PriceModeRespectingFilter, "b2b")),
				}
			},
			expected: "entityFetch(priceContent(RESPECTING_FILTER,'b2b'))",
		},
		{
			name: "kinds keep first registration order",
			register: func(t *testing.T) []query.EntityContent {
				return []query.EntityContent{
					must(query.NewPriceContent(query.PriceModeAll)),
					attrs(t, "code"),
					must(query.NewPriceContent(query.PriceModeNone)),
					attrs(t, "url"),
				}
			},
			expected: "entityFetch(priceContent(ALL),attributeContent('code','url'))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(nil)
			require.NoError(t, c.Register(tt.register(t)...))
			assert.Equal(t, tt.expected, snapshot(t, c))
		})
	}
}

func TestCollectorEmptySnapshot(t *testing.T) {
	c := NewCollector(nil)
	f, err := c.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, 0, c.Len())
}

func TestCollectorSeed(t *testing.T) {
	seed := must(query.NewEntityFetch(attrs(t, "code"), must(query.NewPriceContent(query.PriceModeAll))))
	c := NewCollector(seed)
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Register(attrs(t, "code"), attrs(t, "name")))
	assert.Equal(t, "entityFetch(attributeContent('code','name'),priceContent(ALL))", snapshot(t, c))
	assert.Equal(t, Stats{Registered: 2, Discarded: 1, Combined: 1}, c.Stats())
}

func TestCollectorConflictingStopConditions(t *testing.T) {
	distance := must(query.NewHierarchyContent(must(query.NewStopAt(must(query.NewDistance(1)))), nil))
	level := must(query.NewHierarchyContent(must(query.NewStopAt(must(query.NewLevel(2)))), nil))

	for _, order := range [][]query.EntityContent{{distance, level}, {level, distance}} {
		c := NewCollector(nil)
		err := c.Register(order...)
		require.Error(t, err)
		assert.True(t, query.IsConflictingError(err))
		assert.Equal(t, 1, c.Len(), "first registration is kept")
	}
}

func TestCollectorStopConditionConflictInAnyOrder(t *testing.T) {
	distance := must(query.NewHierarchyContent(must(query.NewStopAt(must(query.NewDistance(1)))), nil))
	level := must(query.NewHierarchyContent(must(query.NewStopAt(must(query.NewLevel(2)))), nil))
	reqs := []query.EntityContent{distance, query.HierarchyContentAll(), level}

	for i, perm := range permutations(reqs) {
		c := NewCollector(nil)
		err := c.Register(perm...)
		require.Error(t, err, "permutation %d", i)
		assert.True(t, query.IsConflictingError(err), "permutation %d: %v", i, err)
	}
}

func TestCollectorNestedStopConditionConflictInAnyOrder(t *testing.T) {
	hierarchy := func(stop query.StopCondition) *query.ReferenceContent {
		var h *query.HierarchyContent
		if stop == nil {
			h = query.HierarchyContentAll()
		} else {
			h = must(query.NewHierarchyContent(must(query.NewStopAt(stop)), nil))
		}
		return must(query.NewReferenceContent(query.ReferenceContentOptions{
			Names:       []string{"category"},
			EntityFetch: must(query.NewEntityFetch(h)),
		}))
	}
	reqs := []query.EntityContent{
		hierarchy(must(query.NewDistance(1))),
		hierarchy(nil),
		hierarchy(must(query.NewLevel(2))),
	}

	for i, perm := range permutations(reqs) {
		c := NewCollector(nil)
		err := c.Register(perm...)
		assert.True(t, query.IsConflictingError(err), "permutation %d: %v", i, err)
	}
}

func TestCollectorOrderIndependentKinds(t *testing.T) {
	brand := func(managed query.ManagedReferencesBehaviour) *query.ReferenceContent {
		return must(query.NewReferenceContent(query.ReferenceContentOptions{Names: []string{"brand"}, Managed: managed}))
	}
	distance := must(query.NewHierarchyContent(must(query.NewStopAt(must(query.NewDistance(1)))), nil))

	tests := []struct {
		name     string
		reqs     []query.EntityContent
		expected string
	}{
		{
			name:     "existing wins over any",
			reqs:     []query.EntityContent{brand(query.ManagedExisting), brand(query.ManagedAny)},
			expected: "entityFetch(referenceContent(EXISTING,'brand'))",
		},
		{
			name:     "wildcard keeps existing",
			reqs:     []query.EntityContent{query.ReferenceContentAll(), brand(query.ManagedExisting)},
			expected: "entityFetch(referenceContent(EXISTING))",
		},
		{
			name:     "wildcard with mixed behaviours",
			reqs:     []query.EntityContent{brand(query.ManagedAny), query.ReferenceContentAll(), brand(query.ManagedExisting)},
			expected: "entityFetch(referenceContent(EXISTING))",
		},
		{
			name:     "bound is kept",
			reqs:     []query.EntityContent{query.HierarchyContentAll(), distance},
			expected: "entityFetch(hierarchyContent(stopAt(distance(1))))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, perm := range permutations(tt.reqs) {
				c := NewCollector(nil)
				require.NoError(t, c.Register(perm...))
				assert.Equal(t, tt.expected, snapshot(t, c), "permutation %d", i)
			}
		})
	}
}

func TestCollectorFailedRegistrationLeavesStateIntact(t *testing.T) {
	filtered := must(query.NewReferenceContent(query.ReferenceContentOptions{
		Names:    []string{"category"},
		FilterBy: must(query.NewFilterBy(must(query.NewAttributeEquals("visible", query.Bool(true))))),
	}))
	c := NewCollector(nil)
	require.NoError(t, c.Register(
		must(query.NewReferenceContent(query.ReferenceContentOptions{Names: []string{"brand"}})),
		filtered,
	))
	before := snapshot(t, c)

	err := c.Register(query.ReferenceContentAll())
	require.Error(t, err)
	assert.True(t, query.IsIncombinableError(err))
	assert.Equal(t, before, snapshot(t, c))
	assert.Equal(t, 2, c.Len())
}

func TestCollectorIncombinableReferences(t *testing.T) {
	visible := must(query.NewFilterBy(must(query.NewAttributeEquals("visible", query.Bool(true)))))
	hidden := must(query.NewFilterBy(must(query.NewAttributeEquals("visible", query.Bool(false)))))

	c := NewCollector(nil)
	err := c.Register(
		must(query.NewReferenceContent(query.ReferenceContentOptions{Names: []string{"brand"}, FilterBy: visible})),
		must(query.NewReferenceContent(query.ReferenceContentOptions{Names: []string{"brand"}, FilterBy: hidden})),
	)
	require.Error(t, err)
	assert.True(t, query.IsIncombinableError(err))
	assert.Contains(t, err.Error(), "register referenceContent('brand'")
}

func TestCollectorOrderIndependence(t *testing.T) {
	reqs := []query.EntityContent{
		attrs(t, "code"),
		attrs(t, "name", "code"),
		must(query.NewPriceContent(query.PriceModeNone, "basic")),
		must(query.NewPriceContent(query.PriceModeRespectingFilter)),
		must(query.NewReferenceContent(query.ReferenceContentOptions{Names: []string{"brand"}, Managed: query.ManagedExisting})),
		query.ReferenceContentAll(),
		must(query.NewHierarchyContent(must(query.NewStopAt(must(query.NewLevel(1)))), nil)),
		query.HierarchyContentAll(),
	}

	baseline := NewCollector(nil)
	require.NoError(t, baseline.Register(reqs...))
	expected := must(baseline.Snapshot())

	for i, perm := range permutations(reqs) {
		c := NewCollector(nil)
		require.NoError(t, c.Register(perm...))
		got := must(c.Snapshot())
		assert.True(t, query.Equivalent(expected, got), "permutation %d: %s vs %s", i, query.Format(expected), query.Format(got))
	}
}

func permutations(items []query.EntityContent) [][]query.EntityContent {
	if len(items) <= 1 {
		return [][]query.EntityContent{append([]query.EntityContent(nil), items...)}
	}
	var out [][]query.EntityContent
	for i := range items {
		rest := make([]query.EntityContent, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]query.EntityContent{items[i]}, p...))
		}
	}
	return out
}

func TestCollectorLogsRegistrations(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := NewCollector(nil, WithLogger(logger))
	require.NoError(t, c.Register(attrs(t, "code")))

	out := buf.String()
	assert.Contains(t, out, "prefetch requirement registered")
	assert.Contains(t, out, "outcome=inserted")
}
