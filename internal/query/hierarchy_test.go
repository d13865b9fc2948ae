package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopConditions(t *testing.T) {
	_, err := NewDistance(0)
	assert.True(t, IsStructureError(err))
	_, err = NewLevel(-1)
	assert.True(t, IsStructureError(err))

	_, err = NewStopAt()
	assert.True(t, IsStructureError(err))
	_, err = NewStopAt(must(NewDistance(1)), must(NewLevel(1)))
	assert.True(t, IsStructureError(err))
	_, err = NewStopAt(attrs(t, "code"))
	assert.True(t, IsStructureError(err))

	node := must(NewHierarchyNode(filterBy(t, attrEq(t, "code", String("root")))))
	stop := must(NewStopAt(node))
	assert.Equal(t, "stopAt(node(filterBy(attributeEquals('code','root'))))", Format(stop))
}

func TestStatisticsTypes(t *testing.T) {
	s := must(NewStatistics(StatisticsBaseCompleteFilter, StatisticsChildrenCount, StatisticsQueriedEntityCount))
	assert.Equal(t, []StatisticsType{StatisticsChildrenCount, StatisticsQueriedEntityCount}, s.Types())
	assert.Equal(t, "statistics(COMPLETE_FILTER,CHILDREN_COUNT,QUERIED_ENTITY_COUNT)", Format(s))

	_, err := NewStatistics(StatisticsBaseCompleteFilter, StatisticsChildrenCount, StatisticsChildrenCount)
	require.Error(t, err)
	assert.True(t, IsStructureError(err))
	assert.Contains(t, err.Error(), "duplicate statistics type CHILDREN_COUNT")

	_, err = Build("statistics", []Value{StatisticsBaseCompleteFilter, StatisticsChildrenCount, StatisticsChildrenCount}, nil, nil)
	assert.True(t, IsStructureError(err))
}

func TestHierarchyRequests(t *testing.T) {
	pivot := must(NewHierarchyNode(filterBy(t, attrEq(t, "code", String("shoes")))))

	tests := []struct {
		name    string
		build   func() (Node, error)
		wantErr bool
	}{
		{"fromRoot", func() (Node, error) { return NewFromRoot("megaMenu", stopAtLevel(t, 2)) }, false},
		{"fromRoot without output name", func() (Node, error) { return NewFromRoot("") }, true},
		{"fromRoot rejects node", func() (Node, error) { return NewFromRoot("menu", pivot) }, true},
		{"fromNode", func() (Node, error) { return NewFromNode("sub", pivot, stopAtDistance(t, 1)) }, false},
		{"fromNode without node", func() (Node, error) { return NewFromNode("sub") }, true},
		{"children duplicate stopAt", func() (Node, error) {
			return NewChildren("kids", stopAtDistance(t, 1), stopAtDistance(t, 2))
		}, true},
		{"siblings without output name", func() (Node, error) { return NewSiblings("") }, false},
		{"parents with nested siblings", func() (Node, error) {
			return NewParents("path", must(NewSiblings("")))
		}, false},
		{"parents rejects named siblings", func() (Node, error) {
			return NewParents("path", must(NewSiblings("side")))
		}, true},
		{"children rejects siblings", func() (Node, error) {
			return NewChildren("kids", must(NewSiblings("")))
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.build()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsStructureError(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, n)
		})
	}
}

func TestHierarchyOfSelfValidatesRequests(t *testing.T) {
	menu := must(NewFromRoot("menu"))

	_, err := NewHierarchyOfSelf(nil)
	assert.True(t, IsStructureError(err), "at least one request")

	_, err = NewHierarchyOfSelf(nil, menu, must(NewChildren("menu")))
	assert.True(t, IsStructureError(err), "unique output names")

	_, err = NewHierarchyOfSelf(nil, must(NewSiblings("")))
	assert.True(t, IsStructureError(err), "top-level siblings needs a name")

	h := must(NewHierarchyOfSelf(nil, menu, must(NewSiblings("side"))))
	assert.Len(t, h.Requests(), 2)
	assert.Nil(t, h.OrderBy())
	assert.Empty(t, h.AdditionalChildren())
}

func TestHierarchyOfReference(t *testing.T) {
	order := must(NewOrderBy(must(NewAttributeNatural("order", Asc))))
	h := must(NewHierarchyOfReference([]string{"categories"}, LeaveEmpty, order, must(NewFromRoot("tree"))))

	assert.Equal(t, []string{"categories"}, h.References())
	assert.Equal(t, LeaveEmpty, h.EmptyBehaviour())
	assert.Equal(t, "hierarchyOfReference(LEAVE_EMPTY,'categories',fromRoot('tree'),orderBy(attributeNatural('order',ASC)))", Format(h))

	_, err := NewHierarchyOfReference(nil, RemoveEmpty, nil, must(NewFromRoot("tree")))
	assert.True(t, IsStructureError(err))
}

func TestParentsChildrenOrder(t *testing.T) {
	p := must(NewParents("path",
		fetch(t, attrs(t, "code")),
		must(NewSiblings("")),
		stopAtDistance(t, 2),
	))
	assert.Equal(t, "parents('path',siblings(),stopAt(distance(2)),entityFetch(attributeContent('code')))", Format(p))
	require.NotNil(t, p.Siblings())
	assert.Equal(t, "", p.Siblings().OutputName())
}
