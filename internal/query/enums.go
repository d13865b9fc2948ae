package query

import "slices"

// Enum arguments print and parse as their upper snake case names.

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "UNKNOWN"
	}
	return names[i]
}

func enumIndex(names []string, s string) int {
	return slices.Index(names, s)
}

// PriceContentMode selects which prices are fetched. Modes are ordered:
// NONE < RESPECTING_FILTER < ALL.
type PriceContentMode int

const (
	PriceModeNone PriceContentMode = iota
	PriceModeRespectingFilter
	PriceModeAll
)

var priceContentModeNames = []string{"NONE", "RESPECTING_FILTER", "ALL"}

func (PriceContentMode) value() {}

func (m PriceContentMode) String() string { return enumName(priceContentModeNames, int(m)) }

// ParsePriceContentMode parses a mode name.
func ParsePriceContentMode(s string) (PriceContentMode, bool) {
	i := enumIndex(priceContentModeNames, s)
	return PriceContentMode(i), i >= 0
}

// ManagedReferencesBehaviour controls whether references to entities that
// do not exist in the database are returned.
type ManagedReferencesBehaviour int

const (
	ManagedAny ManagedReferencesBehaviour = iota
	ManagedExisting
)

var managedReferencesNames = []string{"ANY", "EXISTING"}

func (ManagedReferencesBehaviour) value() {}

func (b ManagedReferencesBehaviour) String() string { return enumName(managedReferencesNames, int(b)) }

// ParseManagedReferencesBehaviour parses a behaviour name.
func ParseManagedReferencesBehaviour(s string) (ManagedReferencesBehaviour, bool) {
	i := enumIndex(managedReferencesNames, s)
	return ManagedReferencesBehaviour(i), i >= 0
}

// StatisticsBase selects the filter hierarchy statistics are computed against.
type StatisticsBase int

const (
	StatisticsBaseCompleteFilter StatisticsBase = iota
	StatisticsBaseWithoutUserFilter
)

var statisticsBaseNames = []string{"COMPLETE_FILTER", "WITHOUT_USER_FILTER"}

func (StatisticsBase) value() {}

func (b StatisticsBase) String() string { return enumName(statisticsBaseNames, int(b)) }

// ParseStatisticsBase parses a base name.
func ParseStatisticsBase(s string) (StatisticsBase, bool) {
	i := enumIndex(statisticsBaseNames, s)
	return StatisticsBase(i), i >= 0
}

// StatisticsType is a hierarchy statistic to compute per visited node.
type StatisticsType int

const (
	StatisticsChildrenCount StatisticsType = iota
	StatisticsQueriedEntityCount
)

var statisticsTypeNames = []string{"CHILDREN_COUNT", "QUERIED_ENTITY_COUNT"}

func (StatisticsType) value() {}

func (t StatisticsType) String() string { return enumName(statisticsTypeNames, int(t)) }

// ParseStatisticsType parses a statistic name.
func ParseStatisticsType(s string) (StatisticsType, bool) {
	i := enumIndex(statisticsTypeNames, s)
	return StatisticsType(i), i >= 0
}

// FacetRelationType is the boolean relation applied between facets.
type FacetRelationType int

const (
	FacetConjunction FacetRelationType = iota
	FacetDisjunction
	FacetNegation
	FacetExclusivity
)

var facetRelationNames = []string{"CONJUNCTION", "DISJUNCTION", "NEGATION", "EXCLUSIVITY"}

func (FacetRelationType) value() {}

func (t FacetRelationType) String() string { return enumName(facetRelationNames, int(t)) }

// ParseFacetRelationType parses a relation name.
func ParseFacetRelationType(s string) (FacetRelationType, bool) {
	i := enumIndex(facetRelationNames, s)
	return FacetRelationType(i), i >= 0
}

// FacetGroupRelationLevel says whether a facet rule relates facets inside one
// group or relates whole groups to each other.
type FacetGroupRelationLevel int

const (
	WithDifferentFacetsInGroup FacetGroupRelationLevel = iota
	WithDifferentGroups
)

var facetGroupRelationLevelNames = []string{"WITH_DIFFERENT_FACETS_IN_GROUP", "WITH_DIFFERENT_GROUPS"}

func (FacetGroupRelationLevel) value() {}

func (l FacetGroupRelationLevel) String() string { return enumName(facetGroupRelationLevelNames, int(l)) }

// ParseFacetGroupRelationLevel parses a level name.
func ParseFacetGroupRelationLevel(s string) (FacetGroupRelationLevel, bool) {
	i := enumIndex(facetGroupRelationLevelNames, s)
	return FacetGroupRelationLevel(i), i >= 0
}

// OrderDirection is the sort direction of an ordering directive.
type OrderDirection int

const (
	Asc OrderDirection = iota
	Desc
)

var orderDirectionNames = []string{"ASC", "DESC"}

func (OrderDirection) value() {}

func (d OrderDirection) String() string { return enumName(orderDirectionNames, int(d)) }

// ParseOrderDirection parses a direction name.
func ParseOrderDirection(s string) (OrderDirection, bool) {
	i := enumIndex(orderDirectionNames, s)
	return OrderDirection(i), i >= 0
}

// EmptyHierarchicalEntityBehaviour decides whether hierarchy nodes without
// any queried entity are reported.
type EmptyHierarchicalEntityBehaviour int

const (
	LeaveEmpty EmptyHierarchicalEntityBehaviour = iota
	RemoveEmpty
)

var emptyHierarchicalEntityNames = []string{"LEAVE_EMPTY", "REMOVE_EMPTY"}

func (EmptyHierarchicalEntityBehaviour) value() {}

func (b EmptyHierarchicalEntityBehaviour) String() string {
	return enumName(emptyHierarchicalEntityNames, int(b))
}

// ParseEmptyHierarchicalEntityBehaviour parses a behaviour name.
func ParseEmptyHierarchicalEntityBehaviour(s string) (EmptyHierarchicalEntityBehaviour, bool) {
	i := enumIndex(emptyHierarchicalEntityNames, s)
	return EmptyHierarchicalEntityBehaviour(i), i >= 0
}

// FacetStatisticsDepth selects how much facet summary data is computed.
type FacetStatisticsDepth int

const (
	DepthCounts FacetStatisticsDepth = iota
	DepthImpact
)

var facetStatisticsDepthNames = []string{"COUNTS", "IMPACT"}

func (FacetStatisticsDepth) value() {}

func (d FacetStatisticsDepth) String() string { return enumName(facetStatisticsDepthNames, int(d)) }

// ParseFacetStatisticsDepth parses a depth name.
func ParseFacetStatisticsDepth(s string) (FacetStatisticsDepth, bool) {
	i := enumIndex(facetStatisticsDepthNames, s)
	return FacetStatisticsDepth(i), i >= 0
}
