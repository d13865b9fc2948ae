// Package query provides the typed directive tree for entity queries and the
// algebra that merges fetch requirements.
//
// TREE MODEL:
//
// Every directive is a Node. Leaves carry scalar Arguments only. Containers
// additionally carry two independent child sequences:
//
//	Children()            same category as the container
//	AdditionalChildren()  other category, logically owned by the container
//
// For example referenceContent('brand') may own a filterBy as an additional
// child, while its entityFetch is a primary child.
//
// Nodes are immutable. WithArguments and WithChildren return a new node of the
// same kind after re-running that kind's structural validation.
//
// SEALED INTERFACES:
//
// Node, Value, ContentRequirement, EntityContent and HierarchyRequest are
// sealed with marker methods. Traversals and the merge algebra use exhaustive
// type switches instead of visitors:
//
//	switch c := req.(type) {
//	case *AttributeContent:
//	case *PriceContent:
//	...
//	default:
//	    // unreachable for nodes built by this package
//	}
//
// MERGE ALGEBRA:
//
// Fetch directives implement ContentRequirement. Combinable, Combine and
// ContainedWithin decide whether two requirements describe the same data,
// merge them, or detect that one is redundant:
//
//	name sets      attributeContent, associatedDataContent, dataInLocales
//	ordinal        priceContent (NONE < RESPECTING_FILTER < ALL)
//	tree shaped    hierarchyContent, referenceContent, entityFetch, entityGroupFetch
//
// Merging never silently changes semantics. Two different explicit stop
// conditions fail with a conflicting directive error; reference content that
// cannot be proven equivalent fails with an incombinable directive error.
//
// All package-level sentinels (AttributeContentAll and friends) are read-only.
package query
