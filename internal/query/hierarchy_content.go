package query

// HierarchyContent requests the hierarchy placement of an entity: the chain
// of its parents, optionally bounded by a stop condition and hydrated by an
// entity fetch. Without stopAt the whole parent chain is returned.
type HierarchyContent struct {
	requireKind
	stopAt      *StopAt
	entityFetch *EntityFetch
}

var hierarchyContentAll = &HierarchyContent{}

// HierarchyContentAll returns the shared unbounded hierarchy directive.
func HierarchyContentAll() *HierarchyContent { return hierarchyContentAll }

// NewHierarchyContent creates a hierarchy requirement. Both arguments may be nil.
func NewHierarchyContent(stopAt *StopAt, entityFetch *EntityFetch) (*HierarchyContent, error) {
	if stopAt == nil && entityFetch == nil {
		return hierarchyContentAll, nil
	}
	return &HierarchyContent{stopAt: stopAt, entityFetch: entityFetch}, nil
}

func (*HierarchyContent) Name() string       { return "hierarchyContent" }
func (*HierarchyContent) Arguments() []Value { return nil }
func (h *HierarchyContent) Children() []Node {
	return appendNode(appendNode(nil, h.stopAt), h.entityFetch)
}
func (*HierarchyContent) AdditionalChildren() []Node { return nil }
func (*HierarchyContent) IsApplicable() bool         { return true }
func (*HierarchyContent) contentRequirement()        {}
func (*HierarchyContent) entityContent()             {}

// StopAt returns the stop condition, or nil for the full parent chain.
func (h *HierarchyContent) StopAt() *StopAt { return h.stopAt }

// EntityFetch returns the fetch applied to parent entities, or nil.
func (h *HierarchyContent) EntityFetch() *EntityFetch { return h.entityFetch }

// CombineWith merges two hierarchy requirements. Two explicit stop conditions
// must be equal; otherwise the merge fails with a conflicting directive error
// because the depth limit cannot be widened without changing the result. An
// explicit stop condition on one side is kept, so a later conflicting bound
// fails no matter where it arrives in the fold.
func (h *HierarchyContent) CombineWith(o *HierarchyContent) (*HierarchyContent, error) {
	stopAt := h.stopAt
	switch {
	case h.stopAt == nil:
		stopAt = o.stopAt
	case o.stopAt != nil && !Equal(h.stopAt, o.stopAt):
		return nil, conflictingError(h, o, "stop conditions differ")
	}

	fetch, err := combineFetch(h.entityFetch, o.entityFetch)
	if err != nil {
		return nil, err
	}

	if stopAt == h.stopAt && fetch == h.entityFetch {
		return h, nil
	}
	if stopAt == o.stopAt && fetch == o.entityFetch {
		return o, nil
	}
	return NewHierarchyContent(stopAt, fetch)
}

// ContainedWithin reports whether folding h into o leaves o unchanged. An
// unbounded h is covered by any bound; an explicit bound only by an equal one.
func (h *HierarchyContent) ContainedWithin(o *HierarchyContent) bool {
	if h.stopAt != nil && !Equal(h.stopAt, o.stopAt) {
		return false
	}
	return fetchContained(h.entityFetch, o.entityFetch)
}

func combineFetch(a, b *EntityFetch) (*EntityFetch, error) {
	switch {
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	default:
		return a.CombineWith(b)
	}
}

func combineGroupFetch(a, b *EntityGroupFetch) (*EntityGroupFetch, error) {
	switch {
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	default:
		return a.CombineWith(b)
	}
}

func fetchContained(a, b *EntityFetch) bool {
	if a == nil {
		return true
	}
	return b != nil && a.ContainedWithin(b)
}

func groupFetchContained(a, b *EntityGroupFetch) bool {
	if a == nil {
		return true
	}
	return b != nil && a.ContainedWithin(b)
}

func registerHierarchyContent() {
	register("hierarchyContent", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("hierarchyContent", args, additional); err != nil {
			return nil, err
		}
		var stopAt *StopAt
		var fetch *EntityFetch
		for _, c := range children {
			switch x := c.(type) {
			case *StopAt:
				if stopAt != nil {
					return nil, structureError("hierarchyContent", "at most one stopAt is allowed")
				}
				stopAt = x
			case *EntityFetch:
				if fetch != nil {
					return nil, structureError("hierarchyContent", "at most one entityFetch is allowed")
				}
				fetch = x
			default:
				return nil, structureError("hierarchyContent", "%s is not allowed here", Format(c))
			}
		}
		return NewHierarchyContent(stopAt, fetch)
	})
}
