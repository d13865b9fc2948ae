package query

import (
	"fmt"
	"slices"
)

// EntityFetch requests entity bodies together with the listed content.
// No two children are combinable with each other.
type EntityFetch struct {
	requireKind
	content []EntityContent
}

// NewEntityFetch creates an entity fetch. It fails when two children are
// combinable, e.g. two attributeContent directives.
func NewEntityFetch(content ...EntityContent) (*EntityFetch, error) {
	if err := checkDistinctContent("entityFetch", content); err != nil {
		return nil, err
	}
	return &EntityFetch{content: slices.Clone(content)}, nil
}

func (*EntityFetch) Name() string               { return "entityFetch" }
func (*EntityFetch) Arguments() []Value         { return nil }
func (e *EntityFetch) Children() []Node         { return contentNodes(e.content) }
func (*EntityFetch) AdditionalChildren() []Node { return nil }
func (*EntityFetch) IsApplicable() bool         { return true }
func (*EntityFetch) contentRequirement()        {}

// Content returns the content requirements in insertion order.
func (e *EntityFetch) Content() []EntityContent { return slices.Clone(e.content) }

// CombineWith folds the content of o into e.
func (e *EntityFetch) CombineWith(o *EntityFetch) (*EntityFetch, error) {
	merged, changed, err := mergeInto(e.content, o.content)
	if err != nil {
		return nil, err
	}
	if !changed {
		return e, nil
	}
	return &EntityFetch{content: merged}, nil
}

// ContainedWithin reports whether every content requirement of e is
// contained in a combinable requirement of o.
func (e *EntityFetch) ContainedWithin(o *EntityFetch) bool {
	return contentContained(e.content, o.content)
}

// EntityGroupFetch requests bodies of reference group entities.
type EntityGroupFetch struct {
	requireKind
	content []EntityContent
}

// NewEntityGroupFetch creates an entity group fetch.
func NewEntityGroupFetch(content ...EntityContent) (*EntityGroupFetch, error) {
	if err := checkDistinctContent("entityGroupFetch", content); err != nil {
		return nil, err
	}
	return &EntityGroupFetch{content: slices.Clone(content)}, nil
}

func (*EntityGroupFetch) Name() string               { return "entityGroupFetch" }
func (*EntityGroupFetch) Arguments() []Value         { return nil }
func (e *EntityGroupFetch) Children() []Node         { return contentNodes(e.content) }
func (*EntityGroupFetch) AdditionalChildren() []Node { return nil }
func (*EntityGroupFetch) IsApplicable() bool         { return true }
func (*EntityGroupFetch) contentRequirement()        {}

// Content returns the content requirements in insertion order.
func (e *EntityGroupFetch) Content() []EntityContent { return slices.Clone(e.content) }

// CombineWith folds the content of o into e.
func (e *EntityGroupFetch) CombineWith(o *EntityGroupFetch) (*EntityGroupFetch, error) {
	merged, changed, err := mergeInto(e.content, o.content)
	if err != nil {
		return nil, err
	}
	if !changed {
		return e, nil
	}
	return &EntityGroupFetch{content: merged}, nil
}

// ContainedWithin reports whether o fetches everything e does.
func (e *EntityGroupFetch) ContainedWithin(o *EntityGroupFetch) bool {
	return contentContained(e.content, o.content)
}

func contentNodes(content []EntityContent) []Node {
	out := make([]Node, len(content))
	for i, c := range content {
		out[i] = c
	}
	return out
}

func checkDistinctContent(name string, content []EntityContent) error {
	for i, c := range content {
		if isNil(c) {
			return structureError(name, "child %d is nil", i)
		}
		for _, prev := range content[:i] {
			if Combinable(prev, c) {
				return structureError(name, "%s and %s must be merged into one directive", Format(prev), Format(c))
			}
		}
	}
	return nil
}

func contentContained(content, in []EntityContent) bool {
	for _, c := range content {
		found := false
		for _, o := range in {
			if Combinable(c, o) && ContainedWithin(c, o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func mergeInto(base, extra []EntityContent) ([]EntityContent, bool, error) {
	m := NewMerger(base...)
	changed := false
	for _, c := range extra {
		outcome, err := m.Add(c)
		if err != nil {
			return nil, false, err
		}
		if outcome != Discarded {
			changed = true
		}
	}
	return m.Content(), changed, nil
}

// MergeOutcome describes what Merger.Add did with a requirement.
type MergeOutcome int

const (
	// Inserted means no combinable requirement existed.
	Inserted MergeOutcome = iota
	// Discarded means an existing requirement already covered it.
	Discarded
	// Combined means it was merged into an existing requirement.
	Combined
)

func (o MergeOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Discarded:
		return "discarded"
	case Combined:
		return "combined"
	default:
		return fmt.Sprintf("MergeOutcome(%d)", int(o))
	}
}

// Merger is an incremental fold of entity content requirements. It keeps at
// most one requirement per combinable group, in first-registration order.
//
// A Merger is not safe for concurrent use.
type Merger struct {
	items []EntityContent
}

// NewMerger creates a merger seeded with already distinct content.
func NewMerger(seed ...EntityContent) *Merger {
	return &Merger{items: slices.Clone(seed)}
}

// Add folds c into the accumulated content. On error the accumulated content
// is left as it was before the call.
func (m *Merger) Add(c EntityContent) (MergeOutcome, error) {
	if isNil(c) {
		return Discarded, nil
	}
	i := slices.IndexFunc(m.items, func(existing EntityContent) bool {
		return Combinable(existing, c)
	})
	if i < 0 {
		m.items = append(m.items, c)
		return Inserted, nil
	}
	if ContainedWithin(c, m.items[i]) {
		return Discarded, nil
	}
	combined, err := combineContent(m.items[i], c)
	if err != nil {
		return Combined, err
	}
	items := slices.Clone(m.items)
	items[i] = combined
	items, err = settle(items, i)
	if err != nil {
		return Combined, err
	}
	m.items = items
	return Combined, nil
}

// settle merges any other entry that became combinable with entry i. This
// happens when a reference wildcard absorbs named references.
func settle(items []EntityContent, i int) ([]EntityContent, error) {
	for {
		j := -1
		for k := range items {
			if k != i && Combinable(items[i], items[k]) {
				j = k
				break
			}
		}
		if j < 0 {
			return items, nil
		}
		lo, hi := min(i, j), max(i, j)
		combined, err := combineContent(items[lo], items[hi])
		if err != nil {
			return nil, err
		}
		items[lo] = combined
		items = slices.Delete(items, hi, hi+1)
		i = lo
	}
}

// Content returns the accumulated requirements.
func (m *Merger) Content() []EntityContent {
	return slices.Clone(m.items)
}

// Len returns the number of accumulated requirements.
func (m *Merger) Len() int { return len(m.items) }

func registerFetch() {
	register("entityFetch", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("entityFetch", args, additional); err != nil {
			return nil, err
		}
		content, err := asEntityContent("entityFetch", children)
		if err != nil {
			return nil, err
		}
		return NewEntityFetch(content...)
	})
	register("entityGroupFetch", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("entityGroupFetch", args, additional); err != nil {
			return nil, err
		}
		content, err := asEntityContent("entityGroupFetch", children)
		if err != nil {
			return nil, err
		}
		return NewEntityGroupFetch(content...)
	})
}

func asEntityContent(name string, children []Node) ([]EntityContent, error) {
	out := make([]EntityContent, 0, len(children))
	for _, c := range children {
		ec, ok := c.(EntityContent)
		if !ok {
			return nil, structureError(name, "%s is not entity content", Format(c))
		}
		out = append(out, ec)
	}
	return out, nil
}
