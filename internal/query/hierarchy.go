package query

import (
	"slices"
	"strings"
)

// StopCondition is a sealed interface for the directives a StopAt wraps:
// Distance, Level and HierarchyNode.
type StopCondition interface {
	Node
	stopCondition()
}

// Distance stops traversal n hops away from the pivot node.
type Distance struct {
	requireKind
	distance int
}

// NewDistance creates a relative stop condition. n must be positive.
func NewDistance(n int) (*Distance, error) {
	if n <= 0 {
		return nil, structureError("distance", "distance must be greater than zero, got %d", n)
	}
	return &Distance{distance: n}, nil
}

func (*Distance) Name() string         { return "distance" }
func (d *Distance) Arguments() []Value { return []Value{Int(d.distance)} }
func (*Distance) IsApplicable() bool   { return true }
func (*Distance) stopCondition()       {}

// Distance returns the hop count.
func (d *Distance) Distance() int { return d.distance }

// Level stops traversal at an absolute depth counted from the virtual root.
type Level struct {
	requireKind
	level int
}

// NewLevel creates an absolute stop condition. n must be positive.
func NewLevel(n int) (*Level, error) {
	if n <= 0 {
		return nil, structureError("level", "level must be greater than zero, got %d", n)
	}
	return &Level{level: n}, nil
}

func (*Level) Name() string         { return "level" }
func (l *Level) Arguments() []Value { return []Value{Int(l.level)} }
func (*Level) IsApplicable() bool   { return true }
func (*Level) stopCondition()       {}

// Level returns the absolute depth.
func (l *Level) Level() int { return l.level }

// HierarchyNode selects hierarchy nodes by filter. As a stop condition it
// halts traversal at the first matching node; inside fromNode it selects the
// pivot.
type HierarchyNode struct {
	requireKind
	filter *FilterBy
}

// NewHierarchyNode creates a node selector.
func NewHierarchyNode(filter *FilterBy) (*HierarchyNode, error) {
	if filter == nil {
		return nil, structureError("node", "exactly one filterBy is required")
	}
	return &HierarchyNode{filter: filter}, nil
}

func (*HierarchyNode) Name() string                 { return "node" }
func (*HierarchyNode) Arguments() []Value           { return nil }
func (*HierarchyNode) Children() []Node             { return nil }
func (n *HierarchyNode) AdditionalChildren() []Node { return []Node{n.filter} }
func (*HierarchyNode) IsApplicable() bool           { return true }
func (*HierarchyNode) stopCondition()               {}

// Filter returns the node selecting filter.
func (n *HierarchyNode) Filter() *FilterBy { return n.filter }

// StopAt wraps exactly one stop condition.
type StopAt struct {
	requireKind
	condition StopCondition
}

// NewStopAt creates a stop condition wrapper. Exactly one child that is a
// distance, level or node directive is required.
func NewStopAt(children ...Node) (*StopAt, error) {
	if len(children) != 1 {
		return nil, structureError("stopAt", "exactly one stop condition is required, got %d", len(children))
	}
	cond, ok := children[0].(StopCondition)
	if !ok || isNil(children[0]) {
		return nil, structureError("stopAt", "%s is not a stop condition", Format(children[0]))
	}
	return &StopAt{condition: cond}, nil
}

func (*StopAt) Name() string               { return "stopAt" }
func (*StopAt) Arguments() []Value         { return nil }
func (s *StopAt) Children() []Node         { return []Node{s.condition} }
func (*StopAt) AdditionalChildren() []Node { return nil }
func (*StopAt) IsApplicable() bool         { return true }

// Condition returns the wrapped stop condition.
func (s *StopAt) Condition() StopCondition { return s.condition }

// Statistics requests per-node hierarchy statistics.
type Statistics struct {
	requireKind
	base  StatisticsBase
	types []StatisticsType
}

// NewStatistics creates a statistics directive. Each type may appear once.
func NewStatistics(base StatisticsBase, types ...StatisticsType) (*Statistics, error) {
	if _, ok := ParseStatisticsBase(base.String()); !ok {
		return nil, structureError("statistics", "invalid base %d", int(base))
	}
	for i, t := range types {
		if _, ok := ParseStatisticsType(t.String()); !ok {
			return nil, structureError("statistics", "invalid statistics type %d", int(t))
		}
		if slices.Contains(types[:i], t) {
			return nil, structureError("statistics", "duplicate statistics type %s", t)
		}
	}
	return &Statistics{base: base, types: slices.Clone(types)}, nil
}

func (*Statistics) Name() string { return "statistics" }
func (s *Statistics) Arguments() []Value {
	out := []Value{s.base}
	for _, t := range s.types {
		out = append(out, t)
	}
	return out
}
func (*Statistics) IsApplicable() bool { return true }

// Base returns the filter base statistics are computed against.
func (s *Statistics) Base() StatisticsBase { return s.base }

// Types returns the requested statistic kinds.
func (s *Statistics) Types() []StatisticsType { return slices.Clone(s.types) }

// HierarchyRequest is a sealed interface for the traversal directives placed
// inside hierarchyOfSelf and hierarchyOfReference.
type HierarchyRequest interface {
	Container

	// OutputName is the key computed results are reported under.
	OutputName() string
	StopAt() *StopAt
	Statistics() *Statistics
	EntityFetch() *EntityFetch

	hierarchyRequest()
}

// requestBody holds the parts shared by every traversal directive.
type requestBody struct {
	requireKind
	outputName  string
	stopAt      *StopAt
	statistics  *Statistics
	entityFetch *EntityFetch
}

func (b *requestBody) OutputName() string        { return b.outputName }
func (b *requestBody) StopAt() *StopAt           { return b.stopAt }
func (b *requestBody) Statistics() *Statistics   { return b.statistics }
func (b *requestBody) EntityFetch() *EntityFetch { return b.entityFetch }
func (*requestBody) AdditionalChildren() []Node  { return nil }
func (*requestBody) IsApplicable() bool          { return true }
func (*requestBody) hierarchyRequest()           {}

func (b *requestBody) Arguments() []Value {
	if b.outputName == "" {
		return nil
	}
	return []Value{String(b.outputName)}
}

func (b *requestBody) children(lead ...Node) []Node {
	var out []Node
	for _, n := range lead {
		out = appendNode(out, n)
	}
	out = appendNode(out, b.stopAt)
	out = appendNode(out, b.statistics)
	out = appendNode(out, b.entityFetch)
	return out
}

// requestParts is the result of sorting traversal children into slots.
type requestParts struct {
	node        *HierarchyNode
	siblings    *HierarchySiblings
	stopAt      *StopAt
	statistics  *Statistics
	entityFetch *EntityFetch
}

// readRequestParts enforces the allowed child set of a traversal directive
// and rejects duplicates.
func readRequestParts(name string, children []Node, allowNode, allowSiblings bool) (requestParts, error) {
	var p requestParts
	for _, c := range children {
		switch x := c.(type) {
		case *StopAt:
			if p.stopAt != nil {
				return p, structureError(name, "at most one stopAt is allowed")
			}
			p.stopAt = x
		case *Statistics:
			if p.statistics != nil {
				return p, structureError(name, "at most one statistics is allowed")
			}
			p.statistics = x
		case *EntityFetch:
			if p.entityFetch != nil {
				return p, structureError(name, "at most one entityFetch is allowed")
			}
			p.entityFetch = x
		case *HierarchyNode:
			if !allowNode {
				return p, structureError(name, "node is not allowed here")
			}
			if p.node != nil {
				return p, structureError(name, "at most one node is allowed")
			}
			p.node = x
		case *HierarchySiblings:
			if !allowSiblings {
				return p, structureError(name, "siblings is not allowed here")
			}
			if p.siblings != nil {
				return p, structureError(name, "at most one siblings is allowed")
			}
			p.siblings = x
		default:
			return p, structureError(name, "%s is not allowed here", Format(c))
		}
	}
	return p, nil
}

func requireOutputName(name, outputName string) error {
	if strings.TrimSpace(outputName) == "" {
		return structureError(name, "output name is required")
	}
	return nil
}

// HierarchyFromRoot traverses the hierarchy from the virtual root.
type HierarchyFromRoot struct {
	requestBody
}

// NewFromRoot creates a from-root traversal. Allowed children are stopAt,
// statistics and entityFetch.
func NewFromRoot(outputName string, children ...Node) (*HierarchyFromRoot, error) {
	if err := requireOutputName("fromRoot", outputName); err != nil {
		return nil, err
	}
	p, err := readRequestParts("fromRoot", children, false, false)
	if err != nil {
		return nil, err
	}
	return &HierarchyFromRoot{requestBody{
		outputName: outputName, stopAt: p.stopAt, statistics: p.statistics, entityFetch: p.entityFetch,
	}}, nil
}

func (*HierarchyFromRoot) Name() string       { return "fromRoot" }
func (h *HierarchyFromRoot) Children() []Node { return h.children() }

// HierarchyFromNode traverses the hierarchy from a pivot node selected by a
// node directive.
type HierarchyFromNode struct {
	requestBody
	pivot *HierarchyNode
}

// NewFromNode creates a from-node traversal. Exactly one node child is
// required; stopAt, statistics and entityFetch are optional.
func NewFromNode(outputName string, children ...Node) (*HierarchyFromNode, error) {
	if err := requireOutputName("fromNode", outputName); err != nil {
		return nil, err
	}
	p, err := readRequestParts("fromNode", children, true, false)
	if err != nil {
		return nil, err
	}
	if p.node == nil {
		return nil, structureError("fromNode", "exactly one node is required")
	}
	return &HierarchyFromNode{
		requestBody: requestBody{
			outputName: outputName, stopAt: p.stopAt, statistics: p.statistics, entityFetch: p.entityFetch,
		},
		pivot: p.node,
	}, nil
}

func (*HierarchyFromNode) Name() string       { return "fromNode" }
func (h *HierarchyFromNode) Children() []Node { return h.children(h.pivot) }

// Node returns the pivot selector.
func (h *HierarchyFromNode) Node() *HierarchyNode { return h.pivot }

// HierarchyChildren traverses the children of the queried node.
type HierarchyChildren struct {
	requestBody
}

// NewChildren creates a children traversal. Allowed children are stopAt,
// statistics and entityFetch.
func NewChildren(outputName string, children ...Node) (*HierarchyChildren, error) {
	if err := requireOutputName("children", outputName); err != nil {
		return nil, err
	}
	p, err := readRequestParts("children", children, false, false)
	if err != nil {
		return nil, err
	}
	return &HierarchyChildren{requestBody{
		outputName: outputName, stopAt: p.stopAt, statistics: p.statistics, entityFetch: p.entityFetch,
	}}, nil
}

func (*HierarchyChildren) Name() string       { return "children" }
func (h *HierarchyChildren) Children() []Node { return h.children() }

// HierarchySiblings traverses the siblings of the queried node. Inside
// parents it applies to every parent and carries no output name of its own.
type HierarchySiblings struct {
	requestBody
}

// NewSiblings creates a siblings traversal. The output name may be empty
// only when the directive is nested in parents; enclosing containers check
// that.
func NewSiblings(outputName string, children ...Node) (*HierarchySiblings, error) {
	p, err := readRequestParts("siblings", children, false, false)
	if err != nil {
		return nil, err
	}
	return &HierarchySiblings{requestBody{
		outputName: outputName, stopAt: p.stopAt, statistics: p.statistics, entityFetch: p.entityFetch,
	}}, nil
}

func (*HierarchySiblings) Name() string       { return "siblings" }
func (h *HierarchySiblings) Children() []Node { return h.children() }

// HierarchyParents traverses the parent axis of the queried node.
type HierarchyParents struct {
	requestBody
	siblings *HierarchySiblings
}

// NewParents creates a parents traversal. A nested siblings directive must
// not declare an output name.
func NewParents(outputName string, children ...Node) (*HierarchyParents, error) {
	if err := requireOutputName("parents", outputName); err != nil {
		return nil, err
	}
	p, err := readRequestParts("parents", children, false, true)
	if err != nil {
		return nil, err
	}
	if p.siblings != nil && p.siblings.outputName != "" {
		return nil, structureError("parents", "nested siblings must not declare an output name, got %q", p.siblings.outputName)
	}
	return &HierarchyParents{
		requestBody: requestBody{
			outputName: outputName, stopAt: p.stopAt, statistics: p.statistics, entityFetch: p.entityFetch,
		},
		siblings: p.siblings,
	}, nil
}

func (*HierarchyParents) Name() string       { return "parents" }
func (h *HierarchyParents) Children() []Node { return h.children(h.siblings) }

// Siblings returns the nested siblings directive, if any.
func (h *HierarchyParents) Siblings() *HierarchySiblings { return h.siblings }

// hierarchyRequests validates a request list: at least one request, each
// with a unique, non-blank output name.
func hierarchyRequests(name string, children []Node) ([]HierarchyRequest, error) {
	if len(children) == 0 {
		return nil, structureError(name, "at least one hierarchy request is required")
	}
	out := make([]HierarchyRequest, 0, len(children))
	names := make([]string, 0, len(children))
	for _, c := range children {
		r, ok := c.(HierarchyRequest)
		if !ok {
			return nil, structureError(name, "%s is not a hierarchy request", Format(c))
		}
		if err := requireOutputName(r.Name(), r.OutputName()); err != nil {
			return nil, err
		}
		out = append(out, r)
		names = append(names, r.OutputName())
	}
	if err := uniqueStrings(name, "output name", names); err != nil {
		return nil, err
	}
	return out, nil
}

func optionalOrderBy(name string, additional []Node) (*OrderBy, error) {
	var orderBy *OrderBy
	for _, a := range additional {
		o, ok := a.(*OrderBy)
		if !ok {
			return nil, structureError(name, "%s is not allowed as additional child", Format(a))
		}
		if orderBy != nil {
			return nil, structureError(name, "at most one orderBy is allowed")
		}
		orderBy = o
	}
	return orderBy, nil
}

// HierarchyOfSelf computes hierarchy data over the queried entity collection
// itself.
type HierarchyOfSelf struct {
	requireKind
	orderBy  *OrderBy
	requests []HierarchyRequest
}

// NewHierarchyOfSelf creates a self hierarchy requirement. orderBy may be nil.
func NewHierarchyOfSelf(orderBy *OrderBy, requests ...Node) (*HierarchyOfSelf, error) {
	reqs, err := hierarchyRequests("hierarchyOfSelf", requests)
	if err != nil {
		return nil, err
	}
	return &HierarchyOfSelf{orderBy: orderBy, requests: reqs}, nil
}

func (*HierarchyOfSelf) Name() string       { return "hierarchyOfSelf" }
func (*HierarchyOfSelf) Arguments() []Value { return nil }
func (h *HierarchyOfSelf) Children() []Node { return requestNodes(h.requests) }
func (*HierarchyOfSelf) IsApplicable() bool { return true }
func (h *HierarchyOfSelf) AdditionalChildren() []Node {
	return appendNode(nil, h.orderBy)
}

// OrderBy returns the ordering of hierarchy nodes, or nil.
func (h *HierarchyOfSelf) OrderBy() *OrderBy { return h.orderBy }

// Requests returns the traversal requests.
func (h *HierarchyOfSelf) Requests() []HierarchyRequest { return slices.Clone(h.requests) }

// HierarchyOfReference computes hierarchy data over the entities targeted by
// one or more references.
type HierarchyOfReference struct {
	requireKind
	references []string
	behaviour  EmptyHierarchicalEntityBehaviour
	orderBy    *OrderBy
	requests   []HierarchyRequest
}

// NewHierarchyOfReference creates a referenced hierarchy requirement.
func NewHierarchyOfReference(references []string, behaviour EmptyHierarchicalEntityBehaviour, orderBy *OrderBy, requests ...Node) (*HierarchyOfReference, error) {
	r := newArgReader("hierarchyOfReference", Strings(references...))
	refs := r.strings("reference name")
	if err := r.done(); err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, structureError("hierarchyOfReference", "at least one reference name is required")
	}
	if err := uniqueStrings("hierarchyOfReference", "reference name", refs); err != nil {
		return nil, err
	}
	reqs, err := hierarchyRequests("hierarchyOfReference", requests)
	if err != nil {
		return nil, err
	}
	return &HierarchyOfReference{references: refs, behaviour: behaviour, orderBy: orderBy, requests: reqs}, nil
}

func (*HierarchyOfReference) Name() string { return "hierarchyOfReference" }
func (h *HierarchyOfReference) Arguments() []Value {
	return append([]Value{h.behaviour}, Strings(h.references...)...)
}
func (h *HierarchyOfReference) Children() []Node { return requestNodes(h.requests) }
func (h *HierarchyOfReference) AdditionalChildren() []Node {
	return appendNode(nil, h.orderBy)
}
func (*HierarchyOfReference) IsApplicable() bool { return true }

// References returns the reference names.
func (h *HierarchyOfReference) References() []string { return slices.Clone(h.references) }

// EmptyBehaviour returns how nodes without queried entities are treated.
func (h *HierarchyOfReference) EmptyBehaviour() EmptyHierarchicalEntityBehaviour {
	return h.behaviour
}

// OrderBy returns the ordering of hierarchy nodes, or nil.
func (h *HierarchyOfReference) OrderBy() *OrderBy { return h.orderBy }

// Requests returns the traversal requests.
func (h *HierarchyOfReference) Requests() []HierarchyRequest { return slices.Clone(h.requests) }

func requestNodes(reqs []HierarchyRequest) []Node {
	out := make([]Node, len(reqs))
	for i, r := range reqs {
		out[i] = r
	}
	return out
}

func registerHierarchy() {
	register("distance", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("distance", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("distance", args)
		n := r.int("distance")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewDistance(int(n))
	})
	register("level", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("level", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("level", args)
		n := r.int("level")
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewLevel(int(n))
	})
	register("node", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if len(args) > 0 || len(children) > 0 {
			return nil, structureError("node", "only a filterBy is allowed")
		}
		if len(additional) != 1 {
			return nil, structureError("node", "exactly one filterBy is required, got %d", len(additional))
		}
		f, ok := additional[0].(*FilterBy)
		if !ok {
			return nil, structureError("node", "%s is not a filterBy", Format(additional[0]))
		}
		return NewHierarchyNode(f)
	})
	register("stopAt", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := containerShape("stopAt", args, additional); err != nil {
			return nil, err
		}
		return NewStopAt(children...)
	})
	register("statistics", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if err := noChildren("statistics", children, additional); err != nil {
			return nil, err
		}
		r := newArgReader("statistics", args)
		base := optionalEnum(r, ParseStatisticsBase, StatisticsBaseWithoutUserFilter)
		types := enumsOf(r, "statistics type", ParseStatisticsType)
		if err := r.done(); err != nil {
			return nil, err
		}
		return NewStatistics(base, types...)
	})
	register("fromRoot", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		out, err := requestShape("fromRoot", args, additional)
		if err != nil {
			return nil, err
		}
		return NewFromRoot(out, children...)
	})
	register("fromNode", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		out, err := requestShape("fromNode", args, additional)
		if err != nil {
			return nil, err
		}
		return NewFromNode(out, children...)
	})
	register("children", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		out, err := requestShape("children", args, additional)
		if err != nil {
			return nil, err
		}
		return NewChildren(out, children...)
	})
	register("siblings", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		out, err := requestShape("siblings", args, additional)
		if err != nil {
			return nil, err
		}
		return NewSiblings(out, children...)
	})
	register("parents", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		out, err := requestShape("parents", args, additional)
		if err != nil {
			return nil, err
		}
		return NewParents(out, children...)
	})
	register("hierarchyOfSelf", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		if len(args) > 0 {
			return nil, structureError("hierarchyOfSelf", "unexpected argument %s", FormatValue(args[0]))
		}
		orderBy, err := optionalOrderBy("hierarchyOfSelf", additional)
		if err != nil {
			return nil, err
		}
		return NewHierarchyOfSelf(orderBy, children...)
	})
	register("hierarchyOfReference", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		r := newArgReader("hierarchyOfReference", args)
		behaviour := optionalEnum(r, ParseEmptyHierarchicalEntityBehaviour, RemoveEmpty)
		refs := r.strings("reference name")
		if err := r.done(); err != nil {
			return nil, err
		}
		orderBy, err := optionalOrderBy("hierarchyOfReference", additional)
		if err != nil {
			return nil, err
		}
		return NewHierarchyOfReference(refs, behaviour, orderBy, children...)
	})
}

// requestShape reads the optional output name of a traversal directive.
func requestShape(name string, args []Value, additional []Node) (string, error) {
	if len(additional) > 0 {
		return "", structureError(name, "unexpected additional child %s", Format(additional[0]))
	}
	r := newArgReader(name, args)
	out := r.optionalString()
	if err := r.done(); err != nil {
		return "", err
	}
	return out, nil
}
