package query

import "slices"

// ReferenceContent requests entity references. Without reference names it
// is the all-references wildcard. A filterBy or orderBy narrowing the
// returned references is allowed only for a single named reference.
type ReferenceContent struct {
	requireKind
	names       nameSet
	managed     ManagedReferencesBehaviour
	attributes  *AttributeContent
	entityFetch *EntityFetch
	groupFetch  *EntityGroupFetch
	filterBy    *FilterBy
	orderBy     *OrderBy
}

var referenceContentAll = &ReferenceContent{}

// ReferenceContentAll returns the shared all-references wildcard.
func ReferenceContentAll() *ReferenceContent { return referenceContentAll }

// ReferenceContentOptions configures NewReferenceContent. Zero values mean
// absent.
type ReferenceContentOptions struct {
	Names       []string
	Managed     ManagedReferencesBehaviour
	Attributes  *AttributeContent
	EntityFetch *EntityFetch
	GroupFetch  *EntityGroupFetch
	FilterBy    *FilterBy
	OrderBy     *OrderBy
}

// NewReferenceContent creates a reference requirement.
func NewReferenceContent(opts ReferenceContentOptions) (*ReferenceContent, error) {
	names, err := readNameSet("referenceContent", "reference name", Strings(opts.Names...))
	if err != nil {
		return nil, err
	}
	if opts.Managed != ManagedAny && opts.Managed != ManagedExisting {
		return nil, structureError("referenceContent", "invalid managed references behaviour %d", int(opts.Managed))
	}
	if len(names) != 1 && (opts.FilterBy != nil || opts.OrderBy != nil) {
		return nil, structureError("referenceContent", "filterBy and orderBy require exactly one reference name, got %d", len(names))
	}
	return &ReferenceContent{
		names:       names,
		managed:     opts.Managed,
		attributes:  opts.Attributes,
		entityFetch: opts.EntityFetch,
		groupFetch:  opts.GroupFetch,
		filterBy:    opts.FilterBy,
		orderBy:     opts.OrderBy,
	}, nil
}

func (*ReferenceContent) Name() string { return "referenceContent" }

// Arguments lists the managed behaviour (only when EXISTING) followed by the
// reference names.
func (r *ReferenceContent) Arguments() []Value {
	var out []Value
	if r.managed != ManagedAny {
		out = append(out, r.managed)
	}
	return append(out, Strings(r.names...)...)
}

func (r *ReferenceContent) Children() []Node {
	out := appendNode(nil, r.attributes)
	out = appendNode(out, r.entityFetch)
	return appendNode(out, r.groupFetch)
}

func (r *ReferenceContent) AdditionalChildren() []Node {
	return appendNode(appendNode(nil, r.filterBy), r.orderBy)
}

func (*ReferenceContent) IsApplicable() bool  { return true }
func (*ReferenceContent) contentRequirement() {}
func (*ReferenceContent) entityContent()      {}

// AllRequested reports whether this is the all-references wildcard.
func (r *ReferenceContent) AllRequested() bool { return r.names.all() }

// Names returns the reference names.
func (r *ReferenceContent) Names() []string { return slices.Clone(r.names) }

// Managed returns the managed references behaviour.
func (r *ReferenceContent) Managed() ManagedReferencesBehaviour { return r.managed }

// Attributes returns the reference attribute requirement, or nil.
func (r *ReferenceContent) Attributes() *AttributeContent { return r.attributes }

// EntityFetch returns the fetch applied to referenced entities, or nil.
func (r *ReferenceContent) EntityFetch() *EntityFetch { return r.entityFetch }

// GroupFetch returns the fetch applied to reference groups, or nil.
func (r *ReferenceContent) GroupFetch() *EntityGroupFetch { return r.groupFetch }

// FilterBy returns the filter narrowing returned references, or nil.
func (r *ReferenceContent) FilterBy() *FilterBy { return r.filterBy }

// OrderBy returns the ordering of returned references, or nil.
func (r *ReferenceContent) OrderBy() *OrderBy { return r.orderBy }

// CombinableWith reports whether both sides target the same reference names
// or either side is the wildcard.
func (r *ReferenceContent) CombinableWith(o *ReferenceContent) bool {
	return r.AllRequested() || o.AllRequested() || r.names.sameAs(o.names)
}

// CombineWith merges two reference requirements.
//
// Merging with the wildcard yields the wildcard; the named side must not
// carry a filterBy or orderBy, since applying it to every reference would
// change which references are returned. For equal names a filterBy or
// orderBy present on both sides must be identical. Sub-requirements are
// merged recursively and EXISTING wins over ANY.
func (r *ReferenceContent) CombineWith(o *ReferenceContent) (*ReferenceContent, error) {
	if !r.CombinableWith(o) {
		return nil, incombinableError(r, o, "reference names differ and neither side requests all references")
	}

	names := r.names
	filterBy, orderBy := r.filterBy, r.orderBy
	if r.AllRequested() || o.AllRequested() {
		named := o
		if o.AllRequested() {
			named = r
		}
		if named.filterBy != nil || named.orderBy != nil {
			return nil, incombinableError(r, o, "a filtered or ordered reference cannot be widened to all references")
		}
		names, filterBy, orderBy = nil, nil, nil
	} else {
		var err error
		if filterBy, err = sameOrPresent(r, o, r.filterBy, o.filterBy); err != nil {
			return nil, err
		}
		if orderBy, err = sameOrPresent(r, o, r.orderBy, o.orderBy); err != nil {
			return nil, err
		}
	}

	managed := max(r.managed, o.managed)

	var attributes *AttributeContent
	switch {
	case r.attributes == nil:
		attributes = o.attributes
	case o.attributes == nil:
		attributes = r.attributes
	default:
		attributes = r.attributes.CombineWith(o.attributes)
	}
	entityFetch, err := combineFetch(r.entityFetch, o.entityFetch)
	if err != nil {
		return nil, err
	}
	groupFetch, err := combineGroupFetch(r.groupFetch, o.groupFetch)
	if err != nil {
		return nil, err
	}

	result := &ReferenceContent{
		names:       names,
		managed:     managed,
		attributes:  attributes,
		entityFetch: entityFetch,
		groupFetch:  groupFetch,
		filterBy:    filterBy,
		orderBy:     orderBy,
	}
	if r.sameParts(result) {
		return r, nil
	}
	if o.sameParts(result) {
		return o, nil
	}
	return result, nil
}

func (r *ReferenceContent) sameParts(o *ReferenceContent) bool {
	return slices.Equal(r.names, o.names) &&
		r.managed == o.managed &&
		r.attributes == o.attributes &&
		r.entityFetch == o.entityFetch &&
		r.groupFetch == o.groupFetch &&
		r.filterBy == o.filterBy &&
		r.orderBy == o.orderBy
}

// sameOrPresent keeps a filter or ordering present on one side, and requires
// identical ones when both sides carry it.
func sameOrPresent[T Node](r, o *ReferenceContent, a, b T) (T, error) {
	switch {
	case isNil(a):
		return b, nil
	case isNil(b):
		return a, nil
	case Equal(a, b):
		return a, nil
	default:
		var zero T
		return zero, incombinableError(r, o, "attached "+a.Name()+" differs")
	}
}

// ContainedWithin reports whether o returns at least the references and
// reference data r does.
func (r *ReferenceContent) ContainedWithin(o *ReferenceContent) bool {
	if !r.CombinableWith(o) {
		return false
	}
	if !o.AllRequested() && r.AllRequested() {
		return false
	}
	if r.managed > o.managed {
		return false
	}
	if o.AllRequested() {
		if r.filterBy != nil || r.orderBy != nil {
			return false
		}
	} else if !Equal(r.filterBy, o.filterBy) || !Equal(r.orderBy, o.orderBy) {
		return false
	}
	if r.attributes != nil && (o.attributes == nil || !r.attributes.ContainedWithin(o.attributes)) {
		return false
	}
	return fetchContained(r.entityFetch, o.entityFetch) && groupFetchContained(r.groupFetch, o.groupFetch)
}

func registerReferenceContent() {
	register("referenceContent", CategoryRequire, func(args []Value, children, additional []Node) (Node, error) {
		r := newArgReader("referenceContent", args)
		opts := ReferenceContentOptions{
			Managed: optionalEnum(r, ParseManagedReferencesBehaviour, ManagedAny),
		}
		opts.Names = r.strings("reference name")
		if err := r.done(); err != nil {
			return nil, err
		}
		for _, c := range children {
			switch x := c.(type) {
			case *AttributeContent:
				if opts.Attributes != nil {
					return nil, structureError("referenceContent", "at most one attributeContent is allowed")
				}
				opts.Attributes = x
			case *EntityFetch:
				if opts.EntityFetch != nil {
					return nil, structureError("referenceContent", "at most one entityFetch is allowed")
				}
				opts.EntityFetch = x
			case *EntityGroupFetch:
				if opts.GroupFetch != nil {
					return nil, structureError("referenceContent", "at most one entityGroupFetch is allowed")
				}
				opts.GroupFetch = x
			default:
				return nil, structureError("referenceContent", "%s is not allowed here", Format(c))
			}
		}
		for _, a := range additional {
			switch x := a.(type) {
			case *FilterBy:
				if opts.FilterBy != nil {
					return nil, structureError("referenceContent", "at most one filterBy is allowed")
				}
				opts.FilterBy = x
			case *OrderBy:
				if opts.OrderBy != nil {
					return nil, structureError("referenceContent", "at most one orderBy is allowed")
				}
				opts.OrderBy = x
			default:
				return nil, structureError("referenceContent", "%s is not allowed as additional child", Format(a))
			}
		}
		if len(opts.Names) == 0 && opts.Managed == ManagedAny && opts.Attributes == nil &&
			opts.EntityFetch == nil && opts.GroupFetch == nil {
			return referenceContentAll, nil
		}
		return NewReferenceContent(opts)
	})
}
