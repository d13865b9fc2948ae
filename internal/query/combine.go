package query

// Combinable reports whether a and b describe the same kind of data and may
// be merged. Reference content is additionally keyed by its reference names.
func Combinable(a, b ContentRequirement) bool {
	switch x := a.(type) {
	case *EntityFetch:
		_, ok := b.(*EntityFetch)
		return ok
	case *EntityGroupFetch:
		_, ok := b.(*EntityGroupFetch)
		return ok
	case EntityContent:
		y, ok := b.(EntityContent)
		return ok && combinableContent(x, y)
	default:
		return false
	}
}

func combinableContent(a, b EntityContent) bool {
	switch x := a.(type) {
	case *AttributeContent:
		_, ok := b.(*AttributeContent)
		return ok
	case *AssociatedDataContent:
		_, ok := b.(*AssociatedDataContent)
		return ok
	case *DataInLocales:
		_, ok := b.(*DataInLocales)
		return ok
	case *PriceContent:
		_, ok := b.(*PriceContent)
		return ok
	case *HierarchyContent:
		_, ok := b.(*HierarchyContent)
		return ok
	case *ReferenceContent:
		y, ok := b.(*ReferenceContent)
		return ok && x.CombinableWith(y)
	default:
		return false
	}
}

// Combine merges a and b into one requirement describing the union of both.
// Inputs are never modified; when one side already covers the other it may be
// returned as is.
//
// Combining requirements that are not Combinable fails with an incombinable
// directive error. Hierarchy content with different explicit stop conditions
// fails with a conflicting directive error.
func Combine(a, b ContentRequirement) (ContentRequirement, error) {
	switch x := a.(type) {
	case *EntityFetch:
		y, ok := b.(*EntityFetch)
		if !ok {
			return nil, incombinableError(a, b, "different directive kinds")
		}
		r, err := x.CombineWith(y)
		if err != nil {
			return nil, err
		}
		return r, nil
	case *EntityGroupFetch:
		y, ok := b.(*EntityGroupFetch)
		if !ok {
			return nil, incombinableError(a, b, "different directive kinds")
		}
		r, err := x.CombineWith(y)
		if err != nil {
			return nil, err
		}
		return r, nil
	case EntityContent:
		y, ok := b.(EntityContent)
		if !ok {
			return nil, incombinableError(a, b, "different directive kinds")
		}
		r, err := combineContent(x, y)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, incombinableError(a, b, "unsupported directive")
	}
}

func combineContent(a, b EntityContent) (EntityContent, error) {
	if !combinableContent(a, b) {
		if x, ok := a.(*ReferenceContent); ok {
			if y, ok := b.(*ReferenceContent); ok {
				return nil, incombinableError(x, y, "reference names differ and neither side requests all references")
			}
		}
		return nil, incombinableError(a, b, "different directive kinds")
	}
	switch x := a.(type) {
	case *AttributeContent:
		return x.CombineWith(b.(*AttributeContent)), nil
	case *AssociatedDataContent:
		return x.CombineWith(b.(*AssociatedDataContent)), nil
	case *DataInLocales:
		return x.CombineWith(b.(*DataInLocales)), nil
	case *PriceContent:
		return x.CombineWith(b.(*PriceContent)), nil
	case *HierarchyContent:
		r, err := x.CombineWith(b.(*HierarchyContent))
		if err != nil {
			return nil, err
		}
		return r, nil
	case *ReferenceContent:
		r, err := x.CombineWith(b.(*ReferenceContent))
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, incombinableError(a, b, "unsupported directive")
	}
}

// ContainedWithin reports whether a is redundant given b: satisfying b
// necessarily satisfies a. Requirements that are not Combinable are never
// contained in each other.
func ContainedWithin(a, b ContentRequirement) bool {
	if !Combinable(a, b) {
		return false
	}
	switch x := a.(type) {
	case *EntityFetch:
		return x.ContainedWithin(b.(*EntityFetch))
	case *EntityGroupFetch:
		return x.ContainedWithin(b.(*EntityGroupFetch))
	case *AttributeContent:
		return x.ContainedWithin(b.(*AttributeContent))
	case *AssociatedDataContent:
		return x.ContainedWithin(b.(*AssociatedDataContent))
	case *DataInLocales:
		return x.ContainedWithin(b.(*DataInLocales))
	case *PriceContent:
		return x.ContainedWithin(b.(*PriceContent))
	case *HierarchyContent:
		return x.ContainedWithin(b.(*HierarchyContent))
	case *ReferenceContent:
		return x.ContainedWithin(b.(*ReferenceContent))
	default:
		return false
	}
}

// Equivalent reports whether a and b are contained in each other.
func Equivalent(a, b ContentRequirement) bool {
	return ContainedWithin(a, b) && ContainedWithin(b, a)
}
