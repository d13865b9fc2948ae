package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/requery/internal/query"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedType = "E200" // unsupported value for validation

	// Query errors (E201-E209)
	ErrBlankCollection         = "E201" // collection is required
	ErrFacetRuleWithoutSummary = "E202" // facet relation rule without a facet summary
	ErrConflictingLocales      = "E203" // more than one entity locale
	ErrPriceWithoutFilter      = "E204" // price ordering or histogram without price filter
	ErrShadowedFacetRule       = "E205" // facet rule that can never apply
	ErrInapplicableDirective   = "E206" // directive that would be pruned
	ErrDuplicateHierarchyRef   = "E207" // reference in more than one hierarchyOfReference
)

// ValidationError represents a semantic validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks tree-wide rules that single directive construction
// cannot see. Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch q := v.(type) {
	case *query.Query:
		return validateQuery(q)
	case query.Query:
		return validateQuery(&q)
	case Compiled:
		return prefixErrors(validateQuery(q.Query), "query."+q.Name+".")
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func prefixErrors(errs []ValidationError, prefix string) []ValidationError {
	for i := range errs {
		errs[i].Field = prefix + errs[i].Field
	}
	return errs
}

func validateQuery(q *query.Query) []ValidationError {
	var errs []ValidationError

	// E201: collection is required
	if strings.TrimSpace(q.Collection) == "" {
		errs = append(errs, ValidationError{
			Field:   "collection",
			Message: "collection is required and must be non-empty",
			Code:    ErrBlankCollection,
		})
	}

	// E206: inapplicable directives
	for _, root := range q.Roots() {
		query.Walk(root, func(n query.Node) bool {
			if !n.IsApplicable() {
				errs = append(errs, ValidationError{
					Field:   root.Name(),
					Message: fmt.Sprintf("%s is empty and would be dropped", query.Format(n)),
					Code:    ErrInapplicableDirective,
				})
				return false
			}
			return true
		})
	}

	errs = append(errs, validateFilter(q)...)
	errs = append(errs, validateRequire(q)...)
	return errs
}

type filterFacts struct {
	locales       []string
	priceFiltered bool
}

func collectFilterFacts(f *query.FilterBy) filterFacts {
	var facts filterFacts
	if f == nil {
		return facts
	}
	query.Walk(f, func(n query.Node) bool {
		switch x := n.(type) {
		case *query.ReferenceHaving, *query.FacetHaving:
			return false
		case *query.EntityLocaleEquals:
			tag := x.Locale().String()
			if !slices.Contains(facts.locales, tag) {
				facts.locales = append(facts.locales, tag)
			}
		case *query.PriceInPriceLists, *query.PriceInCurrency:
			facts.priceFiltered = true
		}
		return true
	})
	return facts
}

func validateFilter(q *query.Query) []ValidationError {
	var errs []ValidationError
	facts := collectFilterFacts(q.FilterBy)

	// E203: entities are queried in one locale
	if len(facts.locales) > 1 {
		errs = append(errs, ValidationError{
			Field:   "filterBy",
			Message: fmt.Sprintf("entityLocaleEquals used with different locales: %s", strings.Join(facts.locales, ", ")),
			Code:    ErrConflictingLocales,
		})
	}

	// E204: price ordering needs a price filter
	if q.OrderBy != nil && !facts.priceFiltered {
		query.Walk(q.OrderBy, func(n query.Node) bool {
			if _, ok := n.(*query.PriceNatural); ok {
				errs = append(errs, ValidationError{
					Field:   "orderBy",
					Message: "priceNatural requires priceInPriceLists or priceInCurrency in filterBy",
					Code:    ErrPriceWithoutFilter,
				})
			}
			return true
		})
	}
	return errs
}

func validateRequire(q *query.Query) []ValidationError {
	var errs []ValidationError
	if q.Require == nil {
		return errs
	}
	facts := collectFilterFacts(q.FilterBy)

	// E204: price histogram needs a price filter
	if _, ok := query.Find[*query.PriceHistogram](q.Require); ok && !facts.priceFiltered {
		errs = append(errs, ValidationError{
			Field:   "require",
			Message: "priceHistogram requires priceInPriceLists or priceInCurrency in filterBy",
			Code:    ErrPriceWithoutFilter,
		})
	}

	_, summaryForAll := query.Find[*query.FacetSummary](q.Require)
	summarized := make(map[string]bool)
	for _, s := range query.FindAll[*query.FacetSummaryOfReference](q.Require) {
		summarized[s.Reference()] = true
	}

	type ruleKey struct {
		reference string
		level     query.FacetGroupRelationLevel
	}
	catchAll := make(map[ruleKey]query.FacetGroupsRule)
	for i, rule := range query.FindAll[query.FacetGroupsRule](q.Require) {
		field := fmt.Sprintf("require.%s[%d]", rule.Name(), i)

		// E202: facet rules only affect facet summaries
		if !summaryForAll && !summarized[rule.Reference()] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("no facetSummary covers reference %q", rule.Reference()),
				Code:    ErrFacetRuleWithoutSummary,
			})
		}

		// E205: an earlier unfiltered rule for the same reference and level wins
		key := ruleKey{rule.Reference(), rule.Level()}
		if prev, ok := catchAll[key]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("never applies: %s already covers every group of %q", prev.Name(), rule.Reference()),
				Code:    ErrShadowedFacetRule,
			})
			continue
		}
		if rule.Filter() == nil {
			catchAll[key] = rule
		}
	}

	// E207: one hierarchy container per reference
	seen := make(map[string]bool)
	for i, h := range query.FindAll[*query.HierarchyOfReference](q.Require) {
		for _, ref := range h.References() {
			if seen[ref] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("require.hierarchyOfReference[%d]", i),
					Message: fmt.Sprintf("reference %q already has a hierarchyOfReference", ref),
					Code:    ErrDuplicateHierarchyRef,
				})
			}
			seen[ref] = true
		}
	}
	return errs
}
