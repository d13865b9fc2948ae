package request

import (
	"time"

	"golang.org/x/text/language"

	"github.com/roach88/requery/internal/query"
)

// DefaultPageSize is the page size used when the query requests no paging.
const DefaultPageSize = 20

// ResultForm says how the result window was requested.
type ResultForm int

const (
	// PaginatedList results come from page(number, size) or the default page.
	PaginatedList ResultForm = iota
	// StripList results come from strip(offset, limit).
	StripList
)

func (f ResultForm) String() string {
	if f == StripList {
		return "STRIP_LIST"
	}
	return "PAGINATED_LIST"
}

// RequirementContext collects what a referenceContent asks for the
// referenced entities of one reference.
type RequirementContext struct {
	EntityFetch *query.EntityFetch
	GroupFetch  *query.EntityGroupFetch
	FilterBy    *query.FilterBy
	OrderBy     *query.OrderBy
	Managed     query.ManagedReferencesBehaviour
}

// Request is the resolved view of a query.
type Request struct {
	q *query.Query

	fetch          *query.EntityFetch
	attributes     *query.AttributeContent
	associatedData *query.AssociatedDataContent
	locales        *query.DataInLocales
	prices         *query.PriceContent
	hierarchy      *query.HierarchyContent
	references     []*query.ReferenceContent

	locale       *query.EntityLocaleEquals
	primaryKeys  *query.EntityPrimaryKeyInSet
	priceLists   *query.PriceInPriceLists
	currency     *query.PriceInCurrency
	priceValidIn *query.PriceValidIn

	form   ResultForm
	limit  int
	offset int

	facets *facetRules
}

// New derives the view of q. q is expected to be finalized by the planner
// but any valid query works.
func New(q *query.Query) *Request {
	r := &Request{q: q}
	r.scanFilter()
	r.scanRequire()
	return r
}

func (r *Request) scanFilter() {
	if r.q.FilterBy == nil {
		return
	}
	query.Walk(r.q.FilterBy, func(n query.Node) bool {
		switch x := n.(type) {
		case *query.ReferenceHaving, *query.FacetHaving:
			return false
		case *query.EntityLocaleEquals:
			r.locale = first(r.locale, x)
		case *query.EntityPrimaryKeyInSet:
			r.primaryKeys = first(r.primaryKeys, x)
		case *query.PriceInPriceLists:
			r.priceLists = first(r.priceLists, x)
		case *query.PriceInCurrency:
			r.currency = first(r.currency, x)
		case *query.PriceValidIn:
			r.priceValidIn = first(r.priceValidIn, x)
		}
		return true
	})
}

func first[T any](current *T, candidate *T) *T {
	if current != nil {
		return current
	}
	return candidate
}

func (r *Request) scanRequire() {
	r.form, r.limit, r.offset = PaginatedList, DefaultPageSize, 0
	r.facets = newFacetRules(r.q.Require)
	if r.q.Require == nil {
		return
	}

	if page, ok := query.Find[*query.Page](r.q.Require); ok {
		r.limit = page.Size()
		r.offset = (page.Number() - 1) * page.Size()
	} else if strip, ok := query.Find[*query.Strip](r.q.Require); ok {
		r.form = StripList
		r.limit = strip.Limit()
		r.offset = strip.Offset()
	}

	r.fetch = r.q.Require.EntityFetch()
	if r.fetch == nil {
		return
	}
	for _, c := range r.fetch.Content() {
		switch x := c.(type) {
		case *query.AttributeContent:
			r.attributes = x
		case *query.AssociatedDataContent:
			r.associatedData = x
		case *query.DataInLocales:
			r.locales = x
		case *query.PriceContent:
			r.prices = x
		case *query.HierarchyContent:
			r.hierarchy = x
		case *query.ReferenceContent:
			r.references = append(r.references, x)
		}
	}
}

// Query returns the underlying query.
func (r *Request) Query() *query.Query { return r.q }

// Collection returns the queried collection.
func (r *Request) Collection() string { return r.q.Collection }

// RequiresEntity reports whether entity bodies are fetched at all.
func (r *Request) RequiresEntity() bool { return r.fetch != nil }

// EntityFetch returns the entity fetch of the require tree, or nil.
func (r *Request) EntityFetch() *query.EntityFetch { return r.fetch }

// RequiresAttributes reports whether any attributes are fetched.
func (r *Request) RequiresAttributes() bool { return r.attributes != nil }

// AttributeSet returns the fetched attribute names. An empty set together
// with RequiresAttributes means all attributes.
func (r *Request) AttributeSet() []string {
	if r.attributes == nil {
		return nil
	}
	return r.attributes.Names()
}

// RequiresAssociatedData reports whether any associated data is fetched.
func (r *Request) RequiresAssociatedData() bool { return r.associatedData != nil }

// AssociatedDataSet returns the fetched associated data names. Empty means
// all when RequiresAssociatedData is true.
func (r *Request) AssociatedDataSet() []string {
	if r.associatedData == nil {
		return nil
	}
	return r.associatedData.Names()
}

// RequiresReferences reports whether any references are fetched.
func (r *Request) RequiresReferences() bool { return len(r.references) > 0 }

// ReferenceSet returns the names of fetched references. Nil with
// RequiresReferences means all references.
func (r *Request) ReferenceSet() []string {
	var out []string
	for _, ref := range r.references {
		if ref.AllRequested() {
			return nil
		}
		out = append(out, ref.Names()...)
	}
	return out
}

// ReferenceContexts maps every named reference to what is requested for its
// referenced entities.
func (r *Request) ReferenceContexts() map[string]RequirementContext {
	out := make(map[string]RequirementContext)
	for _, ref := range r.references {
		ctx := RequirementContext{
			EntityFetch: ref.EntityFetch(),
			GroupFetch:  ref.GroupFetch(),
			FilterBy:    ref.FilterBy(),
			OrderBy:     ref.OrderBy(),
			Managed:     ref.Managed(),
		}
		for _, name := range ref.Names() {
			out[name] = ctx
		}
	}
	return out
}

// RequiresParent reports whether hierarchy placement is fetched.
func (r *Request) RequiresParent() bool { return r.hierarchy != nil }

// HierarchyContent returns the hierarchy requirement, or nil.
func (r *Request) HierarchyContent() *query.HierarchyContent { return r.hierarchy }

// PriceMode returns the price fetch mode, NONE when prices are not requested.
func (r *Request) PriceMode() query.PriceContentMode {
	if r.prices == nil {
		return query.PriceModeNone
	}
	return r.prices.Mode()
}

// AdditionalPriceLists returns price lists fetched on top of the mode.
func (r *Request) AdditionalPriceLists() []string {
	if r.prices == nil {
		return nil
	}
	return r.prices.AdditionalPriceLists()
}

// Locale returns the locale the filter restricts entities to.
func (r *Request) Locale() (language.Tag, bool) {
	if r.locale == nil {
		return language.Und, false
	}
	return r.locale.Locale(), true
}

// RequiredLocales returns the locales whose localized data is fetched. An
// explicit dataInLocales wins; otherwise the filtered locale applies. When
// dataInLocales requests all locales, the result is nil and all is true.
func (r *Request) RequiredLocales() (tags []language.Tag, all bool) {
	if r.locales != nil {
		if r.locales.AllRequested() {
			return nil, true
		}
		return r.locales.Locales(), false
	}
	if tag, ok := r.Locale(); ok {
		return []language.Tag{tag}, false
	}
	return nil, false
}

// PrimaryKeys returns the primary keys the filter restricts entities to.
func (r *Request) PrimaryKeys() []int64 {
	if r.primaryKeys == nil {
		return nil
	}
	return r.primaryKeys.Keys()
}

// RequiresPriceLists reports whether the filter names price lists.
func (r *Request) RequiresPriceLists() bool { return r.priceLists != nil }

// PriceLists returns the price lists named by the filter.
func (r *Request) PriceLists() []string {
	if r.priceLists == nil {
		return nil
	}
	return r.priceLists.PriceLists()
}

// Currency returns the currency the filter restricts prices to.
func (r *Request) Currency() (string, bool) {
	if r.currency == nil {
		return "", false
	}
	return r.currency.Currency(), true
}

// PriceValidIn returns the moment prices must be valid in.
func (r *Request) PriceValidIn() (time.Time, bool) {
	if r.priceValidIn == nil {
		return time.Time{}, false
	}
	return r.priceValidIn.Moment(), true
}

// ResultForm returns how the result window was requested.
func (r *Request) ResultForm() ResultForm { return r.form }

// Limit returns the number of records in the result window.
func (r *Request) Limit() int { return r.limit }

// FirstRecordOffset returns the offset of the first returned record. An
// offset at or past the end of the result resets to zero.
func (r *Request) FirstRecordOffset(total int) int {
	if r.offset >= total {
		return 0
	}
	return r.offset
}

// PageNumber returns the page number reported with a paginated result of
// total records, computed from the effective offset.
func (r *Request) PageNumber(total int) int {
	if r.limit == 0 {
		return 1
	}
	return r.FirstRecordOffset(total)/r.limit + 1
}
