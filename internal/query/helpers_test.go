package query

import (
	"testing"

	"golang.org/x/text/language"
)

// must unwraps a constructor result in fixtures; construction errors there
// are bugs in the test itself.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func attrs(t *testing.T, names ...string) *AttributeContent {
	return must(NewAttributeContent(names...))
}

func prices(t *testing.T, mode PriceContentMode, lists ...string) *PriceContent {
	return must(NewPriceContent(mode, lists...))
}

func locales(t *testing.T, tags ...string) *DataInLocales {
	parsed := make([]language.Tag, len(tags))
	for i, s := range tags {
		parsed[i] = language.MustParse(s)
	}
	return must(NewDataInLocales(parsed...))
}

func refs(t *testing.T, opts ReferenceContentOptions) *ReferenceContent {
	return must(NewReferenceContent(opts))
}

func fetch(t *testing.T, content ...EntityContent) *EntityFetch {
	return must(NewEntityFetch(content...))
}

func filterBy(t *testing.T, children ...Node) *FilterBy {
	return must(NewFilterBy(children...))
}

func attrEq(t *testing.T, name string, v Value) *AttributeEquals {
	return must(NewAttributeEquals(name, v))
}

func stopAtDistance(t *testing.T, n int) *StopAt {
	return must(NewStopAt(must(NewDistance(n))))
}

func stopAtLevel(t *testing.T, n int) *StopAt {
	return must(NewStopAt(must(NewLevel(n))))
}
