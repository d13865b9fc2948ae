package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/roach88/requery/internal/ir"
)

func TestEncodeShape(t *testing.T) {
	n := refs(t, ReferenceContentOptions{
		Names:    []string{"brand"},
		Managed:  ManagedExisting,
		FilterBy: filterBy(t, must(NewEntityLocaleEquals(language.Czech))),
	})

	data, err := ir.Marshal(Encode(n))
	require.NoError(t, err)
	assert.Equal(t,
		`{"additional":[{"children":[{"args":[{"locale":"cs"}],"name":"entityLocaleEquals"}],"name":"filterBy"}],"args":[{"enum":"EXISTING"},"brand"],"name":"referenceContent"}`,
		string(data))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, n := range sampleNodes(t) {
		t.Run(Format(n), func(t *testing.T) {
			data, err := ir.Marshal(Encode(n))
			require.NoError(t, err)

			v, err := ir.Unmarshal(data)
			require.NoError(t, err)
			decoded, err := Decode(v)
			require.NoError(t, err)
			assert.Equal(t, Format(n), Format(decoded))

			h1, err := Hash(n)
			require.NoError(t, err)
			h2, err := Hash(decoded)
			require.NoError(t, err)
			assert.Equal(t, h1, h2)
		})
	}
}

func TestHashDistinguishesTrees(t *testing.T) {
	a, err := Hash(attrs(t, "code"))
	require.NoError(t, err)
	b, err := Hash(attrs(t, "name"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestQueryEncodeDecode(t *testing.T) {
	q := must(NewQuery("product",
		filterBy(t, attrEq(t, "code", String("phone"))),
		must(NewOrderBy(must(NewPriceNatural(Desc)))),
		must(NewRequire(fetch(t, prices(t, PriceModeAll)))),
	))

	decoded, err := DecodeQuery(q.Encode())
	require.NoError(t, err)
	assert.Equal(t, q.String(), decoded.String())

	h1, err := q.Hash()
	require.NoError(t, err)
	h2, err := decoded.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input ir.Value
	}{
		{"not an object", ir.String("x")},
		{"missing name", ir.Object{}},
		{"args not an array", ir.Object{"name": ir.String("page"), "args": ir.Int(1)}},
		{"invalid directive", ir.Object{"name": ir.String("page"), "args": ir.Array{ir.Int(0), ir.Int(1)}}},
		{"unknown argument object", ir.Object{"name": ir.String("attributeContent"), "args": ir.Array{ir.Object{"x": ir.Int(1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.Error(t, err)
		})
	}
}
