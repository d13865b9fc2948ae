package query

import (
	"time"

	"golang.org/x/text/language"
)

// Value is a sealed interface for directive arguments.
// Only String, Int, Bool, Time, Locale and the enums in enums.go implement it.
// Arguments are always scalars, never nested nodes.
type Value interface {
	value() // Sealed - only these types implement it
}

// String is a string argument.
type String string

func (String) value() {}

// Int is an integer argument. There are no float arguments.
type Int int64

func (Int) value() {}

// Bool is a boolean argument.
type Bool bool

func (Bool) value() {}

// Time is a point-in-time argument (priceValidIn).
type Time struct {
	time.Time
}

func (Time) value() {}

// Locale is a BCP 47 language tag argument.
type Locale struct {
	Tag language.Tag
}

func (Locale) value() {}

// Strings converts names to String arguments.
func Strings(names ...string) []Value {
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = String(n)
	}
	return out
}

func valueEqual(a, b Value) bool {
	switch x := a.(type) {
	case Time:
		y, ok := b.(Time)
		return ok && x.Equal(y.Time)
	case Locale:
		y, ok := b.(Locale)
		return ok && x.Tag.String() == y.Tag.String()
	default:
		return a == b
	}
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
