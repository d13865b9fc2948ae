package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format renders n in query-language notation:
//
//	entityFetch(attributeContent('code','name'),priceContent(RESPECTING_FILTER))
//
// Arguments come first, then primary children, then additional children.
// A nil node renders as the empty string.
func Format(n Node) string {
	if isNil(n) {
		return ""
	}
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	b.WriteString(n.Name())
	b.WriteByte('(')
	first := true
	sep := func() {
		if !first {
			b.WriteByte(',')
		}
		first = false
	}
	for _, a := range n.Arguments() {
		sep()
		b.WriteString(FormatValue(a))
	}
	for _, c := range ChildrenOf(n) {
		sep()
		writeNode(b, c)
	}
	for _, c := range AdditionalChildrenOf(n) {
		sep()
		writeNode(b, c)
	}
	b.WriteByte(')')
}

// FormatValue renders a single argument.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case String:
		return quote(string(x))
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Bool:
		return strconv.FormatBool(bool(x))
	case Time:
		return x.UTC().Format(time.RFC3339Nano)
	case Locale:
		return quote(x.Tag.String())
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
