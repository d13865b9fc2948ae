package query

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// buildFunc reconstructs a directive from its parts.
type buildFunc func(args []Value, children, additional []Node) (Node, error)

type kind struct {
	category Category
	build    buildFunc
}

var kinds map[string]kind

func register(name string, category Category, build buildFunc) {
	kinds[name] = kind{category: category, build: build}
}

// Build constructs the directive registered under name from scalar arguments
// and pre-built children. It runs the same structural validation as the typed
// constructors and fails with a constraint structure error on violation.
//
// Build is the entry point for upstream builders that only know classifiers,
// such as the CUE compiler.
func Build(name string, args []Value, children, additional []Node) (Node, error) {
	k, ok := kinds[name]
	if !ok {
		return nil, structureError(name, "unknown directive")
	}
	for i, c := range children {
		if isNil(c) {
			return nil, structureError(name, "child %d is nil", i)
		}
	}
	for i, c := range additional {
		if isNil(c) {
			return nil, structureError(name, "additional child %d is nil", i)
		}
	}
	return k.build(args, children, additional)
}

// CategoryOf returns the category of the directive registered under name.
func CategoryOf(name string) (Category, bool) {
	k, ok := kinds[name]
	return k.category, ok
}

// Names returns all registered classifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// WithArguments returns a new node of the same kind as n with args replacing
// its arguments. Children are kept.
func WithArguments(n Node, args []Value) (Node, error) {
	return Build(n.Name(), args, ChildrenOf(n), AdditionalChildrenOf(n))
}

// WithChildren returns a new node of the same kind as n with its children
// replaced. Arguments are kept.
func WithChildren(n Node, children, additional []Node) (Node, error) {
	if _, ok := n.(Container); !ok && (len(children) > 0 || len(additional) > 0) {
		return nil, structureError(n.Name(), "leaf directive cannot have children")
	}
	return Build(n.Name(), n.Arguments(), children, additional)
}

// argReader decodes positional arguments. The first failure sticks; callers
// check err once after reading everything.
type argReader struct {
	name string
	args []Value
	pos  int
	err  error
}

func newArgReader(name string, args []Value) *argReader {
	return &argReader{name: name, args: args}
}

func (r *argReader) fail(format string, a ...any) {
	if r.err == nil {
		r.err = structureError(r.name, format, a...)
	}
}

func (r *argReader) more() bool {
	return r.err == nil && r.pos < len(r.args)
}

func (r *argReader) next(what string) (Value, bool) {
	if r.err != nil {
		return nil, false
	}
	if r.pos >= len(r.args) {
		r.fail("missing %s argument", what)
		return nil, false
	}
	v := r.args[r.pos]
	r.pos++
	return v, true
}

func (r *argReader) string(what string) string {
	v, ok := r.next(what)
	if !ok {
		return ""
	}
	s, ok := v.(String)
	if !ok {
		r.fail("%s must be a string, got %s", what, FormatValue(v))
		return ""
	}
	if strings.TrimSpace(string(s)) == "" {
		r.fail("%s must not be blank", what)
	}
	return string(s)
}

// optionalString reads a string if one is next, possibly blank.
func (r *argReader) optionalString() string {
	if !r.more() {
		return ""
	}
	if s, ok := r.args[r.pos].(String); ok {
		r.pos++
		return string(s)
	}
	return ""
}

func (r *argReader) int(what string) int64 {
	v, ok := r.next(what)
	if !ok {
		return 0
	}
	n, ok := v.(Int)
	if !ok {
		r.fail("%s must be an integer, got %s", what, FormatValue(v))
		return 0
	}
	return int64(n)
}

func (r *argReader) any(what string) Value {
	v, _ := r.next(what)
	return v
}

func (r *argReader) strings(what string) []string {
	var out []string
	for r.more() {
		out = append(out, r.string(what))
	}
	return out
}

func (r *argReader) ints(what string) []int64 {
	var out []int64
	for r.more() {
		out = append(out, r.int(what))
	}
	return out
}

func (r *argReader) rest() []Value {
	if r.err != nil {
		return nil
	}
	out := slices.Clone(r.args[r.pos:])
	r.pos = len(r.args)
	return out
}

// locale accepts a Locale or a String holding a BCP 47 tag.
func (r *argReader) locale(what string) language.Tag {
	v, ok := r.next(what)
	if !ok {
		return language.Und
	}
	switch x := v.(type) {
	case Locale:
		return x.Tag
	case String:
		tag, err := language.Parse(string(x))
		if err != nil {
			r.fail("%s %q is not a valid locale: %v", what, string(x), err)
			return language.Und
		}
		return tag
	default:
		r.fail("%s must be a locale, got %s", what, FormatValue(v))
		return language.Und
	}
}

func (r *argReader) locales(what string) []language.Tag {
	var out []language.Tag
	for r.more() {
		out = append(out, r.locale(what))
	}
	return out
}

// time accepts a Time or a String in RFC 3339 format.
func (r *argReader) time(what string) time.Time {
	v, ok := r.next(what)
	if !ok {
		return time.Time{}
	}
	switch x := v.(type) {
	case Time:
		return x.Time
	case String:
		t, err := time.Parse(time.RFC3339Nano, string(x))
		if err != nil {
			r.fail("%s %q is not an RFC 3339 time", what, string(x))
			return time.Time{}
		}
		return t
	default:
		r.fail("%s must be a time, got %s", what, FormatValue(v))
		return time.Time{}
	}
}

func (r *argReader) done() error {
	if r.err == nil && r.pos < len(r.args) {
		r.fail("unexpected argument %s", FormatValue(r.args[r.pos]))
	}
	return r.err
}

// optionalEnum consumes the next argument when it is an E, or a String naming
// one, and otherwise returns def without consuming anything.
func optionalEnum[E Value](r *argReader, parse func(string) (E, bool), def E) E {
	if !r.more() {
		return def
	}
	if v, ok := r.args[r.pos].(E); ok {
		r.pos++
		return v
	}
	if s, ok := r.args[r.pos].(String); ok {
		if v, ok := parse(string(s)); ok {
			r.pos++
			return v
		}
	}
	return def
}

func requiredEnum[E Value](r *argReader, what string, parse func(string) (E, bool)) E {
	var zero E
	v, ok := r.next(what)
	if !ok {
		return zero
	}
	if e, ok := v.(E); ok {
		return e
	}
	if s, ok := v.(String); ok {
		if e, ok := parse(string(s)); ok {
			return e
		}
	}
	r.fail("%s has invalid value %s", what, FormatValue(v))
	return zero
}

func enumsOf[E Value](r *argReader, what string, parse func(string) (E, bool)) []E {
	var out []E
	for r.more() {
		out = append(out, requiredEnum(r, what, parse))
	}
	return out
}

// noChildren rejects children for leaf directives.
func noChildren(name string, children, additional []Node) error {
	if len(children) > 0 || len(additional) > 0 {
		return structureError(name, "leaf directive cannot have children")
	}
	return nil
}

func requireCategory(name string, c Category, nodes []Node) error {
	for _, n := range nodes {
		if n.Category() != c {
			return structureError(name, "%s is not a %s directive", Format(n), c)
		}
	}
	return nil
}

func uniqueStrings(name, what string, values []string) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return structureError(name, "duplicate %s %q", what, v)
		}
		seen[v] = true
	}
	return nil
}

func init() {
	kinds = make(map[string]kind)
	registerFilters()
	registerOrders()
	registerRequires()
	registerContent()
	registerHierarchy()
	registerFacets()
}
