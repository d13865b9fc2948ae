package compiler

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/language"

	"github.com/roach88/requery/internal/query"
)

// Compiled is one named query of a document.
type Compiled struct {
	Name  string
	Query *query.Query
	Pos   token.Pos
}

// CompileSource compiles every query of a CUE document given as text.
// filename is used in error positions only.
func CompileSource(filename, src string) ([]Compiled, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return CompileAll(v)
}

// CompileAll compiles every query under the top-level `query` struct of v in
// declaration order. All errors are collected; queries that compile are
// returned even when others fail.
func CompileAll(v cue.Value) ([]Compiled, []error) {
	queries := v.LookupPath(cue.ParsePath("query"))
	if !queries.Exists() {
		return nil, nil
	}
	iter, err := queries.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var out []Compiled
	var errs []error
	for iter.Next() {
		name := iter.Selector().Unquoted()
		q, err := CompileQuery(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, Compiled{Name: name, Query: q, Pos: iter.Value().Pos()})
	}
	return out, errs
}

// CompileQuery builds a query from a CUE value of the form
//
//	{
//		collection: "product"
//		filterBy: [{attributeEquals: ["code", "A"]}]
//		orderBy: [{attributeNatural: ["name", "DESC"]}]
//		require: [{entityFetch: children: [{attributeContent: ["code"]}]}, {page: [1, 20]}]
//	}
//
// Each directive is a single-field struct keyed by its classifier. The field
// holds either the argument list or a struct with args, children and
// additional lists.
func CompileQuery(v cue.Value) (*query.Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	prefix := fieldPrefix(v)

	collVal := v.LookupPath(cue.ParsePath("collection"))
	if !collVal.Exists() {
		return nil, &CompileError{
			Field:   prefix + "collection",
			Message: "collection is required",
			Pos:     v.Pos(),
		}
	}
	collection, err := collVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	filterBy, err := compileRoot[*query.FilterBy](v, prefix, "filterBy", func(c []query.Node) (*query.FilterBy, error) {
		return query.NewFilterBy(c...)
	})
	if err != nil {
		return nil, err
	}
	orderBy, err := compileRoot[*query.OrderBy](v, prefix, "orderBy", func(c []query.Node) (*query.OrderBy, error) {
		return query.NewOrderBy(c...)
	})
	if err != nil {
		return nil, err
	}
	require, err := compileRoot[*query.Require](v, prefix, "require", func(c []query.Node) (*query.Require, error) {
		return query.NewRequire(c...)
	})
	if err != nil {
		return nil, err
	}

	q, err := query.NewQuery(collection, filterBy, orderBy, require)
	if err != nil {
		return nil, &CompileError{Field: prefix + "collection", Message: err.Error(), Pos: collVal.Pos(), Err: err}
	}
	return q, nil
}

func fieldPrefix(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return v.Path().String() + "."
}

// compileRoot compiles the optional list field name of v into a root tree.
func compileRoot[T query.Node](v cue.Value, prefix, name string, build func([]query.Node) (T, error)) (T, error) {
	var zero T
	field := v.LookupPath(cue.ParsePath(name))
	if !field.Exists() {
		return zero, nil
	}
	children, err := compileNodes(field, prefix+name)
	if err != nil {
		return zero, err
	}
	root, err := build(children)
	if err != nil {
		return zero, &CompileError{Field: prefix + name, Message: err.Error(), Pos: field.Pos(), Err: err}
	}
	return root, nil
}

func compileNodes(v cue.Value, field string) ([]query.Node, error) {
	if v.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a list of directives, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []query.Node
	for i := 0; iter.Next(); i++ {
		n, err := compileNode(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func compileNode(v cue.Value, field string) (query.Node, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: "directive must be a struct keyed by its classifier", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var name string
	var body cue.Value
	count := 0
	for iter.Next() {
		count++
		name = iter.Selector().Unquoted()
		body = iter.Value()
	}
	if count != 1 {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("directive must have exactly one classifier field, got %d", count),
			Pos:     v.Pos(),
		}
	}
	field += "." + name
	if _, ok := query.CategoryOf(name); !ok {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("unknown directive %q", name), Pos: v.Pos()}
	}

	var args []query.Value
	var children, additional []query.Node
	switch body.IncompleteKind() {
	case cue.ListKind:
		if args, err = compileValues(body, field); err != nil {
			return nil, err
		}
	case cue.StructKind:
		if a := body.LookupPath(cue.ParsePath("args")); a.Exists() {
			if args, err = compileValues(a, field+".args"); err != nil {
				return nil, err
			}
		}
		if c := body.LookupPath(cue.ParsePath("children")); c.Exists() {
			if children, err = compileNodes(c, field+".children"); err != nil {
				return nil, err
			}
		}
		if c := body.LookupPath(cue.ParsePath("additional")); c.Exists() {
			if additional, err = compileNodes(c, field+".additional"); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: "directive body must be an argument list or a struct with args, children and additional",
			Pos:     body.Pos(),
		}
	}

	n, err := query.Build(name, args, children, additional)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: body.Pos(), Err: err}
	}
	return n, nil
}

func compileValues(v cue.Value, field string) ([]query.Value, error) {
	if v.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{Field: field, Message: "arguments must be a list", Pos: v.Pos()}
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []query.Value
	for i := 0; iter.Next(); i++ {
		val, err := compileValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

// compileValue converts one argument. Strings, ints and bools map directly;
// {locale: "cs"}, {time: "2024-01-01T00:00:00Z"} and {enum: "DESC"} mark
// typed values. Floats are forbidden.
func compileValue(v cue.Value, field string) (query.Value, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return query.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return query.Int(i), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return query.Bool(b), nil
	case cue.StructKind:
		return compileTypedValue(v, field)
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float arguments are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported argument kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func compileTypedValue(v cue.Value, field string) (query.Value, error) {
	typed := func(key string) (string, bool, error) {
		f := v.LookupPath(cue.ParsePath(key))
		if !f.Exists() {
			return "", false, nil
		}
		s, err := f.String()
		if err != nil {
			return "", true, formatCUEError(err)
		}
		return s, true, nil
	}

	if s, ok, err := typed("locale"); ok {
		if err != nil {
			return nil, err
		}
		tag, perr := language.Parse(s)
		if perr != nil {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("invalid locale %q: %v", s, perr), Pos: v.Pos()}
		}
		return query.Locale{Tag: tag}, nil
	}
	if s, ok, err := typed("time"); ok {
		if err != nil {
			return nil, err
		}
		t, perr := time.Parse(time.RFC3339Nano, s)
		if perr != nil {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("invalid time %q: must be RFC 3339", s), Pos: v.Pos()}
		}
		return query.Time{Time: t}, nil
	}
	if s, ok, err := typed("enum"); ok {
		if err != nil {
			return nil, err
		}
		return query.String(s), nil
	}
	return nil, &CompileError{
		Field:   field,
		Message: "typed argument must have a locale, time or enum field",
		Pos:     v.Pos(),
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error // underlying query error, if any
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
