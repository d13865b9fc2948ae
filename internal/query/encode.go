package query

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/roach88/requery/internal/ir"
)

// Encode converts n into its canonical IR form:
//
//	{"name": "...", "args": [...], "children": [...], "additional": [...]}
//
// Empty sequences are omitted. Strings, integers and booleans map to their IR
// scalars; locales, times and enums are tagged objects ({"locale": "cs-CZ"},
// {"time": "..."}, {"enum": "ASC"}) so that they survive a round trip.
func Encode(n Node) ir.Object {
	obj := ir.Object{"name": ir.String(n.Name())}
	if args := n.Arguments(); len(args) > 0 {
		arr := make(ir.Array, len(args))
		for i, a := range args {
			arr[i] = encodeValue(a)
		}
		obj["args"] = arr
	}
	if kids := ChildrenOf(n); len(kids) > 0 {
		obj["children"] = encodeNodes(kids)
	}
	if extra := AdditionalChildrenOf(n); len(extra) > 0 {
		obj["additional"] = encodeNodes(extra)
	}
	return obj
}

func encodeNodes(nodes []Node) ir.Array {
	arr := make(ir.Array, len(nodes))
	for i, c := range nodes {
		arr[i] = Encode(c)
	}
	return arr
}

func encodeValue(v Value) ir.Value {
	switch x := v.(type) {
	case String:
		return ir.String(x)
	case Int:
		return ir.Int(x)
	case Bool:
		return ir.Bool(x)
	case Locale:
		return ir.Object{"locale": ir.String(x.Tag.String())}
	case Time:
		return ir.Object{"time": ir.String(x.UTC().Format(time.RFC3339Nano))}
	case fmt.Stringer:
		return ir.Object{"enum": ir.String(x.String())}
	default:
		return ir.String(FormatValue(v))
	}
}

// Decode rebuilds a node from its Encode form through Build, so the result
// passes the same validation as a freshly constructed node.
func Decode(v ir.Value) (Node, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode: expected object, got %T", v)
	}
	name, ok := obj["name"].(ir.String)
	if !ok {
		return nil, fmt.Errorf("decode: missing directive name")
	}
	var args []Value
	if raw, ok := obj["args"]; ok {
		arr, ok := raw.(ir.Array)
		if !ok {
			return nil, fmt.Errorf("decode %s: args must be an array", name)
		}
		for i, a := range arr {
			val, err := decodeValue(a)
			if err != nil {
				return nil, fmt.Errorf("decode %s: argument %d: %w", name, i, err)
			}
			args = append(args, val)
		}
	}
	children, err := decodeNodes(obj, "children")
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	additional, err := decodeNodes(obj, "additional")
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return Build(string(name), args, children, additional)
}

func decodeNodes(obj ir.Object, key string) ([]Node, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, nil
	}
	arr, ok := raw.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}
	out := make([]Node, 0, len(arr))
	for _, e := range arr {
		n, err := Decode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// decodeValue maps enums back to String; argument readers accept enum names.
func decodeValue(v ir.Value) (Value, error) {
	switch x := v.(type) {
	case ir.String:
		return String(x), nil
	case ir.Int:
		return Int(x), nil
	case ir.Bool:
		return Bool(x), nil
	case ir.Object:
		if s, ok := x["locale"].(ir.String); ok {
			tag, err := language.Parse(string(s))
			if err != nil {
				return nil, err
			}
			return Locale{Tag: tag}, nil
		}
		if s, ok := x["time"].(ir.String); ok {
			t, err := time.Parse(time.RFC3339Nano, string(s))
			if err != nil {
				return nil, err
			}
			return Time{Time: t}, nil
		}
		if s, ok := x["enum"].(ir.String); ok {
			return String(s), nil
		}
	}
	return nil, fmt.Errorf("unsupported argument %T", v)
}

// Hash returns the content hash of the tree rooted at n.
func Hash(n Node) (string, error) {
	return ir.Hash(ir.DomainConstraint, Encode(n))
}

// Encode converts q into its canonical IR form. Absent trees are omitted.
func (q *Query) Encode() ir.Object {
	obj := ir.Object{"collection": ir.String(q.Collection)}
	if q.FilterBy != nil {
		obj["filterBy"] = Encode(q.FilterBy)
	}
	if q.OrderBy != nil {
		obj["orderBy"] = Encode(q.OrderBy)
	}
	if q.Require != nil {
		obj["require"] = Encode(q.Require)
	}
	return obj
}

// Hash returns the content hash of q.
func (q *Query) Hash() (string, error) {
	return ir.Hash(ir.DomainConstraint, q.Encode())
}

// DecodeQuery rebuilds a query from its Encode form.
func DecodeQuery(v ir.Value) (*Query, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode query: expected object, got %T", v)
	}
	collection, _ := obj["collection"].(ir.String)
	q := &Query{Collection: string(collection)}
	for key, dst := range map[string]func(Node) bool{
		"filterBy": func(n Node) (ok bool) { q.FilterBy, ok = n.(*FilterBy); return },
		"orderBy":  func(n Node) (ok bool) { q.OrderBy, ok = n.(*OrderBy); return },
		"require":  func(n Node) (ok bool) { q.Require, ok = n.(*Require); return },
	} {
		raw, present := obj[key]
		if !present {
			continue
		}
		n, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode query %s: %w", key, err)
		}
		if !dst(n) {
			return nil, fmt.Errorf("decode query: %s holds %s", key, n.Name())
		}
	}
	return NewQuery(q.Collection, q.FilterBy, q.OrderBy, q.Require)
}
