package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the canonical value kinds.
type Value interface {
	irValue()
}

// String is a UTF-8 string. It is NFC-normalized when marshaled.
type String string

// Int is a signed 64-bit integer.
type Int int64

// Bool is a boolean.
type Bool bool

// Array is an ordered list of values.
type Array []Value

// Object maps keys to values. Iterate with SortedKeys for stable output.
type Object map[string]Value

func (String) irValue() {}
func (Int) irValue()    {}
func (Bool) irValue()   {}
func (Array) irValue()  {}
func (Object) irValue() {}

// SortedKeys returns the keys of o in RFC 8785 order, which compares UTF-16
// code units rather than UTF-8 bytes.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// MarshalJSON renders o canonically.
func (o Object) MarshalJSON() ([]byte, error) { return Marshal(o) }

// MarshalJSON renders a canonically.
func (a Array) MarshalJSON() ([]byte, error) { return Marshal(a) }

// UnmarshalJSON decodes a JSON object, rejecting floats and null.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*o = obj
	return nil
}

// Unmarshal decodes JSON into a Value. Numbers must be integers; null is
// rejected.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode: trailing data after JSON value")
	}
	return fromJSON(raw)
}

func fromJSON(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errors.New("null is not a canonical value")
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("number %s is not a 64-bit integer", v)
		}
		return Int(n), nil
	case []any:
		out := make(Array, len(v))
		for i, e := range v {
			ev, err := fromJSON(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(v))
		for k, e := range v {
			ev, err := fromJSON(e)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", raw)
	}
}
