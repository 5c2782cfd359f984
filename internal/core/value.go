package core

// value.go defines the closed set of shapes a submission value can take.
//
// Payloads arrive as decoded JSON of any shape. Normalize is the single
// boundary that turns them into a Value; everything past it switches on the
// concrete variant instead of inspecting dynamic types.

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is one of Null, Scalar, List or Object.
type Value interface {
	isValue()
}

// Null is an absent or explicitly null value.
type Null struct{}

// ScalarKind identifies the payload held by a Scalar.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarNumber
	ScalarBool
)

// Scalar is a single string, number or boolean.
type Scalar struct {
	Kind ScalarKind
	Str  string
	Num  float64
	Bool bool
}

// List is an ordered sequence of values.
type List []Value

// Object is a string-keyed map of values.
type Object map[string]Value

func (Null) isValue()   {}
func (Scalar) isValue() {}
func (List) isValue()   {}
func (Object) isValue() {}

// String returns a string scalar.
func String(s string) Scalar { return Scalar{Kind: ScalarString, Str: s} }

// Number returns a numeric scalar.
func Number(n float64) Scalar { return Scalar{Kind: ScalarNumber, Num: n} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{Kind: ScalarBool, Bool: b} }

// Text renders the scalar the way it would be typed into a form.
// Integral numbers have no fractional part.
func (s Scalar) Text() string {
	switch s.Kind {
	case ScalarNumber:
		return strconv.FormatFloat(s.Num, 'f', -1, 64)
	case ScalarBool:
		return strconv.FormatBool(s.Bool)
	default:
		return s.Str
	}
}

// Normalize converts a decoded JSON value into a Value.
// Stringers become strings; any other unknown type is Null.
func Normalize(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null{}
	case Value:
		return v
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Number(f)
		}
		return String(v.String())
	case []string:
		out := make(List, len(v))
		for i, s := range v {
			out[i] = String(s)
		}
		return out
	case []any:
		out := make(List, len(v))
		for i, e := range v {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(Object, len(v))
		for k, e := range v {
			out[k] = Normalize(e)
		}
		return out
	case interface{ String() string }:
		return String(v.String())
	default:
		return Null{}
	}
}

// NormalizeFields normalizes every entry of a decoded JSON object.
func NormalizeFields(raw map[string]any) map[string]Value {
	out := make(map[string]Value, len(raw))
	for k, v := range raw {
		out[k] = Normalize(v)
	}
	return out
}

// Plain converts a Value back to plain Go data for encoding.
func Plain(v Value) any {
	switch t := v.(type) {
	case Scalar:
		switch t.Kind {
		case ScalarNumber:
			return t.Num
		case ScalarBool:
			return t.Bool
		default:
			return t.Str
		}
	case List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	case Object:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Plain(e)
		}
		return out
	default:
		return nil
	}
}

// IsBlank reports whether v carries no usable content: Null, a blank
// string, or an empty list or object.
func IsBlank(v Value) bool {
	switch t := v.(type) {
	case nil, Null:
		return true
	case Scalar:
		return t.Kind == ScalarString && strings.TrimSpace(t.Str) == ""
	case List:
		return len(t) == 0
	case Object:
		return len(t) == 0
	}
	return true
}

// Lookup follows a dotted path through objects and lists. Numeric path
// segments index into lists. An empty path returns v itself.
func Lookup(v Value, path string) (Value, bool) {
	if path == "" {
		return v, v != nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch t := cur.(type) {
		case Object:
			next, ok := t[seg]
			if !ok {
				return Null{}, false
			}
			cur = next
		case List:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return Null{}, false
			}
			cur = t[i]
		default:
			return Null{}, false
		}
	}
	if cur == nil {
		return Null{}, false
	}
	return cur, true
}

// NormalizeToStrings flattens a value into a list of strings.
//
// Null yields an empty slice, a list yields its scalar elements, an object
// holding a "labels" or "ids" list yields that list, and a scalar yields a
// single element. Nested objects inside lists are skipped.
func NormalizeToStrings(v Value) []string {
	switch t := v.(type) {
	case Scalar:
		return []string{t.Text()}
	case List:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(Scalar); ok {
				out = append(out, s.Text())
			}
		}
		return out
	case Object:
		for _, key := range []string{"labels", "ids"} {
			if inner, ok := t[key].(List); ok {
				return NormalizeToStrings(inner)
			}
		}
		return []string{}
	default:
		return []string{}
	}
}

// sortedKeys returns the keys of an object in lexical order so that
// iteration is deterministic.
func sortedKeys(o Object) []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// finite reports whether f is neither NaN nor infinite.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
