// Package structural treats schemaless manifest trees (the JSON-decoded content of
// unstructured objects) as a tagged union of null, bool, number, string, array and object,
// with structural equality and deep clone as primitive operations.
package structural

import (
	"encoding/json"
	"math"

	"k8s.io/apimachinery/pkg/runtime"
)

// Kind is the tag of a structural value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// KindOf returns the tag of v. Values outside the JSON data model are KindInvalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int32, int64, float32, float64, json.Number:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindInvalid
	}
}

// Equal reports whether two trees are structurally equal. Object keys missing on either
// side make the trees unequal. Numbers compare by value, so int64(3) equals float64(3).
// Invalid values are never equal to anything.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}

	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.(bool) == b.(bool)
	case KindNumber:
		return numberEqual(a, b)
	case KindString:
		return a.(string) == b.(string)
	case KindArray:
		x, y := a.([]any), b.([]any)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case KindObject:
		x, y := a.(map[string]any), b.(map[string]any)
		for key, xv := range x {
			yv, ok := y[key]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		for key := range y {
			if _, ok := x[key]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of a JSON-compatible tree. It panics on values outside the
// JSON data model (see runtime.DeepCopyJSONValue).
func Clone(v any) any {
	return runtime.DeepCopyJSONValue(v)
}

// CloneObject returns a deep copy of an object tree; nil stays nil.
func CloneObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return runtime.DeepCopyJSON(m)
}

// AsInt64 converts an integral number to int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int32, int64:
		return true
	default:
		return false
	}
}

func numberEqual(a, b any) bool {
	if isInteger(a) && isInteger(b) {
		x, _ := AsInt64(a)
		y, _ := AsInt64(b)
		return x == y
	}
	x, okx := asFloat64(a)
	y, oky := asFloat64(b)
	return okx && oky && x == y
}
