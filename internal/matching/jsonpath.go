package matching

import (
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/jp"
)

// JSONPath is a compiled JSONPath expression.
type JSONPath struct {
	raw  string
	expr jp.Expr
}

// CompileJSONPath parses a JSONPath expression such as "$.user.name" or
// "$.items[*].id".
func CompileJSONPath(path string) (*JSONPath, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression %q: %w", path, err)
	}
	return &JSONPath{raw: path, expr: expr}, nil
}

// String returns the expression as written.
func (p *JSONPath) String() string {
	return p.raw
}

// Get returns every value the expression selects from doc.
func (p *JSONPath) Get(doc any) []any {
	return p.expr.Get(doc)
}

// Match reports whether the value selected from doc satisfies expected and
// returns the value that matched (or the first selected value on failure).
//
// expected may be an existence check, {"exists": true} or {"exists": false}.
// For wildcard paths any selected value may match.
func (p *JSONPath) Match(doc any, expected any) (bool, any) {
	results := p.expr.Get(doc)

	if exists, ok := ExistenceCheck(expected); ok {
		if len(results) == 0 {
			return !exists, nil
		}
		return exists, results[0]
	}

	if len(results) == 0 {
		return false, nil
	}

	for _, result := range results {
		if ValuesEqual(result, expected) {
			return true, result
		}
	}
	return false, results[0]
}

// Exists builds the existence check understood by Match.
func Exists(exists bool) map[string]any {
	return map[string]any{"exists": exists}
}

// ExistenceCheck reports whether expected is a single-key {"exists": bool}
// map and returns the wanted existence.
func ExistenceCheck(expected any) (exists bool, ok bool) {
	m, isMap := expected.(map[string]any)
	if !isMap || len(m) != 1 {
		return false, false
	}
	v, has := m["exists"]
	if !has {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

// ValuesEqual compares a decoded JSON value with an expected Go value.
// Numbers compare by value regardless of Go type, also inside slices and
// string-keyed maps; everything else falls back to reflect.DeepEqual.
func ValuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if reflect.DeepEqual(actual, expected) {
		return true
	}

	actualNum, actualIsNum := toFloat64(actual)
	expectedNum, expectedIsNum := toFloat64(expected)
	if actualIsNum || expectedIsNum {
		return actualIsNum && expectedIsNum && actualNum == expectedNum
	}

	av, ev := reflect.ValueOf(actual), reflect.ValueOf(expected)
	switch {
	case isList(av) && isList(ev):
		if av.Len() != ev.Len() {
			return false
		}
		for i := range av.Len() {
			if !ValuesEqual(av.Index(i).Interface(), ev.Index(i).Interface()) {
				return false
			}
		}
		return true
	case isStringMap(av) && isStringMap(ev):
		if av.Len() != ev.Len() {
			return false
		}
		iter := ev.MapRange()
		for iter.Next() {
			got := av.MapIndex(reflect.ValueOf(iter.Key().String()).Convert(av.Type().Key()))
			if !got.IsValid() || !ValuesEqual(got.Interface(), iter.Value().Interface()) {
				return false
			}
		}
		return true
	}
	return false
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isStringMap(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint8:
		return float64(n), true
	default:
		return 0, false
	}
}
