package tessera

import (
	"fmt"
	"html"
	"reflect"
	"strconv"
	"time"
)

// Safe is a string exempted from HTML escaping on output. It is a
// capability tag on the value, not a distinct node type: any string can
// be marked safe by the "safe" filter, and the renderer emits it verbatim.
type Safe string

// undefinedValue is the internal marker for a context path that does not
// exist. It flows through guarded positions (conditions, existence tests,
// the default filter) silently and only becomes an error when it reaches
// output or an operation that needs a concrete value.
type undefinedValue struct {
	path string
}

func isUndefined(v interface{}) bool {
	_, ok := v.(undefinedValue)
	return ok
}

// escapeHTML escapes a string for insertion into HTML text or attribute
// content.
func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// FormatValue converts a value to its output string representation.
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case undefinedValue:
		return ""
	case Safe:
		return string(v)
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		// 'g' with precision 15 drops the float noise without losing
		// anything a template would care about.
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// isTruthy reports whether a value counts as true in a conditional.
// Undefined and nil are falsy, so optional context fields can be tested
// without raising errors.
func isTruthy(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case undefinedValue:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case Safe:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []interface{}:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case []map[string]interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	case Context:
		return len(v) > 0
	case time.Time:
		return !v.IsZero()
	default:
		return true
	}
}

// valuesEqual implements the == and != operators. Numeric operands are
// compared as float64 so int and float literals mix freely.
func valuesEqual(left, right interface{}) bool {
	if isUndefined(left) || isUndefined(right) {
		return isUndefined(left) && isUndefined(right)
	}
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			return lf == rf
		}
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return ls == rs
	}
	// Maps and slices are not comparable with ==; a template comparing
	// two collections must not bring down the render.
	return reflect.DeepEqual(left, right)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toSlice converts iterable values to []interface{} for loop rendering.
func toSlice(val interface{}) ([]interface{}, error) {
	if val == nil {
		return []interface{}{}, nil
	}
	switch v := val.(type) {
	case undefinedValue:
		return []interface{}{}, nil
	case []interface{}:
		return v, nil
	case []string:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []int:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []float64:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []map[string]interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	case []Context:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = item
		}
		return result, nil
	default:
		return nil, fmt.Errorf("type %T is not iterable", val)
	}
}
