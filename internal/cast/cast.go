// Package cast coerces values pulled out of decoded JSON wire maps, where
// numbers arrive as float64 (or json.Number) and lists as []any.
package cast

import (
	"encoding/json"
	"math"
)

// ToInt64 coerces a decoded wire value to int64. Accepts the numeric types
// encoding/json produces plus the integer types programmatic callers pass;
// NaN and infinities fail, out-of-range unsigned values clamp to MaxInt64.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(x), true
	default:
		return 0, false
	}
}

// ToStringSlice coerces a decoded wire list to []string. Accepts []string or
// []any whose elements are all strings.
func ToStringSlice(v any) ([]string, bool) {
	if ss, ok := v.([]string); ok {
		return ss, true
	}
	slice, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(slice))
	for _, e := range slice {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
