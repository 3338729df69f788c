package ddbstore

import (
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func toFloat64[T number](v T) float64 {
	return float64(v)
}

// asFloat reports whether v is a Go number and returns it as a float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return toFloat64(n), true
	case int8:
		return toFloat64(n), true
	case int16:
		return toFloat64(n), true
	case int32:
		return toFloat64(n), true
	case int64:
		return toFloat64(n), true
	case uint:
		return toFloat64(n), true
	case uint8:
		return toFloat64(n), true
	case uint16:
		return toFloat64(n), true
	case uint32:
		return toFloat64(n), true
	case uint64:
		return toFloat64(n), true
	case float32:
		return toFloat64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
