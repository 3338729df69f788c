package ddbstore

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"github.com/acksell/electro/dynamodb/engine"
)

// matchesAll evaluates conditions against an item; a nil item has no
// attributes.
func matchesAll(conds []engine.Condition, item map[string]any) (bool, error) {
	for _, c := range conds {
		ok, err := matches(c, item)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matches(c engine.Condition, item map[string]any) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	v, present := item[c.Attribute]
	present = present && v != nil

	switch c.Operator {
	case engine.OpExists:
		return present, nil
	case engine.OpNotExists:
		return !present, nil
	case engine.OpContains:
		return present && contains(v, c.Values[0]), nil
	case engine.OpNotContains:
		return !present || !contains(v, c.Values[0]), nil
	}

	if !present {
		return false, nil
	}

	switch c.Operator {
	case engine.OpEqual:
		return equal(v, c.Values[0]), nil
	case engine.OpBeginsWith:
		s, ok := v.(string)
		p, pok := c.Values[0].(string)
		return ok && pok && strings.HasPrefix(s, p), nil
	case engine.OpBetween:
		lo, ok := compare(v, c.Values[0])
		if !ok || lo < 0 {
			return false, nil
		}
		hi, ok := compare(v, c.Values[1])
		return ok && hi <= 0, nil
	}

	cmp, ok := compare(v, c.Values[0])
	if !ok {
		return false, nil
	}
	switch c.Operator {
	case engine.OpGreater:
		return cmp > 0, nil
	case engine.OpLess:
		return cmp < 0, nil
	case engine.OpGreaterEq:
		return cmp >= 0, nil
	case engine.OpLessEq:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %q", c.Operator)
}

// compare orders two values of the same kind. Mixed kinds do not compare.
func compare(a, b any) (int, bool) {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		return cmp.Compare(fa, fb), true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return cmp.Compare(av, bv), true
	case []byte:
		bv, ok := b.([]byte)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av, bv), true
	}
	return 0, false
}

func equal(a, b any) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// contains is substring match for strings and membership for lists.
func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(h, n)
	case []any:
		for _, el := range h {
			if equal(el, needle) {
				return true
			}
		}
	}
	return false
}
