package binder

import (
	"fmt"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/filter"
)

// conditionFor translates a filter clause into an engine condition.
func conditionFor(c filter.Clause) (engine.Condition, error) {
	var op engine.Operator
	switch c.Operation {
	case filter.OpEq:
		op = engine.OpEqual
	case filter.OpGt:
		op = engine.OpGreater
	case filter.OpLt:
		op = engine.OpLess
	case filter.OpGte:
		op = engine.OpGreaterEq
	case filter.OpLte:
		op = engine.OpLessEq
	case filter.OpBetween:
		op = engine.OpBetween
	case filter.OpBegins:
		op = engine.OpBeginsWith
	case filter.OpExists:
		op = engine.OpExists
	case filter.OpNotExists:
		op = engine.OpNotExists
	case filter.OpContains:
		op = engine.OpContains
	case filter.OpNotContains:
		op = engine.OpNotContains
	default:
		return engine.Condition{}, fmt.Errorf("unsupported filter operation %q", c.Operation)
	}

	cond := engine.Condition{Attribute: c.Attribute, Operator: op}
	values := []struct {
		v   any
		has bool
	}{{c.Value1, c.HasValue1}, {c.Value2, c.HasValue2}}

	for i := 0; i < op.Arity(); i++ {
		if !values[i].has {
			return engine.Condition{}, fmt.Errorf("%w: %s on %q takes %d value(s)", ErrInvalidFilterValue, c.Operation, c.Attribute, op.Arity())
		}
		if inv, ok := values[i].v.(filter.Invalid); ok {
			return engine.Condition{}, fmt.Errorf("%w: %s for attribute %q", ErrInvalidFilterValue, inv, c.Attribute)
		}
		cond.Values = append(cond.Values, values[i].v)
	}
	return cond, nil
}

func conditionsFor(clauses []filter.Clause) ([]engine.Condition, error) {
	conds := make([]engine.Condition, 0, len(clauses))
	for _, c := range clauses {
		cond, err := conditionFor(c)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}
