package ddbengine

import (
	"fmt"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

func keyCondition(k engine.KeyCondition) (expression.KeyConditionBuilder, error) {
	if k.PartitionField == "" {
		return expression.KeyConditionBuilder{}, fmt.Errorf("partition field is required")
	}
	key := expression.KeyEqual(expression.Key(k.PartitionField), expression.Value(k.PartitionValue))
	switch k.SortMatch {
	case engine.SortEqual:
		key = key.And(expression.KeyEqual(expression.Key(k.SortField), expression.Value(k.SortValue)))
	case engine.SortPrefix:
		key = key.And(expression.KeyBeginsWith(expression.Key(k.SortField), k.SortValue))
	}
	return key, nil
}

// condition translates one engine condition into the expression builder.
func condition(c engine.Condition) (expression.ConditionBuilder, error) {
	if err := c.Validate(); err != nil {
		return expression.ConditionBuilder{}, err
	}
	name := expression.Name(c.Attribute)
	switch c.Operator {
	case engine.OpEqual:
		return name.Equal(expression.Value(c.Values[0])), nil
	case engine.OpGreater:
		return name.GreaterThan(expression.Value(c.Values[0])), nil
	case engine.OpLess:
		return name.LessThan(expression.Value(c.Values[0])), nil
	case engine.OpGreaterEq:
		return name.GreaterThanEqual(expression.Value(c.Values[0])), nil
	case engine.OpLessEq:
		return name.LessThanEqual(expression.Value(c.Values[0])), nil
	case engine.OpBetween:
		return name.Between(expression.Value(c.Values[0]), expression.Value(c.Values[1])), nil
	case engine.OpBeginsWith:
		return name.BeginsWith(fmt.Sprint(c.Values[0])), nil
	case engine.OpExists:
		return name.AttributeExists(), nil
	case engine.OpNotExists:
		return name.AttributeNotExists(), nil
	case engine.OpContains:
		return name.Contains(fmt.Sprint(c.Values[0])), nil
	case engine.OpNotContains:
		return expression.Not(name.Contains(fmt.Sprint(c.Values[0]))), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("unsupported operator %q", c.Operator)
}

// conditions joins every condition with AND. ok is false when there are none.
func conditions(conds []engine.Condition) (cond expression.ConditionBuilder, ok bool, err error) {
	built := make([]expression.ConditionBuilder, 0, len(conds))
	for _, c := range conds {
		b, err := condition(c)
		if err != nil {
			return expression.ConditionBuilder{}, false, err
		}
		built = append(built, b)
	}
	switch len(built) {
	case 0:
		return expression.ConditionBuilder{}, false, nil
	case 1:
		return built[0], true, nil
	default:
		return expression.And(built[0], built[1], built[2:]...), true, nil
	}
}

// updateBuilder sets every non-nil attribute and removes nil ones.
func updateBuilder(item engine.Item) (expression.UpdateBuilder, error) {
	if len(item) == 0 {
		return expression.UpdateBuilder{}, fmt.Errorf("update has no attributes")
	}
	var upd expression.UpdateBuilder
	for _, k := range sortedKeys(item) {
		if item[k] == nil {
			upd = upd.Remove(expression.Name(k))
			continue
		}
		upd = upd.Set(expression.Name(k), expression.Value(item[k]))
	}
	return upd, nil
}
