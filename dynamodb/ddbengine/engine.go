package ddbengine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Engine runs engine requests as DynamoDB API calls.
type Engine struct {
	client Client
}

var _ engine.Engine = (*Engine)(nil)

func New(client Client) *Engine {
	return &Engine{client: client}
}

// Params returns the SDK input struct the request is sent as.
func (e *Engine) Params(req engine.Request) (any, error) {
	if req.Table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	switch req.Method {
	case engine.MethodQuery:
		return e.queryInput(req)
	case engine.MethodScan:
		return e.scanInput(req)
	case engine.MethodGet:
		return e.getInput(req)
	case engine.MethodPut:
		return e.putInput(req)
	case engine.MethodUpdate:
		return e.updateInput(req)
	case engine.MethodDelete:
		return e.deleteInput(req)
	}
	return nil, fmt.Errorf("unsupported method %q", req.Method)
}

func (e *Engine) queryInput(req engine.Request) (*dynamodb.QueryInput, error) {
	key, err := keyCondition(req.Key)
	if err != nil {
		return nil, err
	}
	b := expression.NewBuilder().WithKeyCondition(key)
	if filter, ok, err := conditions(req.Conditions); err != nil {
		return nil, err
	} else if ok {
		b = b.WithFilter(filter)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}
	return &dynamodb.QueryInput{
		TableName:                 aws.String(req.Table),
		IndexName:                 optional(req.Index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func (e *Engine) scanInput(req engine.Request) (*dynamodb.ScanInput, error) {
	in := &dynamodb.ScanInput{
		TableName: aws.String(req.Table),
		IndexName: optional(req.Index),
	}
	filter, ok, err := conditions(req.Conditions)
	if err != nil || !ok {
		return in, err
	}
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}
	in.FilterExpression = expr.Filter()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

func (e *Engine) getInput(req engine.Request) (*dynamodb.GetItemInput, error) {
	key, err := primaryKey(req.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName:      aws.String(req.Table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}, nil
}

func (e *Engine) putInput(req engine.Request) (*dynamodb.PutItemInput, error) {
	item, err := attributevalue.MarshalMap(req.Item)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	in := &dynamodb.PutItemInput{
		TableName:    aws.String(req.Table),
		Item:         item,
		ReturnValues: types.ReturnValueAllOld,
	}
	cond, ok, err := conditions(req.Conditions)
	if err != nil || !ok {
		return in, err
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build put condition: %w", err)
	}
	in.ConditionExpression = expr.Condition()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

func (e *Engine) updateInput(req engine.Request) (*dynamodb.UpdateItemInput, error) {
	key, err := primaryKey(req.Key)
	if err != nil {
		return nil, err
	}
	upd, err := updateBuilder(req.Item)
	if err != nil {
		return nil, err
	}
	// The item must already exist.
	guard := append([]engine.Condition{{Attribute: req.Key.PartitionField, Operator: engine.OpExists}}, req.Conditions...)
	cond, _, err := conditions(guard)
	if err != nil {
		return nil, err
	}
	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(req.Table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

func (e *Engine) deleteInput(req engine.Request) (*dynamodb.DeleteItemInput, error) {
	key, err := primaryKey(req.Key)
	if err != nil {
		return nil, err
	}
	in := &dynamodb.DeleteItemInput{
		TableName:    aws.String(req.Table),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	}
	cond, ok, err := conditions(req.Conditions)
	if err != nil || !ok {
		return in, err
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete condition: %w", err)
	}
	in.ConditionExpression = expr.Condition()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

// Execute sends the request. Query and scan follow pages until the limit is
// reached or the table is exhausted.
func (e *Engine) Execute(ctx context.Context, req engine.Request) (engine.Result, error) {
	items, err := e.execute(ctx, req)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			err = fmt.Errorf("%w: %v", engine.ErrConditionFailed, err)
		}
		return engine.Result{}, engine.Wrap(req.Method, err)
	}
	return engine.Result{Items: items, Count: len(items)}, nil
}

func (e *Engine) execute(ctx context.Context, req engine.Request) ([]engine.Item, error) {
	params, err := e.Params(req)
	if err != nil {
		return nil, err
	}

	var raw []map[string]types.AttributeValue
	switch in := params.(type) {
	case *dynamodb.QueryInput:
		for {
			out, err := e.client.Query(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("query failed: %w", err)
			}
			raw = append(raw, out.Items...)
			if out.LastEvaluatedKey == nil || reached(raw, req.Limit) {
				break
			}
			in.ExclusiveStartKey = out.LastEvaluatedKey
		}
	case *dynamodb.ScanInput:
		for {
			out, err := e.client.Scan(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("scan failed: %w", err)
			}
			raw = append(raw, out.Items...)
			if out.LastEvaluatedKey == nil || reached(raw, req.Limit) {
				break
			}
			in.ExclusiveStartKey = out.LastEvaluatedKey
		}
	case *dynamodb.GetItemInput:
		out, err := e.client.GetItem(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("get item failed: %w", err)
		}
		raw = appendItem(raw, out.Item)
	case *dynamodb.PutItemInput:
		out, err := e.client.PutItem(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("put item failed: %w", err)
		}
		raw = appendItem(raw, out.Attributes)
	case *dynamodb.UpdateItemInput:
		out, err := e.client.UpdateItem(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("update item failed: %w", err)
		}
		raw = appendItem(raw, out.Attributes)
	case *dynamodb.DeleteItemInput:
		out, err := e.client.DeleteItem(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("delete item failed: %w", err)
		}
		raw = appendItem(raw, out.Attributes)
	}

	if req.Limit > 0 && len(raw) > req.Limit {
		raw = raw[:req.Limit]
	}
	var items []engine.Item
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return items, nil
}

func reached(items []map[string]types.AttributeValue, limit int) bool {
	return limit > 0 && len(items) >= limit
}

func appendItem(items []map[string]types.AttributeValue, item map[string]types.AttributeValue) []map[string]types.AttributeValue {
	if len(item) == 0 {
		return items
	}
	return append(items, item)
}

func primaryKey(k engine.KeyCondition) (map[string]types.AttributeValue, error) {
	if k.PartitionField == "" {
		return nil, fmt.Errorf("partition field is required")
	}
	key := map[string]types.AttributeValue{
		k.PartitionField: &types.AttributeValueMemberS{Value: k.PartitionValue},
	}
	if k.SortMatch == engine.SortPrefix {
		return nil, fmt.Errorf("an exact key cannot use a sort key prefix")
	}
	if k.SortMatch == engine.SortEqual {
		key[k.SortField] = &types.AttributeValueMemberS{Value: k.SortValue}
	}
	return key, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
