package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/electro/dynamodb/engine"
)

var _ engine.Engine = (*Store)(nil)

// Plan describes how the store would execute a request.
type Plan struct {
	Method     engine.Method `json:"method"`
	Table      string        `json:"table"`
	Index      string        `json:"index,omitempty"`
	Key        string        `json:"key,omitempty"`
	Conditions []string      `json:"conditions,omitempty"`
	Item       engine.Item   `json:"item,omitempty"`
	Limit      int           `json:"limit,omitempty"`
}

// Params returns the Plan for a request without touching the database.
func (s *Store) Params(req engine.Request) (any, error) {
	if _, err := s.getBadgerKeyEncoder(req.Table, req.Index); err != nil {
		return nil, err
	}
	plan := Plan{
		Method: req.Method,
		Table:  req.Table,
		Index:  req.Index,
		Item:   req.Item,
		Limit:  req.Limit,
	}
	if req.Method != engine.MethodScan && req.Method != engine.MethodPut {
		plan.Key = describeKey(req.Key)
	}
	for _, c := range req.Conditions {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		plan.Conditions = append(plan.Conditions, c.String())
	}
	return plan, nil
}

func describeKey(k engine.KeyCondition) string {
	out := fmt.Sprintf("%s = %q", k.PartitionField, k.PartitionValue)
	switch k.SortMatch {
	case engine.SortEqual:
		out += fmt.Sprintf(" AND %s = %q", k.SortField, k.SortValue)
	case engine.SortPrefix:
		out += fmt.Sprintf(" AND begins_with(%s, %q)", k.SortField, k.SortValue)
	}
	return out
}

// Execute runs a request. Put and delete return the previous item, update
// returns the new item. Failures are returned as *engine.EngineError.
func (s *Store) Execute(ctx context.Context, req engine.Request) (engine.Result, error) {
	var (
		items []map[string]any
		item  map[string]any
		err   error
	)
	switch req.Method {
	case engine.MethodQuery:
		items, err = s.query(ctx, req)
	case engine.MethodScan:
		items, err = s.scan(ctx, req)
	case engine.MethodGet:
		item, err = s.get(req)
	case engine.MethodPut:
		item, err = s.put(req)
	case engine.MethodUpdate:
		item, err = s.update(req)
	case engine.MethodDelete:
		item, err = s.delete(req)
	default:
		err = fmt.Errorf("unsupported method %q", req.Method)
	}
	if err != nil {
		return engine.Result{}, engine.Wrap(req.Method, err)
	}
	if item != nil {
		items = []map[string]any{item}
	}
	return engine.Result{Items: items, Count: len(items)}, nil
}
