package binder

import (
	"context"
	"maps"

	"github.com/acksell/electro/dynamodb/engine"
)

// Operation is a pending engine request. Conditions added with Where are
// combined with AND.
type Operation struct {
	eng   engine.Engine
	table string
	req   engine.Request
}

func newOperation(eng engine.Engine, table string, req engine.Request) *Operation {
	return &Operation{eng: eng, table: table, req: req}
}

// Where adds a condition.
func (o *Operation) Where(c engine.Condition) *Operation {
	o.req.Conditions = append(o.req.Conditions, c)
	return o
}

// Set merges attributes into the item the operation writes.
func (o *Operation) Set(attrs map[string]any) *Operation {
	if o.req.Item == nil {
		o.req.Item = make(engine.Item, len(attrs))
	}
	maps.Copy(o.req.Item, attrs)
	return o
}

// Request returns the request as it would be sent with opts.
func (o *Operation) Request(opts Options) (engine.Request, error) {
	if err := opts.validate(); err != nil {
		return engine.Request{}, err
	}
	table, err := opts.table(o.table)
	if err != nil {
		return engine.Request{}, err
	}
	req := o.req
	req.Table = table
	if opts.Limit > 0 {
		req.Limit = opts.Limit
	}
	return req, nil
}

// Params describes the request without sending it.
func (o *Operation) Params(opts Options) (any, error) {
	req, err := o.Request(opts)
	if err != nil {
		return nil, err
	}
	params, err := o.eng.Params(req)
	if err != nil {
		return nil, engine.Wrap(req.Method, err)
	}
	return params, nil
}

// Go sends the request. Engine failures are returned as *engine.EngineError.
func (o *Operation) Go(ctx context.Context, opts Options) (engine.Result, error) {
	req, err := o.Request(opts)
	if err != nil {
		return engine.Result{}, err
	}
	res, err := o.eng.Execute(ctx, req)
	if err != nil {
		return engine.Result{}, engine.Wrap(req.Method, err)
	}
	return res, nil
}
