// Package binder binds the access patterns of a schema to an engine and
// invokes them with facet values, filters and options.
package binder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/filter"
	"github.com/acksell/electro/dynamodb/schema"
	"github.com/rs/zerolog"
)

// Internal attributes stored on every item written through a binding.
const (
	EntityField  = "__edb_e"
	VersionField = "__edb_v"
)

// Defaults apply to every binding of a Set.
type Defaults struct {
	// Table is used when an invocation gives no table. Falls back to the
	// table the schema declares.
	Table  string
	Logger zerolog.Logger
}

// Set holds the bindings of one schema.
type Set struct {
	schema   *schema.Schema
	eng      engine.Engine
	table    string
	logger   zerolog.Logger
	bindings []*Binding
	actions  map[string]*Actions
	// strip lists the fields removed from items unless Raw is set.
	strip []string
}

// Binding ties one access pattern, or an entity scan, to the engine.
type Binding struct {
	set      *Set
	Instance *schema.Instance
	// Index is nil for scans.
	Index *schema.Index
	Verb  engine.Method
}

// Bind creates the bindings of every access pattern of s.
func Bind(s *schema.Schema, eng engine.Engine, d Defaults) *Set {
	set := &Set{
		schema:  s,
		eng:     eng,
		table:   d.Table,
		logger:  d.Logger,
		actions: make(map[string]*Actions),
	}
	if set.table == "" {
		set.table = s.Table
	}

	strip := []string{EntityField, VersionField}
	for _, inst := range s.Instances {
		for _, idx := range inst.Indexes() {
			set.bindings = append(set.bindings, &Binding{set: set, Instance: inst, Index: idx, Verb: engine.MethodQuery})
		}
		if inst.Kind != schema.KindEntity {
			continue
		}
		if inst.Can(schema.ActionScan) {
			set.bindings = append(set.bindings, &Binding{set: set, Instance: inst, Verb: engine.MethodScan})
		}
		set.actions[inst.Name] = &Actions{set: set, inst: inst}
		for _, f := range inst.AllKeyFieldNames() {
			if !slices.Contains(strip, f) {
				strip = append(strip, f)
			}
		}
	}
	set.strip = strip
	return set
}

// Schema returns the bound schema.
func (s *Set) Schema() *schema.Schema { return s.schema }

// Bindings returns every binding: per instance its access patterns in index
// order followed by its scan.
func (s *Set) Bindings() []*Binding {
	return slices.Clone(s.bindings)
}

// Query returns the binding of an access pattern, matched case-insensitively.
func (s *Set) Query(accessPattern string) (*Binding, bool) {
	for _, b := range s.bindings {
		if b.Verb == engine.MethodQuery && strings.EqualFold(b.Index.AccessPattern, accessPattern) {
			return b, true
		}
	}
	return nil, false
}

// Scan returns the scan binding of an entity.
func (s *Set) Scan(entity string) (*Binding, bool) {
	for _, b := range s.bindings {
		if b.Verb == engine.MethodScan && strings.EqualFold(b.Instance.Name, entity) {
			return b, true
		}
	}
	return nil, false
}

// Actions returns the mutations of an entity.
func (s *Set) Actions(entity string) (*Actions, bool) {
	for name, a := range s.actions {
		if strings.EqualFold(name, entity) {
			return a, true
		}
	}
	return nil, false
}

func (s *Set) shape(items []engine.Item, raw bool) []engine.Item {
	if raw {
		return items
	}
	out := make([]engine.Item, len(items))
	for i, item := range items {
		shaped := make(engine.Item, len(item))
		for k, v := range item {
			if !slices.Contains(s.strip, k) {
				shaped[k] = v
			}
		}
		out[i] = shaped
	}
	return out
}

// Name is the access pattern name, or the entity name for scans.
func (b *Binding) Name() string {
	if b.Index == nil {
		return b.Instance.Name
	}
	return b.Index.AccessPattern
}

// ResultSet is the outcome of an invocation. Exactly one of Items, Params
// and Removed is meaningful, selected by the options.
type ResultSet struct {
	Items   []engine.Item `json:"items,omitempty"`
	Params  any           `json:"params,omitempty"`
	Removed *BulkResult   `json:"removed,omitempty"`
}

// Operation composes the request for the given facet values and filters.
// Facets past the first missing sort facet are ignored.
func (b *Binding) Operation(keyValues map[string]any, filters []filter.Clause) (*Operation, error) {
	conds, err := conditionsFor(filters)
	if err != nil {
		return nil, err
	}

	req := engine.Request{Method: b.Verb}
	if b.Index != nil {
		req.Index = b.Index.ID
		req.Key, err = b.keyCondition(keyValues)
		if err != nil {
			return nil, err
		}
	}
	if b.Instance.Kind == schema.KindEntity {
		req.Conditions = append(req.Conditions, ownership(b.Instance))
	}
	req.Conditions = append(req.Conditions, conds...)

	return newOperation(b.set.eng, b.set.table, req), nil
}

func (b *Binding) keyCondition(keyValues map[string]any) (engine.KeyCondition, error) {
	idx := b.Index
	pk, err := idx.PartitionKey.Template.Render(keyValues)
	if err != nil {
		return engine.KeyCondition{}, fmt.Errorf("access pattern %s: %w", idx.AccessPattern, err)
	}
	key := engine.KeyCondition{PartitionField: idx.PartitionKey.Field, PartitionValue: pk}
	if idx.SortKey == nil {
		return key, nil
	}

	sk, complete := idx.SortKey.Template.Prefix(keyValues)
	key.SortField = idx.SortKey.Field
	key.SortValue = sk
	key.SortMatch = engine.SortPrefix
	// Collection members extend the shared sort key, so only entities can
	// match it exactly.
	if complete && b.Instance.Kind == schema.KindEntity {
		key.SortMatch = engine.SortEqual
	}
	return key, nil
}

func ownership(inst *schema.Instance) engine.Condition {
	return engine.Condition{Attribute: EntityField, Operator: engine.OpEqual, Values: []any{inst.Name}}
}

// Invoke runs the binding. Option errors are returned before any engine
// call. With Delete set, every matched item is removed and the outcome is
// returned in Removed.
func (b *Binding) Invoke(ctx context.Context, keyValues map[string]any, filters []filter.Clause, opts Options) (*ResultSet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var actions *Actions
	if opts.Delete {
		a, ok := b.set.actions[b.Instance.Name]
		if !ok || !b.Instance.Can(schema.ActionRemove) {
			return nil, fmt.Errorf("%w: %s %q does not declare %s", ErrActionNotAllowed, b.Instance.Kind, b.Instance.Name, schema.ActionRemove)
		}
		actions = a
	}

	op, err := b.Operation(keyValues, filters)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		params, err := op.Params(opts)
		if err != nil {
			return nil, err
		}
		return &ResultSet{Params: params}, nil
	}

	res, err := op.Go(ctx, opts)
	if err != nil {
		return nil, err
	}

	if actions != nil {
		removal := actions.RemoveAll(ctx, res.Items, opts)
		return &ResultSet{Removed: removal}, nil
	}
	return &ResultSet{Items: b.set.shape(res.Items, opts.Raw)}, nil
}

// IsUserError reports whether err was caused by the caller's input rather
// than by the engine.
func IsUserError(err error) bool {
	var fe *filter.Error
	var ee *engine.EngineError
	switch {
	case errors.As(err, &ee):
		return false
	case errors.As(err, &fe),
		errors.Is(err, ErrInvalidOption),
		errors.Is(err, ErrInvalidOptionCombination),
		errors.Is(err, ErrActionNotAllowed),
		errors.Is(err, ErrInvalidFilterValue),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrMissingFacet):
		return true
	}
	return false
}
