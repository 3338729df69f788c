package binder

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/schema"
	"github.com/acksell/electro/dynamodb/table"
)

// Actions are the mutations of one entity. Each one requires the entity to
// declare the matching action.
type Actions struct {
	set  *Set
	inst *schema.Instance
}

// Failure is an item a bulk removal could not delete.
type Failure struct {
	Item    engine.Item `json:"item"`
	Message string      `json:"message"`
}

// BulkResult is the outcome of removing many items. Items keep the order
// they were given in.
type BulkResult struct {
	Succeeded []engine.Item `json:"succeeded"`
	Failed    []Failure     `json:"failed"`
}

func (a *Actions) allow(action schema.Action) error {
	if !a.inst.Can(action) {
		return fmt.Errorf("%w: entity %q does not declare %s", ErrActionNotAllowed, a.inst.Name, action)
	}
	return nil
}

// Create writes a new item. It fails with engine.ErrConditionFailed if an
// item with the same table key exists.
func (a *Actions) Create(ctx context.Context, item engine.Item, opts Options) (engine.Item, error) {
	if err := a.allow(schema.ActionCreate); err != nil {
		return nil, err
	}
	if err := a.validate(item, true); err != nil {
		return nil, err
	}

	doc := maps.Clone(item)
	if err := table.PopulateKeys(a.inst, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	doc[EntityField] = a.inst.Name
	if a.inst.Version != "" {
		doc[VersionField] = a.inst.Version
	}

	pkField := a.inst.PrimaryIndex().PartitionKey.Field
	op := newOperation(a.set.eng, a.set.table, engine.Request{Method: engine.MethodPut}).
		Set(doc).
		Where(engine.Condition{Attribute: pkField, Operator: engine.OpNotExists})
	if _, err := op.Go(ctx, opts); err != nil {
		return nil, err
	}
	a.set.logger.Debug().Str("entity", a.inst.Name).Msg("created item")
	return a.set.shape([]engine.Item{doc}, opts.Raw)[0], nil
}

// Patch updates attributes of an existing item addressed by its table key
// facets. Key facets and read-only attributes cannot be patched. A nil value
// removes the attribute.
func (a *Actions) Patch(ctx context.Context, keyValues map[string]any, set map[string]any, opts Options) (engine.Item, error) {
	if err := a.allow(schema.ActionPatch); err != nil {
		return nil, err
	}
	key, err := a.tableKey(keyValues)
	if err != nil {
		return nil, err
	}

	facets := a.keyFacets()
	for name := range set {
		if slices.Contains(facets, name) {
			return nil, fmt.Errorf("%w: %q is a key facet and cannot be patched", ErrInvalidItem, name)
		}
		attr, ok := a.inst.Attribute(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown attribute %q", ErrInvalidItem, name)
		}
		if attr.ReadOnly {
			return nil, fmt.Errorf("%w: %q is read-only", ErrInvalidItem, name)
		}
	}
	if err := a.validate(set, false); err != nil {
		return nil, err
	}

	op := newOperation(a.set.eng, a.set.table, engine.Request{Method: engine.MethodUpdate, Key: key}).
		Set(set).
		Where(ownership(a.inst))
	res, err := op.Go(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	return a.set.shape(res.Items[:1], opts.Raw)[0], nil
}

// Remove deletes the item addressed by its table key facets and returns it,
// or nil if there was none.
func (a *Actions) Remove(ctx context.Context, keyValues map[string]any, opts Options) (engine.Item, error) {
	if err := a.allow(schema.ActionRemove); err != nil {
		return nil, err
	}
	key, err := a.tableKey(keyValues)
	if err != nil {
		return nil, err
	}
	res, err := a.remove(ctx, key, opts)
	if err != nil || len(res.Items) == 0 {
		return nil, err
	}
	return a.set.shape(res.Items[:1], opts.Raw)[0], nil
}

// RemoveAll deletes items returned by a raw query, one request per item, all
// in flight at once. A failing item does not stop the others.
func (a *Actions) RemoveAll(ctx context.Context, items []engine.Item, opts Options) *BulkResult {
	type outcome struct {
		err error
	}
	outcomes := make([]outcome, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := a.itemKey(item)
			if err == nil {
				_, err = a.remove(ctx, key, opts)
			}
			outcomes[i] = outcome{err: err}
		}()
	}
	wg.Wait()

	res := &BulkResult{Succeeded: []engine.Item{}, Failed: []Failure{}}
	shaped := a.set.shape(items, opts.Raw)
	for i, o := range outcomes {
		if o.err != nil {
			a.set.logger.Warn().Err(o.err).Str("entity", a.inst.Name).Msg("failed to remove item")
			res.Failed = append(res.Failed, Failure{Item: shaped[i], Message: o.err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, shaped[i])
	}
	return res
}

func (a *Actions) remove(ctx context.Context, key engine.KeyCondition, opts Options) (engine.Result, error) {
	op := newOperation(a.set.eng, a.set.table, engine.Request{Method: engine.MethodDelete, Key: key})
	return op.Go(ctx, Options{Table: opts.Table})
}

// tableKey composes the exact table key from facet values.
func (a *Actions) tableKey(keyValues map[string]any) (engine.KeyCondition, error) {
	idx := a.inst.PrimaryIndex()
	pk, err := idx.PartitionKey.Template.Render(keyValues)
	if err != nil {
		return engine.KeyCondition{}, fmt.Errorf("entity %s: %w", a.inst.Name, err)
	}
	key := engine.KeyCondition{PartitionField: idx.PartitionKey.Field, PartitionValue: pk}
	if idx.SortKey == nil {
		return key, nil
	}
	sk, err := idx.SortKey.Template.Render(keyValues)
	if err != nil {
		return engine.KeyCondition{}, fmt.Errorf("entity %s: %w", a.inst.Name, err)
	}
	key.SortField = idx.SortKey.Field
	key.SortValue = sk
	key.SortMatch = engine.SortEqual
	return key, nil
}

// itemKey reads the table key of a stored item. Key fields must hold
// strings.
func (a *Actions) itemKey(item engine.Item) (engine.KeyCondition, error) {
	idx := a.inst.PrimaryIndex()
	pk, err := keyString(item, idx.PartitionKey.Field)
	if err != nil {
		return engine.KeyCondition{}, err
	}
	key := engine.KeyCondition{PartitionField: idx.PartitionKey.Field, PartitionValue: pk}
	if idx.SortKey == nil {
		return key, nil
	}
	sk, err := keyString(item, idx.SortKey.Field)
	if err != nil {
		return engine.KeyCondition{}, err
	}
	key.SortField = idx.SortKey.Field
	key.SortValue = sk
	key.SortMatch = engine.SortEqual
	return key, nil
}

func keyString(item engine.Item, field string) (string, error) {
	v, ok := item[field]
	if !ok {
		return "", fmt.Errorf("%w: item has no %q attribute", ErrInvalidItem, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: key attribute %q is %T, not a string", ErrInvalidItem, field, v)
	}
	return s, nil
}

func (a *Actions) keyFacets() []string {
	var facets []string
	for _, idx := range a.inst.Indexes() {
		for _, f := range idx.Facets() {
			if !slices.Contains(facets, f.Name) {
				facets = append(facets, f.Name)
			}
		}
	}
	return facets
}

// validate checks attribute types, enum values and, for full items, required
// attributes.
func (a *Actions) validate(item engine.Item, full bool) error {
	for _, attr := range a.inst.Attributes() {
		v, ok := item[attr.Name]
		if !ok || v == nil {
			if full && attr.Required {
				return fmt.Errorf("%w: required attribute %q is missing", ErrInvalidItem, attr.Name)
			}
			continue
		}
		if err := checkType(attr, v); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
	}
	return nil
}

func checkType(attr schema.Attribute, v any) error {
	switch attr.Type {
	case schema.TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("attribute %q must be a string, got %T", attr.Name, v)
		}
	case schema.TypeNumber:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		default:
			return fmt.Errorf("attribute %q must be a number, got %T", attr.Name, v)
		}
	case schema.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("attribute %q must be a boolean, got %T", attr.Name, v)
		}
	case schema.TypeEnum:
		s, ok := v.(string)
		if !ok || !slices.Contains(attr.EnumValues, s) {
			return fmt.Errorf("attribute %q must be one of %v, got %v", attr.Name, attr.EnumValues, v)
		}
	}
	return nil
}
