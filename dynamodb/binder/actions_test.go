package binder_test

import (
	"context"
	"testing"

	"github.com/acksell/electro/dynamodb/binder"
	"github.com/acksell/electro/dynamodb/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActions_Create(t *testing.T) {
	set := newStoreSet(t)
	ctx := context.Background()
	employees, _ := set.Actions("employee")

	item, err := employees.Create(ctx, engine.Item{"employee": "e1", "office": "gw", "status": "active"}, binder.Options{})
	require.NoError(t, err)
	assert.Equal(t, engine.Item{"employee": "e1", "office": "gw", "status": "active"}, item)

	_, err = employees.Create(ctx, engine.Item{"employee": "e1"}, binder.Options{})
	assert.ErrorIs(t, err, engine.ErrConditionFailed)

	tests := []struct {
		name string
		item engine.Item
	}{
		{"missing required", engine.Item{"office": "gw"}},
		{"wrong type", engine.Item{"employee": "e2", "salary": "lots"}},
		{"bad enum", engine.Item{"employee": "e2", "status": "fired"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := employees.Create(ctx, tt.item, binder.Options{})
			assert.ErrorIs(t, err, binder.ErrInvalidItem)
		})
	}
}

func TestActions_Patch(t *testing.T) {
	set := newStoreSet(t)
	seed(t, set)
	ctx := context.Background()
	employees, _ := set.Actions("employee")

	item, err := employees.Patch(ctx, map[string]any{"employee": "e2"}, map[string]any{"salary": 60, "status": "retired"}, binder.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 60, item["salary"])
	assert.Equal(t, "retired", item["status"])
	assert.Equal(t, "dev", item["team"])

	_, err = employees.Patch(ctx, map[string]any{"employee": "e2"}, map[string]any{"team": "ops"}, binder.Options{})
	assert.ErrorIs(t, err, binder.ErrInvalidItem)

	_, err = employees.Patch(ctx, map[string]any{"employee": "e2"}, map[string]any{"hired": "2020"}, binder.Options{})
	assert.ErrorIs(t, err, binder.ErrInvalidItem)

	_, err = employees.Patch(ctx, map[string]any{"employee": "nobody"}, map[string]any{"salary": 1}, binder.Options{})
	assert.ErrorIs(t, err, engine.ErrConditionFailed)

	_, err = employees.Patch(ctx, map[string]any{}, map[string]any{"salary": 1}, binder.Options{})
	assert.ErrorIs(t, err, binder.ErrMissingFacet)
}

func TestActions_Remove(t *testing.T) {
	set := newStoreSet(t)
	seed(t, set)
	ctx := context.Background()
	employees, _ := set.Actions("employee")

	item, err := employees.Remove(ctx, map[string]any{"employee": "e1"}, binder.Options{})
	require.NoError(t, err)
	assert.Equal(t, "e1", item["employee"])

	item, err = employees.Remove(ctx, map[string]any{"employee": "e1"}, binder.Options{})
	require.NoError(t, err)
	assert.Nil(t, item)

	coworkers, _ := set.Query("coworkers")
	res, err := coworkers.Invoke(ctx, map[string]any{"office": "gw"}, nil, binder.Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"e2", "e3"}, names(res.Items, "employee"))
}

func TestActions_NotDeclared(t *testing.T) {
	set := newStoreSet(t)
	ctx := context.Background()
	offices, _ := set.Actions("office")

	_, err := offices.Patch(ctx, map[string]any{"country": "us", "city": "x", "office": "gw"}, map[string]any{"team": "dev"}, binder.Options{})
	assert.ErrorIs(t, err, binder.ErrActionNotAllowed)
	_, err = offices.Remove(ctx, map[string]any{"country": "us", "city": "x", "office": "gw"}, binder.Options{})
	assert.ErrorIs(t, err, binder.ErrActionNotAllowed)
}

func TestInvoke_DeleteAgainstStore(t *testing.T) {
	set := newStoreSet(t)
	seed(t, set)
	ctx := context.Background()

	coworkers, _ := set.Query("coworkers")
	res, err := coworkers.Invoke(ctx, map[string]any{"office": "gw", "team": "dev"}, nil, binder.Options{Delete: true})
	require.NoError(t, err)
	assert.Len(t, res.Removed.Succeeded, 2)
	assert.Empty(t, res.Removed.Failed)

	left, err := coworkers.Invoke(ctx, map[string]any{"office": "gw"}, nil, binder.Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"e3"}, names(left.Items, "employee"))

	// Office items in the same partition are untouched.
	workplaces, _ := set.Query("workplaces")
	all, err := workplaces.Invoke(ctx, map[string]any{"office": "gw"}, nil, binder.Options{Raw: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"employee", "office"}, names(all.Items, binder.EntityField))
}
