package instance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/acksell/electro/dynamodb/binder"
	"github.com/acksell/electro/dynamodb/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeeYAML = `
entity:
  name: employee
  service: taskapp
  actions: [query, create, remove]
  attributes:
    - {name: employee}
    - {name: office}
  indexes:
    - accessPattern: employee
      pk: {field: pk, facets: [employee]}
      sk: {field: sk}
    - accessPattern: staff
      index: gsi1
      pk: {field: gsi1pk, facets: [office]}
      sk: {field: gsi1sk, facets: [employee]}
`

func writeSource(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "employee.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestOpen_Local(t *testing.T) {
	src := writeSource(t, t.TempDir(), employeeYAML)
	inst, err := Open(context.Background(), registry.Entry{Label: "tasks", Source: src, Table: "electro", Local: true}, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { inst.Close() })

	assert.Equal(t, "tasks", inst.Label())
	assert.Equal(t, "electro", inst.Table)
	assert.NotEmpty(t, inst.Nodes)

	actions, ok := inst.Set.Actions("employee")
	require.True(t, ok)
	_, err = actions.Create(context.Background(), map[string]any{"employee": "e1", "office": "gw"}, binder.Options{})
	require.NoError(t, err)

	staff, ok := inst.Set.Query("staff")
	require.True(t, ok)
	res, err := staff.Invoke(context.Background(), map[string]any{"office": "gw"}, nil, binder.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestOpen_RequiresTable(t *testing.T) {
	src := writeSource(t, t.TempDir(), employeeYAML)
	_, err := Open(context.Background(), registry.Entry{Label: "tasks", Source: src, Local: true}, Options{})
	assert.ErrorContains(t, err, "no table")
}

func TestOpenAll_SkipsBroken(t *testing.T) {
	dir := t.TempDir()
	reg := registry.Open(filepath.Join(dir, "registry.yaml"))
	src := writeSource(t, dir, employeeYAML)
	require.NoError(t, reg.Add(registry.Entry{Label: "good", Source: src, Table: "electro", Local: true}, false))
	require.NoError(t, reg.Add(registry.Entry{Label: "broken", Source: filepath.Join(dir, "gone.yaml"), Local: true}, false))

	instances, errs := OpenAll(context.Background(), reg, Options{DataDir: filepath.Join(dir, "data")})
	t.Cleanup(func() { CloseAll(instances) })

	require.Len(t, instances, 1)
	assert.Equal(t, "good", instances[0].Label())
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], `"broken"`)
}
