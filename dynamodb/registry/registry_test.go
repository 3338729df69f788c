package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	return Open(filepath.Join(t.TempDir(), "nested", "registry.yaml"))
}

func TestRegistry_AddListGet(t *testing.T) {
	r := newRegistry(t)

	entries, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, r.Add(Entry{Label: "taskapp", Source: "/s/taskapp.yaml", Table: "electro", Local: true}, false))
	require.NoError(t, r.Add(Entry{Label: "billing", Source: "/s/billing.yaml", Region: "eu-west-1"}, false))

	entries, err = r.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "billing", entries[0].Label)
	assert.Equal(t, Entry{Label: "taskapp", Source: "/s/taskapp.yaml", Table: "electro", Local: true}, entries[1])

	e, ok, err := r.Get("TaskApp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "electro", e.Table)
}

func TestRegistry_AddConflict(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Add(Entry{Label: "taskapp", Source: "/a.yaml"}, false))

	assert.NoError(t, r.Add(Entry{Label: "taskapp", Source: "/a.yaml", Table: "other"}, false))
	e, _, _ := r.Get("taskapp")
	assert.Empty(t, e.Table)

	err := r.Add(Entry{Label: "taskapp", Source: "/b.yaml"}, false)
	assert.ErrorIs(t, err, ErrLabelTaken)

	require.NoError(t, r.Add(Entry{Label: "taskapp", Source: "/b.yaml"}, true))
	e, _, _ = r.Get("taskapp")
	assert.Equal(t, "/b.yaml", e.Source)
}

func TestRegistry_Remove(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Add(Entry{Label: "TaskApp", Source: "/a.yaml"}, false))

	removed, err := r.Remove("taskapp")
	require.NoError(t, err)
	assert.Equal(t, "TaskApp", removed)

	removed, err = r.Remove("taskapp")
	require.NoError(t, err)
	assert.Empty(t, removed)
}
