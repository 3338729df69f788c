package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/acksell/electro/dynamodb/instance"
	"github.com/acksell/electro/dynamodb/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeeYAML = `
entity:
  name: employee
  service: taskapp
  actions: [query, scan, create, patch, remove]
  attributes:
    - {name: employee}
    - {name: office}
    - {name: salary, type: number}
  indexes:
    - accessPattern: employee
      pk: {field: pk, facets: [employee]}
      sk: {field: sk}
    - accessPattern: staff
      index: gsi1
      pk: {field: gsi1pk, facets: [office]}
      sk: {field: gsi1sk, facets: [employee]}
`

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	src := filepath.Join(t.TempDir(), "employee.yaml")
	require.NoError(t, os.WriteFile(src, []byte(employeeYAML), 0o644))

	inst, err := instance.Open(context.Background(), registry.Entry{Label: "tasks", Source: src, Table: "electro", Local: true}, instance.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { inst.Close() })

	ts := httptest.NewServer(New([]*instance.Instance{inst}, Config{Logger: zerolog.Nop()}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func items(t *testing.T, env envelope) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func seed(t *testing.T, ts *httptest.Server) {
	t.Helper()
	for _, body := range []string{
		`{"employee":"e1","office":"gw","salary":100}`,
		`{"employee":"e2","office":"gw","salary":50}`,
		`{"employee":"e3","office":"pdx","salary":70}`,
	} {
		status, env := do(t, ts, http.MethodPost, "/tasks/employee", body)
		require.Equal(t, http.StatusOK, status, env.Message)
	}
}

func TestServer_Routes(t *testing.T) {
	src := filepath.Join(t.TempDir(), "employee.yaml")
	require.NoError(t, os.WriteFile(src, []byte(employeeYAML), 0o644))
	inst, err := instance.Open(context.Background(), registry.Entry{Label: "Tasks", Source: src, Table: "electro", Local: true}, instance.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { inst.Close() })

	var got []string
	for _, r := range New([]*instance.Instance{inst}, Config{}).Routes() {
		got = append(got, r.Method+" "+r.Pattern)
	}
	assert.Equal(t, []string{
		"GET /tasks/employee/{employee}",
		"GET /tasks/staff/{office}",
		"GET /tasks/staff/{office}/{employee}",
		"GET /tasks/employee",
		"POST /tasks/employee",
		"PUT /tasks/employee/{employee}",
		"DELETE /tasks/employee/{employee}",
	}, got)
}

func TestServer_CreateAndQuery(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	status, env := do(t, ts, http.MethodGet, "/tasks/staff/gw", "")
	require.Equal(t, http.StatusOK, status)
	got := items(t, env)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0]["employee"])
	assert.NotContains(t, got[0], "gsi1pk")

	status, env = do(t, ts, http.MethodGet, "/tasks/staff/gw/e2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(t, env), 1)

	status, env = do(t, ts, http.MethodGet, "/tasks/employee?raw=true", "")
	require.Equal(t, http.StatusOK, status)
	got = items(t, env)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "pk")
}

func TestServer_Filters(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	status, env := do(t, ts, http.MethodGet, "/tasks/staff/gw?filter=salary,gt,60", "")
	require.Equal(t, http.StatusOK, status)
	got := items(t, env)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0]["employee"])

	status, env = do(t, ts, http.MethodGet, "/tasks/staff/gw?filter=salary,gt,lots", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "invalid filter value")

	status, _ = do(t, ts, http.MethodGet, "/tasks/staff/gw?filter=wage,gt,1", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_Params(t *testing.T) {
	ts := newTestServer(t)

	status, env := do(t, ts, http.MethodGet, "/tasks/staff/gw?params=true", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `gsi1pk = \"$taskapp#office_gw\"`)

	status, _ = do(t, ts, http.MethodGet, "/tasks/staff/gw?params=true&delete=true", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, ts, http.MethodGet, "/tasks/staff/gw?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_PatchAndRemove(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	status, env := do(t, ts, http.MethodPut, "/tasks/employee/e1", `{"salary":120}`)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Updated!", env.Message)

	_, env = do(t, ts, http.MethodGet, "/tasks/employee/e1", "")
	got := items(t, env)
	require.Len(t, got, 1)
	assert.EqualValues(t, 120, got[0]["salary"])

	status, env = do(t, ts, http.MethodDelete, "/tasks/employee/e1", "")
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Removed!", env.Message)

	_, env = do(t, ts, http.MethodGet, "/tasks/employee/e1", "")
	assert.Empty(t, items(t, env))
}

func TestServer_DeleteByQuery(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	status, env := do(t, ts, http.MethodGet, "/tasks/staff/gw?delete=true", "")
	require.Equal(t, http.StatusOK, status, env.Message)

	var bulk struct {
		Succeeded []map[string]any `json:"succeeded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bulk))
	assert.Len(t, bulk.Succeeded, 2)

	_, env = do(t, ts, http.MethodGet, "/tasks/employee", "")
	assert.Len(t, items(t, env), 1)
}

func TestServer_Errors(t *testing.T) {
	ts := newTestServer(t)
	seed(t, ts)

	status, _ := do(t, ts, http.MethodPost, "/tasks/employee", `{"employee":"e1","office":"gw"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, ts, http.MethodPost, "/tasks/employee", `{"employee":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, ts, http.MethodPut, "/tasks/employee/e1", `{"office":"pdx","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodGet, "/tasks/staff/gw", "")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `electro_surface_requests_total{method="GET",route="/tasks/staff/{office}",status="200"} 1`)
}
