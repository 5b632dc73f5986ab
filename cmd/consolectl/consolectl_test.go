package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
[[collections]]
name = "vendors"
label = "Vendors"
group = "Purchasing"
path = "/api/vendors"
page_size = 2
mutations = ["create", "delete"]
export_formats = ["csv"]
filters = ["country"]

  [[collections.columns]]
  key = "name"
  header = "Name"
  sortable = true
  required = true

  [[collections.columns]]
  key = "country"
  header = "Country"

  [[collections.columns]]
  key = "internal"
  header = "Internal"
  hidden = true
`

// fakeAPI serves the vendors collection and records list queries.
type fakeAPI struct {
	mu      sync.Mutex
	queries []string
	writes  []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/vendors":
		f.queries = append(f.queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[
			{"id":"1","name":"Acme","country":"US","internal":"x"},
			{"id":"2","name":"Globex","country":"DE","internal":"y"}
		],"pagination":{"total":3,"pages":2}}`)

	case r.Method == http.MethodGet && r.URL.Path == "/api/vendors/export/csv":
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "name,country\nAcme,US\n")

	case r.Method == http.MethodPost && r.URL.Path == "/api/vendors":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.writes = append(f.writes, "create")
		w.Header().Set("Content-Type", "application/json")
		if body["name"] == "" || body["name"] == nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"errors":[{"field":"name","message":"Name is required"}]}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"3","name":"Initech"}}`)

	case r.Method == http.MethodDelete && r.URL.Path == "/api/vendors/2":
		f.writes = append(f.writes, "delete:"+r.Header.Get("If-Match"))
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T) (*fakeAPI, []string) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return api, []string{"--api", srv.URL, "--catalog", path}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"catalog", "list", "export", "mutate"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"api", "token", "catalog", "json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag --%s", flag)
	}
}

func TestCatalog(t *testing.T) {
	_, base := setup(t)

	out, err := run(t, append([]string{"catalog"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "vendors")
	assert.Contains(t, out, "Purchasing")
	assert.Contains(t, out, "create,delete")

	out, err = run(t, append([]string{"catalog", "--json"}, base...)...)
	require.NoError(t, err)
	var entries []catalogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"name", "country", "internal"}, entries[0].Columns)
}

func TestList_Table(t *testing.T) {
	api, base := setup(t)

	out, err := run(t, append([]string{"list", "vendors", "--search", "ac", "--sort", "name:desc", "--filter", "country=US"}, base...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Globex")
	assert.NotContains(t, out, "INTERNAL", "hidden columns are not printed")
	assert.Contains(t, out, "page 1 of 2, 3 total")

	require.Len(t, api.queries, 1)
	q := api.queries[0]
	assert.Contains(t, q, "search=ac")
	assert.Contains(t, q, "country=US")
	assert.Contains(t, q, "sort_by=name")
	assert.Contains(t, q, "sort_order=desc")
	assert.Contains(t, q, "pageSize=2")
}

func TestList_JSON(t *testing.T) {
	_, base := setup(t)

	out, err := run(t, append([]string{"list", "vendors", "--json", "--page", "2"}, base...)...)
	require.NoError(t, err)

	var res struct {
		Collection string           `json:"collection"`
		Page       int              `json:"page"`
		Total      int              `json:"total"`
		Items      []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "vendors", res.Collection)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Items, 2)
}

func TestList_Rejections(t *testing.T) {
	_, base := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown collection", []string{"list", "nope"}},
		{"undeclared filter", []string{"list", "vendors", "--filter", "city=x"}},
		{"malformed filter", []string{"list", "vendors", "--filter", "country"}},
		{"unsortable column", []string{"list", "vendors", "--sort", "country"}},
		{"bad direction", []string{"list", "vendors", "--sort", "name:up"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append(tt.args, base...)...)
			require.Error(t, err)
			assert.Equal(t, exitCommandError, exitCode(err))
		})
	}
}

func TestExport(t *testing.T) {
	_, base := setup(t)

	out, err := run(t, append([]string{"export", "vendors", "--format", "csv"}, base...)...)
	require.NoError(t, err)
	assert.Equal(t, "name,country\nAcme,US\n", out)

	file := filepath.Join(t.TempDir(), "vendors.csv")
	_, err = run(t, append([]string{"export", "vendors", "--format", "csv", "-o", file}, base...)...)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme")

	_, err = run(t, append([]string{"export", "vendors", "--format", "pdf"}, base...)...)
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))
}

func TestMutate(t *testing.T) {
	api, base := setup(t)

	out, err := run(t, append([]string{"mutate", "vendors", "create", "--data", `{"name":"Initech"}`, "--json"}, base...)...)
	require.NoError(t, err)
	var res mutateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.OK)
	assert.Equal(t, "Created", res.Message)
	assert.Equal(t, []string{"vendors"}, res.Invalidated)

	out, err = run(t, append([]string{"mutate", "vendors", "create", "--data", `{"name":""}`}, base...)...)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, out, "Name is required")

	_, err = run(t, append([]string{"mutate", "vendors", "delete", "--id", "2", "--version", "7"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, api.writes, `delete:"7"`)
}

func TestMutate_Rejections(t *testing.T) {
	api, base := setup(t)

	_, err := run(t, append([]string{"mutate", "vendors", "archive"}, base...)...)
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))

	_, err = run(t, append([]string{"mutate", "vendors", "create", "--data", "[1]"}, base...)...)
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))

	// Not declared for the collection: rejected before any request.
	_, err = run(t, append([]string{"mutate", "vendors", "toggleStatus", "--id", "1"}, base...)...)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Empty(t, api.writes)
}

func TestParseSort(t *testing.T) {
	s, err := parseSort("")
	require.NoError(t, err)
	assert.True(t, s.IsZero())

	s, err = parseSort("name")
	require.NoError(t, err)
	assert.Equal(t, "name", s.Column)
	assert.Equal(t, "asc", string(s.Direction))

	s, err = parseSort("name:DESC")
	require.NoError(t, err)
	assert.Equal(t, "desc", string(s.Direction))

	_, err = parseSort(":desc")
	assert.Error(t, err)
}
