package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/config"
	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
)

const webCatalog = `
[[collections]]
name = "vendors"
label = "Vendors"
group = "Purchasing"
path = "/api/vendors"
page_size = 2
mutations = ["create", "update", "delete"]
export_formats = ["csv"]
filters = ["status"]

  [[collections.columns]]
  key = "name"
  header = "Name"
  sortable = true
  required = true

  [[collections.columns]]
  key = "country"
  header = "Country"
  sortable = true

[[collections]]
name = "currencies"
label = "Currencies"
group = "Settings"
path = "/api/currencies"

  [[collections.columns]]
  key = "code"
  header = "Code"
  required = true
`

// stubBackend serves fixed records and records writes.
type stubBackend struct {
	mu        sync.Mutex
	records   map[string][]remote.Record
	intents   []listing.Intent
	mutateErr error
}

func newStubBackend() *stubBackend {
	return &stubBackend{records: map[string][]remote.Record{
		"vendors": {
			{"id": "v1", "name": "Acme", "country": "DK", "status": "active"},
			{"id": "v2", "name": "Globex", "country": "US", "status": "active"},
			{"id": "v3", "name": "Initech", "country": "US", "status": "inactive"},
		},
		"currencies": {
			{"id": "c1", "code": "DKK"},
		},
	}}
}

func (b *stubBackend) Fetcher(ep remote.Endpoint) listing.Fetcher[remote.Record] {
	return func(_ context.Context, key listing.Key) (listing.Page[remote.Record], error) {
		b.mu.Lock()
		defer b.mu.Unlock()

		var items []remote.Record
		for _, rec := range b.records[ep.Collection] {
			if q, ok := key.Filter(listing.SearchFilter); ok &&
				!strings.Contains(strings.ToLower(rec.String("name")), strings.ToLower(listing.FilterString(q))) {
				continue
			}
			if st, ok := key.Filter("status"); ok && rec.String("status") != listing.FilterString(st) {
				continue
			}
			items = append(items, rec)
		}
		if key.Sort.Column != "" {
			sort.SliceStable(items, func(i, j int) bool {
				a, c := items[i].String(key.Sort.Column), items[j].String(key.Sort.Column)
				if key.Sort.Direction == listing.Desc {
					return a > c
				}
				return a < c
			})
		}
		from := min((key.Page-1)*key.PageSize, len(items))
		to := min(from+key.PageSize, len(items))
		return listing.Page[remote.Record]{
			Items:      items[from:to],
			Total:      len(items),
			TotalPages: listing.PageCount(len(items), key.PageSize),
		}, nil
	}
}

func (b *stubBackend) Mutator(ep remote.Endpoint) listing.Mutator {
	return listing.MutatorFunc(func(_ context.Context, intent listing.Intent) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.intents = append(b.intents, intent)
		if b.mutateErr != nil {
			return nil, b.mutateErr
		}
		return remote.Record{"id": "new"}, nil
	})
}

func (b *stubBackend) Export(_ context.Context, ep remote.Endpoint, format string, filters map[string]any) (io.ReadCloser, string, error) {
	status := ""
	if v, ok := filters["status"]; ok {
		status = listing.FilterString(v)
	}
	return io.NopCloser(strings.NewReader("name\nAcme\n" + status)), "text/csv", nil
}

func (b *stubBackend) lastIntent() listing.Intent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.intents) == 0 {
		return listing.Intent{}
	}
	return b.intents[len(b.intents)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 5 * time.Second},
		List:    config.ListConfig{MaxPageSize: 50},
		Session: config.SessionConfig{CookieName: "sid", IdleTimeout: time.Hour},
		Security: config.SecurityConfig{
			CanCreate: true,
			CanEdit:   true,
			CanDelete: true,
			CanExport: true,
		},
	}
}

type testEnv struct {
	server  *Server
	service *core.Service
	backend *stubBackend
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	reg, err := catalog.Parse([]byte(webCatalog), catalog.FormatTOML)
	require.NoError(t, err)

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	backend := newStubBackend()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := core.NewService(reg, backend, core.NewLogAudit(logger, 100), core.ServiceConfig{
		SearchDebounce: -1,
		MaxPageSize:    cfg.List.MaxPageSize,
		SessionIdle:    cfg.Session.IdleTimeout,
		Logger:         logger,
	})
	srv := NewServer(svc, cfg)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		svc.Sessions().Close()
	})
	return &testEnv{server: srv, service: svc, backend: backend}
}

// do sends a request, carrying the session cookie between calls.
func (e *testEnv) do(t *testing.T, method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			e.cookie = c
		}
	}
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Collections)
	assert.Equal(t, 0, health.Sessions)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Security.EnableCSP = true })

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")

	env = newTestEnv(t, nil)
	rec = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Purchasing")
	assert.Contains(t, body, `href="/screens/vendors"`)
	assert.Contains(t, body, "Currencies")
}

func TestScreen_StartsSessionAndRendersFirstPage(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/screens/vendors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.cookie, "session cookie not set")
	assert.True(t, env.cookie.HttpOnly)

	body := rec.Body.String()
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "Globex")
	assert.NotContains(t, body, "Initech", "page size is 2")
	assert.Contains(t, body, "Page 1 of 2 (3 records)")
	assert.Equal(t, 1, env.service.Sessions().Len())

	// The cookie keeps the same session.
	env.do(t, http.MethodGet, "/screens/vendors/table", nil)
	assert.Equal(t, 1, env.service.Sessions().Len())
}

func TestScreen_UnknownCollection(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/screens/nope", nil, "Accept", "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LST001", resp.Code)
}

func TestScreen_ErrorPartialForHTMX(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/screens/nope/table", nil, "HX-Request", "true")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "LST001")
}

func TestSort_HeaderClickCyclesDirection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/sort/country", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aria-sort="ascending"`)

	rec = env.do(t, http.MethodPost, "/screens/vendors/sort/country", nil)
	body := rec.Body.String()
	assert.Contains(t, body, `aria-sort="descending"`)
	assert.Contains(t, body, "Initech")
	assert.NotContains(t, body, "Acme", "DK sorts last when descending")
}

func TestPaging(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/page/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Initech")
	assert.Contains(t, rec.Body.String(), "Page 2 of 2")

	rec = env.do(t, http.MethodPost, "/screens/vendors/page/zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/screens/vendors/page-size", url.Values{"size": {"25"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page 1 of 1 (3 records)")

	rec = env.do(t, http.MethodPost, "/screens/vendors/page-size", url.Values{"size": {"-3"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchAndFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/search", url.Values{"q": {"glob"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Globex")
	assert.NotContains(t, rec.Body.String(), "Acme")

	rec = env.do(t, http.MethodPost, "/screens/vendors/filter", url.Values{"name": {"status"}, "value": {"inactive"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No Vendors found")

	rec = env.do(t, http.MethodPost, "/screens/vendors/filter", url.Values{"name": {"region"}, "value": {"eu"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/screens/vendors/filter", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme")
}

func TestColumns(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/columns/name/toggle", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "required column")

	rec = env.do(t, http.MethodPost, "/screens/vendors/columns/nope/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown column")
	assert.Contains(t, rec.Body.String(), "unknown column nope")

	rec = env.do(t, http.MethodPost, "/screens/vendors/columns/country/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `data-key="country"`)

	rec = env.do(t, http.MethodPost, "/screens/vendors/columns/toggle-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-key="country"`)

	rec = env.do(t, http.MethodGet, "/screens/vendors/columns?q=cntry", nil, "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var opts []core.ColumnOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	require.Len(t, opts, 1)
	assert.Equal(t, "country", opts[0].Key)
}

func TestOverlay(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/overlay/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="columns-vendors"`)

	event := func(typ, target string) OverlayEventResponse {
		rec := env.do(t, http.MethodPost, "/screens/vendors/overlay/event", url.Values{"type": {typ}, "target": {target}})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp OverlayEventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	inside := event("wheel", "columns-vendors/list")
	assert.True(t, inside.Open)
	assert.True(t, inside.StopPropagation)

	outside := event("pointerdown", "grid-vendors")
	assert.True(t, outside.Closed)
	assert.False(t, outside.Open)

	rec = env.do(t, http.MethodPost, "/screens/vendors/overlay/event", url.Values{"type": {"click"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectRow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodGet, "/screens/vendors/rows/v2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-id="v2"`)
	assert.Contains(t, rec.Body.String(), "/screens/vendors/mutations/delete")

	rec = env.do(t, http.MethodGet, "/screens/vendors/rows/v3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "not on the displayed page")
}

func TestResetScreen(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)
	env.do(t, http.MethodPost, "/screens/vendors/page/2", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/reset", nil, "HX-Request", "true")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/screens/vendors", rec.Header().Get("HX-Redirect"))

	rec = env.do(t, http.MethodGet, "/screens/vendors/table", nil)
	assert.Contains(t, rec.Body.String(), "Page 1 of 2")
}

func TestMutation_JSON(t *testing.T) {
	env := newTestEnv(t, nil)

	body := strings.NewReader(`{"data":{"name":"Umbrella"}}`)
	req := httptest.NewRequest(http.MethodPost, "/screens/vendors/mutations/create", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, []string{"vendors"}, resp.Invalidated)

	intent := env.backend.lastIntent()
	assert.Equal(t, listing.Create, intent.Kind)
	assert.Equal(t, map[string]any{"name": "Umbrella"}, intent.Payload)
}

func TestMutation_FormFailures(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Security.CanDelete = false })
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodPost, "/screens/vendors/mutations/delete", url.Values{"id": {"v1"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/screens/vendors/mutations/archive", url.Values{"id": {"v1"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/screens/vendors/mutations/update", url.Values{"id": {"v1"}, "data": {"not json"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/screens/currencies/mutations/delete", url.Values{"id": {"c1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "currencies declare no mutations")

	env.backend.mutateErr = &listing.ServerError{Status: http.StatusConflict}
	rec = env.do(t, http.MethodPost, "/screens/vendors/mutations/update",
		url.Values{"id": {"v1"}, "version": {"7"}, "data": {`{"name":"Acme A/S"}`}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "7", env.backend.lastIntent().Version)
}

func TestMutation_HTMXToast(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	env.backend.mutateErr = &listing.ServerError{
		Status: http.StatusUnprocessableEntity,
		Errors: []listing.FieldError{{Field: "name", Message: "Name is required"}},
	}
	rec := env.do(t, http.MethodPost, "/screens/vendors/mutations/update",
		url.Values{"id": {"v1"}, "data": {`{"name":""}`}}, "HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "Name is required")
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)
	env.do(t, http.MethodPost, "/screens/vendors/filter", url.Values{"name": {"status"}, "value": {"active"}})

	rec := env.do(t, http.MethodGet, "/screens/vendors/export/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="vendors_`)
	assert.True(t, strings.HasSuffix(rec.Body.String(), "active"), "export uses the screen's filters")
	assert.Equal(t, 0, env.service.LimiterStatus().Active, "limiter slot released")

	rec = env.do(t, http.MethodGet, "/screens/vendors/export/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport_Forbidden(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Security.CanExport = false })
	env.do(t, http.MethodGet, "/screens/vendors", nil)

	rec := env.do(t, http.MethodGet, "/screens/vendors/export/csv", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuditLog(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/screens/vendors", nil)
	env.do(t, http.MethodPost, "/screens/vendors/mutations/delete", url.Values{"id": {"v2"}}, "User-Agent", "audit-test")

	rec := env.do(t, http.MethodGet, "/audit?collection=vendors", nil, "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []core.AuditEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, listing.Delete, entries[0].Action)
	assert.Equal(t, core.SeverityHigh, entries[0].Severity)
	assert.Equal(t, "anonymous", entries[0].Actor)
	assert.Equal(t, "audit-test", entries[0].UserAgent)

	rec = env.do(t, http.MethodGet, "/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "v2")

	rec = env.do(t, http.MethodGet, "/audit/export?severity=high", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Timestamp,Action"))
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", nil, "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "limits are per IP")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("10.0.0.1"), "window reset")

	now = now.Add(3 * time.Minute)
	rl.prune()
	assert.Empty(t, rl.visitors)

	rl.stop() // idempotent
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 1
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", nil).Code)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{listing.ErrUnknownCollection, http.StatusNotFound},
		{core.ErrSessionNotFound, http.StatusNotFound},
		{core.ErrExportNotSupported, http.StatusNotFound},
		{listing.ErrForbidden, http.StatusForbidden},
		{core.ErrMutationNotSupported, http.StatusUnprocessableEntity},
		{core.ErrTooManyFetches, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&listing.ServerError{Status: 500}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}

func TestCSVSafe(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"plain":       "plain",
		"=SUM(A1:A3)": "'=SUM(A1:A3)",
		"+1":          "'+1",
		"-1":          "'-1",
		"@cmd":        "'@cmd",
		"key:abc=":    "key:abc=",
	}
	for in, want := range tests {
		assert.Equal(t, want, csvSafe(in), "csvSafe(%q)", in)
	}
}
