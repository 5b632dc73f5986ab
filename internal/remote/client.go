// Package remote talks to the back-office REST API that owns the collections
// shown in the console.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// Record is one row of any collection. Payload shapes are opaque to the engine.
type Record map[string]any

// String returns the field as display text.
func (r Record) String(field string) string {
	return listing.FormatValue(r[field])
}

// Endpoint describes where a collection lives and how its list responses are shaped.
type Endpoint struct {
	Collection string
	Path       string // e.g. "/api/currencies"
	ItemsField string // named items field; empty means {data, pagination}
	Single     bool   // the endpoint returns one object, e.g. aggregate stats
}

// Client talks to the collection API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	apiKey    string
}

const (
	defaultBaseURL   = "http://127.0.0.1:8081"
	defaultUserAgent = "ledgerdesk/0.1"
	requestTimeout   = 15 * time.Second
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient builds a Client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// List fetches the page described by key.
func (c *Client) List(ctx context.Context, ep Endpoint, key listing.Key) (listing.Page[Record], error) {
	if c == nil {
		return listing.Page[Record]{}, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: ep.Path, RawQuery: listQuery(key).Encode()}

	var raw json.RawMessage
	if err := c.doURL(ctx, http.MethodGet, rel, nil, nil, &raw); err != nil {
		return listing.Page[Record]{}, err
	}
	page, err := decodePage(raw, ep)
	if err != nil {
		return listing.Page[Record]{}, fmt.Errorf("decode %s page: %w", ep.Collection, err)
	}
	return page, nil
}

// Fetcher adapts List to the engine's fetcher signature.
func (c *Client) Fetcher(ep Endpoint) listing.Fetcher[Record] {
	return func(ctx context.Context, key listing.Key) (listing.Page[Record], error) {
		return c.List(ctx, ep, key)
	}
}

// Mutate performs a write. The returned record is nil when the server only
// acknowledges the write.
//
//	create        POST   {path}
//	update        PUT    {path}/{id}
//	delete        DELETE {path}/{id}
//	setDefault    POST   {path}/{id}/default
//	toggleStatus  POST   {path}/{id}/toggle-status
func (c *Client) Mutate(ctx context.Context, ep Endpoint, intent listing.Intent) (Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	method, path := http.MethodPost, ep.Path
	id := url.PathEscape(intent.ID)
	switch intent.Kind {
	case listing.Update:
		method, path = http.MethodPut, ep.Path+"/"+id
	case listing.Delete:
		method, path = http.MethodDelete, ep.Path+"/"+id
	case listing.SetDefault:
		path = ep.Path + "/" + id + "/default"
	case listing.ToggleStatus:
		path = ep.Path + "/" + id + "/toggle-status"
	}

	var body io.Reader
	if intent.Payload != nil {
		buf, err := json.Marshal(intent.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	header := http.Header{}
	if intent.Version != "" {
		header.Set("If-Match", strconv.Quote(intent.Version))
	}

	var raw json.RawMessage
	if err := c.doURL(ctx, method, &url.URL{Path: path}, header, body, &raw); err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// Mutator adapts Mutate to the engine's mutator interface.
func (c *Client) Mutator(ep Endpoint) listing.Mutator {
	return listing.MutatorFunc(func(ctx context.Context, intent listing.Intent) (any, error) {
		rec, err := c.Mutate(ctx, ep, intent)
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// Export asks the server to render the collection in format ("xlsx", "pdf")
// for the given filter state. The caller closes the body.
func (c *Client) Export(ctx context.Context, ep Endpoint, format string, filters map[string]any) (io.ReadCloser, string, error) {
	if c == nil {
		return nil, "", fmt.Errorf("client is nil")
	}
	values := url.Values{}
	for name, v := range filters {
		values.Set(name, listing.FilterString(v))
	}
	rel := &url.URL{Path: ep.Path + "/export/" + url.PathEscape(format), RawQuery: values.Encode()}

	resp, err := c.send(ctx, http.MethodGet, rel, nil, nil)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, "", readError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Query parameters the list request sets itself. A filter cannot use them.
const (
	paramPage      = "page"
	paramPageSize  = "pageSize"
	paramSortBy    = "sort_by"
	paramSortOrder = "sort_order"
)

// ReservedParam reports whether name is a list query parameter that a filter
// may not use.
func ReservedParam(name string) bool {
	switch name {
	case paramPage, paramPageSize, paramSortBy, paramSortOrder:
		return true
	}
	return false
}

// listQuery encodes a key as page, pageSize, sort_by, sort_order and one
// parameter per filter. Filters named like a reserved parameter are dropped.
func listQuery(key listing.Key) url.Values {
	values := url.Values{}
	for name, v := range key.Filters {
		if ReservedParam(name) {
			continue
		}
		values.Set(name, listing.FilterString(v))
	}
	values.Set(paramPage, strconv.Itoa(key.Page))
	values.Set(paramPageSize, strconv.Itoa(key.PageSize))
	if !key.Sort.IsZero() {
		values.Set(paramSortBy, key.Sort.Column)
		values.Set(paramSortOrder, string(key.Sort.Direction))
	}
	return values
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, header http.Header, body io.Reader, dest any) error {
	resp, err := c.send(ctx, method, rel, header, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return readError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method string, rel *url.URL, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(rel).String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// resolve appends rel to the base URL's path, so a base of
// https://host/v1 sends /api/vendors to https://host/v1/api/vendors.
func (c *Client) resolve(rel *url.URL) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + rel.Path
	u.RawPath = ""
	u.RawQuery = rel.RawQuery
	return &u
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
