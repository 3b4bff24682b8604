// Package snipeit is a small client for the Snipe-IT REST API covering the
// endpoints used by sync, provisioning and the registry check.
package snipeit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DrSkyle/snipesync/pkg/inventory"
	"github.com/DrSkyle/snipesync/pkg/version"
)

const (
	apiPrefix = "/api/v1"

	DefaultTimeout       = 15 * time.Second
	DefaultLookupTimeout = 10 * time.Second
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// HTTPError is a non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Messages   Messages
	Body       string
}

func (e *HTTPError) Error() string {
	detail := e.Messages.String()
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, detail)
}

// StatusError is a 2xx response whose envelope reports a failure.
type StatusError struct {
	Status   string
	Messages Messages
}

func (e *StatusError) Error() string {
	msg := e.Messages.String()
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("registry returned status %q: %s", e.Status, msg)
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	LookupTimeout time.Duration
	HTTPClient    *http.Client
}

// Client talks to one registry instance.
type Client struct {
	baseURL       string
	token         string
	timeout       time.Duration
	lookupTimeout time.Duration
	httpClient    *http.Client
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	base := sanitizeBaseURL(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("registry base url not configured")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid registry base url %q: %w", cfg.BaseURL, err)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("registry api token not configured")
	}

	c := &Client{
		baseURL:       base,
		token:         strings.TrimSpace(cfg.Token),
		timeout:       cfg.Timeout,
		lookupTimeout: cfg.LookupTimeout,
		httpClient:    cfg.HTTPClient,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.lookupTimeout <= 0 {
		c.lookupTimeout = DefaultLookupTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// BaseURL returns the normalized registry root.
func (c *Client) BaseURL() string { return c.baseURL }

// FindAssetByTag returns the registry id of the asset carrying tag.
// It returns ErrNotFound when the listing is empty.
func (c *Client) FindAssetByTag(ctx context.Context, tag string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	page, err := c.listAssets(ctx, AssetQuery{Search: tag, AssetTag: tag})
	if err != nil {
		return 0, err
	}
	if page.Total <= 0 || len(page.Rows) == 0 {
		return 0, ErrNotFound
	}
	for _, row := range page.Rows {
		if row.AssetTag == tag {
			return row.ID, nil
		}
	}
	return page.Rows[0].ID, nil
}

// ListAssets returns one page of the hardware listing.
func (c *Client) ListAssets(ctx context.Context, q AssetQuery) (Page[Hardware], error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.listAssets(ctx, q)
}

func (c *Client) listAssets(ctx context.Context, q AssetQuery) (Page[Hardware], error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.AssetTag != "" {
		params.Set("asset_tag", q.AssetTag)
	}
	if q.StatusID > 0 {
		params.Set("status_id", strconv.Itoa(q.StatusID))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	var page Page[Hardware]
	if err := c.do(ctx, http.MethodGet, "/hardware", params, nil, &page); err != nil {
		return Page[Hardware]{}, err
	}
	return page, nil
}

// CreateAsset creates a hardware record and returns its id.
func (c *Client) CreateAsset(ctx context.Context, a inventory.Asset) (int, error) {
	var created Entity
	if err := c.write(ctx, http.MethodPost, "/hardware", AssetPayload(a), &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// UpdateAsset patches the hardware record id with the full asset payload.
func (c *Client) UpdateAsset(ctx context.Context, id int, a inventory.Asset) error {
	return c.write(ctx, http.MethodPatch, "/hardware/"+strconv.Itoa(id), AssetPayload(a), nil)
}

// ListCategories returns all categories.
func (c *Client) ListCategories(ctx context.Context) ([]Entity, error) {
	return listAll[Entity](ctx, c, "/categories")
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, body Category) (Entity, error) {
	var out Entity
	err := c.write(ctx, http.MethodPost, "/categories", body, &out)
	return out, err
}

// ListManufacturers returns all manufacturers.
func (c *Client) ListManufacturers(ctx context.Context) ([]Entity, error) {
	return listAll[Entity](ctx, c, "/manufacturers")
}

// CreateManufacturer creates a manufacturer.
func (c *Client) CreateManufacturer(ctx context.Context, body Manufacturer) (Entity, error) {
	var out Entity
	err := c.write(ctx, http.MethodPost, "/manufacturers", body, &out)
	return out, err
}

// ListModels returns all asset models.
func (c *Client) ListModels(ctx context.Context) ([]Entity, error) {
	return listAll[Entity](ctx, c, "/models")
}

// CreateModel creates an asset model.
func (c *Client) CreateModel(ctx context.Context, body Model) (Entity, error) {
	var out Entity
	err := c.write(ctx, http.MethodPost, "/models", body, &out)
	return out, err
}

// ListFields returns all custom field definitions.
func (c *Client) ListFields(ctx context.Context) ([]Field, error) {
	return listAll[Field](ctx, c, "/fields")
}

// CreateField creates a custom field definition.
func (c *Client) CreateField(ctx context.Context, body FieldRequest) (Field, error) {
	var out Field
	err := c.write(ctx, http.MethodPost, "/fields", body, &out)
	return out, err
}

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var page Page[T]
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Rows, nil
}

// write sends body and checks the envelope status. The payload is decoded into out when non-nil.
func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var env envelope
	if err := c.do(ctx, method, path, nil, body, &env); err != nil {
		return err
	}
	if env.Status != StatusSuccess {
		return &StatusError{Status: env.Status, Messages: env.Messages}
	}
	if out != nil && len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, out); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", path, err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && len(env.Messages) > 0 {
			herr.Messages = env.Messages
		} else {
			herr.Body = truncate(strings.TrimSpace(string(raw)), 512)
		}
		return herr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// AssetPayload builds the hardware body. Extensions without a registry
// column are left out.
func AssetPayload(a inventory.Asset) map[string]any {
	p := map[string]any{
		"asset_tag": a.AssetTag,
		"serial":    a.Serial,
		"name":      a.Name,
		"notes":     a.Notes,
	}
	if a.StatusID > 0 {
		p["status_id"] = a.StatusID
	}
	if a.ModelID > 0 {
		p["model_id"] = a.ModelID
	}
	if a.PurchaseDate != "" {
		p["purchase_date"] = a.PurchaseDate
	}
	for _, e := range a.Extensions {
		if e.Column != "" {
			p[e.Column] = e.Value
		}
	}
	return p
}

func sanitizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	trimmed = strings.TrimSuffix(trimmed, apiPrefix+"/hardware")
	return strings.TrimSuffix(trimmed, apiPrefix)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
