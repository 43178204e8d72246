// Package remote provides the HTTP client the dashboard uses to reach a
// suitedash backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wesm/suitedash/internal/records"
)

// Client provides API access to a suitedash backend.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// Config holds configuration for creating a client.
type Config struct {
	URL           string
	APIKey        string
	AllowInsecure bool
	Timeout       time.Duration
	UserAgent     string
}

// New creates a new client. Plain http is accepted for loopback hosts and,
// with AllowInsecure, for anything else.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("backend URL must include a host (e.g., http://127.0.0.1:8000)")
	}

	if parsedURL.Scheme == "http" && !cfg.AllowInsecure && !isLoopback(parsedURL.Hostname()) {
		return nil, fmt.Errorf("HTTPS required for non-local backends\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [dashboard] backend_url = \"https://dash.example.com\"\n" +
			"  2. For trusted networks: add 'allow_insecure = true' to [dashboard] in config.toml")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// BaseURL returns the backend URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// handleErrorResponse reads an error response. A JSON string body is
// unquoted; any other JSON is compacted; anything else is kept as text.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &APIError{Status: resp.StatusCode, Body: BodyText(body)}
}

// BodyText renders a response body for display in a single line of error
// text.
func BodyText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err == nil {
		return buf.String()
	}
	return string(trimmed)
}

// getJSON GETs path and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListRecords fetches every record of domain. The returned total is the
// server-reported totalSize.
func (c *Client) ListRecords(ctx context.Context, domain string) ([]records.Record, int, error) {
	if err := records.ValidateDomain(domain); err != nil {
		return nil, 0, err
	}

	var raw map[string]json.RawMessage
	if err := c.getJSON(ctx, "/api/sf/"+domain, &raw); err != nil {
		return nil, 0, err
	}

	var recs []records.Record
	if list, ok := raw[domain]; ok {
		if err := json.Unmarshal(list, &recs); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", domain, err)
		}
	}
	if recs == nil {
		recs = []records.Record{}
	}

	total := len(recs)
	if ts, ok := raw["totalSize"]; ok {
		if err := json.Unmarshal(ts, &total); err != nil {
			return nil, 0, fmt.Errorf("decode totalSize: %w", err)
		}
	}
	return recs, total, nil
}

// BuilderDetail fetches one builder with its divisions.
func (c *Client) BuilderDetail(ctx context.Context, id string) (*records.BuilderDetail, error) {
	var detail records.BuilderDetail
	if err := c.getJSON(ctx, "/api/sf/builders/"+url.PathEscape(id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// QueryResponse is the raw outcome of a query. Non-2xx statuses are not
// errors here; the caller renders them.
type QueryResponse struct {
	Status int
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *QueryResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// RunQuery submits soql to the generic query endpoint.
func (c *Client) RunQuery(ctx context.Context, soql string, tooling bool) (*QueryResponse, error) {
	req := records.QueryRequest{SOQL: &soql, Tooling: tooling}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/sf/query", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &QueryResponse{Status: resp.StatusCode, Body: body}, nil
}

// ReportError posts a client failure to the telemetry endpoint.
func (c *Client) ReportError(ctx context.Context, report records.ErrorReport) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/log-error", report)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
