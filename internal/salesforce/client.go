// Package salesforce talks to the Salesforce REST API on behalf of the
// dashboard backend. Access tokens are minted with the JWT bearer flow and
// cached until they expire or the API rejects them.
package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/suitedash/internal/config"
	"github.com/wesm/suitedash/internal/records"
)

// QueryResult is one page of a SOQL query response.
type QueryResult struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl,omitempty"`
	Records        []records.Record `json:"records"`
}

// Client is a Salesforce REST client.
type Client struct {
	creds      Credentials
	apiVersion string
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	domains    map[string]Domain
	now        func() time.Time

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for token and API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the time source used for assertions and token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client from configuration. Domain overrides in cfg are
// merged onto DefaultDomains.
func NewClient(cfg config.SalesforceConfig, opts ...Option) (*Client, error) {
	domains, err := MergeDomains(DefaultDomains(), cfg.Domains)
	if err != nil {
		return nil, err
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v59.0"
	}
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		creds: Credentials{
			LoginURL: strings.TrimSuffix(cfg.LoginURL, "/"),
			ClientID: cfg.ClientID,
			Username: cfg.Username,
			KeyPath:  cfg.KeyPath,
		},
		apiVersion: apiVersion,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
		domains:    domains,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resetTokens()
	return c, nil
}

// Domain returns the domain definition for key.
func (c *Client) Domain(key string) (Domain, bool) {
	d, ok := c.domains[key]
	return d, ok
}

func (c *Client) resetTokens() {
	src := &jwtSource{
		ctx:        context.Background(),
		creds:      c.creds,
		httpClient: c.httpClient,
		ttl:        c.ttl,
		now:        c.now,
	}
	c.mu.Lock()
	c.tokens = oauth2.ReuseTokenSource(nil, src)
	c.mu.Unlock()
}

// Token returns a cached access token, minting a new one when needed.
func (c *Client) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	src := c.tokens
	c.mu.Unlock()
	return src.Token()
}

// Refresh discards any cached token and mints a fresh one.
func (c *Client) Refresh() (*oauth2.Token, error) {
	c.resetTokens()
	return c.Token()
}

// do sends an authenticated GET to path (relative to the instance URL, or an
// absolute services path such as nextRecordsUrl) and decodes the JSON body
// into out. A 401 drops the cached token and retries once.
func (c *Client) do(ctx context.Context, path string, out any) error {
	for attempt := 0; ; attempt++ {
		tok, err := c.Token()
		if err != nil {
			return err
		}
		base, err := instanceURL(tok)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		tok.SetAuthHeader(req)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("salesforce request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Info("salesforce session rejected, minting new token")
			c.resetTokens()
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return upstreamError(resp.StatusCode, body)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode salesforce response: %w", err)
		}
		return nil
	}
}

// upstreamError keeps the decoded JSON body as the detail when possible.
func upstreamError(status int, body []byte) error {
	var detail any
	if err := json.Unmarshal(body, &detail); err != nil {
		detail = string(body)
	}
	return &Error{Status: status, Detail: detail}
}

func (c *Client) queryPath(endpoint, soql string) string {
	return fmt.Sprintf("/services/data/%s/%s/?q=%s", c.apiVersion, endpoint, url.QueryEscape(soql))
}

// Query runs soql and returns the first page of results.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	var res QueryResult
	if err := c.do(ctx, c.queryPath("query", soql), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// QueryAll runs soql and follows nextRecordsUrl until every page has been
// read. The returned result has Done set and no next URL.
func (c *Client) QueryAll(ctx context.Context, soql string) (*QueryResult, error) {
	res, err := c.Query(ctx, soql)
	if err != nil {
		return nil, err
	}
	next := res.NextRecordsURL
	for next != "" {
		var page QueryResult
		if err := c.do(ctx, next, &page); err != nil {
			return nil, err
		}
		res.Records = append(res.Records, page.Records...)
		next = page.NextRecordsURL
	}
	res.NextRecordsURL = ""
	res.Done = true
	return res, nil
}

// Tooling runs soql against the Tooling API and returns the raw response.
func (c *Client) Tooling(ctx context.Context, soql string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, c.queryPath("tooling/query", soql), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ListDomain returns every record of a list domain, flattened for display.
func (c *Client) ListDomain(ctx context.Context, key string) ([]records.Record, int, error) {
	if err := records.ValidateDomain(key); err != nil {
		return nil, 0, &Error{Status: http.StatusNotFound, Detail: err.Error()}
	}
	d, ok := c.domains[key]
	if !ok {
		return nil, 0, newError(http.StatusNotFound, "domain %q is not configured", key)
	}
	res, err := c.QueryAll(ctx, d.SOQL(""))
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", key, err)
	}
	return d.Flatten(res.Records), res.TotalSize, nil
}

// BuilderDetail fetches a builder's information and its divisions. The two
// queries run concurrently. TotalSize is the server-reported division count,
// which may exceed len(Divisions) when the org holds more than one page.
func (c *Client) BuilderDetail(ctx context.Context, id string) (*records.BuilderDetail, error) {
	if !ValidID(id) {
		return nil, newError(http.StatusBadRequest, "invalid builder id %q", id)
	}
	info := c.domains[BuilderInfo]
	divs := c.domains[Divisions]

	var (
		infoRes *QueryResult
		divRes  *QueryResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		infoRes, err = c.Query(gctx, info.SOQL(fmt.Sprintf("Id = '%s'", id)))
		if err != nil {
			return fmt.Errorf("builder info: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		divRes, err = c.Query(gctx, divs.SOQL(fmt.Sprintf("%s = '%s'", divs.ParentField, id)))
		if err != nil {
			return fmt.Errorf("divisions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail := &records.BuilderDetail{
		Divisions: divs.Flatten(divRes.Records),
		TotalSize: divRes.TotalSize,
	}
	if flat := info.Flatten(infoRes.Records); len(flat) > 0 {
		detail.BuilderInfo = flat[0]
	}
	return detail, nil
}

// IsNotFound reports whether err is a 404 from this package.
func IsNotFound(err error) bool {
	var sfErr *Error
	return errors.As(err, &sfErr) && sfErr.Status == http.StatusNotFound
}
