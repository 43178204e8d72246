// Package sftest provides a fake Salesforce org for tests.
//
// The fake answers the JWT bearer token endpoint and the REST query
// endpoints. Its HTTP client rewrites every request to the fake server, so
// production login hosts such as https://test.salesforce.com can be used
// unchanged in test configuration.
package sftest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// InstanceURL is the org instance URL handed out with every token.
const InstanceURL = "https://acme.my.salesforce.com"

// QueryFunc answers a query. path is the request path (the query endpoint
// or a nextRecordsUrl), soql the decoded q parameter (empty for next pages).
type QueryFunc func(path, soql string) (status int, body any)

// Org is a fake Salesforce org.
type Org struct {
	Server *httptest.Server
	Key    *rsa.PrivateKey

	mu           sync.Mutex
	query        QueryFunc
	tokenStatus  int
	tokenBody    string
	reject       int
	minted       int
	assertions   []jwt.MapClaims
	queries      []string
	authHeaders  []string
	requestPaths []string
}

// NewOrg starts a fake org that returns empty query results until Handle is
// called. The server is closed with the test.
func NewOrg(t *testing.T) *Org {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	o := &Org{Key: key}
	o.query = func(string, string) (int, any) {
		return http.StatusOK, map[string]any{"totalSize": 0, "done": true, "records": []any{}}
	}
	o.Server = httptest.NewServer(http.HandlerFunc(o.serve))
	t.Cleanup(o.Server.Close)
	return o
}

// WriteKey writes the org's private key as PKCS#1 PEM into dir and returns
// the path.
func (o *Org) WriteKey(t *testing.T, dir string) string {
	t.Helper()
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(o.Key)}
	path := filepath.Join(dir, "server.key")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

// HTTPClient returns a client that sends every request to the fake server.
func (o *Org) HTTPClient() *http.Client {
	target, _ := url.Parse(o.Server.URL)
	return &http.Client{Transport: rewriteTransport{target: target, base: o.Server.Client().Transport}}
}

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-Original-Host", req.URL.Host)
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return rt.base.RoundTrip(r)
}

// Handle sets the query handler.
func (o *Org) Handle(fn QueryFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.query = fn
}

// FailToken makes the token endpoint answer with status and a raw body.
func (o *Org) FailToken(status int, body string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokenStatus = status
	o.tokenBody = body
}

// RejectSessions makes the next n API calls answer 401.
func (o *Org) RejectSessions(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reject = n
}

// Minted returns how many tokens have been issued.
func (o *Org) Minted() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.minted
}

// Assertions returns the verified claims of every token request.
func (o *Org) Assertions() []jwt.MapClaims {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]jwt.MapClaims(nil), o.assertions...)
}

// Queries returns the SOQL strings received, in order.
func (o *Org) Queries() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.queries...)
}

// AuthHeaders returns the Authorization header of every API call.
func (o *Org) AuthHeaders() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.authHeaders...)
}

// Paths returns the request path of every API call.
func (o *Org) Paths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.requestPaths...)
}

func (o *Org) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/services/oauth2/token" {
		o.serveToken(w, r)
		return
	}

	o.mu.Lock()
	o.authHeaders = append(o.authHeaders, r.Header.Get("Authorization"))
	o.requestPaths = append(o.requestPaths, r.URL.Path)
	soql := r.URL.Query().Get("q")
	if soql != "" {
		o.queries = append(o.queries, soql)
	}
	if o.reject > 0 {
		o.reject--
		o.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, []map[string]string{
			{"errorCode": "INVALID_SESSION_ID", "message": "Session expired or invalid"},
		})
		return
	}
	fn := o.query
	o.mu.Unlock()

	status, body := fn(r.URL.Path, soql)
	if s, ok := body.(string); ok {
		w.WriteHeader(status)
		fmt.Fprint(w, s)
		return
	}
	writeJSON(w, status, body)
}

func (o *Org) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if got := r.PostForm.Get("grant_type"); got != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(tok *jwt.Token) (any, error) {
		return &o.Key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": err.Error()})
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.assertions = append(o.assertions, claims)
	if o.tokenStatus != 0 {
		w.WriteHeader(o.tokenStatus)
		fmt.Fprint(w, o.tokenBody)
		return
	}
	o.minted++
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": fmt.Sprintf("token-%d", o.minted),
		"instance_url": InstanceURL,
		"token_type":   "Bearer",
		"id":           "https://test.salesforce.com/id/00D/005",
	})
}

// Page builds a query response page.
func Page(total int, next string, recs ...map[string]any) map[string]any {
	list := make([]any, len(recs))
	for i, r := range recs {
		list[i] = r
	}
	page := map[string]any{"totalSize": total, "done": next == "", "records": list}
	if next != "" {
		page["nextRecordsUrl"] = next
	}
	return page
}

// SObjectOf returns the object named after FROM in soql.
func SObjectOf(soql string) string {
	fields := strings.Fields(soql)
	for i, f := range fields {
		if strings.EqualFold(f, "FROM") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
