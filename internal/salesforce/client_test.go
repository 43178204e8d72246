package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/suitedash/internal/config"
	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/testutil/sftest"
)

func newTestClient(t *testing.T, org *sftest.Org, mutate ...func(*config.SalesforceConfig)) *Client {
	t.Helper()
	cfg := config.SalesforceConfig{
		LoginURL:        "https://test.salesforce.com",
		ClientID:        "client-123",
		Username:        "ops@example.com",
		KeyPath:         org.WriteKey(t, t.TempDir()),
		APIVersion:      "v59.0",
		TokenTTLMinutes: 30,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg, WithHTTPClient(org.HTTPClient()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestTokenAssertionClaims(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org)

	before := time.Now()
	tok, err := c.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "token-1" {
		t.Errorf("AccessToken = %q, want token-1", tok.AccessToken)
	}
	if got, _ := instanceURL(tok); got != sftest.InstanceURL {
		t.Errorf("instance_url = %q, want %q", got, sftest.InstanceURL)
	}

	claims := org.Assertions()
	if len(claims) != 1 {
		t.Fatalf("got %d assertions, want 1", len(claims))
	}
	cl := claims[0]
	if cl["iss"] != "client-123" || cl["sub"] != "ops@example.com" {
		t.Errorf("iss/sub = %v/%v", cl["iss"], cl["sub"])
	}
	if aud, ok := cl["aud"].(string); !ok || aud != "https://test.salesforce.com" {
		t.Errorf("aud = %#v, want plain string login url", cl["aud"])
	}
	exp, _ := cl["exp"].(float64)
	if d := time.Unix(int64(exp), 0).Sub(before); d < 299*time.Second || d > 310*time.Second {
		t.Errorf("exp is %v after now, want about 300s", d)
	}
}

func TestTokenIsCached(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org)

	for i := 0; i < 3; i++ {
		if _, err := c.Query(context.Background(), "SELECT Id FROM Account"); err != nil {
			t.Fatalf("Query() error = %v", err)
		}
	}
	if org.Minted() != 1 {
		t.Errorf("Minted() = %d, want 1", org.Minted())
	}
	for _, h := range org.AuthHeaders() {
		if h != "Bearer token-1" {
			t.Errorf("Authorization = %q, want Bearer token-1", h)
		}
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name   string
		creds  Credentials
		detail string
	}{
		{"bad login url", Credentials{LoginURL: "https://evil.example.com", ClientID: "c", Username: "u", KeyPath: "k"}, "LOGIN_URL must be"},
		{"empty client id", Credentials{LoginURL: ProductionLoginURL, Username: "u", KeyPath: "k"}, "SALESFORCE_CLIENT_ID is empty"},
		{"empty username", Credentials{LoginURL: ProductionLoginURL, ClientID: "c", KeyPath: "k"}, "SALESFORCE_USERNAME is empty"},
		{"empty key path", Credentials{LoginURL: SandboxLoginURL, ClientID: "c", Username: "u"}, "SALESFORCE_JWT_KEY_PATH is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if StatusOf(err) != http.StatusBadRequest {
				t.Errorf("StatusOf() = %d, want 400", StatusOf(err))
			}
			if d, _ := DetailOf(err).(string); !strings.Contains(d, tt.detail) {
				t.Errorf("detail = %q, want it to contain %q", d, tt.detail)
			}
		})
	}

	ok := Credentials{LoginURL: ProductionLoginURL, ClientID: "c", Username: "u", KeyPath: "k"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTokenMissingKeyFile(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org, func(cfg *config.SalesforceConfig) {
		cfg.KeyPath = "/nonexistent/server.key"
	})

	_, err := c.Token()
	if StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("StatusOf(%v) = %d, want 500", err, StatusOf(err))
	}
	if d, _ := DetailOf(err).(string); !strings.Contains(d, "Private key not found at: /nonexistent/server.key") {
		t.Errorf("detail = %q", d)
	}
}

func TestTokenEndpointErrors(t *testing.T) {
	t.Run("json error body", func(t *testing.T) {
		org := sftest.NewOrg(t)
		org.FailToken(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"user hasn't approved"}`)
		c := newTestClient(t, org)

		_, err := c.Token()
		if StatusOf(err) != http.StatusBadRequest {
			t.Fatalf("StatusOf() = %d, want 400", StatusOf(err))
		}
		want := map[string]any{"error": "invalid_grant", "error_description": "user hasn't approved"}
		if diff := cmp.Diff(want, DetailOf(err)); diff != "" {
			t.Errorf("detail mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("non-json body", func(t *testing.T) {
		org := sftest.NewOrg(t)
		org.FailToken(http.StatusBadGateway, "upstream exploded")
		c := newTestClient(t, org)

		_, err := c.Token()
		if StatusOf(err) != http.StatusBadGateway {
			t.Fatalf("StatusOf() = %d, want 502", StatusOf(err))
		}
		if DetailOf(err) != "upstream exploded" {
			t.Errorf("detail = %v", DetailOf(err))
		}
	})
}

func TestQueryRetriesOnceAfter401(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org)
	if _, err := c.Token(); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	org.RejectSessions(1)
	if _, err := c.Query(context.Background(), "SELECT Id FROM Account"); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if org.Minted() != 2 {
		t.Errorf("Minted() = %d, want 2", org.Minted())
	}

	org.RejectSessions(2)
	_, err := c.Query(context.Background(), "SELECT Id FROM Account")
	if StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("StatusOf() = %d, want 401 after a second rejection", StatusOf(err))
	}
}

func TestQueryAllFollowsNextRecordsURL(t *testing.T) {
	org := sftest.NewOrg(t)
	next := "/services/data/v59.0/query/01gxx-2000"
	org.Handle(func(path, soql string) (int, any) {
		if path == next {
			return http.StatusOK, sftest.Page(3, "", map[string]any{"Id": "c"})
		}
		return http.StatusOK, sftest.Page(3, next, map[string]any{"Id": "a"}, map[string]any{"Id": "b"})
	})
	c := newTestClient(t, org)

	res, err := c.QueryAll(context.Background(), "SELECT Id FROM Account")
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	var ids []string
	for _, r := range res.Records {
		ids = append(ids, r.String("Id"))
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if !res.Done || res.NextRecordsURL != "" || res.TotalSize != 3 {
		t.Errorf("result = done:%v next:%q total:%d", res.Done, res.NextRecordsURL, res.TotalSize)
	}
}

func TestQueryUpstreamError(t *testing.T) {
	org := sftest.NewOrg(t)
	org.Handle(func(string, string) (int, any) {
		return http.StatusBadRequest, []map[string]string{{"errorCode": "MALFORMED_QUERY", "message": "unexpected token"}}
	})
	c := newTestClient(t, org)

	_, err := c.Query(context.Background(), "SELEKT")
	if StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("StatusOf() = %d, want 400", StatusOf(err))
	}
	list, ok := DetailOf(err).([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("detail = %#v, want decoded error list", DetailOf(err))
	}
}

func TestToolingUsesToolingEndpoint(t *testing.T) {
	org := sftest.NewOrg(t)
	org.Handle(func(path, soql string) (int, any) {
		return http.StatusOK, map[string]any{"size": 1, "records": []any{map[string]any{"Name": "MyClass"}}}
	})
	c := newTestClient(t, org)

	raw, err := c.Tooling(context.Background(), "SELECT Name FROM ApexClass")
	if err != nil {
		t.Fatalf("Tooling() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["size"] != float64(1) {
		t.Errorf("size = %v", got["size"])
	}
	paths := org.Paths()
	if len(paths) != 1 || paths[0] != "/services/data/v59.0/tooling/query/" {
		t.Errorf("paths = %v", paths)
	}
}

func TestListDomainFlattensRecords(t *testing.T) {
	org := sftest.NewOrg(t)
	org.Handle(func(path, soql string) (int, any) {
		return http.StatusOK, sftest.Page(2, "",
			map[string]any{
				"attributes": map[string]any{"type": "Community__c"},
				"Id":         "a01000000000001AAA",
				"Name":       "Oak Ridge",
				"Builder__r": map[string]any{"Name": "Acme Homes"},
				"City__c":    "Austin",
				"State__c":   "TX",
				"Status__c":  "Active",
			},
			map[string]any{
				"Id":         "a01000000000002AAA",
				"Name":       "Pine Hollow",
				"Builder__r": nil,
			},
		)
	})
	c := newTestClient(t, org)

	recs, total, err := c.ListDomain(context.Background(), records.Communities)
	if err != nil {
		t.Fatalf("ListDomain() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	want := []records.Record{
		{"Id": "a01000000000001AAA", "Name": "Oak Ridge", "Builder": "Acme Homes", "City": "Austin", "State": "TX", "Status": "Active"},
		{"Id": "a01000000000002AAA", "Name": "Pine Hollow", "Builder": nil, "City": nil, "State": nil, "Status": nil},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if q := org.Queries(); len(q) != 1 || sftest.SObjectOf(q[0]) != "Community__c" {
		t.Errorf("queries = %v", q)
	}
}

func TestListDomainUnknown(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org)

	_, _, err := c.ListDomain(context.Background(), "contacts")
	if !IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
	if org.Minted() != 0 {
		t.Error("unknown domain should not reach Salesforce")
	}
}

func TestBuilderDetail(t *testing.T) {
	org := sftest.NewOrg(t)
	org.Handle(func(path, soql string) (int, any) {
		switch sftest.SObjectOf(soql) {
		case "Account":
			return http.StatusOK, sftest.Page(1, "", map[string]any{
				"Id": "001000000000001", "Name": "Acme Homes", "BillingCity": "Austin",
			})
		case "Division__c":
			// More divisions upstream than returned on the first page.
			return http.StatusOK, sftest.Page(250, "/services/data/v59.0/query/next",
				map[string]any{"Id": "d1", "Name": "North"},
				map[string]any{"Id": "d2", "Name": "South"},
			)
		}
		return http.StatusNotFound, "unexpected"
	})
	c := newTestClient(t, org)

	detail, err := c.BuilderDetail(context.Background(), "001000000000001")
	if err != nil {
		t.Fatalf("BuilderDetail() error = %v", err)
	}
	if detail.BuilderInfo.String("Name") != "Acme Homes" || detail.BuilderInfo.String("City") != "Austin" {
		t.Errorf("BuilderInfo = %v", detail.BuilderInfo)
	}
	if len(detail.Divisions) != 2 || detail.TotalSize != 250 {
		t.Errorf("divisions = %d, totalSize = %d; want 2, 250", len(detail.Divisions), detail.TotalSize)
	}

	for _, q := range org.Queries() {
		switch sftest.SObjectOf(q) {
		case "Account":
			if !strings.Contains(q, "Id = '001000000000001'") {
				t.Errorf("builder query = %q", q)
			}
		case "Division__c":
			if !strings.Contains(q, "Builder__c = '001000000000001'") {
				t.Errorf("division query = %q", q)
			}
		}
	}
}

func TestBuilderDetailRejectsInvalidID(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org)

	for _, id := range []string{"", "short", "001000000000001' OR Name != '", "0010000000000011234"} {
		_, err := c.BuilderDetail(context.Background(), id)
		if StatusOf(err) != http.StatusBadRequest {
			t.Errorf("BuilderDetail(%q) status = %d, want 400", id, StatusOf(err))
		}
	}
	if len(org.Queries()) != 0 {
		t.Errorf("invalid ids reached Salesforce: %v", org.Queries())
	}
}

func TestBuilderDetailNotFoundHasNoInfo(t *testing.T) {
	org := sftest.NewOrg(t)
	c := newTestClient(t, org)

	detail, err := c.BuilderDetail(context.Background(), "001000000000001AAA")
	if err != nil {
		t.Fatalf("BuilderDetail() error = %v", err)
	}
	if detail.BuilderInfo != nil {
		t.Errorf("BuilderInfo = %v, want nil", detail.BuilderInfo)
	}
	out, _ := json.Marshal(detail)
	if strings.Contains(string(out), "builder_info") {
		t.Errorf("json = %s, want builder_info omitted", out)
	}
}
