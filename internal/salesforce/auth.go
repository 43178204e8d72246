package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Login hosts accepted for the JWT bearer flow.
const (
	SandboxLoginURL    = "https://test.salesforce.com"
	ProductionLoginURL = "https://login.salesforce.com"
)

// jwtBearerGrant is the OAuth 2.0 grant type for signed assertions.
const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// assertionLifetime is how long a signed assertion stays valid.
const assertionLifetime = 300 * time.Second

// Credentials identify the connected app and the user it acts for.
type Credentials struct {
	LoginURL string
	ClientID string
	Username string
	KeyPath  string
}

// Validate checks the credentials before any network call. Failures are
// *Error values with status 400.
func (c Credentials) Validate() error {
	if !strings.HasPrefix(c.LoginURL, SandboxLoginURL) && !strings.HasPrefix(c.LoginURL, ProductionLoginURL) {
		return newError(http.StatusBadRequest,
			"LOGIN_URL must be %s (sandbox) or %s (prod)", SandboxLoginURL, ProductionLoginURL)
	}
	if c.ClientID == "" {
		return newError(http.StatusBadRequest, "SALESFORCE_CLIENT_ID is empty")
	}
	if c.Username == "" {
		return newError(http.StatusBadRequest, "SALESFORCE_USERNAME is empty")
	}
	if c.KeyPath == "" {
		return newError(http.StatusBadRequest, "SALESFORCE_JWT_KEY_PATH is empty")
	}
	return nil
}

// jwtSource mints access tokens with the JWT bearer flow. It implements
// oauth2.TokenSource and is wrapped in oauth2.ReuseTokenSource for caching.
type jwtSource struct {
	ctx        context.Context
	creds      Credentials
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time
}

// tokenResponse is the subset of the token endpoint response we use.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
	ID          string `json:"id"`
}

// Token implements oauth2.TokenSource.
func (s *jwtSource) Token() (*oauth2.Token, error) {
	if err := s.creds.Validate(); err != nil {
		return nil, err
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	tokenURL := strings.TrimSuffix(s.creds.LoginURL, "/") + "/services/oauth2/token"
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &Error{Status: resp.StatusCode, Detail: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Detail: data}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" || tr.InstanceURL == "" {
		return nil, errors.New("token response missing access_token or instance_url")
	}

	tok := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		Expiry:      s.now().Add(s.ttl),
	}
	return tok.WithExtra(map[string]any{
		"instance_url": strings.TrimSuffix(tr.InstanceURL, "/"),
		"id":           tr.ID,
	}), nil
}

// signAssertion builds and signs the RS256 assertion.
func (s *jwtSource) signAssertion() (string, error) {
	pemBytes, err := os.ReadFile(s.creds.KeyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", newError(http.StatusInternalServerError, "Private key not found at: %s", s.creds.KeyPath)
		}
		return "", fmt.Errorf("read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", newError(http.StatusInternalServerError, "invalid private key: %v", err)
	}

	// aud must serialize as a plain string, so use MapClaims rather than
	// RegisteredClaims (whose Audience marshals as an array).
	claims := jwt.MapClaims{
		"iss": s.creds.ClientID,
		"sub": s.creds.Username,
		"aud": s.creds.LoginURL,
		"exp": s.now().Add(assertionLifetime).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signed, nil
}

// instanceURL extracts the org instance URL stored on a minted token.
func instanceURL(tok *oauth2.Token) (string, error) {
	u, _ := tok.Extra("instance_url").(string)
	if u == "" {
		return "", errors.New("token has no instance_url")
	}
	return u, nil
}
