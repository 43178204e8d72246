// Package config handles loading and managing suitedash configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wesm/suitedash/internal/fileutil"
)

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr        string   `toml:"bind_addr"`        // Listen address (default: 127.0.0.1)
	APIPort         int      `toml:"api_port"`         // HTTP server port (default: 8000)
	APIKey          string   `toml:"api_key"`          // API authentication key
	AllowInsecure   bool     `toml:"allow_insecure"`   // Permit non-loopback bind without api_key
	CORSOrigins     []string `toml:"cors_origins"`     // Allowed origins ("*" for any)
	CORSCredentials bool     `toml:"cors_credentials"` // Send Access-Control-Allow-Credentials
	CORSMaxAge      int      `toml:"cors_max_age"`     // Preflight cache seconds
	WebDir          string   `toml:"web_dir"`          // Static page shell (index.html)
	AssetsDir       string   `toml:"assets_dir"`       // Images and other assets
	RateLimitRPS    float64  `toml:"rate_limit_rps"`
	RateLimitBurst  int      `toml:"rate_limit_burst"`
}

// ValidateSecure refuses to expose an unauthenticated API beyond loopback.
func (s ServerConfig) ValidateSecure() error {
	if s.APIKey != "" || s.AllowInsecure {
		return nil
	}
	addr := s.BindAddr
	if addr == "" || addr == "localhost" {
		return nil
	}
	if ip := net.ParseIP(addr); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("refusing to bind %s without authentication\n\n"+
		"Set [server] api_key in config.toml, or allow_insecure = true on trusted networks", addr)
}

// FieldConfig maps an output record field to a Salesforce field path.
// Relationship paths use dots (e.g. "Builder__r.Name").
type FieldConfig struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// DomainConfig overrides the Salesforce query behind one record domain.
type DomainConfig struct {
	Key         string        `toml:"key"`
	SObject     string        `toml:"sobject"`
	Where       string        `toml:"where"`
	OrderBy     string        `toml:"order_by"`
	Limit       int           `toml:"limit"`
	ParentField string        `toml:"parent_field"` // Lookup to the parent record (child domains only)
	Fields      []FieldConfig `toml:"fields"`
}

// SalesforceConfig holds the JWT bearer credentials and query settings.
type SalesforceConfig struct {
	LoginURL        string         `toml:"login_url"`
	ClientID        string         `toml:"client_id"`
	Username        string         `toml:"username"`
	KeyPath         string         `toml:"jwt_key_path"`
	APIVersion      string         `toml:"api_version"`
	TokenTTLMinutes int            `toml:"token_ttl_minutes"` // Assumed session lifetime for cached tokens
	TimeoutSeconds  int            `toml:"timeout_seconds"`
	DefaultTestSOQL string         `toml:"default_test_soql"`
	WarmSchedule    string         `toml:"warm_schedule"` // Cron expression; empty disables
	Domains         []DomainConfig `toml:"domains"`
}

// TokenTTL returns the cached token lifetime.
func (s SalesforceConfig) TokenTTL() time.Duration {
	return time.Duration(s.TokenTTLMinutes) * time.Minute
}

// Timeout returns the upstream HTTP timeout.
func (s SalesforceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DashboardConfig holds settings for the terminal dashboard client.
type DashboardConfig struct {
	BackendURL     string `toml:"backend_url"`
	APIKey         string `toml:"api_key"`
	AllowInsecure  bool   `toml:"allow_insecure"` // Permit plain http to non-local hosts
	TimeoutSeconds int    `toml:"timeout_seconds"`
	DefaultQuery   string `toml:"default_query"`
	LogFile        string `toml:"log_file"`
}

// Timeout returns the backend HTTP timeout.
func (d DashboardConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Config represents the suitedash configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Salesforce SalesforceConfig `toml:"salesforce"`
	Dashboard  DashboardConfig  `toml:"dashboard"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

const defaultTestSOQL = "SELECT Id, Name FROM Account LIMIT 5"

// DefaultHome returns the default suitedash home directory.
// Respects SUITEDASH_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("SUITEDASH_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".suitedash"
	}
	return filepath.Join(home, ".suitedash")
}

// NewDefaultConfig returns a configuration populated with defaults rooted at
// homeDir.
func NewDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Server: ServerConfig{
			BindAddr:       "127.0.0.1",
			APIPort:        8000,
			CORSOrigins:    []string{"*"},
			WebDir:         "web",
			AssetsDir:      "assets",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Salesforce: SalesforceConfig{
			LoginURL:        "https://test.salesforce.com",
			APIVersion:      "v59.0",
			TokenTTLMinutes: 30,
			TimeoutSeconds:  30,
			DefaultTestSOQL: defaultTestSOQL,
		},
		Dashboard: DashboardConfig{
			BackendURL:     "http://127.0.0.1:8000",
			TimeoutSeconds: 30,
		},
	}
}

// Load reads the configuration from the specified file.
// If path is empty, uses config.toml inside homeDir (or DefaultHome when
// homeDir is empty); a missing default file is not an error. An explicit path
// must exist, and its parent directory becomes the home directory.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	switch {
	case homeDir != "":
		homeDir = expandPath(homeDir)
	case explicit:
		homeDir = filepath.Dir(expandPath(path))
	default:
		homeDir = DefaultHome()
	}
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}
	path = expandPath(path)

	cfg := NewDefaultConfig(homeDir)
	cfg.configPath = path

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Salesforce.KeyPath = cfg.resolvePath(cfg.Salesforce.KeyPath)
	cfg.Server.WebDir = expandPath(cfg.Server.WebDir)
	cfg.Server.AssetsDir = expandPath(cfg.Server.AssetsDir)
	if cfg.Dashboard.DefaultQuery == "" {
		cfg.Dashboard.DefaultQuery = cfg.Salesforce.DefaultTestSOQL
	}
	if cfg.Dashboard.LogFile == "" {
		cfg.Dashboard.LogFile = filepath.Join(homeDir, "dashboard.log")
	}
	cfg.Dashboard.LogFile = expandPath(cfg.Dashboard.LogFile)

	return cfg, nil
}

// applyEnv applies the environment variables understood by earlier
// deployments of the proxy. Non-empty values override the file.
func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SALESFORCE_LOGIN_URL", &c.Salesforce.LoginURL)
	str("SALESFORCE_CLIENT_ID", &c.Salesforce.ClientID)
	str("SALESFORCE_USERNAME", &c.Salesforce.Username)
	str("SALESFORCE_JWT_KEY_PATH", &c.Salesforce.KeyPath)
	str("DEFAULT_TEST_SOQL", &c.Salesforce.DefaultTestSOQL)
	str("SUITEDASH_BACKEND_URL", &c.Dashboard.BackendURL)
	str("SUITEDASH_API_KEY", &c.Server.APIKey)

	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		c.Server.APIPort = port
	}
	return nil
}

// ConfigFilePath returns the path the configuration was (or would be) read from.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(c.HomeDir, 0o700)
}

// AllowsAllOrigins reports whether CORS is configured as a wildcard.
func (s ServerConfig) AllowsAllOrigins() bool {
	return len(s.CORSOrigins) == 1 && s.CORSOrigins[0] == "*"
}

// resolvePath expands ~ and anchors relative paths at the home directory.
func (c *Config) resolvePath(p string) string {
	p = expandPath(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.HomeDir, p)
}

// decodeError adds a hint for the common Windows-path mistake of using
// backslashes inside double-quoted TOML strings.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n\nhint: use forward slashes (C:/keys/server.key) "+
			"or single quotes ('C:\\keys\\server.key') for paths", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
