package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultClaim is the namespaced custom claim holding the identity's roles.
const DefaultClaim = "https://string-scribe.com/roles"

// Environment variables that override values from the TOML file.
const (
	EnvBackendBase  = "SCRIBE_BACKEND_BASE"
	EnvAuthDomain   = "SCRIBE_AUTH_DOMAIN"
	EnvAuthClientID = "SCRIBE_AUTH_CLIENT_ID"
	EnvAuthClaim    = "SCRIBE_AUTH_CLAIM"
	EnvPortalURL    = "SCRIBE_PORTAL_URL"
	EnvDatabasePath = "SCRIBE_DATABASE_PATH"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Auth     AuthConfig     `toml:"auth"`
	Billing  BillingConfig  `toml:"billing"`
	Database DatabaseConfig `toml:"database"`
	Playback PlaybackConfig `toml:"playback"`
	Export   ExportConfig   `toml:"export"`
}

// BackendConfig points at the transcription service.
type BackendConfig struct {
	BaseURL           string   `toml:"base_url"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	EntitlementHeader string   `toml:"entitlement_header"`
}

// AuthConfig contains the identity provider tenant settings.
type AuthConfig struct {
	Domain       string `toml:"domain"`
	ClientID     string `toml:"client_id"`
	Audience     string `toml:"audience"`
	Claim        string `toml:"claim"`
	CallbackHost string `toml:"callback_host"`
	CallbackPort int    `toml:"callback_port"`
}

// CallbackURL is the redirect URI registered with the identity provider.
func (a AuthConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s:%d/callback", a.CallbackHost, a.CallbackPort)
}

// CallbackAddr is the listen address of the local login callback server.
func (a AuthConfig) CallbackAddr() string {
	return fmt.Sprintf("%s:%d", a.CallbackHost, a.CallbackPort)
}

// BillingConfig contains the payment provider customer portal.
type BillingConfig struct {
	PortalURL string `toml:"portal_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlaybackConfig tunes the note scheduler.
type PlaybackConfig struct {
	LeadIn Duration `toml:"lead_in"`
}

// ExportConfig controls where exported documents land.
type ExportConfig struct {
	Directory string `toml:"directory"`
}

// Duration wraps [time.Duration] so it can be written as "5m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, and environment variables win over both.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides config values with any environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for key, target := range map[string]*string{
		EnvBackendBase:  &c.Backend.BaseURL,
		EnvAuthDomain:   &c.Auth.Domain,
		EnvAuthClientID: &c.Auth.ClientID,
		EnvAuthClaim:    &c.Auth.Claim,
		EnvPortalURL:    &c.Billing.PortalURL,
		EnvDatabasePath: &c.Database.Path,
	} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Auth.Claim == "" {
		c.Auth.Claim = DefaultClaim
	}
}

// Validate reports missing required settings.
//
// The backend base URL and identity provider domain/client id are required.
// A missing portal URL is returned as a warning rather than an error.
func (c *Config) Validate() (warnings []string, err error) {
	var missing []string
	if c.Backend.BaseURL == "" {
		missing = append(missing, "backend.base_url ("+EnvBackendBase+")")
	}
	if c.Auth.Domain == "" {
		missing = append(missing, "auth.domain ("+EnvAuthDomain+")")
	}
	if c.Auth.ClientID == "" {
		missing = append(missing, "auth.client_id ("+EnvAuthClientID+")")
	}

	if c.Billing.PortalURL == "" {
		warnings = append(warnings, "billing.portal_url is not set; subscription management is unavailable")
	}

	if len(missing) > 0 {
		return warnings, fmt.Errorf("%w: missing %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return warnings, nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
