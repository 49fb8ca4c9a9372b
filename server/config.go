package server

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Hardcoded session and edition defaults
const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultStateTTL      = 15 * time.Minute
	DefaultEditionWindow = 24 * time.Hour
)

// Config captures the full application configuration loaded from YAML and environment variables.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	GitHub   GitHubConfig  `yaml:"github"`
	Sessions SessionConfig `yaml:"sessions"`
	Edition  EditionConfig `yaml:"edition"`
}

// ServerConfig controls listener, TLS, and HTTP concerns.
type ServerConfig struct {
	PublicURL       string    `yaml:"public_url"`
	DevListenAddr   string    `yaml:"dev_listen_addr"`
	HTTPListenAddr  string    `yaml:"http_listen_addr"`
	HTTPSListenAddr string    `yaml:"https_listen_addr"`
	DevMode         bool      `yaml:"dev_mode"`
	CookieDomain    string    `yaml:"cookie_domain"`
	SecretsPath     string    `yaml:"secrets_path"`
	TLS             TLSConfig `yaml:"tls"`
}

// TLSConfig defines autocert behaviour.
type TLSConfig struct {
	Domains []string `yaml:"domains"`
	Email   string   `yaml:"email"`
}

// GitHubConfig groups the provider endpoints and the per-variety OAuth applications.
// The two varieties are registered as separate OAuth apps with GitHub, so each
// carries its own client id/secret pair.
type GitHubConfig struct {
	AuthURL      string            `yaml:"auth_url"`
	TokenURL     string            `yaml:"token_url"`
	APIBaseURL   string            `yaml:"api_base_url"`
	User         OAuthClientConfig `yaml:"user"`
	Organization OAuthClientConfig `yaml:"organization"`
}

// OAuthClientConfig holds one registered OAuth application's credentials.
type OAuthClientConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// SessionConfig controls the browser flow-session store.
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	StateTTL    time.Duration `yaml:"state_ttl"`
	StateSecret string        `yaml:"state_secret"`
}

// EditionConfig controls edition assembly and caching behaviour.
type EditionConfig struct {
	Window time.Duration `yaml:"window"`
	// DebugFingerprint switches the cache token to a per-minute recipe.
	// It defeats intermediary caching and exists for diagnostics only.
	DebugFingerprint bool `yaml:"debug_fingerprint"`
}

// LoadConfig reads the YAML config file and merges environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(b))
		decoder.KnownFields(true)

		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			PublicURL:       "http://127.0.0.1:8080",
			DevListenAddr:   "127.0.0.1:8080",
			HTTPListenAddr:  ":80",
			HTTPSListenAddr: ":443",
			DevMode:         true,
			SecretsPath:     ".secrets",
		},
		GitHub: GitHubConfig{
			AuthURL:    "https://github.com/login/oauth/authorize",
			TokenURL:   "https://github.com/login/oauth/access_token",
			APIBaseURL: "https://api.github.com",
		},
		Sessions: SessionConfig{
			TTL:      DefaultSessionTTL,
			StateTTL: DefaultStateTTL,
		},
		Edition: EditionConfig{
			Window: DefaultEditionWindow,
		},
	}
}

// DefaultConfig returns the default configuration template.
func DefaultConfig() Config {
	return defaultConfig()
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]func(string){
		// Credential variables keep the names deployments already provision.
		"GITHUB_CLIENT_ID_USER":             func(v string) { cfg.GitHub.User.ClientID = v },
		"GITHUB_CLIENT_SECRET_USER":         func(v string) { cfg.GitHub.User.ClientSecret = v },
		"GITHUB_CLIENT_ID_ORGANIZATION":     func(v string) { cfg.GitHub.Organization.ClientID = v },
		"GITHUB_CLIENT_SECRET_ORGANIZATION": func(v string) { cfg.GitHub.Organization.ClientSecret = v },

		"EDITIOND_SERVER_PUBLIC_URL":        func(v string) { cfg.Server.PublicURL = v },
		"EDITIOND_SERVER_DEV_LISTEN_ADDR":   func(v string) { cfg.Server.DevListenAddr = v },
		"EDITIOND_SERVER_HTTP_LISTEN_ADDR":  func(v string) { cfg.Server.HTTPListenAddr = v },
		"EDITIOND_SERVER_HTTPS_LISTEN_ADDR": func(v string) { cfg.Server.HTTPSListenAddr = v },
		"EDITIOND_SERVER_DEV_MODE":          func(v string) { cfg.Server.DevMode = parseBool(v, cfg.Server.DevMode) },
		"EDITIOND_SERVER_TLS_DOMAINS":       func(v string) { cfg.Server.TLS.Domains = splitAndTrim(v) },
		"EDITIOND_SERVER_TLS_EMAIL":         func(v string) { cfg.Server.TLS.Email = v },
		"EDITIOND_SERVER_SECRETS_PATH":      func(v string) { cfg.Server.SecretsPath = v },
		"EDITIOND_SESSIONS_TTL":             func(v string) { cfg.Sessions.TTL = parseDuration(v, cfg.Sessions.TTL) },
		"EDITIOND_STATE_SECRET":             func(v string) { cfg.Sessions.StateSecret = v },
		"EDITIOND_EDITION_WINDOW":           func(v string) { cfg.Edition.Window = parseDuration(v, cfg.Edition.Window) },
		"EDITIOND_EDITION_DEBUG_FINGERPRINT": func(v string) {
			cfg.Edition.DebugFingerprint = parseBool(v, cfg.Edition.DebugFingerprint)
		},
	}

	for key, fn := range overrides {
		if val, ok := os.LookupEnv(key); ok {
			fn(val)
		}
	}
}

func parseDuration(val string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(val string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate performs the startup sanity checks. Missing provider credentials
// abort startup here: the service must never come up able to start flows it
// cannot finish.
func (c Config) Validate() error {
	if c.Server.PublicURL == "" {
		return errors.New("server.public_url is required")
	}
	if !strings.HasPrefix(c.Server.PublicURL, "http://") && !strings.HasPrefix(c.Server.PublicURL, "https://") {
		return fmt.Errorf("server.public_url must start with http:// or https://, got: %s", c.Server.PublicURL)
	}

	if !c.Server.DevMode && len(c.Server.TLS.Domains) == 0 {
		return errors.New("server.tls.domains must be provided in production")
	}

	if c.GitHub.User.ClientID == "" {
		return errors.New("GITHUB_CLIENT_ID_USER is not set")
	}
	if c.GitHub.User.ClientSecret == "" {
		return errors.New("GITHUB_CLIENT_SECRET_USER is not set")
	}
	if c.GitHub.Organization.ClientID == "" {
		return errors.New("GITHUB_CLIENT_ID_ORGANIZATION is not set")
	}
	if c.GitHub.Organization.ClientSecret == "" {
		return errors.New("GITHUB_CLIENT_SECRET_ORGANIZATION is not set")
	}

	if c.GitHub.AuthURL == "" || c.GitHub.TokenURL == "" {
		return errors.New("github.auth_url and github.token_url are required")
	}
	if c.GitHub.APIBaseURL == "" {
		return errors.New("github.api_base_url is required")
	}

	if c.Sessions.TTL <= 0 {
		return errors.New("sessions.ttl must be positive")
	}
	if c.Sessions.StateTTL <= 0 {
		return errors.New("sessions.state_ttl must be positive")
	}
	if c.Edition.Window <= 0 {
		return errors.New("edition.window must be positive")
	}

	return nil
}

// OAuthClient selects the credential pair registered for the variety.
func (c Config) OAuthClient(v Variety) OAuthClientConfig {
	if v == VarietyOrganization {
		return c.GitHub.Organization
	}
	return c.GitHub.User
}
