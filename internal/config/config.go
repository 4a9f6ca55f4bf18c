// Package config loads server and CLI settings from an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StoreS3       = "s3"
	StorePostgres = "postgres"
)

// Config is the resolved application configuration.
type Config struct {
	Addr         string        `yaml:"addr"`
	WebDir       string        `yaml:"web_dir"`
	Store        string        `yaml:"store"`
	DatabaseURL  string        `yaml:"database_url"`
	DataDir      string        `yaml:"data_dir"`
	StoreTimeout time.Duration `yaml:"store_timeout"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	ForwardAuth  bool          `yaml:"forward_auth"`
	S3           S3Config      `yaml:"s3"`
	OIDC         OIDCConfig    `yaml:"oidc"`
}

// S3Config selects the bucket for the s3 store.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// OIDCConfig enables SSO when Issuer is set.
type OIDCConfig struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether SSO is configured.
func (o OIDCConfig) Enabled() bool { return o.Issuer != "" }

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:         ":8080",
		WebDir:       "web",
		StoreTimeout: 10 * time.Second,
		SessionTTL:   24 * time.Hour,
	}
}

// Load reads path (if non-empty), then applies environment overrides from
// getenv and validates the result. A nil getenv means os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if cfg.Store == "" {
		cfg.Store = StoreFile
		if cfg.DatabaseURL != "" {
			cfg.Store = StorePostgres
		}
	}
	cfg.Store = strings.ToLower(cfg.Store)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("WEB_DIR", &c.WebDir)
	str("STORE", &c.Store)
	str("DATABASE_URL", &c.DatabaseURL)
	str("DATA_DIR", &c.DataDir)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_REGION", &c.S3.Region)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_PREFIX", &c.S3.Prefix)
	str("OIDC_ISSUER", &c.OIDC.Issuer)
	str("OIDC_CLIENT_ID", &c.OIDC.ClientID)
	str("OIDC_CLIENT_SECRET", &c.OIDC.ClientSecret)
	str("OIDC_REDIRECT_URL", &c.OIDC.RedirectURL)

	for key, dst := range map[string]*bool{"S3_PATH_STYLE": &c.S3.PathStyle, "FORWARD_AUTH": &c.ForwardAuth} {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	for key, dst := range map[string]*time.Duration{"STORE_TIMEOUT": &c.StoreTimeout, "SESSION_TTL": &c.SessionTTL} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		return fmt.Errorf("OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER is set")
	}
	return nil
}
