// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by MergeWithDefaults(Defaults()).
const (
	DefaultApp            = "folio"
	DefaultStorage        = "sqlite"
	DefaultSQLitePath     = "folio.db"
	DefaultGitHubAPI      = "https://api.github.com"
	DefaultPublishPath    = "src/data/portfolioData.js"
	DefaultPublishTimeout = 30 * time.Second
	DefaultPort           = 8080
)

// Config is the admin tool configuration. It can be loaded from a JSON or
// YAML file; every field is optional and may be overridden by environment
// variables and then CLI flags.
type Config struct {
	App string `json:"app,omitempty" yaml:"app,omitempty"` // Storage key prefix

	// Storage
	Storage     string `json:"storage,omitempty" yaml:"storage,omitempty"`         // sqlite, postgres or memory
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"` // Database file for the sqlite driver
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`

	// Publishing
	GitHubAPI      string   `json:"github_api,omitempty" yaml:"github_api,omitempty"`
	PublishPath    string   `json:"publish_path,omitempty" yaml:"publish_path,omitempty"`
	PublishBranch  string   `json:"publish_branch,omitempty" yaml:"publish_branch,omitempty"`
	PublishTimeout Duration `json:"publish_timeout,omitempty" yaml:"publish_timeout,omitempty"`

	// Server
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	SiteURL string `json:"site_url,omitempty" yaml:"site_url,omitempty"` // Live site, used by verify
}

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return Duration(time.Duration(secs) * time.Second), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(v), nil
}

// UnmarshalJSON accepts "30s" or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		s = n.String()
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalYAML accepts "30s" or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		App:            DefaultApp,
		Storage:        DefaultStorage,
		SQLitePath:     DefaultSQLitePath,
		GitHubAPI:      DefaultGitHubAPI,
		PublishPath:    DefaultPublishPath,
		PublishTimeout: Duration(DefaultPublishTimeout),
		Port:           DefaultPort,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by
// extension. Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// FromEnv reads the FOLIO_* variables, plus DATABASE_URL and PORT.
// Unset variables leave fields empty.
func FromEnv() (Config, error) {
	cfg := Config{
		App:           os.Getenv("FOLIO_APP"),
		Storage:       os.Getenv("FOLIO_STORAGE"),
		SQLitePath:    os.Getenv("FOLIO_SQLITE_PATH"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		GitHubAPI:     os.Getenv("FOLIO_GITHUB_API"),
		PublishPath:   os.Getenv("FOLIO_PUBLISH_PATH"),
		PublishBranch: os.Getenv("FOLIO_PUBLISH_BRANCH"),
		SiteURL:       os.Getenv("FOLIO_SITE_URL"),
	}

	if v := os.Getenv("FOLIO_PUBLISH_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FOLIO_PUBLISH_TIMEOUT: %w", err)
		}
		cfg.PublishTimeout = d
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.Storage {
	case "", "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config error: unknown storage driver %q", c.Storage)
	}
	if c.Storage == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required for the postgres driver")
	}
	if c.PublishTimeout < 0 {
		return fmt.Errorf("config error: 'publish_timeout' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if strings.ContainsAny(c.App, " /") {
		return fmt.Errorf("config error: 'app' must not contain spaces or slashes")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Layers are merged by calling it from the highest priority down.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.App == "" {
		result.App = defaults.App
	}
	if result.Storage == "" {
		result.Storage = defaults.Storage
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.GitHubAPI == "" {
		result.GitHubAPI = defaults.GitHubAPI
	}
	if result.PublishPath == "" {
		result.PublishPath = defaults.PublishPath
	}
	if result.PublishBranch == "" {
		result.PublishBranch = defaults.PublishBranch
	}
	if result.SiteURL == "" {
		result.SiteURL = defaults.SiteURL
	}

	if result.PublishTimeout == 0 {
		result.PublishTimeout = defaults.PublishTimeout
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	return result
}
