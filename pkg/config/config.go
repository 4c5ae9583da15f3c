// Package config provides the runtime configuration for bitbucket-mcp.
// Configuration is assembled once at process start from an optional
// .bitbucket-mcp/config.yaml file and environment variables (environment
// wins), then treated as immutable: every component receives the same
// *Config and only ever reads it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name for bitbucket-mcp configuration
	ConfigDir = ".bitbucket-mcp"
	// ConfigFile is the name of the configuration file
	ConfigFile = "config.yaml"
	// ConfigPath is the config file path relative to the search root
	ConfigPath = ConfigDir + "/" + ConfigFile

	// DefaultBaseURL is the Bitbucket Cloud API root
	DefaultBaseURL = "https://api.bitbucket.org/2.0"
	// DefaultTimeout is the per-request timeout when none is configured
	DefaultTimeout = 30 * time.Second
)

// Environment variable names read by FromEnv.
const (
	EnvEmail             = "BITBUCKET_EMAIL"
	EnvAPIToken          = "BITBUCKET_API_TOKEN"
	EnvAccessToken       = "BITBUCKET_ACCESS_TOKEN"
	EnvBaseURL           = "BITBUCKET_BASE_URL"
	EnvDefaultWorkspace  = "BITBUCKET_DEFAULT_WORKSPACE"
	EnvAllowedWorkspaces = "BITBUCKET_ALLOWED_WORKSPACES"
	EnvAllowedRepos      = "BITBUCKET_ALLOWED_REPOS"
	EnvReadOnly          = "BITBUCKET_READ_ONLY"
	EnvTimeoutSeconds    = "BITBUCKET_TIMEOUT_SECONDS"
)

// Config holds the full runtime configuration. Allow-lists are stored
// lower-cased; an empty list means "no restriction". AllowedRepos entries
// are either a bare repository slug or a workspace/slug composite.
type Config struct {
	// Email and APIToken form the Basic auth credential pair.
	Email    string
	APIToken string

	// AccessToken is an alternative bearer credential (workspace or
	// repository access token). When set it takes precedence over the
	// Basic auth pair.
	AccessToken string

	BaseURL          string
	DefaultWorkspace string

	AllowedWorkspaces []string
	AllowedRepos      []string

	ReadOnly bool
	Timeout  time.Duration
}

// fileConfig is the YAML representation of the optional config file.
type fileConfig struct {
	Email             string   `yaml:"email,omitempty"`
	APIToken          string   `yaml:"api_token,omitempty"`
	AccessToken       string   `yaml:"access_token,omitempty"`
	BaseURL           string   `yaml:"base_url,omitempty"`
	DefaultWorkspace  string   `yaml:"default_workspace,omitempty"`
	AllowedWorkspaces []string `yaml:"allowed_workspaces,omitempty"`
	AllowedRepos      []string `yaml:"allowed_repos,omitempty"`
	ReadOnly          *bool    `yaml:"read_only,omitempty"`
	TimeoutSeconds    int      `yaml:"timeout_seconds,omitempty"`
}

// Load builds the effective configuration. When explicitPath is empty the
// config file is searched for upward from the current directory; a missing
// file is not an error. Environment variables override file values.
func Load(explicitPath string) (*Config, error) {
	cfg := &Config{}

	path := explicitPath
	if path == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path, err = findConfigPath(dir)
		if err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.Email = fc.Email
	cfg.APIToken = fc.APIToken
	cfg.AccessToken = fc.AccessToken
	cfg.BaseURL = fc.BaseURL
	cfg.DefaultWorkspace = fc.DefaultWorkspace
	cfg.AllowedWorkspaces = fc.AllowedWorkspaces
	cfg.AllowedRepos = fc.AllowedRepos
	if fc.ReadOnly != nil {
		cfg.ReadOnly = *fc.ReadOnly
	}
	if fc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvEmail); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv(EnvAccessToken); v != "" {
		cfg.AccessToken = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDefaultWorkspace); v != "" {
		cfg.DefaultWorkspace = v
	}
	if v := os.Getenv(EnvAllowedWorkspaces); v != "" {
		cfg.AllowedWorkspaces = splitList(v)
	}
	if v := os.Getenv(EnvAllowedRepos); v != "" {
		cfg.AllowedRepos = splitList(v)
	}
	if v := os.Getenv(EnvReadOnly); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvReadOnly, v, err)
		}
		cfg.ReadOnly = parsed
	}
	if v := os.Getenv(EnvTimeoutSeconds); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid %s value %q: must be a positive integer", EnvTimeoutSeconds, v)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}
	return nil
}

// normalize applies defaults and folds allow-list entries to lower case so
// membership checks can compare lower-cased input directly.
func (c *Config) normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.AllowedWorkspaces = normalizeList(c.AllowedWorkspaces)
	c.AllowedRepos = normalizeList(c.AllowedRepos)
}

// Validate checks that the configuration is usable: some credential must be
// present, the base URL must parse, and the timeout must be positive.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if !c.HasCredentials() {
		return fmt.Errorf("missing credentials: set %s and %s, or %s", EnvEmail, EnvAPIToken, EnvAccessToken)
	}
	return nil
}

// HasCredentials reports whether a complete credential is configured:
// either a bearer access token or the full Basic auth pair.
func (c *Config) HasCredentials() bool {
	return c.AccessToken != "" || (c.Email != "" && c.APIToken != "")
}

// findConfigPath searches for .bitbucket-mcp/config.yaml in dir and its
// parents. Returns empty string if not found.
func findConfigPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for {
		configPath := filepath.Join(absDir, ConfigPath)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(absDir)
		if parentDir == absDir {
			return "", nil
		}
		absDir = parentDir
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
