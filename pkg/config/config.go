package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-connect/pkg/crypto"
)

// DefaultPath is the config file read when no path is given and it exists.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-connect.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// CredentialsKey opens sealed datasource passwords (password_sealed).
	// Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"`

	// Pool defaults applied to datasources that don't set their own
	Pool PoolConfig `yaml:"pool"`

	// Connect controls how individual connections are opened
	Connect ConnectConfig `yaml:"connect"`

	// Datasources are named connection definitions, keyed by name
	Datasources map[string]DatasourceConfig `yaml:"datasources"`
}

// PoolConfig holds default pool settings.
type PoolConfig struct {
	MaxSize int    `yaml:"max_size" env:"POOL_MAX_SIZE" env-default:"5"`
	Mode    string `yaml:"mode" env:"POOL_MODE" env-default:"blocking"`
	// IdleTTLMinutes is how long an unused pool keeps its connections open.
	IdleTTLMinutes int `yaml:"idle_ttl_minutes" env:"POOL_IDLE_TTL_MINUTES" env-default:"5"`
}

// ConnectConfig holds connection-open settings.
type ConnectConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" env:"CONNECT_TIMEOUT_SECONDS" env-default:"10"`
	// MaxRetries is the number of retries for transient open failures. 0 fails fast.
	MaxRetries int `yaml:"max_retries" env:"CONNECT_MAX_RETRIES" env-default:"0"`
}

// DatasourceConfig is one named datasource.
type DatasourceConfig struct {
	Kind    string         `yaml:"kind"`
	Mode    string         `yaml:"mode"`
	MaxSize int            `yaml:"max_size"`
	Params  map[string]any `yaml:"params"`
	// PasswordEnv names the environment variable holding the password.
	// Passwords are never read from YAML in plaintext.
	PasswordEnv string `yaml:"password_env"`
	// PasswordSealed is a password sealed for this datasource with
	// "ekaya-connect seal-password". Requires CREDENTIALS_KEY.
	PasswordSealed string `yaml:"password_sealed"`
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads config.yaml from the working directory if present,
// otherwise environment variables only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pool.MaxSize < 1 {
		return fmt.Errorf("pool.max_size must be at least 1, got %d", c.Pool.MaxSize)
	}
	if !validMode(c.Pool.Mode) {
		return fmt.Errorf("pool.mode must be blocking or non-blocking, got %q", c.Pool.Mode)
	}
	if c.Connect.TimeoutSeconds < 1 {
		return fmt.Errorf("connect.timeout_seconds must be positive, got %d", c.Connect.TimeoutSeconds)
	}
	if c.Connect.MaxRetries < 0 {
		return fmt.Errorf("connect.max_retries must not be negative, got %d", c.Connect.MaxRetries)
	}

	for name, ds := range c.Datasources {
		if ds.Kind == "" {
			return fmt.Errorf("datasource %q: kind is required", name)
		}
		if ds.Mode != "" && !validMode(ds.Mode) {
			return fmt.Errorf("datasource %q: mode must be blocking or non-blocking, got %q", name, ds.Mode)
		}
		if ds.MaxSize < 0 {
			return fmt.Errorf("datasource %q: max_size must not be negative", name)
		}
		if _, ok := ds.Params["password"]; ok {
			return fmt.Errorf("datasource %q: password must come from password_env or password_sealed, not the config file", name)
		}
		if ds.PasswordSealed != "" {
			if ds.PasswordEnv != "" {
				return fmt.Errorf("datasource %q: password_env and password_sealed are mutually exclusive", name)
			}
			if !crypto.IsSealed(ds.PasswordSealed) {
				return fmt.Errorf("datasource %q: password_sealed must start with %q", name, crypto.SealedPrefix)
			}
			if c.CredentialsKey == "" {
				return fmt.Errorf("datasource %q: password_sealed requires CREDENTIALS_KEY", name)
			}
		}
	}
	return nil
}

func validMode(mode string) bool {
	switch strings.ToLower(mode) {
	case "blocking", "non-blocking", "nonblocking", "async":
		return true
	}
	return false
}

// ConnectTimeout returns the per-connection open timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Connect.TimeoutSeconds) * time.Second
}

// IdleTTL returns how long idle pools are kept open.
func (c *Config) IdleTTL() time.Duration {
	return time.Duration(c.Pool.IdleTTLMinutes) * time.Minute
}

// DatasourceParams returns the resolved params of the named datasource,
// opening a sealed password with CredentialsKey.
func (c *Config) DatasourceParams(name string) (map[string]any, error) {
	ds, ok := c.Datasources[name]
	if !ok {
		return nil, fmt.Errorf("datasource %q is not configured", name)
	}

	params, err := ds.ResolvedParams()
	if err != nil {
		return nil, err
	}
	if ds.PasswordSealed == "" {
		return params, nil
	}

	sealer, err := crypto.NewSealer(c.CredentialsKey)
	if err != nil {
		return nil, err
	}
	password, err := sealer.Open(name, ds.PasswordSealed)
	if err != nil {
		return nil, fmt.Errorf("datasource %q: %w", name, err)
	}
	params["password"] = password
	return params, nil
}

// ResolvedParams returns a copy of the datasource params with the password
// read from PasswordEnv and the host adjusted for Docker. Sealed passwords
// are opened by Config.DatasourceParams.
func (d DatasourceConfig) ResolvedParams() (map[string]any, error) {
	params := make(map[string]any, len(d.Params)+1)
	for k, v := range d.Params {
		params[k] = v
	}

	if d.PasswordEnv != "" {
		password, ok := os.LookupEnv(d.PasswordEnv)
		if !ok {
			return nil, fmt.Errorf("password env var %s is not set", d.PasswordEnv)
		}
		params["password"] = password
	}

	if host, ok := params["host"].(string); ok {
		params["host"] = ResolveHostForDocker(host)
	}

	return params, nil
}

// EffectiveMode returns the datasource mode, falling back to the pool default.
func (c *Config) EffectiveMode(ds DatasourceConfig) string {
	if ds.Mode != "" {
		return ds.Mode
	}
	return c.Pool.Mode
}

// EffectiveMaxSize returns the datasource pool size, falling back to the pool default.
func (c *Config) EffectiveMaxSize(ds DatasourceConfig) int {
	if ds.MaxSize > 0 {
		return ds.MaxSize
	}
	return c.Pool.MaxSize
}
