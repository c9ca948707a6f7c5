package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields must be present before a connection is attempted.
var RequiredFields = []string{"host", "user", "password", "database"}

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string // "disable", "prefer", "require", "verify-ca", "verify-full"
	ApplicationName string
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
// Negotiation is left to the server, matching libpq.
func DefaultSSLMode() string {
	return "prefer"
}

// FromMap creates a Config from connection params.
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindPostgreSQL)

	// Support legacy "name" field
	if _, ok := params["database"]; !ok {
		if name, ok := params["name"]; ok {
			params = params.Clone()
			params["database"] = name
		}
	}

	if missing := params.Missing(RequiredFields); len(missing) > 0 {
		return nil, apperrors.MissingParameters(kind, missing)
	}

	cfg := &Config{}
	var err error

	if cfg.Host, err = params.String("host", ""); err != nil {
		return nil, err
	}
	if cfg.Port, err = params.Int("port", DefaultPort()); err != nil {
		return nil, err
	}
	if cfg.User, err = params.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = params.String("password", ""); err != nil {
		return nil, err
	}
	if cfg.Database, err = params.String("database", ""); err != nil {
		return nil, err
	}
	if cfg.SSLMode, err = params.String("ssl_mode", DefaultSSLMode()); err != nil {
		return nil, err
	}
	if cfg.ApplicationName, err = params.String("application_name", "ekaya-connect"); err != nil {
		return nil, err
	}

	switch cfg.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("unknown ssl_mode %q", cfg.SSLMode))
	}

	return cfg, nil
}

// ConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped to handle special characters
// in passwords (e.g., @, /, #, ?) that would otherwise break URL parsing.
// When running in Docker, localhost is resolved to host.docker.internal.
func (c *Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	u := &url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
