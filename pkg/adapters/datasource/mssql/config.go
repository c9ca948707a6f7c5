package mssql

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// RequiredFields must be present before a connection is attempted.
// For service principal auth, user is the client ID and password the client secret.
var RequiredFields = []string{"host", "user", "password", "database"}

const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod determines which authentication to use
	// Options: "sql", "service_principal"
	AuthMethod string

	// SQL login, or client ID for service principal auth
	Username string
	// SQL password, or client secret for service principal auth
	Password string
	// TenantID is only used by service principal auth
	TenantID string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from connection params.
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindMSSQL)

	// Support "username" as an alias of "user"
	if _, ok := params["user"]; !ok {
		if username, ok := params["username"]; ok {
			params = params.Clone()
			params["user"] = username
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
	if cfg.Database, err = params.String("database", ""); err != nil {
		return nil, err
	}
	if cfg.Username, err = params.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = params.String("password", ""); err != nil {
		return nil, err
	}
	if cfg.AuthMethod, err = params.String("auth_method", AuthSQL); err != nil {
		return nil, err
	}
	if cfg.TenantID, err = params.String("tenant_id", ""); err != nil {
		return nil, err
	}
	if cfg.TrustServerCertificate, err = params.Bool("trust_server_certificate", false); err != nil {
		return nil, err
	}
	if cfg.ConnectionTimeout, err = params.Int("connection_timeout", DefaultConnectionTimeout()); err != nil {
		return nil, err
	}

	// Support string values: "true", "false", "strict"
	if s, ok := params["encrypt"].(string); ok {
		cfg.Encrypt = s == "true" || s == "strict"
	} else if cfg.Encrypt, err = params.Bool("encrypt", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that FromMap cannot infer defaults for.
func (c *Config) Validate() error {
	kind := string(datasource.KindMSSQL)

	if c.Port <= 0 || c.Port > 65535 {
		return apperrors.InvalidParameter(kind, fmt.Sprintf("invalid port: %d", c.Port))
	}

	switch c.AuthMethod {
	case AuthSQL:
	case AuthServicePrincipal:
		if c.TenantID == "" {
			return apperrors.InvalidParameter(kind, "tenant_id is required for service principal authentication")
		}
	default:
		return apperrors.InvalidParameter(kind, fmt.Sprintf("invalid auth method: %s (must be sql or service_principal)", c.AuthMethod))
	}
	return nil
}
