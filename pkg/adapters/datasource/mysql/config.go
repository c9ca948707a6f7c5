package mysql

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields must be present before a connection is attempted.
// The database is optional; MySQL connects to the server without one.
var RequiredFields = []string{"host", "user", "password"}

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Charset  string
	TLS      string // "false", "true", "skip-verify", "preferred"
	Timeout  time.Duration
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from connection params.
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindMySQL)

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
	if cfg.Charset, err = params.String("charset", "utf8mb4"); err != nil {
		return nil, err
	}
	if cfg.TLS, err = params.String("tls", "preferred"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = params.Duration("timeout", 10*time.Second); err != nil {
		return nil, err
	}

	switch cfg.TLS {
	case "false", "true", "skip-verify", "preferred":
	default:
		return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("unknown tls mode %q", cfg.TLS))
	}
	return cfg, nil
}

// DSN builds a go-sql-driver/mysql DSN. The driver's own formatter handles
// escaping of credentials and the database name.
func (c *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port)
	mc.DBName = c.Database
	mc.Timeout = c.Timeout
	mc.TLSConfig = c.TLS
	mc.ParseTime = true
	if c.Charset != "" {
		mc.Params = map[string]string{"charset": c.Charset}
	}
	return mc.FormatDSN()
}
