// Package oracle connects to Oracle Database through mattn/go-oci8.
//
// go-oci8 needs cgo and the Oracle Instant Client, so the driver binding is
// only compiled with the "oracle" (or "all_adapters") build tag. Without it
// the factory reports the oracle kind as a missing dependency.
package oracle

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields must be present before a connection is attempted.
// "database" is the service name.
var RequiredFields = []string{"host", "user", "password", "database"}

// Config contains Oracle connection options.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	ServiceName string
	Prefetch    int
}

// DefaultPort returns the default Oracle listener port.
func DefaultPort() int {
	return 1521
}

// FromMap creates a Config from connection params.
// "service_name" is accepted as an alias for "database".
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindOracle)

	p := params.Clone()
	if _, ok := p["database"]; !ok {
		if svc, ok := p["service_name"]; ok {
			p["database"] = svc
		}
	}

	if missing := p.Missing(RequiredFields); len(missing) > 0 {
		return nil, apperrors.MissingParameters(kind, missing)
	}

	cfg := &Config{}
	var err error

	if cfg.Host, err = p.String("host", ""); err != nil {
		return nil, err
	}
	if cfg.Port, err = p.Int("port", DefaultPort()); err != nil {
		return nil, err
	}
	if cfg.User, err = p.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = p.String("password", ""); err != nil {
		return nil, err
	}
	if cfg.ServiceName, err = p.String("database", ""); err != nil {
		return nil, err
	}
	if cfg.Prefetch, err = p.Int("prefetch_rows", 0); err != nil {
		return nil, err
	}
	if cfg.Prefetch < 0 {
		return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("prefetch_rows must not be negative, got %d", cfg.Prefetch))
	}
	return cfg, nil
}

// DSN builds a go-oci8 connection string: user/password@host:port/service.
// Credentials are URL-escaped as go-oci8 unescapes them.
func (c *Config) DSN() string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(c.User))
	b.WriteString("/")
	b.WriteString(url.QueryEscape(c.Password))
	b.WriteString("@")
	b.WriteString(fmt.Sprintf("%s:%d/%s", config.ResolveHostForDocker(c.Host), c.Port, c.ServiceName))
	if c.Prefetch > 0 {
		b.WriteString(fmt.Sprintf("?prefetch_rows=%d", c.Prefetch))
	}
	return b.String()
}
