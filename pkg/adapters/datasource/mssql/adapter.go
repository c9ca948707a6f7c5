package mssql

import (
	"context"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// binding opens SQL Server handles. go-mssqldb only offers blocking I/O,
// so non-blocking requests fall back to this binding.
type binding struct{}

// NewBinding returns the SQL Server binding.
func NewBinding() datasource.Binding {
	return binding{}
}

func (binding) Kind() datasource.Kind { return datasource.KindMSSQL }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}

	driver, dsn := cfg.ConnectionString()
	return datasource.OpenSQL(ctx, driver, dsn)
}

// ConnectionString returns the database/sql driver name and DSN for the
// configured auth method.
func (c *Config) ConnectionString() (driver, dsn string) {
	query := url.Values{}
	query.Add("database", c.Database)

	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	host := fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port)

	if c.AuthMethod == AuthServicePrincipal {
		// Azure AD, use azuresql driver
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", c.Username)
		query.Add("password", c.Password)
		query.Add("tenant id", c.TenantID)
		return "azuresql", (&url.URL{Scheme: "sqlserver", Host: host, RawQuery: query.Encode()}).String()
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     host,
		RawQuery: query.Encode(),
	}
	return "sqlserver", u.String()
}
