package mysql

import (
	"context"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

// DriverName is the database/sql driver registered by go-sql-driver/mysql.
const DriverName = "mysql"

// binding opens MySQL handles. Both modes use database/sql, which is
// context-aware; the Connector decides whether the caller's context reaches it.
type binding struct {
	mode datasource.Mode
}

// NewBinding returns the MySQL binding for mode.
func NewBinding(mode datasource.Mode) datasource.Binding {
	return binding{mode: mode}
}

func (binding) Kind() datasource.Kind { return datasource.KindMySQL }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}
	return datasource.OpenSQL(ctx, DriverName, cfg.DSN())
}
