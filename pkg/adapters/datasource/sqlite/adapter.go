package sqlite

import (
	"context"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

// DriverName is the database/sql driver registered by mattn/go-sqlite3.
const DriverName = "sqlite3"

// binding opens SQLite files. There is no non-blocking variant; the factory
// falls back to this binding for non-blocking requests.
type binding struct{}

// NewBinding returns the SQLite binding.
func NewBinding() datasource.Binding {
	return binding{}
}

func (binding) Kind() datasource.Kind { return datasource.KindSQLite }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}
	return datasource.OpenSQL(ctx, DriverName, cfg.DSN())
}
