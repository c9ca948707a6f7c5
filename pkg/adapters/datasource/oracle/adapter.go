//go:build oracle || all_adapters

package oracle

import (
	"context"

	_ "github.com/mattn/go-oci8" // Oracle driver for database/sql

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
)

// DriverName is the database/sql driver registered by mattn/go-oci8.
const DriverName = "oci8"

// binding opens Oracle connections. Blocking only.
type binding struct{}

// NewBinding returns the Oracle binding.
func NewBinding() datasource.Binding {
	return binding{}
}

func (binding) Kind() datasource.Kind { return datasource.KindOracle }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}
	return datasource.OpenSQL(ctx, DriverName, cfg.DSN())
}
