package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

// binding opens PostgreSQL handles.
// Blocking handles are database/sql over pgx; non-blocking handles are
// native pgx pools whose every call takes the caller's context.
type binding struct {
	mode datasource.Mode
}

// NewBinding returns the PostgreSQL binding for mode.
func NewBinding(mode datasource.Mode) datasource.Binding {
	return binding{mode: mode}
}

func (binding) Kind() datasource.Kind { return datasource.KindPostgreSQL }

func (binding) RequiredFields() []string { return RequiredFields }

func (b binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}

	if b.mode == datasource.NonBlocking {
		return openPool(ctx, cfg)
	}
	return datasource.OpenSQL(ctx, DriverName, cfg.ConnectionString())
}

// PoolHandle wraps *pgxpool.Pool to implement datasource.Handle.
type PoolHandle struct {
	pool *pgxpool.Pool
}

// openPool creates a small native pool: one connection for the borrower
// and a spare so liveness probes never wait on it.
func openPool(ctx context.Context, cfg *Config) (*PoolHandle, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, apperrors.InvalidParameter(string(datasource.KindPostgreSQL), fmt.Sprintf("failed to parse connection string: %v", err))
	}
	poolConfig.MaxConns = 2
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	// pgxpool connects lazily; verify credentials now
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PoolHandle{pool: pool}, nil
}

// Ping verifies the PostgreSQL connection is alive
func (h *PoolHandle) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// QueryInt runs a query returning a single integer.
func (h *PoolHandle) QueryInt(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := h.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes all connections in the PostgreSQL pool
func (h *PoolHandle) Close() error {
	h.pool.Close()
	return nil
}

// Pool returns the underlying *pgxpool.Pool
func (h *PoolHandle) Pool() *pgxpool.Pool {
	return h.pool
}

// Pool extracts the native pgx pool from a non-blocking PostgreSQL connector.
func Pool(c datasource.Connector) (*pgxpool.Pool, error) {
	h, ok := c.Handle().(*PoolHandle)
	if !ok {
		return nil, apperrors.InvalidParameter(string(c.Kind()),
			fmt.Sprintf("expected a non-blocking postgresql connector, got %T", c.Handle()))
	}
	return h.Pool(), nil
}

var (
	_ datasource.Handle  = (*PoolHandle)(nil)
	_ datasource.Pinger  = (*PoolHandle)(nil)
	_ datasource.Querier = (*PoolHandle)(nil)
)
