package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// SQLHandle wraps *sql.DB to implement Handle, Pinger and Querier.
// Shared by every database/sql based adapter.
type SQLHandle struct {
	db     *sql.DB
	driver string
}

// NewSQLHandle wraps an open *sql.DB.
func NewSQLHandle(db *sql.DB, driver string) *SQLHandle {
	return &SQLHandle{db: db, driver: driver}
}

// OpenSQL opens a database/sql handle and verifies it with a ping, since
// sql.Open itself never dials.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLHandle, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// One idle connection per Connector; probes may open a second while the
	// first is lent out.
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLHandle(db, driver), nil
}

// Ping verifies the connection is alive
func (h *SQLHandle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// QueryInt runs a query returning a single integer.
func (h *SQLHandle) QueryInt(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := h.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the underlying *sql.DB
func (h *SQLHandle) Close() error {
	return h.db.Close()
}

// DB returns the underlying *sql.DB
func (h *SQLHandle) DB() *sql.DB {
	return h.db
}

// DriverName returns the database/sql driver name.
func (h *SQLHandle) DriverName() string {
	return h.driver
}

// SQLDB extracts the *sql.DB from a Connector with a database/sql handle.
func SQLDB(c Connector) (*sql.DB, error) {
	h, ok := c.Handle().(interface{ DB() *sql.DB })
	if !ok {
		return nil, apperrors.InvalidParameter(string(c.Kind()),
			fmt.Sprintf("connector handle %T does not expose *sql.DB", c.Handle()))
	}
	return h.DB(), nil
}

var (
	_ Handle  = (*SQLHandle)(nil)
	_ Pinger  = (*SQLHandle)(nil)
	_ Querier = (*SQLHandle)(nil)
)
