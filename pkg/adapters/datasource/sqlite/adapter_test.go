package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

func newFactory(t *testing.T) datasource.ConnectorFactory {
	t.Helper()
	return datasource.NewFactory(datasource.FactoryConfig{}, zaptest.NewLogger(t))
}

func TestFromMap(t *testing.T) {
	tests := []struct {
		name    string
		params  datasource.Params
		wantErr bool
	}{
		{name: "path only", params: datasource.Params{"database": "app.db"}},
		{name: "read only", params: datasource.Params{"database": "app.db", "mode": "ro"}},
		{name: "missing database", params: datasource.Params{}, wantErr: true},
		{name: "blank database", params: datasource.Params{"database": "  "}, wantErr: true},
		{name: "bad mode", params: datasource.Params{"database": "app.db", "mode": "append"}, wantErr: true},
		{name: "non-string database", params: datasource.Params{"database": 42}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.params)
			if tt.wantErr {
				if !assert.Error(t, err) {
					return
				}
				assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg, err := FromMap(datasource.Params{"database": "/tmp/app.db", "journal_mode": "WAL"})
	require.NoError(t, err)

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "file:/tmp/app.db?")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_journal_mode=WAL")

	mem := &Config{Database: MemoryDatabase}
	assert.Contains(t, mem.DSN(), "cache=shared")
}

func TestDSN_EscapesURIDelimiters(t *testing.T) {
	cfg, err := FromMap(datasource.Params{"database": "/data/we?ird#50%.db"})
	require.NoError(t, err)

	dsn := cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "file:/data/we%3Fird%2350%25.db?"), dsn)
	assert.Equal(t, 1, strings.Count(dsn, "?"), "only the option query may start with '?'")
	assert.NotContains(t, dsn, "#")
}

func TestConnect_PathWithURIDelimiters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "odd?name#1.db")

	c, err := newFactory(t).Connect(context.Background(), "sqlite", datasource.Blocking,
		datasource.Params{"database": path})
	require.NoError(t, err)
	defer c.Close()

	n, err := c.Handle().(datasource.Querier).QueryInt(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = os.Stat(path)
	assert.NoError(t, err, "the file named by the full path must be created")
	_, err = os.Stat(filepath.Join(dir, "odd"))
	assert.True(t, os.IsNotExist(err), "the path must not be cut at '?'")
}

func TestConnect_ValidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.db")

	c, err := newFactory(t).Connect(context.Background(), "sqlite", datasource.Blocking,
		datasource.Params{"database": path})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, datasource.KindSQLite, c.Kind())
	assert.Equal(t, datasource.StateConnected, c.State())
	assert.True(t, c.IsAlive(context.Background()))

	n, err := c.Handle().(datasource.Querier).QueryInt(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file should be created")
}

func TestConnect_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "nope.db")

	_, err := newFactory(t).Connect(context.Background(), "sqlite", datasource.Blocking,
		datasource.Params{"database": path})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConnection)
	assert.Contains(t, err.Error(), "unable to open database file")
}

func TestConnect_MissingDatabase(t *testing.T) {
	_, err := newFactory(t).Connect(context.Background(), "sqlite3", datasource.Blocking, datasource.Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	assert.Contains(t, err.Error(), "database")
}

func TestConnect_NonBlockingFallsBack(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := datasource.NewFactory(datasource.FactoryConfig{}, zap.New(core))

	c, err := f.Connect(context.Background(), "sqlite", datasource.NonBlocking,
		datasource.Params{"database": filepath.Join(t.TempDir(), "async.db")})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, datasource.Blocking, c.Mode())
	assert.Equal(t, 1, logs.FilterMessage("no non-blocking driver, falling back to blocking").Len())
}

func TestConnect_CloseThenNotAlive(t *testing.T) {
	c, err := newFactory(t).Connect(context.Background(), "sqlite", datasource.Blocking,
		datasource.Params{"database": filepath.Join(t.TempDir(), "close.db")})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.IsAlive(context.Background()))
	assert.Equal(t, datasource.StateClosed, c.State())
}

func TestSQLDBExtractor(t *testing.T) {
	c, err := newFactory(t).Connect(context.Background(), "sqlite", datasource.Blocking,
		datasource.Params{"database": filepath.Join(t.TempDir(), "extract.db")})
	require.NoError(t, err)
	defer c.Close()

	db, err := datasource.SQLDB(c)
	require.NoError(t, err)

	_, err = db.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO widgets (name) VALUES (?)", "gear")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM widgets").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPool_RecyclesAcrossCheckouts(t *testing.T) {
	pool, err := newFactory(t).NewPool("sqlite", datasource.Blocking, 2,
		datasource.Params{"database": filepath.Join(t.TempDir(), "pool.db")})
	require.NoError(t, err)
	defer pool.CloseAll()

	ctx := context.Background()
	first, err := pool.Checkout(ctx)
	require.NoError(t, err)
	second, err := pool.Checkout(ctx)
	require.NoError(t, err)

	_, err = pool.Checkout(ctx)
	assert.ErrorIs(t, err, apperrors.ErrPoolExhausted)

	require.NoError(t, pool.Release(first))
	third, err := pool.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), third.ID(), "idle slot should be reused")

	require.NoError(t, pool.Release(second))
	require.NoError(t, pool.Release(third))
}
