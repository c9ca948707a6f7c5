package mysql

import (
	"context"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
	"github.com/ekaya-inc/ekaya-connect/pkg/testhelpers"
)

func TestFromMap_ValidConfig(t *testing.T) {
	cfg, err := FromMap(datasource.Params{
		"host":     "db.example.com",
		"port":     float64(3307),
		"user":     "app",
		"password": "secret",
		"database": "shop",
		"timeout":  "3s",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 3307 {
		t.Errorf("expected port 3307, got %d", cfg.Port)
	}
	if cfg.Charset != "utf8mb4" {
		t.Errorf("expected default charset utf8mb4, got %s", cfg.Charset)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", cfg.Timeout)
	}
}

func TestFromMap_DatabaseOptional(t *testing.T) {
	cfg, err := FromMap(datasource.Params{"host": "h", "user": "u", "password": "p"})
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Database)
	assert.Equal(t, DefaultPort(), cfg.Port)
}

func TestFromMap_Errors(t *testing.T) {
	_, err := FromMap(datasource.Params{"host": "h"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	assert.Contains(t, err.Error(), "user, password")

	_, err = FromMap(datasource.Params{"host": "h", "user": "u", "password": "p", "tls": "maybe"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
}

func TestDSN_RoundTrips(t *testing.T) {
	cfg := &Config{
		Host:     "db.example.com",
		Port:     3306,
		User:     "app",
		Password: "p@ss:w/rd",
		Database: "shop",
		Charset:  "utf8mb4",
		TLS:      "false",
		Timeout:  5 * time.Second,
	}

	parsed, err := gomysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "p@ss:w/rd", parsed.Passwd)
	assert.Equal(t, "db.example.com:3306", parsed.Addr)
	assert.Equal(t, "shop", parsed.DBName)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.True(t, parsed.ParseTime)
}

func TestDSN_SanitizedForLogs(t *testing.T) {
	cfg := &Config{Host: "db", Port: 3306, User: "root", Password: "hunter2", Database: "app", TLS: "false"}
	assert.NotContains(t, logging.SanitizeConnectionString(cfg.DSN()), "hunter2")
}

func TestAdapter_Integration(t *testing.T) {
	db := testhelpers.GetMySQL(t)
	params := datasource.Params(db.Params())
	params["tls"] = "false"

	f := datasource.NewFactory(datasource.FactoryConfig{}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, mode := range []datasource.Mode{datasource.Blocking, datasource.NonBlocking} {
		t.Run(mode.String(), func(t *testing.T) {
			c, err := f.Connect(ctx, "MySQL", mode, params)
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, mode, c.Mode())
			n, err := c.Handle().(datasource.Querier).QueryInt(ctx, "SELECT 1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestAdapter_WrongPassword(t *testing.T) {
	db := testhelpers.GetMySQL(t)
	params := datasource.Params(db.Params())
	params["password"] = "wrong"
	params["tls"] = "false"

	f := datasource.NewFactory(datasource.FactoryConfig{}, zaptest.NewLogger(t))
	_, err := f.Connect(context.Background(), "mysql", datasource.Blocking, params)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConnection)
	assert.Contains(t, err.Error(), "Access denied")
}
