// Package testhelpers provides shared database containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage = "postgres:16-alpine"
	MySQLImage    = "mysql:8.0"
	RedisImage    = "redis:7-alpine"

	TestUser     = "ekaya"
	TestPassword = "test_password"
	TestDatabase = "test_data"
)

// TestDB describes a running database container.
type TestDB struct {
	Container testcontainers.Container
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

// Params returns connection params for the factory.
func (db *TestDB) Params() map[string]any {
	params := map[string]any{
		"host": db.Host,
		"port": db.Port,
	}
	if db.User != "" {
		params["user"] = db.User
	}
	if db.Password != "" {
		params["password"] = db.Password
	}
	if db.Database != "" {
		params["database"] = db.Database
	}
	return params
}

// sharedContainer starts a container once per test binary and reuses it.
type sharedContainer struct {
	once  sync.Once
	db    *TestDB
	err   error
	setup func() (*TestDB, error)
}

func (s *sharedContainer) get(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	s.once.Do(func() {
		s.db, s.err = s.setup()
	})

	if s.err != nil {
		t.Fatalf("Failed to setup test container: %v", s.err)
	}
	return s.db
}

var (
	sharedPostgres = &sharedContainer{setup: setupPostgres}
	sharedMySQL    = &sharedContainer{setup: setupMySQL}
	sharedRedis    = &sharedContainer{setup: setupRedis}
)

// GetPostgres returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetPostgres(t *testing.T) *TestDB {
	t.Helper()
	return sharedPostgres.get(t)
}

// GetMySQL returns a shared MySQL container for integration tests.
func GetMySQL(t *testing.T) *TestDB {
	t.Helper()
	return sharedMySQL.get(t)
}

// GetRedis returns a shared Redis container for integration tests.
func GetRedis(t *testing.T) *TestDB {
	t.Helper()
	return sharedRedis.get(t)
}

func setupPostgres() (*TestDB, error) {
	return startContainer(testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       TestDatabase,
			"POSTGRES_USER":     TestUser,
			"POSTGRES_PASSWORD": TestPassword,
		},
		// Postgres restarts once after init; wait for the second ready line.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432", TestUser, TestPassword, TestDatabase)
}

func setupMySQL() (*TestDB, error) {
	return startContainer(testcontainers.ContainerRequest{
		Image:        MySQLImage,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      TestDatabase,
			"MYSQL_USER":          TestUser,
			"MYSQL_PASSWORD":      TestPassword,
			"MYSQL_ROOT_PASSWORD": TestPassword,
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(120 * time.Second),
	}, "3306", TestUser, TestPassword, TestDatabase)
}

func setupRedis() (*TestDB, error) {
	return startContainer(testcontainers.ContainerRequest{
		Image:        RedisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}, "6379", "", "", "")
}

func startContainer(req testcontainers.ContainerRequest, containerPort, user, password, database string) (*TestDB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(containerPort))
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}

	return &TestDB{
		Container: container,
		Host:      host,
		Port:      port,
		User:      user,
		Password:  password,
		Database:  database,
	}, nil
}
