package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/sqlite"
)

func newMux(t *testing.T) (*http.ServeMux, *datasource.Manager) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	factory := datasource.NewFactory(datasource.FactoryConfig{}, logger)
	manager := datasource.NewManager(factory, datasource.ManagerConfig{CleanupInterval: time.Hour}, logger)
	t.Cleanup(func() { manager.Close() })

	require.NoError(t, manager.Define("local", datasource.PoolDefinition{
		Kind:    "sqlite",
		MaxSize: 2,
		Params:  datasource.Params{"database": filepath.Join(t.TempDir(), "local.db")},
	}))
	require.NoError(t, manager.Define("broken", datasource.PoolDefinition{
		Kind:   "sqlite",
		Params: datasource.Params{"database": filepath.Join(t.TempDir(), "no", "such", "dir.db")},
	}))

	mux := http.NewServeMux()
	NewHealthHandler("test-version", "test", manager, logger).RegisterRoutes(mux)
	NewDatasourcesHandler(factory, manager, logger).RegisterRoutes(mux)
	return mux, manager
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth_WithoutManager(t *testing.T) {
	handler := NewHealthHandler("test-version", "test", nil, nil)

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Pools != nil {
		t.Error("expected nil pools when manager not provided")
	}
}

func TestPing(t *testing.T) {
	mux, _ := newMux(t)

	rec := serve(mux, http.MethodGet, "/ping")
	require.Equal(t, http.StatusOK, rec.Code)

	var response PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ekaya-connect", response.Service)
	assert.Equal(t, "test-version", response.Version)
	assert.Equal(t, "test", response.Environment)
}

func TestListKinds(t *testing.T) {
	mux, _ := newMux(t)

	rec := serve(mux, http.MethodGet, "/kinds")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Kinds []datasource.KindInfo `json:"kinds"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Len(t, response.Kinds, len(datasource.Kinds()))

	for _, k := range response.Kinds {
		if k.Kind == datasource.KindSQLite {
			assert.True(t, k.Available)
			assert.Equal(t, []string{"database"}, k.RequiredFields)
		}
	}
}

func TestCheckPool(t *testing.T) {
	mux, manager := newMux(t)

	rec := serve(mux, http.MethodPost, "/pools/local/check")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response CheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "local", response.Name)
	assert.Equal(t, "sqlite", response.Kind)
	assert.True(t, response.Alive)

	stats := manager.GetStats()
	require.Contains(t, stats.Pools, "local")
	assert.Equal(t, 1, stats.Pools["local"].Slots)
	assert.Equal(t, 0, stats.Pools["local"].CheckedOut, "connector must be released")

	rec = serve(mux, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.NotNil(t, health.Pools)
	assert.Equal(t, 2, health.Pools.DefinedPools)
	assert.Equal(t, 1, health.Pools.ActivePools)
}

func TestCheckPool_Errors(t *testing.T) {
	mux, _ := newMux(t)

	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{"/pools/missing/check", http.StatusNotFound, "not_found"},
		{"/pools/broken/check", http.StatusBadGateway, "connection_error"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(mux, http.MethodPost, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestListPools(t *testing.T) {
	mux, _ := newMux(t)

	rec := serve(mux, http.MethodGet, "/pools")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Names []string `json:"names"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, []string{"broken", "local"}, response.Names)
}

func TestCheckPool_Audited(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	factory := datasource.NewFactory(datasource.FactoryConfig{}, logger)
	manager := datasource.NewManager(factory, datasource.ManagerConfig{CleanupInterval: time.Hour}, logger)
	t.Cleanup(func() { manager.Close() })
	require.NoError(t, manager.Define("local", datasource.PoolDefinition{
		Kind:   "sqlite",
		Params: datasource.Params{"database": filepath.Join(t.TempDir(), "audit.db")},
	}))

	mux := http.NewServeMux()
	NewDatasourcesHandler(factory, manager, logger).RegisterRoutes(mux)

	require.Equal(t, http.StatusOK, serve(mux, http.MethodPost, "/pools/local/check").Code)
	require.Equal(t, http.StatusNotFound, serve(mux, http.MethodPost, "/pools/missing/check").Code)

	checked := logs.FilterLoggerName("security_audit").FilterMessage("Pool checked").All()
	require.Len(t, checked, 1)
	assert.Equal(t, "local", checked[0].ContextMap()["pool"])
	assert.NotEmpty(t, checked[0].ContextMap()["request_id"])

	failed := logs.FilterLoggerName("security_audit").FilterMessage("Pool check failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "missing", failed[0].ContextMap()["pool"])
}
