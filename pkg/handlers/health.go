package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string                   `json:"status"`
	Pools  *datasource.ManagerStats `json:"pools,omitempty"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	version string
	env     string
	manager *datasource.Manager
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. manager may be nil.
func NewHealthHandler(version, env string, manager *datasource.Manager, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{version: version, env: env, manager: manager, logger: logging.OrNop(logger)}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Includes pool statistics when a manager is configured.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok"}
	if h.manager != nil {
		stats := h.manager.GetStats()
		response.Pools = &stats
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.version,
		Service:     "ekaya-connect",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
