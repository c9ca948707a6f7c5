package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/audit"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

var errNotAlive = errors.New("liveness probe failed")

// CheckResponse is the result of checking one named pool.
type CheckResponse struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Mode       string `json:"mode"`
	Alive      bool   `json:"alive"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Connection string `json:"connection_id"`
}

// DatasourcesHandler exposes the kind catalogue and the manager's named pools.
type DatasourcesHandler struct {
	factory      datasource.ConnectorFactory
	manager      *datasource.Manager
	checkTimeout time.Duration
	auditor      *audit.SecurityAuditor
	logger       *zap.Logger
}

// NewDatasourcesHandler creates a DatasourcesHandler.
func NewDatasourcesHandler(factory datasource.ConnectorFactory, manager *datasource.Manager, logger *zap.Logger) *DatasourcesHandler {
	return &DatasourcesHandler{
		factory:      factory,
		manager:      manager,
		checkTimeout: 15 * time.Second,
		auditor:      audit.NewSecurityAuditor(logger),
		logger:       logging.OrNop(logger),
	}
}

// RegisterRoutes registers the datasource routes on the given mux.
func (h *DatasourcesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /kinds", h.ListKinds)
	mux.HandleFunc("GET /pools", h.ListPools)
	mux.HandleFunc("POST /pools/{name}/check", h.CheckPool)
}

// ListKinds handles GET /kinds.
func (h *DatasourcesHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]any{"kinds": h.factory.Kinds()}); err != nil {
		h.logger.Error("Failed to encode kinds response", zap.Error(err))
	}
}

// ListPools handles GET /pools.
func (h *DatasourcesHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	stats := h.manager.GetStats()
	response := map[string]any{
		"names": h.manager.Names(),
		"pools": stats.Pools,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode pools response", zap.Error(err))
	}
}

// CheckPool handles POST /pools/{name}/check: borrow a connector from the
// named pool, probe it and give it back.
func (h *DatasourcesHandler) CheckPool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	ctx, cancel := context.WithTimeout(audit.WithRequestID(r.Context(), uuid.New()), h.checkTimeout)
	defer cancel()

	start := time.Now()
	var response CheckResponse
	err := h.manager.Do(ctx, name, func(c datasource.Connector) error {
		response = CheckResponse{
			Name:       name,
			Kind:       string(c.Kind()),
			Mode:       c.Mode().String(),
			Alive:      c.IsAlive(ctx),
			Connection: c.ID().String(),
		}
		return nil
	})

	auditErr := err
	if err == nil && !response.Alive {
		auditErr = errNotAlive
	}
	h.auditor.LogPoolCheck(ctx, name, response.Kind, auditErr, r.RemoteAddr)
	if err != nil {
		status, code := statusFor(err)
		h.logger.Warn("pool check failed",
			zap.String("name", name),
			zap.String("error", logging.SanitizeError(err)),
		)
		if encodeErr := ErrorResponse(w, status, code, logging.SanitizeError(err)); encodeErr != nil {
			h.logger.Error("Failed to encode error response", zap.Error(encodeErr))
		}
		return
	}

	response.ElapsedMS = time.Since(start).Milliseconds()
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode check response", zap.Error(err))
	}
}
