package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
)

// APIHandler serves system endpoints: version, health, unmatched routes.
type APIHandler struct {
	logger    arbor.ILogger
	startedAt time.Time
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		logger:    logger,
		startedAt: time.Now(),
	}
}

// VersionHandler handles GET /api/version.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// HealthHandler handles GET /api/health.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// NotFoundHandler catches unmatched /api/ routes.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("Unknown API route")
	WriteError(w, http.StatusNotFound, "not found")
}
