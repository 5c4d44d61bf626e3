// Package handlers exposes the REST and WebSocket surface: job control,
// lead listing, sector taxonomy management and event streaming.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/models"
	"github.com/rjdeboer/captare/internal/services/analyzers"
	"github.com/rjdeboer/captare/internal/services/cache"
	"github.com/rjdeboer/captare/internal/services/jobs"
)

// startJobRequest is the POST /api/jobs/start body. Config fields left
// at their zero value fall back to the documented defaults.
type startJobRequest struct {
	TenantID string           `json:"tenant_id"`
	ListID   string           `json:"list_id"`
	Config   models.JobConfig `json:"config"`
}

// JobHandler handles job lifecycle requests.
type JobHandler struct {
	manager *jobs.Manager
	cache   *cache.Service
	logger  arbor.ILogger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(manager *jobs.Manager, cacheSvc *cache.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		manager: manager,
		cache:   cacheSvc,
		logger:  logger,
	}
}

// StartHandler handles POST /api/jobs/start. One job per tenant; a
// second start while one runs returns 409.
func (h *JobHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	// Defaults survive a request that omits the config block entirely;
	// a partial config block is overlaid by JobConfig.UnmarshalJSON.
	req := startJobRequest{Config: models.DefaultJobConfig()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	// Each run starts with a clean visited-domain slate.
	h.cache.ClearVisited()

	sessionID, err := h.manager.Start(r.Context(), req.TenantID, req.ListID, req.Config)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobAlreadyRunning):
			WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, jobs.ErrNoQueries), errors.Is(err, analyzers.ErrUnknownUseCase):
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("tenant_id", req.TenantID).Msg("Failed to start job")
			WriteError(w, http.StatusInternalServerError, "failed to start job")
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "started",
		"session_id": sessionID,
	})
}

// StopHandler handles POST /api/jobs/stop. The stop is cooperative: the
// response acknowledges the request, not completion.
func (h *JobHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	if !h.manager.Stop(tenantID) {
		WriteError(w, http.StatusNotFound, "no running job for tenant")
		return
	}
	WriteSuccess(w, "stop requested")
}

// StatusHandler handles GET /api/jobs/status.
func (h *JobHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	status, ok := h.manager.Status(tenantID)
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"running": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running": true,
		"job":     status,
	})
}

// LogsHandler handles GET /api/jobs/logs: the running job's log ring.
func (h *JobHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	logs, ok := h.manager.Logs(tenantID)
	if !ok {
		WriteError(w, http.StatusNotFound, "no running job for tenant")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
