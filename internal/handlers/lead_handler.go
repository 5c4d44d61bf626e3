package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
)

// LeadHandler serves stored leads.
type LeadHandler struct {
	leads    interfaces.LeadStorage
	sessions interfaces.SessionStore
	logger   arbor.ILogger
}

// NewLeadHandler creates a LeadHandler.
func NewLeadHandler(leads interfaces.LeadStorage, sessions interfaces.SessionStore, logger arbor.ILogger) *LeadHandler {
	return &LeadHandler{
		leads:    leads,
		sessions: sessions,
		logger:   logger,
	}
}

// ListHandler handles GET /api/leads with tenant_id, list_id, min_score,
// limit and offset query parameters.
func (h *LeadHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	opts := &interfaces.LeadListOptions{
		TenantID: tenantID,
		ListID:   r.URL.Query().Get("list_id"),
		MinScore: QueryInt(r, "min_score", 0),
		Limit:    QueryInt(r, "limit", 100),
		Offset:   QueryInt(r, "offset", 0),
	}

	leads, err := h.leads.ListLeads(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to list leads")
		WriteError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	total, err := h.leads.CountLeads(r.Context(), tenantID)
	if err != nil {
		h.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("Failed to count leads")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"leads": leads,
		"count": len(leads),
		"total": total,
	})
}

// SessionsHandler handles GET /api/sessions: the tenant's job history.
func (h *LeadHandler) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		WriteError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	sessions, err := h.sessions.List(r.Context(), tenantID, QueryInt(r, "limit", 50))
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("Failed to list sessions")
		WriteError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}
