package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/services/analyzers"
)

// SectorHandler serves and reloads the analyzer sector taxonomies.
type SectorHandler struct {
	stores map[string]*analyzers.SectorStore // keyed by use case
	logger arbor.ILogger
}

// NewSectorHandler creates a SectorHandler over the per-use-case
// taxonomy stores.
func NewSectorHandler(stores map[string]*analyzers.SectorStore, logger arbor.ILogger) *SectorHandler {
	return &SectorHandler{
		stores: stores,
		logger: logger,
	}
}

// ListHandler handles GET /api/sectors?use_case=erp.
func (h *SectorHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	useCase := r.URL.Query().Get("use_case")
	if useCase == "" {
		useCase = "erp"
	}

	store, ok := h.stores[useCase]
	if !ok {
		WriteError(w, http.StatusBadRequest, "unknown use case: "+useCase)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"use_case": useCase,
		"sectors":  store.Sectors(),
	})
}

// ReloadHandler handles POST /api/sectors/reload. A failed reload keeps
// the previous taxonomy active.
func (h *SectorHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	useCase := r.URL.Query().Get("use_case")
	if useCase == "" {
		useCase = "erp"
	}

	store, ok := h.stores[useCase]
	if !ok {
		WriteError(w, http.StatusBadRequest, "unknown use case: "+useCase)
		return
	}

	if err := store.Reload(); err != nil {
		h.logger.Warn().Err(err).Str("use_case", useCase).Msg("Sector reload failed")
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	WriteSuccess(w, "sector taxonomy reloaded")
}
