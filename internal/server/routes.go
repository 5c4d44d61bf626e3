package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs (scrape job lifecycle)
	mux.HandleFunc("/api/jobs/start", s.app.JobHandler.StartHandler)
	mux.HandleFunc("/api/jobs/stop", s.app.JobHandler.StopHandler)
	mux.HandleFunc("/api/jobs/status", s.app.JobHandler.StatusHandler)
	mux.HandleFunc("/api/jobs/logs", s.app.JobHandler.LogsHandler)

	// API routes - Results
	mux.HandleFunc("/api/leads", s.app.LeadHandler.ListHandler)
	mux.HandleFunc("/api/sessions", s.app.LeadHandler.SessionsHandler)

	// API routes - Sector taxonomies
	mux.HandleFunc("/api/sectors", s.app.SectorHandler.ListHandler)
	mux.HandleFunc("/api/sectors/reload", s.app.SectorHandler.ReloadHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
