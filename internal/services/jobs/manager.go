// Package jobs owns the scrape-job lifecycle: per-tenant exclusivity,
// the query/domain driver loop, FIFO-bounded domain workers and the
// progress flushes back to the session store.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
	"github.com/rjdeboer/captare/internal/services/progress"
)

var (
	// ErrJobAlreadyRunning is returned when the tenant already has an
	// active job.
	ErrJobAlreadyRunning = errors.New("a job is already running for this tenant")
	// ErrNoQueries is returned when the analyzer produced an empty query
	// list for the given config.
	ErrNoQueries = errors.New("configuration produced no search queries")
)

// Scraper is the site pipeline the driver hands candidate URLs to.
// Satisfied by fetcher.Service.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string, analyzer interfaces.Analyzer, cfg models.JobConfig) (*models.Lead, error)
}

// activeJob couples the job handle with its progress tracker.
type activeJob struct {
	job      *models.Job
	tracker  *progress.Tracker
	analyzer interfaces.Analyzer
	queries  []models.QuerySpec
}

// JobStatus is the point-in-time view returned to status queries.
type JobStatus struct {
	SessionID string                  `json:"session_id"`
	TenantID  string                  `json:"tenant_id"`
	ListID    string                  `json:"list_id"`
	Config    models.JobConfig        `json:"config"`
	StartedAt time.Time               `json:"started_at"`
	Counters  models.JobCounters      `json:"counters"`
	Progress  models.ProgressSnapshot `json:"progress"`
}

// Manager enforces one running job per tenant and drives each job on a
// dedicated goroutine.
type Manager struct {
	registry    Registry
	searcher    interfaces.SearchService
	scraper     Scraper
	leads       interfaces.LeadStorage
	sessions    interfaces.SessionStore
	broadcaster interfaces.Broadcaster
	logger      arbor.ILogger

	mu     sync.Mutex
	active map[string]*activeJob // keyed by tenant ID
}

// Registry resolves use-case keys to analyzers. Satisfied by
// analyzers.Registry.
type Registry interface {
	Get(key string) (interfaces.Analyzer, error)
}

// NewManager wires the job manager.
func NewManager(
	registry Registry,
	searcher interfaces.SearchService,
	scraper Scraper,
	leads interfaces.LeadStorage,
	sessions interfaces.SessionStore,
	broadcaster interfaces.Broadcaster,
	logger arbor.ILogger,
) *Manager {
	return &Manager{
		registry:    registry,
		searcher:    searcher,
		scraper:     scraper,
		leads:       leads,
		sessions:    sessions,
		broadcaster: broadcaster,
		logger:      logger,
		active:      make(map[string]*activeJob),
	}
}

// Start validates the config, creates the session and launches the
// driver goroutine. Exactly one job may run per tenant; a second Start
// returns ErrJobAlreadyRunning and leaves the running job untouched.
func (m *Manager) Start(ctx context.Context, tenantID, listID string, cfg models.JobConfig) (string, error) {
	cfg.Normalize()

	analyzer, err := m.registry.Get(cfg.UseCase)
	if err != nil {
		return "", err
	}

	queries := analyzer.GenerateQueries(cfg)
	if len(queries) == 0 {
		return "", ErrNoQueries
	}

	m.mu.Lock()
	if _, running := m.active[tenantID]; running {
		m.mu.Unlock()
		return "", ErrJobAlreadyRunning
	}

	sessionID, err := m.sessions.Create(ctx, tenantID, listID, cfg, queries)
	if err != nil {
		m.mu.Unlock()
		return "", err
	}

	job := &models.Job{
		SessionID: sessionID,
		TenantID:  tenantID,
		ListID:    listID,
		Config:    cfg,
		StartedAt: time.Now(),
	}
	a := &activeJob{
		job:      job,
		analyzer: analyzer,
		queries:  queries,
		tracker:  progress.NewTracker(sessionID, tenantID, m.broadcaster.Broadcast),
	}
	m.active[tenantID] = a
	m.mu.Unlock()

	m.logger.Info().
		Str("session_id", sessionID).
		Str("tenant_id", tenantID).
		Str("use_case", cfg.UseCase).
		Int("queries", len(queries)).
		Msg("Job started")

	go m.run(a)

	return sessionID, nil
}

// Stop requests a cooperative stop. Returns false when no job is
// running for the tenant.
func (m *Manager) Stop(tenantID string) bool {
	m.mu.Lock()
	a, ok := m.active[tenantID]
	m.mu.Unlock()

	if !ok {
		return false
	}

	a.job.RequestStop()
	a.tracker.SetStatus(models.JobStatusStopping)
	m.logger.Info().
		Str("session_id", a.job.SessionID).
		Str("tenant_id", tenantID).
		Msg("Job stop requested")
	return true
}

// Status returns the running job's snapshot for the tenant.
func (m *Manager) Status(tenantID string) (*JobStatus, bool) {
	m.mu.Lock()
	a, ok := m.active[tenantID]
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	return &JobStatus{
		SessionID: a.job.SessionID,
		TenantID:  a.job.TenantID,
		ListID:    a.job.ListID,
		Config:    a.job.Config,
		StartedAt: a.job.StartedAt,
		Counters:  a.job.Counters(),
		Progress:  a.tracker.Snapshot(),
	}, true
}

// Logs returns the running job's log ring for the tenant.
func (m *Manager) Logs(tenantID string) ([]models.LogEntry, bool) {
	m.mu.Lock()
	a, ok := m.active[tenantID]
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	return a.tracker.Logs(), true
}

// StopAll requests a stop on every running job. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	jobs := make([]*activeJob, 0, len(m.active))
	for _, a := range m.active {
		jobs = append(jobs, a)
	}
	m.mu.Unlock()

	for _, a := range jobs {
		a.job.RequestStop()
	}
}

// ActiveCount returns the number of running jobs.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) removeActive(tenantID string) {
	m.mu.Lock()
	delete(m.active, tenantID)
	m.mu.Unlock()
}
