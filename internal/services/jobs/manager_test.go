package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

type stubAnalyzer struct {
	queries []models.QuerySpec
}

func (s *stubAnalyzer) Key() string { return "stub" }
func (s *stubAnalyzer) GenerateQueries(cfg models.JobConfig) []models.QuerySpec {
	return s.queries
}
func (s *stubAnalyzer) FetchExtra(ctx context.Context, baseURL string, fetch interfaces.FetchFunc) (*interfaces.ExtraResult, error) {
	return &interfaces.ExtraResult{Data: map[string]interface{}{}}, nil
}
func (s *stubAnalyzer) Analyze(in interfaces.AnalyzeInput) (*interfaces.AnalyzeResult, error) {
	return &interfaces.AnalyzeResult{Score: 100}, nil
}

type stubRegistry struct {
	analyzer interfaces.Analyzer
}

func (r *stubRegistry) Get(key string) (interfaces.Analyzer, error) {
	if r.analyzer == nil {
		return nil, fmt.Errorf("unknown use case: %s", key)
	}
	return r.analyzer, nil
}

type stubSearch struct {
	fn func(query string) *models.SearchResult

	mu   sync.Mutex
	opts []models.SearchOptions
}

func (s *stubSearch) Search(ctx context.Context, query string, opts models.SearchOptions) (*models.SearchResult, error) {
	s.mu.Lock()
	s.opts = append(s.opts, opts)
	s.mu.Unlock()
	return s.fn(query), nil
}
func (s *stubSearch) Shutdown(ctx context.Context) error { return nil }

type stubScraper struct {
	fn func(rawURL string) (*models.Lead, error)
}

func (s *stubScraper) Scrape(ctx context.Context, rawURL string, analyzer interfaces.Analyzer, cfg models.JobConfig) (*models.Lead, error) {
	return s.fn(rawURL)
}

type memSessions struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*models.Session)}
}

func (s *memSessions) Create(ctx context.Context, tenantID, listID string, cfg models.JobConfig, queries []models.QuerySpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("ses_test_%d", s.seq)
	s.sessions[id] = &models.Session{
		ID: id, TenantID: tenantID, ListID: listID,
		Config: cfg, Queries: queries,
		Status: models.SessionStatusRunning, CreatedAt: time.Now(),
	}
	return id, nil
}

func (s *memSessions) Update(ctx context.Context, sessionID string, upd interfaces.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ses, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	if upd.LeadsFound != nil {
		ses.LeadsFound = *upd.LeadsFound
	}
	if upd.DuplicatesSkipped != nil {
		ses.DuplicatesSkipped = *upd.DuplicatesSkipped
	}
	if upd.ErrorsCount != nil {
		ses.ErrorsCount = *upd.ErrorsCount
	}
	if upd.Status != nil {
		ses.Status = *upd.Status
	}
	if upd.Error != nil {
		ses.Error = *upd.Error
	}
	ses.UpdatedAt = time.Now()
	return nil
}

func (s *memSessions) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ses, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	copied := *ses
	return &copied, nil
}

func (s *memSessions) List(ctx context.Context, tenantID string, limit int) ([]*models.Session, error) {
	return nil, nil
}

func (s *memSessions) MarkStale(ctx context.Context, olderThanHours int) (int, error) {
	return 0, nil
}

type memLeads struct {
	mu      sync.Mutex
	seq     int
	domains map[string]bool
	leads   []*models.Lead
}

func newMemLeads() *memLeads {
	return &memLeads{domains: make(map[string]bool)}
}

func (s *memLeads) InsertDeduped(ctx context.Context, lead *models.Lead, tenantID, listID string) (*interfaces.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantID + "/" + lead.Domain
	if s.domains[key] {
		return &interfaces.InsertResult{Inserted: false, Reason: interfaces.InsertReasonDuplicate}, nil
	}
	s.domains[key] = true
	s.seq++
	lead.ID = fmt.Sprintf("lead_test_%d", s.seq)
	s.leads = append(s.leads, lead)
	return &interfaces.InsertResult{Inserted: true, ID: lead.ID}, nil
}

func (s *memLeads) ListLeads(ctx context.Context, opts *interfaces.LeadListOptions) ([]*models.Lead, error) {
	return nil, nil
}

func (s *memLeads) CountLeads(ctx context.Context, tenantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads), nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
}

func (b *recordingBroadcaster) Broadcast(event models.Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) byType(t models.EventType) []models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type managerFixture struct {
	manager     *Manager
	sessions    *memSessions
	leads       *memLeads
	broadcaster *recordingBroadcaster
}

func newFixture(search *stubSearch, scraper *stubScraper) *managerFixture {
	logger := arbor.NewLogger()
	sessions := newMemSessions()
	leads := newMemLeads()
	broadcaster := &recordingBroadcaster{}
	registry := &stubRegistry{analyzer: &stubAnalyzer{queries: []models.QuerySpec{
		{Query: "test query", SectorKey: "s1", SectorLabel: "Sector", CountryKey: "NL", CountryLabel: "Nederland"},
	}}}
	m := NewManager(registry, search, scraper, leads, sessions, broadcaster, logger)
	return &managerFixture{manager: m, sessions: sessions, leads: leads, broadcaster: broadcaster}
}

func waitForIdle(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.ActiveCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
}

func TestManagerHappyPath(t *testing.T) {
	search := &stubSearch{fn: func(query string) *models.SearchResult {
		return &models.SearchResult{
			URLs:   []string{"https://alpha.nl/", "https://beta.nl/", "https://gamma.de/"},
			Source: models.SearchSourceBrowser,
		}
	}}
	scraper := &stubScraper{fn: func(rawURL string) (*models.Lead, error) {
		return &models.Lead{Domain: rawURL, Score: 80}, nil
	}}
	f := newFixture(search, scraper)

	sessionID, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForIdle(t, f.manager)

	ses, err := f.sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if ses.Status != models.SessionStatusDone {
		t.Errorf("session status = %s, want done", ses.Status)
	}
	if ses.LeadsFound != 3 {
		t.Errorf("session leads_found = %d, want 3", ses.LeadsFound)
	}

	if done := f.broadcaster.byType(models.EventJobDone); len(done) != 1 {
		t.Errorf("got %d job_done events, want 1", len(done))
	}
	if leadEvents := f.broadcaster.byType(models.EventLead); len(leadEvents) != 3 {
		t.Errorf("got %d lead events, want 3", len(leadEvents))
	}
}

func TestManagerPerTenantExclusivity(t *testing.T) {
	release := make(chan struct{})
	search := &stubSearch{fn: func(query string) *models.SearchResult {
		return &models.SearchResult{URLs: []string{"https://alpha.nl/"}}
	}}
	scraper := &stubScraper{fn: func(rawURL string) (*models.Lead, error) {
		<-release
		return &models.Lead{Domain: "alpha.nl", Score: 80}, nil
	}}
	f := newFixture(search, scraper)

	if _, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub"}); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	// Second start for the same tenant is rejected while the first runs.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub"})
		if err == ErrJobAlreadyRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("second Start() error = %v, want ErrJobAlreadyRunning", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A different tenant is unaffected.
	if _, err := f.manager.Start(context.Background(), "tenant-b", "list-1", models.JobConfig{UseCase: "stub"}); err != nil {
		t.Errorf("Start() for second tenant error = %v", err)
	}

	close(release)
	waitForIdle(t, f.manager)
}

func TestManagerNoQueries(t *testing.T) {
	f := newFixture(
		&stubSearch{fn: func(string) *models.SearchResult { return &models.SearchResult{} }},
		&stubScraper{fn: func(string) (*models.Lead, error) { return nil, nil }},
	)
	f.manager.registry = &stubRegistry{analyzer: &stubAnalyzer{queries: nil}}

	_, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub"})
	if err != ErrNoQueries {
		t.Errorf("Start() error = %v, want ErrNoQueries", err)
	}
}

func TestManagerStop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	search := &stubSearch{fn: func(query string) *models.SearchResult {
		return &models.SearchResult{URLs: []string{"https://alpha.nl/"}}
	}}
	scraper := &stubScraper{fn: func(rawURL string) (*models.Lead, error) {
		once.Do(func() { close(started) })
		<-release
		return &models.Lead{Domain: "alpha.nl", Score: 80}, nil
	}}
	f := newFixture(search, scraper)

	sessionID, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	if !f.manager.Stop("tenant-a") {
		t.Error("Stop() = false, want true for running job")
	}
	if f.manager.Stop("tenant-unknown") {
		t.Error("Stop() = true for unknown tenant, want false")
	}

	close(release)
	waitForIdle(t, f.manager)

	ses, _ := f.sessions.Get(context.Background(), sessionID)
	if ses.Status != models.SessionStatusStopped {
		t.Errorf("session status = %s, want stopped", ses.Status)
	}
}

func TestManagerMinScoreFilter(t *testing.T) {
	search := &stubSearch{fn: func(query string) *models.SearchResult {
		return &models.SearchResult{URLs: []string{"https://low.nl/", "https://high.nl/"}}
	}}
	scraper := &stubScraper{fn: func(rawURL string) (*models.Lead, error) {
		if rawURL == "https://low.nl/" {
			return &models.Lead{Domain: "low.nl", Score: 10}, nil
		}
		return &models.Lead{Domain: "high.nl", Score: 90}, nil
	}}
	f := newFixture(search, scraper)

	_, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub", MinScore: 50})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForIdle(t, f.manager)

	count, _ := f.leads.CountLeads(context.Background(), "tenant-a")
	if count != 1 {
		t.Errorf("stored leads = %d, want 1 (below-score lead dropped)", count)
	}
}

func TestManagerBlockedQuery(t *testing.T) {
	search := &stubSearch{fn: func(query string) *models.SearchResult {
		return &models.SearchResult{Blocked: true, Source: models.SearchSourceBrowser}
	}}
	scraper := &stubScraper{fn: func(rawURL string) (*models.Lead, error) {
		t.Error("scraper must not be called for a blocked query")
		return nil, nil
	}}
	f := newFixture(search, scraper)

	sessionID, err := f.manager.Start(context.Background(), "tenant-a", "list-1", models.JobConfig{UseCase: "stub"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForIdle(t, f.manager)

	ses, _ := f.sessions.Get(context.Background(), sessionID)
	if ses.Status != models.SessionStatusDone {
		t.Errorf("session status = %s, want done", ses.Status)
	}
	if ses.LeadsFound != 0 {
		t.Errorf("leads_found = %d, want 0", ses.LeadsFound)
	}
}

func TestManagerPassesSearchOptionsFromConfig(t *testing.T) {
	search := &stubSearch{fn: func(query string) *models.SearchResult {
		return &models.SearchResult{Source: models.SearchSourceHTTP}
	}}
	scraper := &stubScraper{fn: func(rawURL string) (*models.Lead, error) {
		return nil, nil
	}}
	f := newFixture(search, scraper)

	cfg := models.JobConfig{UseCase: "stub", UseBrowser: false, MaxResults: 7}
	if _, err := f.manager.Start(context.Background(), "tenant-a", "list-1", cfg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForIdle(t, f.manager)

	search.mu.Lock()
	defer search.mu.Unlock()
	if len(search.opts) != 1 {
		t.Fatalf("got %d search calls, want 1", len(search.opts))
	}
	if search.opts[0].UseBrowser {
		t.Error("search opts use_browser = true, job config disabled the browser")
	}
	if search.opts[0].MaxResults != 7 {
		t.Errorf("search opts max_results = %d, want 7", search.opts[0].MaxResults)
	}
}

func TestClaimCandidates(t *testing.T) {
	claimed := make(map[string]bool)
	var mu sync.Mutex

	urls := []string{
		"https://alpha.nl/",
		"https://www.alpha.nl/contact", // duplicate domain
		"https://linkedin.com/x",       // noise
		"https://beta.xyz/",            // invalid TLD
		"https://gamma.de/",
	}
	got := claimCandidates(urls, claimed, &mu)
	if len(got) != 2 {
		t.Fatalf("claimCandidates() = %v, want 2 urls", got)
	}

	// Second query never re-claims a domain.
	again := claimCandidates([]string{"https://alpha.nl/other"}, claimed, &mu)
	if len(again) != 0 {
		t.Errorf("re-claim returned %v, want none", again)
	}
}
