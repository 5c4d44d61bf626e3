// Package cache provides the process-lifetime caches shared by the
// scraping pipeline: a TTL keyed map for search and page results, and
// the visited-domain set populated by the site fetcher.
package cache

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// DefaultTTL applies when Set is called without an explicit TTL.
const DefaultTTL = time.Hour

// sweepSchedule is the background eviction cadence.
const sweepSchedule = "@every 5m"

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Service is a thread-safe TTL map plus a visited-domain set. Expired
// entries are dropped lazily on read and swept by a background cron job.
type Service struct {
	mu         sync.RWMutex
	entries    map[string]entry
	visited    map[string]struct{}
	defaultTTL time.Duration
	cron       *cron.Cron
	logger     arbor.ILogger
}

// NewService creates the cache. Call Start to begin the sweep job.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		entries:    make(map[string]entry),
		visited:    make(map[string]struct{}),
		defaultTTL: DefaultTTL,
		logger:     logger,
	}
}

// Start launches the periodic cleanup pass.
func (s *Service) Start() {
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	s.cron.AddFunc(sweepSchedule, func() {
		if evicted := s.Cleanup(); evicted > 0 {
			s.logger.Debug().Int("evicted", evicted).Msg("Cache sweep removed expired entries")
		}
	})
	s.cron.Start()
}

// Stop halts the sweep job.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// Set stores a value under key. A zero or missing ttl uses DefaultTTL.
func (s *Service) Set(key string, value interface{}, ttl ...time.Duration) {
	d := s.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(d)}
}

// Get returns the value for key, expiring it lazily if stale.
func (s *Service) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a Set may have raced us.
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Cleanup evicts all expired entries and returns how many were removed.
func (s *Service) Cleanup() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			evicted++
		}
	}
	return evicted
}

// MarkVisited records a normalized domain in the visited set and
// reports whether it was newly added (false means it was seen before).
func (s *Service) MarkVisited(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.visited[domain]; seen {
		return false
	}
	s.visited[domain] = struct{}{}
	return true
}

// IsVisited reports whether the domain is in the visited set.
func (s *Service) IsVisited(domain string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, seen := s.visited[domain]
	return seen
}

// ClearVisited empties the visited-domain set. Invoked by the start
// handler at the beginning of a new job run.
func (s *Service) ClearVisited() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = make(map[string]struct{})
}

// VisitedCount returns the size of the visited set.
func (s *Service) VisitedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited)
}
