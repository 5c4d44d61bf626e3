package models

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// JobConfig holds the per-run options for a scrape job. Values are fixed
// at Start; the driver never mutates the config.
type JobConfig struct {
	UseCase         string   `json:"use_case"`
	TargetLeads     int      `json:"target_leads"`
	SectorKeys      []string `json:"sector_keys"`
	CountryKeys     []string `json:"country_keys"`
	MinScore        int      `json:"min_score"`
	EmailValidation bool     `json:"email_validation"`
	DeepValidation  bool     `json:"deep_validation"`
	Concurrency     int      `json:"concurrency"`
	UseBrowser      bool     `json:"use_browser"`
	MaxResults      int      `json:"max_results"`
}

// DefaultJobConfig returns the documented defaults. Empty sector/country
// lists select the analyzer's full taxonomy.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		UseCase:         "erp",
		TargetLeads:     1000,
		MinScore:        50,
		EmailValidation: true,
		DeepValidation:  false,
		Concurrency:     5,
		UseBrowser:      true,
		MaxResults:      30,
	}
}

// UnmarshalJSON decodes a partial config on top of the documented
// defaults. Booleans have no distinguishable zero value, so a request
// omitting email_validation or use_browser would otherwise silently
// flip those options off.
func (c *JobConfig) UnmarshalJSON(data []byte) error {
	type plain JobConfig
	cfg := plain(DefaultJobConfig())
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	*c = JobConfig(cfg)
	return nil
}

// Normalize fills zero values with defaults so handlers can accept
// partial configs.
func (c *JobConfig) Normalize() {
	def := DefaultJobConfig()
	if c.UseCase == "" {
		c.UseCase = def.UseCase
	}
	if c.TargetLeads <= 0 {
		c.TargetLeads = def.TargetLeads
	}
	if c.MinScore <= 0 {
		c.MinScore = def.MinScore
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.MaxResults <= 0 {
		c.MaxResults = def.MaxResults
	}
}

// JobCounters is the mutable per-job tally. LeadsFound+DuplicatesSkipped
// is monotonically non-decreasing for the lifetime of the job.
type JobCounters struct {
	LeadsFound        int `json:"leads_found"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	ErrorsCount       int `json:"errors_count"`
}

// Job is the per-tenant handle for one running scrape. It is created by
// the manager, driven by a single goroutine, and removed from the
// active-jobs map when that goroutine exits.
type Job struct {
	SessionID string
	TenantID  string
	ListID    string
	Config    JobConfig
	StartedAt time.Time

	stopRequested atomic.Bool

	mu        sync.Mutex
	counters  JobCounters
	completed int // leads + duplicates since the last progress flush
}

// RequestStop flips the cooperative stop flag. Monotonic false→true.
func (j *Job) RequestStop() {
	j.stopRequested.Store(true)
}

// StopRequested reports whether a stop has been requested.
func (j *Job) StopRequested() bool {
	return j.stopRequested.Load()
}

// Counters returns a snapshot of the current tallies.
func (j *Job) Counters() JobCounters {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.counters
}

// LeadFound records a persisted lead and reports whether the counters
// should be flushed (every 10 completed lead/duplicate events).
func (j *Job) LeadFound() (JobCounters, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.counters.LeadsFound++
	return j.counters, j.tickCompleted()
}

// DuplicateSkipped records a dedup hit.
func (j *Job) DuplicateSkipped() (JobCounters, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.counters.DuplicatesSkipped++
	return j.counters, j.tickCompleted()
}

// ErrorSeen records a failed unit of work.
func (j *Job) ErrorSeen() JobCounters {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.counters.ErrorsCount++
	return j.counters
}

// LeadsFound returns the current lead count without copying the rest.
func (j *Job) LeadsFound() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.counters.LeadsFound
}

func (j *Job) tickCompleted() bool {
	j.completed++
	if j.completed >= 10 {
		j.completed = 0
		return true
	}
	return false
}
