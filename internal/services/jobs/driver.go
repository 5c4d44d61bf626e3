package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
	"github.com/rjdeboer/captare/internal/services/fetcher"
)

// run drives one job to completion: serial queries, concurrent domain
// workers per query. It owns the session's final status and always
// removes the tenant's active entry on exit.
func (m *Manager) run(a *activeJob) {
	ctx := context.Background()
	job := a.job

	defer m.removeActive(job.TenantID)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("session_id", job.SessionID).
				Msgf("Job driver panicked: %v", r)

			msg := fmt.Sprintf("internal error: %v", r)
			m.finishSession(ctx, a, models.SessionStatusError, msg)
			m.broadcast(job, models.EventJobError, models.JobErrorPayload{Error: msg})
			a.tracker.SetStatus(models.JobStatusDone)
		}
	}()

	a.tracker.Start(len(a.queries))
	a.tracker.Log(models.LogLevelInfo, fmt.Sprintf("Job started: %d queries, target %d leads", len(a.queries), job.Config.TargetLeads))
	m.broadcast(job, models.EventJobStarted, models.JobStartedPayload{
		SessionID: job.SessionID,
		Queries:   a.queries,
	})

	limiter := NewLimiter(job.Config.Concurrency)
	claimed := make(map[string]bool) // domains handed to a worker this job
	var claimedMu sync.Mutex

	for _, q := range a.queries {
		if job.StopRequested() || job.LeadsFound() >= job.Config.TargetLeads {
			break
		}

		a.tracker.QueryStarted(q)
		m.broadcast(job, models.EventQueryStart, models.QueryStartPayload{
			Query:   q.Query,
			Sector:  q.SectorLabel,
			Country: q.CountryLabel,
		})

		result, err := m.searcher.Search(ctx, q.Query, models.SearchOptions{
			MaxResults: job.Config.MaxResults,
			UseBrowser: job.Config.UseBrowser,
		})
		if err != nil {
			job.ErrorSeen()
			a.tracker.ErrorSeen()
			a.tracker.Log(models.LogLevelError, fmt.Sprintf("Search failed: %v", err))
			a.tracker.QueryFinished()
			continue
		}

		m.broadcast(job, models.EventSearchProgress, models.SearchProgressPayload{
			Query:        q.Query,
			ResultsFound: len(result.URLs),
			Blocked:      result.Blocked,
			Source:       result.Source,
			Error:        result.Error,
		})

		if result.Blocked {
			a.tracker.Log(models.LogLevelWarn, "Search engine blocked the query, moving on")
			a.tracker.QueryFinished()
			continue
		}

		urls := claimCandidates(result.URLs, claimed, &claimedMu)
		a.tracker.DomainsFound(len(urls))
		m.broadcast(job, models.EventDomainsFound, models.DomainsFoundPayload{Count: len(urls)})

		var wg sync.WaitGroup
		for _, rawURL := range urls {
			if job.StopRequested() || job.LeadsFound() >= job.Config.TargetLeads {
				break
			}

			wg.Add(1)
			go func(rawURL string) {
				defer wg.Done()
				limiter.Do(ctx, func() {
					m.processDomain(ctx, a, rawURL)
				})
			}(rawURL)
		}
		// Workers settle before the next query so the politeness delay
		// between searches is honored.
		wg.Wait()

		a.tracker.QueryFinished()
	}

	finalStatus := models.SessionStatusDone
	if job.StopRequested() {
		finalStatus = models.SessionStatusStopped
	}
	m.finishSession(ctx, a, finalStatus, "")

	counters := job.Counters()
	m.broadcast(job, models.EventJobDone, models.JobDonePayload{
		FinalStatus: string(finalStatus),
		Counters:    counters,
	})
	a.tracker.SetStatus(models.JobStatusDone)
	a.tracker.Log(models.LogLevelSuccess, fmt.Sprintf("Job %s: %d leads, %d duplicates, %d errors",
		finalStatus, counters.LeadsFound, counters.DuplicatesSkipped, counters.ErrorsCount))

	m.logger.Info().
		Str("session_id", job.SessionID).
		Str("status", string(finalStatus)).
		Int("leads", counters.LeadsFound).
		Int("duplicates", counters.DuplicatesSkipped).
		Int("errors", counters.ErrorsCount).
		Msg("Job finished")
}

// processDomain runs the site pipeline for one candidate URL inside a
// limiter slot.
func (m *Manager) processDomain(ctx context.Context, a *activeJob, rawURL string) {
	job := a.job
	if job.StopRequested() || job.LeadsFound() >= job.Config.TargetLeads {
		return
	}

	domain := common.NormalizeDomain(rawURL)
	a.tracker.DomainStarted(domain)
	defer a.tracker.DomainProcessed()

	lead, err := m.scraper.Scrape(ctx, rawURL, a.analyzer, job.Config)
	if err != nil {
		if errors.Is(err, fetcher.ErrSkippedDomain) || errors.Is(err, fetcher.ErrAlreadyVisited) {
			return
		}
		job.ErrorSeen()
		a.tracker.ErrorSeen()
		a.tracker.Log(models.LogLevelError, fmt.Sprintf("%s: %v", domain, err))
		return
	}

	if lead.Score < job.Config.MinScore {
		m.logger.Debug().
			Str("domain", domain).
			Int("score", lead.Score).
			Int("min_score", job.Config.MinScore).
			Msg("Lead below minimum score")
		return
	}

	result, err := m.leads.InsertDeduped(ctx, lead, job.TenantID, job.ListID)
	if err != nil {
		job.ErrorSeen()
		a.tracker.ErrorSeen()
		a.tracker.Log(models.LogLevelError, fmt.Sprintf("Failed to store lead for %s: %v", domain, err))
		return
	}

	switch {
	case result.Inserted:
		counters, flush := job.LeadFound()
		a.tracker.LeadFound()
		a.tracker.Log(models.LogLevelSuccess, fmt.Sprintf("Lead: %s (score %d)", domain, lead.Score))
		m.broadcast(job, models.EventLead, models.LeadPayload{Lead: lead})
		if flush {
			m.flushProgress(ctx, a, counters)
		}
	case result.Reason == interfaces.InsertReasonDuplicate:
		counters, flush := job.DuplicateSkipped()
		if flush {
			m.flushProgress(ctx, a, counters)
		}
	default:
		job.ErrorSeen()
		a.tracker.ErrorSeen()
		a.tracker.Log(models.LogLevelWarn, fmt.Sprintf("Lead for %s rejected: %s", domain, result.Reason))
	}
}

// flushProgress persists the counters and pushes a progress event.
// Called every 10 completed lead/duplicate events and at job end.
func (m *Manager) flushProgress(ctx context.Context, a *activeJob, counters models.JobCounters) {
	upd := interfaces.SessionUpdate{
		LeadsFound:        &counters.LeadsFound,
		DuplicatesSkipped: &counters.DuplicatesSkipped,
		ErrorsCount:       &counters.ErrorsCount,
	}
	if err := m.sessions.Update(ctx, a.job.SessionID, upd); err != nil {
		m.logger.Warn().Err(err).Str("session_id", a.job.SessionID).Msg("Failed to flush session counters")
	}
	m.broadcast(a.job, models.EventProgress, models.ProgressPayload{Counters: counters})
}

// finishSession writes the final counters and status in one update.
func (m *Manager) finishSession(ctx context.Context, a *activeJob, status models.SessionStatus, errMsg string) {
	counters := a.job.Counters()
	upd := interfaces.SessionUpdate{
		LeadsFound:        &counters.LeadsFound,
		DuplicatesSkipped: &counters.DuplicatesSkipped,
		ErrorsCount:       &counters.ErrorsCount,
		Status:            &status,
	}
	if errMsg != "" {
		upd.Error = &errMsg
	}
	if err := m.sessions.Update(ctx, a.job.SessionID, upd); err != nil {
		m.logger.Error().Err(err).Str("session_id", a.job.SessionID).Msg("Failed to finalize session")
	}
}

// broadcast stamps and publishes a job event.
func (m *Manager) broadcast(job *models.Job, eventType models.EventType, payload interface{}) {
	m.broadcaster.Broadcast(models.Event{
		Type:      eventType,
		SessionID: job.SessionID,
		TenantID:  job.TenantID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// claimCandidates filters search results down to fetchable domains the
// job has not claimed yet: valid TLD, not a noise host, one URL per
// domain per job.
func claimCandidates(urls []string, claimed map[string]bool, mu *sync.Mutex) []string {
	mu.Lock()
	defer mu.Unlock()

	var out []string
	for _, rawURL := range urls {
		domain := common.NormalizeDomain(rawURL)
		if domain == "" || !common.HasValidTLD(domain) || common.IsNoiseDomain(domain) {
			continue
		}
		if claimed[domain] {
			continue
		}
		claimed[domain] = true
		out = append(out, rawURL)
	}
	return out
}
