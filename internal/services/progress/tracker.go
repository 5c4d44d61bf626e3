// Package progress tracks one job's observable state: counters, derived
// rate/ETA figures and a bounded log ring. Every mutator emits an update
// event carrying a defensive snapshot.
package progress

import (
	"math"
	"sync"
	"time"

	"github.com/rjdeboer/captare/internal/models"
)

// maxLogEntries bounds the log ring; the oldest entry is dropped first.
const maxLogEntries = 500

// rateWindow is the sliding window for the leads-per-minute figure.
const rateWindow = time.Minute

// EmitFunc receives every event the tracker produces.
type EmitFunc func(event models.Event)

// Tracker is the per-job progress accumulator. All methods are safe for
// concurrent use; event emission is serialized under the tracker lock.
type Tracker struct {
	mu sync.Mutex

	sessionID string
	tenantID  string

	status           models.JobStatus
	startedAt        time.Time
	totalQueries     int
	processedQueries int
	totalDomains     int
	processedDomains int
	leadsFound       int
	errors           int
	currentSector    string
	currentCountry   string
	currentDomain    string

	leadTimes []time.Time
	logs      []models.LogEntry

	emit EmitFunc
	now  func() time.Time
}

// NewTracker creates a tracker bound to one session. emit may be nil.
func NewTracker(sessionID, tenantID string, emit EmitFunc) *Tracker {
	return &Tracker{
		sessionID: sessionID,
		tenantID:  tenantID,
		status:    models.JobStatusIdle,
		emit:      emit,
		now:       time.Now,
	}
}

// Start marks the job running with the given query total.
func (t *Tracker) Start(totalQueries int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = models.JobStatusRunning
	t.startedAt = t.now()
	t.totalQueries = totalQueries
	t.emitUpdateLocked()
}

// QueryStarted records the query about to be searched.
func (t *Tracker) QueryStarted(q models.QuerySpec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentSector = q.SectorLabel
	t.currentCountry = q.CountryLabel
	t.emitUpdateLocked()
}

// QueryFinished bumps the processed-query count.
func (t *Tracker) QueryFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processedQueries++
	t.emitUpdateLocked()
}

// DomainsFound adds n domains to the total awaiting processing.
func (t *Tracker) DomainsFound(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalDomains += n
	t.emitUpdateLocked()
}

// DomainStarted records the domain currently being fetched.
func (t *Tracker) DomainStarted(domain string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentDomain = domain
	t.emitUpdateLocked()
}

// DomainProcessed bumps the processed-domain count.
func (t *Tracker) DomainProcessed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.processedDomains < t.totalDomains {
		t.processedDomains++
	}
	t.emitUpdateLocked()
}

// LeadFound records a persisted lead for the rate window.
func (t *Tracker) LeadFound() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leadsFound++
	t.leadTimes = append(t.leadTimes, t.now())
	t.emitUpdateLocked()
}

// ErrorSeen bumps the error count.
func (t *Tracker) ErrorSeen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors++
	t.emitUpdateLocked()
}

// SetStatus transitions the coarse job state.
func (t *Tracker) SetStatus(status models.JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.emitUpdateLocked()
}

// Log appends to the bounded log ring and emits both a log event and an
// update event.
func (t *Tracker) Log(level models.LogLevel, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := models.LogEntry{Timestamp: t.now(), Level: level, Message: message}
	t.logs = append(t.logs, entry)
	if len(t.logs) > maxLogEntries {
		t.logs = t.logs[len(t.logs)-maxLogEntries:]
	}

	if t.emit != nil {
		t.emit(models.Event{
			Type:      models.EventLog,
			SessionID: t.sessionID,
			TenantID:  t.tenantID,
			Timestamp: entry.Timestamp,
			Payload:   models.LogPayload{Level: level, Message: message},
		})
	}
	t.emitUpdateLocked()
}

// Logs returns a copy of the log ring.
func (t *Tracker) Logs() []models.LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.LogEntry, len(t.logs))
	copy(out, t.logs)
	return out
}

// Snapshot returns a defensive copy of the current state with the
// derived fields filled in.
func (t *Tracker) Snapshot() models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() models.ProgressSnapshot {
	now := t.now()

	snap := models.ProgressSnapshot{
		Status:           t.status,
		StartedAt:        t.startedAt,
		TotalQueries:     t.totalQueries,
		ProcessedQueries: t.processedQueries,
		TotalDomains:     t.totalDomains,
		ProcessedDomains: t.processedDomains,
		LeadsFound:       t.leadsFound,
		Errors:           t.errors,
		CurrentSector:    t.currentSector,
		CurrentCountry:   t.currentCountry,
		CurrentDomain:    t.currentDomain,
	}

	if t.totalDomains > 0 {
		pct := int(math.Round(float64(t.processedDomains) / float64(t.totalDomains) * 100))
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		snap.ProgressPct = pct
	}

	// Leads per minute over the sliding window; prune as we count.
	cutoff := now.Add(-rateWindow)
	kept := t.leadTimes[:0]
	for _, ts := range t.leadTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	t.leadTimes = kept
	snap.LeadsPerMinute = len(kept)

	if !t.startedAt.IsZero() {
		elapsed := now.Sub(t.startedAt)
		snap.ElapsedSeconds = int(elapsed.Seconds())

		if t.processedDomains > 0 && elapsed > 0 {
			rate := float64(t.processedDomains) / elapsed.Seconds()
			if rate > 0 {
				eta := int(math.Round(float64(t.totalDomains-t.processedDomains) / rate))
				if eta < 0 {
					eta = 0
				}
				snap.ETASeconds = &eta
			}
		}
	}

	return snap
}

func (t *Tracker) emitUpdateLocked() {
	if t.emit == nil {
		return
	}
	t.emit(models.Event{
		Type:      models.EventUpdate,
		SessionID: t.sessionID,
		TenantID:  t.tenantID,
		Timestamp: t.now(),
		Payload:   t.snapshotLocked(),
	})
}
