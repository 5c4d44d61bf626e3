package models

import "time"

// JobStatus is the tracker's coarse state.
type JobStatus string

const (
	JobStatusIdle     JobStatus = "idle"
	JobStatusRunning  JobStatus = "running"
	JobStatusStopping JobStatus = "stopping"
	JobStatusDone     JobStatus = "done"
)

// LogLevel classifies tracker log entries.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelSuccess LogLevel = "success"
)

// LogEntry is one line in the tracker's bounded log ring.
type LogEntry struct {
	Timestamp time.Time `json:"ts"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// ProgressSnapshot is a serializable, defensive copy of the tracker
// state plus its derived fields. ProgressPct is always within [0,100];
// ETASeconds is nil until a rate can be computed.
type ProgressSnapshot struct {
	Status           JobStatus `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	TotalQueries     int       `json:"total_queries"`
	ProcessedQueries int       `json:"processed_queries"`
	TotalDomains     int       `json:"total_domains"`
	ProcessedDomains int       `json:"processed_domains"`
	LeadsFound       int       `json:"leads_found"`
	Errors           int       `json:"errors"`
	CurrentSector    string    `json:"current_sector,omitempty"`
	CurrentCountry   string    `json:"current_country,omitempty"`
	CurrentDomain    string    `json:"current_domain,omitempty"`
	ProgressPct      int       `json:"progress_pct"`
	LeadsPerMinute   int       `json:"leads_per_minute"`
	ETASeconds       *int      `json:"eta_seconds"`
	ElapsedSeconds   int       `json:"elapsed_seconds"`
}
