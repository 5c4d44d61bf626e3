package models

import "time"

// EventType identifies a broadcast event.
type EventType string

const (
	EventJobStarted     EventType = "job_started"
	EventQueryStart     EventType = "query_start"
	EventDomainsFound   EventType = "domains_found"
	EventLead           EventType = "lead"
	EventProgress       EventType = "progress"
	EventSearchProgress EventType = "search_progress"
	EventLog            EventType = "log"
	EventUpdate         EventType = "update"
	EventJobError       EventType = "job_error"
	EventJobDone        EventType = "job_done"
)

// Event is the unit pushed to subscribed clients. Payload shape depends
// on Type; see the payload structs below.
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	TenantID  string      `json:"tenant_id,omitempty"`
	Timestamp time.Time   `json:"ts"`
	Payload   interface{} `json:"payload,omitempty"`
}

// JobStartedPayload accompanies EventJobStarted.
type JobStartedPayload struct {
	SessionID string      `json:"session_id"`
	Queries   []QuerySpec `json:"queries"`
}

// QueryStartPayload accompanies EventQueryStart.
type QueryStartPayload struct {
	Query   string `json:"query"`
	Sector  string `json:"sector"`
	Country string `json:"country"`
}

// DomainsFoundPayload accompanies EventDomainsFound.
type DomainsFoundPayload struct {
	Count int `json:"count"`
}

// LeadPayload accompanies EventLead.
type LeadPayload struct {
	Lead *Lead `json:"lead"`
}

// ProgressPayload accompanies EventProgress.
type ProgressPayload struct {
	Counters JobCounters `json:"counters"`
}

// SearchProgressPayload accompanies EventSearchProgress.
type SearchProgressPayload struct {
	Query        string `json:"query"`
	ResultsFound int    `json:"results_found"`
	Blocked      bool   `json:"blocked"`
	Source       string `json:"source"`
	Error        string `json:"error,omitempty"`
}

// LogPayload accompanies EventLog.
type LogPayload struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// JobErrorPayload accompanies EventJobError.
type JobErrorPayload struct {
	Error string `json:"error"`
}

// JobDonePayload accompanies EventJobDone. FinalStatus is "done" or
// "stopped".
type JobDonePayload struct {
	FinalStatus string      `json:"final_status"`
	Counters    JobCounters `json:"counters"`
}
