package models

import "time"

// SessionStatus is the lifecycle state of one job execution.
type SessionStatus string

const (
	SessionStatusRunning SessionStatus = "running"
	SessionStatusDone    SessionStatus = "done"
	SessionStatusStopped SessionStatus = "stopped"
	SessionStatusError   SessionStatus = "error"
)

// Session is the persisted record of one job execution: its config, the
// generated query list, running counters and the final status.
type Session struct {
	ID       string `badgerhold:"key" json:"id"`
	TenantID string `badgerholdIndex:"TenantID" json:"tenant_id"`
	ListID   string `json:"list_id"`

	Config  JobConfig   `json:"config"`
	Queries []QuerySpec `json:"queries"`

	Status            SessionStatus `json:"status"`
	LeadsFound        int           `json:"leads_found"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	ErrorsCount       int           `json:"errors_count"`
	Error             string        `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
