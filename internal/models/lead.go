package models

import (
	"encoding/json"
	"time"
)

// Lead is a scored company record with contact data, keyed by normalized
// domain per tenant. Persisted at most once per (tenant, domain).
type Lead struct {
	ID       string `badgerhold:"key" json:"id"`
	TenantID string `badgerholdIndex:"TenantID" json:"tenant_id"`
	ListID   string `json:"list_id"`

	CompanyName string   `json:"company_name"`
	Website     string   `json:"website"`
	Domain      string   `json:"domain"`
	Email       string   `json:"email,omitempty"`
	AllEmails   []string `json:"all_emails,omitempty"` // capped at 5
	Phone       string   `json:"phone,omitempty"`
	Address     string   `json:"address,omitempty"`
	Description string   `json:"description,omitempty"` // capped at 300 chars

	Score        int             `json:"score"`
	AnalysisData json.RawMessage `json:"analysis_data,omitempty"`

	EmailValid            bool   `json:"email_valid"`
	EmailValidationScore  int    `json:"email_validation_score"`
	EmailValidationReason string `json:"email_validation_reason,omitempty"`

	FoundAt time.Time `json:"found_at"`
}
