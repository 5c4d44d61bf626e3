package interfaces

import (
	"context"

	"github.com/rjdeboer/captare/internal/models"
)

// Insert rejection reasons.
const (
	InsertReasonDuplicate     = "duplicate"
	InsertReasonInvalidDomain = "invalid_domain"
)

// InsertResult reports the outcome of a deduplicated insert.
type InsertResult struct {
	Inserted bool   `json:"inserted"`
	ID       string `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// LeadListOptions filters lead listings.
type LeadListOptions struct {
	TenantID string
	ListID   string
	MinScore int
	Limit    int
	Offset   int
}

// LeadStorage persists leads with uniqueness on (tenantID, normalized
// domain). Each insert is its own transaction; re-inserting an existing
// (tenant, domain) returns {Inserted:false, Reason:"duplicate"} with no
// side effects.
type LeadStorage interface {
	InsertDeduped(ctx context.Context, lead *models.Lead, tenantID, listID string) (*InsertResult, error)
	ListLeads(ctx context.Context, opts *LeadListOptions) ([]*models.Lead, error)
	CountLeads(ctx context.Context, tenantID string) (int, error)
}
