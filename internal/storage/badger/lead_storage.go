package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

// LeadStorage implements interfaces.LeadStorage on BadgerDB. Uniqueness
// is (tenantID, normalized domain).
type LeadStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLeadStorage creates a LeadStorage instance.
func NewLeadStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LeadStorage {
	return &LeadStorage{
		db:     db,
		logger: logger,
	}
}

// InsertDeduped inserts the lead unless the tenant already holds its
// domain. Re-inserting returns {Inserted:false, Reason:"duplicate"}
// without touching the stored record.
func (s *LeadStorage) InsertDeduped(ctx context.Context, lead *models.Lead, tenantID, listID string) (*interfaces.InsertResult, error) {
	if lead == nil {
		return nil, fmt.Errorf("lead is required")
	}

	domain := common.NormalizeDomain(lead.Domain)
	if domain == "" || common.IsNoiseDomain(domain) {
		return &interfaces.InsertResult{Inserted: false, Reason: interfaces.InsertReasonInvalidDomain}, nil
	}

	// Duplicate check and insert share one transaction so the store
	// enforces (tenant, domain) uniqueness without help from callers.
	store := s.db.Store()
	var result interfaces.InsertResult
	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		var existing []models.Lead
		query := badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").And("Domain").Eq(domain).Limit(1)
		if err := store.TxFind(tx, &existing, query); err != nil {
			return fmt.Errorf("failed to check for duplicate lead: %w", err)
		}
		if len(existing) > 0 {
			result = interfaces.InsertResult{
				Inserted: false,
				ID:       existing[0].ID,
				Reason:   interfaces.InsertReasonDuplicate,
			}
			return nil
		}

		lead.ID = common.NewLeadID()
		lead.TenantID = tenantID
		lead.ListID = listID
		lead.Domain = domain
		if lead.FoundAt.IsZero() {
			lead.FoundAt = time.Now()
		}

		if err := store.TxInsert(tx, lead.ID, lead); err != nil {
			return fmt.Errorf("failed to insert lead: %w", err)
		}
		result = interfaces.InsertResult{Inserted: true, ID: lead.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Inserted {
		return &result, nil
	}

	s.logger.Debug().
		Str("lead_id", lead.ID).
		Str("tenant_id", tenantID).
		Str("domain", domain).
		Int("score", lead.Score).
		Msg("Lead stored")

	return &result, nil
}

// ListLeads returns leads matching the options, newest first.
func (s *LeadStorage) ListLeads(ctx context.Context, opts *interfaces.LeadListOptions) ([]*models.Lead, error) {
	if opts == nil || opts.TenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	query := badgerhold.Where("TenantID").Eq(opts.TenantID).Index("TenantID")
	if opts.ListID != "" {
		query = query.And("ListID").Eq(opts.ListID)
	}
	if opts.MinScore > 0 {
		query = query.And("Score").Ge(opts.MinScore)
	}
	query = query.SortBy("FoundAt").Reverse()
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var leads []models.Lead
	if err := s.db.Store().Find(&leads, query); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	result := make([]*models.Lead, len(leads))
	for i := range leads {
		result[i] = &leads[i]
	}
	return result, nil
}

// CountLeads returns the tenant's total lead count.
func (s *LeadStorage) CountLeads(ctx context.Context, tenantID string) (int, error) {
	count, err := s.db.Store().Count(&models.Lead{}, badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return int(count), nil
}
