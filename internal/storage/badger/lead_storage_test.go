package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "captare-test"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertDeduped(t *testing.T) {
	db := newTestDB(t)
	store := NewLeadStorage(db, arbor.NewLogger())
	ctx := context.Background()

	lead := &models.Lead{
		CompanyName: "Acme BV",
		Website:     "https://acme.nl",
		Domain:      "https://www.acme.nl/", // normalized on insert
		Score:       72,
	}

	result, err := store.InsertDeduped(ctx, lead, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("InsertDeduped() error = %v", err)
	}
	if !result.Inserted {
		t.Fatalf("first insert not accepted: %+v", result)
	}
	if result.ID == "" {
		t.Error("inserted lead has no ID")
	}
	if lead.Domain != "acme.nl" {
		t.Errorf("domain = %q, want normalized acme.nl", lead.Domain)
	}

	// Same domain again for the same tenant is a duplicate.
	again, err := store.InsertDeduped(ctx, &models.Lead{Domain: "acme.nl", Score: 90}, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("InsertDeduped() error = %v", err)
	}
	if again.Inserted || again.Reason != interfaces.InsertReasonDuplicate {
		t.Errorf("re-insert = %+v, want duplicate rejection", again)
	}

	// A different tenant may hold the same domain.
	other, err := store.InsertDeduped(ctx, &models.Lead{Domain: "acme.nl", Score: 60}, "tenant-b", "list-1")
	if err != nil {
		t.Fatalf("InsertDeduped() error = %v", err)
	}
	if !other.Inserted {
		t.Errorf("insert for other tenant = %+v, want accepted", other)
	}
}

func TestInsertDedupedLeavesStoredRecordUntouched(t *testing.T) {
	db := newTestDB(t)
	store := NewLeadStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first, err := store.InsertDeduped(ctx, &models.Lead{
		CompanyName: "Acme BV", Domain: "acme.nl", Score: 72,
	}, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("InsertDeduped() error = %v", err)
	}

	again, err := store.InsertDeduped(ctx, &models.Lead{
		CompanyName: "Imposter", Domain: "acme.nl", Score: 99,
	}, "tenant-a", "list-1")
	if err != nil {
		t.Fatalf("InsertDeduped() error = %v", err)
	}
	if again.Inserted || again.ID != first.ID {
		t.Errorf("re-insert = %+v, want duplicate pointing at %s", again, first.ID)
	}

	leads, err := store.ListLeads(ctx, &interfaces.LeadListOptions{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("ListLeads() error = %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d stored leads, want 1", len(leads))
	}
	if leads[0].CompanyName != "Acme BV" || leads[0].Score != 72 {
		t.Errorf("stored lead mutated by duplicate insert: %+v", leads[0])
	}
}

func TestInsertDedupedInvalidDomain(t *testing.T) {
	db := newTestDB(t)
	store := NewLeadStorage(db, arbor.NewLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		domain string
	}{
		{"empty", ""},
		{"noise host", "facebook.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := store.InsertDeduped(ctx, &models.Lead{Domain: tt.domain}, "tenant-a", "list-1")
			if err != nil {
				t.Fatalf("InsertDeduped() error = %v", err)
			}
			if result.Inserted || result.Reason != interfaces.InsertReasonInvalidDomain {
				t.Errorf("result = %+v, want invalid_domain rejection", result)
			}
		})
	}
}

func TestListLeadsFilters(t *testing.T) {
	db := newTestDB(t)
	store := NewLeadStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seed := []struct {
		domain string
		listID string
		score  int
	}{
		{"alpha.nl", "list-1", 80},
		{"beta.nl", "list-1", 40},
		{"gamma.nl", "list-2", 95},
	}
	for _, s := range seed {
		if _, err := store.InsertDeduped(ctx, &models.Lead{Domain: s.domain, Score: s.score}, "tenant-a", s.listID); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}

	leads, err := store.ListLeads(ctx, &interfaces.LeadListOptions{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("ListLeads() error = %v", err)
	}
	if len(leads) != 3 {
		t.Errorf("got %d leads, want 3", len(leads))
	}

	leads, err = store.ListLeads(ctx, &interfaces.LeadListOptions{TenantID: "tenant-a", MinScore: 75})
	if err != nil {
		t.Fatalf("ListLeads() error = %v", err)
	}
	if len(leads) != 2 {
		t.Errorf("got %d leads with score >= 75, want 2", len(leads))
	}

	leads, err = store.ListLeads(ctx, &interfaces.LeadListOptions{TenantID: "tenant-a", ListID: "list-2"})
	if err != nil {
		t.Fatalf("ListLeads() error = %v", err)
	}
	if len(leads) != 1 || leads[0].Domain != "gamma.nl" {
		t.Errorf("list-2 leads = %v, want only gamma.nl", leads)
	}

	count, err := store.CountLeads(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("CountLeads() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountLeads() = %d, want 3", count)
	}
}
