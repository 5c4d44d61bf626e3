package interfaces

import (
	"context"

	"github.com/rjdeboer/captare/internal/models"
)

// SessionUpdate carries counter and status changes for a session. Nil
// fields are left untouched.
type SessionUpdate struct {
	LeadsFound        *int
	DuplicatesSkipped *int
	ErrorsCount       *int
	Status            *models.SessionStatus
	Error             *string
}

// SessionStore persists one record per job execution.
type SessionStore interface {
	Create(ctx context.Context, tenantID, listID string, cfg models.JobConfig, queries []models.QuerySpec) (string, error)
	Update(ctx context.Context, sessionID string, upd SessionUpdate) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	List(ctx context.Context, tenantID string, limit int) ([]*models.Session, error)
	// MarkStale flips sessions stuck in "running" with no update for the
	// given age to "error". Returns the number of sessions touched.
	MarkStale(ctx context.Context, olderThanHours int) (int, error)
}
