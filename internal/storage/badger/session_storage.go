package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

// SessionStorage implements interfaces.SessionStore on BadgerDB.
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a SessionStorage instance.
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStore {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// Create persists a new running session and returns its ID.
func (s *SessionStorage) Create(ctx context.Context, tenantID, listID string, cfg models.JobConfig, queries []models.QuerySpec) (string, error) {
	now := time.Now()
	session := &models.Session{
		ID:        common.NewSessionID(),
		TenantID:  tenantID,
		ListID:    listID,
		Config:    cfg,
		Queries:   queries,
		Status:    models.SessionStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Store().Insert(session.ID, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Debug().
		Str("session_id", session.ID).
		Str("tenant_id", tenantID).
		Int("queries", len(queries)).
		Msg("Session created")

	return session.ID, nil
}

// Update applies the non-nil fields of upd to the session.
func (s *SessionStorage) Update(ctx context.Context, sessionID string, upd interfaces.SessionUpdate) error {
	var session models.Session
	if err := s.db.Store().Get(sessionID, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("session not found: %s", sessionID)
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if upd.LeadsFound != nil {
		session.LeadsFound = *upd.LeadsFound
	}
	if upd.DuplicatesSkipped != nil {
		session.DuplicatesSkipped = *upd.DuplicatesSkipped
	}
	if upd.ErrorsCount != nil {
		session.ErrorsCount = *upd.ErrorsCount
	}
	if upd.Status != nil {
		session.Status = *upd.Status
	}
	if upd.Error != nil {
		session.Error = *upd.Error
	}
	session.UpdatedAt = time.Now()

	if err := s.db.Store().Update(sessionID, &session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Get returns one session by ID.
func (s *SessionStorage) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Store().Get(sessionID, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// List returns the tenant's sessions, newest first.
func (s *SessionStorage) List(ctx context.Context, tenantID string, limit int) ([]*models.Session, error) {
	query := badgerhold.Where("TenantID").Eq(tenantID).Index("TenantID").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessions []models.Session
	if err := s.db.Store().Find(&sessions, query); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]*models.Session, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

// MarkStale flips running sessions with no update for olderThanHours to
// error. Covers sessions orphaned by a crash or kill.
func (s *SessionStorage) MarkStale(ctx context.Context, olderThanHours int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanHours) * time.Hour)

	var stale []models.Session
	query := badgerhold.Where("Status").Eq(models.SessionStatusRunning).And("UpdatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&stale, query); err != nil {
		return 0, fmt.Errorf("failed to find stale sessions: %w", err)
	}

	touched := 0
	for i := range stale {
		stale[i].Status = models.SessionStatusError
		stale[i].Error = "session marked stale: no progress updates"
		stale[i].UpdatedAt = time.Now()
		if err := s.db.Store().Update(stale[i].ID, &stale[i]); err != nil {
			s.logger.Warn().Err(err).Str("session_id", stale[i].ID).Msg("Failed to mark session stale")
			continue
		}
		touched++
	}

	if touched > 0 {
		s.logger.Info().Int("sessions", touched).Msg("Stale sessions marked as error")
	}
	return touched, nil
}
