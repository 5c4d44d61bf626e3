package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
	"github.com/rjdeboer/captare/internal/interfaces"
)

// Manager owns the Badger connection and the typed stores backed by it.
type Manager struct {
	db       *BadgerDB
	leads    interfaces.LeadStorage
	sessions interfaces.SessionStore
	logger   arbor.ILogger
}

// NewManager opens the database and wires the stores.
func NewManager(cfg *common.Config, logger arbor.ILogger) (*Manager, error) {
	db, err := NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &Manager{
		db:       db,
		leads:    NewLeadStorage(db, logger),
		sessions: NewSessionStorage(db, logger),
		logger:   logger,
	}, nil
}

// LeadStorage returns the lead store.
func (m *Manager) LeadStorage() interfaces.LeadStorage {
	return m.leads
}

// SessionStore returns the session store.
func (m *Manager) SessionStore() interfaces.SessionStore {
	return m.sessions
}

// Close closes the database.
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}

var _ interfaces.StorageManager = (*Manager)(nil)
