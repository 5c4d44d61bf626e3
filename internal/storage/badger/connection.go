// Package badger implements lead and session persistence on BadgerDB
// via badgerhold.
package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/rjdeboer/captare/internal/common"
)

// gcInterval is how often the value log is compacted.
const gcInterval = 10 * time.Minute

// BadgerDB manages the Badger database connection.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
	stopGC chan struct{}
}

// NewBadgerDB opens (and optionally resets) the database at the
// configured path.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // arbor handles logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
		stopGC: make(chan struct{}),
	}
	go db.runGC()

	return db, nil
}

// runGC compacts the value log periodically. Badger never reclaims
// value-log space on its own.
func (b *BadgerDB) runGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			for {
				err := b.store.Badger().RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badgerdb.ErrNoRewrite) {
						b.logger.Warn().Err(err).Msg("Badger value log GC failed")
					}
					break
				}
			}
		}
	}
}

// Store returns the underlying badgerhold store.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops the GC loop and closes the database connection.
func (b *BadgerDB) Close() error {
	close(b.stopGC)
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
