package interfaces

// StorageManager owns the embedded database and hands out the typed
// stores backed by it.
type StorageManager interface {
	LeadStorage() LeadStorage
	SessionStore() SessionStore
	Close() error
}
