// Package storage provides the per-session key/value storage handle that
// backs the snapshot cache. Values are opaque strings; each session owns
// an independent keyspace of named slots.
package storage

// KeyValueStore is the storage handle abstraction. Implementations must be
// safe for concurrent use.
type KeyValueStore interface {
	// Get returns the value for a slot, with found=false on absence.
	Get(sessionID, slot string) (value string, found bool, err error)

	// Set writes the value for a slot, creating or replacing it.
	Set(sessionID, slot, value string) error

	// Delete removes a slot. Deleting an absent slot is not an error.
	Delete(sessionID, slot string) error

	// Close releases any resources held by the backend.
	Close() error
}
