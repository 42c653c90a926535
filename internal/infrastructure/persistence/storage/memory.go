// Package storage provides the in-memory storage backend.
package storage

import (
	"sync"
)

// MemoryStore is the in-memory implementation of the KeyValueStore,
// used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]map[string]string // sessionID -> slot -> value
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[string]map[string]string),
	}
}

// Get returns the value for a slot.
func (s *MemoryStore) Get(sessionID, slot string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.slots[sessionID]
	if !ok {
		return "", false, nil
	}
	value, ok := session[slot]
	return value, ok, nil
}

// Set writes the value for a slot.
func (s *MemoryStore) Set(sessionID, slot, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.slots[sessionID]
	if !ok {
		session = make(map[string]string)
		s.slots[sessionID] = session
	}
	session[slot] = value
	return nil
}

// Delete removes a slot.
func (s *MemoryStore) Delete(sessionID, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.slots[sessionID]; ok {
		delete(session, slot)
		if len(session) == 0 {
			delete(s.slots, sessionID)
		}
	}
	return nil
}

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[string]map[string]string)
	return nil
}
