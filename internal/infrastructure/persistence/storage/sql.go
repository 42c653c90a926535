// Package storage provides the SQL-based storage backend (SQLite or libSQL).
package storage

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/database"
)

// SQLStore is the SQL-based implementation of the KeyValueStore.
// It works against both the sqlite3 and libsql drivers.
type SQLStore struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLStore creates a new SQL-backed store and ensures its schema exists.
func NewSQLStore(db *database.DB, logger *logging.ChanneledLogger) (*SQLStore, error) {
	store := &SQLStore{
		db:     db,
		logger: logger,
	}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

// ensureSchema creates the storage table if it does not exist.
func (s *SQLStore) ensureSchema() error {
	const query = `
		CREATE TABLE IF NOT EXISTS session_storage (
			session_id TEXT NOT NULL,
			slot TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (session_id, slot)
		)`

	start := time.Now()
	s.logger.Database().Debug("Ensuring session storage schema")

	_, err := s.db.Exec(query)
	if err != nil {
		s.logger.Database().Error("Session storage schema creation failed", "error", err.Error())
		return err
	}

	s.logger.Database().Info("Session storage schema ready", "duration", time.Since(start))
	return nil
}

// Get returns the value for a slot.
func (s *SQLStore) Get(sessionID, slot string) (string, bool, error) {
	const query = `
		SELECT value
		FROM session_storage
		WHERE session_id = ? AND slot = ?`

	start := time.Now()
	s.logger.Database().Debug("Loading storage slot", "sessionId", logging.SanitizeSessionID(sessionID), "slot", slot)

	var value string
	err := s.db.QueryRow(query, sessionID, slot).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Database().Debug("Storage slot not found", "sessionId", logging.SanitizeSessionID(sessionID), "slot", slot)
			return "", false, nil
		}
		s.logger.Database().Error("Failed to load storage slot", "error", err.Error(), "slot", slot)
		return "", false, err
	}

	database.CheckAndLogSlowQuery(s.logger, "SELECT value FROM session_storage", time.Since(start), sessionID)
	return value, true, nil
}

// Set writes the value for a slot, creating or replacing it.
func (s *SQLStore) Set(sessionID, slot, value string) error {
	const query = `
		INSERT INTO session_storage (session_id, slot, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, slot) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	start := time.Now()
	s.logger.Database().Debug("Writing storage slot", "sessionId", logging.SanitizeSessionID(sessionID), "slot", slot)

	_, err := s.db.Exec(query, sessionID, slot, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Database().Error("Storage slot write failed", "error", err.Error(), "slot", slot)
		return err
	}

	database.CheckAndLogSlowQuery(s.logger, "INSERT INTO session_storage", time.Since(start), sessionID)
	return nil
}

// Delete removes a slot.
func (s *SQLStore) Delete(sessionID, slot string) error {
	const query = `
		DELETE FROM session_storage
		WHERE session_id = ? AND slot = ?`

	start := time.Now()
	s.logger.Database().Debug("Deleting storage slot", "sessionId", logging.SanitizeSessionID(sessionID), "slot", slot)

	_, err := s.db.Exec(query, sessionID, slot)
	if err != nil {
		s.logger.Database().Error("Storage slot delete failed", "error", err.Error(), "slot", slot)
		return err
	}

	database.CheckAndLogSlowQuery(s.logger, "DELETE FROM session_storage", time.Since(start), sessionID)
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
