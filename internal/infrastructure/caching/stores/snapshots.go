// Package stores provides concrete cache store implementations
package stores

import (
	"encoding/json"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/storage"
)

// SnapshotStore implements the snapshot cache over a per-session storage
// handle. Freshness is checked lazily at read time; there is no background
// eviction.
type SnapshotStore struct {
	storage storage.KeyValueStore
	ttl     time.Duration
	logger  *logging.ChanneledLogger
	now     func() time.Time
}

// NewSnapshotStore creates a new snapshot cache store.
func NewSnapshotStore(kv storage.KeyValueStore, ttl time.Duration, logger *logging.ChanneledLogger) *SnapshotStore {
	if ttl <= 0 {
		ttl = interfaces.DefaultSnapshotTTL
	}
	if logger != nil {
		logger.Cache().Info("Initializing snapshot cache store", "ttl", ttl)
	}
	return &SnapshotStore{
		storage: kv,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the store's clock. Tests use this to control LastSync
// stamping and expiry.
func (ss *SnapshotStore) SetClock(now func() time.Time) {
	ss.now = now
}

// Read returns the current snapshot, collapsing every failure mode to a miss.
func (ss *SnapshotStore) Read(sessionID string) (*identity.Snapshot, bool) {
	start := time.Now()

	raw, found, err := ss.storage.Get(sessionID, interfaces.SlotSnapshot)
	if err != nil {
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "read", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "hit", false, "reason", "storage_error", "error", err.Error(), "duration", time.Since(start))
		}
		return nil, false
	}
	if !found {
		if ss.logger != nil {
			ss.logger.Cache().Debug("Cache operation", "operation", "read", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "hit", false, "reason", "absent", "duration", time.Since(start))
		}
		return nil, false
	}

	var snapshot identity.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		// Corrupt entry: purge so the next read starts clean.
		ss.purge(sessionID, "corrupt")
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "read", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "hit", false, "reason", "corrupt", "error", err.Error(), "duration", time.Since(start))
		}
		return nil, false
	}

	if snapshot.IsExpired(ss.ttl, ss.now()) {
		ss.purge(sessionID, "expired")
		if ss.logger != nil {
			ss.logger.Cache().Debug("Cache operation", "operation", "read", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "hit", false, "reason", "expired", "duration", time.Since(start))
		}
		return nil, false
	}

	if ss.logger != nil {
		ss.logger.LogCacheOperation("read", sessionID, true, time.Since(start))
	}
	return &snapshot, true
}

// purge drops an unusable snapshot slot so later reads start clean.
func (ss *SnapshotStore) purge(sessionID, reason string) {
	if err := ss.storage.Delete(sessionID, interfaces.SlotSnapshot); err != nil && ss.logger != nil {
		ss.logger.Cache().Warn("Cache operation", "operation", "purge", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "reason", reason, "error", err.Error())
	}
}

// Write overlays the supplied fields onto the documented defaults and stamps
// LastSync with the store's clock. The previous record never contributes:
// fields the caller omits come out as defaults, not as stale values.
// Storage failures are logged and swallowed.
func (ss *SnapshotStore) Write(sessionID string, partial identity.Partial) {
	start := time.Now()

	snapshot := identity.Snapshot{
		IsLoggedIn: false,
		UserID:     nil,
		UserName:   "",
		UserImage:  nil,
	}

	if partial.IsLoggedIn != nil {
		snapshot.IsLoggedIn = *partial.IsLoggedIn
	}
	if partial.UserID != nil {
		snapshot.UserID = partial.UserID
	}
	if partial.UserName != nil {
		snapshot.UserName = *partial.UserName
	}
	if partial.UserImage != nil {
		snapshot.UserImage = partial.UserImage
	}

	// LastSync is stamped here and nowhere else.
	snapshot.LastSync = ss.now()

	data, err := json.Marshal(snapshot)
	if err != nil {
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "write", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "reason", "marshal_failed", "error", err.Error(), "duration", time.Since(start))
		}
		return
	}

	if err := ss.storage.Set(sessionID, interfaces.SlotSnapshot, string(data)); err != nil {
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "write", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "reason", "storage_error", "error", err.Error(), "duration", time.Since(start))
		}
		return
	}

	if ss.logger != nil {
		ss.logger.Cache().Debug("Cache operation", "operation", "write", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "isLoggedIn", snapshot.IsLoggedIn, "duration", time.Since(start))
	}
}

// Erase removes the snapshot slot. The account flag survives.
func (ss *SnapshotStore) Erase(sessionID string) {
	start := time.Now()
	if err := ss.storage.Delete(sessionID, interfaces.SlotSnapshot); err != nil {
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "erase", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "reason", "storage_error", "error", err.Error(), "duration", time.Since(start))
		}
		return
	}
	if ss.logger != nil {
		ss.logger.Cache().Debug("Cache operation", "operation", "erase", "type", "snapshot", "sessionId", logging.SanitizeSessionID(sessionID), "duration", time.Since(start))
	}
}

// MarkHasAccount sets the sticky account flag. There is deliberately no
// counterpart that clears it.
func (ss *SnapshotStore) MarkHasAccount(sessionID string) {
	start := time.Now()
	if err := ss.storage.Set(sessionID, interfaces.SlotHasAccount, "true"); err != nil {
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "mark_has_account", "type", "account_flag", "sessionId", logging.SanitizeSessionID(sessionID), "reason", "storage_error", "error", err.Error(), "duration", time.Since(start))
		}
		return
	}
	if ss.logger != nil {
		ss.logger.Cache().Debug("Cache operation", "operation", "mark_has_account", "type", "account_flag", "sessionId", logging.SanitizeSessionID(sessionID), "duration", time.Since(start))
	}
}

// HasAccount reports the sticky account flag. Anything but a readable "true"
// counts as false.
func (ss *SnapshotStore) HasAccount(sessionID string) bool {
	start := time.Now()
	raw, found, err := ss.storage.Get(sessionID, interfaces.SlotHasAccount)
	if err != nil {
		if ss.logger != nil {
			ss.logger.Cache().Warn("Cache operation", "operation", "has_account", "type", "account_flag", "sessionId", logging.SanitizeSessionID(sessionID), "hit", false, "reason", "storage_error", "error", err.Error(), "duration", time.Since(start))
		}
		return false
	}
	if !found {
		if ss.logger != nil {
			ss.logger.Cache().Debug("Cache operation", "operation", "has_account", "type", "account_flag", "sessionId", logging.SanitizeSessionID(sessionID), "hit", false, "reason", "absent", "duration", time.Since(start))
		}
		return false
	}
	return raw == "true"
}

// Reconcile applies the provider's resolved identity. The asymmetry is
// intentional: a present identity marks the flag and rewrites the snapshot;
// a nil identity erases the snapshot and leaves the flag untouched.
func (ss *SnapshotStore) Reconcile(sessionID string, ident *identity.ExternalIdentity) (*identity.Snapshot, bool) {
	start := time.Now()

	if ident == nil {
		ss.Erase(sessionID)
		if ss.logger != nil {
			ss.logger.LogReconcile(sessionID, false, time.Since(start))
		}
		return nil, false
	}

	ss.MarkHasAccount(sessionID)

	loggedIn := true
	userID := ident.UserID
	userName := ident.UserName
	partial := identity.Partial{
		IsLoggedIn: &loggedIn,
		UserID:     &userID,
		UserName:   &userName,
	}
	if ident.UserImage != "" {
		userImage := ident.UserImage
		partial.UserImage = &userImage
	}
	ss.Write(sessionID, partial)

	if ss.logger != nil {
		ss.logger.LogReconcile(sessionID, true, time.Since(start))
	}
	return ss.Read(sessionID)
}
